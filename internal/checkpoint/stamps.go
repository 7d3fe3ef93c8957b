package checkpoint

import (
	"context"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rotisserie/eris"
)

const stampPrefix = "distributed:"

// Stamps records, per entity, the last cycle in which it was fully processed.
type Stamps struct {
	store Store
}

func NewStamps(store Store) *Stamps {
	return &Stamps{store: store}
}

func StampKey(entity common.Address) string {
	return stampPrefix + strings.ToLower(entity.Hex())
}

// Last returns the stamped cycle id for entity. Missing or unparsable stamps read as 0.
func (s *Stamps) Last(ctx context.Context, entity common.Address) (uint64, error) {
	raw, ok, err := s.store.Get(ctx, StampKey(entity))
	if err != nil {
		return 0, eris.Wrapf(err, "load stamp %s", entity.Hex())
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (s *Stamps) Stamp(ctx context.Context, entity common.Address, cycleID uint64) error {
	return eris.Wrapf(s.store.Set(ctx, StampKey(entity), strconv.FormatUint(cycleID, 10)), "stamp %s", entity.Hex())
}
