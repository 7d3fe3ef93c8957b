package scheduler

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type StampReader interface {
	Last(ctx context.Context, entity common.Address) (uint64, error)
}

// Pending returns the entities whose last stamp is older than current, in input order and
// without duplicates. Unstamped entities are always pending.
func Pending(ctx context.Context, entities []common.Address, stamps StampReader, current uint64) ([]common.Address, error) {
	entities = unique(entities)
	pending := make([]common.Address, 0, len(entities))
	for _, entity := range entities {
		last, err := stamps.Last(ctx, entity)
		if err != nil {
			return nil, err
		}
		if last < current {
			pending = append(pending, entity)
		}
	}
	return pending, nil
}

func unique(entities []common.Address) []common.Address {
	seen := make(map[common.Address]struct{}, len(entities))
	out := make([]common.Address, 0, len(entities))
	for _, entity := range entities {
		if _, dup := seen[entity]; dup {
			continue
		}
		seen[entity] = struct{}{}
		out = append(out, entity)
	}
	return out
}
