package checkpoint

import (
	"context"
	"strconv"
	"strings"

	"staking-keeper/internal/cycle"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

const ProgressKey = "calculateProgress"

// cycleID is written as a decimal string but accepted as a bare number too.
type cycleID uint64

func (c cycleID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatUint(uint64(c), 10))), nil
}

func (c *cycleID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*c = cycleID(n)
	return nil
}

type progressRecord struct {
	LastProcessed uint64  `json:"lastProcessed"`
	Cycle         cycleID `json:"cycle"`
	Source        string  `json:"source,omitempty"`
}

// Offsets persists how far into the ordered pool list the current cycle has progressed.
type Offsets struct {
	store Store
	key   string
}

func NewOffsets(store Store) *Offsets {
	return &Offsets{store: store, key: ProgressKey}
}

// Load returns the committed offset for current. Absent, unreadable or stale records
// all load as 0.
func (o *Offsets) Load(ctx context.Context, current cycle.Cycle) (uint64, error) {
	raw, ok, err := o.store.Get(ctx, o.key)
	if err != nil {
		return 0, eris.Wrap(err, "load progress")
	}
	if !ok || raw == "" {
		return 0, nil
	}
	var rec progressRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return 0, nil
	}
	stored := cycle.Cycle{ID: uint64(rec.Cycle), Source: cycle.Source(rec.Source)}
	if !stored.Same(current) {
		return 0, nil
	}
	return rec.LastProcessed, nil
}

// Commit records newOffset for current, or clears the record once total is reached.
func (o *Offsets) Commit(ctx context.Context, newOffset, total uint64, current cycle.Cycle) error {
	if newOffset >= total {
		return eris.Wrap(o.store.Clear(ctx, o.key), "clear progress")
	}
	b, err := json.Marshal(progressRecord{
		LastProcessed: newOffset,
		Cycle:         cycleID(current.ID),
		Source:        string(current.Source),
	})
	if err != nil {
		return eris.Wrap(err, "encode progress")
	}
	return eris.Wrap(o.store.Set(ctx, o.key, string(b)), "save progress")
}

// Reset drops any recorded progress.
func (o *Offsets) Reset(ctx context.Context) error {
	return eris.Wrap(o.store.Clear(ctx, o.key), "clear progress")
}
