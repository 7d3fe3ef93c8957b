// Package cycle resolves the accounting cycle the keeper is working in.
//
// The staking contract's own counter is authoritative. When it cannot be read the
// clock falls back to whole weeks since the unix epoch. The two numbering schemes are
// not comparable, so every resolved cycle carries the source it came from.
package cycle

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// FallbackPeriod is the period of the time-derived cycle.
const FallbackPeriod = 7 * 24 * time.Hour

type Source string

const (
	SourceContract Source = "contract"
	SourceClock    Source = "clock"
)

type Cycle struct {
	ID     uint64
	Source Source
}

// Same reports whether c and other name the same cycle. An empty source on either side
// matches by id alone.
func (c Cycle) Same(other Cycle) bool {
	if c.ID != other.ID {
		return false
	}
	if c.Source == "" || other.Source == "" {
		return true
	}
	return c.Source == other.Source
}

func (c Cycle) String() string {
	return strconv.FormatUint(c.ID, 10) + "/" + string(c.Source)
}

// Reader is the authoritative cycle counter.
type Reader interface {
	CurrentCycle(ctx context.Context) (uint64, error)
}

type Clock struct {
	reader Reader
	now    func() time.Time
	log    *zap.Logger
}

func NewClock(reader Reader, now func() time.Time, log *zap.Logger) *Clock {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Clock{reader: reader, now: now, log: log}
}

// Current never fails: any error from the reader selects the weekly fallback.
func (c *Clock) Current(ctx context.Context) Cycle {
	if c.reader != nil {
		id, err := c.reader.CurrentCycle(ctx)
		if err == nil {
			return Cycle{ID: id, Source: SourceContract}
		}
		c.log.Warn("cycle read failed, using weekly fallback", zap.Error(err))
	}
	return Fallback(c.now())
}

func Fallback(now time.Time) Cycle {
	secs := now.Unix()
	if secs < 0 {
		secs = 0
	}
	return Cycle{ID: uint64(secs) / uint64(FallbackPeriod/time.Second), Source: SourceClock}
}
