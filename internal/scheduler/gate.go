package scheduler

import (
	"context"
	"fmt"
	"strings"

	"staking-keeper/internal/client"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

type Simulator interface {
	Simulate(ctx context.Context, call client.Call) error
}

type CallFailure struct {
	Index int
	Call  client.Call
	Err   error
}

// SimulationError lists every planned call that would revert.
type SimulationError struct {
	Failures []CallFailure
}

func (e *SimulationError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("call %d to %s: %v", f.Index, f.Call.To.Hex(), f.Err))
	}
	return strings.Join(parts, "; ")
}

// Gate dry-runs planned calls before any progress is written.
type Gate struct {
	sim Simulator
	log *zap.Logger
}

func NewGate(sim Simulator, log *zap.Logger) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{sim: sim, log: log}
}

func (g *Gate) simulate(ctx context.Context, plan Plan) []CallFailure {
	var failures []CallFailure
	for i, call := range plan {
		if err := g.sim.Simulate(ctx, call); err != nil {
			g.log.Error("simulation failed", zap.Int("index", i), zap.String("to", call.To.Hex()), zap.Error(err))
			failures = append(failures, CallFailure{Index: i, Call: call, Err: err})
		}
	}
	return failures
}

// Execute simulates every call in plan. Only when all of them pass is commit invoked, exactly
// once. A nil commit is allowed for plans that carry no progress.
func (g *Gate) Execute(ctx context.Context, plan Plan, commit func(context.Context) error) (Plan, error) {
	if failures := g.simulate(ctx, plan); len(failures) > 0 {
		return nil, &SimulationError{Failures: failures}
	}
	if commit != nil {
		if err := commit(ctx); err != nil {
			return nil, eris.Wrap(err, "commit")
		}
	}
	return plan, nil
}

// Partition simulates every call and splits plan into the calls that pass and those that fail.
// Order is preserved in both halves.
func (g *Gate) Partition(ctx context.Context, plan Plan) (Plan, []CallFailure) {
	failures := g.simulate(ctx, plan)
	if len(failures) == 0 {
		return plan, nil
	}
	failed := make(map[int]struct{}, len(failures))
	for _, f := range failures {
		failed[f.Index] = struct{}{}
	}
	ok := make(Plan, 0, len(plan)-len(failures))
	for i, call := range plan {
		if _, bad := failed[i]; !bad {
			ok = append(ok, call)
		}
	}
	return ok, failures
}
