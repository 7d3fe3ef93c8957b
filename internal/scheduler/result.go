package scheduler

import (
	"context"
	"errors"
	"time"

	"staking-keeper/internal/client"
)

// Result is what a single invocation hands to the executor. When CanExec is false Message
// says why.
type Result struct {
	CanExec  bool          `json:"canExec"`
	CallData []client.Call `json:"callData,omitempty"`
	Message  string        `json:"message,omitempty"`
}

// Job is one scheduling mode. Run never panics on collaborator failures and writes progress at
// most once, after its plan has been simulated.
type Job interface {
	Name() string
	Run(ctx context.Context) Result
}

func exec(plan Plan) Result {
	return Result{CanExec: true, CallData: plan}
}

func skip(msg string) Result {
	return Result{Message: msg}
}

func failed(err error) Result {
	var simErr *SimulationError
	if errors.As(err, &simErr) {
		return Result{Message: "Simulation failed: " + simErr.Error()}
	}
	return Result{Message: "Error: " + err.Error()}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
