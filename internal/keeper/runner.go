package keeper

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"staking-keeper/internal/checkpoint"
	"staking-keeper/internal/metrics"
	"staking-keeper/internal/scheduler"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const leaseKey = "lease"

type Options struct {
	Interval time.Duration
	// LeaseTTL of zero disables the lease.
	LeaseTTL time.Duration
	Holder   string
	// Sink receives one JSON result per line. Nil discards results.
	Sink io.Writer
}

// Runner drives a scheduler job, one invocation at a time.
type Runner struct {
	job     scheduler.Job
	opts    Options
	lock    checkpoint.Locker
	log     *zap.Logger
	metrics *metrics.Registry
}

func New(job scheduler.Job, lock checkpoint.Locker, opts Options, log *zap.Logger, m *metrics.Registry) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Holder == "" {
		opts.Holder = DefaultHolder()
	}
	if opts.Sink == nil {
		opts.Sink = io.Discard
	}
	return &Runner{job: job, opts: opts, lock: lock, log: log, metrics: m}
}

func DefaultHolder() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "keeper"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

// Once performs a single invocation, under the lease when one is configured.
func (r *Runner) Once(ctx context.Context) scheduler.Result {
	res := r.once(ctx)
	r.metrics.IncInvocation(r.job.Name(), Outcome(res))
	if res.CanExec {
		r.log.Info("invocation ready", zap.String("mode", r.job.Name()), zap.Int("calls", len(res.CallData)))
	} else {
		r.log.Info("invocation skipped", zap.String("mode", r.job.Name()), zap.String("message", res.Message))
	}
	if err := r.emit(res); err != nil {
		r.log.Error("result emit failed", zap.Error(err))
	}
	return res
}

func (r *Runner) once(ctx context.Context) scheduler.Result {
	if r.lock == nil || r.opts.LeaseTTL <= 0 {
		return r.job.Run(ctx)
	}
	ok, err := r.lock.Acquire(ctx, leaseKey, r.opts.Holder, r.opts.LeaseTTL)
	if err != nil {
		r.log.Error("lease acquire failed", zap.Error(err))
		return scheduler.Result{Message: "Error: " + err.Error()}
	}
	if !ok {
		r.metrics.IncLeaseConflicts()
		return scheduler.Result{Message: "Another invocation is in progress"}
	}
	defer func() {
		// release on a fresh context so a cancelled run still frees the lease
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.lock.Release(releaseCtx, leaseKey, r.opts.Holder); err != nil {
			r.log.Error("lease release failed", zap.Error(err))
		}
	}()
	return r.job.Run(ctx)
}

func (r *Runner) emit(res scheduler.Result) error {
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	_, err = r.opts.Sink.Write(append(b, '\n'))
	return err
}

// Run invokes the job immediately and then on every tick until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	interval := r.opts.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	r.log.Info("runner started", zap.String("mode", r.job.Name()), zap.Duration("interval", interval))
	r.Once(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.log.Info("runner stopped")
			return nil
		case <-ticker.C:
			r.Once(ctx)
		}
	}
}

// Outcome classifies a result for metrics.
func Outcome(res scheduler.Result) string {
	switch {
	case res.CanExec:
		return "exec"
	case strings.HasPrefix(res.Message, "Simulation failed"):
		return "simulation_failed"
	case strings.HasPrefix(res.Message, "Error:"):
		return "error"
	default:
		return "skip"
	}
}
