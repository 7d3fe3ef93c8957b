package keeper

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"staking-keeper/internal/checkpoint"
	"staking-keeper/internal/client"
	"staking-keeper/internal/metrics"
	"staking-keeper/internal/scheduler"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeJob struct {
	runs  atomic.Int32
	res   scheduler.Result
	block chan struct{}
}

func (f *fakeJob) Name() string { return "fake" }

func (f *fakeJob) Run(ctx context.Context) scheduler.Result {
	f.runs.Add(1)
	if f.block != nil {
		<-f.block
	}
	return f.res
}

type failingLock struct{}

func (failingLock) Acquire(context.Context, string, string, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}
func (failingLock) Release(context.Context, string, string) error { return nil }

func TestOnceEmitsResult(t *testing.T) {
	var out bytes.Buffer
	job := &fakeJob{res: scheduler.Result{
		CanExec:  true,
		CallData: []client.Call{{To: common.HexToAddress("0x1111111111111111111111111111111111111111"), Data: []byte{0xde, 0xad}}},
	}}
	r := New(job, nil, Options{Sink: &out}, zap.NewNop(), metrics.NewRegistry("test"))

	res := r.Once(context.Background())
	require.True(t, res.CanExec)
	assert.JSONEq(t,
		`{"canExec":true,"callData":[{"to":"0x1111111111111111111111111111111111111111","data":"0xdead"}]}`,
		strings.TrimSpace(out.String()),
	)
}

func TestLeaseExcludesOverlappingInvocations(t *testing.T) {
	lock := checkpoint.NewMemStore()
	job := &fakeJob{res: scheduler.Result{Message: "All pools already processed for current cycle"}, block: make(chan struct{})}
	first := New(job, lock, Options{LeaseTTL: time.Minute, Holder: "a"}, nil, nil)
	second := New(job, lock, Options{LeaseTTL: time.Minute, Holder: "b"}, nil, nil)

	done := make(chan scheduler.Result)
	go func() { done <- first.Once(context.Background()) }()
	require.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, time.Millisecond)

	res := second.Once(context.Background())
	assert.False(t, res.CanExec)
	assert.Equal(t, "Another invocation is in progress", res.Message)
	assert.Equal(t, int32(1), job.runs.Load())

	close(job.block)
	<-done

	res = second.Once(context.Background())
	assert.Equal(t, "All pools already processed for current cycle", res.Message)
	assert.Equal(t, int32(2), job.runs.Load())
}

func TestLeaseErrorSkipsInvocation(t *testing.T) {
	job := &fakeJob{res: scheduler.Result{CanExec: true}}
	res := New(job, failingLock{}, Options{LeaseTTL: time.Minute}, nil, nil).Once(context.Background())
	assert.False(t, res.CanExec)
	assert.True(t, strings.HasPrefix(res.Message, "Error: "))
	assert.Zero(t, job.runs.Load())
}

func TestRunStopsWithContext(t *testing.T) {
	job := &fakeJob{res: scheduler.Result{Message: "nothing"}}
	ctx, cancel := context.WithCancel(context.Background())
	r := New(job, nil, Options{Interval: 5 * time.Millisecond}, nil, nil)

	errCh := make(chan error)
	go func() { errCh <- r.Run(ctx) }()
	require.Eventually(t, func() bool { return job.runs.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-errCh)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "exec", Outcome(scheduler.Result{CanExec: true}))
	assert.Equal(t, "simulation_failed", Outcome(scheduler.Result{Message: "Simulation failed: x"}))
	assert.Equal(t, "error", Outcome(scheduler.Result{Message: "Error: x"}))
	assert.Equal(t, "skip", Outcome(scheduler.Result{Message: "No pools pending distribution"}))
}
