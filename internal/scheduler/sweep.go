package scheduler

import (
	"context"
	"time"

	"staking-keeper/internal/client"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Sweeper plans the whole pool list in fixed chunks every time. It keeps no progress.
type Sweeper struct {
	chain   StakingChain
	delay   time.Duration
	chunk   uint64
	planner *Planner
	gate    *Gate
	log     *zap.Logger
}

func NewSweeper(staking common.Address, chain StakingChain, delay time.Duration, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{
		chain:   chain,
		delay:   delay,
		chunk:   SweepChunk,
		planner: NewPlanner(client.MustStaking(), staking),
		gate:    NewGate(chain, log),
		log:     log,
	}
}

func (s *Sweeper) Name() string { return "sweep" }

func (s *Sweeper) Run(ctx context.Context) Result {
	if err := sleep(ctx, s.delay); err != nil {
		return failed(err)
	}
	var (
		pool  common.Address
		total uint64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pool, err = s.chain.CurrentPool(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.chain.ActivePoolCount(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return failed(err)
	}

	plan, err := s.planner.Sweep(total, s.chunk, pool)
	if err != nil {
		return failed(err)
	}
	accepted, err := s.gate.Execute(ctx, plan, nil)
	if err != nil {
		return failed(err)
	}
	s.log.Info("sweep planned", zap.Uint64("total", total), zap.Int("calls", len(accepted)))
	return exec(accepted)
}
