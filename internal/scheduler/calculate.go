package scheduler

import (
	"context"
	"errors"
	"time"

	"staking-keeper/internal/checkpoint"
	"staking-keeper/internal/client"
	"staking-keeper/internal/cycle"
	"staking-keeper/internal/metrics"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StakingChain is everything the offset-mode worker reads from and dry-runs against.
type StakingChain interface {
	Estimator
	Simulator
	CurrentPool(ctx context.Context) (common.Address, error)
	ActivePoolCount(ctx context.Context) (uint64, error)
}

type CalculatorConfig struct {
	Staking common.Address
	// GasLimit of zero skips estimation and uses the static batch size.
	GasLimit uint64
	Delay    time.Duration
}

// Calculator walks the active pool list in gas-bounded chunks, one chunk per invocation,
// remembering its offset for the current cycle.
type Calculator struct {
	cfg     CalculatorConfig
	chain   StakingChain
	clock   *cycle.Clock
	offsets *checkpoint.Offsets
	planner *Planner
	fitter  *Fitter
	gate    *Gate
	log     *zap.Logger
	metrics *metrics.Registry
}

func NewCalculator(cfg CalculatorConfig, chain StakingChain, clock *cycle.Clock, store checkpoint.Store, log *zap.Logger, m *metrics.Registry) *Calculator {
	if log == nil {
		log = zap.NewNop()
	}
	planner := NewPlanner(client.MustStaking(), cfg.Staking)
	return &Calculator{
		cfg:     cfg,
		chain:   chain,
		clock:   clock,
		offsets: checkpoint.NewOffsets(store),
		planner: planner,
		fitter:  NewFitter(chain, planner.calculate),
		gate:    NewGate(chain, log),
		log:     log,
		metrics: m,
	}
}

func (c *Calculator) Name() string { return "calculate" }

func (c *Calculator) Run(ctx context.Context) Result {
	if err := sleep(ctx, c.cfg.Delay); err != nil {
		return failed(err)
	}

	var (
		pool  common.Address
		total uint64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pool, err = c.chain.CurrentPool(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = c.chain.ActivePoolCount(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		c.log.Error("staking read failed", zap.Error(err))
		return failed(err)
	}

	current := c.clock.Current(ctx)
	last, err := c.offsets.Load(ctx, current)
	if err != nil {
		c.log.Error("progress load failed", zap.Error(err))
		return failed(err)
	}
	if last >= total {
		if err := c.offsets.Reset(ctx); err != nil {
			return failed(err)
		}
		return skip("All pools already processed for current cycle")
	}

	count := c.batchSize(ctx, last, total-last)
	plan, err := c.planner.Offsets(last, count, pool)
	if err != nil {
		return failed(err)
	}

	accepted, err := c.gate.Execute(ctx, plan, func(ctx context.Context) error {
		return c.offsets.Commit(ctx, last+count, total, current)
	})
	if err != nil {
		var sim *SimulationError
		if errors.As(err, &sim) {
			c.metrics.AddSimulationFailures(len(sim.Failures))
		}
		c.log.Error("plan rejected",
			zap.String("cycle", current.String()),
			zap.Uint64("offset", last),
			zap.Uint64("count", count),
			zap.Error(err),
		)
		return failed(err)
	}

	c.metrics.IncCommits()
	c.metrics.SetAcceptedBatch(count)
	c.log.Info("plan accepted",
		zap.String("cycle", current.String()),
		zap.Uint64("offset", last),
		zap.Uint64("count", count),
		zap.Uint64("total", total),
		zap.Bool("first_chunk", last == 0),
	)
	return exec(accepted)
}

func (c *Calculator) batchSize(ctx context.Context, offset, remaining uint64) uint64 {
	if c.cfg.GasLimit == 0 {
		return fallbackSize(remaining)
	}
	n, err := c.fitter.Fit(ctx, offset, remaining, c.cfg.GasLimit)
	if err != nil {
		c.log.Warn("gas estimation failed, using static batch size", zap.Error(err))
		c.metrics.IncGasFallbacks()
		return fallbackSize(remaining)
	}
	return n
}
