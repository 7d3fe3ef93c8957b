package scheduler

import (
	"context"
	"time"

	"staking-keeper/internal/checkpoint"
	"staking-keeper/internal/client"
	"staking-keeper/internal/cycle"
	"staking-keeper/internal/metrics"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

type PoolChain interface {
	Simulator
	ActivePools(ctx context.Context) ([]common.Address, error)
}

// PoolIndex lists pools whose last distribution happened before a given time.
type PoolIndex interface {
	StalePools(ctx context.Context, staking common.Address, before time.Time, first int) ([]common.Address, error)
}

type DistributorConfig struct {
	Staking    common.Address
	BatchCount int
	Delay      time.Duration
	// Interval is how long a pool may go undistributed before the index reports it.
	Interval time.Duration
}

func (c DistributorConfig) batch() int {
	if c.BatchCount <= 0 {
		return 1
	}
	return c.BatchCount
}

// Distributor calls distributeProfit on every pool not yet stamped for the current cycle.
type Distributor struct {
	cfg     DistributorConfig
	chain   PoolChain
	clock   *cycle.Clock
	stamps  *checkpoint.Stamps
	planner *Planner
	gate    *Gate
	log     *zap.Logger
	metrics *metrics.Registry
}

func NewDistributor(cfg DistributorConfig, chain PoolChain, clock *cycle.Clock, store checkpoint.Store, log *zap.Logger, m *metrics.Registry) *Distributor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Distributor{
		cfg:     cfg,
		chain:   chain,
		clock:   clock,
		stamps:  checkpoint.NewStamps(store),
		planner: NewPlanner(client.MustStaking(), cfg.Staking),
		gate:    NewGate(chain, log),
		log:     log,
		metrics: m,
	}
}

func (d *Distributor) Name() string { return "distribute" }

func (d *Distributor) Run(ctx context.Context) Result {
	if err := sleep(ctx, d.cfg.Delay); err != nil {
		return failed(err)
	}
	pools, err := d.chain.ActivePools(ctx)
	if err != nil {
		d.log.Error("pool enumeration failed", zap.Error(err))
		return failed(err)
	}
	current := d.clock.Current(ctx)
	pending, err := Pending(ctx, pools, d.stamps, current.ID)
	if err != nil {
		d.log.Error("stamp lookup failed", zap.Error(err))
		return failed(err)
	}
	if len(pending) == 0 {
		return skip("All pools already distributed for current cycle")
	}
	if len(pending) > d.cfg.batch() {
		pending = pending[:d.cfg.batch()]
	}

	plan, err := d.planner.Entities(pending)
	if err != nil {
		return failed(err)
	}
	ok, failures := d.gate.Partition(ctx, plan)
	d.metrics.AddSimulationFailures(len(failures))
	if len(ok) == 0 {
		return failed(&SimulationError{Failures: failures})
	}

	stamped := make(Plan, 0, len(ok))
	var stampErr error
	for _, call := range ok {
		if err := d.stamps.Stamp(ctx, call.To, current.ID); err != nil {
			d.log.Error("stamp failed, dropping call", zap.String("pool", call.To.Hex()), zap.Error(err))
			stampErr = err
			continue
		}
		d.metrics.IncCommits()
		stamped = append(stamped, call)
	}
	if len(stamped) == 0 {
		return failed(stampErr)
	}

	d.log.Info("distribution planned",
		zap.String("cycle", current.String()),
		zap.Int("pending", len(pending)),
		zap.Int("accepted", len(stamped)),
		zap.Int("rejected", len(failures)),
	)
	return exec(stamped)
}

// IndexedDistributor takes its work list from the subgraph instead of local stamps. The index
// tracks each pool's last distribution, so nothing is persisted here.
type IndexedDistributor struct {
	cfg     DistributorConfig
	chain   Simulator
	index   PoolIndex
	now     func() time.Time
	planner *Planner
	gate    *Gate
	log     *zap.Logger
	metrics *metrics.Registry
}

func NewIndexedDistributor(cfg DistributorConfig, chain Simulator, index PoolIndex, now func() time.Time, log *zap.Logger, m *metrics.Registry) *IndexedDistributor {
	if log == nil {
		log = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &IndexedDistributor{
		cfg:     cfg,
		chain:   chain,
		index:   index,
		now:     now,
		planner: NewPlanner(client.MustStaking(), cfg.Staking),
		gate:    NewGate(chain, log),
		log:     log,
		metrics: m,
	}
}

func (d *IndexedDistributor) Name() string { return "distribute-indexed" }

func (d *IndexedDistributor) Run(ctx context.Context) Result {
	if err := sleep(ctx, d.cfg.Delay); err != nil {
		return failed(err)
	}
	before := d.now().Add(-d.cfg.Interval)
	pools, err := d.index.StalePools(ctx, d.cfg.Staking, before, d.cfg.batch())
	if err != nil {
		d.log.Error("index query failed", zap.Error(err))
		return failed(err)
	}
	pools = unique(pools)
	if len(pools) == 0 {
		return skip("No pools pending distribution")
	}
	if len(pools) > d.cfg.batch() {
		pools = pools[:d.cfg.batch()]
	}

	plan, err := d.planner.Entities(pools)
	if err != nil {
		return failed(err)
	}
	ok, failures := d.gate.Partition(ctx, plan)
	d.metrics.AddSimulationFailures(len(failures))
	if len(ok) == 0 {
		return failed(&SimulationError{Failures: failures})
	}
	d.log.Info("distribution planned",
		zap.Time("before", before),
		zap.Int("accepted", len(ok)),
		zap.Int("rejected", len(failures)),
	)
	return exec(ok)
}
