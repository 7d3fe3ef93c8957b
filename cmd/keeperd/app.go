package main

import (
    "context"
    "io"
    "strings"
    "time"

    "staking-keeper/internal/checkpoint"
    "staking-keeper/internal/client"
    "staking-keeper/internal/config"
    "staking-keeper/internal/cycle"
    "staking-keeper/internal/httpserver"
    "staking-keeper/internal/indexer"
    "staking-keeper/internal/keeper"
    "staking-keeper/internal/logger"
    "staking-keeper/internal/metrics"
    "staking-keeper/internal/scheduler"

    "github.com/ethereum/go-ethereum/common"
    "github.com/rotisserie/eris"
    "go.uber.org/zap"
)

const (
    modeCalculate         = "calculate"
    modeDistribute        = "distribute"
    modeDistributeIndexed = "distribute-indexed"
    modeSweep             = "sweep"
)

var modes = []string{modeCalculate, modeDistribute, modeDistributeIndexed, modeSweep}

type app struct {
    cfg     config.Config
    log     *zap.Logger
    metrics *metrics.Registry
    eth     *client.EthClient
    store   checkpoint.Store
    lock    checkpoint.Locker
    job     scheduler.Job
    closers []func() error
}

func setup(ctx context.Context, mode string) (*app, error) {
    cfg, err := config.Load()
    if err != nil {
        return nil, err
    }
    if mode != "" {
        cfg.Mode = strings.ToLower(mode)
    }
    log := logger.New(cfg.LogLevel)
    m := metrics.NewRegistry(cfg.MetricsNamespace)

    if missing := config.MissingRequired(cfg); len(missing) > 0 {
        log.Error("missing required env vars", zap.Strings("vars", missing))
        return nil, eris.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
    }
    if !validMode(cfg.Mode) {
        return nil, eris.Errorf("unknown mode %q, want one of %s", cfg.Mode, strings.Join(modes, ", "))
    }

    a := &app{cfg: cfg, log: log.With(zap.String("mode", cfg.Mode)), metrics: m}

    eth, err := client.Dial(ctx, client.Options{
        RPCURL:    cfg.RPCURL,
        Staking:   common.HexToAddress(cfg.StakingAddress),
        Multicall: common.HexToAddress(cfg.MulticallAddress),
        From:      common.HexToAddress(cfg.ExecutorAddress),
    }, a.log)
    if err != nil {
        return nil, err
    }
    a.eth = eth
    a.closers = append(a.closers, func() error { eth.Close(); return nil })

    chainID, err := eth.CheckChainID(ctx, cfg.ChainID)
    if err != nil {
        a.Close()
        return nil, err
    }
    a.log.Info("connected", zap.Uint64("chain_id", chainID), zap.String("staking", cfg.StakingAddress))

    a.openStore()
    a.job = a.newJob()
    return a, nil
}

func validMode(mode string) bool {
    for _, m := range modes {
        if m == mode {
            return true
        }
    }
    return false
}

func (a *app) openStore() {
    if a.cfg.RedisAddress == "" {
        mem := checkpoint.NewMemStore()
        a.store, a.lock = mem, mem
        a.log.Warn("REDIS_ADDRESS not set, progress will not survive a restart")
        return
    }
    rs := checkpoint.NewRedisStore(checkpoint.Options{
        Addr:     a.cfg.RedisAddress,
        Password: a.cfg.RedisPassword,
        DB:       a.cfg.RedisDB,
    }, a.cfg.StoreNamespace)
    a.store, a.lock = rs, rs
    a.closers = append(a.closers, rs.Close)
}

func (a *app) newJob() scheduler.Job {
    staking := a.eth.StakingAddress()
    clock := cycle.NewClock(a.eth, time.Now, a.log)

    switch a.cfg.Mode {
    case modeDistribute:
        return scheduler.NewDistributor(a.distributorConfig(staking), a.eth, clock, a.store, a.log, a.metrics)
    case modeDistributeIndexed:
        index := indexer.New(a.cfg.SubgraphURL, nil)
        return scheduler.NewIndexedDistributor(a.distributorConfig(staking), a.eth, index, time.Now, a.log, a.metrics)
    case modeSweep:
        return scheduler.NewSweeper(staking, a.eth, a.cfg.Delay, a.log)
    default:
        return scheduler.NewCalculator(scheduler.CalculatorConfig{
            Staking:  staking,
            GasLimit: a.cfg.GasLimit,
            Delay:    a.cfg.Delay,
        }, a.eth, clock, a.store, a.log, a.metrics)
    }
}

func (a *app) distributorConfig(staking common.Address) scheduler.DistributorConfig {
    return scheduler.DistributorConfig{
        Staking:    staking,
        BatchCount: a.cfg.BatchCount,
        Delay:      a.cfg.Delay,
        Interval:   a.cfg.DistributeInterval,
    }
}

func (a *app) runner(out io.Writer) *keeper.Runner {
    return keeper.New(a.job, a.lock, keeper.Options{
        Interval: a.cfg.PollInterval,
        LeaseTTL: a.cfg.LeaseTTL,
        Sink:     out,
    }, a.log, a.metrics)
}

func (a *app) server() *httpserver.Server {
    return httpserver.New(a.cfg.HTTPListenAddr, a.metrics.Handler(), a.log)
}

func (a *app) Close() {
    for i := len(a.closers) - 1; i >= 0; i-- {
        if err := a.closers[i](); err != nil {
            a.log.Warn("close failed", zap.Error(err))
        }
    }
    _ = a.log.Sync()
}
