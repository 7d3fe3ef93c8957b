package config

import (
    "os"
    "strconv"
    "strings"
    "time"

    jlconfig "github.com/JeremyLoy/config"
    "github.com/ethereum/go-ethereum/common"
    "github.com/rotisserie/eris"
)

const (
    DefaultMulticallAddress = "0xcA11bde05977b3631167028862bE2a173976CA11"
    DefaultBatchCount       = 10
    DefaultPollInterval     = 60 * time.Second
    DefaultDistributeEvery  = 7 * 24 * time.Hour
)

type Config struct {
    LogLevel         string
    RPCURL           string
    ChainID          uint64
    StakingAddress   string
    ExecutorAddress  string
    MulticallAddress string
    // GasLimit of zero means no limit was configured.
    GasLimit           uint64
    Delay              time.Duration
    BatchCount         int
    DistributeInterval time.Duration
    SubgraphURL        string
    RedisAddress       string
    RedisPassword      string
    RedisDB            int
    StoreNamespace     string
    LeaseTTL           time.Duration
    PollInterval       time.Duration
    HTTPListenAddr     string
    MetricsNamespace   string
    Mode               string
}

// raw mirrors the environment one to one. Everything is read as text so that a malformed
// optional knob is dropped instead of failing the whole load.
type raw struct {
    LogLevel           string `config:"LOG_LEVEL"`
    RPCURL             string `config:"RPC_URL"`
    ChainID            string `config:"CHAIN_ID"`
    StakingAddress     string `config:"STAKING_ADDRESS"`
    ExecutorAddress    string `config:"EXECUTOR_ADDRESS"`
    MulticallAddress   string `config:"MULTICALL_ADDRESS"`
    GasLimit           string `config:"GAS_LIMIT"`
    Delay              string `config:"DELAY"`
    BatchCount         string `config:"BATCH_COUNT"`
    DistributeInterval string `config:"DISTRIBUTE_INTERVAL"`
    SubgraphURL        string `config:"SUBGRAPH_URL"`
    RedisAddress       string `config:"REDIS_ADDRESS"`
    RedisPassword      string `config:"REDIS_PASSWORD"`
    RedisDB            string `config:"REDIS_DB"`
    StoreNamespace     string `config:"STORE_NAMESPACE"`
    LeaseTTL           string `config:"LEASE_TTL"`
    PollInterval       string `config:"POLL_INTERVAL"`
    HTTPListenAddr     string `config:"HTTP_LISTEN_ADDR"`
    MetricsNamespace   string `config:"METRICS_NAMESPACE"`
    Mode               string `config:"MODE"`
}

func Load() (Config, error) {
    var r raw
    builder := jlconfig.FromEnv()
    if path := os.Getenv("KEEPER_CONFIG_FILE"); path != "" {
        builder = jlconfig.From(path).FromEnv()
    }
    if err := builder.To(&r); err != nil {
        return Config{}, eris.Wrap(err, "load config")
    }
    return fromRaw(r), nil
}

func fromRaw(r raw) Config {
    cfg := Config{
        LogLevel:           orDefault(r.LogLevel, "info"),
        RPCURL:             strings.TrimSpace(r.RPCURL),
        ChainID:            parseUint(r.ChainID, 0),
        StakingAddress:     parseAddress(r.StakingAddress),
        ExecutorAddress:    parseAddress(r.ExecutorAddress),
        MulticallAddress:   parseAddress(r.MulticallAddress),
        GasLimit:           parseUint(r.GasLimit, 0),
        Delay:              time.Duration(parseUint(r.Delay, 0)) * time.Millisecond,
        BatchCount:         int(parseUint(r.BatchCount, DefaultBatchCount)),
        DistributeInterval: seconds(r.DistributeInterval, DefaultDistributeEvery),
        SubgraphURL:        strings.TrimSpace(r.SubgraphURL),
        RedisAddress:       strings.TrimSpace(r.RedisAddress),
        RedisPassword:      r.RedisPassword,
        RedisDB:            int(parseUint(r.RedisDB, 0)),
        StoreNamespace:     orDefault(r.StoreNamespace, "keeper"),
        LeaseTTL:           seconds(r.LeaseTTL, 0),
        PollInterval:       seconds(r.PollInterval, DefaultPollInterval),
        HTTPListenAddr:     orDefault(r.HTTPListenAddr, "127.0.0.1:9000"),
        MetricsNamespace:   orDefault(r.MetricsNamespace, "staking_keeper"),
        Mode:               orDefault(strings.ToLower(r.Mode), "calculate"),
    }
    if cfg.MulticallAddress == "" {
        cfg.MulticallAddress = DefaultMulticallAddress
    }
    if cfg.BatchCount <= 0 {
        cfg.BatchCount = DefaultBatchCount
    }
    return cfg
}

func MissingRequired(cfg Config) []string {
    var missing []string
    if cfg.RPCURL == "" {
        missing = append(missing, "RPC_URL")
    }
    if cfg.StakingAddress == "" {
        missing = append(missing, "STAKING_ADDRESS")
    }
    if cfg.Mode == "distribute-indexed" && cfg.SubgraphURL == "" {
        missing = append(missing, "SUBGRAPH_URL")
    }
    return missing
}

func orDefault(v, fallback string) string {
    v = strings.TrimSpace(v)
    if v == "" {
        return fallback
    }
    return v
}

func parseUint(v string, fallback uint64) uint64 {
    n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
    if err != nil {
        return fallback
    }
    return n
}

func seconds(v string, fallback time.Duration) time.Duration {
    n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 32)
    if err != nil {
        return fallback
    }
    return time.Duration(n) * time.Second
}

func parseAddress(v string) string {
    v = strings.TrimSpace(v)
    if !common.IsHexAddress(v) {
        return ""
    }
    return common.HexToAddress(v).Hex()
}
