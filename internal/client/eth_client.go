package client

import (
    "context"
    "errors"
    "math/big"
    "strings"

    "github.com/ethereum/go-ethereum"
    "github.com/ethereum/go-ethereum/accounts/abi"
    "github.com/ethereum/go-ethereum/common"
    "github.com/ethereum/go-ethereum/common/hexutil"
    "github.com/ethereum/go-ethereum/ethclient"
    "github.com/ethereum/go-ethereum/rpc"
    "github.com/rotisserie/eris"
    "go.uber.org/zap"
)

// backend is the subset of ethclient.Client the keeper needs.
type backend interface {
    ChainID(ctx context.Context) (*big.Int, error)
    CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
    EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
    Close()
}

type Options struct {
    RPCURL    string
    Staking   common.Address
    Multicall common.Address
    // From is the executor address used for simulation and estimation.
    From common.Address
}

type EthClient struct {
    rpc       backend
    log       *zap.Logger
    staking   common.Address
    multicall common.Address
    from      common.Address
    abi       *Staking
    mc        abi.ABI
}

// RevertError is returned by Simulate when the call would revert.
type RevertError struct {
    Reason string
    Data   []byte
}

func (e *RevertError) Error() string {
    if e.Reason == "" {
        return "execution reverted"
    }
    return "execution reverted: " + e.Reason
}

func Dial(ctx context.Context, opts Options, log *zap.Logger) (*EthClient, error) {
    if log == nil {
        log = zap.NewNop()
    }
    rpcClient, err := ethclient.DialContext(ctx, opts.RPCURL)
    if err != nil {
        log.Error("failed to connect to rpc", zap.Error(err))
        return nil, eris.Wrap(err, "dial rpc")
    }
    return newEthClient(rpcClient, opts, log)
}

func newEthClient(b backend, opts Options, log *zap.Logger) (*EthClient, error) {
    if log == nil {
        log = zap.NewNop()
    }
    staking, err := NewStaking()
    if err != nil {
        return nil, err
    }
    mc, err := abi.JSON(strings.NewReader(multicall3ABIJSON))
    if err != nil {
        return nil, eris.Wrap(err, "parse multicall abi")
    }
    return &EthClient{
        rpc:       b,
        log:       log,
        staking:   opts.Staking,
        multicall: opts.Multicall,
        from:      opts.From,
        abi:       staking,
        mc:        mc,
    }, nil
}

func (c *EthClient) Close() {
    if c.rpc != nil {
        c.rpc.Close()
    }
}

func (c *EthClient) Staking() *Staking {
    return c.abi
}

func (c *EthClient) StakingAddress() common.Address {
    return c.staking
}

// CheckChainID returns the remote chain id, failing when want is set and differs.
func (c *EthClient) CheckChainID(ctx context.Context, want uint64) (uint64, error) {
    id, err := c.rpc.ChainID(ctx)
    if err != nil {
        return 0, eris.Wrap(err, "chain id")
    }
    got, ok := asUint64(id)
    if !ok {
        return 0, eris.Errorf("chain id %s out of range", id)
    }
    if want != 0 && got != want {
        return got, eris.Errorf("chain id mismatch: want %d got %d", want, got)
    }
    return got, nil
}

func (c *EthClient) read(ctx context.Context, method string, args ...any) ([]byte, error) {
    data, err := c.abi.pack(method, args...)
    if err != nil {
        return nil, err
    }
    out, err := c.rpc.CallContract(ctx, ethereum.CallMsg{To: &c.staking, Data: data}, nil)
    if err != nil {
        return nil, eris.Wrapf(err, "read %s", method)
    }
    return out, nil
}

func (c *EthClient) CurrentPool(ctx context.Context) (common.Address, error) {
    out, err := c.read(ctx, "currentPool")
    if err != nil {
        return common.Address{}, err
    }
    return c.abi.unpackAddress("currentPool", out)
}

func (c *EthClient) ActivePoolCount(ctx context.Context) (uint64, error) {
    out, err := c.read(ctx, "getActivePoolCount")
    if err != nil {
        return 0, err
    }
    return c.abi.unpackUint("getActivePoolCount", out)
}

// CurrentCycle is the authoritative cycle counter of the staking contract.
func (c *EthClient) CurrentCycle(ctx context.Context) (uint64, error) {
    out, err := c.read(ctx, "getCurrentCycle")
    if err != nil {
        return 0, err
    }
    return c.abi.unpackUint("getCurrentCycle", out)
}

func (c *EthClient) EstimateGas(ctx context.Context, call Call) (uint64, error) {
    to := call.To
    gas, err := c.rpc.EstimateGas(ctx, ethereum.CallMsg{From: c.from, To: &to, Data: call.Data})
    if err != nil {
        return 0, eris.Wrap(err, "estimate gas")
    }
    return gas, nil
}

// Simulate dry-runs call against the latest state. A revert is reported as *RevertError.
func (c *EthClient) Simulate(ctx context.Context, call Call) error {
    to := call.To
    _, err := c.rpc.CallContract(ctx, ethereum.CallMsg{From: c.from, To: &to, Data: call.Data}, nil)
    if err == nil {
        return nil
    }
    if revert := asRevert(err); revert != nil {
        return revert
    }
    return eris.Wrap(err, "simulate")
}

func asRevert(err error) *RevertError {
    var dataErr rpc.DataError
    if errors.As(err, &dataErr) {
        if raw, ok := dataErr.ErrorData().(string); ok {
            data, decodeErr := hexutil.Decode(raw)
            if decodeErr == nil {
                reason, unpackErr := abi.UnpackRevert(data)
                if unpackErr != nil {
                    reason = raw
                }
                return &RevertError{Reason: reason, Data: data}
            }
        }
    }
    msg := err.Error()
    if strings.Contains(msg, "execution reverted") {
        reason := strings.TrimSpace(strings.TrimPrefix(strings.SplitN(msg, "execution reverted", 2)[1], ":"))
        return &RevertError{Reason: reason}
    }
    return nil
}
