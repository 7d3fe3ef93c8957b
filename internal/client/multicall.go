package client

import (
    "context"
    "math/big"

    "github.com/ethereum/go-ethereum"
    "github.com/ethereum/go-ethereum/accounts/abi"
    "github.com/ethereum/go-ethereum/common"
    "github.com/rotisserie/eris"
)

const poolPageSize = 200

type multicall3Call struct {
    Target       common.Address
    AllowFailure bool
    CallData     []byte
}

// MulticallResult is the outcome of one call in an aggregate3 batch.
type MulticallResult struct {
    Success    bool
    ReturnData []byte
}

// Multicall runs calls through Multicall3.aggregate3 with failures allowed, preserving order.
func (c *EthClient) Multicall(ctx context.Context, calls []Call) ([]MulticallResult, error) {
    if len(calls) == 0 {
        return nil, nil
    }
    in := make([]multicall3Call, len(calls))
    for i, call := range calls {
        in[i] = multicall3Call{Target: call.To, AllowFailure: true, CallData: call.Data}
    }
    data, err := c.mc.Pack("aggregate3", in)
    if err != nil {
        return nil, eris.Wrap(err, "pack aggregate3")
    }
    out, err := c.rpc.CallContract(ctx, ethereum.CallMsg{To: &c.multicall, Data: data}, nil)
    if err != nil {
        return nil, eris.Wrap(err, "multicall")
    }
    return decodeAggregate3(c.mc, out, len(calls))
}

func decodeAggregate3(mc abi.ABI, out []byte, want int) ([]MulticallResult, error) {
    values, err := mc.Unpack("aggregate3", out)
    if err != nil {
        return nil, eris.Wrap(err, "unpack aggregate3")
    }
    if len(values) != 1 {
        return nil, eris.Errorf("unpack aggregate3: expected 1 value, got %d", len(values))
    }
    results := *abi.ConvertType(values[0], new([]MulticallResult)).(*[]MulticallResult)
    if len(results) != want {
        return nil, eris.Errorf("multicall returned %d results for %d calls", len(results), want)
    }
    return results, nil
}

// ActivePools enumerates activePools(i) for every active index, in index order.
func (c *EthClient) ActivePools(ctx context.Context) ([]common.Address, error) {
    count, err := c.ActivePoolCount(ctx)
    if err != nil {
        return nil, err
    }
    pools := make([]common.Address, 0, count)
    for start := uint64(0); start < count; start += poolPageSize {
        end := start + poolPageSize
        if end > count {
            end = count
        }
        calls := make([]Call, 0, end-start)
        for i := start; i < end; i++ {
            data, err := c.abi.pack("activePools", new(big.Int).SetUint64(i))
            if err != nil {
                return nil, err
            }
            calls = append(calls, Call{To: c.staking, Data: data})
        }
        results, err := c.Multicall(ctx, calls)
        if err != nil {
            return nil, err
        }
        for i, res := range results {
            if !res.Success {
                return nil, eris.Errorf("activePools(%d) failed", start+uint64(i))
            }
            addr, err := c.abi.unpackAddress("activePools", res.ReturnData)
            if err != nil {
                return nil, err
            }
            pools = append(pools, addr)
        }
    }
    return pools, nil
}
