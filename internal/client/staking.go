package client

import (
    "fmt"
    "math/big"
    "strings"

    "github.com/ethereum/go-ethereum/accounts/abi"
    "github.com/ethereum/go-ethereum/common"
    "github.com/ethereum/go-ethereum/common/hexutil"
    "github.com/rotisserie/eris"
)

// Call is a single call descriptor handed to the executor.
type Call struct {
    To   common.Address `json:"to"`
    Data hexutil.Bytes  `json:"data"`
}

func (c Call) String() string {
    return fmt.Sprintf("%s:%s", c.To.Hex(), hexutil.Encode(c.Data))
}

// Staking encodes and decodes calls against the staking contract and its pools.
type Staking struct {
    abi abi.ABI
}

func NewStaking() (*Staking, error) {
    parsed, err := abi.JSON(strings.NewReader(stakingABIJSON))
    if err != nil {
        return nil, eris.Wrap(err, "parse staking abi")
    }
    return &Staking{abi: parsed}, nil
}

// MustStaking panics if the embedded ABI does not parse.
func MustStaking() *Staking {
    s, err := NewStaking()
    if err != nil {
        panic(err)
    }
    return s
}

func (s *Staking) CalculateProfit(staking common.Address, offset, count uint64) (Call, error) {
    data, err := s.abi.Pack("calculateProfit", new(big.Int).SetUint64(offset), new(big.Int).SetUint64(count))
    if err != nil {
        return Call{}, eris.Wrap(err, "pack calculateProfit")
    }
    return Call{To: staking, Data: data}, nil
}

func (s *Staking) DistributeProfit(pool common.Address) (Call, error) {
    data, err := s.abi.Pack("distributeProfit")
    if err != nil {
        return Call{}, eris.Wrap(err, "pack distributeProfit")
    }
    return Call{To: pool, Data: data}, nil
}

func (s *Staking) pack(method string, args ...any) ([]byte, error) {
    data, err := s.abi.Pack(method, args...)
    if err != nil {
        return nil, eris.Wrapf(err, "pack %s", method)
    }
    return data, nil
}

func (s *Staking) unpackUint(method string, data []byte) (uint64, error) {
    out, err := s.abi.Unpack(method, data)
    if err != nil {
        return 0, eris.Wrapf(err, "unpack %s", method)
    }
    if len(out) != 1 {
        return 0, eris.Errorf("unpack %s: expected 1 value, got %d", method, len(out))
    }
    v, ok := asUint64(out[0])
    if !ok {
        return 0, eris.Errorf("unpack %s: value %v does not fit uint64", method, out[0])
    }
    return v, nil
}

func (s *Staking) unpackAddress(method string, data []byte) (common.Address, error) {
    out, err := s.abi.Unpack(method, data)
    if err != nil {
        return common.Address{}, eris.Wrapf(err, "unpack %s", method)
    }
    if len(out) != 1 {
        return common.Address{}, eris.Errorf("unpack %s: expected 1 value, got %d", method, len(out))
    }
    addr, ok := out[0].(common.Address)
    if !ok {
        return common.Address{}, eris.Errorf("unpack %s: unexpected type %T", method, out[0])
    }
    return addr, nil
}

func asUint64(v any) (uint64, bool) {
    switch n := v.(type) {
    case uint64:
        return n, true
    case uint32:
        return uint64(n), true
    case uint:
        return uint64(n), true
    case int64:
        if n < 0 {
            return 0, false
        }
        return uint64(n), true
    case *big.Int:
        if n == nil || n.Sign() < 0 || !n.IsUint64() {
            return 0, false
        }
        return n.Uint64(), true
    }
    return 0, false
}
