package scheduler

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"staking-keeper/internal/client"
	"staking-keeper/internal/cycle"

	"github.com/ethereum/go-ethereum/common"
)

var (
	stakingAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")
	currentPool = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func poolAddr(i int) common.Address {
	return common.BigToAddress(big.NewInt(int64(0x1000 + i)))
}

func isCalculate(call client.Call) bool { return len(call.Data) == 4+64 }

func decodeCalculate(call client.Call) (offset, count uint64) {
	return new(big.Int).SetBytes(call.Data[4:36]).Uint64(), new(big.Int).SetBytes(call.Data[36:68]).Uint64()
}

type fakeChain struct {
	mu sync.Mutex

	pool     common.Address
	total    uint64
	readErr  error
	pools    []common.Address
	cycleID  uint64
	cycleErr error

	gasPerItem  uint64
	estimateErr error
	estimated   []uint64

	failCalculate  error
	failDistribute error
	failPools      map[common.Address]error
	simulated      []client.Call
}

func (f *fakeChain) CurrentPool(context.Context) (common.Address, error) {
	return f.pool, f.readErr
}

func (f *fakeChain) ActivePoolCount(context.Context) (uint64, error) {
	return f.total, f.readErr
}

func (f *fakeChain) ActivePools(context.Context) ([]common.Address, error) {
	return f.pools, f.readErr
}

func (f *fakeChain) CurrentCycle(context.Context) (uint64, error) {
	return f.cycleID, f.cycleErr
}

func (f *fakeChain) EstimateGas(_ context.Context, call client.Call) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.estimateErr != nil {
		return 0, f.estimateErr
	}
	_, count := decodeCalculate(call)
	f.estimated = append(f.estimated, count)
	return 21_000 + count*f.gasPerItem, nil
}

func (f *fakeChain) Simulate(_ context.Context, call client.Call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.simulated = append(f.simulated, call)
	if isCalculate(call) {
		return f.failCalculate
	}
	if err, ok := f.failPools[call.To]; ok {
		return err
	}
	return f.failDistribute
}

func (f *fakeChain) clock() *cycle.Clock {
	return cycle.NewClock(f, nil, nil)
}

// brokenStore fails every operation.
type brokenStore struct{}

var errStoreDown = errors.New("store down")

func (brokenStore) Get(context.Context, string) (string, bool, error) { return "", false, errStoreDown }
func (brokenStore) Set(context.Context, string, string) error         { return errStoreDown }
func (brokenStore) Clear(context.Context, string) error               { return errStoreDown }
