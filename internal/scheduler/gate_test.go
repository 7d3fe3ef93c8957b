package scheduler

import (
	"context"
	"errors"
	"testing"

	"staking-keeper/internal/client"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func distributionPlan(t *testing.T, n int) Plan {
	t.Helper()
	pools := make([]common.Address, n)
	for i := range pools {
		pools[i] = poolAddr(i)
	}
	plan, err := NewPlanner(client.MustStaking(), stakingAddr).Entities(pools)
	require.NoError(t, err)
	return plan
}

func TestGateCommitsOnlyAfterFullSuccess(t *testing.T) {
	chain := &fakeChain{}
	gate := NewGate(chain, nil)
	plan := distributionPlan(t, 3)

	commits := 0
	got, err := gate.Execute(context.Background(), plan, func(context.Context) error {
		commits++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, plan, got)
	assert.Equal(t, 1, commits)
	assert.Len(t, chain.simulated, 3)
}

func TestGateSimulatesEveryCallBeforeRejecting(t *testing.T) {
	chain := &fakeChain{failPools: map[common.Address]error{
		poolAddr(0): errors.New("execution reverted: early"),
		poolAddr(2): errors.New("execution reverted: late"),
	}}
	gate := NewGate(chain, nil)

	commits := 0
	got, err := gate.Execute(context.Background(), distributionPlan(t, 3), func(context.Context) error {
		commits++
		return nil
	})
	require.Nil(t, got)
	var simErr *SimulationError
	require.ErrorAs(t, err, &simErr)
	require.Len(t, simErr.Failures, 2)
	assert.Equal(t, 0, simErr.Failures[0].Index)
	assert.Equal(t, 2, simErr.Failures[1].Index)
	assert.Contains(t, simErr.Error(), "early")
	assert.Contains(t, simErr.Error(), "late")
	assert.Zero(t, commits)
	assert.Len(t, chain.simulated, 3)
}

func TestGateCommitFailure(t *testing.T) {
	gate := NewGate(&fakeChain{}, nil)
	_, err := gate.Execute(context.Background(), distributionPlan(t, 1), func(context.Context) error {
		return errStoreDown
	})
	require.Error(t, err)
	var simErr *SimulationError
	assert.False(t, errors.As(err, &simErr))
}

func TestGatePartitionPreservesOrder(t *testing.T) {
	chain := &fakeChain{failPools: map[common.Address]error{poolAddr(1): errors.New("execution reverted")}}
	plan := distributionPlan(t, 4)

	ok, failures := NewGate(chain, nil).Partition(context.Background(), plan)
	require.Len(t, failures, 1)
	assert.Equal(t, poolAddr(1), failures[0].Call.To)
	assert.Equal(t, Plan{plan[0], plan[2], plan[3]}, ok)
}

func TestFailedResultMessages(t *testing.T) {
	res := failed(&SimulationError{Failures: []CallFailure{{Index: 0, Call: client.Call{To: stakingAddr}, Err: errors.New("execution reverted: x")}}})
	assert.False(t, res.CanExec)
	assert.Equal(t, "Simulation failed: call 0 to "+stakingAddr.Hex()+": execution reverted: x", res.Message)

	res = failed(errors.New("boom"))
	assert.Equal(t, "Error: boom", res.Message)
}
