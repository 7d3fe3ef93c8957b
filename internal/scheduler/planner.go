package scheduler

import (
	"staking-keeper/internal/client"

	"github.com/ethereum/go-ethereum/common"
)

// SweepChunk is the fixed batch size of the stateless sweep.
const SweepChunk = 50

type Plan []client.Call

type Planner struct {
	staking *client.Staking
	address common.Address
}

func NewPlanner(staking *client.Staking, address common.Address) *Planner {
	return &Planner{staking: staking, address: address}
}

func (p *Planner) calculate(offset, count uint64) (client.Call, error) {
	return p.staking.CalculateProfit(p.address, offset, count)
}

// Offsets plans calculateProfit(offset, count). The pool's distributeProfit is appended only when
// offset is 0, i.e. this is the first chunk of the cycle.
func (p *Planner) Offsets(offset, count uint64, pool common.Address) (Plan, error) {
	calc, err := p.calculate(offset, count)
	if err != nil {
		return nil, err
	}
	plan := Plan{calc}
	if offset == 0 {
		dist, err := p.staking.DistributeProfit(pool)
		if err != nil {
			return nil, err
		}
		plan = append(plan, dist)
	}
	return plan, nil
}

// Entities plans one distributeProfit per pool, in order.
func (p *Planner) Entities(pools []common.Address) (Plan, error) {
	plan := make(Plan, 0, len(pools))
	for _, pool := range pools {
		call, err := p.staking.DistributeProfit(pool)
		if err != nil {
			return nil, err
		}
		plan = append(plan, call)
	}
	return plan, nil
}

// Sweep covers [0, total) in fixed chunks and closes with the current pool's distribution.
func (p *Planner) Sweep(total, chunk uint64, pool common.Address) (Plan, error) {
	if chunk == 0 {
		chunk = SweepChunk
	}
	plan := make(Plan, 0, total/chunk+2)
	for i := uint64(0); i < total; i += chunk {
		call, err := p.calculate(i, chunk)
		if err != nil {
			return nil, err
		}
		plan = append(plan, call)
	}
	dist, err := p.staking.DistributeProfit(pool)
	if err != nil {
		return nil, err
	}
	return append(plan, dist), nil
}
