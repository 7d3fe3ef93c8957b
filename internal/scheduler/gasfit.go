package scheduler

import (
	"context"

	"staking-keeper/internal/client"

	"github.com/rotisserie/eris"
)

// FallbackBatchSize caps the batch when no gas estimate is available.
const FallbackBatchSize = 100

type Estimator interface {
	EstimateGas(ctx context.Context, call client.Call) (uint64, error)
}

// Fitter finds the largest batch, halving from the candidate, whose estimate fits a gas limit.
type Fitter struct {
	estimator Estimator
	encode    func(offset, count uint64) (client.Call, error)
}

func NewFitter(estimator Estimator, encode func(offset, count uint64) (client.Call, error)) *Fitter {
	return &Fitter{estimator: estimator, encode: encode}
}

// Fit returns a count in [1, candidate]. It returns 1 when even a single item exceeds the
// limit; that item is left for simulation to reject. Estimator errors are returned as is.
func (f *Fitter) Fit(ctx context.Context, start, candidate, gasLimit uint64) (uint64, error) {
	for n := candidate; n > 0; n /= 2 {
		call, err := f.encode(start, n)
		if err != nil {
			return 0, err
		}
		gas, err := f.estimator.EstimateGas(ctx, call)
		if err != nil {
			return 0, eris.Wrapf(err, "estimate batch of %d at offset %d", n, start)
		}
		if gas <= gasLimit {
			return n, nil
		}
	}
	return 1, nil
}

func fallbackSize(remaining uint64) uint64 {
	if remaining < FallbackBatchSize {
		return remaining
	}
	return FallbackBatchSize
}
