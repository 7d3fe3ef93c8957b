package scheduler

import (
	"context"
	"testing"

	"staking-keeper/internal/checkpoint"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestPendingSelectsOlderStamps(t *testing.T) {
	ctx := context.Background()
	stamps := checkpoint.NewStamps(checkpoint.NewMemStore())
	entities := make([]common.Address, 10)
	for i := range entities {
		entities[i] = poolAddr(i)
	}
	// stamp i with cycle i for the odd ones; evens stay unstamped
	for i := 1; i < len(entities); i += 2 {
		require.NoError(t, stamps.Stamp(ctx, entities[i], uint64(i)))
	}

	for current := uint64(0); current <= 11; current++ {
		got, err := Pending(ctx, entities, stamps, current)
		require.NoError(t, err)

		var want []common.Address
		for i, e := range entities {
			stamp := uint64(0)
			if i%2 == 1 {
				stamp = uint64(i)
			}
			if stamp < current {
				want = append(want, e)
			}
		}
		if want == nil {
			want = []common.Address{}
		}
		require.Equal(t, want, got, "current=%d", current)
	}
}

func TestPendingDropsDuplicates(t *testing.T) {
	stamps := checkpoint.NewStamps(checkpoint.NewMemStore())
	a, b := poolAddr(1), poolAddr(2)
	got, err := Pending(context.Background(), []common.Address{a, b, a, b, a}, stamps, 1)
	require.NoError(t, err)
	require.Equal(t, []common.Address{a, b}, got)
}

func TestPendingSurfacesStoreErrors(t *testing.T) {
	_, err := Pending(context.Background(), []common.Address{poolAddr(1)}, checkpoint.NewStamps(brokenStore{}), 1)
	require.Error(t, err)
}
