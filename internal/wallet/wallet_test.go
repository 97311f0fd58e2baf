package wallet

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceZeroForUnseenUser(t *testing.T) {
	svc := NewService(NewMemoryStore())

	bal, err := svc.Balance(context.Background(), 12345)
	require.NoError(t, err)
	assert.Zero(t, bal)
}

func TestCreditThenDebit(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())

	bal, err := svc.Credit(ctx, 1, 500)
	require.NoError(t, err)
	assert.InDelta(t, 500.0, bal, 1e-9)

	bal, err = svc.Debit(ctx, 1, 100)
	require.NoError(t, err)
	assert.InDelta(t, 400.0, bal, 1e-9)

	bal, err = svc.Balance(ctx, 1)
	require.NoError(t, err)
	assert.InDelta(t, 400.0, bal, 1e-9)
}

func TestAmountValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())

	_, err := svc.Credit(ctx, 1, 0)
	assert.ErrorIs(t, err, ErrNonPositiveAmount)

	_, err = svc.Credit(ctx, 1, -50)
	assert.ErrorIs(t, err, ErrNonPositiveAmount)

	_, err = svc.Debit(ctx, 1, 0)
	assert.ErrorIs(t, err, ErrNonPositiveAmount)

	bal, err := svc.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, bal)
}

func TestBalancesAreIsolatedPerUser(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())

	_, err := svc.Credit(ctx, 1, 100)
	require.NoError(t, err)
	_, err = svc.Credit(ctx, 2, 1000)
	require.NoError(t, err)

	bal1, err := svc.Balance(ctx, 1)
	require.NoError(t, err)
	bal2, err := svc.Balance(ctx, 2)
	require.NoError(t, err)

	assert.InDelta(t, 100.0, bal1, 1e-9)
	assert.InDelta(t, 1000.0, bal2, 1e-9)
}

func TestConcurrentCreditsSum(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())

	const workers = 50
	const perWorker = 10.0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Credit(ctx, 7, perWorker)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	bal, err := svc.Balance(ctx, 7)
	require.NoError(t, err)
	assert.InDelta(t, workers*perWorker, bal, 1e-6)
}

func TestConcurrentMixedOperations(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())

	_, err := svc.Credit(ctx, 3, 1000)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.Credit(ctx, 3, 5)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := svc.Debit(ctx, 3, 5)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	bal, err := svc.Balance(ctx, 3)
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, bal, 1e-6)
}
