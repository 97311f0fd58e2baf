package payment

import (
	"context"
	"sync"
	"testing"

	"github.com/m3rciful/translatebot/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBridge() (*Bridge, *wallet.Service) {
	svc := wallet.NewService(wallet.NewMemoryStore())
	return NewBridge(svc, "test-provider-token"), svc
}

func TestConfirmCreditsWallet(t *testing.T) {
	ctx := context.Background()
	b, svc := newTestBridge()

	bal, err := b.Confirm(ctx, 42, PayloadTag, 50000, "charge-1")
	require.NoError(t, err)
	assert.InDelta(t, 500.0, bal, 1e-9)

	stored, err := svc.Balance(ctx, 42)
	require.NoError(t, err)
	assert.InDelta(t, 500.0, stored, 1e-9)
}

func TestConfirmRejectsForeignPayload(t *testing.T) {
	ctx := context.Background()
	b, svc := newTestBridge()

	_, err := b.Confirm(ctx, 42, "some_other_bot_payload", 50000, "charge-1")
	assert.ErrorIs(t, err, ErrPayloadMismatch)

	bal, err := svc.Balance(ctx, 42)
	require.NoError(t, err)
	assert.Zero(t, bal)
}

func TestConfirmRejectsInvalidAmount(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBridge()

	_, err := b.Confirm(ctx, 42, PayloadTag, 0, "charge-1")
	assert.Error(t, err)

	_, err = b.Confirm(ctx, 42, PayloadTag, -100, "charge-2")
	assert.Error(t, err)
}

func TestConfirmDeduplicatesCharges(t *testing.T) {
	ctx := context.Background()
	b, svc := newTestBridge()

	_, err := b.Confirm(ctx, 42, PayloadTag, 10000, "charge-1")
	require.NoError(t, err)

	_, err = b.Confirm(ctx, 42, PayloadTag, 10000, "charge-1")
	assert.ErrorIs(t, err, ErrDuplicateCharge)

	bal, err := svc.Balance(ctx, 42)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, bal, 1e-9)
}

func TestConfirmDeduplicatesConcurrentRetries(t *testing.T) {
	ctx := context.Background()
	b, svc := newTestBridge()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = b.Confirm(ctx, 42, PayloadTag, 10000, "charge-1")
		}()
	}
	wg.Wait()

	bal, err := svc.Balance(ctx, 42)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, bal, 1e-9)
}

func TestConfirmDistinctChargesAccumulate(t *testing.T) {
	ctx := context.Background()
	b, svc := newTestBridge()

	_, err := b.Confirm(ctx, 42, PayloadTag, 10000, "charge-1")
	require.NoError(t, err)
	_, err = b.Confirm(ctx, 42, PayloadTag, 50000, "charge-2")
	require.NoError(t, err)

	bal, err := svc.Balance(ctx, 42)
	require.NoError(t, err)
	assert.InDelta(t, 600.0, bal, 1e-9)
}
