// Package payment connects Telegram invoice payments to the wallet ledger.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/m3rciful/translatebot/core/logger"
	"github.com/m3rciful/translatebot/internal/wallet"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

const (
	// PayloadTag marks invoices issued by this bot for wallet funding.
	PayloadTag = "wallet_funding_payload"
	// StartParameter lets deep links open the funding flow directly.
	StartParameter = "wallet_funding"
)

var (
	// ErrPayloadMismatch means a successful payment arrived with a foreign payload.
	ErrPayloadMismatch = errors.New("payment: unknown invoice payload")
	// ErrDuplicateCharge means this provider charge was already credited.
	ErrDuplicateCharge = errors.New("payment: charge already processed")
)

// Bridge issues invoices and credits confirmed payments.
type Bridge struct {
	wallet        *wallet.Service
	providerToken string

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewBridge wires the wallet service with the payment provider token.
func NewBridge(w *wallet.Service, providerToken string) *Bridge {
	return &Bridge{
		wallet:        w,
		providerToken: providerToken,
		seen:          make(map[string]struct{}),
	}
}

// RequestTopUp sends an invoice for the given RUB amount to the chat.
func (b *Bridge) RequestTopUp(c tele.Context, amountRUB int) error {
	if amountRUB <= 0 {
		return fmt.Errorf("payment: invalid top-up amount %d", amountRUB)
	}
	invoice := &tele.Invoice{
		Title:       "Wallet top-up",
		Description: fmt.Sprintf("Add %d RUB to your translation balance", amountRUB),
		Payload:     PayloadTag,
		Currency:    "RUB",
		Token:       b.providerToken,
		Start:       StartParameter,
		Prices: []tele.Price{
			{Label: fmt.Sprintf("%d RUB", amountRUB), Amount: amountRUB * 100},
		},
	}
	if err := c.Send(invoice); err != nil {
		return fmt.Errorf("payment: send invoice: %w", err)
	}
	return nil
}

// HandleCheckout answers pre-checkout queries. Only invoices carrying our
// payload tag are accepted.
func (b *Bridge) HandleCheckout(c tele.Context) error {
	q := c.PreCheckoutQuery()
	if q == nil {
		return nil
	}
	if q.Payload != PayloadTag {
		logger.Warn(context.Background(), "service.payments", "checkout.reject",
			slog.Int64("user_id", q.Sender.ID),
			slog.String("payload", logger.SanitizeLimit(q.Payload, 64)),
		)
		return c.Accept("This invoice is no longer valid.")
	}
	return c.Accept()
}

// Confirm credits a successful payment to the user's wallet. totalMinor is
// the paid amount in kopeks. Repeated charge IDs are ignored so provider
// retries cannot double-credit.
func (b *Bridge) Confirm(ctx context.Context, userID int64, payload string, totalMinor int, chargeID string) (float64, error) {
	if payload != PayloadTag {
		return 0, ErrPayloadMismatch
	}
	if totalMinor <= 0 {
		return 0, fmt.Errorf("payment: invalid paid amount %d", totalMinor)
	}

	chargeID = strings.TrimSpace(chargeID)
	if chargeID != "" {
		b.mu.Lock()
		if _, dup := b.seen[chargeID]; dup {
			b.mu.Unlock()
			return 0, ErrDuplicateCharge
		}
		b.seen[chargeID] = struct{}{}
		b.mu.Unlock()
	}

	amount := float64(totalMinor) / 100
	bal, err := b.wallet.Credit(ctx, userID, amount)
	if err != nil {
		if chargeID != "" {
			b.mu.Lock()
			delete(b.seen, chargeID)
			b.mu.Unlock()
		}
		return 0, err
	}

	logger.LogEvent(ctx, logger.SVCPayments, slog.LevelInfo, "payment.confirmed",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.Float64("amount", amount),
		slog.Float64("balance", bal),
		slog.String("charge_id", logger.SanitizeLimit(chargeID, 64)),
	)
	return bal, nil
}

// HandlePayment is the telebot adapter for successful payment updates.
func (b *Bridge) HandlePayment(onCredited func(c tele.Context, balance float64) error) tele.HandlerFunc {
	return func(c tele.Context) error {
		msg := c.Message()
		if msg == nil || msg.Payment == nil {
			return nil
		}
		p := msg.Payment

		ctx := context.Background()
		bal, err := b.Confirm(ctx, c.Sender().ID, p.Payload, p.Total, p.ProviderChargeID)
		switch {
		case errors.Is(err, ErrDuplicateCharge):
			return nil
		case errors.Is(err, ErrPayloadMismatch):
			logger.Warn(ctx, "service.payments", "payment.rejected",
				slog.Int64("user_id", c.Sender().ID),
				slog.String("payload", logger.SanitizeLimit(p.Payload, 64)),
			)
			return nil
		case err != nil:
			return err
		}

		if onCredited != nil {
			return onCredited(c, bal)
		}
		return nil
	}
}
