// Package wallet maintains per-user prepaid balances in RUB.
package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/m3rciful/translatebot/core/logger"
	"log/slog"
)

// ErrNonPositiveAmount is returned when a credit or debit amount is not positive.
var ErrNonPositiveAmount = errors.New("wallet: amount must be positive")

// Store persists wallet balances. Add applies a signed delta atomically and
// returns the resulting balance. A user that was never seen starts at zero.
type Store interface {
	Balance(ctx context.Context, userID int64) (float64, error)
	Add(ctx context.Context, userID int64, delta float64) (float64, error)
}

// Service exposes the wallet ledger operations used by the bot.
type Service struct {
	store Store
}

// NewService wraps a Store with validation and logging.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Balance returns the current balance for a user, zero if unseen.
func (s *Service) Balance(ctx context.Context, userID int64) (float64, error) {
	bal, err := s.store.Balance(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("wallet balance for %d: %w", userID, err)
	}
	return bal, nil
}

// Credit adds funds to a user's wallet and returns the new balance.
func (s *Service) Credit(ctx context.Context, userID int64, amount float64) (float64, error) {
	if amount <= 0 {
		return 0, ErrNonPositiveAmount
	}
	bal, err := s.store.Add(ctx, userID, amount)
	if err != nil {
		return 0, fmt.Errorf("wallet credit for %d: %w", userID, err)
	}
	logger.LogEvent(ctx, logger.SVCWallet, slog.LevelInfo, "wallet.credit",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.Float64("amount", amount),
		slog.Float64("balance", bal),
	)
	return bal, nil
}

// Debit withdraws funds from a user's wallet and returns the new balance.
// Sufficiency is the caller's concern; the ledger only applies the delta.
func (s *Service) Debit(ctx context.Context, userID int64, amount float64) (float64, error) {
	if amount <= 0 {
		return 0, ErrNonPositiveAmount
	}
	bal, err := s.store.Add(ctx, userID, -amount)
	if err != nil {
		return 0, fmt.Errorf("wallet debit for %d: %w", userID, err)
	}
	logger.LogEvent(ctx, logger.SVCWallet, slog.LevelInfo, "wallet.debit",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.Float64("amount", amount),
		slog.Float64("balance", bal),
	)
	return bal, nil
}
