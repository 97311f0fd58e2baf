package wallet

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

const upsertBalanceQuery = `
INSERT INTO wallet (user_id, balance)
VALUES ($1, $2)
ON CONFLICT (user_id)
DO UPDATE SET balance = wallet.balance + EXCLUDED.balance
RETURNING balance`

type postgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore returns a Store backed by the wallet table.
func NewPostgresStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) Balance(ctx context.Context, userID int64) (float64, error) {
	var bal float64
	err := s.db.GetContext(ctx, &bal, `SELECT balance FROM wallet WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return bal, nil
}

func (s *postgresStore) Add(ctx context.Context, userID int64, delta float64) (float64, error) {
	var bal float64
	if err := s.db.GetContext(ctx, &bal, upsertBalanceQuery, userID, delta); err != nil {
		return 0, err
	}
	return bal, nil
}
