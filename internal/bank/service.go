// Package bank persists per-guild, per-user currency balances.
package bank

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"friendbot/pkg/friendbot"
)

// ErrInsufficientFunds indicates a withdrawal larger than the account balance.
var ErrInsufficientFunds = errors.New("bank: insufficient funds")

// Service reads and writes account balances in the bot database. Accounts
// are created implicitly with a zero balance on first touch.
type Service struct {
	db *sql.DB
}

// NewService creates a bank service over an open bot database.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Balance returns the account balance, creating the account at zero if the
// user has never been seen.
func (s *Service) Balance(ctx context.Context, guildID, userID string) (int64, error) {
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO bank_accounts (guild_id, user_id, balance) VALUES (?, ?, 0)`,
		guildID, userID,
	); err != nil {
		return 0, fmt.Errorf("open account %s/%s: %w", guildID, userID, err)
	}

	var balance int64
	if err := s.db.QueryRowContext(
		ctx,
		`SELECT balance FROM bank_accounts WHERE guild_id = ? AND user_id = ?`,
		guildID, userID,
	).Scan(&balance); err != nil {
		return 0, fmt.Errorf("read balance %s/%s: %w", guildID, userID, err)
	}

	return balance, nil
}

// SetBalance overwrites the account balance. Negative balances are invalid.
func (s *Service) SetBalance(ctx context.Context, guildID, userID string, balance int64) error {
	if balance < 0 {
		return fmt.Errorf("set balance %s/%s to %d: %w",
			guildID, userID, balance, friendbot.ErrValidation)
	}

	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO bank_accounts (guild_id, user_id, balance) VALUES (?, ?, ?)
		 ON CONFLICT (guild_id, user_id) DO UPDATE SET balance = excluded.balance`,
		guildID, userID, balance,
	); err != nil {
		return fmt.Errorf("set balance %s/%s: %w", guildID, userID, err)
	}

	return nil
}

// MakeTransaction applies a signed amount to the account and returns the new
// balance. Fractional amounts are floored before applying. A withdrawal that
// would leave the account negative fails with ErrInsufficientFunds and the
// balance is untouched.
func (s *Service) MakeTransaction(
	ctx context.Context,
	guildID, userID string,
	amount float64,
) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("transact %s/%s: amount %v: %w",
			guildID, userID, amount, friendbot.ErrValidation)
	}
	applied := int64(math.Floor(amount))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("transact %s/%s: %w", guildID, userID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO bank_accounts (guild_id, user_id, balance) VALUES (?, ?, 0)`,
		guildID, userID,
	); err != nil {
		return 0, fmt.Errorf("transact %s/%s: %w", guildID, userID, err)
	}

	var balance int64
	if err := tx.QueryRowContext(
		ctx,
		`SELECT balance FROM bank_accounts WHERE guild_id = ? AND user_id = ?`,
		guildID, userID,
	).Scan(&balance); err != nil {
		return 0, fmt.Errorf("transact %s/%s: %w", guildID, userID, err)
	}

	updated := balance + applied
	if updated < 0 {
		return 0, fmt.Errorf("transact %s/%s by %d: %w",
			guildID, userID, applied, ErrInsufficientFunds)
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE bank_accounts SET balance = ? WHERE guild_id = ? AND user_id = ?`,
		updated, guildID, userID,
	); err != nil {
		return 0, fmt.Errorf("transact %s/%s: %w", guildID, userID, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("transact %s/%s: %w", guildID, userID, err)
	}

	return updated, nil
}

// Transfer moves a whole amount from one account to another atomically.
func (s *Service) Transfer(
	ctx context.Context,
	guildID, fromUserID, toUserID string,
	amount int64,
) error {
	if amount <= 0 {
		return fmt.Errorf("transfer %d in %s: %w", amount, guildID, friendbot.ErrValidation)
	}
	if fromUserID == toUserID {
		return fmt.Errorf("transfer in %s: sender and recipient are the same: %w",
			guildID, friendbot.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("transfer in %s: %w", guildID, err)
	}
	defer tx.Rollback()

	for _, userID := range []string{fromUserID, toUserID} {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT OR IGNORE INTO bank_accounts (guild_id, user_id, balance) VALUES (?, ?, 0)`,
			guildID, userID,
		); err != nil {
			return fmt.Errorf("transfer in %s: %w", guildID, err)
		}
	}

	var fromBalance int64
	if err := tx.QueryRowContext(
		ctx,
		`SELECT balance FROM bank_accounts WHERE guild_id = ? AND user_id = ?`,
		guildID, fromUserID,
	).Scan(&fromBalance); err != nil {
		return fmt.Errorf("transfer in %s: %w", guildID, err)
	}
	if fromBalance < amount {
		return fmt.Errorf("transfer %d from %s/%s: %w",
			amount, guildID, fromUserID, ErrInsufficientFunds)
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE bank_accounts SET balance = balance - ? WHERE guild_id = ? AND user_id = ?`,
		amount, guildID, fromUserID,
	); err != nil {
		return fmt.Errorf("transfer in %s: %w", guildID, err)
	}
	if _, err := tx.ExecContext(
		ctx,
		`UPDATE bank_accounts SET balance = balance + ? WHERE guild_id = ? AND user_id = ?`,
		amount, guildID, toUserID,
	); err != nil {
		return fmt.Errorf("transfer in %s: %w", guildID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transfer in %s: %w", guildID, err)
	}

	return nil
}
