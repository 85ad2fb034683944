package repository

import (
	"context"
	"errors"
	"fmt"

	"channelpoints/database"
	"channelpoints/domain/entities"

	"github.com/jackc/pgx/v5"
)

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q Queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

func newAccountRepository(tx Queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

const accountColumns = `user_id, currency, balance, version, created_at, updated_at`

// Get retrieves an account, or nil if it does not exist
func (r *AccountRepository) Get(ctx context.Context, userID string, currency entities.Currency) (*entities.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 AND currency = $2`

	account, err := scanAccount(r.q.QueryRow(ctx, query, userID, currency))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s/%s: %w", userID, currency, err)
	}
	return account, nil
}

// Ensure creates the account at zero if missing and returns it
func (r *AccountRepository) Ensure(ctx context.Context, userID string, currency entities.Currency) (*entities.Account, error) {
	query := `
		INSERT INTO accounts (user_id, currency)
		VALUES ($1, $2)
		ON CONFLICT (user_id, currency) DO NOTHING
	`
	if _, err := r.q.Exec(ctx, query, userID, currency); err != nil {
		return nil, fmt.Errorf("failed to create account %s/%s: %w", userID, currency, err)
	}

	account, err := r.Get(ctx, userID, currency)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("account %s/%s vanished after insert: %w", userID, currency, entities.ErrAccountNotFound)
	}
	return account, nil
}

// ApplyDelta adds delta in a single conditional update that refuses to go below zero
func (r *AccountRepository) ApplyDelta(ctx context.Context, userID string, currency entities.Currency, delta int64) (*entities.BalanceMutation, error) {
	query := `
		UPDATE accounts
		SET balance = balance + $3, version = version + 1, updated_at = NOW()
		WHERE user_id = $1 AND currency = $2 AND balance + $3 >= 0
		RETURNING balance - $3, balance, version
	`

	var m entities.BalanceMutation
	err := r.q.QueryRow(ctx, query, userID, currency, delta).Scan(&m.Before, &m.After, &m.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to apply delta %d to account %s/%s: %w", delta, userID, currency, err)
	}
	return &m, nil
}

// CompareAndSet writes newBalance if the row is still at expectedVersion.
// A version identifies exactly one balance, so the pre-image read is consistent.
func (r *AccountRepository) CompareAndSet(ctx context.Context, userID string, currency entities.Currency, expectedVersion, newBalance int64) (*entities.BalanceMutation, error) {
	query := `
		UPDATE accounts a
		SET balance = $4, version = a.version + 1, updated_at = NOW()
		FROM (SELECT balance FROM accounts WHERE user_id = $1 AND currency = $2) prev
		WHERE a.user_id = $1 AND a.currency = $2 AND a.version = $3
		RETURNING prev.balance, a.balance, a.version
	`

	var m entities.BalanceMutation
	err := r.q.QueryRow(ctx, query, userID, currency, expectedVersion, newBalance).Scan(&m.Before, &m.After, &m.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set balance of account %s/%s: %w", userID, currency, err)
	}
	return &m, nil
}

// ListByUser returns every account of the user
func (r *AccountRepository) ListByUser(ctx context.Context, userID string) ([]*entities.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 ORDER BY currency`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts for user %s: %w", userID, err)
	}
	defer rows.Close()

	var accounts []*entities.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

func scanAccount(row pgx.Row) (*entities.Account, error) {
	var account entities.Account
	err := row.Scan(
		&account.UserID,
		&account.Currency,
		&account.Balance,
		&account.Version,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}
