package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"channelpoints/database"
	"channelpoints/domain/entities"

	"github.com/jackc/pgx/v5"
)

// TransactionRepository implements the TransactionRepository interface
type TransactionRepository struct {
	q Queryable
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

func newTransactionRepository(tx Queryable) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

// Record appends a transaction to the ledger
func (r *TransactionRepository) Record(ctx context.Context, tx *entities.Transaction) error {
	var metadataJSON []byte
	if len(tx.Metadata) > 0 {
		var err error
		metadataJSON, err = json.Marshal(tx.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal transaction metadata: %w", err)
		}
	}

	query := `
		INSERT INTO transactions
		(user_id, currency, transaction_type, amount, balance_before, balance_after, description, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		tx.UserID,
		tx.Currency,
		tx.TransactionType,
		tx.Amount,
		tx.BalanceBefore,
		tx.BalanceAfter,
		tx.Description,
		metadataJSON,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record transaction for %s/%s: %w", tx.UserID, tx.Currency, err)
	}
	return nil
}

// ListByAccount returns the newest transactions of an account first
func (r *TransactionRepository) ListByAccount(ctx context.Context, userID string, currency entities.Currency, limit int) ([]*entities.Transaction, error) {
	query := `
		SELECT id, user_id, currency, transaction_type, amount, balance_before, balance_after,
		       description, metadata, created_at
		FROM transactions
		WHERE user_id = $1 AND currency = $2
		ORDER BY id DESC
		LIMIT $3
	`

	rows, err := r.q.Query(ctx, query, userID, currency, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for %s/%s: %w", userID, currency, err)
	}
	defer rows.Close()

	var history []*entities.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return history, nil
}

// Reconcile compares the account with the sum, chain and head of its log
func (r *TransactionRepository) Reconcile(ctx context.Context, userID string, currency entities.Currency) (*entities.LedgerCheck, error) {
	query := `
		SELECT
			COALESCE((SELECT balance FROM accounts WHERE user_id = $1 AND currency = $2), 0),
			COALESCE(SUM(t.amount), 0)::BIGINT,
			COUNT(t.id),
			(SELECT COUNT(*) FROM (
				SELECT balance_before, LAG(balance_after) OVER (ORDER BY id) AS prev_after
				FROM transactions
				WHERE user_id = $1 AND currency = $2
			) chain WHERE chain.prev_after IS NOT NULL AND chain.prev_after <> chain.balance_before),
			(SELECT balance_after FROM transactions WHERE user_id = $1 AND currency = $2 ORDER BY id DESC LIMIT 1)
		FROM transactions t
		WHERE t.user_id = $1 AND t.currency = $2
	`

	check := &entities.LedgerCheck{UserID: userID, Currency: currency}
	var head *int64
	err := r.q.QueryRow(ctx, query, userID, currency).Scan(
		&check.Balance,
		&check.TransactionSum,
		&check.TransactionCount,
		&check.ChainBreaks,
		&head,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile %s/%s: %w", userID, currency, err)
	}

	if head != nil {
		check.HeadMismatch = *head != check.Balance
	} else {
		check.HeadMismatch = check.Balance != 0
	}
	return check, nil
}

func scanTransaction(row pgx.Row) (*entities.Transaction, error) {
	var tx entities.Transaction
	var metadataJSON []byte
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Currency,
		&tx.TransactionType,
		&tx.Amount,
		&tx.BalanceBefore,
		&tx.BalanceAfter,
		&tx.Description,
		&metadataJSON,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &tx.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
		}
	}
	return &tx, nil
}
