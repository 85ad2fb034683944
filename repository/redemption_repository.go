package repository

import (
	"context"
	"errors"
	"fmt"

	"channelpoints/database"
	"channelpoints/domain/entities"

	"github.com/jackc/pgx/v5"
)

// RedemptionRepository implements the RedemptionRepository interface
type RedemptionRepository struct {
	q Queryable
}

// NewRedemptionRepository creates a new redemption repository
func NewRedemptionRepository(db *database.DB) *RedemptionRepository {
	return &RedemptionRepository{q: db.Pool}
}

func newRedemptionRepository(tx Queryable) *RedemptionRepository {
	return &RedemptionRepository{q: tx}
}

const redemptionColumns = `
	id, user_id, item_id, currency, points_spent, quantity, status, transaction_id, notes, created_at, updated_at
`

// Create inserts a redemption
func (r *RedemptionRepository) Create(ctx context.Context, redemption *entities.Redemption) error {
	query := `
		INSERT INTO redemptions (user_id, item_id, currency, points_spent, quantity, status, transaction_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		redemption.UserID,
		redemption.ItemID,
		redemption.Currency,
		redemption.PointsSpent,
		redemption.Quantity,
		redemption.Status,
		redemption.TransactionID,
		redemption.Notes,
	).Scan(&redemption.ID, &redemption.CreatedAt, &redemption.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create redemption for user %s: %w", redemption.UserID, err)
	}
	return nil
}

// GetByID retrieves a redemption
func (r *RedemptionRepository) GetByID(ctx context.Context, id int64) (*entities.Redemption, error) {
	query := `SELECT ` + redemptionColumns + ` FROM redemptions WHERE id = $1`

	redemption, err := scanRedemption(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get redemption %d: %w", id, err)
	}
	return redemption, nil
}

// ListByUser returns the user's redemptions, newest first
func (r *RedemptionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entities.Redemption, error) {
	query := `SELECT ` + redemptionColumns + ` FROM redemptions WHERE user_id = $1 ORDER BY id DESC LIMIT $2`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list redemptions for user %s: %w", userID, err)
	}
	defer rows.Close()

	var redemptions []*entities.Redemption
	for rows.Next() {
		redemption, err := scanRedemption(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan redemption: %w", err)
		}
		redemptions = append(redemptions, redemption)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating redemptions: %w", err)
	}
	return redemptions, nil
}

// SumActiveQuantity counts units the user holds outside cancelled and refunded redemptions
func (r *RedemptionRepository) SumActiveQuantity(ctx context.Context, userID string, itemID int64) (int64, error) {
	query := `
		SELECT COALESCE(SUM(quantity), 0)::BIGINT
		FROM redemptions
		WHERE user_id = $1 AND item_id = $2 AND status NOT IN ('cancelled', 'refunded')
	`

	var total int64
	if err := r.q.QueryRow(ctx, query, userID, itemID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum redemptions of item %d for user %s: %w", itemID, userID, err)
	}
	return total, nil
}

// UpdateStatus moves a redemption from one status to another
func (r *RedemptionRepository) UpdateStatus(ctx context.Context, id int64, from, to entities.RedemptionStatus, notes string) (bool, error) {
	query := `
		UPDATE redemptions
		SET status = $3,
		    notes = CASE WHEN $4 = '' THEN notes ELSE $4 END,
		    updated_at = NOW()
		WHERE id = $1 AND status = $2
	`
	result, err := r.q.Exec(ctx, query, id, from, to, notes)
	if err != nil {
		return false, fmt.Errorf("failed to update status of redemption %d: %w", id, err)
	}
	return result.RowsAffected() == 1, nil
}

func scanRedemption(row pgx.Row) (*entities.Redemption, error) {
	var redemption entities.Redemption
	err := row.Scan(
		&redemption.ID,
		&redemption.UserID,
		&redemption.ItemID,
		&redemption.Currency,
		&redemption.PointsSpent,
		&redemption.Quantity,
		&redemption.Status,
		&redemption.TransactionID,
		&redemption.Notes,
		&redemption.CreatedAt,
		&redemption.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &redemption, nil
}
