package repository

import (
	"context"
	"errors"
	"fmt"

	"channelpoints/database"
	"channelpoints/domain/entities"

	"github.com/jackc/pgx/v5"
)

// StoreItemRepository implements the StoreItemRepository interface
type StoreItemRepository struct {
	q Queryable
}

// NewStoreItemRepository creates a new store item repository
func NewStoreItemRepository(db *database.DB) *StoreItemRepository {
	return &StoreItemRepository{q: db.Pool}
}

func newStoreItemRepository(tx Queryable) *StoreItemRepository {
	return &StoreItemRepository{q: tx}
}

const storeItemColumns = `
	id, name, description, accepted_currencies, cost_site, cost_kick, cost_twitch,
	stock_quantity, max_per_user, is_active, available_from, available_until, created_at, updated_at
`

// Create inserts a new store item
func (r *StoreItemRepository) Create(ctx context.Context, item *entities.StoreItem) error {
	query := `
		INSERT INTO store_items
		(name, description, accepted_currencies, cost_site, cost_kick, cost_twitch,
		 stock_quantity, max_per_user, is_active, available_from, available_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		item.Name,
		item.Description,
		currencyStrings(item.AcceptedCurrencies),
		item.CostSite,
		item.CostKick,
		item.CostTwitch,
		item.StockQuantity,
		item.MaxPerUser,
		item.IsActive,
		item.AvailableFrom,
		item.AvailableUntil,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create store item %q: %w", item.Name, err)
	}
	return nil
}

// GetByID retrieves a store item
func (r *StoreItemRepository) GetByID(ctx context.Context, id int64) (*entities.StoreItem, error) {
	query := `SELECT ` + storeItemColumns + ` FROM store_items WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIDForUpdate retrieves a store item and locks its row until the transaction ends
func (r *StoreItemRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.StoreItem, error) {
	query := `SELECT ` + storeItemColumns + ` FROM store_items WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

// List returns store items ordered by id
func (r *StoreItemRepository) List(ctx context.Context, activeOnly bool) ([]*entities.StoreItem, error) {
	query := `SELECT ` + storeItemColumns + ` FROM store_items WHERE ($1 = FALSE OR is_active) ORDER BY id`

	rows, err := r.q.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list store items: %w", err)
	}
	defer rows.Close()

	var items []*entities.StoreItem
	for rows.Next() {
		item, err := scanStoreItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan store item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating store items: %w", err)
	}
	return items, nil
}

// DecrementStock takes quantity units if they remain. Untracked stock always succeeds.
func (r *StoreItemRepository) DecrementStock(ctx context.Context, id int64, quantity int64) (bool, error) {
	query := `
		UPDATE store_items
		SET stock_quantity = CASE WHEN stock_quantity IS NULL THEN NULL ELSE stock_quantity - $2 END,
		    updated_at = NOW()
		WHERE id = $1 AND (stock_quantity IS NULL OR stock_quantity >= $2)
	`
	result, err := r.q.Exec(ctx, query, id, quantity)
	if err != nil {
		return false, fmt.Errorf("failed to decrement stock of item %d: %w", id, err)
	}
	return result.RowsAffected() == 1, nil
}

// RestoreStock returns units to a tracked stock
func (r *StoreItemRepository) RestoreStock(ctx context.Context, id int64, quantity int64) error {
	query := `
		UPDATE store_items
		SET stock_quantity = stock_quantity + $2, updated_at = NOW()
		WHERE id = $1 AND stock_quantity IS NOT NULL
	`
	if _, err := r.q.Exec(ctx, query, id, quantity); err != nil {
		return fmt.Errorf("failed to restore stock of item %d: %w", id, err)
	}
	return nil
}

func (r *StoreItemRepository) getOne(ctx context.Context, query string, args ...any) (*entities.StoreItem, error) {
	item, err := scanStoreItem(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get store item: %w", err)
	}
	return item, nil
}

func scanStoreItem(row pgx.Row) (*entities.StoreItem, error) {
	var item entities.StoreItem
	var accepted []string
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&accepted,
		&item.CostSite,
		&item.CostKick,
		&item.CostTwitch,
		&item.StockQuantity,
		&item.MaxPerUser,
		&item.IsActive,
		&item.AvailableFrom,
		&item.AvailableUntil,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.AcceptedCurrencies = make([]entities.Currency, 0, len(accepted))
	for _, c := range accepted {
		item.AcceptedCurrencies = append(item.AcceptedCurrencies, entities.Currency(c))
	}
	return &item, nil
}

func currencyStrings(currencies []entities.Currency) []string {
	out := make([]string, 0, len(currencies))
	for _, c := range currencies {
		out = append(out, string(c))
	}
	return out
}
