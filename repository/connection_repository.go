package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"channelpoints/database"
	"channelpoints/domain/entities"

	"github.com/jackc/pgx/v5"
)

const externalAccountConstraint = "platform_connections_external_unique"

// ConnectionRepository implements the ConnectionRepository interface
type ConnectionRepository struct {
	q Queryable
}

// NewConnectionRepository creates a new connection repository
func NewConnectionRepository(db *database.DB) *ConnectionRepository {
	return &ConnectionRepository{q: db.Pool}
}

func newConnectionRepository(tx Queryable) *ConnectionRepository {
	return &ConnectionRepository{q: tx}
}

const connectionColumns = `
	user_id, platform, platform_user_id, platform_username, access_token, refresh_token,
	token_expires_at, last_synced_at, created_at, updated_at
`

// Upsert inserts the connection or overwrites identity and tokens of an existing one
func (r *ConnectionRepository) Upsert(ctx context.Context, conn *entities.PlatformConnection) (bool, error) {
	query := `
		INSERT INTO platform_connections
		(user_id, platform, platform_user_id, platform_username, access_token, refresh_token, token_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, platform) DO UPDATE SET
			platform_user_id = EXCLUDED.platform_user_id,
			platform_username = EXCLUDED.platform_username,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			updated_at = NOW()
		RETURNING last_synced_at, created_at, updated_at, (xmax = 0) AS inserted
	`

	var inserted bool
	err := r.q.QueryRow(ctx, query,
		conn.UserID,
		conn.Platform,
		conn.PlatformUserID,
		conn.PlatformUsername,
		conn.AccessToken,
		conn.RefreshToken,
		conn.TokenExpiresAt,
	).Scan(&conn.LastSyncedAt, &conn.CreatedAt, &conn.UpdatedAt, &inserted)
	if isUniqueViolation(err, externalAccountConstraint) {
		return false, fmt.Errorf("%s account %s: %w", conn.Platform, conn.PlatformUserID, entities.ErrAlreadyLinked)
	}
	if err != nil {
		return false, fmt.Errorf("failed to upsert %s connection for user %s: %w", conn.Platform, conn.UserID, err)
	}
	return inserted, nil
}

// Get retrieves the user's connection for a platform
func (r *ConnectionRepository) Get(ctx context.Context, userID string, platform entities.Platform) (*entities.PlatformConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM platform_connections WHERE user_id = $1 AND platform = $2`
	return r.getOne(ctx, query, userID, platform)
}

// ListByUser returns all connections of a user
func (r *ConnectionRepository) ListByUser(ctx context.Context, userID string) ([]*entities.PlatformConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM platform_connections WHERE user_id = $1 ORDER BY platform`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections for user %s: %w", userID, err)
	}
	defer rows.Close()

	var conns []*entities.PlatformConnection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		conns = append(conns, conn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating connections: %w", err)
	}
	return conns, nil
}

// Delete removes the connection
func (r *ConnectionRepository) Delete(ctx context.Context, userID string, platform entities.Platform) (bool, error) {
	result, err := r.q.Exec(ctx, `DELETE FROM platform_connections WHERE user_id = $1 AND platform = $2`, userID, platform)
	if err != nil {
		return false, fmt.Errorf("failed to delete %s connection for user %s: %w", platform, userID, err)
	}
	return result.RowsAffected() > 0, nil
}

// FindByPlatformUserID retrieves the connection that owns an external account id
func (r *ConnectionRepository) FindByPlatformUserID(ctx context.Context, platform entities.Platform, platformUserID string) (*entities.PlatformConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM platform_connections WHERE platform = $1 AND platform_user_id = $2`
	return r.getOne(ctx, query, platform, platformUserID)
}

// FindByUsername retrieves a connection by external username, ignoring case
func (r *ConnectionRepository) FindByUsername(ctx context.Context, platform entities.Platform, username string) (*entities.PlatformConnection, error) {
	query := `
		SELECT ` + connectionColumns + `
		FROM platform_connections
		WHERE platform = $1 AND lower(platform_username) = lower($2)
		ORDER BY updated_at DESC
		LIMIT 1
	`
	return r.getOne(ctx, query, platform, username)
}

// UpdateTokens stores a refreshed token pair
func (r *ConnectionRepository) UpdateTokens(ctx context.Context, userID string, platform entities.Platform, token *entities.PlatformToken) error {
	query := `
		UPDATE platform_connections
		SET access_token = $3,
		    refresh_token = CASE WHEN $4 = '' THEN refresh_token ELSE $4 END,
		    token_expires_at = $5,
		    updated_at = NOW()
		WHERE user_id = $1 AND platform = $2
	`
	result, err := r.q.Exec(ctx, query, userID, platform, token.AccessToken, token.RefreshToken, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to update %s tokens for user %s: %w", platform, userID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%s connection for user %s: %w", platform, userID, entities.ErrConnectionNotFound)
	}
	return nil
}

// TouchSynced records the time of the latest webhook sync
func (r *ConnectionRepository) TouchSynced(ctx context.Context, userID string, platform entities.Platform, at time.Time) error {
	query := `UPDATE platform_connections SET last_synced_at = $3 WHERE user_id = $1 AND platform = $2`
	if _, err := r.q.Exec(ctx, query, userID, platform, at); err != nil {
		return fmt.Errorf("failed to touch %s connection for user %s: %w", platform, userID, err)
	}
	return nil
}

func (r *ConnectionRepository) getOne(ctx context.Context, query string, args ...any) (*entities.PlatformConnection, error) {
	conn, err := scanConnection(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	return conn, nil
}

func scanConnection(row pgx.Row) (*entities.PlatformConnection, error) {
	var conn entities.PlatformConnection
	err := row.Scan(
		&conn.UserID,
		&conn.Platform,
		&conn.PlatformUserID,
		&conn.PlatformUsername,
		&conn.AccessToken,
		&conn.RefreshToken,
		&conn.TokenExpiresAt,
		&conn.LastSyncedAt,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &conn, nil
}
