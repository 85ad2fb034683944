package entities

import (
	"time"
)

// PlatformConnection is a user's linked identity on an external platform
type PlatformConnection struct {
	UserID           string     `db:"user_id"`
	Platform         Platform   `db:"platform"`
	PlatformUserID   string     `db:"platform_user_id"`
	PlatformUsername string     `db:"platform_username"`
	AccessToken      string     `db:"access_token"`
	RefreshToken     string     `db:"refresh_token"`
	TokenExpiresAt   *time.Time `db:"token_expires_at"`
	LastSyncedAt     *time.Time `db:"last_synced_at"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

// TokenExpired returns true if the access token is expired at now, allowing for skew
func (c *PlatformConnection) TokenExpired(now time.Time, skew time.Duration) bool {
	if c.TokenExpiresAt == nil {
		return false
	}
	return !now.Add(skew).Before(*c.TokenExpiresAt)
}

// CanRefresh returns true if a refresh token is stored
func (c *PlatformConnection) CanRefresh() bool {
	return c.RefreshToken != ""
}

// PlatformIdentity is the external account returned by a platform's user endpoint
type PlatformIdentity struct {
	ID       string
	Username string
}

// PlatformToken is an OAuth token pair issued by a platform
type PlatformToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

// LinkState is the correlation data carried through the OAuth redirect
type LinkState struct {
	UserID    string
	ReturnURL string
	Platform  Platform
}
