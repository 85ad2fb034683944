package oauth

import (
	"errors"
	"fmt"
	"time"

	"channelpoints/domain/entities"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidState is returned for state tokens that are forged, expired or issued for another platform
var ErrInvalidState = errors.New("invalid oauth state")

type stateClaims struct {
	UserID    string `json:"uid"`
	ReturnURL string `json:"ret"`
	Platform  string `json:"plt"`
	jwt.RegisteredClaims
}

// StateSigner issues and verifies the HS256 tokens carried in the OAuth state parameter
type StateSigner struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewStateSigner creates a signer. Tokens expire after ttl.
func NewStateSigner(key string, ttl time.Duration) *StateSigner {
	return &StateSigner{
		key: []byte(key),
		ttl: ttl,
		now: time.Now,
	}
}

// Sign encodes state into a signed token
func (s *StateSigner) Sign(state entities.LinkState) (string, error) {
	now := s.now()
	claims := stateClaims{
		UserID:    state.UserID,
		ReturnURL: state.ReturnURL,
		Platform:  string(state.Platform),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign oauth state: %w", err)
	}
	return token, nil
}

// Parse verifies token and returns its state. The token must have been issued for platform.
func (s *StateSigner) Parse(token string, platform entities.Platform) (*entities.LinkState, error) {
	claims := &stateClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if claims.Platform != string(platform) {
		return nil, fmt.Errorf("%w: issued for %q", ErrInvalidState, claims.Platform)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user", ErrInvalidState)
	}

	return &entities.LinkState{
		UserID:    claims.UserID,
		ReturnURL: claims.ReturnURL,
		Platform:  platform,
	}, nil
}
