package services

import (
	"context"
	"fmt"

	"channelpoints/domain/entities"
	"channelpoints/domain/events"
	"channelpoints/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

const unlinkDescription = "connection removed"

type connectionService struct {
	connRepo    interfaces.ConnectionRepository
	accountRepo interfaces.AccountRepository
	ledger      interfaces.LedgerService
	publisher   interfaces.EventPublisher
}

// NewConnectionService creates a new connection service
func NewConnectionService(
	connRepo interfaces.ConnectionRepository,
	accountRepo interfaces.AccountRepository,
	ledger interfaces.LedgerService,
	publisher interfaces.EventPublisher,
) interfaces.ConnectionService {
	return &connectionService{
		connRepo:    connRepo,
		accountRepo: accountRepo,
		ledger:      ledger,
		publisher:   publisher,
	}
}

// Link stores the verified identity and seeds the platform account at zero.
// Re-linking overwrites identity and tokens but leaves the balance alone.
func (s *connectionService) Link(
	ctx context.Context,
	userID string,
	platform entities.Platform,
	identity *entities.PlatformIdentity,
	token *entities.PlatformToken,
) (*entities.PlatformConnection, bool, error) {
	if userID == "" {
		return nil, false, entities.NewValidationError("user_id", "user id is required")
	}
	if !platform.IsValid() {
		return nil, false, entities.ErrUnknownPlatform
	}
	if identity == nil || identity.ID == "" {
		return nil, false, entities.NewValidationError("platform_user_id", "platform identity is required")
	}

	conn := &entities.PlatformConnection{
		UserID:           userID,
		Platform:         platform,
		PlatformUserID:   identity.ID,
		PlatformUsername: identity.Username,
	}
	if token != nil {
		conn.AccessToken = token.AccessToken
		conn.RefreshToken = token.RefreshToken
		conn.TokenExpiresAt = token.ExpiresAt
	}

	created, err := s.connRepo.Upsert(ctx, conn)
	if err != nil {
		return nil, false, fmt.Errorf("failed to store connection: %w", err)
	}

	// Ensure is a no-op on re-link, so no seed transaction is ever replayed
	if _, err := s.accountRepo.Ensure(ctx, userID, platform.Currency()); err != nil {
		return nil, false, fmt.Errorf("failed to seed %s account: %w", platform.Currency(), err)
	}

	log.WithFields(log.Fields{
		"user_id":           userID,
		"platform":          platform,
		"platform_user_id":  identity.ID,
		"platform_username": identity.Username,
		"relinked":          !created,
	}).Info("Platform account linked")

	if err := s.publisher.Publish(events.PlatformLinkedEvent{
		UserID:           userID,
		Platform:         platform,
		PlatformUserID:   identity.ID,
		PlatformUsername: identity.Username,
		Relinked:         !created,
	}); err != nil {
		log.WithError(err).Warn("Failed to queue platform linked event")
	}

	return conn, !created, nil
}

// Unlink removes the connection and brings the platform balance to zero
func (s *connectionService) Unlink(ctx context.Context, userID string, platform entities.Platform) (*entities.Transaction, error) {
	if !platform.IsValid() {
		return nil, entities.ErrUnknownPlatform
	}

	deleted, err := s.connRepo.Delete(ctx, userID, platform)
	if err != nil {
		return nil, fmt.Errorf("failed to delete connection: %w", err)
	}
	if !deleted {
		return nil, fmt.Errorf("no %s connection for user %s: %w", platform, userID, entities.ErrConnectionNotFound)
	}

	tx, err := s.ledger.SetBalance(ctx, interfaces.LedgerEntry{
		UserID:      userID,
		Currency:    platform.Currency(),
		Type:        entities.TransactionTypeAdminAdjustment,
		Description: unlinkDescription,
		Metadata:    map[string]any{"platform": string(platform)},
	}, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to clear %s balance: %w", platform.Currency(), err)
	}

	var forfeited int64
	if tx != nil {
		forfeited = -tx.Amount
	}

	log.WithFields(log.Fields{
		"user_id":          userID,
		"platform":         platform,
		"forfeited_points": forfeited,
	}).Info("Platform account unlinked")

	if err := s.publisher.Publish(events.PlatformUnlinkedEvent{
		UserID:          userID,
		Platform:        platform,
		ForfeitedPoints: forfeited,
	}); err != nil {
		log.WithError(err).Warn("Failed to queue platform unlinked event")
	}

	return tx, nil
}

// Resolve matches ref against the external account id, then the username
func (s *connectionService) Resolve(ctx context.Context, platform entities.Platform, ref string) (*entities.PlatformConnection, error) {
	if ref == "" {
		return nil, nil
	}

	conn, err := s.connRepo.FindByPlatformUserID(ctx, platform, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to find connection by platform user id: %w", err)
	}
	if conn != nil {
		return conn, nil
	}

	return s.ResolveByUsername(ctx, platform, ref)
}

// ResolveByUsername matches the external username case-insensitively
func (s *connectionService) ResolveByUsername(ctx context.Context, platform entities.Platform, username string) (*entities.PlatformConnection, error) {
	if username == "" {
		return nil, nil
	}

	conn, err := s.connRepo.FindByUsername(ctx, platform, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find connection by username: %w", err)
	}
	return conn, nil
}
