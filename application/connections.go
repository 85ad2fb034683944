package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"channelpoints/domain/entities"
	"channelpoints/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// tokenRefreshSkew refreshes tokens slightly before the provider would reject them
const tokenRefreshSkew = time.Minute

// CallbackParams are the query parameters of the provider redirect
type CallbackParams struct {
	Code  string
	State string
	Error string
}

// LinkConfig holds the return address policy of the linking flow
type LinkConfig struct {
	DefaultReturnURL   string
	AllowedReturnHosts []string
}

type connectionManager struct {
	uowFactory UnitOfWorkFactory
	clients    map[entities.Platform]PlatformOAuthClient
	state      StateCodec
	cfg        LinkConfig
	metrics    *observability.MetricsProvider
	now        func() time.Time
}

// NewConnectionManager creates the linking use cases. Platforms without a client are disabled.
func NewConnectionManager(
	uowFactory UnitOfWorkFactory,
	clients map[entities.Platform]PlatformOAuthClient,
	state StateCodec,
	cfg LinkConfig,
	metrics *observability.MetricsProvider,
) ConnectionManager {
	return &connectionManager{
		uowFactory: uowFactory,
		clients:    clients,
		state:      state,
		cfg:        cfg,
		metrics:    metrics,
		now:        time.Now,
	}
}

// BeginLink validates the return address and returns the provider authorization URL
func (m *connectionManager) BeginLink(ctx context.Context, userID string, platform entities.Platform, returnURL string) (string, error) {
	if userID == "" {
		return "", entities.NewValidationError("user_id", "user id is required")
	}
	if !platform.IsValid() {
		return "", entities.ErrUnknownPlatform
	}
	client, ok := m.clients[platform]
	if !ok {
		return "", entities.NewLinkError(platform, entities.LinkErrorPlatformDisabled, nil)
	}

	if returnURL == "" {
		returnURL = m.cfg.DefaultReturnURL
	}
	if err := m.validateReturnURL(returnURL); err != nil {
		return "", err
	}

	state, err := m.state.Sign(entities.LinkState{
		UserID:    userID,
		ReturnURL: returnURL,
		Platform:  platform,
	})
	if err != nil {
		return "", err
	}

	return client.AuthorizeURL(state), nil
}

// CompleteLink exchanges the code, fetches the identity and stores the connection.
// Provider calls happen before the transaction opens so no row lock waits on the network.
func (m *connectionManager) CompleteLink(ctx context.Context, platform entities.Platform, params CallbackParams) (string, error) {
	returnURL := m.cfg.DefaultReturnURL

	fail := func(code entities.LinkErrorCode, err error) (string, error) {
		linkErr := entities.NewLinkError(platform, code, err)
		m.metrics.RecordOAuthExchange(string(platform), observability.OAuthOutcomeFailed)
		log.WithFields(log.Fields{
			"platform": platform,
			"code":     code,
			"error":    err,
		}).Warn("Platform link failed")
		return withQuery(returnURL, map[string]string{string(platform) + "_error": string(code)}), linkErr
	}

	client, ok := m.clients[platform]
	if !ok {
		return fail(entities.LinkErrorPlatformDisabled, nil)
	}

	state, err := m.state.Parse(params.State, platform)
	if err != nil {
		return fail(entities.LinkErrorInvalidState, err)
	}
	returnURL = state.ReturnURL

	if params.Error != "" {
		return fail(entities.LinkErrorAccessDenied, fmt.Errorf("provider returned %q", params.Error))
	}
	if params.Code == "" {
		return fail(entities.LinkErrorMissingCode, nil)
	}

	token, err := client.Exchange(ctx, params.Code)
	if err != nil {
		return fail(entities.LinkErrorTokenExchangeFailed, err)
	}

	identity, err := client.FetchIdentity(ctx, token.AccessToken)
	if err != nil {
		return fail(entities.LinkErrorIdentityFetchFailed, err)
	}

	var relinked bool
	err = inTransaction(ctx, m.uowFactory, func(uow UnitOfWork) error {
		var err error
		_, relinked, err = newConnections(uow, newLedger(uow, m.metrics)).Link(ctx, state.UserID, platform, identity, token)
		return err
	})
	if errors.Is(err, entities.ErrAlreadyLinked) {
		return fail(entities.LinkErrorAlreadyLinked, err)
	}
	if err != nil {
		return fail(entities.LinkErrorPersistenceFailed, err)
	}

	outcome := observability.OAuthOutcomeLinked
	if relinked {
		outcome = observability.OAuthOutcomeRelinked
	}
	m.metrics.RecordOAuthExchange(string(platform), outcome)

	log.WithFields(log.Fields{
		"userID":         state.UserID,
		"platform":       platform,
		"platformUserID": identity.ID,
		"relinked":       relinked,
	}).Info("Linked platform account")

	return withQuery(returnURL, map[string]string{
		string(platform) + "_username": identity.Username,
		string(platform) + "_success":  "true",
	}), nil
}

// Unlink removes the connection and forfeits the platform balance
func (m *connectionManager) Unlink(ctx context.Context, userID string, platform entities.Platform) (*entities.Transaction, error) {
	var tx *entities.Transaction
	err := inTransaction(ctx, m.uowFactory, func(uow UnitOfWork) error {
		var err error
		tx, err = newConnections(uow, newLedger(uow, m.metrics)).Unlink(ctx, userID, platform)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"userID":   userID,
		"platform": platform,
	}).Info("Unlinked platform account")
	return tx, nil
}

// Connections returns the user's linked accounts
func (m *connectionManager) Connections(ctx context.Context, userID string) ([]*entities.PlatformConnection, error) {
	var conns []*entities.PlatformConnection
	err := inTransaction(ctx, m.uowFactory, func(uow UnitOfWork) error {
		var err error
		conns, err = uow.ConnectionRepository().ListByUser(ctx, userID)
		return err
	})
	return conns, err
}

// Resolve finds the connection for an external id or username
func (m *connectionManager) Resolve(ctx context.Context, platform entities.Platform, ref string) (*entities.PlatformConnection, error) {
	var conn *entities.PlatformConnection
	err := inTransaction(ctx, m.uowFactory, func(uow UnitOfWork) error {
		var err error
		conn, err = newConnections(uow, newLedger(uow, m.metrics)).Resolve(ctx, platform, ref)
		return err
	})
	return conn, err
}

// ValidToken returns the stored access token, refreshing it first when it has expired
func (m *connectionManager) ValidToken(ctx context.Context, userID string, platform entities.Platform) (string, error) {
	var conn *entities.PlatformConnection
	err := inTransaction(ctx, m.uowFactory, func(uow UnitOfWork) error {
		var err error
		conn, err = uow.ConnectionRepository().Get(ctx, userID, platform)
		return err
	})
	if err != nil {
		return "", err
	}
	if conn == nil {
		return "", entities.ErrConnectionNotFound
	}
	if !conn.TokenExpired(m.now(), tokenRefreshSkew) {
		return conn.AccessToken, nil
	}

	client, ok := m.clients[platform]
	if !ok {
		return "", entities.NewLinkError(platform, entities.LinkErrorPlatformDisabled, nil)
	}
	if !conn.CanRefresh() {
		return "", entities.NewLinkError(platform, entities.LinkErrorTokenExchangeFailed, errors.New("token expired and no refresh token is stored"))
	}

	token, err := client.Refresh(ctx, conn.RefreshToken)
	if err != nil {
		return "", entities.NewLinkError(platform, entities.LinkErrorTokenExchangeFailed, err)
	}

	err = inTransaction(ctx, m.uowFactory, func(uow UnitOfWork) error {
		return uow.ConnectionRepository().UpdateTokens(ctx, userID, platform, token)
	})
	if err != nil {
		return "", fmt.Errorf("failed to store refreshed token: %w", err)
	}

	log.WithFields(log.Fields{
		"userID":   userID,
		"platform": platform,
	}).Debug("Refreshed platform access token")
	return token.AccessToken, nil
}

// validateReturnURL accepts absolute http(s) URLs on an allowed host
func (m *connectionManager) validateReturnURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return entities.NewValidationError("return_url", "return_url must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return entities.NewValidationError("return_url", "return_url must use http or https")
	}
	if len(m.cfg.AllowedReturnHosts) > 0 && !slices.ContainsFunc(m.cfg.AllowedReturnHosts, func(host string) bool {
		return strings.EqualFold(host, u.Hostname()) || strings.EqualFold(host, u.Host)
	}) {
		return entities.NewValidationError("return_url", "return_url host is not allowed")
	}
	return nil
}

// withQuery appends params to base, keeping its existing query
func withQuery(base string, params map[string]string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
