package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"channelpoints/domain/entities"

	"golang.org/x/oauth2"
)

// ClientConfig describes one platform's OAuth application
type ClientConfig struct {
	Platform     entities.Platform
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserURL      string
	Scopes       []string
	RedirectURL  string
	Timeout      time.Duration
}

// Client performs the authorization code flow against one platform
type Client struct {
	platform   entities.Platform
	oauth      *oauth2.Config
	userURL    string
	clientID   string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a platform OAuth client
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		platform: cfg.Platform,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			RedirectURL: cfg.RedirectURL,
			Scopes:      cfg.Scopes,
		},
		userURL:    cfg.UserURL,
		clientID:   cfg.ClientID,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

// Platform returns the platform this client talks to
func (c *Client) Platform() entities.Platform {
	return c.platform
}

// AuthorizeURL returns the provider consent page URL carrying state
func (c *Client) AuthorizeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token pair
func (c *Client) Exchange(ctx context.Context, code string) (*entities.PlatformToken, error) {
	var token *oauth2.Token
	err := withRetry(ctx, c.timeout, "exchange", func(ctx context.Context) error {
		var err error
		token, err = c.oauth.Exchange(c.withHTTPClient(ctx), code)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to exchange %s authorization code: %w", c.platform, err)
	}
	return toPlatformToken(token), nil
}

// Refresh obtains a new access token using refreshToken
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*entities.PlatformToken, error) {
	var token *oauth2.Token
	err := withRetry(ctx, c.timeout, "refresh", func(ctx context.Context) error {
		var err error
		source := c.oauth.TokenSource(c.withHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
		token, err = source.Token()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to refresh %s token: %w", c.platform, err)
	}
	return toPlatformToken(token), nil
}

// FetchIdentity returns the external account the access token belongs to
func (c *Client) FetchIdentity(ctx context.Context, accessToken string) (*entities.PlatformIdentity, error) {
	var identity *entities.PlatformIdentity
	err := withRetry(ctx, c.timeout, "identity", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Client-Id", c.clientID)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		}

		identity, err = decodeIdentity(body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s identity: %w", c.platform, err)
	}
	return identity, nil
}

func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func toPlatformToken(token *oauth2.Token) *entities.PlatformToken {
	result := &entities.PlatformToken{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry.UTC()
		result.ExpiresAt = &expiry
	}
	return result
}

// flexString decodes JSON strings and numbers alike
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type identityRecord struct {
	ID       flexString `json:"id"`
	UserID   flexString `json:"user_id"`
	Login    string     `json:"login"`
	Name     string     `json:"name"`
	Username string     `json:"username"`
}

// decodeIdentity accepts {"data": [{...}]}, {"data": {...}} and flat user objects
func decodeIdentity(body []byte) (*entities.PlatformIdentity, error) {
	var wrapped struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode identity: %w", err)
	}

	var record identityRecord
	payload := body
	if len(wrapped.Data) > 0 && string(wrapped.Data) != "null" {
		payload = wrapped.Data
	}

	switch {
	case strings.HasPrefix(strings.TrimSpace(string(payload)), "["):
		var records []identityRecord
		if err := json.Unmarshal(payload, &records); err != nil {
			return nil, fmt.Errorf("failed to decode identity: %w", err)
		}
		if len(records) == 0 {
			return nil, fmt.Errorf("identity response contains no user")
		}
		record = records[0]
	default:
		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, fmt.Errorf("failed to decode identity: %w", err)
		}
	}

	identity := &entities.PlatformIdentity{
		ID:       firstNonEmpty(string(record.ID), string(record.UserID)),
		Username: firstNonEmpty(record.Login, record.Username, record.Name),
	}
	if identity.ID == "" {
		return nil, fmt.Errorf("identity response has no user id")
	}
	if identity.Username == "" {
		identity.Username = identity.ID
	}
	return identity, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
