package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"channelpoints/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	server        *httptest.Server
	tokenCalls    atomic.Int32
	identityCalls atomic.Int32
	tokenStatus   []int
	identityBody  string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	p := &fakeProvider{identityBody: `{"data":[{"id":"4242","login":"streamfan"}]}`}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		call := int(p.tokenCalls.Add(1))
		if call <= len(p.tokenStatus) && p.tokenStatus[call-1] != http.StatusOK {
			w.WriteHeader(p.tokenStatus[call-1])
			return
		}
		require.NoError(t, r.ParseForm())

		w.Header().Set("Content-Type", "application/json")
		switch r.Form.Get("grant_type") {
		case "authorization_code":
			if r.Form.Get("code") != "good-code" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "access-1",
				"refresh_token": "refresh-1",
				"token_type":    "bearer",
				"expires_in":    3600,
			})
		case "refresh_token":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "access-2",
				"token_type":   "bearer",
				"expires_in":   3600,
			})
		}
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		p.identityCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer access-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "client-id", r.Header.Get("Client-Id"))
		_, _ = w.Write([]byte(p.identityBody))
	})

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakeProvider) client() *Client {
	return NewClient(ClientConfig{
		Platform:     entities.PlatformTwitch,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		AuthURL:      p.server.URL + "/authorize",
		TokenURL:     p.server.URL + "/token",
		UserURL:      p.server.URL + "/user",
		Scopes:       []string{"user:read:email", "channel:read:redemptions"},
		RedirectURL:  "https://ledger.example.com/connections/twitch/callback",
		Timeout:      time.Second,
	})
}

func TestClient_AuthorizeURL(t *testing.T) {
	provider := newFakeProvider(t)

	raw := provider.client().AuthorizeURL("signed-state")
	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	q := parsed.Query()
	assert.Equal(t, "/authorize", parsed.Path)
	assert.Equal(t, "signed-state", q.Get("state"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "user:read:email channel:read:redemptions", q.Get("scope"))
}

func TestClient_Exchange(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		provider := newFakeProvider(t)

		token, err := provider.client().Exchange(ctx, "good-code")
		require.NoError(t, err)
		assert.Equal(t, "access-1", token.AccessToken)
		assert.Equal(t, "refresh-1", token.RefreshToken)
		require.NotNil(t, token.ExpiresAt)
		assert.WithinDuration(t, time.Now().Add(time.Hour), *token.ExpiresAt, time.Minute)
	})

	t.Run("retries once on server error", func(t *testing.T) {
		provider := newFakeProvider(t)
		provider.tokenStatus = []int{http.StatusBadGateway}

		token, err := provider.client().Exchange(ctx, "good-code")
		require.NoError(t, err)
		assert.Equal(t, "access-1", token.AccessToken)
		assert.Equal(t, int32(2), provider.tokenCalls.Load())
	})

	t.Run("gives up after the retry", func(t *testing.T) {
		provider := newFakeProvider(t)
		provider.tokenStatus = []int{http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusOK}

		_, err := provider.client().Exchange(ctx, "good-code")
		assert.Error(t, err)
		assert.Equal(t, int32(2), provider.tokenCalls.Load())
	})

	t.Run("rejected code is not retried", func(t *testing.T) {
		provider := newFakeProvider(t)

		_, err := provider.client().Exchange(ctx, "bad-code")
		assert.Error(t, err)
		assert.Equal(t, int32(1), provider.tokenCalls.Load())
	})
}

func TestClient_Refresh(t *testing.T) {
	provider := newFakeProvider(t)

	token, err := provider.client().Refresh(context.Background(), "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, "access-2", token.AccessToken)
	assert.Equal(t, "refresh-1", token.RefreshToken, "provider omitted the refresh token so the old one is kept")
}

func TestClient_FetchIdentity(t *testing.T) {
	ctx := context.Background()

	t.Run("twitch style list", func(t *testing.T) {
		provider := newFakeProvider(t)

		identity, err := provider.client().FetchIdentity(ctx, "access-1")
		require.NoError(t, err)
		assert.Equal(t, &entities.PlatformIdentity{ID: "4242", Username: "streamfan"}, identity)
	})

	t.Run("unauthorized is not retried", func(t *testing.T) {
		provider := newFakeProvider(t)

		_, err := provider.client().FetchIdentity(ctx, "wrong-token")
		assert.Error(t, err)
		assert.Equal(t, int32(1), provider.identityCalls.Load())
	})
}

func TestDecodeIdentity(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected *entities.PlatformIdentity
		wantErr  bool
	}{
		{"list", `{"data":[{"id":"1","login":"a"}]}`, &entities.PlatformIdentity{ID: "1", Username: "a"}, false},
		{"object under data", `{"data":{"user_id":77,"name":"kickfan"}}`, &entities.PlatformIdentity{ID: "77", Username: "kickfan"}, false},
		{"flat", `{"id":5,"username":"flat"}`, &entities.PlatformIdentity{ID: "5", Username: "flat"}, false},
		{"username falls back to id", `{"id":"9"}`, &entities.PlatformIdentity{ID: "9", Username: "9"}, false},
		{"empty list", `{"data":[]}`, nil, true},
		{"no id", `{"login":"nobody"}`, nil, true},
		{"not json", `<html>`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, err := decodeIdentity([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, identity)
		})
	}
}
