package github

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateTestKey(t *testing.T) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	client, err := NewClientFromKeyBytes(12345, 67890, generateTestKey(t), zerolog.Nop())
	require.NoError(t, err)
	if serverURL != "" {
		client.baseURL = serverURL
	}
	return client
}

func TestGenerateJWT(t *testing.T) {
	client := newTestClient(t, "")

	jwt, err := client.generateJWT()
	require.NoError(t, err)
	assert.NotEmpty(t, jwt)
	assert.Contains(t, jwt, ".")
}

func TestNewClientFromKeyBytes_InvalidKey(t *testing.T) {
	_, err := NewClientFromKeyBytes(1, 1, []byte("not-a-key"), zerolog.Nop())
	assert.Error(t, err)
}

func TestGetInstallationToken_FromAPI(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/app/installations/67890/access_tokens", r.URL.Path)
		assert.Contains(t, r.Header.Get("Authorization"), "Bearer ")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token":      "ghs_test_token_123",
			"expires_at": time.Now().Add(1 * time.Hour).Format(time.RFC3339),
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	ctx := context.Background()

	token, err := client.getInstallationToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ghs_test_token_123", token)

	// Second call must hit the cache, not the API.
	token, err = client.getInstallationToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ghs_test_token_123", token)
	assert.Equal(t, 1, calls)
}

func TestGetInstallationToken_ExpiredCacheRefreshes(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"token": "fresh-token"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	client.token = "stale-token"
	client.tokenExpiry = time.Now().Add(-1 * time.Minute)

	token, err := client.getInstallationToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
	assert.Equal(t, 1, calls)
}

func TestGetInstallationToken_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.getInstallationToken(context.Background())
	assert.Error(t, err)
}

func TestParsePRURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		owner    string
		repo     string
		pr       int
		hasError bool
	}{
		{
			name:  "valid URL",
			url:   "https://github.com/p-blackswan/flowcore/pull/42",
			owner: "p-blackswan",
			repo:  "flowcore",
			pr:    42,
		},
		{
			name:  "trailing slash",
			url:   "https://github.com/org/repo/pull/99/",
			owner: "org",
			repo:  "repo",
			pr:    99,
		},
		{
			name:     "invalid URL",
			url:      "not-a-url",
			hasError: true,
		},
		{
			name:     "non-numeric PR",
			url:      "https://github.com/org/repo/pull/abc",
			hasError: true,
		},
		{
			name:     "empty",
			url:      "",
			hasError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, pr, err := ParsePRURL(tt.url)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.owner, owner)
				assert.Equal(t, tt.repo, repo)
				assert.Equal(t, tt.pr, pr)
			}
		})
	}
}
