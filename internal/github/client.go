// Package github wraps the GitHub API with App authentication for the
// review orchestrator.
package github

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gh "github.com/google/go-github/v60/github"
	"github.com/rs/zerolog"

	ferrors "github.com/p-blackswan/flowcore/internal/errors"
)

const (
	defaultBaseURL = "https://api.github.com"

	// Tokens last 1 hour, refresh at 55 min.
	tokenTTL = 55 * time.Minute
)

// Client wraps the GitHub API with App authentication. Installation
// tokens are cached in memory until shortly before they expire.
type Client struct {
	appID          int64
	installationID int64
	privateKey     *rsa.PrivateKey
	httpClient     *http.Client
	baseURL        string
	logger         zerolog.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a new GitHub App client from a private key file.
func NewClient(appID, installationID int64, privateKeyPath string, logger zerolog.Logger) (*Client, error) {
	keyData, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	return NewClientFromKeyBytes(appID, installationID, keyData, logger)
}

// NewClientFromKeyBytes creates a client from PEM key bytes (useful for testing).
func NewClientFromKeyBytes(appID, installationID int64, keyData []byte, logger zerolog.Logger) (*Client, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(keyData)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	return &Client{
		appID:          appID,
		installationID: installationID,
		privateKey:     key,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		baseURL:        defaultBaseURL,
		logger:         logger.With().Str("component", "github").Logger(),
	}, nil
}

// generateJWT creates a JWT for GitHub App authentication.
func (c *Client) generateJWT() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now.Add(-60 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
		Issuer:    fmt.Sprintf("%d", c.appID),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(c.privateKey)
	if err != nil {
		return "", fmt.Errorf("signing JWT: %w", err)
	}
	return signed, nil
}

type installationTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// getInstallationToken returns a cached or freshly generated installation token.
func (c *Client) getInstallationToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		c.logger.Debug().Msg("using cached installation token")
		return c.token, nil
	}

	c.logger.Info().Msg("generating new installation token")
	jwtToken, err := c.generateJWT()
	if err != nil {
		return "", fmt.Errorf("generating JWT: %w", err)
	}

	url := fmt.Sprintf("%s/app/installations/%d/access_tokens", c.baseURL, c.installationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+jwtToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting installation token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", ferrors.NewAPIError("github", resp.StatusCode,
			fmt.Sprintf("installation token request failed: %s", body))
	}

	var tokenResp installationTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}

	c.token = tokenResp.Token
	c.tokenExpiry = time.Now().Add(tokenTTL)
	return c.token, nil
}

// apiClient returns a go-github client authenticated with an installation token.
func (c *Client) apiClient(ctx context.Context) (*gh.Client, error) {
	token, err := c.getInstallationToken(ctx)
	if err != nil {
		return nil, err
	}

	client := gh.NewClient(&http.Client{
		Transport: &tokenTransport{token: token, base: http.DefaultTransport},
		Timeout:   30 * time.Second,
	})
	if c.baseURL != defaultBaseURL {
		base, err := url.Parse(c.baseURL + "/")
		if err != nil {
			return nil, fmt.Errorf("parsing API base URL: %w", err)
		}
		client.BaseURL = base
	}
	return client, nil
}

type tokenTransport struct {
	token string
	base  http.RoundTripper
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req2 := req.Clone(req.Context())
	req2.Header.Set("Authorization", "token "+t.token)
	return t.base.RoundTrip(req2)
}

// wrapErr maps go-github errors to typed API errors so retry logic can
// distinguish transient failures.
func wrapErr(op string, err error) error {
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return &ferrors.APIError{
			Service:    "github",
			StatusCode: ghErr.Response.StatusCode,
			Message:    op,
			Err:        err,
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ParsePRURL extracts owner, repo, and PR number from a GitHub PR URL.
func ParsePRURL(url string) (owner, repo string, prNumber int, err error) {
	// https://github.com/owner/repo/pull/123
	url = strings.TrimSuffix(url, "/")
	parts := strings.Split(url, "/")
	if len(parts) < 5 {
		return "", "", 0, fmt.Errorf("invalid PR URL: %s", url)
	}

	var num int
	_, err = fmt.Sscanf(parts[len(parts)-1], "%d", &num)
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid PR number in URL: %s", url)
	}

	return parts[len(parts)-4], parts[len(parts)-3], num, nil
}
