package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fixora/sessionkit/application/port/outbound"
	domainerror "github.com/fixora/sessionkit/domain/error"
	"github.com/fixora/sessionkit/infrastructure/service/logger"
)

// Client talks to the external identity service over HTTP. It exchanges
// credentials for token pairs; it never issues them.
type Client struct {
	baseURL     string
	loginPath   string
	refreshPath string
	logoutPath  string
	httpClient  *http.Client
	logger      logger.Logger
}

type ClientConfig struct {
	BaseURL     string
	LoginPath   string
	RefreshPath string
	LogoutPath  string
	Timeout     time.Duration
}

func NewClient(cfg ClientConfig, log logger.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		loginPath:   cfg.LoginPath,
		refreshPath: cfg.RefreshPath,
		logoutPath:  cfg.LogoutPath,
		logger:      log,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type loginRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	CaptchaToken string `json:"captchaToken,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (c *Client) Login(ctx context.Context, email, password, captchaToken string) (*outbound.TokenResponse, error) {
	body := loginRequest{Email: email, Password: password, CaptchaToken: captchaToken}

	resp, err := c.post(ctx, c.loginPath, body)
	if err != nil {
		c.logger.Error(ctx, "Login request failed", err, map[string]interface{}{
			"email": email,
		})
		return nil, domainerror.Wrap(domainerror.ErrCodeLoginUnavailable, "identity service unavailable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return c.decodeTokenResponse(ctx, resp, domainerror.ErrCodeLoginUnavailable)
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, domainerror.New(domainerror.ErrCodeInvalidCredentials, "invalid email or password")
	default:
		c.logger.Warn(ctx, "Unexpected login response", map[string]interface{}{
			"status": resp.StatusCode,
		})
		return nil, domainerror.New(domainerror.ErrCodeLoginUnavailable, fmt.Sprintf("unexpected login status %d", resp.StatusCode))
	}
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*outbound.TokenResponse, error) {
	resp, err := c.post(ctx, c.refreshPath, refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		c.logger.Error(ctx, "Refresh request failed", err, map[string]interface{}{})
		return nil, domainerror.Wrap(domainerror.ErrCodeRefreshNetwork, "refresh request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn(ctx, "Refresh rejected", map[string]interface{}{
			"status": resp.StatusCode,
		})
		return nil, domainerror.New(domainerror.ErrCodeRefreshRejected, fmt.Sprintf("refresh rejected with status %d", resp.StatusCode))
	}

	return c.decodeTokenResponse(ctx, resp, domainerror.ErrCodeRefreshRejected)
}

func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	resp, err := c.post(ctx, c.logoutPath, logoutRequest{RefreshToken: refreshToken})
	if err != nil {
		return domainerror.Wrap(domainerror.ErrCodeLogoutNetwork, "logout request failed", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return domainerror.New(domainerror.ErrCodeLogoutNetwork, fmt.Sprintf("logout rejected with status %d", resp.StatusCode))
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}

func (c *Client) decodeTokenResponse(ctx context.Context, resp *http.Response, code domainerror.ErrorCode) (*outbound.TokenResponse, error) {
	var tokenResp outbound.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		c.logger.Error(ctx, "Failed to decode token response", err, map[string]interface{}{})
		return nil, domainerror.Wrap(code, "malformed token response", err)
	}
	if tokenResp.AccessToken == "" || tokenResp.RefreshToken == "" {
		return nil, domainerror.New(code, "token response is missing credentials")
	}
	return &tokenResp, nil
}
