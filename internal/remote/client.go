// Package remote is the player-side HTTP client for the storefront API. It
// implements registry.Registry over the session endpoints and
// billing.Source over the subscription endpoint, with a local snapshot file
// standing in for the persisted-subscription fallback read.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"resonate-service/internal/domain/session"
	"resonate-service/internal/domain/subscription"
	xerrors "resonate-service/internal/pkg/errors"
	"resonate-service/internal/registry"
)

type Config struct {
	BaseURL      string
	Token        string
	SnapshotPath string
	Timeout      time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// SetToken installs the access token after login.
func (c *Client) SetToken(token string) { c.cfg.Token = token }

type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode payload: %w", err)
		}
	}

	return resp.StatusCode, nil
}

// --- registry.Registry ---

func (c *Client) Register(ctx context.Context, _, _, deviceInfo string, _ int, force bool) (*registry.RegisterResult, error) {
	// Account and session identity ride in the token; the server derives
	// slots from billing itself.
	req := session.RegisterRequest{DeviceInfo: deviceInfo, Force: force}
	var resp session.RegisterResponse

	status, err := c.do(ctx, http.MethodPost, "/api/v1/sessions/register", req, &resp)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK, http.StatusConflict:
		return &registry.RegisterResult{
			Admitted:      resp.Admitted,
			ActiveDevices: resp.ActiveDevices,
		}, nil
	default:
		return nil, fmt.Errorf("register returned status %d", status)
	}
}

func (c *Client) QueryActive(ctx context.Context, _, sessionID string) (bool, error) {
	var resp session.QueryActiveResponse
	path := "/api/v1/sessions/active?session_id=" + url.QueryEscape(sessionID)

	status, err := c.do(ctx, http.MethodGet, path, nil, &resp)
	if err != nil {
		return false, err
	}
	if status != http.StatusOK {
		return false, fmt.Errorf("query returned status %d", status)
	}
	return resp.Present, nil
}

func (c *Client) Disconnect(ctx context.Context, _, targetSessionID string) error {
	status, err := c.do(ctx, http.MethodDelete, "/api/v1/sessions/"+url.PathEscape(targetSessionID), nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("disconnect returned status %d", status)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, accountID, sessionID string) error {
	return c.Disconnect(ctx, accountID, sessionID)
}

func (c *Client) ActiveDevices(ctx context.Context, _ string) ([]session.ActiveDevice, error) {
	var devices []session.ActiveDevice
	status, err := c.do(ctx, http.MethodGet, "/api/v1/sessions/devices", nil, &devices)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("device list returned status %d", status)
	}
	return devices, nil
}

// --- billing.Source ---

func (c *Client) CheckBilling(ctx context.Context, _ string) (*subscription.Info, error) {
	var info subscription.Info
	status, err := c.do(ctx, http.MethodGet, "/api/v1/billing/subscription", nil, &info)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		return &info, nil
	case http.StatusPaymentRequired:
		return nil, xerrors.ErrNotSubscribed
	default:
		return nil, fmt.Errorf("billing check returned status %d", status)
	}
}

// ReadPersisted reads the last snapshot written to local disk, the degraded
// source of truth when the API is unreachable.
func (c *Client) ReadPersisted(_ context.Context, accountID string) (*subscription.Info, error) {
	raw, err := os.ReadFile(c.cfg.SnapshotPath)
	if err != nil {
		return nil, xerrors.ErrNotFound
	}

	var info subscription.Info
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, xerrors.ErrNotFound
	}
	if info.AccountID != accountID {
		return nil, xerrors.ErrAccountMismatch
	}
	return &info, nil
}

func (c *Client) SaveSnapshot(_ context.Context, info *subscription.Info) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.cfg.SnapshotPath), 0o700); err != nil {
		return err
	}
	return os.WriteFile(c.cfg.SnapshotPath, raw, 0o600)
}

// --- auth ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	DeviceID string `json:"device_id"`
}

type loginResponse struct {
	Token     string `json:"token"`
	AccountID string `json:"account_id"`
}

// Login authenticates and installs the returned token on the client.
func (c *Client) Login(ctx context.Context, email, password, deviceID string) (string, error) {
	var resp loginResponse
	status, err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", loginRequest{
		Email:    email,
		Password: password,
		DeviceID: deviceID,
	}, &resp)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", xerrors.ErrUnauthorized
	}

	c.SetToken(resp.Token)
	return resp.AccountID, nil
}
