package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/townsquare/internal/common"
)

// HTTPClient talks to the auth server's JSON API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/signup", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Signin(ctx context.Context, mobileNumber, password string) (*AuthResponse, error) {
	body := map[string]string{"mobile_number": mobileNumber, "password": password}

	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/signin", "", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) ValidateSession(ctx context.Context, token string) (string, error) {
	var resp struct {
		UserID string `json:"user_id"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/auth/session", token, nil, &resp); err != nil {
		return "", err
	}
	return resp.UserID, nil
}

func (c *HTTPClient) Refresh(ctx context.Context, token string) (bool, error) {
	var resp struct {
		Refreshed bool `json:"refreshed"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/refresh", token, nil, &resp); err != nil {
		return false, err
	}
	return resp.Refreshed, nil
}

func (c *HTTPClient) Logout(ctx context.Context, token string) (bool, error) {
	var resp struct {
		LoggedOut bool `json:"logged_out"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/logout", token, nil, &resp); err != nil {
		return false, err
	}
	return resp.LoggedOut, nil
}

func (c *HTTPClient) AvatarUploadURL(ctx context.Context, token string) (*AvatarUpload, error) {
	var resp AvatarUpload
	if err := c.do(ctx, http.MethodPost, "/api/v1/profile/avatar", token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", "", nil, nil)
}

// do sends body as JSON and decodes a 2xx reply into out. Transport failures
// wrap ErrUnavailable; other statuses become *APIError.
func (c *HTTPClient) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.SessionTokenHeaderName, token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(b, &e) != nil {
			e.Error = strings.TrimSpace(string(b))
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
