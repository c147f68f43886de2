package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/townsquare/internal/common"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL+"/", time.Second)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestHTTPClient_Signup(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/signup", r.URL.Path)

		var req SignupRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "+15551234567", req.MobileNumber)
		assert.Equal(t, "ada", req.Username)

		writeJSON(w, http.StatusOK, map[string]any{
			"user":          map[string]any{"id": "u-1", "mobile_number": req.MobileNumber, "username": req.Username},
			"session_token": "tok-1",
		})
	})

	res, err := c.Signup(context.Background(), SignupRequest{
		MobileNumber: "+15551234567", Password: "secret12", FullName: "Ada L", Username: "ada",
	})
	require.NoError(t, err)
	assert.Equal(t, "u-1", res.User.ID)
	assert.Equal(t, "tok-1", res.SessionToken)
}

func TestHTTPClient_SigninRejected(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	})

	_, err := c.Signin(context.Background(), "+15551234567", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "invalid credentials", apiErr.Message)
}

func TestHTTPClient_TokenInHeader(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok-1", r.Header.Get(common.SessionTokenHeaderName))
		switch r.URL.Path {
		case "/api/v1/auth/session":
			assert.Equal(t, http.MethodGet, r.Method)
			writeJSON(w, http.StatusOK, map[string]any{"valid": true, "user_id": "u-1"})
		case "/api/v1/auth/refresh":
			writeJSON(w, http.StatusOK, map[string]any{"refreshed": true})
		case "/api/v1/auth/logout":
			writeJSON(w, http.StatusOK, map[string]any{"logged_out": false})
		case "/api/v1/profile/avatar":
			writeJSON(w, http.StatusOK, map[string]any{"upload_url": "https://s3/put", "avatar_url": "https://cdn/a.jpg"})
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	uid, err := c.ValidateSession(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", uid)

	ok, err := c.Refresh(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Logout(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, ok)

	up, err := c.AvatarUploadURL(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "https://s3/put", up.UploadURL)
	assert.Equal(t, "https://cdn/a.jpg", up.AvatarURL)
}

func TestHTTPClient_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusForbidden, ErrForbidden},
		{http.StatusTooManyRequests, ErrTooManyAttempts},
		{http.StatusServiceUnavailable, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]string{"error": "nope"})
			})
			err := c.Ping(context.Background())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHTTPClient_PlainTextError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadRequest)
	})

	err := c.Ping(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "boom", apiErr.Error())
}

func TestHTTPClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(url, time.Second)
	err := c.Ping(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestAPIError_EmptyMessage(t *testing.T) {
	err := &APIError{Status: http.StatusNotFound}
	assert.Equal(t, "Not Found", err.Error())
	assert.False(t, errors.Is(err, ErrUnauthorized))
}
