package client

import (
	"context"

	"github.com/dmitrijs2005/townsquare/internal/client/models"
)

// SignupRequest carries the fields of a new account.
type SignupRequest struct {
	MobileNumber string `json:"mobile_number"`
	Password     string `json:"password"`
	FullName     string `json:"full_name"`
	Username     string `json:"username"`
}

// AuthResponse is returned by signup and signin.
type AuthResponse struct {
	User         models.User `json:"user"`
	SessionToken string      `json:"session_token"`
}

type AvatarUpload struct {
	UploadURL string `json:"upload_url"`
	AvatarURL string `json:"avatar_url"`
}

type Client interface {
	Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error)
	Signin(ctx context.Context, mobileNumber, password string) (*AuthResponse, error)
	ValidateSession(ctx context.Context, token string) (string, error)
	Refresh(ctx context.Context, token string) (bool, error)
	Logout(ctx context.Context, token string) (bool, error)
	AvatarUploadURL(ctx context.Context, token string) (*AvatarUpload, error)
	Ping(ctx context.Context) error
}
