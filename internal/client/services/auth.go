// Package services holds the CLI's application logic on top of the API
// client and the local session store.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/townsquare/internal/client/client"
	"github.com/dmitrijs2005/townsquare/internal/client/models"
	"github.com/dmitrijs2005/townsquare/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/townsquare/internal/common"
	"github.com/dmitrijs2005/townsquare/internal/dbx"
	"github.com/dmitrijs2005/townsquare/internal/logging"
	"github.com/dmitrijs2005/townsquare/internal/netx"
)

// AuthService manages the CLI's single session.
//
// Contract:
//   - Register and Login replace any stored session with the new one.
//   - WhoAmI checks the stored session against the server.
//   - Refresh extends the session; Touch does so only when the last
//     refresh is older than the activity throttle.
//   - KeepAlive refreshes on a fixed interval until ctx ends.
//   - Logout ends the session on the server and forgets it locally.
//
// Methods that need a session return client.ErrNotLoggedIn when none is
// stored, and client.ErrSessionExpired (after forgetting it) when the server
// no longer accepts it.
type AuthService interface {
	Register(ctx context.Context, req client.SignupRequest) (*models.User, error)
	Login(ctx context.Context, mobileNumber string, password []byte) (*models.User, error)
	WhoAmI(ctx context.Context) (*models.Session, error)
	Refresh(ctx context.Context) error
	Touch(ctx context.Context) error
	KeepAlive(ctx context.Context, interval time.Duration)
	Logout(ctx context.Context) error
	UploadAvatar(ctx context.Context, contentType string, image []byte) (string, error)
	Ping(ctx context.Context) error
}

type Option func(*authService)

func WithLogger(l logging.Logger) Option {
	return func(a *authService) { a.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(a *authService) { a.now = now }
}

// WithUploadClient sets the HTTP client used for object-storage uploads.
func WithUploadClient(hc *http.Client) Option {
	return func(a *authService) { a.upload = hc }
}

type authService struct {
	// mu serialises session reads and writes between the REPL and KeepAlive.
	mu sync.Mutex

	client   client.Client
	db       *sql.DB
	throttle time.Duration
	upload   *http.Client
	log      logging.Logger
	now      func() time.Time
}

// NewAuthService binds the API client to the local store at db. throttle is
// the minimum gap between activity-triggered refreshes.
func NewAuthService(c client.Client, db *sql.DB, throttle time.Duration, opts ...Option) AuthService {
	a := &authService{
		client:   c,
		db:       db,
		throttle: throttle,
		log:      logging.Nop{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *authService) repo() metadata.Repository {
	return metadata.NewSQLiteRepository(a.db)
}

func (a *authService) Register(ctx context.Context, req client.SignupRequest) (*models.User, error) {
	res, err := a.client.Signup(ctx, req)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.store(ctx, res); err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}
	return &res.User, nil
}

func (a *authService) Login(ctx context.Context, mobileNumber string, password []byte) (*models.User, error) {
	res, err := a.client.Signin(ctx, mobileNumber, string(password))
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.store(ctx, res); err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}
	return &res.User, nil
}

// store replaces the saved session in one transaction.
func (a *authService) store(ctx context.Context, res *client.AuthResponse) error {
	s := &models.Session{
		Token:        res.SessionToken,
		UserID:       res.User.ID,
		MobileNumber: res.User.MobileNumber,
		Username:     res.User.Username,
		RefreshedAt:  a.now(),
	}

	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Clear(ctx); err != nil {
			return err
		}
		return repo.SaveSession(ctx, s)
	})
}

func (a *authService) load(ctx context.Context) (*models.Session, error) {
	s, err := a.repo().LoadSession(ctx)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, client.ErrNotLoggedIn
	}
	return s, err
}

// expire forgets the stored session after the server rejected it.
func (a *authService) expire(ctx context.Context) error {
	if err := a.repo().Clear(ctx); err != nil {
		return err
	}
	return client.ErrSessionExpired
}

func (a *authService) WhoAmI(ctx context.Context) (*models.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, err := a.load(ctx)
	if err != nil {
		return nil, err
	}

	userID, err := a.client.ValidateSession(ctx, s.Token)
	if errors.Is(err, client.ErrUnauthorized) {
		return nil, a.expire(ctx)
	}
	if err != nil {
		return nil, err
	}

	s.UserID = userID
	return s, nil
}

func (a *authService) Refresh(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, err := a.load(ctx)
	if err != nil {
		return err
	}
	return a.refresh(ctx, s)
}

func (a *authService) Touch(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, err := a.load(ctx)
	if err != nil {
		return err
	}
	if !s.RefreshDue(a.now(), a.throttle) {
		return nil
	}
	return a.refresh(ctx, s)
}

func (a *authService) refresh(ctx context.Context, s *models.Session) error {
	ok, err := a.client.Refresh(ctx, s.Token)
	if err != nil {
		return err
	}
	if !ok {
		return a.expire(ctx)
	}

	s.RefreshedAt = a.now()
	return a.repo().Set(ctx, metadata.KeyRefreshedAt, []byte(s.RefreshedAt.UTC().Format(time.RFC3339Nano)))
}

// KeepAlive blocks until ctx is done. Refresh failures are logged; a missing
// or expired session is not an error here since the user may log in later.
func (a *authService) KeepAlive(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := a.Refresh(ctx)
			switch {
			case err == nil:
				a.log.Debug(ctx, "session refreshed")
			case errors.Is(err, client.ErrNotLoggedIn), errors.Is(err, context.Canceled):
			case errors.Is(err, client.ErrSessionExpired):
				a.log.Warn(ctx, "session expired")
			default:
				a.log.Warn(ctx, "session refresh failed", "error", err)
			}
		}
	}
}

// Logout always forgets the local session, even when the server call fails.
func (a *authService) Logout(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, err := a.load(ctx)
	if err != nil {
		return err
	}

	_, serverErr := a.client.Logout(ctx, s.Token)
	if err := a.repo().Clear(ctx); err != nil {
		return errors.Join(serverErr, err)
	}
	return serverErr
}

// UploadAvatar fetches a presigned URL, PUTs the image there and returns the
// public avatar URL.
func (a *authService) UploadAvatar(ctx context.Context, contentType string, image []byte) (string, error) {
	a.mu.Lock()
	s, err := a.load(ctx)
	a.mu.Unlock()
	if err != nil {
		return "", err
	}

	up, err := a.client.AvatarUploadURL(ctx, s.Token)
	if err != nil {
		return "", err
	}

	if err := netx.UploadToPresignedURL(ctx, a.upload, up.UploadURL, contentType, image); err != nil {
		return "", err
	}
	return up.AvatarURL, nil
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}
