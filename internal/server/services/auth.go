// Package services contains server-side business logic. This file implements
// AuthService: mobile-number signup and signin, opaque session tokens,
// session validation and refresh, and admin-role elevation.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/townsquare/internal/common"
	"github.com/dmitrijs2005/townsquare/internal/cryptox"
	"github.com/dmitrijs2005/townsquare/internal/dbx"
	"github.com/dmitrijs2005/townsquare/internal/logging"
	"github.com/dmitrijs2005/townsquare/internal/server/auth"
	"github.com/dmitrijs2005/townsquare/internal/server/config"
	"github.com/dmitrijs2005/townsquare/internal/server/models"
	"github.com/dmitrijs2005/townsquare/internal/server/repositories/repomanager"
)

// Unique constraints whose violation is a caller-facing conflict.
const (
	constraintMobileNumber = "credentials_mobile_number_key"
	constraintUsername     = "profiles_username_lower_key"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)

var (
	errMobileTaken   = &common.ConflictError{Message: "mobile number already registered"}
	errUsernameTaken = &common.ConflictError{Message: "username already taken"}
	errBlocked       = &common.ForbiddenError{Message: "account is blocked"}
	errNotAdmin      = &common.ForbiddenError{Message: "admin role required"}
)

// PasswordHasher hashes new passwords and verifies stored hashes.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (ok bool, needsRehash bool, err error)
}

// SessionCache short-circuits Validate. Implementations may lose entries at
// any time.
type SessionCache interface {
	Get(ctx context.Context, token string) (userID string, ok bool, err error)
	// Set must not overwrite an entry left by Revoke.
	Set(ctx context.Context, token, userID string, ttl time.Duration) error
	Revoke(ctx context.Context, tokens ...string) error
}

// LoginLimiter throttles failed signins per mobile number.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Fail(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// RegisterInput is the signup payload.
type RegisterInput struct {
	MobileNumber string
	Password     string
	FullName     string
	Username     string
}

// AuthResult is returned by Register and Authenticate.
type AuthResult struct {
	User         *models.User
	SessionToken string
}

// AdminResult is returned by AdminValidate.
type AdminResult struct {
	Roles      []string
	User       *models.User
	AdminToken string
}

// AuthService owns the session authentication scheme. It is safe for
// concurrent use; all coordination is delegated to the store.
type AuthService struct {
	db                 *sql.DB
	repomanager        repomanager.RepositoryManager
	log                logging.Logger
	hasher             PasswordHasher
	cache              SessionCache
	limiter            LoginLimiter
	now                func() time.Time
	jwtSecret          []byte
	sessionValidity    time.Duration
	adminTokenValidity time.Duration
	cacheTTL           time.Duration
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithSessionCache enables validation caching.
func WithSessionCache(c SessionCache) AuthOption {
	return func(s *AuthService) { s.cache = c }
}

// WithLoginLimiter enables signin throttling.
func WithLoginLimiter(l LoginLimiter) AuthOption {
	return func(s *AuthService) { s.limiter = l }
}

// WithHasher replaces the default argon2id hasher.
func WithHasher(h PasswordHasher) AuthOption {
	return func(s *AuthService) { s.hasher = h }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

// NewAuthService constructs an AuthService using repositories and server config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger, opts ...AuthOption) *AuthService {
	s := &AuthService{
		db:                 db,
		repomanager:        m,
		log:                log,
		hasher:             cryptox.NewHasher(cryptox.DefaultParams),
		cache:              nopCache{},
		limiter:            nopLimiter{},
		now:                time.Now,
		jwtSecret:          []byte(cfg.SecretKey),
		sessionValidity:    cfg.SessionValidityDuration,
		adminTokenValidity: cfg.AdminTokenValidityDuration,
		cacheTTL:           cfg.ValidationCacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates the credential, the profile and the first session in one
// transaction.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.MobileNumber = strings.TrimSpace(in.MobileNumber)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Username = strings.TrimSpace(in.Username)

	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	// Best-effort pre-check for friendlier errors; the unique constraints
	// below remain the source of truth.
	if _, err := s.repomanager.Credentials(s.db).GetByMobileNumber(ctx, in.MobileNumber); err == nil {
		return nil, errMobileTaken
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, s.internal(ctx, "mobile number lookup failed", err)
	}

	taken, err := s.repomanager.Profiles(s.db).UsernameTaken(ctx, in.Username)
	if err != nil {
		return nil, s.internal(ctx, "username lookup failed", err)
	}
	if taken {
		return nil, errUsernameTaken
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, s.internal(ctx, "password hashing failed", err)
	}

	token, err := common.NewSessionToken()
	if err != nil {
		return nil, s.internal(ctx, "session token generation failed", err)
	}

	var (
		cred    *models.Credential
		profile *models.Profile
	)
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		cred, err = s.repomanager.Credentials(tx).Create(ctx, &models.Credential{
			MobileNumber: in.MobileNumber,
			PasswordHash: hash,
		})
		if err != nil {
			return err
		}

		profile = &models.Profile{ID: cred.ID, FullName: in.FullName, Username: in.Username}
		if err := s.repomanager.Profiles(tx).Create(ctx, profile); err != nil {
			return err
		}

		return s.repomanager.Sessions(tx).Create(ctx, cred.ID, token, s.now().Add(s.sessionValidity))
	})
	if err != nil {
		if conflict := conflictFor(err); conflict != nil {
			return nil, conflict
		}
		return nil, s.internal(ctx, "registration failed", err)
	}

	s.log.Info(ctx, "user registered", "user_id", cred.ID)

	return &AuthResult{User: models.NewUser(cred, profile), SessionToken: token}, nil
}

// Authenticate verifies the password and replaces any active session of the
// user with a fresh one.
func (s *AuthService) Authenticate(ctx context.Context, mobileNumber, password string) (*AuthResult, error) {
	mobileNumber = strings.TrimSpace(mobileNumber)
	if mobileNumber == "" || password == "" {
		return nil, common.ErrorUnauthorized
	}

	allowed, err := s.limiter.Allow(ctx, mobileNumber)
	if err != nil {
		s.log.Warn(ctx, "login limiter unavailable", "error", err)
	} else if !allowed {
		return nil, common.ErrorTooManyAttempts
	}

	cred, err := s.repomanager.Credentials(s.db).GetByMobileNumber(ctx, mobileNumber)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.recordFailure(ctx, mobileNumber)
			return nil, common.ErrorUnauthorized
		}
		return nil, s.internal(ctx, "credential lookup failed", err)
	}

	ok, needsRehash, err := s.hasher.Verify(password, cred.PasswordHash)
	if err != nil {
		return nil, s.internal(ctx, "stored password hash unreadable", err, "user_id", cred.ID)
	}
	if !ok {
		s.recordFailure(ctx, mobileNumber)
		return nil, common.ErrorUnauthorized
	}

	token, err := common.NewSessionToken()
	if err != nil {
		return nil, s.internal(ctx, "session token generation failed", err)
	}

	var (
		profile  *models.Profile
		replaced []string
	)
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		// Serializes concurrent signins of the same user.
		if err := s.repomanager.Credentials(tx).Lock(ctx, cred.ID); err != nil {
			return err
		}

		p, err := s.repomanager.Profiles(tx).Get(ctx, cred.ID)
		switch {
		case errors.Is(err, common.ErrorNotFound):
			s.log.Warn(ctx, "signin without profile", "user_id", cred.ID)
		case err != nil:
			return err
		case p.IsBlocked:
			return errBlocked
		default:
			profile = p
		}

		replaced, err = s.repomanager.Sessions(tx).DeactivateForUser(ctx, cred.ID)
		if err != nil {
			return err
		}

		if err := s.repomanager.Sessions(tx).Create(ctx, cred.ID, token, s.now().Add(s.sessionValidity)); err != nil {
			return err
		}

		if profile != nil {
			if err := s.repomanager.Profiles(tx).SetOnline(ctx, cred.ID, true); err != nil {
				return err
			}
			profile.IsOnline = true
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorForbidden) {
			return nil, err
		}
		return nil, s.internal(ctx, "signin failed", err, "user_id", cred.ID)
	}

	s.evict(ctx, replaced...)
	if err := s.limiter.Reset(ctx, mobileNumber); err != nil {
		s.log.Warn(ctx, "login limiter reset failed", "error", err)
	}
	if needsRehash {
		s.upgradeHash(ctx, cred.ID, password)
	}

	s.log.Info(ctx, "user signed in", "user_id", cred.ID, "replaced_sessions", len(replaced))

	return &AuthResult{User: models.NewUser(cred, profile), SessionToken: token}, nil
}

// Validate returns the owning user id of an active, unexpired session, or
// common.ErrorInvalidSession.
func (s *AuthService) Validate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", common.ErrorInvalidSession
	}

	if userID, ok, err := s.cache.Get(ctx, token); err != nil {
		s.log.Debug(ctx, "session cache get failed", "error", err)
	} else if ok {
		return userID, nil
	}

	sess, err := s.repomanager.Sessions(s.db).Find(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorInvalidSession
		}
		return "", s.internal(ctx, "session lookup failed", err)
	}

	now := s.now()
	if !sess.Valid(now) {
		return "", common.ErrorInvalidSession
	}

	ttl := min(s.cacheTTL, sess.ExpiresAt.Sub(now))
	if err := s.cache.Set(ctx, token, sess.UserID, ttl); err != nil {
		s.log.Debug(ctx, "session cache set failed", "error", err)
	}

	return sess.UserID, nil
}

// Refresh pushes the expiry of an active, unexpired session to now plus the
// session validity. It reports whether the session was extended.
func (s *AuthService) Refresh(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	now := s.now()
	ok, err := s.repomanager.Sessions(s.db).Extend(ctx, token, now.Add(s.sessionValidity), now)
	if err != nil {
		return false, s.internal(ctx, "session refresh failed", err)
	}
	s.evict(ctx, token)
	return ok, nil
}

// Logout ends the session and marks its owner offline. It reports whether an
// active session was ended.
func (s *AuthService) Logout(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	var userID string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		userID, err = s.repomanager.Sessions(tx).Deactivate(ctx, token)
		if err != nil {
			return err
		}
		if err := s.repomanager.Profiles(tx).SetOnline(ctx, userID, false); err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return nil
	})
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, s.internal(ctx, "logout failed", err)
	}

	s.evict(ctx, token)
	s.log.Info(ctx, "user signed out", "user_id", userID)
	return true, nil
}

// AdminValidate checks that the session belongs to an admin and, if so,
// issues a short-lived admin token.
func (s *AuthService) AdminValidate(ctx context.Context, token string) (*AdminResult, error) {
	userID, err := s.Validate(ctx, token)
	if err != nil {
		return nil, err
	}

	roles, err := s.repomanager.Roles(s.db).List(ctx, userID)
	if err != nil {
		return nil, s.internal(ctx, "role lookup failed", err)
	}
	if !slices.Contains(roles, common.RoleAdmin) {
		return nil, errNotAdmin
	}

	cred, err := s.repomanager.Credentials(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, s.internal(ctx, "credential lookup failed", err, "user_id", userID)
	}

	profile, err := s.repomanager.Profiles(s.db).Get(ctx, userID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, s.internal(ctx, "profile lookup failed", err, "user_id", userID)
	}

	adminToken, err := auth.GenerateAdminToken(userID, roles, s.jwtSecret, s.adminTokenValidity)
	if err != nil {
		return nil, s.internal(ctx, "admin token signing failed", err)
	}

	return &AdminResult{Roles: roles, User: models.NewUser(cred, profile), AdminToken: adminToken}, nil
}

// Suspend blocks the user and ends all of their sessions. It returns how many
// sessions were ended.
func (s *AuthService) Suspend(ctx context.Context, userID string) (int, error) {
	if err := checkUserID(userID); err != nil {
		return 0, err
	}

	var ended []string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Credentials(tx).Lock(ctx, userID); err != nil {
			return err
		}
		var err error
		ended, err = s.repomanager.Sessions(tx).DeactivateForUser(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.repomanager.Profiles(tx).SetBlocked(ctx, userID, true); err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return nil
	})
	if errors.Is(err, common.ErrorNotFound) {
		return 0, common.ErrorNotFound
	}
	if err != nil {
		return 0, s.internal(ctx, "suspend failed", err, "user_id", userID)
	}

	s.evict(ctx, ended...)
	s.log.Info(ctx, "user suspended", "user_id", userID, "ended_sessions", len(ended))
	return len(ended), nil
}

// GrantRole gives userID the named role. Granting twice is a no-op.
func (s *AuthService) GrantRole(ctx context.Context, userID, role string) error {
	if err := s.checkRoleTarget(ctx, userID, role); err != nil {
		return err
	}
	if err := s.repomanager.Roles(s.db).Grant(ctx, userID, role); err != nil {
		return s.internal(ctx, "role grant failed", err)
	}
	s.log.Info(ctx, "role granted", "user_id", userID, "role", role)
	return nil
}

// RevokeRole removes the role and reports whether the user had it.
func (s *AuthService) RevokeRole(ctx context.Context, userID, role string) (bool, error) {
	if err := s.checkRoleTarget(ctx, userID, role); err != nil {
		return false, err
	}
	ok, err := s.repomanager.Roles(s.db).Revoke(ctx, userID, role)
	if err != nil {
		return false, s.internal(ctx, "role revoke failed", err)
	}
	return ok, nil
}

// ListSessions returns the user's sessions, newest first.
func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]*models.Session, error) {
	if err := checkUserID(userID); err != nil {
		return nil, err
	}
	list, err := s.repomanager.Sessions(s.db).ListForUser(ctx, userID)
	if err != nil {
		return nil, s.internal(ctx, "session listing failed", err)
	}
	return list, nil
}

// --- helpers below ---

func validateRegistration(in RegisterInput) error {
	switch {
	case in.MobileNumber == "":
		return common.NewValidationError("mobile_number", "mobile number is required")
	case in.Password == "":
		return common.NewValidationError("password", "password is required")
	case in.FullName == "":
		return common.NewValidationError("full_name", "full name is required")
	case in.Username == "":
		return common.NewValidationError("username", "username is required")
	case !usernamePattern.MatchString(in.Username):
		return common.NewValidationError("username", "username must be 3-30 characters of letters, digits or underscore")
	}
	return nil
}

// conflictFor maps a unique violation on a user-facing constraint to its
// ConflictError, or returns nil.
func conflictFor(err error) error {
	name, ok := dbx.UniqueViolation(err)
	if !ok {
		return nil
	}
	switch name {
	case constraintMobileNumber:
		return errMobileTaken
	case constraintUsername:
		return errUsernameTaken
	}
	return nil
}

// checkUserID maps ids that are not UUIDs to ErrorNotFound before they
// reach Postgres, which would reject them as a uuid syntax error.
func checkUserID(userID string) error {
	if _, err := uuid.Parse(userID); err != nil {
		return common.ErrorNotFound
	}
	return nil
}

func (s *AuthService) checkRoleTarget(ctx context.Context, userID, role string) error {
	if role != common.RoleAdmin && role != common.RoleModerator {
		return common.NewValidationError("role", fmt.Sprintf("unknown role %q", role))
	}
	if err := checkUserID(userID); err != nil {
		return err
	}
	if _, err := s.repomanager.Credentials(s.db).GetByID(ctx, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return s.internal(ctx, "credential lookup failed", err)
	}
	return nil
}

func (s *AuthService) recordFailure(ctx context.Context, key string) {
	if err := s.limiter.Fail(ctx, key); err != nil {
		s.log.Warn(ctx, "login limiter unavailable", "error", err)
	}
}

// upgradeHash replaces a legacy or weaker hash. Failure only costs another
// upgrade attempt at the next signin.
func (s *AuthService) upgradeHash(ctx context.Context, userID, password string) {
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.repomanager.Credentials(s.db).UpdatePasswordHash(ctx, userID, hash)
	}
	if err != nil {
		s.log.Warn(ctx, "password hash upgrade failed", "user_id", userID, "error", err)
		return
	}
	s.log.Info(ctx, "password hash upgraded", "user_id", userID)
}

func (s *AuthService) evict(ctx context.Context, tokens ...string) {
	if len(tokens) == 0 {
		return
	}
	if err := s.cache.Revoke(ctx, tokens...); err != nil {
		s.log.Warn(ctx, "session cache eviction failed", "error", err)
	}
}

// internal logs err with detail and returns the generic ErrorInternal.
func (s *AuthService) internal(ctx context.Context, msg string, err error, args ...any) error {
	s.log.Error(ctx, msg, append(args, "error", err)...)
	return common.ErrorInternal
}

type nopCache struct{}

func (nopCache) Get(context.Context, string) (string, bool, error)        { return "", false, nil }
func (nopCache) Set(context.Context, string, string, time.Duration) error { return nil }
func (nopCache) Revoke(context.Context, ...string) error                  { return nil }

type nopLimiter struct{}

func (nopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }
func (nopLimiter) Fail(context.Context, string) error          { return nil }
func (nopLimiter) Reset(context.Context, string) error         { return nil }
