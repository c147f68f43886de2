package services

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/townsquare/internal/common"
	"github.com/dmitrijs2005/townsquare/internal/dbx"
	"github.com/dmitrijs2005/townsquare/internal/server/models"
	"github.com/dmitrijs2005/townsquare/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/townsquare/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/townsquare/internal/server/repositories/roles"
	"github.com/dmitrijs2005/townsquare/internal/server/repositories/sessions"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// memStore mimics the Postgres schema closely enough for service tests,
// including its unique constraints. It is not transactional: tests assert
// rollbacks through sqlmock instead.
type memStore struct {
	mu       sync.Mutex
	seq      int
	creds    map[string]*models.Credential
	profiles map[string]*models.Profile
	sessions map[string]*models.Session
	roles    map[string][]string

	credLookupErr    error
	profileCreateErr error
	profileGetErr    error
	sessionCreateErr error
	hashUpdates      int
}

func newMemStore() *memStore {
	return &memStore{
		creds:    map[string]*models.Credential{},
		profiles: map[string]*models.Profile{},
		sessions: map[string]*models.Session{},
		roles:    map[string][]string{},
	}
}

func uniqueViolation(constraint string) error {
	return fmt.Errorf("db error: %w", &pgconn.PgError{Code: "23505", ConstraintName: constraint})
}

func (st *memStore) activeSessions(userID string) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	n := 0
	for _, s := range st.sessions {
		if s.UserID == userID && s.IsActive {
			n++
		}
	}
	return n
}

type fakeRepoManager struct{ st *memStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Credentials(dbx.DBTX) credentials.Repository  { return &fakeCredRepo{m.st} }
func (m *fakeRepoManager) Profiles(dbx.DBTX) profiles.Repository        { return &fakeProfileRepo{m.st} }
func (m *fakeRepoManager) Sessions(dbx.DBTX) sessions.Repository        { return &fakeSessionRepo{m.st} }
func (m *fakeRepoManager) Roles(dbx.DBTX) roles.Repository              { return &fakeRoleRepo{m.st} }

type fakeCredRepo struct{ st *memStore }

func (r *fakeCredRepo) Create(_ context.Context, c *models.Credential) (*models.Credential, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, existing := range r.st.creds {
		if existing.MobileNumber == c.MobileNumber {
			return nil, uniqueViolation(constraintMobileNumber)
		}
	}
	cp := *c
	cp.ID = uuid.NewString()
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.st.creds[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeCredRepo) GetByMobileNumber(_ context.Context, mobileNumber string) (*models.Credential, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.credLookupErr != nil {
		return nil, r.st.credLookupErr
	}
	for _, c := range r.st.creds {
		if c.MobileNumber == mobileNumber {
			cp := *c
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeCredRepo) GetByID(_ context.Context, id string) (*models.Credential, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	c, ok := r.st.creds[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCredRepo) Lock(_ context.Context, id string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.creds[id]; !ok {
		return common.ErrorNotFound
	}
	return nil
}

func (r *fakeCredRepo) UpdatePasswordHash(_ context.Context, id string, hash string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	c, ok := r.st.creds[id]
	if !ok {
		return common.ErrorNotFound
	}
	c.PasswordHash = hash
	r.st.hashUpdates++
	return nil
}

type fakeProfileRepo struct{ st *memStore }

func (r *fakeProfileRepo) Create(_ context.Context, p *models.Profile) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.profileCreateErr != nil {
		return r.st.profileCreateErr
	}
	for _, existing := range r.st.profiles {
		if strings.EqualFold(existing.Username, p.Username) {
			return uniqueViolation(constraintUsername)
		}
	}
	cp := *p
	r.st.profiles[p.ID] = &cp
	return nil
}

func (r *fakeProfileRepo) Get(_ context.Context, id string) (*models.Profile, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.profileGetErr != nil {
		return nil, r.st.profileGetErr
	}
	p, ok := r.st.profiles[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProfileRepo) UsernameTaken(_ context.Context, username string) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, p := range r.st.profiles {
		if strings.EqualFold(p.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeProfileRepo) mutate(id string, fn func(p *models.Profile)) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	p, ok := r.st.profiles[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(p)
	return nil
}

func (r *fakeProfileRepo) SetOnline(_ context.Context, id string, online bool) error {
	return r.mutate(id, func(p *models.Profile) { p.IsOnline = online })
}

func (r *fakeProfileRepo) SetBlocked(_ context.Context, id string, blocked bool) error {
	return r.mutate(id, func(p *models.Profile) { p.IsBlocked = blocked })
}

func (r *fakeProfileRepo) SetAvatarURL(_ context.Context, id string, url string) error {
	return r.mutate(id, func(p *models.Profile) { p.AvatarURL = url })
}

type fakeSessionRepo struct{ st *memStore }

func (r *fakeSessionRepo) Create(_ context.Context, userID string, token string, expiresAt time.Time) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.sessionCreateErr != nil {
		return r.st.sessionCreateErr
	}
	if _, dup := r.st.sessions[token]; dup {
		return uniqueViolation("sessions_session_token_key")
	}
	for _, s := range r.st.sessions {
		if s.UserID == userID && s.IsActive {
			return uniqueViolation("sessions_one_active_per_user")
		}
	}
	r.st.seq++
	r.st.sessions[token] = &models.Session{
		ID:        fmt.Sprintf("s%d", r.st.seq),
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	return nil
}

func (r *fakeSessionRepo) Find(_ context.Context, token string) (*models.Session, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	s, ok := r.st.sessions[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) DeactivateForUser(_ context.Context, userID string) ([]string, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var tokens []string
	for _, s := range r.st.sessions {
		if s.UserID == userID && s.IsActive {
			s.IsActive = false
			tokens = append(tokens, s.Token)
		}
	}
	return tokens, nil
}

func (r *fakeSessionRepo) Deactivate(_ context.Context, token string) (string, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	s, ok := r.st.sessions[token]
	if !ok || !s.IsActive {
		return "", common.ErrorNotFound
	}
	s.IsActive = false
	return s.UserID, nil
}

func (r *fakeSessionRepo) Extend(_ context.Context, token string, expiresAt time.Time, now time.Time) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	s, ok := r.st.sessions[token]
	if !ok || !s.IsActive || !s.ExpiresAt.After(now) {
		return false, nil
	}
	s.ExpiresAt = expiresAt
	return true, nil
}

func (r *fakeSessionRepo) ListForUser(_ context.Context, userID string) ([]*models.Session, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*models.Session
	for _, s := range r.st.sessions {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

type fakeRoleRepo struct{ st *memStore }

func (r *fakeRoleRepo) List(_ context.Context, userID string) ([]string, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return append([]string{}, r.st.roles[userID]...), nil
}

func (r *fakeRoleRepo) Grant(_ context.Context, userID string, role string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if !slices.Contains(r.st.roles[userID], role) {
		r.st.roles[userID] = append(r.st.roles[userID], role)
	}
	return nil
}

func (r *fakeRoleRepo) Revoke(_ context.Context, userID string, role string) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	i := slices.Index(r.st.roles[userID], role)
	if i < 0 {
		return false, nil
	}
	r.st.roles[userID] = slices.Delete(r.st.roles[userID], i, i+1)
	return true, nil
}

// mapCache is an in-process SessionCache. Revoked tokens map to "".
type mapCache struct {
	mu      sync.Mutex
	entries map[string]string
	ttls    map[string]time.Duration
	err     error
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (c *mapCache) Get(_ context.Context, token string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", false, c.err
	}
	v, ok := c.entries[token]
	return v, ok && v != "", nil
}

func (c *mapCache) Set(_ context.Context, token, userID string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if _, ok := c.entries[token]; ok {
		return nil
	}
	c.entries[token] = userID
	c.ttls[token] = ttl
	return nil
}

func (c *mapCache) Revoke(_ context.Context, tokens ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tokens {
		c.entries[t] = ""
	}
	return c.err
}

func (c *mapCache) cached(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[token] != ""
}

// countingLimiter allows max failures per key.
type countingLimiter struct {
	max      int
	failures map[string]int
	err      error
}

func (l *countingLimiter) Allow(_ context.Context, key string) (bool, error) {
	if l.err != nil {
		return true, l.err
	}
	return l.failures[key] < l.max, nil
}

func (l *countingLimiter) Fail(_ context.Context, key string) error {
	l.failures[key]++
	return l.err
}

func (l *countingLimiter) Reset(_ context.Context, key string) error {
	delete(l.failures, key)
	return l.err
}
