// Package cryptox hashes and verifies passwords.
//
// New hashes are argon2id with a per-record random salt, encoded in the PHC
// string format. Digests written by the earlier scheme (unsalted SHA-256,
// hex) still verify, and are reported as needing a rehash so callers can
// upgrade them after a successful login.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/townsquare/internal/common"
	"golang.org/x/crypto/argon2"
)

// ErrMalformedHash is returned for a stored hash in neither supported format.
var ErrMalformedHash = errors.New("malformed password hash")

// Params tune argon2id.
type Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
	SaltLen int
}

// DefaultParams follow the argon2 RFC's second recommended profile.
var DefaultParams = Params{Time: 1, Memory: 64 * 1024, Threads: 4, KeyLen: 32, SaltLen: 16}

// Hasher hashes new passwords with fixed Params.
type Hasher struct {
	params Params
}

func NewHasher(p Params) *Hasher {
	return &Hasher{params: p}
}

// Hash returns the PHC-encoded argon2id hash of password.
func (h *Hasher) Hash(password string) (string, error) {
	salt := common.GenerateRandByteArray(h.params.SaltLen)
	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.Memory, h.params.Time, h.params.Threads,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// Verify checks password against encoded. needsRehash is true when the match
// was made against a legacy digest or against argon2 params other than the
// hasher's own.
func (h *Hasher) Verify(password, encoded string) (ok bool, needsRehash bool, err error) {
	if isLegacyDigest(encoded) {
		sum := sha256.Sum256([]byte(password))
		candidate := hex.EncodeToString(sum[:])
		ok = subtle.ConstantTimeCompare([]byte(candidate), []byte(strings.ToLower(encoded))) == 1
		return ok, ok, nil
	}

	p, salt, key, err := decodeArgon2id(encoded)
	if err != nil {
		return false, false, err
	}

	candidate := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, uint32(len(key)))
	if subtle.ConstantTimeCompare(candidate, key) != 1 {
		return false, false, nil
	}

	stale := p.Time != h.params.Time || p.Memory != h.params.Memory ||
		p.Threads != h.params.Threads || uint32(len(key)) != h.params.KeyLen
	return true, stale, nil
}

// LegacyDigest reproduces the unsalted SHA-256 hex digest of the earlier
// scheme. Only tests and data imports should need it.
func LegacyDigest(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func isLegacyDigest(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func decodeArgon2id(encoded string) (Params, []byte, []byte, error) {
	var p Params

	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, ErrMalformedHash
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return p, nil, nil, ErrMalformedHash
	}
	// argon2.IDKey panics on zero cost parameters.
	if p.Memory < 1 || p.Time < 1 || p.Threads < 1 {
		return p, nil, nil, ErrMalformedHash
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, ErrMalformedHash
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, ErrMalformedHash
	}

	p.SaltLen = len(salt)
	p.KeyLen = uint32(len(key))
	return p, salt, key, nil
}
