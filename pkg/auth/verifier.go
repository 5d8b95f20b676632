package auth

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/crypto/bcrypt"

	"github.com/alcadeta/portfolio-goteam/pkg/storage"
)

var (
	// ErrNotAuthenticated is returned when a token cannot be matched to
	// the named user.
	ErrNotAuthenticated = errors.New("auth: not authenticated")

	// ErrNotAuthorized is returned when an authenticated user lacks the
	// role or team membership an action requires.
	ErrNotAuthorized = errors.New("auth: not authorized")
)

// Identity is the authenticated caller attached to a request after token
// verification succeeds.
type Identity struct {
	Username string
	TeamID   int64
	IsAdmin  bool
}

const (
	defaultCacheSize = 4096
	defaultCacheTTL  = 5 * time.Minute
)

// Verifier checks bearer tokens against stored user credentials. Successful
// verifications are cached so the bcrypt comparison, which is deliberately
// slow, runs at most once per token per TTL window.
type Verifier struct {
	store storage.Store
	cache *expirable.LRU[[32]byte, Identity]
}

// NewVerifier returns a Verifier backed by the given store.
func NewVerifier(store storage.Store) *Verifier {
	return &Verifier{
		store: store,
		cache: expirable.NewLRU[[32]byte, Identity](defaultCacheSize, nil, defaultCacheTTL),
	}
}

// tokenDigest is the fixed-width input the token bcrypt hash is computed
// over. bcrypt only reads the first 72 bytes of its input, so the username
// and password hash are collapsed through SHA-256 first.
func tokenDigest(username string, passwordHash []byte) []byte {
	digest := sha256.Sum256(append([]byte(username), passwordHash...))
	return digest[:]
}

// GenerateToken mints an auth token for the given user. The token stays
// valid until the user's password hash changes.
func GenerateToken(username string, passwordHash []byte) (string, error) {
	token, err := bcrypt.GenerateFromPassword(tokenDigest(username, passwordHash), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return string(token), nil
}

// Verify checks that token belongs to username and returns the caller's
// identity. Blank credentials, unknown users, and mismatched tokens all
// fail with ErrNotAuthenticated; the caller cannot distinguish which, so
// the endpoint leaks nothing about account existence.
func (v *Verifier) Verify(ctx context.Context, username, token string) (Identity, error) {
	if username == "" || token == "" {
		return Identity{}, ErrNotAuthenticated
	}

	key := sha256.Sum256([]byte(username + "\x00" + token))
	if identity, ok := v.cache.Get(key); ok {
		return identity, nil
	}

	user, err := v.store.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Identity{}, ErrNotAuthenticated
		}
		return Identity{}, fmt.Errorf("verify token: %w", err)
	}

	// A malformed token is just an invalid one.
	if bcrypt.CompareHashAndPassword([]byte(token), tokenDigest(username, user.PasswordHash)) != nil {
		return Identity{}, ErrNotAuthenticated
	}

	identity := Identity{
		Username: user.Username,
		TeamID:   user.TeamID,
		IsAdmin:  user.IsAdmin,
	}
	v.cache.Add(key, identity)
	return identity, nil
}
