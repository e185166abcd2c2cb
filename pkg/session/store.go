// Package session holds the authentication state shared by the request
// pipeline, the navigation guard and the auth flow: the bearer token, the
// user identity and any in-progress second-factor challenge. State is
// persisted to durable client storage and restored at startup.
package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/flmelody/defender-console-go/pkg/errors"
	"github.com/flmelody/defender-console-go/pkg/interfaces"
	"github.com/flmelody/defender-console-go/pkg/types"
)

// Durable storage keys, identical for both apps.
const (
	StorageKeyToken = "token"
	StorageKeyUser  = "user"
)

// Store is the session store. All mutations are synchronous and
// immediately visible to dependents; there is no buffering.
type Store struct {
	mu sync.RWMutex

	token                 string
	user                  *types.UserInfo
	pendingChallengeToken string
	requiresSecondFactor  bool

	storage interfaces.Storage
	logger  interfaces.Logger
}

// NewStore creates an empty session store persisting into storage.
func NewStore(storage interfaces.Storage, logger interfaces.Logger) *Store {
	return &Store{
		storage: storage,
		logger:  logger,
	}
}

// Hydrate restores the session from durable storage. A corrupt persisted
// user record is discarded and removed, never surfaced: hydration cannot
// fail.
func (s *Store) Hydrate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token, ok := s.storage.Get(StorageKeyToken); ok {
		s.token = token
	}

	raw, ok := s.storage.Get(StorageKeyUser)
	if !ok {
		return
	}
	var user types.UserInfo
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		s.logger.Error("failed to parse stored user data, discarding",
			errors.NewStorageCorruptError(StorageKeyUser, err))
		_ = s.storage.Delete(StorageKeyUser)
		return
	}
	s.user = &user
}

// IsAuthenticated reports whether a session token is present.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Token returns the current session token, empty when anonymous.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the current user identity, nil when anonymous.
func (s *Store) User() *types.UserInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// RequiresSecondFactor reports whether a second-factor challenge is in
// progress.
func (s *Store) RequiresSecondFactor() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requiresSecondFactor
}

// ChallengeToken returns the pending challenge token, empty when no
// challenge is in progress.
func (s *Store) ChallengeToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingChallengeToken
}

// BeginChallenge records a pending second-factor challenge. Any existing
// token is left untouched so a login attempt from one tab cannot destroy a
// valid session held by another.
func (s *Store) BeginChallenge(challengeToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingChallengeToken = challengeToken
	s.requiresSecondFactor = true
}

// CancelChallenge clears challenge state without altering any pre-existing
// token.
func (s *Store) CancelChallenge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingChallengeToken = ""
	s.requiresSecondFactor = false
}

// CompleteAuthentication installs the session token and user, persists
// both, and clears any challenge state.
func (s *Store) CompleteAuthentication(token string, user *types.UserInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.user = user
	s.pendingChallengeToken = ""
	s.requiresSecondFactor = false

	if err := s.storage.Set(StorageKeyToken, token); err != nil {
		s.logger.Error("failed to persist session token", err)
	}
	if user != nil {
		data, err := json.Marshal(user)
		if err == nil {
			err = s.storage.Set(StorageKeyUser, string(data))
		}
		if err != nil {
			s.logger.Error("failed to persist user record", err)
		}
	}
}

// Clear wipes token, user and challenge state, in memory and in durable
// storage. Invalidation is atomic and total: there is no code path that
// clears the persisted token but leaves the in-memory session behind.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.user = nil
	s.pendingChallengeToken = ""
	s.requiresSecondFactor = false

	_ = s.storage.Delete(StorageKeyToken)
	_ = s.storage.Delete(StorageKeyUser)
}

// Claims decodes the bearer token's JWT claims without verifying the
// signature; the backend is the sole authority on validity. Informational
// only, e.g. for showing the session expiry in `defenderctl status`.
func (s *Store) Claims() (jwt.MapClaims, error) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if token == "" {
		return nil, errors.New(errors.ErrorTypeAuth, errors.ErrCodeUnauthorized, "no session token")
	}
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeAuth, errors.ErrCodeUnauthorized, "session token is not a JWT", err)
	}
	return claims, nil
}

// ExpiresAt returns the token's expiry claim when the token is a JWT
// carrying one.
func (s *Store) ExpiresAt() (time.Time, bool) {
	claims, err := s.Claims()
	if err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
