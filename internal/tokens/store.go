// Package tokens owns the persisted credential state of a DataPort session and the
// helpers that inspect access token expiry.
package tokens

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/brizzai/dataport-cli/internal/logger"
	"github.com/brizzai/dataport-cli/internal/storage"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Slot names, shared with every storage backend.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
	UserDataKey     = "user_data"
)

// UserData is the cached profile of the authenticated user.
type UserData struct {
	ID          int     `json:"id" yaml:"id"`
	Email       string  `json:"email" yaml:"email"`
	FirstName   string  `json:"first_name" yaml:"first_name"`
	LastName    string  `json:"last_name" yaml:"last_name"`
	ProfileType *string `json:"profile_type,omitempty" yaml:"profile_type,omitempty"`
	IsSuperuser *bool   `json:"is_superuser,omitempty" yaml:"is_superuser,omitempty"`
}

// Store reads and writes the three credential slots. A Store built over a nil backend
// has no persistence: writes are dropped and reads report absent. Backend failures are
// logged and treated the same way; no method returns an error.
type Store struct {
	backend storage.Backend
}

func NewStore(backend storage.Backend) *Store {
	return &Store{backend: backend}
}

// Persistent reports whether a storage backend is attached.
func (s *Store) Persistent() bool {
	return s.backend != nil
}

func (s *Store) get(key string) (string, bool) {
	if s.backend == nil {
		return "", false
	}
	v, err := s.backend.Get(context.Background(), key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Warn("failed to read credential slot", zap.String("slot", key), zap.Error(err))
		}
		return "", false
	}
	if v == "" {
		return "", false
	}
	return v, true
}

func (s *Store) set(key, value string) {
	if s.backend == nil {
		return
	}
	if err := s.backend.Set(context.Background(), key, value); err != nil {
		logger.Warn("failed to write credential slot", zap.String("slot", key), zap.Error(err))
	}
}

func (s *Store) remove(key string) {
	if s.backend == nil {
		return
	}
	if err := s.backend.Remove(context.Background(), key); err != nil {
		logger.Warn("failed to clear credential slot", zap.String("slot", key), zap.Error(err))
	}
}

func (s *Store) AccessToken() (string, bool) {
	return s.get(AccessTokenKey)
}

func (s *Store) RefreshToken() (string, bool) {
	return s.get(RefreshTokenKey)
}

// UserData returns the cached profile; a slot that does not decode counts as absent.
func (s *Store) UserData() (*UserData, bool) {
	raw, ok := s.get(UserDataKey)
	if !ok {
		return nil, false
	}
	var u UserData
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		logger.Debug("discarding unreadable user data", zap.Error(err))
		return nil, false
	}
	return &u, true
}

// SetTokens stores access and, when given, refresh. Omitting refresh leaves the
// stored refresh token as it was.
func (s *Store) SetTokens(access string, refresh ...string) {
	s.set(AccessTokenKey, access)
	if len(refresh) > 0 && refresh[0] != "" {
		s.set(RefreshTokenKey, refresh[0])
	}
	logger.Debug("stored tokens", logger.Token("access", access), zap.Bool("with_refresh", len(refresh) > 0 && refresh[0] != ""))
}

// SetRefreshToken stores refresh without touching the access token.
func (s *Store) SetRefreshToken(refresh string) {
	s.set(RefreshTokenKey, refresh)
}

func (s *Store) SetUserData(u UserData) {
	data, err := json.Marshal(u)
	if err != nil {
		logger.Warn("failed to encode user data", zap.Error(err))
		return
	}
	s.set(UserDataKey, string(data))
}

// ClearAuthData removes all three slots.
func (s *Store) ClearAuthData() {
	s.remove(AccessTokenKey)
	s.remove(RefreshTokenKey)
	s.remove(UserDataKey)
}

// Module provides the token store and inspector
var Module = fx.Module("tokens",
	fx.Provide(
		NewStore,
		NewInspector,
	),
)
