package tokens

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/brizzai/dataport-cli/internal/config"
	"github.com/brizzai/dataport-cli/internal/storage"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mintToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"token_type": "access",
		"exp":        exp.Unix(),
		"user_id":    7,
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func rawToken(payload string) string {
	return "eyJhbGciOiJIUzI1NiJ9." + base64.RawURLEncoding.EncodeToString([]byte(payload)) + ".sig"
}

// failingBackend fails every call.
type failingBackend struct{}

func (failingBackend) Get(context.Context, string) (string, error) { return "", errors.New("boom") }
func (failingBackend) Set(context.Context, string, string) error  { return errors.New("boom") }
func (failingBackend) Remove(context.Context, string) error       { return errors.New("boom") }

func TestStore_Tokens(t *testing.T) {
	s := NewStore(storage.NewMemoryBackend())

	_, ok := s.AccessToken()
	assert.False(t, ok)

	s.SetTokens("A", "R")
	access, ok := s.AccessToken()
	require.True(t, ok)
	assert.Equal(t, "A", access)
	refresh, ok := s.RefreshToken()
	require.True(t, ok)
	assert.Equal(t, "R", refresh)

	s.SetTokens("A2")
	refresh, _ = s.RefreshToken()
	assert.Equal(t, "R", refresh, "omitted refresh is left untouched")

	s.SetRefreshToken("R2")
	access, _ = s.AccessToken()
	assert.Equal(t, "A2", access, "setting refresh leaves access untouched")
}

func TestStore_UserDataRoundTrip(t *testing.T) {
	profile := "analyst"
	super := false
	tests := []struct {
		name string
		user UserData
	}{
		{name: "minimal", user: UserData{ID: 1, Email: "a@example.com", FirstName: "Ana", LastName: "Lima"}},
		{name: "optional fields", user: UserData{ID: 2, Email: "b@example.com", ProfileType: &profile, IsSuperuser: &super}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(storage.NewMemoryBackend())
			s.SetUserData(tt.user)

			got, ok := s.UserData()
			require.True(t, ok)
			if diff := cmp.Diff(tt.user, *got); diff != "" {
				t.Errorf("user data mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStore_UserDataUnparseable(t *testing.T) {
	backend := storage.NewMemoryBackend()
	require.NoError(t, backend.Set(context.Background(), UserDataKey, "{broken"))

	u, ok := NewStore(backend).UserData()
	assert.False(t, ok)
	assert.Nil(t, u)
}

func TestStore_ClearAuthData(t *testing.T) {
	s := NewStore(storage.NewMemoryBackend())
	s.SetTokens("A", "R")
	s.SetUserData(UserData{ID: 1})

	s.ClearAuthData()

	_, ok := s.AccessToken()
	assert.False(t, ok)
	_, ok = s.RefreshToken()
	assert.False(t, ok)
	_, ok = s.UserData()
	assert.False(t, ok)

	assert.NotPanics(t, s.ClearAuthData, "clearing twice is harmless")
}

func TestStore_WithoutBackend(t *testing.T) {
	for name, s := range map[string]*Store{
		"nil backend":     NewStore(nil),
		"failing backend": NewStore(failingBackend{}),
	} {
		t.Run(name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				s.SetTokens("A", "R")
				s.SetUserData(UserData{ID: 1})
				s.ClearAuthData()
			})
			_, ok := s.AccessToken()
			assert.False(t, ok)
			_, ok = s.RefreshToken()
			assert.False(t, ok)
			_, ok = s.UserData()
			assert.False(t, ok)
		})
	}
	assert.False(t, NewStore(nil).Persistent())
}

func TestGetExpiration(t *testing.T) {
	exp := time.Unix(1_900_000_000, 0)

	tests := []struct {
		name   string
		token  string
		want   time.Time
		wantOK bool
	}{
		{name: "signed jwt", token: mintToken(t, exp), want: exp, wantOK: true},
		{name: "fractional exp keeps milliseconds", token: rawToken(`{"exp":1900000000.9}`), want: exp.Add(900 * time.Millisecond), wantOK: true},
		{name: "half second", token: rawToken(`{"exp":1900000000.5}`), want: exp.Add(500 * time.Millisecond), wantOK: true},
		{name: "ignores header", token: "garbage." + base64.RawURLEncoding.EncodeToString([]byte(`{"exp":1900000000}`)) + ".x", want: exp, wantOK: true},
		{name: "no exp", token: rawToken(`{"sub":"1"}`)},
		{name: "exp not a number", token: rawToken(`{"exp":"soon"}`)},
		{name: "payload not json", token: rawToken(`not json`)},
		{name: "payload not base64", token: "a.!!!.c"},
		{name: "two segments", token: "a.b"},
		{name: "four segments", token: "a.b.c.d"},
		{name: "empty", token: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := GetExpiration(tt.token)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.True(t, tt.want.Equal(got), "want %v got %v", tt.want, got)
			}
		})
	}
}

func TestIsExpired(t *testing.T) {
	exp := time.Unix(1_900_000_000, 0)
	token := mintToken(t, exp)
	buffer := 5 * time.Minute

	tests := []struct {
		name  string
		token string
		now   time.Time
		want  bool
	}{
		{name: "well before buffer", token: token, now: exp.Add(-10 * time.Minute), want: false},
		{name: "just before buffer", token: token, now: exp.Add(-buffer - time.Millisecond), want: false},
		{name: "exactly at buffer", token: token, now: exp.Add(-buffer), want: true},
		{name: "inside buffer", token: token, now: exp.Add(-time.Minute), want: true},
		{name: "past exp", token: token, now: exp.Add(time.Hour), want: true},
		{name: "malformed", token: "nope", now: exp.Add(-time.Hour), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isExpiredAt(tt.token, buffer, tt.now))
		})
	}

	fractional := rawToken(`{"exp":1900000000.9}`)
	expMs := exp.Add(900 * time.Millisecond)
	assert.False(t, isExpiredAt(fractional, buffer, expMs.Add(-buffer-100*time.Millisecond)))
	assert.True(t, isExpiredAt(fractional, buffer, expMs.Add(-buffer)))

	assert.False(t, IsExpired(mintToken(t, time.Now().Add(time.Hour)), DefaultRefreshBuffer))
	assert.True(t, IsExpired(mintToken(t, time.Now().Add(time.Minute)), DefaultRefreshBuffer))
	assert.True(t, IsExpired("malformed", 0))
}

func TestInspector_ShouldRefresh(t *testing.T) {
	now := time.Unix(1_800_000_000, 0)
	store := NewStore(storage.NewMemoryBackend())
	inspector := NewInspector(store, nil)
	inspector.SetClock(func() time.Time { return now })
	assert.Equal(t, DefaultRefreshBuffer, inspector.Buffer())

	assert.False(t, inspector.ShouldRefresh(), "no token, nothing to refresh")

	store.SetTokens(mintToken(t, now.Add(time.Hour)))
	assert.False(t, inspector.ShouldRefresh())
	expiry, ok := inspector.AccessExpiry()
	require.True(t, ok)
	assert.True(t, now.Add(time.Hour).Equal(expiry))

	store.SetTokens(mintToken(t, now.Add(2*time.Minute)))
	assert.True(t, inspector.ShouldRefresh())

	store.SetTokens("opaque-token")
	assert.True(t, inspector.ShouldRefresh(), "unreadable tokens are refreshed")
}

func TestInspector_NearExpiry(t *testing.T) {
	now := time.Unix(1_800_000_000, 0)
	inspector := NewInspector(NewStore(nil), nil)
	inspector.SetClock(func() time.Time { return now })

	assert.True(t, inspector.NearExpiry(mintToken(t, now.Add(time.Minute))))
	assert.False(t, inspector.NearExpiry(mintToken(t, now.Add(time.Hour))))
	assert.False(t, inspector.NearExpiry("opaque-token"), "no exp to judge by")
	assert.False(t, inspector.NearExpiry(rawToken(`{"sub":"1"}`)))
}

func TestNewInspector_BufferFromConfig(t *testing.T) {
	cfg := &config.Config{API: config.APIConfig{RefreshBuffer: time.Minute}}
	assert.Equal(t, time.Minute, NewInspector(NewStore(nil), cfg).Buffer())
}
