package tokens

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/brizzai/dataport-cli/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultRefreshBuffer treats a token as expired this long before its exp claim.
const DefaultRefreshBuffer = 5 * time.Minute

// segmentParser only decodes segments; signatures are the server's business.
var segmentParser = jwt.NewParser()

// GetExpiration returns the exp claim of a JWT without verifying it. ok is false when
// the token is not three dot-separated segments, the payload is not base64url JSON,
// or there is no exp claim.
func GetExpiration(token string) (exp time.Time, ok bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return time.Time{}, false
	}

	payload, err := segmentParser.DecodeSegment(parts[1])
	if err != nil {
		return time.Time{}, false
	}

	// exp is read as a plain number; jwt.NumericDate would round it to whole seconds
	var claims struct {
		ExpiresAt *json.Number `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	seconds, err := claims.ExpiresAt.Float64()
	if err != nil || math.IsInf(seconds, 0) || math.IsNaN(seconds) {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(math.Round(seconds * 1000))), true
}

// IsExpired reports whether now is within buffer of the token's expiry. Tokens whose
// expiry cannot be read are always expired.
func IsExpired(token string, buffer time.Duration) bool {
	return isExpiredAt(token, buffer, time.Now())
}

func isExpiredAt(token string, buffer time.Duration, now time.Time) bool {
	exp, ok := GetExpiration(token)
	if !ok {
		return true
	}
	return !now.Before(exp.Add(-buffer))
}

// Inspector answers expiry questions about the stored access token.
type Inspector struct {
	store  *Store
	buffer time.Duration
	now    func() time.Time
}

func NewInspector(store *Store, cfg *config.Config) *Inspector {
	buffer := DefaultRefreshBuffer
	if cfg != nil && cfg.API.RefreshBuffer > 0 {
		buffer = cfg.API.RefreshBuffer
	}
	return &Inspector{store: store, buffer: buffer, now: time.Now}
}

// SetClock replaces the time source, for tests.
func (i *Inspector) SetClock(now func() time.Time) {
	i.now = now
}

func (i *Inspector) Buffer() time.Duration {
	return i.buffer
}

// IsExpired applies the inspector's buffer and clock to token.
func (i *Inspector) IsExpired(token string) bool {
	return isExpiredAt(token, i.buffer, i.now())
}

// NearExpiry is true only when token carries a readable exp and now is within the
// buffer of it. Unlike IsExpired it never guesses about opaque tokens.
func (i *Inspector) NearExpiry(token string) bool {
	if _, ok := GetExpiration(token); !ok {
		return false
	}
	return i.IsExpired(token)
}

// ShouldRefresh is true only when an access token is stored and it is expired.
func (i *Inspector) ShouldRefresh() bool {
	access, ok := i.store.AccessToken()
	if !ok {
		return false
	}
	return i.IsExpired(access)
}

// AccessExpiry returns the expiry of the stored access token, if readable.
func (i *Inspector) AccessExpiry() (time.Time, bool) {
	access, ok := i.store.AccessToken()
	if !ok {
		return time.Time{}, false
	}
	return GetExpiration(access)
}
