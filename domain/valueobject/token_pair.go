package valueobject

import "time"

// DefaultTokenType is used when the identity service omits the token type.
const DefaultTokenType = "Bearer"

// TokenPair is the persisted unit of session state. Expiries are absolute
// epoch milliseconds so a restored pair stays meaningful across restarts.
type TokenPair struct {
	TokenType        string `json:"tokenType"`
	AccessToken      string `json:"accessToken"`
	RefreshToken     string `json:"refreshToken"`
	ExpiresAt        int64  `json:"expiresAt"`
	RefreshExpiresAt int64  `json:"refreshExpiresAt,omitempty"`
}

// NewTokenPair converts relative lifetimes (seconds, as reported by the
// identity service) into absolute instants at receipt time.
func NewTokenPair(tokenType, accessToken, refreshToken string, expiresIn, refreshExpiresIn int64, now time.Time) *TokenPair {
	if tokenType == "" {
		tokenType = DefaultTokenType
	}
	pair := &TokenPair{
		TokenType:    tokenType,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.UnixMilli() + expiresIn*1000,
	}
	if refreshExpiresIn > 0 {
		pair.RefreshExpiresAt = now.UnixMilli() + refreshExpiresIn*1000
	}
	return pair
}

// Complete reports whether every required field is present. A pair is either
// fully present or treated as absent; partial records are never used.
func (p *TokenPair) Complete() bool {
	return p != nil && p.AccessToken != "" && p.RefreshToken != "" && p.ExpiresAt > 0
}

func (p *TokenPair) ExpiresAtTime() time.Time {
	return time.UnixMilli(p.ExpiresAt)
}

// ExpiresWithin reports whether the access token expires within d of now.
func (p *TokenPair) ExpiresWithin(d time.Duration, now time.Time) bool {
	return p.ExpiresAtTime().Sub(now) <= d
}

// RefreshExpired reports whether the refresh token itself is void. A pair
// without a refresh expiry never reports expired here.
func (p *TokenPair) RefreshExpired(now time.Time) bool {
	if p.RefreshExpiresAt == 0 {
		return false
	}
	return now.UnixMilli() >= p.RefreshExpiresAt
}

// Authorization returns the presentable credential string for the
// Authorization header.
func (p *TokenPair) Authorization() string {
	return p.TokenType + " " + p.AccessToken
}
