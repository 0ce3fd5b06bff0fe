package outbound

import "context"

// TokenResponse is the identity service's answer to a login or refresh
// request. Lifetimes are relative seconds; the manager converts them to
// absolute instants at receipt time.
type TokenResponse struct {
	TokenType        string `json:"tokenType"`
	AccessToken      string `json:"accessToken"`
	RefreshToken     string `json:"refreshToken"`
	ExpiresIn        int64  `json:"expiresIn"`
	RefreshExpiresIn int64  `json:"refreshExpiresIn,omitempty"`
}

// IdentityClient reaches the external identity service. Credentials are
// issued there; this client only exchanges them.
type IdentityClient interface {
	Login(ctx context.Context, email, password, captchaToken string) (*TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
	// Logout asks the service to revoke the refresh token. Best-effort:
	// failures are logged by the caller, never surfaced to the user.
	Logout(ctx context.Context, refreshToken string) error
}
