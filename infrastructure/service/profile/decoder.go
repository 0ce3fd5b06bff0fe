package profile

import (
	"github.com/golang-jwt/jwt/v5"

	domainerror "github.com/fixora/sessionkit/domain/error"
	"github.com/fixora/sessionkit/domain/valueobject"
)

// Decoder extracts the user profile from access token claims. The signature
// is deliberately not verified: verification is the issuing service's job and
// the client trusts transport security.
type Decoder struct {
	parser *jwt.Parser
}

func NewDecoder() *Decoder {
	return &Decoder{parser: jwt.NewParser()}
}

func (d *Decoder) Decode(accessToken string) (*valueobject.AuthProfile, error) {
	token, _, err := d.parser.ParseUnverified(accessToken, jwt.MapClaims{})
	if err != nil {
		return nil, domainerror.Wrap(domainerror.ErrCodeTokenMalformed, "failed to parse access token payload", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domainerror.New(domainerror.ErrCodeTokenMalformed, "access token carries no claims")
	}

	// sub is the minimal claim set: every token from the identity service
	// carries a subject identifier.
	if stringClaim(claims, "sub") == "" {
		return nil, domainerror.New(domainerror.ErrCodeTokenMissingClaims, "access token is missing the subject claim")
	}

	return &valueobject.AuthProfile{
		Username:  resolveUsername(claims),
		Email:     stringClaim(claims, "email"),
		FirstName: stringClaim(claims, "given_name"),
		LastName:  stringClaim(claims, "family_name"),
	}, nil
}

// resolveUsername picks the best available handle: preferred handle, then
// email, then display name, then subject identifier.
func resolveUsername(claims jwt.MapClaims) string {
	for _, key := range []string{"preferred_username", "email", "name", "sub"} {
		if v := stringClaim(claims, key); v != "" {
			return v
		}
	}
	return ""
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
