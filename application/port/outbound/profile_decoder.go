package outbound

import "github.com/fixora/sessionkit/domain/valueobject"

// ProfileDecoder extracts the user profile from the access token's
// self-describing payload. Pure function, no I/O; signature verification is
// the issuing service's responsibility.
type ProfileDecoder interface {
	Decode(accessToken string) (*valueobject.AuthProfile, error)
}
