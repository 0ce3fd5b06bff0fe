package valueobject

// AuthProfile is derived from the access token's claims every time a new
// TokenPair is applied. It is never persisted on its own.
type AuthProfile struct {
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}
