package valueobject

import (
	"errors"
	"regexp"
)

var (
	ErrInvalidEmail    = errors.New("invalid email format")
	ErrMissingPassword = errors.New("password is required")
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Credentials is the login submission. CaptchaToken is an opaque passthrough
// for the identity service; this client never verifies it.
type Credentials struct {
	email        string
	password     string
	captchaToken string
}

func NewCredentials(email, password, captchaToken string) (*Credentials, error) {
	if !emailRegex.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if password == "" {
		return nil, ErrMissingPassword
	}
	return &Credentials{
		email:        email,
		password:     password,
		captchaToken: captchaToken,
	}, nil
}

func (c *Credentials) Email() string {
	return c.email
}

func (c *Credentials) Password() string {
	return c.password
}

func (c *Credentials) CaptchaToken() string {
	return c.captchaToken
}
