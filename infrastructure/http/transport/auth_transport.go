package transport

import (
	"net/http"

	"github.com/fixora/sessionkit/application/port/inbound"
)

// AuthTransport is an http.RoundTripper that presents the current access
// credential on every request, retries exactly once after a successful
// refresh when a request comes back unauthorized, and escalates to the
// session manager when the retry fails too. Successful authenticated
// responses count as user activity.
type AuthTransport struct {
	Base  http.RoundTripper
	Hooks inbound.AuthHooks
	// OnActivity is invoked after every successful authenticated response.
	OnActivity func()
}

func NewAuthTransport(base http.RoundTripper, hooks inbound.AuthHooks, onActivity func()) *AuthTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &AuthTransport{Base: base, Hooks: hooks, OnActivity: onActivity}
}

func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := t.Hooks.Token()

	resp, err := t.Base.RoundTrip(t.withAuthorization(req, token))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized || token == "" {
		if resp.StatusCode < http.StatusBadRequest && token != "" && t.OnActivity != nil {
			t.OnActivity()
		}
		return resp, nil
	}

	// retry requires a replayable body
	if req.Body != nil && req.GetBody == nil {
		t.Hooks.OnUnauthorized()
		return resp, nil
	}

	if !t.Hooks.TryRefresh(req.Context()) {
		// a failed refresh has already torn the session down
		return resp, nil
	}

	resp.Body.Close()

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}

	resp, err = t.Base.RoundTrip(t.withAuthorization(retry, t.Hooks.Token()))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		t.Hooks.OnUnauthorized()
	} else if resp.StatusCode < http.StatusBadRequest && t.OnActivity != nil {
		t.OnActivity()
	}

	return resp, nil
}

func (t *AuthTransport) withAuthorization(req *http.Request, token string) *http.Request {
	if token == "" {
		return req
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", token)
	return clone
}
