// Package auth models the identity subsystem consumed by the retrying client:
// whether token-based auth is active, whether the current credential came from
// a long-lived self-refreshing source, and how to refresh it before it
// expires.
package auth

import "context"

// Identity is the ambient identity of the process as seen by the metastore
// client.
type Identity interface {
	// TokenAuthEnabled reports whether token-based authentication is active
	// at all. When false the refresher is a no-op.
	TokenAuthEnabled() bool

	// FromLongLivedCredential reports whether the identity was established
	// from a long-lived credential source that can refresh itself without
	// user interaction (the keytab case), as opposed to a short-lived
	// manually issued token.
	FromLongLivedCredential() bool

	// RefreshIfNearExpiry refreshes the credential if it is close to
	// expiring. The implementation decides the expiry threshold; callers
	// just trigger the check. A failed refresh returns a *RefreshError.
	RefreshIfNearExpiry(ctx context.Context) error
}

// RefreshError reports a failed credential refresh. It is never retried by
// the metastore client; it propagates out of the call immediately.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return "auth: credential refresh failed: " + e.Err.Error()
}

func (e *RefreshError) Unwrap() error { return e.Err }

// Disabled is an Identity with token auth turned off.
type Disabled struct{}

func (Disabled) TokenAuthEnabled() bool                       { return false }
func (Disabled) FromLongLivedCredential() bool                { return false }
func (Disabled) RefreshIfNearExpiry(context.Context) error    { return nil }
