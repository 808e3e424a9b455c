package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// DefaultRefreshWindow is how close to expiry a token may get before
// RefreshIfNearExpiry re-reads the token file.
const DefaultRefreshWindow = 5 * time.Minute

// tokenPayload is the on-disk token format. An external agent (or a cron'd
// issuer) rotates the file; this process only re-reads it.
type tokenPayload struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenFile is an Identity backed by a rotating bearer-token file. It is the
// long-lived credential case: the file outlives any single token and can be
// re-read at any time to pick up the current one.
//
// TokenFile also implements gRPC per-RPC credentials, so the remote client
// can attach the current token to every call.
type TokenFile struct {
	path   string
	window time.Duration

	mu      sync.RWMutex
	token   string
	expires time.Time
}

// NewTokenFile loads the token file at path. A zero refreshWindow selects
// DefaultRefreshWindow.
func NewTokenFile(path string, refreshWindow time.Duration) (*TokenFile, error) {
	if refreshWindow <= 0 {
		refreshWindow = DefaultRefreshWindow
	}
	tf := &TokenFile{path: path, window: refreshWindow}
	if err := tf.reload(); err != nil {
		return nil, err
	}
	return tf, nil
}

func (tf *TokenFile) TokenAuthEnabled() bool { return true }

func (tf *TokenFile) FromLongLivedCredential() bool { return true }

// RefreshIfNearExpiry re-reads the token file if the cached token is within
// the refresh window of its expiry. Safe for concurrent use; concurrent
// refreshes both re-read and last-writer-wins.
func (tf *TokenFile) RefreshIfNearExpiry(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tf.mu.RLock()
	fresh := time.Until(tf.expires) > tf.window
	tf.mu.RUnlock()
	if fresh {
		return nil
	}

	if err := tf.reload(); err != nil {
		return &RefreshError{Err: err}
	}
	return nil
}

func (tf *TokenFile) reload() error {
	data, err := os.ReadFile(tf.path)
	if err != nil {
		return fmt.Errorf("failed to read token file %s: %w", tf.path, err)
	}

	var p tokenPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("failed to parse token file %s: %w", tf.path, err)
	}
	if p.Token == "" {
		return fmt.Errorf("token file %s holds an empty token", tf.path)
	}
	if !p.ExpiresAt.IsZero() && time.Now().After(p.ExpiresAt) {
		return fmt.Errorf("token file %s holds an expired token (expired %s)", tf.path, p.ExpiresAt.Format(time.RFC3339))
	}

	tf.mu.Lock()
	tf.token = p.Token
	tf.expires = p.ExpiresAt
	tf.mu.Unlock()
	return nil
}

// Token returns the current bearer token.
func (tf *TokenFile) Token() string {
	tf.mu.RLock()
	defer tf.mu.RUnlock()
	return tf.token
}

// GetRequestMetadata implements credentials.PerRPCCredentials.
func (tf *TokenFile) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + tf.Token()}, nil
}

// RequireTransportSecurity implements credentials.PerRPCCredentials. Tokens
// may ride plaintext connections in dev setups.
func (tf *TokenFile) RequireTransportSecurity() bool { return false }
