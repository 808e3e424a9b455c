package auth

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeToken(t *testing.T, dir, token string, expiresAt time.Time) string {
	t.Helper()
	path := filepath.Join(dir, "token.json")
	data, err := json.Marshal(map[string]any{
		"token":      token,
		"expires_at": expiresAt,
	})
	if err != nil {
		t.Fatalf("Failed to marshal token: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("Failed to write token file: %v", err)
	}
	return path
}

func TestTokenFileLoad(t *testing.T) {
	path := writeToken(t, t.TempDir(), "abc123", time.Now().Add(time.Hour))

	tf, err := NewTokenFile(path, 0)
	if err != nil {
		t.Fatalf("NewTokenFile failed: %v", err)
	}
	if tf.Token() != "abc123" {
		t.Errorf("Expected token abc123, got %q", tf.Token())
	}
	if !tf.TokenAuthEnabled() || !tf.FromLongLivedCredential() {
		t.Error("Token file identity must report token auth and a long-lived source")
	}
}

func TestTokenFileFreshTokenNotReloaded(t *testing.T) {
	dir := t.TempDir()
	path := writeToken(t, dir, "fresh", time.Now().Add(time.Hour))

	tf, err := NewTokenFile(path, time.Minute)
	if err != nil {
		t.Fatalf("NewTokenFile failed: %v", err)
	}

	// Rotate the file; a fresh token must not trigger a re-read.
	writeToken(t, dir, "rotated", time.Now().Add(time.Hour))
	if err := tf.RefreshIfNearExpiry(context.Background()); err != nil {
		t.Fatalf("RefreshIfNearExpiry failed: %v", err)
	}
	if tf.Token() != "fresh" {
		t.Errorf("Expected the cached token, got %q", tf.Token())
	}
}

func TestTokenFileRefreshNearExpiry(t *testing.T) {
	dir := t.TempDir()
	path := writeToken(t, dir, "expiring", time.Now().Add(30*time.Second))

	tf, err := NewTokenFile(path, time.Minute)
	if err != nil {
		t.Fatalf("NewTokenFile failed: %v", err)
	}

	writeToken(t, dir, "rotated", time.Now().Add(time.Hour))
	if err := tf.RefreshIfNearExpiry(context.Background()); err != nil {
		t.Fatalf("RefreshIfNearExpiry failed: %v", err)
	}
	if tf.Token() != "rotated" {
		t.Errorf("Expected the rotated token, got %q", tf.Token())
	}
}

func TestTokenFileRefreshFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeToken(t, dir, "expiring", time.Now().Add(time.Second))

	tf, err := NewTokenFile(path, time.Minute)
	if err != nil {
		t.Fatalf("NewTokenFile failed: %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	err = tf.RefreshIfNearExpiry(context.Background())
	var re *RefreshError
	if !errors.As(err, &re) {
		t.Fatalf("Expected a RefreshError, got %v", err)
	}
	// The stale token stays usable until a refresh succeeds.
	if tf.Token() != "expiring" {
		t.Errorf("Expected the previous token to remain, got %q", tf.Token())
	}
}

func TestTokenFileRejectsExpired(t *testing.T) {
	path := writeToken(t, t.TempDir(), "dead", time.Now().Add(-time.Hour))
	if _, err := NewTokenFile(path, 0); err == nil {
		t.Error("Expected an error loading an already-expired token")
	}
}

func TestTokenFilePerRPCMetadata(t *testing.T) {
	path := writeToken(t, t.TempDir(), "abc123", time.Now().Add(time.Hour))
	tf, err := NewTokenFile(path, 0)
	if err != nil {
		t.Fatalf("NewTokenFile failed: %v", err)
	}

	md, err := tf.GetRequestMetadata(context.Background())
	if err != nil {
		t.Fatalf("GetRequestMetadata failed: %v", err)
	}
	if md["authorization"] != "Bearer abc123" {
		t.Errorf("Unexpected metadata: %v", md)
	}
}
