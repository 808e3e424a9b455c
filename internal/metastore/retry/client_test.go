package retry

import (
	"context"
	"errors"
	"net"
	"sync"
	"syscall"
	"testing"
	"time"

	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jbjoujoute/hive/internal/core/catalog"
	"github.com/jbjoujoute/hive/internal/metastore/auth"
)

// fakeClient scripts per-attempt failures and counts interactions with the
// wrapper. The error script applies to the data methods in call order;
// attempts beyond the script succeed.
type fakeClient struct {
	mu         sync.Mutex
	calls      int
	reconnects int
	closeCalls int

	local        bool
	errs         []error
	callLatency  time.Duration
	reconnectErr error
	closeErr     error
}

func (f *fakeClient) step() error {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()

	if f.callLatency > 0 {
		time.Sleep(f.callLatency)
	}
	if n <= len(f.errs) {
		return f.errs[n-1]
	}
	return nil
}

func (f *fakeClient) GetDatabase(ctx context.Context, name string) (*catalog.Database, error) {
	if err := f.step(); err != nil {
		return nil, err
	}
	return &catalog.Database{Name: name}, nil
}

func (f *fakeClient) GetAllDatabases(ctx context.Context) ([]string, error) {
	if err := f.step(); err != nil {
		return nil, err
	}
	return []string{"default"}, nil
}

func (f *fakeClient) CreateDatabase(ctx context.Context, db *catalog.Database) error {
	return f.step()
}

func (f *fakeClient) DropDatabase(ctx context.Context, name string) error {
	return f.step()
}

func (f *fakeClient) GetTable(ctx context.Context, dbName, tableName string) (*catalog.Table, error) {
	if err := f.step(); err != nil {
		return nil, err
	}
	return &catalog.Table{DBName: dbName, Name: tableName}, nil
}

func (f *fakeClient) GetTables(ctx context.Context, dbName, pattern string) ([]string, error) {
	if err := f.step(); err != nil {
		return nil, err
	}
	return []string{"events"}, nil
}

func (f *fakeClient) CreateTable(ctx context.Context, tbl *catalog.Table) error {
	return f.step()
}

func (f *fakeClient) AlterTable(ctx context.Context, dbName, tableName string, tbl *catalog.Table) error {
	return f.step()
}

func (f *fakeClient) DropTable(ctx context.Context, dbName, tableName string) error {
	return f.step()
}

func (f *fakeClient) AddPartition(ctx context.Context, part *catalog.Partition) error {
	return f.step()
}

func (f *fakeClient) GetPartition(ctx context.Context, dbName, tableName string, values []string) (*catalog.Partition, error) {
	if err := f.step(); err != nil {
		return nil, err
	}
	return &catalog.Partition{DBName: dbName, TableName: tableName, Values: values}, nil
}

func (f *fakeClient) DropPartition(ctx context.Context, dbName, tableName string, values []string) error {
	return f.step()
}

func (f *fakeClient) Reconnect() error {
	f.mu.Lock()
	f.reconnects++
	f.mu.Unlock()
	return f.reconnectErr
}

func (f *fakeClient) IsLocal() bool { return f.local }

func (f *fakeClient) Close() error {
	f.mu.Lock()
	f.closeCalls++
	f.mu.Unlock()
	return f.closeErr
}

// warnCounter counts warning records emitted by the wrapper.
type warnCounter struct {
	mu    sync.Mutex
	warns int
}

func (h *warnCounter) Enabled(_ context.Context, l slog.Level) bool { return l >= slog.LevelWarn }

func (h *warnCounter) Handle(_ context.Context, r slog.Record) error {
	if r.Level == slog.LevelWarn {
		h.mu.Lock()
		h.warns++
		h.mu.Unlock()
	}
	return nil
}

func (h *warnCounter) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *warnCounter) WithGroup(string) slog.Handler      { return h }

func (h *warnCounter) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.warns
}

type fakeIdentity struct {
	enabled   bool
	longLived bool
	refreshes int
	err       error
}

func (f *fakeIdentity) TokenAuthEnabled() bool        { return f.enabled }
func (f *fakeIdentity) FromLongLivedCredential() bool { return f.longLived }

func (f *fakeIdentity) RefreshIfNearExpiry(ctx context.Context) error {
	f.refreshes++
	if f.err != nil {
		return &auth.RefreshError{Err: f.err}
	}
	return nil
}

func transientErr(msg string) error {
	return status.Error(codes.Unavailable, msg)
}

// TestRetriesThenSuccess covers the canonical scenario: two transport
// failures, then success. The caller sees one successful result, two warning
// logs, two forced reconnects, and one timing entry for the successful
// attempt only.
func TestRetriesThenSuccess(t *testing.T) {
	base := &fakeClient{errs: []error{transientErr("reset"), transientErr("reset")}}
	warns := &warnCounter{}
	timings := NewTimings()

	c := New(base,
		Config{RetryLimit: 2, RetryDelay: 30 * time.Millisecond},
		WithLogger(slog.New(warns)),
		WithTimings(timings),
	)

	start := time.Now()
	tbl, err := c.GetTable(context.Background(), "default", "events")
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if tbl == nil || tbl.Name != "events" {
		t.Errorf("Unexpected table result: %+v", tbl)
	}
	if base.calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", base.calls)
	}
	if base.reconnects != 2 {
		t.Errorf("Expected a forced reconnect before each retry, got %d", base.reconnects)
	}
	if elapsed < 60*time.Millisecond {
		t.Errorf("Expected at least 2 retry delays (60ms), elapsed %v", elapsed)
	}
	if warns.count() != 2 {
		t.Errorf("Expected exactly 2 warnings, got %d", warns.count())
	}

	snap := timings.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("Expected 1 timing entry, got %v", snap)
	}
	if snap["GetTable_(string, string)"] <= 0 {
		t.Errorf("Expected positive accumulated time, got %v", snap)
	}
}

// TestFatalNotRetried: an unknown-method failure must surface unchanged with
// no sleeps and no further attempts.
func TestFatalNotRetried(t *testing.T) {
	fatal := status.Error(codes.Unimplemented, "unknown method GetTable2")
	base := &fakeClient{errs: []error{fatal}}
	warns := &warnCounter{}

	c := New(base,
		Config{RetryLimit: 2, RetryDelay: time.Second},
		WithLogger(slog.New(warns)),
	)

	start := time.Now()
	_, err := c.GetTable(context.Background(), "default", "events")
	elapsed := time.Since(start)

	if err != fatal {
		t.Errorf("Expected the exact original error back, got %v", err)
	}
	if base.calls != 1 {
		t.Errorf("Expected 1 attempt, got %d", base.calls)
	}
	if elapsed >= time.Second {
		t.Errorf("Expected no retry sleep, elapsed %v", elapsed)
	}
	if warns.count() != 0 {
		t.Errorf("Expected no warnings for a fatal failure, got %d", warns.count())
	}
}

// TestRetryExhausted: the last retryable failure is returned unchanged once
// the attempt budget is spent.
func TestRetryExhausted(t *testing.T) {
	errs := []error{transientErr("a"), transientErr("b"), transientErr("c"), transientErr("d")}
	base := &fakeClient{errs: errs}

	c := New(base,
		Config{RetryLimit: 2, RetryDelay: 5 * time.Millisecond},
		WithLogger(slog.New(&warnCounter{})),
	)

	_, err := c.GetTable(context.Background(), "default", "events")

	if base.calls != 3 {
		t.Errorf("Expected retryLimit+1 = 3 attempts, got %d", base.calls)
	}
	if err != errs[2] {
		t.Errorf("Expected the last attempted failure unchanged, got %v", err)
	}
}

// TestRetryForbiddenMethod: a method marked unsafe to retry rethrows on the
// first retryable failure with zero sleeps.
func TestRetryForbiddenMethod(t *testing.T) {
	failure := transientErr("reset")
	base := &fakeClient{errs: []error{failure}}
	warns := &warnCounter{}

	c := New(base,
		Config{RetryLimit: 5, RetryDelay: time.Second},
		WithLogger(slog.New(warns)),
	)

	start := time.Now()
	err := c.CreateTable(context.Background(), &catalog.Table{DBName: "default", Name: "events"})
	elapsed := time.Since(start)

	if err != failure {
		t.Errorf("Expected the original failure, got %v", err)
	}
	if base.calls != 1 {
		t.Errorf("Expected 1 attempt, got %d", base.calls)
	}
	if elapsed >= time.Second {
		t.Errorf("Expected zero sleeps, elapsed %v", elapsed)
	}
	if warns.count() != 0 {
		t.Errorf("Expected no retry warnings, got %d", warns.count())
	}
}

// TestLocalTargetNoRetry: a local target bypasses the retry budget entirely.
func TestLocalTargetNoRetry(t *testing.T) {
	failure := transientErr("reset")
	base := &fakeClient{local: true, errs: []error{failure}}

	c := New(base,
		Config{RetryLimit: 5, RetryDelay: time.Second},
		WithLogger(slog.New(&warnCounter{})),
	)

	start := time.Now()
	_, err := c.GetTable(context.Background(), "default", "events")
	elapsed := time.Since(start)

	if err != failure {
		t.Errorf("Expected immediate rethrow, got %v", err)
	}
	if base.calls != 1 {
		t.Errorf("Expected 1 attempt, got %d", base.calls)
	}
	if base.reconnects != 0 {
		t.Errorf("Expected no reconnects for a local target, got %d", base.reconnects)
	}
	if elapsed >= time.Second {
		t.Errorf("Expected no sleep, elapsed %v", elapsed)
	}
}

func TestNoReconnectWithoutAging(t *testing.T) {
	base := &fakeClient{}
	c := New(base, Config{RetryLimit: 2, RetryDelay: time.Millisecond})

	if _, err := c.GetTable(context.Background(), "default", "events"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if base.reconnects != 0 {
		t.Errorf("Expected no reconnect on a healthy first attempt, got %d", base.reconnects)
	}
}

func TestReconnectOnAgedConnection(t *testing.T) {
	base := &fakeClient{}
	c := New(base, Config{RetryLimit: 2, RetryDelay: time.Millisecond, ConnectionLifetime: 10 * time.Millisecond})

	time.Sleep(20 * time.Millisecond)
	if _, err := c.GetTable(context.Background(), "default", "events"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if base.reconnects != 1 {
		t.Errorf("Expected 1 aging-triggered reconnect, got %d", base.reconnects)
	}
	if base.calls != 1 {
		t.Errorf("Expected 1 attempt, got %d", base.calls)
	}

	// The reconnect reset the age clock; an immediate second call must not
	// reconnect again.
	if _, err := c.GetTable(context.Background(), "default", "events"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if base.reconnects != 1 {
		t.Errorf("Expected no further reconnect, got %d", base.reconnects)
	}
}

// TestReconnectFailureClassified: a failed forced reconnect feeds the same
// classification path as the call itself and consumes the retry budget.
func TestReconnectFailureClassified(t *testing.T) {
	reconnectErr := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	base := &fakeClient{
		errs:         []error{transientErr("reset")},
		reconnectErr: reconnectErr,
	}

	c := New(base,
		Config{RetryLimit: 2, RetryDelay: time.Millisecond},
		WithLogger(slog.New(&warnCounter{})),
	)

	_, err := c.GetTable(context.Background(), "default", "events")

	if !errors.Is(err, reconnectErr) {
		t.Errorf("Expected the reconnect failure to surface, got %v", err)
	}
	if base.calls != 1 {
		t.Errorf("Expected only the first attempt to reach the base client, got %d", base.calls)
	}
	if base.reconnects != 2 {
		t.Errorf("Expected a reconnect attempt per retry, got %d", base.reconnects)
	}
}

// TestRefreshFailureShortCircuits: a failed credential refresh propagates
// immediately without touching the base client.
func TestRefreshFailureShortCircuits(t *testing.T) {
	id := &fakeIdentity{enabled: true, longLived: true, err: errors.New("token issuer down")}
	base := &fakeClient{}

	c := New(base,
		Config{RetryLimit: 3, RetryDelay: time.Second},
		WithIdentity(id),
	)

	start := time.Now()
	_, err := c.GetTable(context.Background(), "default", "events")
	elapsed := time.Since(start)

	var re *auth.RefreshError
	if !errors.As(err, &re) {
		t.Fatalf("Expected a RefreshError, got %v", err)
	}
	if base.calls != 0 {
		t.Errorf("Expected no attempt after refresh failure, got %d", base.calls)
	}
	if elapsed >= time.Second {
		t.Errorf("Expected no retry sleep, elapsed %v", elapsed)
	}
}

func TestRefreshSkippedWhenDisabled(t *testing.T) {
	tests := []struct {
		name string
		id   *fakeIdentity
	}{
		{"token auth off", &fakeIdentity{enabled: false, longLived: true}},
		{"short-lived credential", &fakeIdentity{enabled: true, longLived: false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &fakeClient{}
			c := New(base, Config{RetryLimit: 1}, WithIdentity(tt.id))

			if _, err := c.GetTable(context.Background(), "default", "events"); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tt.id.refreshes != 0 {
				t.Errorf("Expected no refresh calls, got %d", tt.id.refreshes)
			}
		})
	}
}

func TestRefreshEveryAttempt(t *testing.T) {
	id := &fakeIdentity{enabled: true, longLived: true}
	base := &fakeClient{errs: []error{transientErr("a"), transientErr("b")}}

	c := New(base,
		Config{RetryLimit: 2, RetryDelay: time.Millisecond},
		WithIdentity(id),
		WithLogger(slog.New(&warnCounter{})),
	)

	if _, err := c.GetTable(context.Background(), "default", "events"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if id.refreshes != 3 {
		t.Errorf("Expected a refresh before every attempt, got %d", id.refreshes)
	}
}

// TestSharedTimings: two wrappers aggregating into one caller-supplied table.
func TestSharedTimings(t *testing.T) {
	shared := NewTimings()
	a := New(&fakeClient{}, Config{}, WithTimings(shared))
	b := New(&fakeClient{}, Config{}, WithTimings(shared))

	if _, err := a.GetTable(context.Background(), "default", "events"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.GetTable(context.Background(), "default", "events"); err != nil {
		t.Fatal(err)
	}

	snap := shared.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("Expected both clients to share one signature entry, got %v", snap)
	}
}

// TestConcurrentTimings: concurrent calls to distinct signatures accumulate
// independent totals with no lost updates.
func TestConcurrentTimings(t *testing.T) {
	const (
		goroutines = 8
		perG       = 10
		latency    = 2 * time.Millisecond
	)

	base := &fakeClient{callLatency: latency}
	timings := NewTimings()
	c := New(base, Config{}, WithTimings(timings))

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				if _, err := c.GetTable(context.Background(), "default", "events"); err != nil {
					t.Errorf("GetTable: %v", err)
				}
				if _, err := c.GetDatabase(context.Background(), "default"); err != nil {
					t.Errorf("GetDatabase: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	snap := timings.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Expected 2 independent signatures, got %v", snap)
	}
	min := time.Duration(goroutines*perG) * latency
	for sig, total := range snap {
		if total < min {
			t.Errorf("%s accumulated %v, want at least %v", sig, total, min)
		}
	}
}

func TestNoTimingsNoRecording(t *testing.T) {
	base := &fakeClient{}
	c := New(base, Config{})

	if _, err := c.GetTable(context.Background(), "default", "events"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// Nothing to assert on a nil table beyond not panicking; the call path
	// must tolerate an unset recorder.
}

func TestCloseNotRetried(t *testing.T) {
	closeErr := transientErr("reset during close")
	base := &fakeClient{closeErr: closeErr}

	c := New(base,
		Config{RetryLimit: 3, RetryDelay: time.Second},
		WithLogger(slog.New(&warnCounter{})),
	)

	start := time.Now()
	err := c.Close()
	elapsed := time.Since(start)

	if err != closeErr {
		t.Errorf("Expected the close failure unchanged, got %v", err)
	}
	if base.closeCalls != 1 {
		t.Errorf("Expected 1 close call, got %d", base.closeCalls)
	}
	if base.reconnects != 0 {
		t.Errorf("Expected no reconnect before close, got %d", base.reconnects)
	}
	if elapsed >= time.Second {
		t.Errorf("Expected no retry sleep, elapsed %v", elapsed)
	}
}

func TestSleepHonorsContext(t *testing.T) {
	base := &fakeClient{errs: []error{transientErr("reset"), transientErr("reset")}}
	c := New(base,
		Config{RetryLimit: 2, RetryDelay: 5 * time.Second},
		WithLogger(slog.New(&warnCounter{})),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.GetTable(ctx, "default", "events")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context deadline error, got %v", err)
	}
	if time.Since(start) >= 5*time.Second {
		t.Error("Expected the retry sleep to be cut short by the context")
	}
}
