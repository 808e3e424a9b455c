package retry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"regexp"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jbjoujoute/hive/internal/metastore"
)

// Classifier decides whether a failed attempt is worth retrying. Structured
// error kinds (gRPC status codes, transport and decode errors) are classified
// directly; the generic ServiceError channel falls back to matching the
// message text, because the datastore cause does not survive the wire as a
// typed error. The pattern sets are overridable for deployments whose
// backends phrase their failures differently.
type Classifier struct {
	// Transient patterns mark a ServiceError message as retryable.
	Transient []*regexp.Regexp

	// Permanent patterns veto a transient match (integrity violations
	// surface through the same text channel but retrying never helps).
	Permanent []*regexp.Regexp
}

var (
	defaultTransient = regexp.MustCompile(
		`(?i)(connection (reset|refused|closed)|broken pipe|i/o timeout|bad connection|unexpected EOF|no such host|failed to connect|conn busy|failed to (un)?marshal|datastore)`)
	defaultPermanent = regexp.MustCompile(
		`(?i)(duplicate key value|violates (unique|foreign key|not-null|check) constraint|SQLSTATE 23)`)
)

// NewClassifier returns a Classifier with the default pattern sets.
func NewClassifier() *Classifier {
	return &Classifier{
		Transient: []*regexp.Regexp{defaultTransient},
		Permanent: []*regexp.Regexp{defaultPermanent},
	}
}

// Retryable reports whether err should be retried. Anything it cannot place
// is fatal and surfaces to the caller unchanged.
func (c *Classifier) Retryable(err error) bool {
	if err == nil {
		return false
	}

	// Application-level channel: gRPC status errors.
	if st, ok := status.FromError(err); ok && st.Code() != codes.OK {
		switch st.Code() {
		case codes.Unimplemented, codes.InvalidArgument:
			// Unknown/wrong method or malformed request: an incompatible
			// client/server pair. Retrying cannot help.
			return false
		case codes.NotFound, codes.AlreadyExists, codes.PermissionDenied,
			codes.Unauthenticated, codes.FailedPrecondition, codes.OutOfRange:
			// Domain errors rethrown as-is.
			return false
		default:
			// Unavailable, DeadlineExceeded, Aborted, ResourceExhausted,
			// Internal, Unknown: assumed transient (server restart, blip).
			return true
		}
	}

	// Wire-level failures: protocol decode and transport problems. A blocking
	// dial that runs out its timeout surfaces as context.DeadlineExceeded; the
	// caller's own expired context still stops the loop before the next try.
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	var ne net.Error
	if errors.As(err, &syn) || errors.As(err, &typ) || errors.As(err, &ne) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// Generic service-level channel: best-effort text heuristic.
	var se *metastore.ServiceError
	if errors.As(err, &se) {
		return matchAny(c.Transient, se.Message) && !matchAny(c.Permanent, se.Message)
	}

	return false
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
