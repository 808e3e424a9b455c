package retry

// MethodPolicy captures per-method resilience exemptions. The flags are
// intrinsic to a method's semantics, declared here at the interface level,
// not runtime configuration.
type MethodPolicy struct {
	// AllowReconnect permits a forced reconnect before an attempt.
	AllowReconnect bool

	// AllowRetry permits the bounded sleep-and-retry loop. False for
	// non-idempotent mutations where a retry after an applied-but-unacked
	// write would misbehave.
	AllowRetry bool
}

// methodPolicies lists the methods that opt out of the permissive default,
// keyed by method name.
var methodPolicies = map[string]MethodPolicy{
	// Tearing down must not redial first.
	"Close": {AllowReconnect: false, AllowRetry: false},

	// Non-idempotent creates: a retry after an applied-but-unacked write
	// fails with AlreadyExists.
	"CreateTable":  {AllowReconnect: true, AllowRetry: false},
	"AddPartition": {AllowReconnect: true, AllowRetry: false},
}

// policyFor resolves the policy for a method. Unlisted methods get the
// permissive default; resolution has no failure mode.
func policyFor(method string) MethodPolicy {
	if p, ok := methodPolicies[method]; ok {
		return p
	}
	return MethodPolicy{AllowReconnect: true, AllowRetry: true}
}
