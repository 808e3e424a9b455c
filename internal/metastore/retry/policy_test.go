package retry

import "testing"

func TestPolicyFor(t *testing.T) {
	tests := []struct {
		method         string
		allowReconnect bool
		allowRetry     bool
	}{
		{"GetTable", true, true},
		{"GetAllDatabases", true, true},
		{"DropTable", true, true},
		{"CreateTable", true, false},
		{"AddPartition", true, false},
		{"Close", false, false},
		{"SomeFutureMethod", true, true}, // unlisted methods get the permissive default
	}

	for _, tt := range tests {
		p := policyFor(tt.method)
		if p.AllowReconnect != tt.allowReconnect || p.AllowRetry != tt.allowRetry {
			t.Errorf("policyFor(%q) = %+v, want reconnect=%v retry=%v",
				tt.method, p, tt.allowReconnect, tt.allowRetry)
		}
	}
}
