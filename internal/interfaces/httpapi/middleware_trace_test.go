package httpapi

import "testing"

func TestTracedPath(t *testing.T) {
	skipped := []string{"/healthz", "/health", "/livez", "/readyz", " /HEALTHZ "}
	for _, path := range skipped {
		if tracedPath(path) {
			t.Fatalf("expected no tracing for path %q", path)
		}
	}

	traced := []string{"/v1/devices", "/v1/teams", "/v1/internal/jobs/cycle", "/"}
	for _, path := range traced {
		if !tracedPath(path) {
			t.Fatalf("expected tracing for path %q", path)
		}
	}
}
