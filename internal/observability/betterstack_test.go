package observability

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/matchday/internal/config"
	"github.com/riskibarqy/matchday/internal/platform/logging"
)

type ingestRecorder struct {
	mu       sync.Mutex
	requests int
	auth     string
	records  int
}

func (r *ingestRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		var batch []json.RawMessage
		_ = json.Unmarshal(body, &batch)

		r.mu.Lock()
		r.requests++
		r.auth = req.Header.Get("Authorization")
		r.records += len(batch)
		r.mu.Unlock()

		w.WriteHeader(http.StatusAccepted)
	}
}

func (r *ingestRecorder) snapshot() (int, string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests, r.auth, r.records
}

func betterStackTestConfig(endpoint string) config.Config {
	return config.Config{
		BetterStackEnabled:  true,
		BetterStackEndpoint: endpoint,
		BetterStackToken:    "secret-token",
		BetterStackTimeout:  2 * time.Second,
		BetterStackMinLevel: logging.LevelError,
		ServiceName:         "matchday-api",
		AppEnv:              config.EnvDev,
	}
}

func TestInitBetterStackLogger_DrainsQueuedRecordsAsOneBatch(t *testing.T) {
	t.Parallel()

	rec := &ingestRecorder{}
	server := httptest.NewServer(rec.handler())
	defer server.Close()

	logger, shutdown, err := InitBetterStackLogger(betterStackTestConfig(server.URL), logging.NewNop())
	if err != nil {
		t.Fatalf("init betterstack logger: %v", err)
	}

	for i := 0; i < 3; i++ {
		logger.ErrorContext(context.Background(), "refresh cycle failed", "attempt", i)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown logger: %v", err)
	}

	requests, auth, records := rec.snapshot()
	if records != 3 {
		t.Fatalf("shipped records = %d, want 3", records)
	}
	if requests != 1 {
		t.Fatalf("requests = %d, want a single drain batch", requests)
	}
	if auth != "Bearer secret-token" {
		t.Fatalf("authorization header = %q", auth)
	}
}

func TestInitBetterStackLogger_MinLevelFiltersShipping(t *testing.T) {
	t.Parallel()

	rec := &ingestRecorder{}
	server := httptest.NewServer(rec.handler())
	defer server.Close()

	logger, shutdown, err := InitBetterStackLogger(betterStackTestConfig(server.URL), logging.NewNop())
	if err != nil {
		t.Fatalf("init betterstack logger: %v", err)
	}

	logger.InfoContext(context.Background(), "below the shipping level")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown logger: %v", err)
	}

	if requests, _, _ := rec.snapshot(); requests != 0 {
		t.Fatalf("requests = %d, want 0 for filtered records", requests)
	}
}

func TestInitBetterStackLogger_DisabledReturnsBaseLogger(t *testing.T) {
	t.Parallel()

	base := logging.NewNop()
	logger, shutdown, err := InitBetterStackLogger(config.Config{BetterStackEnabled: false}, base)
	if err != nil {
		t.Fatalf("init betterstack logger: %v", err)
	}
	if logger != base {
		t.Fatal("disabled init must hand back the base logger")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown must be a no-op: %v", err)
	}
}
