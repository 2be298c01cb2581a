package jobqueue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchday/internal/platform/resilience"
)

func TestQStashPublisher_PublishesToTargetURLWithHeaders(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if !strings.HasPrefix(r.URL.Path, "/v2/publish/") {
			t.Errorf("unexpected publish path: %s", r.URL.Path)
		}
		if !strings.HasSuffix(r.URL.Path, "/v1/internal/jobs/cycle") {
			t.Errorf("target url missing from publish path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer queue-token" {
			t.Errorf("unexpected authorization header: %s", got)
		}
		if got := r.Header.Get("Upstash-Method"); got != http.MethodPost {
			t.Errorf("unexpected upstash method: %s", got)
		}
		if got := r.Header.Get("Upstash-Retries"); got != "2" {
			t.Errorf("unexpected retries header: %s", got)
		}
		if got := r.Header.Get("Upstash-Delay"); got != "120s" {
			t.Errorf("unexpected delay header: %s", got)
		}
		if got := r.Header.Get("Upstash-Deduplication-Id"); got != "refresh-cycle-all-20260315T180000Z" {
			t.Errorf("unexpected deduplication header: %s", got)
		}
		if got := r.Header.Get("Upstash-Forward-X-Internal-Job-Token"); got != "job-secret" {
			t.Errorf("unexpected forwarded job token: %s", got)
		}

		var body map[string]any
		if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if body["team_id"] != float64(57) {
			t.Errorf("unexpected payload team id: %v", body["team_id"])
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	publisher := NewQStashPublisher(QStashPublisherConfig{
		BaseURL:          srv.URL,
		Token:            "queue-token",
		TargetBaseURL:    "https://matchday.internal",
		Retries:          2,
		InternalJobToken: "job-secret",
		CircuitBreaker:   resilience.CircuitBreakerConfig{Enabled: false},
	}, nil)

	err := publisher.Enqueue(
		context.Background(),
		"/v1/internal/jobs/cycle",
		map[string]any{"team_id": 57},
		2*time.Minute,
		"refresh-cycle-all-20260315T180000Z",
	)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
}

func TestQStashPublisher_StatusClassification(t *testing.T) {
	t.Parallel()

	status := atomic.Int64{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	publisher := NewQStashPublisher(QStashPublisherConfig{
		BaseURL:        srv.URL,
		Token:          "queue-token",
		TargetBaseURL:  "https://matchday.internal",
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	}, nil)

	status.Store(http.StatusServiceUnavailable)
	err := publisher.Enqueue(context.Background(), "/v1/internal/jobs/cycle", nil, 0, "")
	if err == nil {
		t.Fatalf("expected enqueue failure on 503")
	}
	if !crerr.Is(err, errTransient) {
		t.Fatalf("5xx should be transient: %v", err)
	}

	status.Store(http.StatusNotFound)
	err = publisher.Enqueue(context.Background(), "/v1/internal/jobs/cycle", nil, 0, "")
	if err == nil {
		t.Fatalf("expected enqueue failure on 404")
	}
	if crerr.Is(err, errTransient) {
		t.Fatalf("4xx should not be transient: %v", err)
	}
}

func TestQStashPublisher_BreakerShedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	publisher := NewQStashPublisher(QStashPublisherConfig{
		BaseURL:       srv.URL,
		Token:         "queue-token",
		TargetBaseURL: "https://matchday.internal",
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	}, nil)

	if err := publisher.Enqueue(context.Background(), "/v1/internal/jobs/cycle", nil, 0, ""); err == nil {
		t.Fatalf("expected first enqueue to fail")
	}

	err := publisher.Enqueue(context.Background(), "/v1/internal/jobs/cycle", nil, 0, "")
	if !crerr.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected open breaker to reject enqueue, got %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected a single upstream hit, got %d", got)
	}
}

func TestQStashPublisher_MissingPathRejected(t *testing.T) {
	t.Parallel()

	publisher := NewQStashPublisher(QStashPublisherConfig{
		BaseURL:        "https://qstash.local",
		Token:          "queue-token",
		TargetBaseURL:  "https://matchday.internal",
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	}, nil)

	if err := publisher.Enqueue(context.Background(), "  ", nil, 0, ""); err == nil {
		t.Fatalf("expected error for empty job path")
	}
}

func TestCurlPreview_MasksSecrets(t *testing.T) {
	t.Parallel()

	publisher := NewQStashPublisher(QStashPublisherConfig{
		BaseURL:          "https://qstash.local",
		Token:            "queue-token",
		TargetBaseURL:    "https://matchday.internal",
		InternalJobToken: "job-secret",
		CircuitBreaker:   resilience.CircuitBreakerConfig{Enabled: false},
	}, nil)

	req, err := publisher.newPublishRequest(
		context.Background(),
		"https://qstash.local/v2/publish/https://matchday.internal/v1/internal/jobs/cycle",
		[]byte(`{"team_id":57}`),
		time.Minute,
		"refresh-cycle-57",
	)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}

	preview := curlPreview(req, `{"team_id":57}`)
	if strings.Contains(preview, "queue-token") || strings.Contains(preview, "job-secret") {
		t.Fatalf("preview leaks credentials: %s", preview)
	}
	if !strings.Contains(preview, "'Authorization: ***'") {
		t.Fatalf("expected masked authorization header: %s", preview)
	}
	if !strings.Contains(preview, "'Upstash-Delay: 60s'") {
		t.Fatalf("expected delay header in preview: %s", preview)
	}
	if !strings.Contains(preview, `-d '{"team_id":57}'`) {
		t.Fatalf("expected body in preview: %s", preview)
	}
}
