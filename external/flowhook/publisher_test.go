package flowhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/matchday/internal/domain/trigger"
	"github.com/riskibarqy/matchday/internal/platform/resilience"
)

func TestPublisher_SendsEventWithDedupHeader(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer hook-secret" {
			t.Fatalf("unexpected authorization header: %s", got)
		}
		if got := r.Header.Get("X-Dispatch-Id"); got != "match_started-57-901" {
			t.Fatalf("unexpected dispatch id header: %s", got)
		}

		var body map[string]any
		if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode webhook body: %v", err)
		}
		if body["kind"] != "match_started" {
			t.Fatalf("unexpected kind: %v", body["kind"])
		}
		if body["team_id"] != float64(57) {
			t.Fatalf("unexpected team id: %v", body["team_id"])
		}
		if body["occurred_at"] != "2026-03-15T18:02:00Z" {
			t.Fatalf("unexpected occurred_at: %v", body["occurred_at"])
		}

		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	publisher := NewPublisher(PublisherConfig{
		WebhookURL:     srv.URL + "/hooks/matchday",
		Token:          "hook-secret",
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	}, nil)

	err := publisher.Publish(context.Background(), trigger.Event{
		DispatchID: "match_started-57-901",
		Kind:       trigger.KindMatchStarted,
		TeamID:     57,
		DeviceIDs:  []string{"dev-1"},
		Payload:    map[string]any{"score": "0-0"},
		OccurredAt: time.Date(2026, 3, 15, 18, 2, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
}

func TestPublisher_ServerErrorIsTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	publisher := NewPublisher(PublisherConfig{
		WebhookURL:     srv.URL,
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	}, nil)

	err := publisher.Publish(context.Background(), trigger.Event{Kind: trigger.KindScoreChanged, TeamID: 57})
	if err == nil {
		t.Fatalf("expected delivery failure")
	}
	if !isFlowHookCircuitFailure(err) {
		t.Fatalf("5xx should count as a transient circuit failure: %v", err)
	}
}

func TestPublisher_ClientErrorIsPermanent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	publisher := NewPublisher(PublisherConfig{
		WebhookURL:     srv.URL,
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	}, nil)

	err := publisher.Publish(context.Background(), trigger.Event{Kind: trigger.KindScoreChanged, TeamID: 57})
	if err == nil {
		t.Fatalf("expected delivery failure")
	}
	if isFlowHookCircuitFailure(err) {
		t.Fatalf("4xx must not count as a transient circuit failure: %v", err)
	}
}

func TestPublisher_BreakerRejectsAfterFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	publisher := NewPublisher(PublisherConfig{
		WebhookURL: srv.URL,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	}, nil)

	event := trigger.Event{Kind: trigger.KindMatchEnded, TeamID: 57}
	if err := publisher.Publish(context.Background(), event); err == nil {
		t.Fatalf("expected delivery failure")
	}
	if err := publisher.Publish(context.Background(), event); err == nil {
		t.Fatalf("expected open breaker to reject delivery")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single upstream call, got %d", calls.Load())
	}
}

func TestPublisher_MissingKindRejected(t *testing.T) {
	t.Parallel()

	publisher := NewPublisher(PublisherConfig{
		WebhookURL:     "https://hooks.local/matchday",
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	}, nil)

	if err := publisher.Publish(context.Background(), trigger.Event{TeamID: 57}); err == nil {
		t.Fatalf("expected error for missing trigger kind")
	}
}
