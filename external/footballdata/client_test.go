package footballdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/matchday/internal/domain/match"
	"github.com/riskibarqy/matchday/internal/platform/resilience"
	"github.com/riskibarqy/matchday/internal/usecase"
)

const liveEnvelope = `{
	"matches": [
		{
			"id": 524289,
			"utcDate": "2026-03-15T18:00:00Z",
			"status": "IN_PLAY",
			"minute": 67,
			"competition": {"id": 2021, "name": "Premier League", "code": "PL"},
			"homeTeam": {"id": 57, "name": "Arsenal FC", "shortName": "Arsenal", "tla": "ARS"},
			"awayTeam": {"id": 61, "name": "Chelsea FC", "shortName": "Chelsea", "tla": "CHE"},
			"score": {"winner": null, "duration": "REGULAR", "fullTime": {"home": 2, "away": 1}, "halfTime": {"home": 1, "away": 0}}
		}
	]
}`

func TestClientLiveMatch_SendsTokenAndMapsEnvelope(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/teams/57/matches" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("status"); got != "LIVE" {
			t.Fatalf("unexpected status filter: %s", got)
		}
		if got := r.Header.Get("X-Auth-Token"); got != "secret-token" {
			t.Fatalf("unexpected auth token header: %s", got)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(liveEnvelope))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		HTTPClient:     srv.Client(),
		BaseURL:        srv.URL,
		Token:          "secret-token",
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})

	got, err := client.LiveMatch(context.Background(), 57)
	if err != nil {
		t.Fatalf("live match: %v", err)
	}
	if got == nil {
		t.Fatalf("expected a live match, got nil")
	}
	if got.ID != 524289 {
		t.Fatalf("unexpected match id: got=%d want=524289", got.ID)
	}
	if got.Status != match.StatusLive {
		t.Fatalf("unexpected status: got=%s want=%s", got.Status, match.StatusLive)
	}
	if got.HomeTeam.Short != "Arsenal" || got.AwayTeam.Short != "Chelsea" {
		t.Fatalf("unexpected sides: home=%s away=%s", got.HomeTeam.Short, got.AwayTeam.Short)
	}
	if got.Competition != "Premier League" {
		t.Fatalf("unexpected competition: %s", got.Competition)
	}
	want := time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)
	if !got.KickoffAt.Equal(want) {
		t.Fatalf("unexpected kickoff: got=%s want=%s", got.KickoffAt, want)
	}
	if got.Live == nil {
		t.Fatalf("expected live snapshot on an in-play match")
	}
	if *got.Live.Home != 2 || *got.Live.Away != 1 || *got.Live.Minute != 67 {
		t.Fatalf("unexpected live snapshot: home=%v away=%v minute=%v", got.Live.Home, got.Live.Away, got.Live.Minute)
	}
}

func TestClientLiveMatch_EmptyResultIsAbsentNotError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"matches": []}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		HTTPClient:     srv.Client(),
		BaseURL:        srv.URL,
		Token:          "secret-token",
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})

	got, err := client.LiveMatch(context.Background(), 57)
	if err != nil {
		t.Fatalf("live match: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil match for empty result set, got %+v", got)
	}
}

func TestClientTodayMatch_QueriesCurrentUTCDay(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("dateFrom"); got != "2026-03-15" {
			t.Fatalf("unexpected dateFrom: %s", got)
		}
		if got := r.URL.Query().Get("dateTo"); got != "2026-03-15" {
			t.Fatalf("unexpected dateTo: %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"matches": []}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		HTTPClient:     srv.Client(),
		BaseURL:        srv.URL,
		Token:          "secret-token",
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})
	client.now = func() time.Time {
		return time.Date(2026, 3, 15, 23, 30, 0, 0, time.UTC)
	}

	got, err := client.TodayMatch(context.Background(), 57)
	if err != nil {
		t.Fatalf("today match: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil match, got %+v", got)
	}
}

func TestClientNextMatch_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(liveEnvelope))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		HTTPClient:     srv.Client(),
		BaseURL:        srv.URL,
		Token:          "secret-token",
		MaxRetries:     1,
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})

	got, err := client.NextMatch(context.Background(), 57)
	if err != nil {
		t.Fatalf("next match after retry: %v", err)
	}
	if got == nil || got.ID != 524289 {
		t.Fatalf("unexpected match after retry: %+v", got)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 provider calls, got %d", calls.Load())
	}
}

func TestClientNextMatch_DoesNotRetryClientError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "team not found"}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		HTTPClient:     srv.Client(),
		BaseURL:        srv.URL,
		Token:          "secret-token",
		MaxRetries:     3,
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})

	_, err := client.NextMatch(context.Background(), 57)
	if err == nil {
		t.Fatalf("expected error for 404 response")
	}
	if isFootballDataCircuitFailure(err) {
		t.Fatalf("4xx must not count as a transient circuit failure: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single provider call, got %d", calls.Load())
	}
}

func TestClientLiveMatch_BreakerRejectsAfterFailures(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		HTTPClient: srv.Client(),
		BaseURL:    srv.URL,
		Token:      "secret-token",
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	})

	if _, err := client.LiveMatch(context.Background(), 57); err == nil {
		t.Fatalf("expected provider failure")
	}
	_, err := client.LiveMatch(context.Background(), 57)
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable from open breaker, got %v", err)
	}
}

func TestMapMatchStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want string
	}{
		{raw: "IN_PLAY", want: match.StatusLive},
		{raw: "PAUSED", want: match.StatusHalftime},
		{raw: "TIMED", want: match.StatusScheduled},
		{raw: "SCHEDULED", want: match.StatusScheduled},
		{raw: "FINISHED", want: match.StatusFinished},
		{raw: "AWARDED", want: match.StatusFinished},
		{raw: "POSTPONED", want: match.StatusPostponed},
		{raw: "SUSPENDED", want: "SUSPENDED"},
	}
	for _, tc := range cases {
		if got := mapMatchStatus(tc.raw); got != tc.want {
			t.Fatalf("mapMatchStatus(%s): got=%s want=%s", tc.raw, got, tc.want)
		}
	}
}

func TestSanitizeSensitiveText_RedactsToken(t *testing.T) {
	t.Parallel()

	got := sanitizeSensitiveText("Get https://host/path: token secret-token rejected", "secret-token")
	if got != "Get https://host/path: token REDACTED rejected" {
		t.Fatalf("token left in sanitized text: %s", got)
	}
}
