package footballdata

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchday/internal/domain/match"
	"github.com/riskibarqy/matchday/internal/platform/logging"
	"github.com/riskibarqy/matchday/internal/platform/resilience"
	"github.com/riskibarqy/matchday/internal/usecase"
)

const (
	defaultBaseURL = "https://api.football-data.org/v4"
	authHeader     = "X-Auth-Token"
)

var errFootballDataTransient = crerr.New("football-data transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Token          string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client reads team fixtures and live state from a football-data style
// REST API. It satisfies match.Provider: an empty result set is reported
// as nil match and nil error, never as a failure.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	token          string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
	now            func() time.Time
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		token:          strings.TrimSpace(cfg.Token),
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
		now:            time.Now,
	}
}

// LiveMatch returns the match currently in play for the team, nil when the
// team is not playing.
func (c *Client) LiveMatch(ctx context.Context, teamID int64) (*match.Match, error) {
	if teamID <= 0 {
		return nil, fmt.Errorf("team id must be greater than zero")
	}

	path := fmt.Sprintf("/teams/%d/matches", teamID)
	query := map[string]string{"status": "LIVE"}

	var envelope matchesEnvelope
	if err := c.doJSON(ctx, path, query, &envelope); err != nil {
		return nil, fmt.Errorf("fetch live match team_id=%d: %w", teamID, err)
	}

	return earliestMatch(envelope.Matches), nil
}

// TodayMatch returns the team's fixture scheduled for the current UTC day,
// whatever its state, nil when the calendar is empty today.
func (c *Client) TodayMatch(ctx context.Context, teamID int64) (*match.Match, error) {
	if teamID <= 0 {
		return nil, fmt.Errorf("team id must be greater than zero")
	}

	day := c.now().UTC().Format("2006-01-02")
	path := fmt.Sprintf("/teams/%d/matches", teamID)
	query := map[string]string{
		"dateFrom": day,
		"dateTo":   day,
	}

	var envelope matchesEnvelope
	if err := c.doJSON(ctx, path, query, &envelope); err != nil {
		return nil, fmt.Errorf("fetch today match team_id=%d: %w", teamID, err)
	}

	return earliestMatch(envelope.Matches), nil
}

// NextMatch returns the team's next scheduled fixture, nil when nothing is
// on the calendar.
func (c *Client) NextMatch(ctx context.Context, teamID int64) (*match.Match, error) {
	if teamID <= 0 {
		return nil, fmt.Errorf("team id must be greater than zero")
	}

	path := fmt.Sprintf("/teams/%d/matches", teamID)
	query := map[string]string{
		"status": "SCHEDULED",
		"limit":  "1",
	}

	var envelope matchesEnvelope
	if err := c.doJSON(ctx, path, query, &envelope); err != nil {
		return nil, fmt.Errorf("fetch next match team_id=%d: %w", teamID, err)
	}

	return earliestMatch(envelope.Matches), nil
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "football-data circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: match data provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}

	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	// Identical lookups from concurrent condition checks collapse into one
	// upstream request; the free plan allows 10 requests a minute.
	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && isFootballDataCircuitFailure(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode provider payload: %w", err)
	}

	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")
		if c.token != "" {
			req.Header.Set(authHeader, c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errFootballDataTransient, sanitizeSensitiveText(err.Error(), c.token))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("%w: read response body: %v", errFootballDataTransient, readErr)
			} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return raw, nil
			} else if isRetryableStatus(resp.StatusCode) {
				lastErr = fmt.Errorf("%w: provider status=%d body=%s", errFootballDataTransient, resp.StatusCode, abbreviateBody(raw))
			} else {
				return nil, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "football-data request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func earliestMatch(items []matchItem) *match.Match {
	mapped := make([]match.Match, 0, len(items))
	for _, item := range items {
		if item.ID <= 0 {
			continue
		}
		mapped = append(mapped, mapMatchItem(item))
	}
	if len(mapped) == 0 {
		return nil
	}

	sort.SliceStable(mapped, func(i, j int) bool {
		if !mapped[i].KickoffAt.Equal(mapped[j].KickoffAt) {
			return mapped[i].KickoffAt.Before(mapped[j].KickoffAt)
		}
		return mapped[i].ID < mapped[j].ID
	})

	out := mapped[0]
	return &out
}

func mapMatchItem(item matchItem) match.Match {
	out := match.Match{
		ID:          item.ID,
		Status:      mapMatchStatus(item.Status),
		HomeTeam:    mapTeamRef(item.HomeTeam),
		AwayTeam:    mapTeamRef(item.AwayTeam),
		Competition: strings.TrimSpace(item.Competition.Name),
	}
	if parsed := parseProviderDateTime(item.UTCDate); parsed != nil {
		out.KickoffAt = *parsed
	}
	if match.IsLiveStatus(out.Status) {
		// fullTime carries the running score while a match is in play.
		out.Live = &match.Score{
			Home:   item.Score.FullTime.Home,
			Away:   item.Score.FullTime.Away,
			Minute: item.Minute,
		}
	}
	return out
}

func mapMatchStatus(raw string) string {
	switch match.NormalizeStatus(raw) {
	case "IN_PLAY", match.StatusLive:
		return match.StatusLive
	case "PAUSED", "HT", match.StatusHalftime:
		return match.StatusHalftime
	case "TIMED", match.StatusScheduled:
		return match.StatusScheduled
	case "AWARDED", "FT", match.StatusFinished:
		return match.StatusFinished
	case match.StatusPostponed:
		return match.StatusPostponed
	case match.StatusCancelled:
		return match.StatusCancelled
	default:
		return match.NormalizeStatus(raw)
	}
}

func mapTeamRef(item teamItem) match.TeamRef {
	return match.TeamRef{
		ID:    item.ID,
		Name:  strings.TrimSpace(item.Name),
		Short: firstNonEmpty(item.ShortName, item.TLA),
	}
}

func parseProviderDateTime(raw string) *time.Time {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	v := parsed.UTC()
	return &v
}

func sanitizeSensitiveText(value, token string) string {
	value = strings.TrimSpace(value)
	if value == "" || token == "" {
		return value
	}
	return strings.ReplaceAll(value, token, "REDACTED")
}

func isFootballDataCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errFootballDataTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

func firstNonEmpty(values ...string) string {
	for _, item := range values {
		if strings.TrimSpace(item) != "" {
			return strings.TrimSpace(item)
		}
	}
	return ""
}

func maxInt(left, right int) int {
	if left > right {
		return left
	}
	return right
}

type matchesEnvelope struct {
	Matches []matchItem `json:"matches"`
}

type matchItem struct {
	ID          int64           `json:"id"`
	UTCDate     string          `json:"utcDate"`
	Status      string          `json:"status"`
	Minute      *int            `json:"minute"`
	Competition competitionItem `json:"competition"`
	HomeTeam    teamItem        `json:"homeTeam"`
	AwayTeam    teamItem        `json:"awayTeam"`
	Score       scoreItem       `json:"score"`
}

type competitionItem struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

type teamItem struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	TLA       string `json:"tla"`
}

type scoreItem struct {
	Winner   string        `json:"winner"`
	Duration string        `json:"duration"`
	FullTime scorePairItem `json:"fullTime"`
	HalfTime scorePairItem `json:"halfTime"`
}

type scorePairItem struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}
