package jobqueue

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchday/internal/platform/logging"
	"github.com/riskibarqy/matchday/internal/platform/resilience"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultPublishTimeout = 10 * time.Second
	maxLoggedBody         = 4096
)

// errTransient marks publish failures the circuit breaker counts:
// transport errors and HTTP statuses worth retrying. Everything else
// leaves the breaker alone.
var errTransient = crerr.New("transient publish failure")

type QStashPublisherConfig struct {
	BaseURL          string
	Token            string
	TargetBaseURL    string
	Retries          int
	InternalJobToken string
	Timeout          time.Duration
	CircuitBreaker   resilience.CircuitBreakerConfig
}

// QStashPublisher schedules delayed self-calls through an Upstash-style
// publish API. The poll loop uses it to wake itself at the cadence the
// orchestrator computed, so the service needs no resident timer when a
// queue is configured.
type QStashPublisher struct {
	client         *http.Client
	publishBase    string
	targetBase     string
	token          string
	retries        int
	forwardToken   string
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
}

func NewQStashPublisher(cfg QStashPublisherConfig, logger *logging.Logger) *QStashPublisher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &QStashPublisher{
		client:         &http.Client{Timeout: timeout},
		publishBase:    cfg.BaseURL,
		targetBase:     cfg.TargetBaseURL,
		token:          strings.TrimSpace(cfg.Token),
		retries:        cfg.Retries,
		forwardToken:   strings.TrimSpace(cfg.InternalJobToken),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// Enqueue publishes a POST to path on the target service, delivered by
// the queue after delay. Publishes sharing a deduplication ID collapse
// into a single delivery while the first is still pending.
func (p *QStashPublisher) Enqueue(ctx context.Context, path string, payload any, delay time.Duration, deduplicationID string) error {
	if p.circuitEnabled {
		if err := p.breaker.Allow(); err != nil {
			p.logger.WarnContext(ctx, "qstash circuit breaker rejected request", "state", p.breaker.State())
			return crerr.Wrap(err, "qstash is temporarily unavailable")
		}
	}

	publishURL, targetURL, err := p.endpoints(path)
	if err != nil {
		return err
	}

	if payload == nil {
		payload = map[string]any{}
	}
	body, err := sonic.Marshal(payload)
	if err != nil {
		return crerr.Wrap(err, "marshal job payload")
	}

	req, err := p.newPublishRequest(ctx, publishURL, body, delay, deduplicationID)
	if err != nil {
		return crerr.Wrap(err, "create qstash request")
	}

	preview := curlPreview(req, clip(string(body), maxLoggedBody))
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.String("qstash.publish_url", publishURL),
			attribute.String("qstash.target_url", targetURL),
			attribute.String("qstash.curl", preview),
		)
	}
	p.logger.InfoContext(ctx, "qstash publish request",
		"target_url", targetURL, "delay", delaySeconds(delay), "curl", preview)

	err = p.post(req, targetURL)
	p.noteResult(err)
	if err != nil {
		return err
	}

	p.logger.InfoContext(ctx, "qstash job published",
		"target_url", targetURL, "deduplication_id", deduplicationID)
	return nil
}

// endpoints joins path onto the target base and wraps the result in the
// queue's publish URL.
func (p *QStashPublisher) endpoints(path string) (publishURL, targetURL string, err error) {
	path = "/" + strings.TrimLeft(strings.TrimSpace(path), "/")
	if path == "/" {
		return "", "", crerr.New("job path is required")
	}

	publishBase, err := httpBase(p.publishBase)
	if err != nil {
		return "", "", crerr.Wrap(err, "invalid QSTASH_BASE_URL")
	}
	targetBase, err := httpBase(p.targetBase)
	if err != nil {
		return "", "", crerr.Wrap(err, "invalid QSTASH_TARGET_BASE_URL")
	}

	targetURL = targetBase + path
	return publishBase + "/v2/publish/" + targetURL, targetURL, nil
}

func (p *QStashPublisher) newPublishRequest(ctx context.Context, publishURL string, body []byte, delay time.Duration, deduplicationID string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, publishURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Upstash-Method", http.MethodPost)
	if p.retries > 0 {
		req.Header.Set("Upstash-Retries", strconv.Itoa(p.retries))
	}
	if delay > 0 {
		req.Header.Set("Upstash-Delay", delaySeconds(delay))
	}
	if id := strings.TrimSpace(deduplicationID); id != "" {
		req.Header.Set("Upstash-Deduplication-Id", id)
	}
	if p.forwardToken != "" {
		req.Header.Set("Upstash-Forward-X-Internal-Job-Token", p.forwardToken)
	}

	return req, nil
}

func (p *QStashPublisher) post(req *http.Request, targetURL string) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return crerr.Mark(crerr.Wrapf(err, "publish qstash job target_url=%s", targetURL), errTransient)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 == 2 {
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
	err = crerr.Newf("publish qstash job status=%d target_url=%s body=%s",
		resp.StatusCode, targetURL, strings.TrimSpace(string(raw)))
	if retryableStatus(resp.StatusCode) {
		return crerr.Mark(err, errTransient)
	}
	return err
}

func (p *QStashPublisher) noteResult(err error) {
	if !p.circuitEnabled {
		return
	}
	if crerr.Is(err, errTransient) {
		p.breaker.RecordFailure()
		return
	}
	p.breaker.RecordSuccess()
}

func retryableStatus(code int) bool {
	return code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		code >= http.StatusInternalServerError
}

func delaySeconds(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	return strconv.Itoa(int(d.Round(time.Second)/time.Second)) + "s"
}

func httpBase(raw string) (string, error) {
	base := strings.TrimSpace(raw)
	if base == "" {
		return "", crerr.New("value is empty")
	}

	parsed, err := url.Parse(base)
	if err != nil {
		return "", crerr.Wrapf(err, "parse %q", base)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", crerr.Newf("%q: scheme must be http or https", base)
	}
	if parsed.Host == "" {
		return "", crerr.Newf("%q: missing host", base)
	}

	return strings.TrimRight(base, "/"), nil
}

// redactedHeaders never show their values in logs or span attributes.
var redactedHeaders = map[string]bool{
	"Authorization":                        true,
	"Upstash-Forward-X-Internal-Job-Token": true,
}

// curlPreview renders the built request as a copy-pasteable curl command
// with secret header values masked.
func curlPreview(req *http.Request, body string) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString("curl -X ")
	_, _ = buf.WriteString(req.Method)
	_ = buf.WriteByte(' ')
	_, _ = buf.WriteString(singleQuote(req.URL.String()))

	names := make([]string, 0, len(req.Header))
	for name := range req.Header {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		value := req.Header.Get(name)
		if redactedHeaders[name] {
			value = "***"
		}
		_, _ = buf.WriteString(" -H ")
		_, _ = buf.WriteString(singleQuote(name + ": " + value))
	}

	_, _ = buf.WriteString(" -d ")
	_, _ = buf.WriteString(singleQuote(body))

	return buf.String()
}

func singleQuote(v string) string {
	return "'" + strings.ReplaceAll(v, "'", `'"'"'`) + "'"
}

func clip(v string, max int) string {
	if max <= 0 || len(v) <= max {
		return v
	}
	return v[:max] + "...(truncated)"
}
