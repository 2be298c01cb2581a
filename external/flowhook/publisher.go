package flowhook

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchday/internal/domain/trigger"
	"github.com/riskibarqy/matchday/internal/platform/logging"
	"github.com/riskibarqy/matchday/internal/platform/resilience"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"
)

var errFlowHookTransient = crerr.New("flow webhook transient failure")

type PublisherConfig struct {
	WebhookURL     string
	Token          string
	Timeout        time.Duration
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Publisher delivers trigger events to the flow engine's inbound webhook.
// Delivery is single-shot: the refresh worker records failures and the next
// observed transition produces a fresh event, so local retries would only
// risk duplicate automations.
type Publisher struct {
	client         *fasthttp.Client
	webhookURL     string
	token          string
	timeout        time.Duration
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
}

func NewPublisher(cfg PublisherConfig, logger *logging.Logger) *Publisher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Publisher{
		client: &fasthttp.Client{
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		webhookURL:     strings.TrimSpace(cfg.WebhookURL),
		token:          strings.TrimSpace(cfg.Token),
		timeout:        timeout,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

func (p *Publisher) Publish(ctx context.Context, event trigger.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.circuitEnabled {
		if err := p.breaker.Allow(); err != nil {
			p.logger.WarnContext(ctx, "flow webhook circuit breaker rejected request", "state", p.breaker.State())
			return fmt.Errorf("flow webhook is temporarily unavailable: %w", err)
		}
	}

	if strings.TrimSpace(string(event.Kind)) == "" {
		return crerr.New("trigger kind is required")
	}
	webhookURL, err := validateHTTPURL(p.webhookURL)
	if err != nil {
		return crerr.Wrap(err, "invalid FLOW_WEBHOOK_URL")
	}

	body, err := sonic.Marshal(buildWebhookBody(event))
	if err != nil {
		return crerr.Wrap(err, "marshal trigger event")
	}

	preview := buildWebhookCurlPreview(webhookURL, event.DispatchID, truncateForLog(string(body), 2048), p.token != "")
	p.logger.InfoContext(ctx, "flow webhook dispatch",
		"kind", string(event.Kind),
		"team_id", event.TeamID,
		"dispatch_id", event.DispatchID,
		"curl_preview", preview,
	)

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(webhookURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}
	if dispatchID := strings.TrimSpace(event.DispatchID); dispatchID != "" {
		// Receiver-side dedup: redelivery after a timed-out-but-delivered
		// attempt must not fire the automation twice.
		req.Header.Set("X-Dispatch-Id", dispatchID)
	}
	req.SetBodyRaw(body)

	if err := p.client.DoTimeout(req, resp, p.requestTimeout(ctx)); err != nil {
		callErr := fmt.Errorf("%w: deliver trigger kind=%s dispatch_id=%s: %v", errFlowHookTransient, event.Kind, event.DispatchID, err)
		p.recordCircuitResult(callErr)
		return callErr
	}

	status := resp.StatusCode()
	if status/100 != 2 {
		responseBody := strings.TrimSpace(string(resp.Body()))
		if isFlowHookRetryableStatus(status) {
			callErr := fmt.Errorf("%w: deliver trigger kind=%s dispatch_id=%s status=%d body=%s",
				errFlowHookTransient, event.Kind, event.DispatchID, status, truncateForLog(responseBody, 512))
			p.recordCircuitResult(callErr)
			return callErr
		}

		callErr := fmt.Errorf("deliver trigger kind=%s dispatch_id=%s status=%d body=%s",
			event.Kind, event.DispatchID, status, truncateForLog(responseBody, 512))
		p.recordCircuitResult(callErr)
		return callErr
	}

	p.recordCircuitResult(nil)
	return nil
}

func (p *Publisher) requestTimeout(ctx context.Context) time.Duration {
	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 && remaining < timeout {
			timeout = remaining
		}
	}
	return timeout
}

func (p *Publisher) recordCircuitResult(err error) {
	if !p.circuitEnabled || p.breaker == nil {
		return
	}
	if err == nil {
		p.breaker.RecordSuccess()
		return
	}
	if isFlowHookCircuitFailure(err) {
		p.breaker.RecordFailure()
		return
	}
	p.breaker.RecordSuccess()
}

func buildWebhookBody(event trigger.Event) webhookBody {
	body := webhookBody{
		DispatchID: strings.TrimSpace(event.DispatchID),
		Kind:       string(event.Kind),
		TeamID:     event.TeamID,
		DeviceIDs:  event.DeviceIDs,
		Payload:    event.Payload,
	}
	if !event.OccurredAt.IsZero() {
		body.OccurredAt = event.OccurredAt.UTC().Format(time.RFC3339)
	}
	return body
}

func buildWebhookCurlPreview(webhookURL, dispatchID, body string, withToken bool) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	appendPart := func(part string) {
		if buf.Len() > 0 {
			_ = buf.WriteByte(' ')
		}
		_, _ = buf.WriteString(part)
	}
	appendFlagHeader := func(value string) {
		appendPart("-H")
		appendPart(shellQuote(value))
	}

	appendPart("curl")
	appendPart("-X")
	appendPart("POST")
	appendPart(shellQuote(webhookURL))
	if withToken {
		appendFlagHeader("Authorization: Bearer ***")
	}
	appendFlagHeader("Content-Type: application/json")
	if strings.TrimSpace(dispatchID) != "" {
		appendFlagHeader("X-Dispatch-Id: " + strings.TrimSpace(dispatchID))
	}
	appendPart("-d")
	appendPart(shellQuote(body))

	return buf.String()
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "'\"'\"'") + "'"
}

func truncateForLog(value string, max int) string {
	if max <= 0 || len(value) <= max {
		return value
	}
	return value[:max] + "...(truncated)"
}

func validateHTTPURL(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", crerr.New("value is empty")
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", crerr.Wrapf(err, "parse %q", candidate)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", crerr.Newf("%q uses unsupported scheme=%q; expected http or https", candidate, parsed.Scheme)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return "", crerr.Newf("%q has empty host", candidate)
	}

	return candidate, nil
}

func isFlowHookCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errFlowHookTransient)
}

func isFlowHookRetryableStatus(statusCode int) bool {
	return statusCode == fasthttp.StatusRequestTimeout ||
		statusCode == fasthttp.StatusTooManyRequests ||
		statusCode >= fasthttp.StatusInternalServerError
}

type webhookBody struct {
	DispatchID string         `json:"dispatch_id,omitempty"`
	Kind       string         `json:"kind"`
	TeamID     int64          `json:"team_id"`
	DeviceIDs  []string       `json:"device_ids,omitempty"`
	OccurredAt string         `json:"occurred_at,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}
