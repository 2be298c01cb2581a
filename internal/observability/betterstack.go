package observability

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/riskibarqy/matchday/internal/config"
	"github.com/riskibarqy/matchday/internal/platform/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	shipperQueueSize    = 1024
	shipperMaxBatch     = 64
	shipperFlushEvery   = 2 * time.Second
	shipperDrainTimeout = 5 * time.Second
)

// InitBetterStackLogger returns a logger that tees records to stdout and,
// when enabled, ships records at or above the configured level to Better
// Stack. The returned close function drains the shipper queue.
func InitBetterStackLogger(cfg config.Config, baseLogger *logging.Logger) (*logging.Logger, func(context.Context) error, error) {
	if baseLogger == nil {
		baseLogger = logging.NewJSON(cfg.LogLevel)
	}

	if !cfg.BetterStackEnabled {
		baseLogger.Info("betterstack disabled", "reason", "BETTERSTACK_ENABLED=false")
		return baseLogger, func(context.Context) error { return nil }, nil
	}

	endpoint := betterStackURL(cfg.BetterStackEndpoint)
	if endpoint == "" {
		return nil, nil, fmt.Errorf("betterstack endpoint cannot be empty")
	}

	shipper := newLogShipper(endpoint, strings.TrimSpace(cfg.BetterStackToken), cfg.BetterStackTimeout)

	tee := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(logging.EncoderConfig()), zapcore.Lock(os.Stdout), cfg.LogLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(logging.EncoderConfig()), zapcore.AddSync(shipper), cfg.BetterStackMinLevel),
	)

	logger := logging.FromZap(zap.New(tee, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)))
	logger.Info("betterstack enabled",
		"endpoint", endpoint,
		"min_level", cfg.BetterStackMinLevel.String(),
		"service_name", cfg.ServiceName,
		"environment", cfg.AppEnv,
	)

	closeFn := func(ctx context.Context) error {
		if ctx == nil {
			ctx = context.Background()
		}
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, shipperDrainTimeout)
			defer cancel()
		}
		if err := shipper.Close(ctx); err != nil {
			return fmt.Errorf("drain betterstack queue: %w", err)
		}
		if err := logger.Sync(); err != nil && !syncErrIsBenign(err) {
			return err
		}
		return nil
	}

	return logger, closeFn, nil
}

// betterStackURL fills in the https scheme when the configured endpoint is a
// bare host.
func betterStackURL(raw string) string {
	v := strings.TrimSpace(raw)
	switch {
	case v == "":
		return ""
	case strings.Contains(v, "://"):
		return v
	default:
		return "https://" + v
	}
}

// logShipper buffers encoded records and POSTs them to the ingest endpoint
// in JSON-array batches. Write never blocks the logging path: when the queue
// is full the record is dropped and counted.
type logShipper struct {
	endpoint string
	token    string
	client   *http.Client

	queue   chan []byte
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	dropped atomic.Uint64

	batch [][]byte
}

func newLogShipper(endpoint, token string, timeout time.Duration) *logShipper {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	s := &logShipper{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: timeout},
		queue:    make(chan []byte, shipperQueueSize),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.run()

	return s
}

// Write implements zapcore.WriteSyncer. zap reuses p after the call returns,
// so the record is copied before it crosses the channel.
func (s *logShipper) Write(p []byte) (int, error) {
	record := bytes.TrimSpace(p)
	if len(record) == 0 {
		return len(p), nil
	}

	copied := make([]byte, len(record))
	copy(copied, record)

	select {
	case s.queue <- copied:
	default:
		s.dropped.Add(1)
	}

	return len(p), nil
}

func (s *logShipper) Sync() error { return nil }

func (s *logShipper) run() {
	defer close(s.done)

	ticker := time.NewTicker(shipperFlushEvery)
	defer ticker.Stop()

	for {
		select {
		case record := <-s.queue:
			s.batch = append(s.batch, record)
			if len(s.batch) >= shipperMaxBatch {
				s.flush()
			}
		case <-ticker.C:
			s.flush()
		case <-s.stop:
			for {
				select {
				case record := <-s.queue:
					s.batch = append(s.batch, record)
					if len(s.batch) >= shipperMaxBatch {
						s.flush()
					}
				default:
					s.flush()
					return
				}
			}
		}
	}
}

// flush POSTs the pending batch as a JSON array. Failures are reported on
// stderr; routing them through the logger would feed the shipper its own
// errors.
func (s *logShipper) flush() {
	if len(s.batch) == 0 {
		return
	}
	body := append([]byte{'['}, bytes.Join(s.batch, []byte{','})...)
	body = append(body, ']')
	s.batch = s.batch[:0]

	if dropped := s.dropped.Swap(0); dropped > 0 {
		fmt.Fprintf(os.Stderr, "betterstack queue overflow; dropped logs=%d\n", dropped)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "betterstack build request: %v\n", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "betterstack ship batch: %v\n", err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		fmt.Fprintf(os.Stderr, "betterstack ship batch: status=%d\n", resp.StatusCode)
	}
}

// Close stops the worker after it drains whatever is already queued. Records
// written after Close still land in the queue buffer but are not sent.
func (s *logShipper) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.once.Do(func() { close(s.stop) })

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func syncErrIsBenign(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "bad file descriptor") || strings.Contains(msg, "invalid argument")
}
