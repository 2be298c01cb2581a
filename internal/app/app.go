package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/riskibarqy/matchday/external/flowhook"
	"github.com/riskibarqy/matchday/external/footballdata"
	"github.com/riskibarqy/matchday/external/jobqueue"
	"github.com/riskibarqy/matchday/internal/config"
	"github.com/riskibarqy/matchday/internal/domain/device"
	"github.com/riskibarqy/matchday/internal/domain/match"
	"github.com/riskibarqy/matchday/internal/domain/team"
	"github.com/riskibarqy/matchday/internal/domain/trigger"
	"github.com/riskibarqy/matchday/internal/domain/user"
	"github.com/riskibarqy/matchday/internal/infrastructure/account/hubauth"
	cacherepo "github.com/riskibarqy/matchday/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/matchday/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/matchday/internal/infrastructure/repository/postgres"
	redisrepo "github.com/riskibarqy/matchday/internal/infrastructure/repository/redis"
	"github.com/riskibarqy/matchday/internal/interfaces/httpapi"
	basecache "github.com/riskibarqy/matchday/internal/platform/cache"
	idgen "github.com/riskibarqy/matchday/internal/platform/id"
	"github.com/riskibarqy/matchday/internal/platform/logging"
	"github.com/riskibarqy/matchday/internal/usecase"
)

// Application bundles the HTTP server with the background pieces the
// entrypoint drives: the refresh orchestrator and the resources that need
// closing on shutdown.
type Application struct {
	Server       *http.Server
	Orchestrator *usecase.RefreshOrchestratorService

	logger           *logging.Logger
	schedulerEnabled bool
	cleanups         []func() error
}

func NewApplication(ctx context.Context, cfg config.Config, logger *logging.Logger) (*Application, error) {
	if logger == nil {
		logger = logging.Default()
	}

	var cleanups []func() error
	closeAll := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			_ = cleanups[i]()
		}
	}

	var (
		teamRepo    team.Repository
		deviceRepo  device.Repository
		triggerRepo trigger.Repository
		mirror      usecase.MatchMirror
	)
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		db, err := otelsqlx.Connect("postgres", normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary),
			otelsql.WithDBSystem("postgresql"),
			otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
			otelsql.WithQueryFormatter(formatDBQueryForTrace),
		)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		cleanups = append(cleanups, db.Close)

		if err := postgres.BootstrapSeed(ctx, db); err != nil {
			closeAll()
			return nil, fmt.Errorf("bootstrap team seed: %w", err)
		}

		teamRepo = postgres.NewTeamRepository(db)
		deviceRepo = postgres.NewDeviceRepository(db)
		triggerRepo = postgres.NewTriggerEventRepository(db)
		mirror = postgres.NewMatchMirrorRepository(db)
	default:
		teamRepo = memory.NewTeamRepository(memory.SeedTeams())
		deviceRepo = memory.NewDeviceRepository()
		triggerRepo = memory.NewTriggerRepository()
	}

	var statusCache team.StatusCache
	if cfg.RedisEnabled {
		redisClient, err := redisrepo.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		cleanups = append(cleanups, redisClient.Close)
		statusCache = redisrepo.NewStatusStore(redisClient, cfg.RedisStatusTTL)
	} else {
		statusCache = memory.NewStatusStore()
	}

	var provider match.Provider
	if cfg.FootballDataEnabled {
		provider = footballdata.NewClient(footballdata.ClientConfig{
			BaseURL:        cfg.FootballDataBaseURL,
			Token:          cfg.FootballDataToken,
			Timeout:        cfg.FootballDataTimeout,
			MaxRetries:     cfg.FootballDataMaxRetries,
			Logger:         logger,
			CircuitBreaker: cfg.FootballDataCircuit,
		})
	} else {
		logger.Warn("match provider disabled; liveness and fixture lookups report no match")
		provider = disabledMatchProvider{}
	}

	if cfg.CacheEnabled {
		store := basecache.NewStore(cfg.CacheTTL)
		teamRepo = cacherepo.NewTeamRepository(teamRepo, store)
		deviceRepo = cacherepo.NewDeviceRepository(deviceRepo, store)
		provider = cacherepo.NewMatchProvider(provider, store, cfg.LiveCacheTTL)
	}

	var publisher usecase.TriggerPublisher
	if cfg.FlowHookEnabled {
		publisher = flowhook.NewPublisher(flowhook.PublisherConfig{
			WebhookURL:     cfg.FlowHookTargetURL,
			Token:          cfg.FlowHookToken,
			Timeout:        cfg.FlowHookTimeout,
			CircuitBreaker: cfg.FlowHookCircuit,
		}, logger)
	}

	var queue usecase.JobQueue
	if cfg.QStashEnabled {
		queue = jobqueue.NewQStashPublisher(jobqueue.QStashPublisherConfig{
			BaseURL:          cfg.QStashBaseURL,
			Token:            cfg.QStashToken,
			TargetBaseURL:    cfg.QStashTargetBaseURL,
			Retries:          cfg.QStashRetries,
			InternalJobToken: cfg.InternalJobToken,
			CircuitBreaker:   cfg.QStashCircuit,
		}, logger)
	}

	deviceSvc := usecase.NewDeviceService(deviceRepo, teamRepo, statusCache, idgen.NewRandomGenerator(), logger)
	teamSvc := usecase.NewTeamService(teamRepo, logger)
	livenessSvc := usecase.NewLivenessService(statusCache, provider, usecase.LivenessConfig{Window: cfg.LivenessWindow}, logger)
	outcomeSvc := usecase.NewOutcomeService(provider, logger)
	fixtureSvc := usecase.NewFixtureService(provider, cfg.Timezone, logger)
	snapshotSvc := usecase.NewSnapshotService(provider, logger)
	overviewSvc := usecase.NewOverviewService(deviceRepo, teamRepo, livenessSvc, snapshotSvc, fixtureSvc, logger)
	refreshSvc := usecase.NewRefreshService(
		deviceRepo,
		provider,
		statusCache,
		mirror,
		publisher,
		triggerRepo,
		usecase.RefreshConfig{MaxWorkers: cfg.RefreshMaxWorkers},
		logger,
	)
	orchestrator := usecase.NewRefreshOrchestratorService(
		refreshSvc,
		provider,
		queue,
		triggerRepo,
		usecase.RefreshOrchestratorConfig{
			ScheduleInterval: cfg.JobScheduleInterval,
			LiveInterval:     cfg.JobLiveInterval,
			PreKickoffLead:   cfg.JobPreKickoffLead,
		},
		logger,
	)

	var verifier httpapi.TokenVerifier
	if cfg.HubAuthEnabled {
		verifier = hubauth.NewClient(hubauth.Config{
			HTTPClient:     &http.Client{Timeout: cfg.HubAuthTimeout},
			BaseURL:        cfg.HubAuthBaseURL,
			IntrospectPath: cfg.HubAuthIntrospectPath,
			AdminKey:       cfg.HubAuthAdminKey,
			Timeout:        cfg.HubAuthTimeout,
			CacheTTL:       cfg.HubAuthCacheTTL,
			Logger:         logger,
			CircuitBreaker: cfg.HubAuthCircuit,
		})
	} else {
		logger.Warn("hub auth disabled; any bearer token is accepted")
		verifier = devTokenVerifier{}
	}

	handler := httpapi.NewHandler(
		deviceSvc,
		teamSvc,
		livenessSvc,
		outcomeSvc,
		fixtureSvc,
		snapshotSvc,
		overviewSvc,
		refreshSvc,
		orchestrator,
		triggerRepo,
		logger,
	)
	router := httpapi.NewRouter(handler, verifier, logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if server.Addr == "" {
		closeAll()
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return &Application{
		Server:           server,
		Orchestrator:     orchestrator,
		logger:           logger,
		schedulerEnabled: !cfg.QStashEnabled,
		cleanups:         cleanups,
	}, nil
}

// schedulerStartDelay leaves the HTTP listener time to come up before the
// first provider round-trip.
const schedulerStartDelay = 2 * time.Second

// schedulerRetryDelay paces retries after a failed cycle.
const schedulerRetryDelay = time.Minute

// RunScheduler drives refresh cycles in-process and blocks until ctx is
// done. When an external job queue is configured the queue carries the
// cadence instead and this returns immediately.
func (a *Application) RunScheduler(ctx context.Context) {
	if !a.schedulerEnabled {
		a.logger.Info("in-process scheduler disabled; refresh cycles arrive through the job queue")
		return
	}

	timer := time.NewTimer(schedulerStartDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		delay := schedulerRetryDelay
		result, err := a.Orchestrator.RunCycleDirect(ctx, usecase.CycleInput{})
		if err != nil {
			a.logger.ErrorContext(ctx, "refresh cycle failed", "error", err)
		} else {
			if next := time.Duration(result.NextCycleInMs) * time.Millisecond; next > 0 {
				delay = next
			}
			a.logger.InfoContext(ctx, "refresh cycle complete",
				"team_count", result.TeamCount,
				"live_team_count", result.LiveTeamCount,
				"event_count", result.Refresh.EventCount,
				"next_cycle_in", delay.String(),
			)
		}

		timer.Reset(delay)
	}
}

// Shutdown stops the HTTP server and releases storage connections.
func (a *Application) Shutdown(ctx context.Context) error {
	err := a.Server.Shutdown(ctx)
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		err = errors.Join(err, a.cleanups[i]())
	}
	return err
}

// disabledMatchProvider stands in when no provider is configured: every
// lookup reports no match, so condition checks read false instead of
// failing.
type disabledMatchProvider struct{}

func (disabledMatchProvider) LiveMatch(context.Context, int64) (*match.Match, error) {
	return nil, nil
}

func (disabledMatchProvider) TodayMatch(context.Context, int64) (*match.Match, error) {
	return nil, nil
}

func (disabledMatchProvider) NextMatch(context.Context, int64) (*match.Match, error) {
	return nil, nil
}

// devTokenVerifier authorizes any non-empty bearer token with a fixed
// principal. Wired only when hub auth is disabled.
type devTokenVerifier struct{}

func (devTokenVerifier) VerifyAccessToken(_ context.Context, token string) (user.Principal, error) {
	if strings.TrimSpace(token) == "" {
		return user.Principal{}, fmt.Errorf("%w: token is required", usecase.ErrUnauthorized)
	}
	return user.Principal{UserID: "dev", Email: "dev@localhost"}, nil
}
