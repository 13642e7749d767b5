package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/agents/conversation"
	"github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/agents/insight"
	"github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/complaint"
	"github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/llm"
	promptx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/prompt"
	statex "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/state"
	toolx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/tool"
	"github.com/tanpawarit/Busan-Civil-Complaint-Agent/internal/httpapi"
	configx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/pkg/config"
	databasex "github.com/tanpawarit/Busan-Civil-Complaint-Agent/pkg/database"
	_ "github.com/tanpawarit/Busan-Civil-Complaint-Agent/pkg/logger/autoload"
	openrouterx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/pkg/openrouter"
	qstashx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/pkg/qstash"
	rabbitmqx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/pkg/rabbitmq"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context) error {
	appCfg := configx.MustNew[httpapi.Config]("APP")
	llmCfg := configx.MustNew[llm.Config]("LLM")
	dbCfg := configx.MustNew[databasex.Config]("DB")
	sessionCfg := configx.MustNew[statex.Config]("SESSION")

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	profile, err := loadProfile(appCfg.ProfilePath)
	if err != nil {
		return err
	}

	repo, dbCloser, err := complaint.Open(ctx, *dbCfg)
	if err != nil {
		return fmt.Errorf("open complaint store: %w", err)
	}
	closers = append(closers, dbCloser)

	store, storeCloser, err := openSessionStore(*sessionCfg)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	if storeCloser != nil {
		closers = append(closers, storeCloser)
	}

	publishers, pubClosers, qstash, err := openPublishers()
	if err != nil {
		return err
	}
	closers = append(closers, pubClosers...)

	deps := toolx.Deps{Publishers: publishers}
	geoCfg := configx.MustNew[toolx.GeocoderConfig]("GEOCODER")
	if strings.TrimSpace(geoCfg.URL) != "" {
		geocoder, err := toolx.NewNominatimGeocoder(*geoCfg, nil)
		if err != nil {
			return fmt.Errorf("geocoder: %w", err)
		}
		deps.Geocoder = geocoder
	}

	registry, err := toolx.New(profile, deps)
	if err != nil {
		return fmt.Errorf("tool registry: %w", err)
	}

	gateway, err := llm.NewGatewayFromConfig(ctx, *llmCfg)
	if err != nil {
		return fmt.Errorf("model gateway: %w", err)
	}

	ctrl, err := conversation.New(gateway, registry, profile.SystemPrompt)
	if err != nil {
		return fmt.Errorf("conversation controller: %w", err)
	}
	sessions, err := conversation.NewSessions(store, ctrl, *sessionCfg)
	if err != nil {
		return err
	}

	insightCfg := llmCfg.InsightOpenRouter()
	insights := insight.New(openrouterx.NewClient(insightCfg), insight.Config{
		Model:       insightCfg.Model,
		Temperature: insightCfg.Temperature,
		Timeout:     llmCfg.Timeout,
	})

	apiDeps := httpapi.Deps{
		Chat:       sessions,
		Complaints: repo,
		Insights:   insights,
	}
	if qstash != nil {
		apiDeps.Events = qstash
	}

	if appCfg.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:    appCfg.Addr,
		Handler: httpapi.NewRouter(apiDeps),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", appCfg.Addr).
			Str("profile", profile.Version).
			Str("db_driver", dbCfg.NormalizedDriver()).
			Str("session_backend", sessionCfg.Backend).
			Bool("llm_offline", llmCfg.Offline()).
			Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loadProfile(path string) (*promptx.Profile, error) {
	if strings.TrimSpace(path) != "" {
		return promptx.LoadProfileFile(path)
	}
	return promptx.LoadProfile()
}

func openSessionStore(cfg statex.Config) (statex.Store, io.Closer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", statex.BackendMemory:
		return statex.NewMemoryStore(), nil, nil
	case statex.BackendBolt:
		store, err := statex.NewBoltStore(cfg.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case statex.BackendUpstash:
		upCfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH")
		store, err := statex.NewUpstashRedisStore(*upCfg,
			statex.WithKeyPrefix(cfg.KeyPrefix),
			statex.WithTTL(cfg.TTL),
		)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported session backend %q", cfg.Backend)
	}
}

// openPublishers wires the optional complaint event channels. The QStash
// client is returned separately because it also verifies deliveries.
func openPublishers() ([]toolx.Publisher, []io.Closer, *qstashx.Client, error) {
	var (
		publishers []toolx.Publisher
		closers    []io.Closer
		qstash     *qstashx.Client
	)

	qsCfg := configx.MustNew[qstashx.Config]("QSTASH")
	if qsCfg.Enabled() || qsCfg.CurrentSigningKey != "" {
		client, err := qstashx.NewClient(*qsCfg)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("qstash: %w", err)
		}
		qstash = client
		if qsCfg.Enabled() {
			publishers = append(publishers, client)
		}
	}

	rbCfg := configx.MustNew[rabbitmqx.Config]("RABBIT")
	if rbCfg.Enabled() {
		pub, err := rabbitmqx.NewPublisher(*rbCfg)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("rabbitmq: %w", err)
		}
		publishers = append(publishers, pub)
		closers = append(closers, pub)
	}
	return publishers, closers, qstash, nil
}
