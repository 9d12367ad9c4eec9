// Package di wires the API server and the CLI from configuration.
package di

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/go-chi/chi/v5"
	supa "github.com/supabase-community/supabase-go"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/DaX-523/notes-ai-1811/internal/config"
	"github.com/DaX-523/notes-ai-1811/internal/infrastructure/messaging/eventbridge"
	"github.com/DaX-523/notes-ai-1811/internal/infrastructure/observability"
	"github.com/DaX-523/notes-ai-1811/internal/infrastructure/persistence"
	"github.com/DaX-523/notes-ai-1811/internal/infrastructure/persistence/dynamodb"
	"github.com/DaX-523/notes-ai-1811/internal/infrastructure/persistence/memory"
	"github.com/DaX-523/notes-ai-1811/internal/infrastructure/persistence/sqlite"
	"github.com/DaX-523/notes-ai-1811/internal/infrastructure/persistence/supabase"
	"github.com/DaX-523/notes-ai-1811/internal/interfaces/http/handlers"
	"github.com/DaX-523/notes-ai-1811/internal/interfaces/http/middleware"
	"github.com/DaX-523/notes-ai-1811/internal/repository"
	"github.com/DaX-523/notes-ai-1811/internal/service/llm"
	"github.com/DaX-523/notes-ai-1811/internal/service/notes"
)

const serviceName = "notes-api"

// Logging is the process logger together with the level handle the config
// watcher adjusts.
type Logging struct {
	Logger *zap.Logger
	Level  zap.AtomicLevel
}

// Backend holds the undecorated stores of the configured backend.
type Backend struct {
	Name     string
	Notes    repository.NoteStore
	Profiles repository.ProfileStore
}

// Server is everything cmd/api needs to serve requests.
type Server struct {
	Config    *config.Config
	Logger    *zap.Logger
	Level     zap.AtomicLevel
	Metrics   *observability.Collector
	Summaries *llm.Service
	Notes     notes.Service
	Router    *chi.Mux
}

// ApplyDynamic pushes hot-reloadable settings into the running server.
func (s *Server) ApplyDynamic(d config.Dynamic) {
	if err := observability.SetLevel(s.Level, d.LogLevel); err != nil {
		s.Logger.Warn("ignoring log level", zap.String("level", d.LogLevel), zap.Error(err))
	}
	s.Summaries.SetRate(d.SummariesPerMinute)
	s.Summaries.SetEnabled(d.SummariesEnabled)
	s.Logger.Info("applied runtime settings",
		zap.String("log_level", d.LogLevel),
		zap.Int("summaries_per_minute", d.SummariesPerMinute),
		zap.Bool("summaries_enabled", d.SummariesEnabled))
}

func ProvideLogging(cfg *config.Config) (Logging, func(), error) {
	logger, level, err := observability.NewLogger(cfg.Dynamic.LogLevel, string(cfg.Environment))
	if err != nil {
		return Logging{}, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	cleanup := func() { _ = logger.Sync() }
	return Logging{Logger: logger, Level: level}, cleanup, nil
}

func ProvideLogger(l Logging) *zap.Logger {
	return l.Logger
}

func ProvideLevel(l Logging) zap.AtomicLevel {
	return l.Level
}

// ProvideMetrics returns nil when metrics are disabled; every consumer
// accepts a nil collector.
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.Observability.EnableMetrics {
		return nil
	}
	return observability.NewCollector(cfg.Observability.Namespace)
}

func ProvideTracer(cfg *config.Config, logger *zap.Logger) (trace.Tracer, func(), error) {
	if !cfg.Observability.EnableTracing {
		return noop.NewTracerProvider().Tracer(serviceName), func() {}, nil
	}
	tp, err := observability.InitTracing(serviceName, string(cfg.Environment), cfg.Observability.OTLPEndpoint)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("failed to flush spans", zap.Error(err))
		}
	}
	return tp.Tracer(), cleanup, nil
}

// ProvideBackend opens the stores named by Store.Backend.
func ProvideBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Backend, func(), error) {
	name := string(cfg.Store.Backend)
	nothing := func() {}

	switch cfg.Store.Backend {
	case config.BackendMemory:
		return Backend{Name: name, Notes: memory.NewNoteStore(), Profiles: memory.NewProfileStore()}, nothing, nil

	case config.BackendSQLite:
		store, err := sqlite.Open(cfg.Store.SQLitePath)
		if err != nil {
			return Backend{}, nil, err
		}
		cleanup := func() {
			if err := store.Close(); err != nil {
				logger.Warn("failed to close sqlite store", zap.Error(err))
			}
		}
		return Backend{Name: name, Notes: store, Profiles: store}, cleanup, nil

	case config.BackendDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Store.AWSRegion))
		if err != nil {
			return Backend{}, nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		store := dynamodb.NewStore(awsdynamodb.NewFromConfig(awsCfg), cfg.Store.TableName, logger)
		return Backend{Name: name, Notes: store, Profiles: store}, nothing, nil

	case config.BackendSupabase:
		store, err := supabase.NewStore(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey, logger)
		if err != nil {
			return Backend{}, nil, err
		}
		return Backend{Name: name, Notes: store, Profiles: store}, nothing, nil
	}
	return Backend{}, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

func storeOptions(b Backend, cfg *config.Config, logger *zap.Logger, metrics *observability.Collector, tracer trace.Tracer) persistence.Options {
	breaker := persistence.DefaultCircuitBreakerConfig(b.Name)
	return persistence.Options{
		Backend:        b.Name,
		CallTimeout:    cfg.Store.CallTimeout,
		CircuitBreaker: &breaker,
		Logger:         logger,
		Metrics:        metrics,
		Tracer:         tracer,
	}
}

func ProvideNoteStore(b Backend, cfg *config.Config, logger *zap.Logger, metrics *observability.Collector, tracer trace.Tracer) repository.NoteStore {
	return persistence.Decorate(b.Notes, storeOptions(b, cfg, logger, metrics, tracer))
}

func ProvideProfileStore(b Backend, cfg *config.Config, logger *zap.Logger, metrics *observability.Collector, tracer trace.Tracer) repository.ProfileStore {
	return persistence.DecorateProfiles(b.Profiles, storeOptions(b, cfg, logger, metrics, tracer))
}

// ProvideEventPublisher publishes to EventBridge when events are enabled
// and only logs them otherwise.
func ProvideEventPublisher(ctx context.Context, cfg *config.Config, logger *zap.Logger, metrics *observability.Collector) (repository.EventPublisher, error) {
	if !cfg.Events.Enabled {
		return eventbridge.NewLogPublisher(logger), nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Store.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return eventbridge.NewPublisher(awseventbridge.NewFromConfig(awsCfg), cfg.Events.BusName, logger, metrics), nil
}

func ProvideSummaryService(cfg *config.Config, logger *zap.Logger, metrics *observability.Collector) *llm.Service {
	provider := llm.NewGroqProvider(llm.GroqConfig{
		APIKey:  cfg.Groq.APIKey,
		Model:   cfg.Groq.Model,
		BaseURL: cfg.Groq.BaseURL,
	})
	svc := llm.NewService(provider, llm.Options{
		SummariesPerMinute: cfg.Dynamic.SummariesPerMinute,
		Logger:             logger,
		Metrics:            metrics,
	})
	svc.SetEnabled(cfg.Dynamic.SummariesEnabled)
	if !svc.IsAvailable() {
		logger.Warn("summaries unavailable; GROQ_API_KEY is not set or summaries are disabled")
	}
	return svc
}

func ProvideNotesService(
	store repository.NoteStore,
	profiles repository.ProfileStore,
	summaries *llm.Service,
	events repository.EventPublisher,
	logger *zap.Logger,
) notes.Service {
	return notes.NewService(store, profiles, summaries, events, logger)
}

// ProvideTokenVerifier checks tokens locally with the JWT secret when one is
// configured and asks Supabase Auth otherwise.
func ProvideTokenVerifier(cfg *config.Config) (middleware.TokenVerifier, error) {
	if cfg.Supabase.JWTSecret != "" {
		verifier, err := middleware.NewJWTVerifier(cfg.Supabase.JWTSecret)
		if err != nil {
			return nil, err
		}
		return verifier, nil
	}
	if cfg.Supabase.URL == "" || cfg.Supabase.AnonKey == "" {
		return nil, fmt.Errorf("SUPABASE_JWT_SECRET or SUPABASE_URL and SUPABASE_ANON_KEY are required")
	}
	client, err := supa.NewClient(cfg.Supabase.URL, cfg.Supabase.AnonKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return middleware.NewSupabaseVerifier(client.Auth), nil
}

func ProvideRouter(
	cfg *config.Config,
	svc notes.Service,
	verifier middleware.TokenVerifier,
	metrics *observability.Collector,
	logger *zap.Logger,
) *chi.Mux {
	return handlers.NewRouter(handlers.RouterConfig{
		Notes:          svc,
		Verifier:       verifier,
		Metrics:        metrics,
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.WriteTimeout,
	})
}
