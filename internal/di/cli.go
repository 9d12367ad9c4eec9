package di

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/DaX-523/notes-ai-1811/internal/app"
	"github.com/DaX-523/notes-ai-1811/internal/cache"
	"github.com/DaX-523/notes-ai-1811/internal/client"
	"github.com/DaX-523/notes-ai-1811/internal/config"
	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
	"github.com/DaX-523/notes-ai-1811/internal/infrastructure/persistence"
	"github.com/DaX-523/notes-ai-1811/internal/repository"
	"github.com/DaX-523/notes-ai-1811/internal/session"
)

// CLI is everything the notes command needs.
type CLI struct {
	Config     *config.Config
	Logger     *zap.Logger
	API        *client.Client
	Summarizer *client.HTTPSummarizer
	Workspace  *app.Workspace
}

// ProvideCLILogger logs warnings and above; the CLI talks to the user on
// stdout.
func ProvideCLILogger(cfg *config.Config) (*zap.Logger, func(), error) {
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if cfg.Dynamic.LogLevel == "debug" {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := zcfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, func() { _ = logger.Sync() }, nil
}

func ProvideLocalStore(cfg *config.Config) (session.LocalStore, error) {
	dir := cfg.Client.StateDir
	if dir == "" {
		var err error
		if dir, err = session.DefaultStateDir(); err != nil {
			return nil, err
		}
	}
	return session.NewFileStore(dir), nil
}

func ProvideBoundary(cfg *config.Config, local session.LocalStore, logger *zap.Logger) (session.Boundary, error) {
	if cfg.Supabase.URL == "" || cfg.Supabase.AnonKey == "" {
		return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_ANON_KEY are required to sign in")
	}
	return session.NewSupabaseAuth(cfg.Supabase.URL, cfg.Supabase.AnonKey, local, logger)
}

func ProvideSession(boundary session.Boundary, local session.LocalStore, logger *zap.Logger) *session.Context {
	return session.NewContext(boundary, local, logger)
}

// ProvideAPIClient authenticates API calls with the session's current token.
func ProvideAPIClient(cfg *config.Config, sess *session.Context) *client.Client {
	return client.New(cfg.Client.APIURL, sess.Token)
}

func ProvideRemoteStore(cfg *config.Config, api *client.Client, logger *zap.Logger) repository.NoteStore {
	breaker := persistence.DefaultCircuitBreakerConfig("http")
	return persistence.Decorate(client.NewHTTPStore(api), persistence.Options{
		Backend:        "http",
		CallTimeout:    cfg.Store.CallTimeout,
		CircuitBreaker: &breaker,
		Logger:         logger,
	})
}

func ProvideHTTPSummarizer(api *client.Client) *client.HTTPSummarizer {
	return client.NewHTTPSummarizer(api)
}

// ProvideCacheFactory builds one mutation cache per signed-in user over the
// remote store.
func ProvideCacheFactory(cfg *config.Config, store repository.NoteStore, summarizer *client.HTTPSummarizer, logger *zap.Logger) app.CacheFactory {
	return func(owner note.User) *cache.MutationCache {
		return cache.New(store, summarizer, owner, cache.Options{
			CallTimeout: cfg.Store.CallTimeout,
			Logger:      logger.With(zap.String("user_id", owner.ID)),
		})
	}
}

func ProvideWorkspace(sess *session.Context, factory app.CacheFactory, logger *zap.Logger) *app.Workspace {
	return app.NewWorkspace(sess, factory, logger)
}
