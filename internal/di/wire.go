//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/DaX-523/notes-ai-1811/internal/config"
)

// ServerSet provides the API server.
var ServerSet = wire.NewSet(
	ProvideLogging,
	ProvideLogger,
	ProvideLevel,
	ProvideMetrics,
	ProvideTracer,
	ProvideBackend,
	ProvideNoteStore,
	ProvideProfileStore,
	ProvideEventPublisher,
	ProvideSummaryService,
	ProvideNotesService,
	ProvideTokenVerifier,
	ProvideRouter,
	wire.Struct(new(Server), "*"),
)

// CLISet provides the notes command's workspace.
var CLISet = wire.NewSet(
	ProvideCLILogger,
	ProvideLocalStore,
	ProvideBoundary,
	ProvideSession,
	ProvideAPIClient,
	ProvideRemoteStore,
	ProvideHTTPSummarizer,
	ProvideCacheFactory,
	ProvideWorkspace,
	wire.Struct(new(CLI), "*"),
)

// InitializeServer creates a fully wired API server.
func InitializeServer(ctx context.Context, cfg *config.Config) (*Server, func(), error) {
	wire.Build(ServerSet)
	return nil, nil, nil
}

// InitializeCLI creates a fully wired CLI.
func InitializeCLI(cfg *config.Config) (*CLI, func(), error) {
	wire.Build(CLISet)
	return nil, nil, nil
}
