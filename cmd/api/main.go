package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DaX-523/notes-ai-1811/internal/config"
	"github.com/DaX-523/notes-ai-1811/internal/di"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	server, cleanup, err := di.InitializeServer(initCtx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}
	defer cleanup()

	logger := server.Logger
	logger.Info("Server initialized",
		zap.String("environment", string(cfg.Environment)),
		zap.String("backend", cfg.Store.Backend),
		zap.Strings("config_sources", cfg.LoadedFrom),
	)

	if cfg.Server.IsLambda {
		startLambda(server)
		return
	}

	watcher, err := config.NewWatcher(cfg, logger)
	if err != nil {
		logger.Warn("Config hot reload disabled", zap.Error(err))
	}
	if watcher != nil {
		watcher.OnChange(server.ApplyDynamic)
		defer watcher.Stop()
	}

	if err := serve(ctx, server); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		cleanup()
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

// serve runs the HTTP server until ctx is cancelled, then drains it.
func serve(ctx context.Context, server *di.Server) error {
	cfg := server.Config
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		server.Logger.Info("Starting server", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		server.Logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func startLambda(server *di.Server) {
	adapter := chiadapter.NewV2(server.Router)
	lambda.Start(func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		server.Logger.Debug("Lambda received request",
			zap.String("method", req.RequestContext.HTTP.Method),
			zap.String("path", req.RequestContext.HTTP.Path),
			zap.String("request_id", req.RequestContext.RequestID),
		)
		return adapter.ProxyWithContextV2(ctx, req)
	})
}
