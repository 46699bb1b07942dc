package main

import (
	"context"
	"time"

	"github.com/brizzai/dataport-cli/internal/config"
	"github.com/brizzai/dataport-cli/internal/logger"
	"github.com/brizzai/dataport-cli/internal/parser"
	"github.com/brizzai/dataport-cli/internal/requester"
	"github.com/brizzai/dataport-cli/internal/server"
	"github.com/brizzai/dataport-cli/internal/session"
	"github.com/brizzai/dataport-cli/internal/storage"
	"github.com/brizzai/dataport-cli/internal/tokens"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const stopTimeout = 5 * time.Second

// app holds the components a command works with.
type app struct {
	fx.In

	Config  *config.Config
	Manager *session.Manager
	Parser  parser.Parser
	Server  *server.Server
}

func modules(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		logger.Module,
		storage.Module,
		tokens.Module,
		requester.Module,
		session.Module,
		parser.Module,
		server.Module,
	)
}

// withApp loads the configuration from cmd's flags, starts the application
// graph, runs fn and stops the graph again.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	var a app
	fxApp := fx.New(
		modules(cfg),
		fx.NopLogger,
		fx.Populate(&a),
	)
	if err := fxApp.Err(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := fxApp.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := fxApp.Stop(stopCtx); err != nil {
			logger.Warn("failed to stop cleanly", zap.Error(err))
		}
	}()

	return fn(ctx, &a)
}
