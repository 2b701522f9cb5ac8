// Package cmd defines the concurrent-sentiment command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/concurrent-sentiment/internal/api"
	"github.com/JakeFAU/concurrent-sentiment/internal/app"
	"github.com/JakeFAU/concurrent-sentiment/internal/config"
	"github.com/JakeFAU/concurrent-sentiment/internal/logging"
)

// needsAppAnnotation marks commands that use the shared services. Others only
// get configuration and a logger.
const needsAppAnnotation = "sentiment/needs-app"

type stateKeyType string

const stateKey stateKeyType = "state"

// App is the part of *app.App the commands use. Tests swap in a fake.
type App interface {
	Analyze(ctx context.Context, req app.AnalyzeRequest) (app.Outcome, error)
	Server() *api.Server
	Close() error
}

// newApp is the application factory.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (App, error) {
	return app.New(ctx, cfg, logger)
}

// state is what PersistentPreRunE hands to subcommands.
type state struct {
	cfgFile string
	cfg     config.Config
	logger  *zap.Logger
	app     App
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "sentiment",
		Short: "Score the sentiment of web pages in parallel",
		Long: `sentiment fetches a list of pages, scores the text of each against
positive and negative word lists, and records CPU and memory use while it
works. Pages are split across threads or worker processes.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if err := applyFlagOverrides(cmd, &cfg); err != nil {
				return err
			}
			logger, err := logging.New(logging.Options{Development: cfg.Logging.Development, Level: cfg.Logging.Level})
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(logger)

			st := &state{cfgFile: cfgFile, cfg: cfg, logger: logger}
			if _, ok := cmd.Annotations[needsAppAnnotation]; ok {
				st.app, err = newApp(cmd.Context(), cfg, logger)
				if err != nil {
					return fmt.Errorf("initialize application services: %w", err)
				}
			}
			cmd.SetContext(context.WithValue(cmd.Context(), stateKey, st))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, TOML or JSON)")

	cmd.AddCommand(newAnalyzeCmd())
	cmd.AddCommand(newWorkerCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// applyFlagOverrides lets command flags win over file and environment values.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) error {
	changed := false
	if f := cmd.Flags().Lookup("mode"); f != nil && f.Changed {
		cfg.Executor.Mode = f.Value.String()
		changed = true
	}
	if f := cmd.Flags().Lookup("workers"); f != nil && f.Changed {
		n, err := cmd.Flags().GetInt("workers")
		if err != nil {
			return err
		}
		cfg.Executor.Workers = n
		changed = true
	}
	if f := cmd.Flags().Lookup("urls"); f != nil && f.Changed {
		cfg.Input.URLsFile = f.Value.String()
		changed = true
	}
	if !changed {
		return nil
	}
	return cfg.Validate()
}

func resolveState(ctx context.Context) (*state, error) {
	st, ok := ctx.Value(stateKey).(*state)
	if !ok || st == nil {
		return nil, errors.New("command state not initialized")
	}
	return st, nil
}

// release closes the services of a command. Commands defer it themselves
// since cobra skips post-run hooks when RunE fails.
func (st *state) release() {
	if st.app != nil {
		if err := st.app.Close(); err != nil {
			st.logger.Warn("close application services", zap.Error(err))
		}
		st.app = nil
	}
	_ = st.logger.Sync()
}

func resolveApp(ctx context.Context) (*state, App, error) {
	st, err := resolveState(ctx)
	if err != nil {
		return nil, nil, err
	}
	if st.app == nil {
		return nil, nil, errors.New("application services not initialized")
	}
	return st, st.app, nil
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		zap.L().Error("command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
