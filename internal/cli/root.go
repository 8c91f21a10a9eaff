package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ahnaf005/llm-bug-report/internal/artifact"
	"github.com/ahnaf005/llm-bug-report/internal/artifact/bugswarm"
	"github.com/ahnaf005/llm-bug-report/internal/config"
	"github.com/ahnaf005/llm-bug-report/internal/llm"
	"github.com/ahnaf005/llm-bug-report/internal/llm/configbuilder"
	"github.com/ahnaf005/llm-bug-report/internal/logging"
	"github.com/ahnaf005/llm-bug-report/internal/observability"
	"github.com/ahnaf005/llm-bug-report/internal/version"
)

// Options holds global CLI options.
type Options struct {
	ConfigPath string
	EnvFile    string

	// Constructors swapped out by tests.
	newArtifacts func(cfg *config.Config) artifact.Provider
	newRegistry  func(cfg *config.Config) (*llm.Registry, error)
}

// NewRootCmd constructs the base CLI command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&Options{})
}

func newRootCmd(opts *Options) *cobra.Command {
	if opts.newArtifacts == nil {
		opts.newArtifacts = func(cfg *config.Config) artifact.Provider {
			return bugswarm.NewClient(bugswarm.Options{
				BaseURL:           cfg.Artifacts.BaseURL,
				Token:             cfg.Artifacts.Token,
				Timeout:           cfg.Artifacts.Timeout,
				RequestsPerSecond: cfg.Artifacts.RequestsPerSecond,
				Burst:             cfg.Artifacts.Burst,
			})
		}
	}
	if opts.newRegistry == nil {
		opts.newRegistry = configbuilder.BuildRegistryFromConfig
	}

	cmd := &cobra.Command{
		Use:           "bugreport",
		Short:         "Select failing-build artifacts and generate LLM bug reports",
		Version:       version.Full(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "Path to config file (default: configs/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "Dotenv file with credentials (ignored when missing)")

	cmd.AddCommand(NewSelectCmd(opts))
	cmd.AddCommand(NewReportCmd(opts))
	cmd.AddCommand(NewReadabilityCmd(opts))
	cmd.AddCommand(NewDoctorCmd(opts))
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// loadConfig reads the dotenv file, if any, then the config.
func loadConfig(opts *Options) (*config.Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// session is the per-invocation state shared by the pipeline commands.
type session struct {
	cfg     *config.Config
	logger  *zap.Logger
	runID   string
	metrics *observability.Metrics
}

func openSession(opts *Options) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	base, err := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	logger, runID := logging.WithRun(base)
	return &session{
		cfg:     cfg,
		logger:  logger,
		runID:   runID,
		metrics: observability.NewMetrics(),
	}, nil
}

// close pushes metrics when a Pushgateway is configured and flushes the logger.
func (s *session) close(ctx context.Context) {
	if err := s.metrics.Push(ctx, s.cfg.Metrics.PushURL, s.cfg.Metrics.Job); err != nil {
		s.logger.Warn("metrics push failed", zap.Error(err))
	}
	_ = s.logger.Sync()
}
