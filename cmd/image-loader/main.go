package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/vertextoedge/image-loader/internal/adapter/filesystem"
	"github.com/vertextoedge/image-loader/internal/adapter/httpclient"
	"github.com/vertextoedge/image-loader/internal/adapter/metrics"
	"github.com/vertextoedge/image-loader/internal/adapter/sqlite"
	"github.com/vertextoedge/image-loader/internal/config"
	"github.com/vertextoedge/image-loader/internal/domain"
	"github.com/vertextoedge/image-loader/internal/domain/event"
	"github.com/vertextoedge/image-loader/internal/logger"
	"github.com/vertextoedge/image-loader/internal/service/loader"
	"go.uber.org/zap"
)

const version = "1.0.0"

type rootOptions struct {
	configPath  string
	verbose     int
	veryVerbose bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:   "image-loader [flags] URLFILE DIRECTORY",
		Short: "Download the images listed in URLFILE into DIRECTORY",
		Long: `Download the images listed in URLFILE, one URL per line, into DIRECTORY.

Images whose local copy is not older than the server's are skipped using
If-Modified-Since, unless --force is given.`,
		Args:          cobra.ExactArgs(2),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return run(ctx, cmd.Flags(), opts, args[0], args[1])
		},
	}
	cmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	flags := cmd.Flags()
	flags.BoolP("force", "f", false, "Always download, ignoring the local copies")
	flags.CountVarP(&opts.verbose, "verbose", "v", "Verbose output (-v info, -vv debug)")
	flags.BoolVar(&opts.veryVerbose, "very-verbose", false, "Debug output, same as -vv")
	flags.StringVar(&opts.configPath, "config", "", "Optional YAML configuration file")
	flags.IntP("workers", "w", 10, "Number of concurrent downloads")
	flags.Duration("timeout", 10*time.Second, "Per-request timeout")
	flags.Int("max-connections", 10, "Maximum number of open connections")
	flags.String("log-format", "text", "Log format: text or json")
	flags.String("history-db", "", "Record every outcome in this SQLite database")
	flags.String("metrics-file", "", "Write Prometheus metrics to this file after the run")

	return cmd
}

// logLevelOverride maps the verbosity flags to a log level.
// It returns false when no verbosity flag was given.
func logLevelOverride(verbose int, veryVerbose bool) (string, bool) {
	if veryVerbose && verbose < 2 {
		verbose = 2
	}
	if verbose == 0 {
		return "", false
	}
	return logger.LevelForVerbosity(verbose), true
}

func run(ctx context.Context, flags *pflag.FlagSet, opts rootOptions, urlFile, destDir string) error {
	overrides := make(map[string]interface{})
	if level, ok := logLevelOverride(opts.verbose, opts.veryVerbose); ok {
		overrides["logging.level"] = level
	}

	// Load configuration
	cfg, err := config.Load(config.LoadOptions{
		ConfigPath: opts.configPath,
		Flags:      flags,
		Overrides:  overrides,
	})
	if err != nil {
		return domain.NewConfigError("", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	zapLogger := logger.GetZapLogger()
	zapLogger.Debug("starting image-loader",
		zap.String("version", version),
		zap.String("config", opts.configPath))

	for _, w := range cfg.Warnings() {
		zapLogger.Warn(w)
	}

	// Destination must be usable before any download starts
	dest, err := filesystem.NewManager(destDir, filesystem.Options{
		DirMode:    cfg.Output.GetDirMode(),
		FileMode:   cfg.Output.GetFileMode(),
		BufferSize: cfg.Output.GetBufferSize(),
	})
	if err != nil {
		return err
	}

	userAgent := cfg.HTTP.UserAgent
	if userAgent == "" {
		userAgent = "image-loader/" + version
	}
	client := httpclient.NewClient(httpclient.Options{
		Timeout:        cfg.HTTP.GetTimeout(),
		MaxConnections: cfg.HTTP.MaxConnections,
		PoolGroups:     cfg.HTTP.PoolGroups,
		UserAgent:      userAgent,
	})
	defer client.CloseIdleConnections()

	dispatcher := event.NewInMemoryDispatcher(func(e event.DomainEvent, err error) {
		zapLogger.Warn("event handler failed",
			zap.String("event", e.EventName()),
			zap.Error(err))
	})

	var store *sqlite.Store
	if cfg.History.Path != "" {
		store, err = sqlite.Open(cfg.History.Path)
		if err != nil {
			return domain.NewConfigError("history.path", err)
		}
		defer store.Close()
		dispatcher.Subscribe(event.NewHistoryHandler(store))
	}

	var collector *metrics.Collector
	if cfg.Metrics.Textfile != "" {
		collector = metrics.NewCollector()
		dispatcher.Subscribe(event.NewMetricsHandler(collector))
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	l := loader.New(&loader.Config{
		Workers:          cfg.Loader.Workers,
		Force:            cfg.Loader.Force,
		ProgressInterval: cfg.Loader.GetProgressInterval(),
	}, client, dest, dispatcher, zapLogger)

	summary, err := l.Run(ctx, urlFile)
	if err != nil {
		return err
	}

	if store != nil {
		stats, err := store.RunStats(summary.RunID)
		if err != nil {
			zapLogger.Warn("failed to read run history", zap.Error(err))
		} else {
			zapLogger.Info("run recorded in history",
				zap.String("path", cfg.History.Path),
				zap.String("run_id", summary.RunID),
				zap.Any("outcomes", stats))
		}
	}

	if collector != nil {
		if err := collector.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			zapLogger.Error("failed to write metrics textfile",
				zap.String("path", cfg.Metrics.Textfile),
				zap.Error(err))
		}
	}

	return nil
}
