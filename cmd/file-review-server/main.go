package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"file-review-server/internal/commit"
	"file-review-server/internal/config"
	"file-review-server/internal/filesystem"
	"file-review-server/internal/mcp"
	"file-review-server/internal/reviewdir"
	"file-review-server/internal/service"
	"file-review-server/internal/session"
	"file-review-server/internal/transport"
)

var (
	cfgFile    string
	workingDir string
	transportF string
	port       int
	reviewMode string
	reviewRoot string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "file-review-server",
		Short: "Human-in-the-loop file editing server",
		Long: "file-review-server stages every requested file change as a review session. " +
			"Nothing reaches disk until a human approves the staged content byte for byte.",
		RunE: run,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default: ./file-review-server.yaml)")
	rootCmd.Flags().StringVarP(&workingDir, "working-dir", "w", "", "working directory all target paths resolve under")
	rootCmd.Flags().StringVarP(&transportF, "transport", "t", "", "transport: http or stdio")
	rootCmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP listen port")
	rootCmd.Flags().StringVar(&reviewMode, "review-mode", "", "review mode: watch or manual")
	rootCmd.Flags().StringVar(&reviewRoot, "review-root", "", "directory for per-session review staging")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("effective configuration",
		zap.String("working_directory", cfg.WorkingDirectory),
		zap.String("transport", cfg.Transport),
		zap.Int("port", cfg.Port),
		zap.String("review_mode", cfg.ReviewMode),
		zap.Int("max_file_size_mb", cfg.MaxFileSizeMB),
		zap.Int("max_anchor_length", cfg.MaxAnchorLength))

	fsAdapter := filesystem.NewDefaultFileSystemAdapter()
	store := session.NewStore(logger.Named("session"))
	engine := commit.NewEngine(fsAdapter, time.Duration(cfg.LockTimeoutSec)*time.Second, logger.Named("commit"))

	var surface *reviewdir.Surface
	if cfg.ReviewMode == config.ReviewModeWatch {
		root := cfg.ReviewRoot
		if root == "" {
			root = filepath.Join(os.TempDir(), "file-review-server")
		}
		surface = reviewdir.NewSurface(root, fsAdapter, logger.Named("reviewdir"))
		logger.Info("watch mode enabled", zap.String("review_root", root))
	}

	svc, err := service.NewDefaultReviewService(fsAdapter, store, engine, surface, cfg, logger.Named("service"))
	if err != nil {
		return fmt.Errorf("initializing review service: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)
	serverDone := make(chan error, 1)

	var httpHandler *transport.HTTPHandler
	switch cfg.Transport {
	case "http":
		httpHandler = transport.NewHTTPHandler(svc, logger.Named("http"))
		go func() { serverDone <- httpHandler.StartServer(cfg.Port) }()
	case "stdio":
		stdioHandler := transport.NewStdioHandler(svc, mcp.NewProcessor(svc), logger.Named("stdio"))
		go func() { serverDone <- stdioHandler.Start(ctx, os.Stdin, os.Stdout) }()
	}

	select {
	case sig := <-shutdownChan:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
		if httpHandler != nil {
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelShutdown()
			if err := httpHandler.Shutdown(shutdownCtx); err != nil {
				logger.Warn("HTTP server shutdown", zap.Error(err))
			}
		}
	case err := <-serverDone:
		if err != nil {
			logger.Error("server stopped", zap.Error(err))
			return err
		}
		logger.Info("server stopped")
	}
	return nil
}

// applyFlagOverrides lets explicitly-set flags win over file and env config.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("working-dir") {
		cfg.WorkingDirectory = workingDir
	}
	if cmd.Flags().Changed("transport") {
		cfg.Transport = transportF
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = port
	}
	if cmd.Flags().Changed("review-mode") {
		cfg.ReviewMode = reviewMode
	}
	if cmd.Flags().Changed("review-root") {
		cfg.ReviewRoot = reviewRoot
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = verbose
	}
}

// buildLogger configures zap. On stdio transport all logs go to stderr so
// stdout stays a clean JSON-RPC channel.
func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Verbose {
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	if cfg.Transport == "stdio" {
		zapCfg.OutputPaths = []string{"stderr"}
		zapCfg.ErrorOutputPaths = []string{"stderr"}
	}
	return zapCfg.Build()
}
