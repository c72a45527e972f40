package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/webtags/native-host/internal/config"
	"github.com/webtags/native-host/internal/github"
	"github.com/webtags/native-host/internal/host"
	"github.com/webtags/native-host/internal/logger"
	"github.com/webtags/native-host/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the native messaging host on stdin/stdout",
	Long: `Run the message loop the browser extension talks to.

The browser starts this command itself via the native messaging manifest;
running it by hand is only useful for debugging with a framed-message
generator. All logging goes to stderr and the configured log file, never
stdout.`,
	Run: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	defer log.Sync()

	keys, err := storage.NewPlatformKeyStore()
	if err != nil {
		log.Warn("platform key store unavailable, encryption keys will not persist across restarts",
			zap.Error(err))
		keys = storage.NewMemoryKeyStore()
	}

	var gh *github.Client
	if cfg.GitHubAPIURL != "" {
		gh = github.NewClientWithAPIURL(nil, cfg.GitHubAPIURL)
	}

	session, err := host.NewSession(host.Options{
		BaseDir: cfg.BaseDir,
		Keys:    keys,
		GitHub:  gh,
		Log:     log,
	})
	if err != nil {
		log.Error("failed to start session", zap.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := session.Serve(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("message loop ended with error", zap.Error(err))
		os.Exit(1)
	}
}
