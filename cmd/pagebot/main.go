package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"pagebot/internal/bus"
	"pagebot/internal/catalog"
	"pagebot/internal/config"
	"pagebot/internal/messenger"
	"pagebot/internal/parseserver"
	"pagebot/internal/quiz"
	"pagebot/internal/router"
	"pagebot/internal/webhook"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "pagebot",
		Short: "Pagebot: Messenger page webhook bridge",
		Long:  "Pagebot receives Facebook page webhook events and answers them through the Send API, backed by a trainable reply service.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.pagebot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(configCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
				return err
			}
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists: %s", cfgPath)
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			return nil
		},
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook server",
		Long:  "Starts the webhook HTTP server and the event dispatch workers. Press Ctrl+C to stop.",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.RequireCredentials(cfg); err != nil {
		return err
	}

	logger = buildLogger(cfg.General)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Load(cfg.Catalog.Path, logger)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Quiz.DBPath), 0o755); err != nil {
		return err
	}
	quizStore, err := quiz.NewStore(cfg.Quiz.DBPath,
		time.Duration(cfg.Quiz.TTLMinutes)*time.Minute, logger)
	if err != nil {
		return fmt.Errorf("quiz store: %w", err)
	}
	defer quizStore.Close()

	eventBus := bus.New(cfg.Dispatch.BufferSize, logger)

	replySvc := parseserver.New(parseserver.Config{
		BaseURL:       cfg.ReplyService.BaseURL,
		ApplicationID: cfg.ReplyService.ApplicationID,
		RESTKey:       cfg.ReplyService.RESTKey,
		Timeout:       time.Duration(cfg.ReplyService.TimeoutSeconds) * time.Second,
		Logger:        logger,
	})

	sender := messenger.NewClient(messenger.ClientConfig{
		GraphBaseURL:       cfg.Messenger.GraphBaseURL,
		APIVersion:         cfg.Messenger.APIVersion,
		PageAccessToken:    cfg.Messenger.PageAccessToken,
		CommentAccessToken: cfg.Messenger.CommentAccessToken,
		Timeout:            time.Duration(cfg.Messenger.SendTimeoutSeconds) * time.Second,
		MaxRetries:         cfg.Messenger.SendMaxRetries,
		Logger:             logger,
	})

	rt := router.New(router.Config{
		Sender:       sender,
		ReplyService: replySvc,
		QuizStore:    quizStore,
		Composer:     messenger.NewComposer(cat),
		Catalog:      cat,
		QuizOptions:  cfg.Quiz.OptionCount,
		Logger:       logger,
	})

	dispatcher := router.NewDispatcher(router.DispatcherConfig{
		Bus:     eventBus,
		Router:  rt,
		Workers: cfg.Dispatch.Workers,
		Logger:  logger,
	})
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(ctx)
	}()

	server := webhook.NewServer(webhook.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		WebhookPath:     cfg.Server.WebhookPath,
		AppSecret:       cfg.Messenger.AppSecret,
		ValidationToken: cfg.Messenger.ValidationToken,
		Bus:             eventBus,
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsEndpoint: cfg.Metrics.Endpoint,
		Logger:          logger,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	logger.Info("pagebot started. Press Ctrl+C to stop.", "version", version)

	select {
	case err := <-serverErr:
		return fmt.Errorf("webhook server: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down...")

	const shutdownTimeout = 10 * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown incomplete", "err", err)
	}

	// Let the workers drain what the server already accepted.
	eventBus.Close()
	select {
	case <-dispatcherDone:
		logger.Info("shutdown complete")
		return nil
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timed out, forcing exit")
		return fmt.Errorf("shutdown timed out")
	}
}

// buildLogger applies the configured log level and optional log file.
func buildLogger(cfg config.GeneralConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	out := os.Stderr
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Warn("cannot open log file, using stderr", "path", cfg.LogFile, "err", err)
		} else {
			out = f
		}
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false)
				cfg = config.Defaults()
			} else {
				logger.Info("config", "path", cfgPath, "loaded", true)
			}
			if err := config.RequireCredentials(cfg); err != nil {
				logger.Warn("credentials incomplete", "err", err)
			} else {
				logger.Info("credentials", "complete", true)
			}
			logger.Info("server",
				"addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
				"webhook", cfg.Server.WebhookPath)
			logger.Info("reply service", "baseUrl", cfg.ReplyService.BaseURL)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("pagebot " + version)
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. server.port)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. server.port 8080)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values (secrets masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			sanitized := config.Sanitize(cfg)
			data, _ := json.MarshalIndent(sanitized, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
