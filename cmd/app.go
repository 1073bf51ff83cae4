package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/guilhermegouw/parley/internal/config"
	"github.com/guilhermegouw/parley/internal/conversation"
	"github.com/guilhermegouw/parley/internal/db"
	"github.com/guilhermegouw/parley/internal/logging"
	"github.com/guilhermegouw/parley/internal/message"
	"github.com/guilhermegouw/parley/internal/mode"
	"github.com/guilhermegouw/parley/internal/provider"
	"github.com/guilhermegouw/parley/internal/pubsub"
	"github.com/guilhermegouw/parley/internal/reply"
	"github.com/guilhermegouw/parley/internal/server"
	"github.com/guilhermegouw/parley/internal/session"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	hub    *pubsub.Hub
	db     *db.DB
	orch   *conversation.Orchestrator
	owner  string
}

// loadConfig reads the .env file and the configuration named by the flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file") //nolint:errcheck // flag is registered on root
	if envFile != "" {
		if err := config.LoadDotEnv(envFile); err != nil {
			return nil, err
		}
	}

	path, _ := cmd.Flags().GetString("config") //nolint:errcheck // flag is registered on root
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (*logging.Logger, error) {
	opts := logging.Options{Level: cfg.Options.LogLevel, Output: cmd.ErrOrStderr()}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" { //nolint:errcheck // flag is registered on root
		opts.Level = lvl
	}

	debugMode, _ := cmd.Flags().GetBool("debug") //nolint:errcheck // flag is registered on root
	if debugMode || cfg.Options.Debug {
		opts.DebugFile = filepath.Join(cfg.DataDir(), "debug.log")
	}
	return logging.New(opts)
}

// newApp wires storage and the orchestrator from configuration. The
// classifier and generator are only built when withPorts is set, so commands
// that never run a turn work without model credentials.
func newApp(ctx context.Context, cmd *cobra.Command, withPorts bool) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	if p := logger.DebugPath(); p != "" {
		cmd.PrintErrf("Debug: %s\n", p)
	}

	a := &app{cfg: cfg, logger: logger, hub: pubsub.NewHub()}
	a.owner, _ = cmd.Flags().GetString("user") //nolint:errcheck // flag is registered on root

	sessStore, msgStore, err := a.openStores(ctx)
	if err != nil {
		_ = a.Close() //nolint:errcheck // already returning an error
		return nil, err
	}

	sessions := session.NewService(sessStore, a.hub.Session, logger.Logger)
	messages := message.NewService(msgStore, a.hub.Message, logger.Logger)

	var (
		classifier mode.Classifier
		generator  reply.Generator
	)
	if withPorts {
		var tiers provider.Tiers
		if cfg.Generator.Type == config.GeneratorLLM || cfg.Classifier.Type == config.ClassifierLLM {
			tiers, err = provider.NewBuilder(cfg).BuildModels(ctx)
			if err != nil {
				_ = a.Close() //nolint:errcheck // already returning an error
				return nil, fmt.Errorf("building models: %w", err)
			}
		}
		classifier = buildClassifier(cfg, tiers, logger.Logger)
		generator = buildGenerator(cfg, tiers)
	}

	a.orch = conversation.New(
		sessions,
		messages,
		classifier,
		generator,
		conversation.WithClassifierTimeout(cfg.Classifier.Timeout.Std()),
		conversation.WithGeneratorTimeout(cfg.Generator.Timeout.Std()),
		conversation.WithTurnBroker(a.hub.Turn),
		conversation.WithLogger(logger.Logger),
	)
	return a, nil
}

func (a *app) openStores(ctx context.Context) (session.Store, message.Store, error) {
	if a.cfg.Storage.Type == config.StorageMemory {
		sessStore := session.NewMemoryStore()
		msgStore := message.NewMemoryStore(func(ctx context.Context, id string) error {
			_, err := sessStore.Get(ctx, id)
			return err
		})
		return sessStore, msgStore, nil
	}

	database, err := db.Open(ctx, a.cfg.DBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	a.db = database
	return session.NewSQLiteStore(database.Conn()), message.NewSQLiteStore(database.Conn()), nil
}

func buildClassifier(cfg *config.Config, tiers provider.Tiers, logger *slog.Logger) mode.Classifier {
	keyword := mode.NewKeywordClassifier(cfg.Classifier.Keywords)

	var primary mode.Classifier
	switch cfg.Classifier.Type {
	case config.ClassifierHTTP:
		primary = mode.NewHTTPClassifier(cfg.Classifier.URL, &http.Client{})
	case config.ClassifierLLM:
		// Classification is a short call, so it goes to the cheaper tier.
		primary = mode.NewLLMClassifier(tiers.Small.Model)
	default:
		return keyword
	}

	if cfg.Classifier.Fallback {
		return mode.NewFallback(primary, keyword, logger)
	}
	return primary
}

func buildGenerator(cfg *config.Config, tiers provider.Tiers) reply.Generator {
	if cfg.Generator.Type == config.GeneratorHTTP {
		models := map[session.Mode]string{}
		if m, ok := cfg.Model(provider.TierFor(session.ModeSpecialized)); ok {
			models[session.ModeSpecialized] = m.Model
		}
		if m, ok := cfg.Model(provider.TierFor(session.ModeDefault)); ok {
			models[session.ModeDefault] = m.Model
		}
		return reply.NewHTTPGenerator(cfg.Generator.URL, &http.Client{},
			reply.WithAPIKey(cfg.Generator.APIKey),
			reply.WithModels(models),
			reply.WithSystemPrompt(cfg.Generator.SystemPrompt),
		)
	}
	return reply.NewLLMGenerator(tiers, cfg.Generator.SystemPrompt)
}

func (a *app) server() *server.Server {
	return server.New(a.orch, a.hub, a.logger.Logger)
}

// Close shuts down the hub and closes storage and the debug log.
func (a *app) Close() error {
	a.hub.Shutdown()

	var errs []error
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	errs = append(errs, a.logger.Close())
	return errors.Join(errs...)
}
