package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/mailcouncil/internal/api"
	"github.com/mailcouncil/internal/config"
	"github.com/mailcouncil/internal/database"
	"github.com/mailcouncil/internal/debate"
	"github.com/mailcouncil/internal/events"
	"github.com/mailcouncil/internal/jobqueue"
	"github.com/mailcouncil/internal/llm"
	"github.com/mailcouncil/internal/logging"
	"github.com/mailcouncil/internal/redact"
	"github.com/mailcouncil/internal/tasks"
	"github.com/mailcouncil/internal/teams"
)

// ServeCommand returns the CLI command for starting the API server
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the MailCouncil API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Override the configured server port",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if port := c.Int("port"); port != 0 {
		cfg.Server.Port = port
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Pretty)

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	gateway, err := llm.NewGateway(llm.Options{
		RemoteAPIKey:      cfg.LLM.Remote.APIKey,
		RemoteModel:       cfg.LLM.Remote.Model,
		RemoteBaseURL:     cfg.LLM.Remote.BaseURL,
		RemoteTimeout:     time.Duration(cfg.LLM.Remote.TimeoutSeconds) * time.Second,
		LocalBaseURL:      cfg.LLM.Local.BaseURL,
		LocalModel:        cfg.LLM.Local.Model,
		LocalTimeout:      time.Duration(cfg.LLM.Local.TimeoutSeconds) * time.Second,
		Temperature:       cfg.LLM.Temperature,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
		Burst:             cfg.LLM.Burst,
	})
	if err != nil {
		return fmt.Errorf("failed to set up LLM gateway: %w", err)
	}

	scrubber, err := redact.NewScrubber(redact.Options{
		RedactPII:   cfg.Privacy.RedactPII,
		MaskSecrets: cfg.Privacy.MaskSecrets,
	})
	if err != nil {
		return fmt.Errorf("failed to set up privacy scrubber: %w", err)
	}
	var sanitizer debate.Sanitizer
	if scrubber.Enabled() {
		sanitizer = scrubber
	}

	tracker := tasks.NewTracker()
	bus := events.NewBroadcaster(cfg.Events.Buffer)
	defer bus.Close()

	engineCfg := debate.Config{
		Rounds:   cfg.Debate.Rounds,
		TraceDir: cfg.Logging.TraceDir,
	}

	// Postgres archival is optional: without a database URL, finished tasks
	// live in memory only.
	if databaseURL := database.ResolveURL(cfg.Database.URL); databaseURL != "" {
		db, err := database.NewDB(databaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		store := tasks.NewPostgresStore(db)

		queue, err := jobqueue.NewQueue(context.Background(), databaseURL, cfg.Database.ArchiveWorkers, tracker, store)
		if err != nil {
			return fmt.Errorf("failed to set up archival queue: %w", err)
		}
		if err := queue.Start(context.Background()); err != nil {
			return fmt.Errorf("failed to start archival queue: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := queue.Stop(ctx); err != nil {
				log.Warn().Err(err).Msg("Archival queue did not stop cleanly")
			}
		}()

		engineCfg.OnTerminal = func(taskID string) {
			if err := queue.EnqueueArchive(context.Background(), taskID); err != nil {
				log.Warn().Err(err).Str("task_id", taskID).Msg("Failed to enqueue task archival")
			}
		}
		log.Info().Msg("Task archival enabled")
	}

	engine := debate.NewEngine(engineCfg, registry, gateway, tracker, bus, sanitizer)

	server := api.NewServer(api.Options{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		Engine:            engine,
		Tracker:           tracker,
		Teams:             registry,
		Bus:               bus,
		JWTSecret:         cfg.Auth.JWTSecret,
		APIKeyHash:        cfg.Auth.APIKeyHash,
		HeartbeatInterval: time.Duration(cfg.Events.HeartbeatSeconds) * time.Second,
	})

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Bool("remote_llm", gateway.RemoteEnabled()).
		Int("teams", len(registry.List())).
		Msg("Starting MailCouncil API server")

	return server.Start()
}

// buildRegistry loads the team catalog. A configured teams file replaces the
// built-in catalog entirely rather than merging with it.
func buildRegistry(cfg *config.Config) (*teams.Registry, error) {
	defs := teams.Builtin()
	if cfg.Teams.File != "" {
		loaded, err := teams.LoadFile(cfg.Teams.File)
		if err != nil {
			return nil, fmt.Errorf("failed to load teams file: %w", err)
		}
		defs = loaded
	}
	registry, err := teams.NewRegistry(defs)
	if err != nil {
		return nil, fmt.Errorf("invalid team definitions: %w", err)
	}
	return registry, nil
}
