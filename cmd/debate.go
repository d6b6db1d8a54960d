package cmd

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/mailcouncil/internal/config"
	"github.com/mailcouncil/internal/debate"
	"github.com/mailcouncil/internal/events"
	"github.com/mailcouncil/internal/llm"
	"github.com/mailcouncil/internal/logging"
	"github.com/mailcouncil/internal/redact"
	"github.com/mailcouncil/internal/tasks"
	"github.com/mailcouncil/pkg/models"
)

// DebateCommand returns the debate command for one-off runs without a server
func DebateCommand() *cli.Command {
	return &cli.Command{
		Name:  "debate",
		Usage: "Run a single query debate in-process and print the transcript",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "team",
				Aliases: []string{"t"},
				Usage:   "Team key to debate with",
				Value:   "triage",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Show thinking notices while agents work",
			},
		},
		ArgsUsage: "QUERY",
		Action:    runDebate,
	}
}

func runDebate(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("missing required argument: query text")
	}
	query := strings.Join(c.Args().Slice(), " ")
	verbose := c.Bool("verbose")

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
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
		LocalBaseURL:      cfg.LLM.Local.BaseURL,
		LocalModel:        cfg.LLM.Local.Model,
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

	engine := debate.NewEngine(debate.Config{
		Rounds:   cfg.Debate.Rounds,
		TraceDir: cfg.Logging.TraceDir,
	}, registry, gateway, tracker, bus, sanitizer)

	// Subscribe before starting so no turn can slip past unprinted.
	sub := bus.Subscribe()
	defer sub.Close()

	taskID, err := engine.StartDebate(c.String("team"), models.WorkItem{
		Kind:  models.WorkItemQuery,
		Query: query,
	})
	if err != nil {
		return fmt.Errorf("failed to start debate: %w", err)
	}

	fmt.Printf("Debate %s started with team %q\n", taskID, c.String("team"))

	for ev := range sub.Events() {
		if ev.Data.TaskID != taskID {
			continue
		}
		switch ev.Type {
		case models.EventAgentMessage:
			msg := ev.Data.Message
			if msg == nil {
				continue
			}
			if msg.Thinking {
				if verbose {
					fmt.Printf("  %s %s is thinking...\n", msg.Icon, msg.Role)
				}
				continue
			}
			fmt.Printf("\n[Round %d] %s %s:\n%s\n", msg.Round, msg.Icon, msg.Role, msg.Content)
		case models.EventDebateComplete:
			printDecision(ev.Data.Decision)
			return nil
		case models.EventDebateError:
			return fmt.Errorf("debate failed: %s", ev.Data.Reason)
		}
	}
	return fmt.Errorf("event stream closed before the debate finished")
}

func printDecision(d *models.Decision) {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Printf("DECISION by %s\n", d.DecidedBy)
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println(d.Summary)
	if len(d.ActionItems) > 0 {
		fmt.Println("\nAction items:")
		for _, item := range d.ActionItems {
			fmt.Printf("  - %s\n", item)
		}
	}
}
