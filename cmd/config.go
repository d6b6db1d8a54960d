package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mailcouncil/internal/config"
	"github.com/mailcouncil/internal/llm"
)

// ConfigCommand returns the config command
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write a sample configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
						Value:   "mailcouncil.toml",
					},
				},
				Action: runConfigInit,
			},
			{
				Name:   "validate",
				Usage:  "Check the configuration and team catalog it would serve with",
				Action: runConfigValidate,
			},
		},
	}
}

func runConfigInit(c *cli.Context) error {
	outputPath := c.String("output")

	if err := config.InitConfig(outputPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Created configuration file at %s\n", outputPath)
	fmt.Println("Edit it, then run: mailcouncil config validate --config " + outputPath)
	return nil
}

func runConfigValidate(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// A config is only servable if its team catalog loads too.
	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	remote := "local only"
	if !llm.IsPlaceholderKey(cfg.LLM.Remote.APIKey) {
		remote = cfg.LLM.Remote.Provider + "/" + cfg.LLM.Remote.Model
	}

	fmt.Println("Configuration is valid")
	fmt.Printf("  server:  %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  teams:   %d\n", len(registry.List()))
	fmt.Printf("  rounds:  %d\n", cfg.Debate.Rounds)
	fmt.Printf("  remote:  %s\n", remote)
	fmt.Printf("  local:   %s (%s)\n", cfg.LLM.Local.Model, cfg.LLM.Local.BaseURL)
	return nil
}
