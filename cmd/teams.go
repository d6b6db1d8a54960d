package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mailcouncil/internal/config"
)

// TeamsCommand returns the teams command
func TeamsCommand() *cli.Command {
	return &cli.Command{
		Name:   "teams",
		Usage:  "List the configured debate teams",
		Action: runTeams,
	}
}

func runTeams(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	for _, team := range registry.List() {
		fmt.Printf("%s - %s\n", team.Key, team.Name)
		if team.Mission != "" {
			fmt.Printf("  Mission: %s\n", team.Mission)
		}
		for _, role := range team.Roles {
			marker := ""
			if role.DecisionMaker {
				marker = " (decision maker)"
			}
			fmt.Printf("  %s %s%s\n", role.Icon, role.Name, marker)
		}
		fmt.Println()
	}
	return nil
}
