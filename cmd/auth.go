package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mailcouncil/internal/api/auth"
	"github.com/mailcouncil/internal/config"
)

// AuthCommand returns the auth command for minting credentials
func AuthCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Mint API credentials",
		Subcommands: []*cli.Command{
			{
				Name:  "token",
				Usage: "Issue a JWT signed with the configured secret",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "subject",
						Usage: "Subject claim for the token",
						Value: "operator",
					},
				},
				Action: runAuthToken,
			},
			{
				Name:      "hash-key",
				Usage:     "Hash an API key for the auth.api_key_hash config entry",
				ArgsUsage: "KEY",
				Action:    runAuthHashKey,
			},
		},
	}
}

func runAuthToken(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is not configured")
	}

	ttl := time.Duration(cfg.Auth.TokenTTLHours) * time.Hour
	token, err := auth.IssueToken([]byte(cfg.Auth.JWTSecret), c.String("subject"), ttl)
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}

func runAuthHashKey(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("missing required argument: API key to hash")
	}

	hash, err := auth.HashAPIKey(c.Args().Get(0))
	if err != nil {
		return err
	}

	fmt.Println(hash)
	return nil
}
