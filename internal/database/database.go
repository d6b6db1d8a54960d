// Package database opens the optional Postgres connection used for task
// archival. The server runs fully in-memory when no URL is configured.
package database

import (
	"bufio"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	_ "github.com/lib/pq"
)

// NewDB opens and verifies a Postgres connection.
func NewDB(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return db, nil
}

// ResolveURL picks the database URL to use: the configured value when set,
// else the DATABASE_URL environment variable, else a DATABASE_URL entry in
// the nearest .env file walking up from the working directory. An empty
// result means archival stays disabled.
func ResolveURL(configured string) string {
	if url := strings.TrimSpace(configured); url != "" {
		return url
	}
	if url := strings.TrimSpace(os.Getenv("DATABASE_URL")); url != "" {
		return url
	}

	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	envPath, ok := findEnvFile(wd)
	if !ok {
		return ""
	}

	url, err := readEnvValue(envPath, "DATABASE_URL")
	if err != nil {
		log.Debug().Err(err).Str("path", envPath).Msg("could not read .env file")
		return ""
	}
	return url
}

func readEnvValue(path, key string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		eqIdx := strings.IndexRune(line, '=')
		if eqIdx <= 0 {
			continue
		}
		if strings.TrimSpace(line[:eqIdx]) != key {
			continue
		}

		value := strings.TrimSpace(line[eqIdx+1:])
		return strings.Trim(value, `"'`), nil
	}
	return "", scanner.Err()
}

func findEnvFile(start string) (string, bool) {
	dir := start
	for {
		candidate := filepath.Join(dir, ".env")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
