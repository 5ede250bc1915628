package config

import (
	"log/slog"

	"github.com/joho/godotenv"
)

// loadDotEnv loads a .env file from the process CWD ahead of config parsing,
// so ${VAR} expansion in the YAML document can see it. Absence is not an
// error -- most deployments have no .env at all.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
}
