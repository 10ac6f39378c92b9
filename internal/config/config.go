// Package config reads the bot's runtime configuration from the process
// environment, with an optional .env file for local development.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds everything cmd/main needs to wire the bot.
type Config struct {
	// Port serves the liveness endpoint the hosting platform polls.
	Port string
	// BridgeURL is the websocket address of the chat relay.
	BridgeURL string
	// Token authenticates the bot against the relay.
	Token string
	// DataFile is the JSON store path. Ignored when DatabaseURL is set.
	DataFile string
	// DatabaseURL, when non-empty, switches persistence to PostgreSQL.
	DatabaseURL string
	// Debug enables debug-level logging.
	Debug bool
}

// Load reads configuration. A missing .env file is not an error; real
// deployments set the environment directly.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:        getEnv("PORT", "8080"),
		BridgeURL:   getEnv("BRIDGE_URL", "ws://localhost:9090/ws"),
		Token:       os.Getenv("TOKEN"),
		DataFile:    getEnv("DATA_FILE", "eventos.json"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Debug:       os.Getenv("DEBUG") != "",
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
