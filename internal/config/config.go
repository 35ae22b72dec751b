// Package config loads LADE's runtime settings: a flag/env layer (flags
// override environment, environment overrides a hardcoded default) over
// a plain struct, no viper/cobra dependency.
package config

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Addr       string // HTTP listen address for the internal hook/status server
	DBPath     string // SQLite database path
	RedisAddr  string // Redis connection string for the production dedup store; empty uses the in-memory fallback
	NumWorkers int    // job-runner worker pool size
	DedupTTL   time.Duration
	Debug      bool

	DropboxClientID     string
	DropboxClientSecret string
	DropboxRedirectURL  string
}

// Load parses command line flags and environment variables to populate Config.
// Flags take precedence over environment variables.
func Load() *Config {
	cfg := &Config{}

	// Defaults and Environment Variables
	cfg.Addr = getEnv("LADE_ADDR", ":8080")
	cfg.DBPath = getEnv("LADE_DB", getDefaultDBPath())
	cfg.RedisAddr = getEnv("LADE_REDIS_ADDR", "")
	cfg.NumWorkers = int(getEnvFloat("LADE_WORKERS", float64(runtime.NumCPU())))
	cfg.DedupTTL = time.Duration(getEnvFloat("LADE_DEDUP_TTL_SECONDS", 120)) * time.Second
	cfg.Debug = getEnvBool("LADE_DEBUG", false)
	cfg.DropboxClientID = getEnv("LADE_DROPBOX_CLIENT_ID", "")
	cfg.DropboxClientSecret = getEnv("LADE_DROPBOX_CLIENT_SECRET", "")
	cfg.DropboxRedirectURL = getEnv("LADE_DROPBOX_REDIRECT_URL", "")

	// Command Line Flags (Override Env)
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP server address")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to SQLite database")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address for the dedup store (empty = in-memory)")
	flag.IntVar(&cfg.NumWorkers, "workers", cfg.NumWorkers, "Job runner worker pool size")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable verbose debug logging")
	flag.StringVar(&cfg.DropboxClientID, "dropbox-client-id", cfg.DropboxClientID, "Dropbox OAuth app client id")
	flag.StringVar(&cfg.DropboxClientSecret, "dropbox-client-secret", cfg.DropboxClientSecret, "Dropbox OAuth app client secret")
	flag.StringVar(&cfg.DropboxRedirectURL, "dropbox-redirect-url", cfg.DropboxRedirectURL, "Dropbox OAuth redirect URL")

	flag.Parse()

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getDefaultDBPath returns the default database path in the user's home
// directory, creating the directory if it doesn't exist.
func getDefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("Warning: Could not get user home directory, using current dir: %v", err)
		return "lade.db"
	}

	ladeDir := filepath.Join(home, ".lade")

	if err := os.MkdirAll(ladeDir, 0755); err != nil {
		log.Printf("Warning: Could not create .lade directory, using current dir: %v", err)
		return "lade.db"
	}

	return filepath.Join(ladeDir, "lade.db")
}
