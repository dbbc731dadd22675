// Package config provides configuration management for bizbook.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"
)

// Storage backends a book can live in.
const (
	BackendXML    = "xml"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// Backends lists every supported backend name.
var Backends = []string{BackendXML, BackendSQLite, BackendBolt}

// Config represents the application configuration.
type Config struct {
	Book  BookConfig
	Debug bool
}

// BookConfig locates the book and selects its storage.
type BookConfig struct {
	Root     string
	Backend  string
	XMLPath  string
	DBPath   string
	BoltPath string
}

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	// Load .env file
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	config := &Config{
		Book: BookConfig{
			Root:     getEnvOrDefault("BIZBOOK_ROOT", "./books"),
			Backend:  strings.ToLower(getEnvOrDefault("BIZBOOK_BACKEND", BackendXML)),
			XMLPath:  os.Getenv("BIZBOOK_XML_PATH"),
			DBPath:   os.Getenv("BIZBOOK_DB_PATH"),
			BoltPath: os.Getenv("BIZBOOK_BOLT_PATH"),
		},
		Debug: os.Getenv("DEBUG") == "true",
	}

	return config, nil
}

// Validate checks that every named setting is set and that the backend is
// one bizbook knows. Settings are named "book.root", "book.xmlPath" and so on.
func (c *Config) Validate(required ...string) error {
	var missing []string
	for _, key := range required {
		var value string
		switch key {
		case "book.root":
			value = c.Book.Root
		case "book.backend":
			value = c.Book.Backend
		case "book.xmlPath":
			value = c.Book.XMLPath
		case "book.dbPath":
			value = c.Book.DBPath
		case "book.boltPath":
			value = c.Book.BoltPath
		default:
			return fmt.Errorf("unknown configuration key %q", key)
		}
		if value == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your .env file or environment variables", missing)
	}

	if c.Book.Backend != "" && !slices.Contains(Backends, c.Book.Backend) {
		return fmt.Errorf("unsupported backend %q, expected one of %v", c.Book.Backend, Backends)
	}
	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
