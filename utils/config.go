package utils

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds the connection and workspace settings for a migration run.
// Values come from mirage.yaml in the working directory, overridable via
// MIRAGE_* environment variables (loaded from .env when present).
type Config struct {
	Endpoint      string
	Namespace     string
	Database      string
	Username      string
	Password      string
	MigrationsDir string
	SchemaFile    string
}

func LoadConfig() (*Config, error) {
	LoadEnv()

	v := viper.New()
	v.SetConfigName("mirage")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetDefault("endpoint", "ws://localhost:8000/rpc")
	v.SetDefault("namespace", "test")
	v.SetDefault("database", "test")
	v.SetDefault("migrations_dir", "migrations")
	v.SetDefault("schema_file", "schema.json")

	v.SetEnvPrefix("MIRAGE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read mirage.yaml: %v", err)
		}
	}

	cfg := &Config{
		Endpoint:      v.GetString("endpoint"),
		Namespace:     v.GetString("namespace"),
		Database:      v.GetString("database"),
		Username:      v.GetString("username"),
		Password:      v.GetString("password"),
		MigrationsDir: v.GetString("migrations_dir"),
		SchemaFile:    v.GetString("schema_file"),
	}

	// SURREAL_* variables win over everything, matching the driver docs.
	if endpoint := os.Getenv("SURREAL_ENDPOINT"); endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if user := os.Getenv("SURREAL_USER"); user != "" {
		cfg.Username = user
	}
	if pass := os.Getenv("SURREAL_PASS"); pass != "" {
		cfg.Password = pass
	}

	return cfg, nil
}
