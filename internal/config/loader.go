// Package config loads the election service configuration from defaults, an
// optional YAML file, an optional .env file and ELECTION_ environment
// variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/example/election-manager/internal/logging"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "ELECTION"

const minBallotTokenSecret = 16

// Config captures the settings of the election service.
type Config struct {
	HTTPPort          int           `yaml:"httpPort"          envconfig:"HTTP_PORT"`
	SQLitePath        string        `yaml:"sqlitePath"        envconfig:"SQLITE_PATH"`
	AdminKeyHash      string        `yaml:"adminKeyHash"      envconfig:"ADMIN_KEY_HASH"`
	BallotTokenSecret string        `yaml:"ballotTokenSecret" envconfig:"BALLOT_TOKEN_SECRET"`
	BallotTokenTTL    time.Duration `yaml:"ballotTokenTTL"    envconfig:"BALLOT_TOKEN_TTL"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout"   envconfig:"SHUTDOWN_TIMEOUT"`
	LogLevel          string        `yaml:"logLevel"          envconfig:"LOG_LEVEL"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		HTTPPort:        8080,
		SQLitePath:      "election.db",
		BallotTokenTTL:  30 * time.Minute,
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
	}
}

// Load reads configFile (YAML, optional) and envFile (dotenv, optional; an
// empty name tries ./.env) on top of Default, then applies the environment.
// Values already present in the environment win over the dotenv file.
func Load(configFile, envFile string) (Config, error) {
	cfg := Default()

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return Config{}, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if err := loadDotenv(envFile); err != nil {
		return Config{}, err
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("error processing environment: %w", err)
	}

	invalid := make([]string, 0, 4)
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		invalid = append(invalid, EnvPrefix+"_HTTP_PORT")
	}
	if strings.TrimSpace(cfg.SQLitePath) == "" {
		invalid = append(invalid, EnvPrefix+"_SQLITE_PATH")
	}
	if cfg.BallotTokenTTL <= 0 {
		invalid = append(invalid, EnvPrefix+"_BALLOT_TOKEN_TTL")
	}
	if cfg.ShutdownTimeout <= 0 {
		invalid = append(invalid, EnvPrefix+"_SHUTDOWN_TIMEOUT")
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		invalid = append(invalid, EnvPrefix+"_LOG_LEVEL")
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid configuration values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func loadDotenv(envFile string) error {
	explicit := envFile != ""
	if !explicit {
		envFile = ".env"
	}
	err := godotenv.Load(envFile)
	if err == nil || (!explicit && errors.Is(err, fs.ErrNotExist)) {
		return nil
	}
	return fmt.Errorf("error loading env file: %w", err)
}

// ValidateServe reports the settings the HTTP server cannot start without.
func (c Config) ValidateServe() error {
	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 1)

	if strings.TrimSpace(c.AdminKeyHash) == "" {
		missing = append(missing, EnvPrefix+"_ADMIN_KEY_HASH")
	}
	switch secret := strings.TrimSpace(c.BallotTokenSecret); {
	case secret == "":
		missing = append(missing, EnvPrefix+"_BALLOT_TOKEN_SECRET")
	case len(secret) < minBallotTokenSecret:
		invalid = append(invalid, EnvPrefix+"_BALLOT_TOKEN_SECRET")
	}

	if len(missing) > 0 {
		return fmt.Errorf("required configuration values are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid configuration values: %s", strings.Join(invalid, ", "))
	}
	return nil
}
