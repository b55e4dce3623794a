package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var electionVars = []string{
	"ELECTION_HTTP_PORT",
	"ELECTION_SQLITE_PATH",
	"ELECTION_ADMIN_KEY_HASH",
	"ELECTION_BALLOT_TOKEN_SECRET",
	"ELECTION_BALLOT_TOKEN_TTL",
	"ELECTION_SHUTDOWN_TIMEOUT",
	"ELECTION_LOG_LEVEL",
}

// clearEnv unsets the loader's variables for the test and restores them after.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range electionVars {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load("", "")
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg != Default() {
			t.Fatalf("expected defaults, got %+v", cfg)
		}
	})

	t.Run("yaml file overlays defaults", func(t *testing.T) {
		clearEnv(t)
		path := writeFile(t, "election.yaml", "httpPort: 9090\nsqlitePath: /tmp/e.db\nballotTokenTTL: 45m\n")

		cfg, err := Load(path, "")
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.HTTPPort != 9090 || cfg.SQLitePath != "/tmp/e.db" || cfg.BallotTokenTTL != 45*time.Minute {
			t.Fatalf("unexpected config %+v", cfg)
		}
		if cfg.LogLevel != "info" {
			t.Fatalf("expected default log level to survive, got %q", cfg.LogLevel)
		}
	})

	t.Run("environment wins over the file", func(t *testing.T) {
		clearEnv(t)
		path := writeFile(t, "election.yaml", "httpPort: 9090\n")
		t.Setenv("ELECTION_HTTP_PORT", "7070")
		t.Setenv("ELECTION_SHUTDOWN_TIMEOUT", "3s")

		cfg, err := Load(path, "")
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.HTTPPort != 7070 || cfg.ShutdownTimeout != 3*time.Second {
			t.Fatalf("unexpected config %+v", cfg)
		}
	})

	t.Run("reads an env file without overriding the environment", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ELECTION_LOG_LEVEL", "warn")
		envFile := writeFile(t, "test.env", "ELECTION_SQLITE_PATH=/srv/election.db\nELECTION_LOG_LEVEL=debug\n")

		cfg, err := Load("", envFile)
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.SQLitePath != "/srv/election.db" {
			t.Fatalf("expected path from env file, got %q", cfg.SQLitePath)
		}
		if cfg.LogLevel != "warn" {
			t.Fatalf("expected environment to win, got %q", cfg.LogLevel)
		}
	})

	t.Run("missing explicit env file", func(t *testing.T) {
		clearEnv(t)
		if _, err := Load("", filepath.Join(t.TempDir(), "absent.env")); err == nil {
			t.Fatalf("expected error for a missing env file")
		}
	})

	t.Run("reports invalid values together", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ELECTION_HTTP_PORT", "70000")
		t.Setenv("ELECTION_LOG_LEVEL", "loud")

		_, err := Load("", "")
		if err == nil {
			t.Fatalf("expected error for invalid values")
		}
		expected := "invalid configuration values: ELECTION_HTTP_PORT, ELECTION_LOG_LEVEL"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("unparsable duration", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ELECTION_BALLOT_TOKEN_TTL", "soon")

		if _, err := Load("", ""); err == nil || !strings.Contains(err.Error(), "environment") {
			t.Fatalf("expected environment error, got %v", err)
		}
	})
}

func TestConfig_ValidateServe(t *testing.T) {
	cfg := Default()
	err := cfg.ValidateServe()
	if err == nil {
		t.Fatalf("expected missing values")
	}
	expected := "required configuration values are not set: ELECTION_ADMIN_KEY_HASH, ELECTION_BALLOT_TOKEN_SECRET"
	if err.Error() != expected {
		t.Fatalf("unexpected error message: %q", err.Error())
	}

	cfg.AdminKeyHash = "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA"
	cfg.BallotTokenSecret = "short"
	if err := cfg.ValidateServe(); err == nil || !strings.Contains(err.Error(), "ELECTION_BALLOT_TOKEN_SECRET") {
		t.Fatalf("expected short secret to be rejected, got %v", err)
	}

	cfg.BallotTokenSecret = "a-long-enough-ballot-secret"
	if err := cfg.ValidateServe(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}
