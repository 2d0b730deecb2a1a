package config

import (
	"os"
	"testing"
)

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore cwd: %v", err)
		}
	})
}

type testConfig struct {
	Port       int    `mapstructure:"port"`
	SecretCode string `mapstructure:"secret_code"`
	DB         struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"db"`
	RateLimit struct {
		PerMinute int `mapstructure:"per_minute"`
	} `mapstructure:"rate_limit"`
}

func TestLoadWithDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TESTSVC_SECRET_CODE", "abc")
	t.Setenv("TESTSVC_DB_HOST", "db.internal")
	t.Setenv("TESTSVC_RATE_LIMIT_PER_MINUTE", "42")

	var cfg testConfig
	err := LoadWithDefaults("TESTSVC_", &cfg, map[string]any{
		"port":                  8080,
		"secret_code":           "",
		"db.host":               "localhost",
		"db.port":               5432,
		"rate_limit.per_minute": 600,
	})
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Port != 8080 || cfg.DB.Port != 5432 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.SecretCode != "abc" || cfg.DB.Host != "db.internal" || cfg.RateLimit.PerMinute != 42 {
		t.Errorf("env not applied: %+v", cfg)
	}
}

func TestLoadWithoutDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("OTHERSVC_DB_HOST", "pg")
	t.Setenv("OTHERSVC_PORT", "9000")

	var cfg testConfig
	if err := Load("OTHERSVC_", &cfg); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DB.Host != "pg" || cfg.Port != 9000 {
		t.Errorf("got %+v", cfg)
	}
}
