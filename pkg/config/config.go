package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from .env file and environment variables
// prefix: Environment variable prefix (e.g. "BUNSTORE_")
// target: Pointer to the config struct to load into
func Load(prefix string, target any) error {
	return LoadWithDefaults(prefix, target, nil)
}

// LoadWithDefaults is Load with fallback values keyed by property path
// (e.g. "rate_limit.burst"). A key with a default is read from the env var
// named after its path, so BUNSTORE_RATE_LIMIT_BURST sets rate_limit.burst.
// Keys without a default map each underscore to a dot: BUNSTORE_DB_HOST sets
// db.host.
func LoadWithDefaults(prefix string, target any, defaults map[string]any) error {
	// 1. Load from .env file (if exists). The process environment wins.
	if err := loadDotEnv(".env"); err != nil {
		return err
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// 2. Load from environment variables
	v.SetEnvPrefix(strings.TrimSuffix(prefix, "_"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	prefixUpper := strings.ToUpper(prefix)
	for _, envStr := range os.Environ() {
		key, value, _ := strings.Cut(envStr, "=")
		if !strings.HasPrefix(key, prefixUpper) {
			continue
		}
		if known(defaults, strings.TrimPrefix(key, prefixUpper)) {
			continue
		}
		propKey := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(key, prefixUpper), "_", "."))
		propKey = strings.TrimPrefix(propKey, ".")
		if propKey != "" {
			v.Set(propKey, value)
		}
	}

	// 3. Unmarshal into struct
	if err := v.Unmarshal(target); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

// known reports whether envKey (prefix stripped) names a defaulted property.
func known(defaults map[string]any, envKey string) bool {
	for key := range defaults {
		if strings.EqualFold(strings.ReplaceAll(key, ".", "_"), envKey) {
			return true
		}
	}
	return false
}

func loadDotEnv(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return err
		}
	}
	return nil
}
