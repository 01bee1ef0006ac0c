package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment
// variables. If configFile is empty, it searches standard locations for
// kbgate.yaml/.yml. The search requires an explicit YAML extension so the
// binary itself is never matched.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// No config file in any standard location. Set name/type without
		// search paths so ReadInConfig returns ConfigFileNotFoundError,
		// which Load treats as "env-only configuration".
		viper.SetConfigName("kbgate")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: KBGATE_KNOWLEDGE_BASE_ID etc.
	viper.SetEnvPrefix("KBGATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindEnvKeys()
}

// findConfigFile searches standard locations for a kbgate config file with
// an explicit YAML extension (.yaml or .yml).
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".kbgate"),
		"/etc/kbgate",
	}
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "kbgate"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindEnvKeys binds config keys for environment variable support. The bare
// aliases (KNOWLEDGE_BASE_ID, MODEL_ARN, ...) match the Lambda's deployed
// environment; the KBGATE_-prefixed forms are bound by AutomaticEnv.
func bindEnvKeys() {
	_ = viper.BindEnv("knowledge_base_id", "KBGATE_KNOWLEDGE_BASE_ID", "KNOWLEDGE_BASE_ID")
	_ = viper.BindEnv("model_arn", "KBGATE_MODEL_ARN", "MODEL_ARN")
	_ = viper.BindEnv("region", "KBGATE_REGION", "AWS_REGION")
	_ = viper.BindEnv("default_max_results", "KBGATE_DEFAULT_MAX_RESULTS", "DEFAULT_MAX_RESULTS")
	_ = viper.BindEnv("default_max_tokens", "KBGATE_DEFAULT_MAX_TOKENS", "DEFAULT_MAX_TOKENS")
	_ = viper.BindEnv("log_level", "KBGATE_LOG_LEVEL", "LOG_LEVEL")
	_ = viper.BindEnv("gateway.url", "KBGATE_GATEWAY_URL")
	_ = viper.BindEnv("gateway.target_prefix", "KBGATE_GATEWAY_TARGET_PREFIX")
	_ = viper.BindEnv("gateway.timeout", "KBGATE_GATEWAY_TIMEOUT")
	_ = viper.BindEnv("gateway.history_db", "KBGATE_GATEWAY_HISTORY_DB")
}

// Load reads, defaults, and validates the configuration.
// A missing config file is not an error; everything can come from the
// environment or the hardcoded fallbacks.
func Load() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
