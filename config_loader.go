package refx

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadConfigFromEnvironment loads configuration from environment variables.
//
// This follows the 12-factor app methodology where configuration is read from
// the environment. All variables are optional; unset variables keep the zero
// value's defaults (dynamic typing on, reference tracking on, unknown keys
// ignored, all registered types permitted).
//
// Recognized environment variables:
//   - REFX_DYNAMIC_TYPING: "true"/"false", default true
//   - REFX_REFERENCE_TRACKING: "true"/"false", default true
//   - REFX_DISALLOW_UNKNOWN_KEYS: "true"/"false", default false
//   - REFX_ALLOWED_TYPES: semicolon-separated type tags, e.g.
//     "Player, game;Guild, game" (';' because tags themselves contain commas)
//   - REFX_ALLOWED_MODULES: comma-separated module names
//
// Returns an error if a variable is set to an unparseable value or the
// resulting configuration fails validation.
func LoadConfigFromEnvironment() (Config, error) {
	var cfg Config

	dynamic, err := getEnvBool(EnvDynamicTyping, true)
	if err != nil {
		return Config{}, err
	}
	cfg.DisableDynamicTyping = !dynamic

	tracking, err := getEnvBool(EnvReferenceTracking, true)
	if err != nil {
		return Config{}, err
	}
	cfg.DisableReferenceTracking = !tracking

	strict, err := getEnvBool(EnvDisallowUnknownKeys, false)
	if err != nil {
		return Config{}, err
	}
	cfg.DisallowUnknownKeys = strict

	cfg.AllowedTypes = splitEnvList(os.Getenv(EnvAllowedTypes), ";")
	cfg.AllowedModules = splitEnvList(os.Getenv(EnvAllowedModules), ",")

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigFromDotEnv loads a .env file (development convenience) and then
// reads the configuration from the environment. Missing files are not an
// error when no paths are given; godotenv falls back to ".env" in the working
// directory.
func LoadConfigFromDotEnv(paths ...string) (Config, error) {
	if err := godotenv.Load(paths...); err != nil {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}
	return LoadConfigFromEnvironment()
}

// LoadConfigFromFile loads configuration from a YAML file. This is the usual
// home of the allow-list in deployments:
//
//	disallow_unknown_keys: true
//	allowed_modules:
//	  - game
//	allowed_types:
//	  - "Theme, editor"
func LoadConfigFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: failed to parse config file %s: %v", ErrInvalidConfiguration, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// getEnvBool returns the boolean value of an environment variable, or a
// default value if not set.
func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean, got '%s'", ErrInvalidConfiguration, key, value)
	}
	return parsed, nil
}

func splitEnvList(value, sep string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
