// Package config handles configuration loading and diet home resolution.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/go-ports/dietvault/internal/models"
)

// ---------------------------------------------------------------------------
// Config types
// ---------------------------------------------------------------------------

// ServerConfig holds settings for the HTTP API served by `diet serve`.
type ServerConfig struct {
	Addr      string        `yaml:"addr"`
	JWTSecret string        `yaml:"jwt_secret"` // #nosec G117 -- JWTSecret is the intentional name of the token signing key
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// DefaultsConfig holds per-user defaults applied to new sessions.
type DefaultsConfig struct {
	Mode models.CarbMode `yaml:"mode"`
}

// TrendConfig controls the default trend window.
type TrendConfig struct {
	WindowDays int `yaml:"window_days"`
}

// DietConfig is the root per-home configuration.
type DietConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Trend    TrendConfig    `yaml:"trend"`
}

// Default returns a DietConfig populated with sensible defaults.
func Default() *DietConfig {
	return &DietConfig{
		Server: ServerConfig{
			Addr:     "127.0.0.1:8080",
			TokenTTL: 24 * time.Hour,
		},
		Defaults: DefaultsConfig{
			Mode: models.HighCarb,
		},
		Trend: TrendConfig{
			WindowDays: 7,
		},
	}
}

// Load reads a per-home config.yaml from path.
// If the file does not exist it returns Default() with no error.
// Missing keys retain their default values. DIET_JWT_SECRET overrides
// server.jwt_secret when set.
func Load(path string) (*DietConfig, error) {
	cfg := Default()
	defer func() {
		if v := os.Getenv("DIET_JWT_SECRET"); v != "" {
			cfg.Server.JWTSecret = v
		}
	}()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	// Unmarshal into a plain map so we can apply only the keys that are present.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	if srv, ok := raw["server"].(map[string]any); ok {
		if v, ok := srv["addr"].(string); ok && v != "" {
			cfg.Server.Addr = v
		}
		if v, ok := srv["jwt_secret"].(string); ok {
			cfg.Server.JWTSecret = v
		}
		if v, ok := srv["token_ttl"].(string); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, err
			}
			cfg.Server.TokenTTL = d
		}
	}

	if def, ok := raw["defaults"].(map[string]any); ok {
		if v, ok := def["mode"].(string); ok && v != "" {
			mode, err := models.ParseCarbMode(v)
			if err != nil {
				return nil, err
			}
			cfg.Defaults.Mode = mode
		}
	}

	if tr, ok := raw["trend"].(map[string]any); ok {
		if v, ok := tr["window_days"].(int); ok && v > 0 {
			cfg.Trend.WindowDays = v
		}
	}

	return cfg, nil
}

// LoadEnv loads <home>/.env into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadEnv(home string) error {
	path := filepath.Join(home, ".env")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// ---------------------------------------------------------------------------
// Diet home resolution
// ---------------------------------------------------------------------------

// globalConfigPath returns the path to the global dietvault config file.
// This file stores only diet_home.
func globalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "dietvault", "config.yaml"), nil
}

// normalizePath expands ~ and makes the path absolute.
func normalizePath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[2:])
	}
	return filepath.Abs(os.ExpandEnv(path))
}

// ResolveDietHome returns the diet home path and the source of the resolution.
// Priority: DIET_HOME env → persisted global config → ~/.dietvault
// source is one of "env", "config", or "default".
func ResolveDietHome() (path, source string) {
	if env := os.Getenv("DIET_HOME"); env != "" {
		p, err := normalizePath(env)
		if err == nil {
			return p, "env"
		}
	}

	if persisted, ok, _ := GetPersistedDietHome(); ok {
		return persisted, "config"
	}

	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".dietvault"), "default"
}

// GetDietHome returns the resolved diet home path.
func GetDietHome() string {
	path, _ := ResolveDietHome()
	return path
}

// GetPersistedDietHome reads diet_home from the global config.
// Returns ("", false, nil) if not set.
func GetPersistedDietHome() (string, bool, error) {
	cfgPath, err := globalConfigPath()
	if err != nil {
		return "", false, err
	}

	raw, err := readGlobal(cfgPath)
	if err != nil || raw == nil {
		return "", false, err
	}

	val, _ := raw["diet_home"].(string)
	val = strings.TrimSpace(val)
	if val == "" {
		return "", false, nil
	}

	p, err := normalizePath(val)
	if err != nil {
		return "", false, err
	}
	return p, true, nil
}

// SetPersistedDietHome normalizes path and persists it in the global config.
// Returns the normalized path.
func SetPersistedDietHome(path string) (string, error) {
	normalized, err := normalizePath(path)
	if err != nil {
		return "", err
	}

	cfgPath, err := globalConfigPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return "", err
	}

	// Preserve any other keys in the global config.
	raw, _ := readGlobal(cfgPath)
	if raw == nil {
		raw = make(map[string]any)
	}
	raw["diet_home"] = normalized

	out, err := yaml.Marshal(raw)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(cfgPath, out, 0o600); err != nil {
		return "", err
	}
	return normalized, nil
}

// ClearPersistedDietHome removes diet_home from the global config.
// Returns true if the key was present and removed.
// If the file becomes empty after removal it is deleted.
func ClearPersistedDietHome() (bool, error) {
	cfgPath, err := globalConfigPath()
	if err != nil {
		return false, err
	}

	raw, err := readGlobal(cfgPath)
	if err != nil || raw == nil {
		return false, err
	}

	if _, ok := raw["diet_home"]; !ok {
		return false, nil
	}
	delete(raw, "diet_home")

	if len(raw) == 0 {
		_ = os.Remove(cfgPath)
		return true, nil
	}

	out, err := yaml.Marshal(raw)
	if err != nil {
		return false, err
	}
	return true, os.WriteFile(cfgPath, out, 0o600)
}

// readGlobal returns the parsed global config, or nil when the file is
// missing or unparsable.
func readGlobal(cfgPath string) (map[string]any, error) {
	data, err := os.ReadFile(cfgPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil
	}
	return raw, nil
}
