package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/dietvault/internal/config"
	"github.com/go-ports/dietvault/internal/models"
)

func TestDefault_HappyPath(t *testing.T) {
	c := qt.New(t)
	cfg := config.Default()
	c.Assert(cfg, qt.IsNotNil)
	c.Assert(cfg.Server.Addr, qt.Equals, "127.0.0.1:8080")
	c.Assert(cfg.Server.JWTSecret, qt.Equals, "")
	c.Assert(cfg.Server.TokenTTL, qt.Equals, 24*time.Hour)
	c.Assert(cfg.Defaults.Mode, qt.Equals, models.HighCarb)
	c.Assert(cfg.Trend.WindowDays, qt.Equals, 7)
}

func TestLoad_HappyPath(t *testing.T) {
	c := qt.New(t)
	t.Setenv("DIET_JWT_SECRET", "")

	c.Run("non-existent file returns defaults without error", func(c *qt.C) {
		cfg, err := config.Load("/nonexistent/config.yaml")
		c.Assert(err, qt.IsNil)
		c.Assert(cfg, qt.IsNotNil)
		c.Assert(cfg.Server.Addr, qt.Equals, "127.0.0.1:8080")
		c.Assert(cfg.Defaults.Mode, qt.Equals, models.HighCarb)
	})

	tests := []struct {
		name       string
		yaml       string
		wantAddr   string
		wantSecret string
		wantTTL    time.Duration
		wantMode   models.CarbMode
		wantWindow int
	}{
		{
			name:       "empty file",
			yaml:       "",
			wantAddr:   "127.0.0.1:8080",
			wantTTL:    24 * time.Hour,
			wantMode:   models.HighCarb,
			wantWindow: 7,
		},
		{
			name:       "server section",
			yaml:       "server:\n  addr: :9090\n  jwt_secret: s3cret\n  token_ttl: 2h\n",
			wantAddr:   ":9090",
			wantSecret: "s3cret",
			wantTTL:    2 * time.Hour,
			wantMode:   models.HighCarb,
			wantWindow: 7,
		},
		{
			name:       "low-carb default mode",
			yaml:       "defaults:\n  mode: low\n",
			wantAddr:   "127.0.0.1:8080",
			wantTTL:    24 * time.Hour,
			wantMode:   models.LowCarb,
			wantWindow: 7,
		},
		{
			name:       "trend window",
			yaml:       "trend:\n  window_days: 14\n",
			wantAddr:   "127.0.0.1:8080",
			wantTTL:    24 * time.Hour,
			wantMode:   models.HighCarb,
			wantWindow: 14,
		},
		{
			name:       "non-positive window keeps default",
			yaml:       "trend:\n  window_days: 0\n",
			wantAddr:   "127.0.0.1:8080",
			wantTTL:    24 * time.Hour,
			wantMode:   models.HighCarb,
			wantWindow: 7,
		},
	}

	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			err := os.WriteFile(path, []byte(tt.yaml), 0o600)
			c.Assert(err, qt.IsNil)

			cfg, err := config.Load(path)
			c.Assert(err, qt.IsNil)
			c.Assert(cfg.Server.Addr, qt.Equals, tt.wantAddr)
			c.Assert(cfg.Server.JWTSecret, qt.Equals, tt.wantSecret)
			c.Assert(cfg.Server.TokenTTL, qt.Equals, tt.wantTTL)
			c.Assert(cfg.Defaults.Mode, qt.Equals, tt.wantMode)
			c.Assert(cfg.Trend.WindowDays, qt.Equals, tt.wantWindow)
		})
	}
}

func TestLoad_FailurePath(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		name string
		yaml string
	}{
		{"invalid yaml", "server: [unclosed\n"},
		{"invalid mode", "defaults:\n  mode: keto\n"},
		{"invalid ttl", "server:\n  token_ttl: forever\n"},
	}

	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			c.Assert(os.WriteFile(path, []byte(tt.yaml), 0o600), qt.IsNil)
			_, err := config.Load(path)
			c.Assert(err, qt.IsNotNil)
		})
	}
}

func TestLoad_EnvSecretOverridesFile(t *testing.T) {
	c := qt.New(t)
	t.Setenv("DIET_JWT_SECRET", "from-env")

	path := filepath.Join(t.TempDir(), "config.yaml")
	c.Assert(os.WriteFile(path, []byte("server:\n  jwt_secret: from-file\n"), 0o600), qt.IsNil)

	cfg, err := config.Load(path)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Server.JWTSecret, qt.Equals, "from-env")
}

func TestLoadEnv(t *testing.T) {
	c := qt.New(t)

	c.Run("missing file is not an error", func(c *qt.C) {
		c.Assert(config.LoadEnv(t.TempDir()), qt.IsNil)
	})

	c.Run("variables are loaded", func(c *qt.C) {
		home := t.TempDir()
		c.Assert(os.WriteFile(filepath.Join(home, ".env"), []byte("DIET_TEST_LOADENV=yes\n"), 0o600), qt.IsNil)
		t.Setenv("DIET_TEST_LOADENV", "")
		c.Assert(os.Unsetenv("DIET_TEST_LOADENV"), qt.IsNil)

		c.Assert(config.LoadEnv(home), qt.IsNil)
		c.Assert(os.Getenv("DIET_TEST_LOADENV"), qt.Equals, "yes")
	})
}

func TestResolveDietHome_EnvOverride(t *testing.T) {
	c := qt.New(t)

	tmp := t.TempDir()
	t.Setenv("DIET_HOME", tmp)

	path, source := config.ResolveDietHome()
	c.Assert(source, qt.Equals, "env")
	c.Assert(path, qt.Equals, tmp)
}

func TestPersistedDietHome(t *testing.T) {
	c := qt.New(t)

	t.Setenv("HOME", t.TempDir())
	t.Setenv("DIET_HOME", "")

	_, ok, err := config.GetPersistedDietHome()
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)

	target := t.TempDir()
	got, err := config.SetPersistedDietHome(target)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, target)

	path, source := config.ResolveDietHome()
	c.Assert(source, qt.Equals, "config")
	c.Assert(path, qt.Equals, target)

	cleared, err := config.ClearPersistedDietHome()
	c.Assert(err, qt.IsNil)
	c.Assert(cleared, qt.IsTrue)

	cleared, err = config.ClearPersistedDietHome()
	c.Assert(err, qt.IsNil)
	c.Assert(cleared, qt.IsFalse)

	_, source = config.ResolveDietHome()
	c.Assert(source, qt.Equals, "default")
}
