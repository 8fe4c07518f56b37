package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mansoorceksport/liftlog/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("AUTH_MODE", "dev")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("GOALS_FILE", "")
	t.Setenv("PORT", "")
	t.Setenv("OTEL_ENABLED", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, AuthDev, cfg.Auth.Mode)
	assert.False(t, cfg.UsesFirebase())
	assert.Equal(t, "UTC", cfg.Location.String())
	assert.Equal(t, domain.DefaultGoalDefaults(), cfg.Goals)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Store: StoreConfig{Driver: StoreMemory},
			Auth:  AuthConfig{Mode: AuthJWT, JWTSecret: "s"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"memory ok", func(c *Config) {}, ""},
		{"unknown driver", func(c *Config) { c.Store.Driver = "cassandra" }, "unknown STORE_DRIVER"},
		{"firestore needs project", func(c *Config) { c.Store.Driver = StoreFirestore }, "FIREBASE_PROJECT_ID"},
		{"sqlite needs path", func(c *Config) { c.Store.Driver = StoreSQLite }, "SQLITE_PATH"},
		{"jwt needs secret", func(c *Config) { c.Auth.JWTSecret = "" }, "JWT_SECRET"},
		{"dev auth without secret", func(c *Config) { c.Auth = AuthConfig{Mode: AuthDev} }, ""},
		{"firebase auth needs credentials", func(c *Config) { c.Auth.Mode = AuthFirebase }, "FIREBASE_PROJECT_ID"},
		{"unknown auth mode", func(c *Config) { c.Auth.Mode = "basic" }, "unknown AUTH_MODE"},
		{"otel needs endpoint", func(c *Config) { c.OTEL.Enabled = true }, "OTEL_EXPORTER_OTLP_ENDPOINT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadGoals(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "goals.yaml")
	require.NoError(t, os.WriteFile(path, []byte("steps: 12000\nsleep: 7.5\nweekly_workouts: 4\n"), 0o644))

	goals, err := LoadGoals(path)
	require.NoError(t, err)
	assert.Equal(t, 12000.0, goals.Steps)
	assert.Equal(t, 7.5, goals.Sleep)
	assert.Equal(t, 4, goals.WeeklyWorkouts)
	assert.Equal(t, 500.0, goals.Calories, "unset keys keep defaults")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("steps: -1\n"), 0o644))
	_, err = LoadGoals(bad)
	assert.Error(t, err)

	_, err = LoadGoals(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
