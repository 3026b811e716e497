package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func load(t *testing.T) *Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	cfg, err := Load()
	require.NoError(t, err)
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := load(t)
	assert.Equal(t, DefaultStoreDriver, cfg.StoreDriver)
	assert.Equal(t, DefaultStoreDSN, cfg.StoreDSN)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, language.English, cfg.Language())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "pgx")
	t.Setenv("STORE_DSN", "postgres://localhost/aidsync")
	t.Setenv("WORKERS", "8")
	t.Setenv("LANGUAGE", "fr")

	cfg := load(t)
	assert.Equal(t, "pgx", cfg.StoreDriver)
	assert.Equal(t, "postgres://localhost/aidsync", cfg.StoreDSN)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, language.French, cfg.Language())
}

func TestBadLanguageFallsBackToEnglish(t *testing.T) {
	t.Setenv("LANGUAGE", "not a tag")
	cfg := load(t)
	assert.Equal(t, language.English, cfg.Language())
}
