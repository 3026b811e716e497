// Package config loads the aidsync configuration from, in order of
// precedence: environment variables, .env files, a config file, and
// built-in defaults.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/text/language"

	"github.com/openaid/aidsync/pkg/importer"
)

// Config holds everything the CLI and session layer need to run.
type Config struct {
	// Store selection. Driver is "sqlite" or "pgx"; the DSN follows the
	// driver's format.
	StoreDriver string
	StoreDSN    string

	// Workers caps the BulkCreate worker pool.
	Workers int

	// PreferredLanguage is the BCP 47 tag used to pick display
	// narratives from multilingual blocks.
	PreferredLanguage string

	// Logging configuration, read by pkg/logging at startup.
	LogLevel  string
	LogFormat string

	ConfigFile string
}

// Defaults used when no source provides a value.
const (
	DefaultStoreDriver = "sqlite"
	DefaultStoreDSN    = "aidsync.db"
	DefaultLanguage    = "en"
)

// Load reads configuration from every source. A missing config file is
// not an error; a malformed one is.
func Load() (*Config, error) {
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	viper.SetDefault("store_driver", DefaultStoreDriver)
	viper.SetDefault("store_dsn", DefaultStoreDSN)
	viper.SetDefault("workers", importer.DefaultWorkers)
	viper.SetDefault("language", DefaultLanguage)

	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".aidsync")
		if err := viper.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{
		StoreDriver:       viper.GetString("store_driver"),
		StoreDSN:          viper.GetString("store_dsn"),
		Workers:           viper.GetInt("workers"),
		PreferredLanguage: viper.GetString("language"),
		LogLevel:          viper.GetString("log_level"),
		LogFormat:         viper.GetString("log_format"),
		ConfigFile:        viper.ConfigFileUsed(),
	}
	if cfg.Workers <= 0 {
		cfg.Workers = importer.DefaultWorkers
	}
	return cfg, nil
}

// Language parses the configured preferred language, falling back to
// English when the tag does not parse.
func (c *Config) Language() language.Tag {
	tag, err := language.Parse(c.PreferredLanguage)
	if err != nil {
		return language.English
	}
	return tag
}

// loadEnvFiles loads .env then .env.local, the latter overriding, before
// viper binds the environment.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}
