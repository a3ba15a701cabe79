// Package config loads harvester settings from an optional YAML file and
// the environment. A local .env file is honored when present; environment
// variables use the NEWSPULSE_ prefix and win over the file.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/newspulse-hq/newspulse/internal/domain"
)

const envPrefix = "NEWSPULSE"

// Config holds all runtime settings.
type Config struct {
	Server     ServerConfig        `mapstructure:"server"`
	Store      StoreConfig         `mapstructure:"store"`
	Relay      RelayConfig         `mapstructure:"relay"`
	Remote     RemoteConfig        `mapstructure:"remote"`
	Generative GenerativeConfig    `mapstructure:"generative"`
	Publishers PublishersConfig    `mapstructure:"publishers"`
	Scrape     ScrapeConfig        `mapstructure:"scrape"`
	Log        LogConfig           `mapstructure:"log"`
	Feeds      map[string][]string `mapstructure:"feeds"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// StoreConfig describes the local persisted store.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// RelayConfig tunes the relay fan-out.
type RelayConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// RemoteConfig describes the hosted cache tables.
type RemoteConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// GenerativeConfig describes the enrichment service.
type GenerativeConfig struct {
	APIKey      string `mapstructure:"api_key"`
	TextModel   string `mapstructure:"text_model"`
	SpeechModel string `mapstructure:"speech_model"`
	Voice       string `mapstructure:"voice"`
}

// PublishersConfig points at the refresh-event sink declarations.
type PublishersConfig struct {
	File string `mapstructure:"file"`
}

// ScrapeConfig toggles page-metadata backfill for fresh batches.
type ScrapeConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LogConfig tunes logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// CategoryFeeds converts the raw feed map into domain categories.
func (c Config) CategoryFeeds() map[domain.Category][]string {
	out := make(map[domain.Category][]string, len(c.Feeds))
	for category, urls := range c.Feeds {
		out[domain.Category(strings.ToLower(strings.TrimSpace(category)))] = urls
	}
	return out
}

// Load reads configuration: .env (if present), then the YAML file at
// configPath (optional), then NEWSPULSE_* environment variables.
func Load(configPath string) (Config, error) {
	// Missing .env is the common case, not an error.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("store.path", "data/newspulse.db")
	v.SetDefault("relay.timeout_seconds", 6)
	v.SetDefault("scrape.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("feeds", defaultFeeds())

	// Keys without meaningful defaults still need to be registered so the
	// environment can supply them.
	for _, key := range []string{
		"remote.base_url",
		"remote.api_key",
		"generative.api_key",
		"generative.text_model",
		"generative.speech_model",
		"generative.voice",
		"publishers.file",
	} {
		v.SetDefault(key, "")
	}
}

// defaultFeeds is the built-in category map, overridable via config.
func defaultFeeds() map[string][]string {
	return map[string][]string{
		"top": {
			"https://feeds.bbci.co.uk/news/rss.xml",
			"https://rss.cnn.com/rss/edition.rss",
		},
		"national": {
			"https://www.thehindu.com/news/national/feeder/default.rss",
			"https://timesofindia.indiatimes.com/rssfeeds/-2128936835.cms",
		},
		"international": {
			"https://feeds.bbci.co.uk/news/world/rss.xml",
			"https://rss.cnn.com/rss/edition_world.rss",
		},
		"business": {
			"https://feeds.bbci.co.uk/news/business/rss.xml",
			"https://www.cnbc.com/id/10001147/device/rss/rss.html",
		},
		"sports": {
			"https://feeds.bbci.co.uk/sport/rss.xml",
			"https://www.espn.com/espn/rss/news",
		},
		"technology": {
			"https://feeds.bbci.co.uk/news/technology/rss.xml",
			"https://www.wired.com/feed/rss",
		},
		"entertainment": {
			"https://feeds.bbci.co.uk/news/entertainment_and_arts/rss.xml",
			"https://www.hollywoodreporter.com/feed",
		},
	}
}
