package config

import (
	"log/slog"
	"os"
	"strings"

	golobby "github.com/golobby/config/v3"
	"github.com/golobby/config/v3/pkg/feeder"
)

type Settings struct {
	Discord   DiscordSettings
	TMDB      TMDBSettings
	Plexboard PlexboardSettings
	Pushover  PushoverSettings
}

type DiscordSettings struct {
	Token string `env:"DISCORD_TOKEN"`
}

type TMDBSettings struct {
	Token string `env:"TMDB_TOKEN"`
}

type PlexboardSettings struct {
	ConfigPath string `env:"CONFIG_PATH"`
	LogLevel   string `env:"LOG_LEVEL"`
	StatusAddr string `env:"STATUS_ADDR"`
}

type PushoverSettings struct {
	Recipient string `env:"PUSHOVER_RECIPIENT"`
	Token     string `env:"PUSHOVER_TOKEN"`
}

func LoadSettings() (Settings, error) {
	var settings Settings

	c := golobby.New()
	if _, err := os.Stat(".env"); err == nil {
		c.AddFeeder(feeder.DotEnv{Path: ".env"})
	}
	c.AddFeeder(feeder.Env{})

	if err := c.AddStruct(&settings).Feed(); err != nil {
		return Settings{}, err
	}

	if settings.Plexboard.ConfigPath == "" {
		settings.Plexboard.ConfigPath = "config.json"
	}

	return settings, nil
}

func (s *Settings) GetLogLevel() slog.Leveler {
	logLevel := strings.ToLower(s.Plexboard.LogLevel)
	if logLevel == "error" {
		return slog.LevelError
	}
	if logLevel == "warning" {
		return slog.LevelWarn
	}
	if logLevel == "info" {
		return slog.LevelInfo
	}
	if logLevel == "debug" {
		return slog.LevelDebug
	}
	// default to info if unknown
	return slog.LevelInfo
}
