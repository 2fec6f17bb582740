package config

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mosaicpm/mosaic/internal/bootstrap/logging"
	"github.com/mosaicpm/mosaic/internal/errs"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	GitHub   GitHubConfig   `mapstructure:"github"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// GitHubConfig selects how diffs are fetched. Auth is "token", "app", or
// "none" (unauthenticated, rate-limited hard by GitHub; fine for tests).
type GitHubConfig struct {
	Auth             string        `mapstructure:"auth"`
	Token            string        `mapstructure:"token"`
	AppID            int64         `mapstructure:"app_id"`
	InstallationID   int64         `mapstructure:"installation_id"`
	PrivateKeyPath   string        `mapstructure:"private_key_path"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	MaxInFlightDiffs int           `mapstructure:"max_in_flight_diffs"`
	BaseURL          string        `mapstructure:"base_url"`
}

type AnalysisConfig struct {
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url"`
	ProfilePath string `mapstructure:"profile_path"`
	Workers     int    `mapstructure:"workers"`
}

// NotifyConfig enables fan-out sinks. Both may be on at once; both may be
// off (polling alone is sufficient to observe terminal states).
type NotifyConfig struct {
	WebSocket bool   `mapstructure:"websocket"`
	NATSURL   string `mapstructure:"nats_url"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MOSAIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			// Keep default and env-backed config when no file is provided.
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	if cfg.Database.DSN == "" {
		return Config{}, errors.New("database.dsn is required")
	}
	if cfg.GitHub.Auth == "app" && (cfg.GitHub.AppID == 0 || cfg.GitHub.InstallationID == 0 || cfg.GitHub.PrivateKeyPath == "") {
		return Config{}, errors.New("github.auth=app requires app_id, installation_id and private_key_path")
	}
	if cfg.GitHub.Auth == "token" && cfg.GitHub.Token == "" {
		return Config{}, errors.New("github.auth=token requires github.token")
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("http_addr", cfg.HTTP.Addr),
		slog.String("github_auth", cfg.GitHub.Auth),
	)

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "mosaic")
	v.SetDefault("app.env", "development")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("github.auth", "none")
	v.SetDefault("github.request_timeout", "15s")
	v.SetDefault("github.max_in_flight_diffs", 4)
	v.SetDefault("analysis.profile_path", "configs/analysis.toml")
	v.SetDefault("analysis.workers", 2)
	v.SetDefault("notify.websocket", true)
}
