package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/entrepeneur4lyf/repairforge/internal/draft"
	"github.com/entrepeneur4lyf/repairforge/internal/live"
	"github.com/entrepeneur4lyf/repairforge/internal/llm"
	"github.com/entrepeneur4lyf/repairforge/internal/storage"
	"github.com/entrepeneur4lyf/repairforge/internal/telemetry"
)

// ServerConfig defines the HTTP surface
type ServerConfig struct {
	Addr           string        `mapstructure:"addr" json:"addr"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" json:"allowedOrigins"`
	RateLimit      float64       `mapstructure:"rate_limit" json:"rateLimit"` // requests per second per client
	RateBurst      int           `mapstructure:"rate_burst" json:"rateBurst"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"requestTimeout"`
}

// GeminiConfig defines the remote model settings
type GeminiConfig struct {
	APIKey           string           `mapstructure:"api_key" json:"-"`
	GuideModel       string           `mapstructure:"guide_model" json:"guideModel"`
	TranslationModel string           `mapstructure:"translation_model" json:"translationModel"`
	ChatModel        string           `mapstructure:"chat_model" json:"chatModel"`
	LiveModel        string           `mapstructure:"live_model" json:"liveModel"`
	Retry            llm.RetryOptions `mapstructure:"retry" json:"retry"`
}

// LogConfig defines logging output
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"` // text or json
	File   string `mapstructure:"file" json:"file,omitempty"`
}

// DataConfig defines storage configuration
type DataConfig struct {
	Directory string `mapstructure:"directory" json:"directory,omitempty"`
	Ephemeral bool   `mapstructure:"ephemeral" json:"ephemeral"`
}

// DraftConfig defines draft autosave
type DraftConfig struct {
	Delay time.Duration `mapstructure:"delay" json:"delay"`
}

// I18nConfig defines locale bundle overrides
type I18nConfig struct {
	OverrideDir string `mapstructure:"override_dir" json:"overrideDir,omitempty"`
	Watch       bool   `mapstructure:"watch" json:"watch"`
}

// Config is the main configuration structure for the application
type Config struct {
	Server ServerConfig `mapstructure:"server" json:"server"`
	Gemini GeminiConfig `mapstructure:"gemini" json:"gemini"`
	Log    LogConfig    `mapstructure:"log" json:"log"`
	Data   DataConfig   `mapstructure:"data" json:"data"`
	Live   live.Config  `mapstructure:"live" json:"live"`
	Draft  DraftConfig  `mapstructure:"draft" json:"draft"`
	I18n   I18nConfig   `mapstructure:"i18n" json:"i18n"`

	Telemetry telemetry.Config `mapstructure:"telemetry" json:"telemetry"`
}

// Application constants
const (
	appName         = "repairforge"
	defaultLogLevel = "info"
	defaultAddr     = ":47000"
)

// ErrMissingAPIKey is returned when a command needs the model but no key is set.
var ErrMissingAPIKey = errors.New("Gemini API key is not set (set REPAIRFORGE_GEMINI_API_KEY or GEMINI_API_KEY)")

// Load reads configuration from defaults, an optional config file and the
// environment. v may carry flag bindings; nil uses a fresh instance.
func Load(v *viper.Viper, configFile string, debug bool) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	configureViper(v, configFile)
	setDefaults(v, debug)

	cfg := &Config{}
	if err := readConfig(v, cfg); err != nil {
		return nil, err
	}
	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = firstEnv("GEMINI_API_KEY", "API_KEY")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configureViper sets up viper's configuration paths and environment variables
func configureViper(v *viper.Viper, configFile string) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(appName)
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("$HOME/.%s", appName))
		v.AddConfigPath(fmt.Sprintf("$XDG_CONFIG_HOME/%s", appName))
		v.AddConfigPath(fmt.Sprintf("/etc/%s", appName))
	}
	v.SetEnvPrefix(strings.ToUpper(appName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// setDefaults registers every key so environment overrides are picked up
func setDefaults(v *viper.Viper, debug bool) {
	v.SetDefault("server.addr", defaultAddr)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 5.0)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("server.request_timeout", "2m")

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.guide_model", llm.DefaultGuideModel)
	v.SetDefault("gemini.translation_model", llm.DefaultTranslationModel)
	v.SetDefault("gemini.chat_model", llm.DefaultChatModel)
	v.SetDefault("gemini.live_model", llm.DefaultLiveModel)
	v.SetDefault("gemini.retry.max_retries", llm.DefaultRetryOptions.MaxRetries)
	v.SetDefault("gemini.retry.base_delay", llm.DefaultRetryOptions.BaseDelay)
	v.SetDefault("gemini.retry.max_delay", llm.DefaultRetryOptions.MaxDelay)
	v.SetDefault("gemini.retry.retry_all_errors", false)

	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")

	v.SetDefault("data.directory", "")
	v.SetDefault("data.ephemeral", false)

	lc := live.DefaultConfig()
	v.SetDefault("live.fps", lc.FPS)
	v.SetDefault("live.max_edge", lc.MaxEdge)
	v.SetDefault("live.jpeg_quality", lc.JPEGQuality)
	v.SetDefault("live.input_sample_rate", lc.InputSampleRate)
	v.SetDefault("live.max_reconnects", lc.MaxReconnects)
	v.SetDefault("live.reconnect_delay", lc.ReconnectDelay)
	v.SetDefault("live.setup_timeout", lc.SetupTimeout)

	v.SetDefault("draft.delay", draft.DefaultDelay)

	v.SetDefault("i18n.override_dir", "")
	v.SetDefault("i18n.watch", false)

	tc := telemetry.DefaultConfig()
	v.SetDefault("telemetry.exporter", tc.Exporter)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.service_name", tc.ServiceName)
	v.SetDefault("telemetry.sample_ratio", tc.SampleRatio)

	if debug {
		v.Set("log.level", "debug")
	} else {
		v.SetDefault("log.level", defaultLogLevel)
	}
}

// readConfig reads configuration from file and environment
func readConfig(v *viper.Viper, cfg *Config) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to decode config: %w", err)
	}
	return nil
}

// Validate checks ranges that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must not be empty"))
	}
	if c.Live.FPS < 1 || c.Live.FPS > 30 {
		errs = append(errs, fmt.Errorf("live.fps must be between 1 and 30, got %d", c.Live.FPS))
	}
	if c.Live.MaxReconnects < 0 {
		errs = append(errs, fmt.Errorf("live.max_reconnects must not be negative, got %d", c.Live.MaxReconnects))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit must not be negative, got %v", c.Server.RateLimit))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if err := c.Telemetry.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RequireAPIKey fails when no Gemini key is configured.
func (c *Config) RequireAPIKey() error {
	if c.Gemini.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// Paths returns the path manager for the configured data directory.
func (c *Config) Paths() *storage.PathManager {
	if c.Data.Directory != "" {
		return storage.NewPathManagerAt(c.Data.Directory)
	}
	return storage.DefaultPathManager
}

// LLMOptions maps the Gemini settings onto client options.
func (c *Config) LLMOptions() llm.Options {
	return llm.Options{
		APIKey:           c.Gemini.APIKey,
		GuideModel:       c.Gemini.GuideModel,
		TranslationModel: c.Gemini.TranslationModel,
		ChatModel:        c.Gemini.ChatModel,
		Retry:            c.Gemini.Retry,
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
