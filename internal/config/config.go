// Package config provides configuration management for SysAdvisor.
// It uses Viper to load settings from files, environment variables, and CLI flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	apperrors "github.com/vesaa/sysadvisor/internal/errors"
)

// Config holds all runtime configuration for SysAdvisor. It is built once at
// startup and handed to the components that need it.
type Config struct {
	// ── Logging ──────────────────────────────────────────────────────────────
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"` // "text" or "json"

	// ── Collector ────────────────────────────────────────────────────────────
	// SampleInterval is the blocking CPU measurement window.
	SampleInterval time.Duration `mapstructure:"sample_interval"`

	// ── Analysis ─────────────────────────────────────────────────────────────
	OpenAIAPIKey    string        `mapstructure:"openai_api_key"`
	OpenAIModel     string        `mapstructure:"openai_model"`
	OpenAIBaseURL   string        `mapstructure:"openai_base_url"` // empty = api.openai.com
	AnalysisTimeout time.Duration `mapstructure:"analysis_timeout"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Temperature     float32       `mapstructure:"temperature"`

	// ── Mail ─────────────────────────────────────────────────────────────────
	EmailUsername string `mapstructure:"email_username"`
	EmailPassword string `mapstructure:"email_password"`
	EmailTo       string `mapstructure:"email_to"`
	SMTPHost      string `mapstructure:"smtp_host"`
	SMTPPort      int    `mapstructure:"smtp_port"`

	// ── Satellites ───────────────────────────────────────────────────────────
	// InvokeTimeout bounds one pipeline subprocess call.
	InvokeTimeout time.Duration `mapstructure:"invoke_timeout"`
	CSVPath       string        `mapstructure:"csv_path"`
	DBPath        string        `mapstructure:"db_path"` // empty disables the history table

	// ── API server ───────────────────────────────────────────────────────────
	ServerAddr string `mapstructure:"server_addr"`
	JWTSecret  string `mapstructure:"jwt_secret"`
	AdminUser  string `mapstructure:"admin_user"`
	AdminPass  string `mapstructure:"admin_pass"`
}

// envAliases maps config keys to the bare variable names the tool has always
// read. They are honoured from the environment and from a .env file in the
// working directory, next to SYSADVISOR_* names.
var envAliases = map[string]string{
	"openai_api_key": "OPENAI_API_KEY",
	"email_username": "EMAIL_USERNAME",
	"email_password": "EMAIL_PASSWORD",
	"email_to":       "EMAIL_TO",
	"log_level":      "LOG_LEVEL",
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetDefault("sample_interval", time.Second)

	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_model", "gpt-3.5-turbo")
	v.SetDefault("openai_base_url", "")
	v.SetDefault("analysis_timeout", 30*time.Second)
	v.SetDefault("max_tokens", 500)
	v.SetDefault("temperature", 0.3)

	v.SetDefault("email_username", "")
	v.SetDefault("email_password", "")
	v.SetDefault("email_to", "")
	v.SetDefault("smtp_host", "smtp.gmail.com")
	v.SetDefault("smtp_port", 587)

	v.SetDefault("invoke_timeout", 45*time.Second)
	v.SetDefault("csv_path", "system_performance.csv")
	v.SetDefault("db_path", "")

	v.SetDefault("server_addr", "127.0.0.1:8086")
	v.SetDefault("jwt_secret", "change-me-sysadvisor-secret")
	v.SetDefault("admin_user", "admin")
	v.SetDefault("admin_pass", "admin")
}

// Load reads config from file (./config.yaml or ~/.sysadvisor/config.yaml)
// and falls back to defaults. Environment variables with prefix SYSADVISOR_
// override file values.
func Load() (*Config, error) {
	return LoadFrom(viper.New())
}

// LoadFrom is Load on a caller-supplied Viper instance.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	// --- Config file ---
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.sysadvisor")
	if err := v.ReadInConfig(); err != nil {
		// config file is optional; ignore "not found" errors
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// --- .env file ---
	if err := mergeDotEnv(v, dotEnvFile); err != nil {
		return nil, err
	}

	// --- Environment Variables ---
	v.SetEnvPrefix("SYSADVISOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		if err := v.BindEnv(key, "SYSADVISOR_"+strings.ToUpper(key), alias); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// dotEnvFile is read from the working directory when present.
const dotEnvFile = ".env"

// mergeDotEnv copies the aliased variables found in path into v's config
// layer. Real environment variables still win.
func mergeDotEnv(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}

	d := viper.New()
	d.SetConfigFile(path)
	d.SetConfigType("env")
	if err := d.ReadInConfig(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	values := make(map[string]any)
	for key, alias := range envAliases {
		for _, name := range []string{alias, "SYSADVISOR_" + strings.ToUpper(key)} {
			if d.IsSet(name) {
				values[key] = d.GetString(name)
			}
		}
	}
	if len(values) == 0 {
		return nil
	}
	return v.MergeConfigMap(values)
}

// SubprocessTimeout bounds one pipeline child run. It never drops below the
// child's worst case of one sample window plus one analysis call.
func (c *Config) SubprocessTimeout() time.Duration {
	floor := c.SampleInterval + c.AnalysisTimeout + invokeMargin
	if c.InvokeTimeout < floor {
		return floor
	}
	return c.InvokeTimeout
}

// invokeMargin covers process start-up and JSON encoding in the child.
const invokeMargin = 5 * time.Second

// MissingMail lists the unset mail credentials by their environment names.
func (c *Config) MissingMail() []string {
	var missing []string
	if c.EmailUsername == "" {
		missing = append(missing, "EMAIL_USERNAME")
	}
	if c.EmailPassword == "" {
		missing = append(missing, "EMAIL_PASSWORD")
	}
	if c.EmailTo == "" {
		missing = append(missing, "EMAIL_TO")
	}
	return missing
}

// RequireMail returns a configuration error naming every missing mail setting.
func (c *Config) RequireMail() error {
	if missing := c.MissingMail(); len(missing) > 0 {
		return apperrors.Newf(apperrors.ErrCodeConfiguration,
			"missing email configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// RequireAnalysis returns a configuration error when no API key is set.
func (c *Config) RequireAnalysis() error {
	if c.OpenAIAPIKey == "" {
		return apperrors.New(apperrors.ErrCodeConfiguration,
			"missing OpenAI API key: set OPENAI_API_KEY or pass --no-ai")
	}
	return nil
}
