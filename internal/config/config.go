package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config is the root configuration for pagebot.
type Config struct {
	General      GeneralConfig      `json:"general"`
	Server       ServerConfig       `json:"server"`
	Messenger    MessengerConfig    `json:"messenger"`
	ReplyService ReplyServiceConfig `json:"replyService"`
	Quiz         QuizConfig         `json:"quiz"`
	Catalog      CatalogConfig      `json:"catalog"`
	Dispatch     DispatchConfig     `json:"dispatch"`
	Metrics      MetricsConfig      `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel"`
	LogFile  string `json:"logFile,omitempty"` // optional log file path
}

// ServerConfig configures the inbound webhook HTTP server.
type ServerConfig struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	WebhookPath string `json:"webhookPath"`
}

// MessengerConfig holds the platform credentials and Send API settings.
// The process refuses to serve without AppSecret, ValidationToken and
// PageAccessToken.
type MessengerConfig struct {
	AppSecret          string `json:"appSecret"`
	ValidationToken    string `json:"validationToken"`
	PageAccessToken    string `json:"pageAccessToken"`
	CommentAccessToken string `json:"commentAccessToken,omitempty"` // comment-reply endpoints only
	GraphBaseURL       string `json:"graphBaseUrl"`
	APIVersion         string `json:"apiVersion"`
	SendTimeoutSeconds int    `json:"sendTimeoutSeconds"`
	SendMaxRetries     int    `json:"sendMaxRetries"`
}

// ReplyServiceConfig points at the external reply-generation/training backend.
type ReplyServiceConfig struct {
	BaseURL        string `json:"baseUrl"`
	ApplicationID  string `json:"applicationId"`
	RESTKey        string `json:"restKey"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

// QuizConfig configures the quiz session store.
type QuizConfig struct {
	DBPath      string `json:"dbPath"`
	TTLMinutes  int    `json:"ttlMinutes"`
	OptionCount int    `json:"optionCount"`
}

// CatalogConfig optionally points at a YAML file overriding the canned
// demo-reply content.
type CatalogConfig struct {
	Path string `json:"path,omitempty"`
}

// DispatchConfig sizes the event bus and its worker pool.
type DispatchConfig struct {
	BufferSize int `json:"bufferSize"`
	Workers    int `json:"workers"`
}

type MetricsConfig struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint"`
}

// DefaultConfigDir returns the default config directory (~/.pagebot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pagebot"
	}
	return filepath.Join(home, ".pagebot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	if err := ApplyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	cfg.Quiz.DBPath = ExpandPath(cfg.Quiz.DBPath)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Catalog.Path = ExpandPath(cfg.Catalog.Path)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envOverrides maps well-known environment variables onto config fields.
// The MESSENGER_* names match the platform's deployment guides.
type envOverrides struct {
	AppSecret          string `env:"MESSENGER_APP_SECRET"`
	ValidationToken    string `env:"MESSENGER_VALIDATION_TOKEN"`
	PageAccessToken    string `env:"MESSENGER_PAGE_ACCESS_TOKEN"`
	CommentAccessToken string `env:"MESSENGER_COMMENT_ACCESS_TOKEN"`
	Port               int    `env:"PORT"`
	LogLevel           string `env:"PAGEBOT_LOG_LEVEL"`
	ReplyBaseURL       string `env:"PAGEBOT_REPLY_BASE_URL"`
}

// ApplyEnvOverrides layers environment variables over file values. Unset
// variables leave the file value untouched.
func ApplyEnvOverrides(cfg *Config) error {
	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return err
	}
	if ov.AppSecret != "" {
		cfg.Messenger.AppSecret = ov.AppSecret
	}
	if ov.ValidationToken != "" {
		cfg.Messenger.ValidationToken = ov.ValidationToken
	}
	if ov.PageAccessToken != "" {
		cfg.Messenger.PageAccessToken = ov.PageAccessToken
	}
	if ov.CommentAccessToken != "" {
		cfg.Messenger.CommentAccessToken = ov.CommentAccessToken
	}
	if ov.Port != 0 {
		cfg.Server.Port = ov.Port
	}
	if ov.LogLevel != "" {
		cfg.General.LogLevel = ov.LogLevel
	}
	if ov.ReplyBaseURL != "" {
		cfg.ReplyService.BaseURL = ov.ReplyBaseURL
	}
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values. Credentials are checked
// separately by RequireCredentials so that config subcommands keep working on
// a freshly initialized file.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 0 and 65535")
	}
	if !strings.HasPrefix(cfg.Server.WebhookPath, "/") {
		errs = append(errs, "server.webhookPath must start with /")
	}
	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if cfg.Messenger.SendTimeoutSeconds < 1 {
		errs = append(errs, "messenger.sendTimeoutSeconds must be >= 1")
	}
	if cfg.Messenger.SendMaxRetries < 0 || cfg.Messenger.SendMaxRetries > 10 {
		errs = append(errs, "messenger.sendMaxRetries must be between 0 and 10")
	}
	if cfg.ReplyService.TimeoutSeconds < 1 {
		errs = append(errs, "replyService.timeoutSeconds must be >= 1")
	}

	if cfg.Quiz.TTLMinutes < 1 {
		errs = append(errs, "quiz.ttlMinutes must be >= 1")
	}
	if cfg.Quiz.OptionCount < 2 || cfg.Quiz.OptionCount > 11 {
		errs = append(errs, "quiz.optionCount must be between 2 and 11")
	}

	if cfg.Dispatch.BufferSize < 1 {
		errs = append(errs, "dispatch.bufferSize must be >= 1")
	}
	if cfg.Dispatch.Workers < 1 || cfg.Dispatch.Workers > 100 {
		errs = append(errs, "dispatch.workers must be between 1 and 100")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// RequireCredentials refuses to serve without the shared app secret, the
// webhook validation token, and the page access token.
func RequireCredentials(cfg *Config) error {
	var missing []string
	if cfg.Messenger.AppSecret == "" {
		missing = append(missing, "messenger.appSecret")
	}
	if cfg.Messenger.ValidationToken == "" {
		missing = append(missing, "messenger.validationToken")
	}
	if cfg.Messenger.PageAccessToken == "" {
		missing = append(missing, "messenger.pageAccessToken")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing config values: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
