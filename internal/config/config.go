package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MimeLyc/srt-line-translator/internal/checkpoint"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Config holds all application configuration.
//
// Values are layered, later sources winning:
// defaults, TOML file (--config), .env file, environment, command line.
//
// Environment Variables:
// Service Configuration:
// - SERVICE_KIND: "openai" (chat completions) or "dify" (completion app) (default: openai)
// - LLM_API_URL: API base URL (default depends on SERVICE_KIND)
// - LLM_API_KEY: API key (required unless only printing)
// - LLM_MODEL: Model name, chat services only (default: openai/gpt-4o-mini)
// - LLM_TIMEOUT: Per call timeout in seconds (default: 60)
// - LLM_MAX_TOKENS: Maximum tokens for responses, 0 leaves it to the model (default: 1000)
// - LLM_TEMPERATURE: Temperature for responses, 0 to 2 (default: 0.3)
//
// Translate Configuration:
// - TARGET_LANGUAGE: BCP 47 tag or language name (default: zh)
// - MAX_RETRIES: Extra attempts per entry after a failed call (default: 3)
// - RETRY_DELAY: Pause between attempts, e.g. 3s (default: 3s)
// - SKIP_MARKERS: Copy blank and marker-only entries without a call (default: true)
// - CHECKPOINT_BACKEND: "file" or "sqlite" (default: file)
// - RESUME_CRON: Retry schedule after a failed run, with seconds field (optional)
//
// Log Configuration:
// - LOG_LEVEL: debug, info, warn, error (default: info)
// - LOG_FILE: Also write logs to this file (optional)
type Config struct {
	Service   ServiceConfig   `toml:"service"`
	Translate TranslateConfig `toml:"translate"`
	Log       LogConfig       `toml:"log"`
}

const (
	ServiceOpenAI = "openai"
	ServiceDify   = "dify"

	DefaultOpenAIURL = "https://openrouter.ai/api/v1"
	DefaultDifyURL   = "https://api.dify.ai/v1"
)

// ServiceConfig describes the remote translation service
type ServiceConfig struct {
	Kind        string  `toml:"kind"`
	APIURL      string  `toml:"api_url"`
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     int     `toml:"timeout"` // seconds
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
}

// CallTimeout is the per call timeout of the service client
func (s ServiceConfig) CallTimeout() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

type TranslateConfig struct {
	TargetLanguage    string   `toml:"target_language"`
	MaxRetries        int      `toml:"max_retries"`
	RetryDelay        Duration `toml:"retry_delay"`
	SkipMarkers       bool     `toml:"skip_markers"`
	CheckpointBackend string   `toml:"checkpoint_backend"`
	ResumeCron        string   `toml:"resume_cron"`
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Duration is a time.Duration written as a Go duration string ("3s", "500ms")
// in the config file.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := parseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// parseDuration accepts a Go duration or a bare number of seconds
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if seconds, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(seconds * float64(time.Second)), nil
	}
	return 0, fmt.Errorf("invalid duration %q", s)
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Service: ServiceConfig{
			Kind:        ServiceOpenAI,
			Model:       "openai/gpt-4o-mini",
			Timeout:     60,
			MaxTokens:   1000,
			Temperature: 0.3,
		},
		Translate: TranslateConfig{
			TargetLanguage:    "zh",
			MaxRetries:        3,
			RetryDelay:        Duration(3 * time.Second),
			SkipMarkers:       true,
			CheckpointBackend: string(checkpoint.BackendFile),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Option is a function type for configuring Config
type Option func(*Config)

// Load builds the configuration from path (a TOML file, may be empty), the
// .env file in the working directory, the environment and opts. It does not
// validate; callers decide which fields they need via Validate.
func Load(path string, opts ...Option) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	env, err := newEnvSource(".env")
	if err != nil {
		return nil, err
	}
	env.apply(&cfg)

	for _, opt := range opts {
		opt(&cfg)
	}

	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Service.Kind = strings.ToLower(strings.TrimSpace(c.Service.Kind))
	c.Service.APIURL = strings.TrimSpace(c.Service.APIURL)
	if c.Service.APIURL == "" {
		c.Service.APIURL = DefaultOpenAIURL
		if c.Service.Kind == ServiceDify {
			c.Service.APIURL = DefaultDifyURL
		}
	}
	c.Translate.TargetLanguage = strings.TrimSpace(c.Translate.TargetLanguage)
	c.Translate.CheckpointBackend = strings.ToLower(strings.TrimSpace(c.Translate.CheckpointBackend))
	c.Translate.ResumeCron = strings.TrimSpace(c.Translate.ResumeCron)
}

// Validate checks the settings needed to talk to the translation service
func (c *Config) Validate() error {
	var errs []error
	switch c.Service.Kind {
	case ServiceOpenAI, ServiceDify:
	default:
		errs = append(errs, fmt.Errorf("unknown service kind %q (want %s or %s)", c.Service.Kind, ServiceOpenAI, ServiceDify))
	}
	if c.Service.APIKey == "" {
		errs = append(errs, fmt.Errorf("LLM_API_KEY is required"))
	}
	if c.Service.Kind == ServiceOpenAI && c.Service.Model == "" {
		errs = append(errs, fmt.Errorf("LLM_MODEL is required for the %s service", ServiceOpenAI))
	}
	if c.Service.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %d", c.Service.Timeout))
	}
	if c.Service.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("max tokens must not be negative, got %d", c.Service.MaxTokens))
	}
	if c.Service.Temperature < 0 || c.Service.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature must be between 0 and 2, got %g", c.Service.Temperature))
	}
	if c.Translate.TargetLanguage == "" {
		errs = append(errs, fmt.Errorf("target language is required"))
	}
	if c.Translate.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max retries must not be negative, got %d", c.Translate.MaxRetries))
	}
	if c.Translate.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("retry delay must not be negative"))
	}
	if _, err := checkpoint.ParseBackend(c.Translate.CheckpointBackend); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// CheckpointBackend returns the parsed checkpoint backend, falling back to the file log
func (c *Config) CheckpointBackend() checkpoint.Backend {
	backend, err := checkpoint.ParseBackend(c.Translate.CheckpointBackend)
	if err != nil {
		return checkpoint.BackendFile
	}
	return backend
}

// TargetTag parses the target language as a BCP 47 tag
func (c *Config) TargetTag() (language.Tag, bool) {
	tag, err := language.Parse(c.Translate.TargetLanguage)
	if err != nil {
		return language.Und, false
	}
	return tag, true
}

// TargetLanguageName is the human readable target language sent to the
// service, e.g. "Chinese" for "zh". Unrecognized values are used as given.
func (c *Config) TargetLanguageName() string {
	if tag, ok := c.TargetTag(); ok {
		if name := display.English.Tags().Name(tag); name != "" {
			return name
		}
	}
	return c.Translate.TargetLanguage
}

// TargetLanguageCode is the short form used in derived file names
func (c *Config) TargetLanguageCode() string {
	if tag, ok := c.TargetTag(); ok {
		return tag.String()
	}
	return strings.ToLower(strings.Join(strings.Fields(c.Translate.TargetLanguage), "-"))
}

// WriteFile stores c as TOML at path
func (c *Config) WriteFile(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Exists reports whether a config file is present at path
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func WithServiceKind(kind string) Option {
	return func(c *Config) { c.Service.Kind = kind }
}

func WithAPIURL(url string) Option {
	return func(c *Config) { c.Service.APIURL = url }
}

func WithAPIKey(key string) Option {
	return func(c *Config) { c.Service.APIKey = key }
}

func WithModel(model string) Option {
	return func(c *Config) { c.Service.Model = model }
}

func WithTargetLanguage(lang string) Option {
	return func(c *Config) { c.Translate.TargetLanguage = lang }
}

func WithMaxRetries(n int) Option {
	return func(c *Config) { c.Translate.MaxRetries = n }
}

func WithRetryDelay(d time.Duration) Option {
	return func(c *Config) { c.Translate.RetryDelay = Duration(d) }
}

func WithCheckpointBackend(backend string) Option {
	return func(c *Config) { c.Translate.CheckpointBackend = backend }
}

func WithResumeCron(expr string) Option {
	return func(c *Config) { c.Translate.ResumeCron = expr }
}

func WithLogLevel(level string) Option {
	return func(c *Config) { c.Log.Level = level }
}
