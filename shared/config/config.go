package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read when neither --config nor CONFIG_FILE names one.
const DefaultConfigFile = "config.yaml"

// Sentiment providers.
const (
	ProviderVader  = "vader"
	ProviderGemini  = "gemini"
)

type Config struct {
	YouTube  YouTubeConfig  `yaml:"youtube"`
	AI       AIConfig       `yaml:"ai"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Server   ServerConfig   `yaml:"server"`
	Email    EmailConfig    `yaml:"email"`
	Logging  LoggingConfig  `yaml:"logging"`
	Schedule string         `yaml:"schedule"`
}

type YouTubeConfig struct {
	APIKey            string  `yaml:"api_key" env:"YOUTUBE_API_KEY"`
	ClientID          string  `yaml:"client_id" env:"GOOGLE_CLIENT_ID"`
	ClientSecret      string  `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
	TokenFile         string  `yaml:"token_file"`
	Query             string  `yaml:"query"`
	MaxResults        int     `yaml:"max_results"`
	MaxComments       int     `yaml:"max_comments"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// CommentTTL skips refetching comments younger than this; zero always refetches.
	CommentTTL time.Duration `yaml:"comment_ttl"`
}

type AIConfig struct {
	SentimentProvider string `yaml:"sentiment_provider"`
	GeminiAPIKey      string `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	Model             string `yaml:"model"`
}

type PipelineConfig struct {
	DataDir     string  `yaml:"data_dir"`
	OutputDir   string  `yaml:"output_dir"`
	MaxKeywords int     `yaml:"max_keywords"`
	TestRatio   float64 `yaml:"test_ratio"`
	Seed        int64   `yaml:"seed"`
	StrictIDs   bool    `yaml:"strict_ids"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	TopN int    `yaml:"top_n"`
	// ReloadDebounce coalesces artifact writes before the snapshot reloads.
	ReloadDebounce time.Duration `yaml:"reload_debounce"`
}

type EmailConfig struct {
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	Username   string `yaml:"username" env:"EMAIL_USERNAME"`
	Password   string `yaml:"password" env:"EMAIL_PASSWORD"`
	FromEmail  string `yaml:"from_email"`
	ToEmail    string `yaml:"to_email"`
	TopN       int    `yaml:"top_n"`
}

// Enabled reports whether a digest can be sent.
func (e EmailConfig) Enabled() bool {
	return e.SMTPServer != "" && e.ToEmail != ""
}

type LoggingConfig struct {
	Level       string `yaml:"level" env:"LOG_LEVEL"`
	Development bool   `yaml:"development"`
}

// Load reads path, or CONFIG_FILE, or config.yaml. A missing default file is
// not an error: defaults and environment variables are used instead.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("CONFIG_FILE")
		explicit = path != ""
	}
	if !explicit {
		path = DefaultConfigFile
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.YouTube.APIKey, "YOUTUBE_API_KEY")
	setFromEnv(&c.YouTube.ClientID, "GOOGLE_CLIENT_ID")
	setFromEnv(&c.YouTube.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setFromEnv(&c.AI.GeminiAPIKey, "GEMINI_API_KEY")
	setFromEnv(&c.Email.Username, "EMAIL_USERNAME")
	setFromEnv(&c.Email.Password, "EMAIL_PASSWORD")
	setFromEnv(&c.Logging.Level, "LOG_LEVEL")
}

func setFromEnv(dst *string, key string) {
	if *dst == "" {
		*dst = os.Getenv(key)
	}
}

func (c *Config) applyDefaults() {
	if c.YouTube.TokenFile == "" {
		c.YouTube.TokenFile = "youtube_token.json"
	}
	if c.YouTube.MaxResults == 0 {
		c.YouTube.MaxResults = 50
	}
	if c.YouTube.MaxComments == 0 {
		c.YouTube.MaxComments = 50
	}
	if c.YouTube.RequestsPerSecond == 0 {
		c.YouTube.RequestsPerSecond = 5
	}

	if c.AI.SentimentProvider == "" {
		c.AI.SentimentProvider = ProviderVader
	}
	c.AI.SentimentProvider = strings.ToLower(c.AI.SentimentProvider)
	if c.AI.Model == "" {
		c.AI.Model = "gemini-2.5-flash"
	}

	if c.Pipeline.DataDir == "" {
		c.Pipeline.DataDir = "data"
	}
	if c.Pipeline.OutputDir == "" {
		c.Pipeline.OutputDir = filepath.Join(c.Pipeline.DataDir, "models")
	}
	if c.Pipeline.MaxKeywords == 0 {
		c.Pipeline.MaxKeywords = 20
	}
	if c.Pipeline.TestRatio == 0 {
		c.Pipeline.TestRatio = 0.2
	}
	if c.Pipeline.Seed == 0 {
		c.Pipeline.Seed = 42
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.TopN == 0 {
		c.Server.TopN = 10
	}
	if c.Server.ReloadDebounce == 0 {
		c.Server.ReloadDebounce = 500 * time.Millisecond
	}

	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Email.TopN == 0 {
		c.Email.TopN = 10
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Schedule == "" {
		c.Schedule = "0 9 * * *" // Daily at 9 AM
	}
}

// Validate checks value ranges. Secrets are checked separately by the
// commands that need them.
func (c *Config) Validate() error {
	if c.YouTube.MaxResults < 1 {
		return fmt.Errorf("youtube.max_results must be positive, got %d", c.YouTube.MaxResults)
	}
	if c.YouTube.MaxComments < 0 {
		return fmt.Errorf("youtube.max_comments must not be negative, got %d", c.YouTube.MaxComments)
	}
	if c.YouTube.RequestsPerSecond < 0 {
		return fmt.Errorf("youtube.requests_per_second must not be negative, got %v", c.YouTube.RequestsPerSecond)
	}
	if c.YouTube.CommentTTL < 0 {
		return fmt.Errorf("youtube.comment_ttl must not be negative, got %s", c.YouTube.CommentTTL)
	}
	switch c.AI.SentimentProvider {
	case ProviderVader, ProviderGemini:
	default:
		return fmt.Errorf("ai.sentiment_provider must be %q or %q, got %q", ProviderVader, ProviderGemini, c.AI.SentimentProvider)
	}
	if c.Pipeline.MaxKeywords < 1 {
		return fmt.Errorf("pipeline.max_keywords must be positive, got %d", c.Pipeline.MaxKeywords)
	}
	if c.Pipeline.TestRatio < 0 || c.Pipeline.TestRatio >= 1 {
		return fmt.Errorf("pipeline.test_ratio must be in [0,1), got %v", c.Pipeline.TestRatio)
	}
	if c.Server.TopN < 1 {
		return fmt.Errorf("server.top_n must be positive, got %d", c.Server.TopN)
	}
	return nil
}

// RequireYouTube checks the credentials needed to call the YouTube API:
// an API key, or an OAuth client for the token flow.
func (c *Config) RequireYouTube() error {
	if c.YouTube.APIKey != "" {
		return nil
	}
	if c.YouTube.ClientID == "" {
		return fmt.Errorf("YouTube API key or client ID is required (set YOUTUBE_API_KEY or GOOGLE_CLIENT_ID)")
	}
	if c.YouTube.ClientSecret == "" {
		return fmt.Errorf("YouTube client secret is required (set GOOGLE_CLIENT_SECRET or youtube.client_secret)")
	}
	return nil
}

// RequireGemini checks the Gemini key when Gemini scores sentiment.
func (c *Config) RequireGemini() error {
	if c.AI.SentimentProvider == ProviderGemini && c.AI.GeminiAPIKey == "" {
		return fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or ai.gemini_api_key)")
	}
	return nil
}

// RequireEmail checks the SMTP credentials when a digest is configured.
func (c *Config) RequireEmail() error {
	if !c.Email.Enabled() {
		return nil
	}
	if c.Email.Username == "" {
		return fmt.Errorf("Email username is required (set EMAIL_USERNAME or email.username)")
	}
	if c.Email.Password == "" {
		return fmt.Errorf("Email password is required (set EMAIL_PASSWORD or email.password)")
	}
	return nil
}
