package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"appointly/internal/booking"
	"appointly/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App           AppConfig        `yaml:"app"`
	Database      DatabaseConfig   `yaml:"database"`
	Redis         RedisConfig      `yaml:"redis"`
	Backup        BackupConfig     `yaml:"backup"`
	Monitoring    MonitoringConfig `yaml:"monitoring"`
	Logging       LoggingConfig    `yaml:"logging"`
	API           APIConfig        `yaml:"api"`
	Telegram      TelegramConfig   `yaml:"telegram"`
	Google        GoogleConfig     `yaml:"google"`
	Scheduling    SchedulingConfig `yaml:"scheduling"`
	Reminders     RemindersConfig  `yaml:"reminders"`
	Exports       ExportConfig     `yaml:"exports"`
	DirectoryFile string           `yaml:"directory_file"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

// APIClientKey binds an API key to the actor it authenticates as.
type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	ActorID     string   `yaml:"actor_id"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	Debug    bool   `yaml:"debug"`
	// PollUpdates запускает бота для ответов на приглашения
	PollUpdates       bool          `yaml:"poll_updates"`
	RateLimitMessages int           `yaml:"rate_limit_messages"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window"`
}

func (t TelegramConfig) hasToken() bool {
	return t.BotToken != "" && t.BotToken != "YOUR_BOT_TOKEN_HERE"
}

type GoogleConfig struct {
	CredentialsFile      string `yaml:"credentials_file"`
	BookingSpreadsheetID string `yaml:"bookings_spreadsheet_id"`
	SheetName            string `yaml:"sheet_name"`
}

// Enabled reports whether the sheets mirror has enough settings to run.
func (g GoogleConfig) Enabled() bool {
	return g.CredentialsFile != "" && g.BookingSpreadsheetID != ""
}

type SchedulingConfig struct {
	BusinessStartHour int           `yaml:"business_start_hour"`
	BusinessEndHour   int           `yaml:"business_end_hour"`
	MinuteStep        int           `yaml:"minute_step"`
	MaxOccurrences    int           `yaml:"max_occurrences"`
	DraftTTL          time.Duration `yaml:"draft_ttl"`
	DraftRateLimit    int           `yaml:"draft_rate_limit"`
	DraftRateWindow   time.Duration `yaml:"draft_rate_window"`
	DirectoryCacheTTL time.Duration `yaml:"directory_cache_ttl"`
}

// Rules converts the scheduling section into validator rules.
func (s SchedulingConfig) Rules() booking.Rules {
	var minutes []int
	for m := 0; m < 60; m += s.MinuteStep {
		minutes = append(minutes, m)
	}
	return booking.Rules{
		StartHour:      s.BusinessStartHour,
		EndHour:        s.BusinessEndHour,
		Minutes:        minutes,
		MaxOccurrences: s.MaxOccurrences,
	}
}

type RemindersConfig struct {
	Enabled      bool          `yaml:"enabled"`
	QueueSize    int           `yaml:"queue_size"`
	MaxRetries   int           `yaml:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// Загружаем .env файл если существует
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	s := c.Scheduling
	if s.BusinessStartHour < 0 || s.BusinessEndHour > 23 || s.BusinessStartHour > s.BusinessEndHour {
		return fmt.Errorf("invalid business hours %d-%d", s.BusinessStartHour, s.BusinessEndHour)
	}
	if s.MinuteStep <= 0 || 60%s.MinuteStep != 0 {
		return fmt.Errorf("minute_step must divide 60, got %d", s.MinuteStep)
	}
	if s.MaxOccurrences < 1 {
		return fmt.Errorf("max_occurrences must be positive, got %d", s.MaxOccurrences)
	}

	if c.Reminders.Enabled && !c.Telegram.hasToken() {
		return errors.New("telegram bot token is required when reminders are enabled")
	}
	if c.Telegram.PollUpdates && !c.Telegram.hasToken() {
		return errors.New("telegram bot token is required when poll_updates is set")
	}

	return ValidateAPIKeys(c.API.Auth.APIKeys)
}

// ValidateAPIKeys rejects duplicate keys, keys without an actor and malformed permissions.
func ValidateAPIKeys(keys []APIClientKey) error {
	seen := make(map[string]bool)
	for _, k := range keys {
		if k.Key == "" {
			return fmt.Errorf("api key for '%s' is empty", k.Name)
		}
		if seen[k.Key] {
			return fmt.Errorf("duplicate api key for '%s'", k.Name)
		}
		seen[k.Key] = true

		if strings.TrimSpace(k.ActorID) == "" {
			return fmt.Errorf("api key '%s' has no actor_id", k.Name)
		}
		for _, p := range k.Permissions {
			if _, ok := models.ParsePermission(p); !ok {
				return fmt.Errorf("api key '%s': malformed permission %q", k.Name, p)
			}
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "appointly"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.HTTP.ReadTimeout == 0 {
		c.API.HTTP.ReadTimeout = 10 * time.Second
	}
	if c.API.HTTP.WriteTimeout == 0 {
		c.API.HTTP.WriteTimeout = 30 * time.Second
	}
	if c.API.HTTP.ShutdownTimeout == 0 {
		c.API.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}

	// Scheduling defaults
	s := &c.Scheduling
	if s.BusinessStartHour == 0 && s.BusinessEndHour == 0 {
		s.BusinessStartHour = models.BusinessStartHour
		s.BusinessEndHour = models.BusinessEndHour
	}
	if s.MinuteStep == 0 {
		s.MinuteStep = 15
	}
	if s.MaxOccurrences == 0 {
		s.MaxOccurrences = models.MaxOccurrences
	}
	if s.DraftTTL == 0 {
		s.DraftTTL = models.DefaultDraftTTL * time.Second
	}
	if s.DraftRateLimit == 0 {
		s.DraftRateLimit = models.DraftRateLimit
	}
	if s.DraftRateWindow == 0 {
		s.DraftRateWindow = models.DraftRateWindow * time.Second
	}
	if s.DirectoryCacheTTL == 0 {
		s.DirectoryCacheTTL = models.DirectoryCacheTTL * time.Second
	}

	// Reminder defaults
	r := &c.Reminders
	if r.QueueSize == 0 {
		r.QueueSize = models.WorkerQueueSize
	}
	if r.MaxRetries == 0 {
		r.MaxRetries = 5
	}
	if r.InitialDelay == 0 {
		r.InitialDelay = 2 * time.Second
	}
	if r.MaxDelay == 0 {
		r.MaxDelay = time.Minute
	}

	if c.Telegram.RateLimitMessages == 0 {
		c.Telegram.RateLimitMessages = 20
	}
	if c.Telegram.RateLimitWindow == 0 {
		c.Telegram.RateLimitWindow = time.Minute
	}

	if c.Google.SheetName == "" {
		c.Google.SheetName = "Bookings"
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
