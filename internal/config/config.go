package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

const (
	SinkSheets = "sheets"
	SinkFile   = "file"
)

type Config struct {
	Port int `env:"PORT" envDefault:"3002"`

	// LINE channel
	LineChannelSecret      string `env:"LINE_CHANNEL_SECRET,required"`
	LineChannelAccessToken string `env:"LINE_CHANNEL_ACCESS_TOKEN,required"`

	// LLM settings
	LLMProvider      LLMProvider `env:"LLM_PROVIDER" envDefault:"gemini"`
	GoogleAPIKey     string      `env:"GOOGLE_API_KEY"`
	GeminiModel      string      `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash-latest"`
	OpenAIAPIKey     string      `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string      `env:"OPENAI_BASE_URL"`
	OpenAIModel      string      `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	YandexOAuthToken string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string      `env:"YANDEX_FOLDER_ID"`

	// Generation bounds
	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT" envDefault:"25s"`
	MaxReferenceBytes int           `env:"MAX_REFERENCE_BYTES" envDefault:"16384"`
	MaxInputRunes     int           `env:"MAX_INPUT_RUNES" envDefault:"1000"`
	LLMRatePerMinute  float64       `env:"LLM_RATE_PER_MINUTE" envDefault:"0"`
	LLMRateBurst      int           `env:"LLM_RATE_BURST" envDefault:"3"`

	// Retrieval
	MatchThreshold float64 `env:"MATCH_THRESHOLD" envDefault:"0.65"`
	QuestionsPath  string  `env:"QUESTIONS_PATH" envDefault:"data/data.json"`
	InfoPath       string  `env:"INFO_PATH" envDefault:"data/info.json"`
	DictionaryPath string  `env:"DICTIONARY_PATH"`

	// Persona
	PersonaPath string `env:"PERSONA_PATH"`
	MascotName  string `env:"MASCOT_NAME" envDefault:"น้องอะตอมยูงทอง"`
	ApologyText string `env:"APOLOGY_TEXT" envDefault:"น้องอะตอมง่วงจังเลยค่ะ ไว้เจอกันคราวหลังนะคะ"`

	// Interaction log
	LogSink               string `env:"LOG_SINK" envDefault:"sheets"`
	SpreadsheetID         string `env:"SPREADSHEET_ID"`
	GoogleCredentialsFile string `env:"GOOGLE_CREDENTIALS_FILE" envDefault:"credentials.json"`
	SheetName             string `env:"SHEET_NAME" envDefault:"Logs"`
	LogFilePath           string `env:"LOG_FILE_PATH" envDefault:"logs/interactions.jsonl"`
	LogQueueSize          int    `env:"LOG_QUEUE_SIZE" envDefault:"256"`
	LogTimezone           string `env:"LOG_TIMEZONE" envDefault:"Asia/Bangkok"`

	// Redelivery dedupe
	RedisAddr string        `env:"REDIS_ADDR"`
	DedupeTTL time.Duration `env:"DEDUPE_TTL" envDefault:"10m"`

	// Scheduled jobs
	HistoryIdleTTL   time.Duration `env:"HISTORY_IDLE_TTL" envDefault:"24h"`
	HistorySweepCron string        `env:"HISTORY_SWEEP_CRON" envDefault:"@hourly"`
	ReportCron       string        `env:"REPORT_CRON" envDefault:"0 21 * * *"`

	// Operator logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.LineChannelSecret) == "" {
		errs = append(errs, errors.New("LINE_CHANNEL_SECRET is required"))
	}
	if strings.TrimSpace(c.LineChannelAccessToken) == "" {
		errs = append(errs, errors.New("LINE_CHANNEL_ACCESS_TOKEN is required"))
	}

	c.LLMProvider = LLMProvider(strings.ToLower(string(c.LLMProvider)))
	switch c.LLMProvider {
	case ProviderGemini:
		if c.GoogleAPIKey == "" {
			errs = append(errs, errors.New("GOOGLE_API_KEY is required for the gemini provider"))
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai provider"))
		}
	case ProviderYandex:
		if c.YandexOAuthToken == "" || c.YandexFolderID == "" {
			errs = append(errs, errors.New("YANDEX_OAUTH_TOKEN and YANDEX_FOLDER_ID are required for the yandex provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider))
	}

	switch c.LogSink {
	case SinkSheets:
		if c.SpreadsheetID == "" {
			errs = append(errs, errors.New("SPREADSHEET_ID is required for the sheets log sink"))
		}
		if c.GoogleCredentialsFile == "" {
			errs = append(errs, errors.New("GOOGLE_CREDENTIALS_FILE is required for the sheets log sink"))
		}
	case SinkFile:
		if c.LogFilePath == "" {
			errs = append(errs, errors.New("LOG_FILE_PATH is required for the file log sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LOG_SINK %q", c.LogSink))
	}

	if c.MatchThreshold < 0 || c.MatchThreshold > 1 {
		errs = append(errs, fmt.Errorf("MATCH_THRESHOLD must be within [0,1], got %v", c.MatchThreshold))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if c.GenerationTimeout <= 0 {
		errs = append(errs, errors.New("GENERATION_TIMEOUT must be positive"))
	}
	if c.MaxReferenceBytes <= 0 || c.MaxInputRunes <= 0 {
		errs = append(errs, errors.New("MAX_REFERENCE_BYTES and MAX_INPUT_RUNES must be positive"))
	}
	if c.LLMRatePerMinute < 0 {
		errs = append(errs, errors.New("LLM_RATE_PER_MINUTE must not be negative"))
	}
	if _, err := time.LoadLocation(c.LogTimezone); err != nil {
		errs = append(errs, fmt.Errorf("LOG_TIMEZONE: %w", err))
	}
	return errors.Join(errs...)
}

// Location returns the zone used for interaction timestamps.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.LogTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
