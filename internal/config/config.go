package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultExternalHTTPTimeout = 30 * time.Second
const defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)

type Config struct {
	TelegramBotToken string `yaml:"telegram_bot_token"`
	SlackBotToken    string `yaml:"slack_bot_token"`
	SlackAppToken    string `yaml:"slack_app_token"`

	NotionToken      string `yaml:"notion_token"`
	NotionDatabaseID string `yaml:"notion_database_id"`

	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	LLMModel        string `yaml:"llm_model"`
	LLMCallAttempts int    `yaml:"llm_call_attempts"`
	ContentMaxChars int    `yaml:"content_max_chars"`

	DBPath                     string `yaml:"db_path"`
	ExternalHTTPTimeoutSeconds int    `yaml:"external_http_timeout_seconds"`
	ClassifyTimeoutSeconds     int    `yaml:"classify_timeout_seconds"`
}

func LoadConfig() Config {
	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	envOverride(&cfg.TelegramBotToken, "TELEGRAM_BOT_TOKEN")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackAppToken, "SLACK_APP_TOKEN")
	envOverride(&cfg.NotionToken, "NOTION_TOKEN")
	envOverride(&cfg.NotionDatabaseID, "NOTION_DATABASE_ID")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverrideInt(&cfg.LLMCallAttempts, "LLM_CALL_ATTEMPTS")
	envOverrideInt(&cfg.ContentMaxChars, "CONTENT_MAX_CHARS")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")
	envOverrideInt(&cfg.ClassifyTimeoutSeconds, "CLASSIFY_TIMEOUT_SECONDS")

	if cfg.LLMModel == "" {
		cfg.LLMModel = "claude-sonnet-4-20250514"
	}
	if cfg.LLMCallAttempts == 0 {
		cfg.LLMCallAttempts = 3
	}
	if cfg.ContentMaxChars == 0 {
		cfg.ContentMaxChars = 2000
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./collectbot.db"
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
	if cfg.ClassifyTimeoutSeconds == 0 {
		cfg.ClassifyTimeoutSeconds = 30
	}

	required := map[string]string{
		"notion_token":       cfg.NotionToken,
		"notion_database_id": cfg.NotionDatabaseID,
		"anthropic_api_key":  cfg.AnthropicAPIKey,
	}
	for name, val := range required {
		if val == "" {
			log.Fatalf("Required config '%s' is not set (via config.yaml or env var)", name)
		}
	}

	slackFields := map[string]string{
		"slack_bot_token": cfg.SlackBotToken,
		"slack_app_token": cfg.SlackAppToken,
	}
	slackSet := 0
	for _, v := range slackFields {
		if v != "" {
			slackSet++
		}
	}
	if slackSet > 0 && slackSet < len(slackFields) {
		for name, val := range slackFields {
			if val == "" {
				log.Fatalf("Partial Slack config: '%s' is not set (both slack_bot_token and slack_app_token are required together)", name)
			}
		}
	}

	if !cfg.TelegramConfigured() && !cfg.SlackConfigured() {
		log.Fatalf("No chat channel is configured: set telegram_bot_token and/or the slack_bot_token + slack_app_token pair")
	}

	if cfg.LLMCallAttempts < 1 {
		log.Fatalf("invalid llm_call_attempts '%d': must be >= 1", cfg.LLMCallAttempts)
	}
	if cfg.ContentMaxChars < 100 {
		log.Fatalf("invalid content_max_chars '%d': must be >= 100", cfg.ContentMaxChars)
	}
	if cfg.ExternalHTTPTimeoutSeconds < 5 {
		log.Fatalf("invalid external_http_timeout_seconds '%d': must be >= 5", cfg.ExternalHTTPTimeoutSeconds)
	}
	if cfg.ClassifyTimeoutSeconds < 5 {
		log.Fatalf("invalid classify_timeout_seconds '%d': must be >= 5", cfg.ClassifyTimeoutSeconds)
	}

	return cfg
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func (c Config) TelegramConfigured() bool {
	return c.TelegramBotToken != ""
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackAppToken != ""
}
