package app

import (
	"context"
	"log"
	"time"

	"github.com/ccccccarachen/content-collection-skill/internal/bot"
	"github.com/ccccccarachen/content-collection-skill/internal/config"
	"github.com/ccccccarachen/content-collection-skill/internal/fetch"
	"github.com/ccccccarachen/content-collection-skill/internal/httpx"
	"github.com/ccccccarachen/content-collection-skill/internal/integrations/llm"
	"github.com/ccccccarachen/content-collection-skill/internal/integrations/notion"
	slackbot "github.com/ccccccarachen/content-collection-skill/internal/integrations/slack"
	"github.com/ccccccarachen/content-collection-skill/internal/integrations/telegram"
	"github.com/ccccccarachen/content-collection-skill/internal/storage/sqlite"
)

func Main() {
	cfg := config.LoadConfig()
	appliedHTTPTimeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	log.Printf(
		"Config loaded. Model=%s ContentMaxChars=%d Telegram=%v Slack=%v ClassifyTimeout=%ds ExternalHTTPTimeout=%s",
		cfg.LLMModel,
		cfg.ContentMaxChars,
		cfg.TelegramConfigured(),
		cfg.SlackConfigured(),
		cfg.ClassifyTimeoutSeconds,
		appliedHTTPTimeout,
	)

	db, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	log.Printf("Database initialized at %s", cfg.DBPath)
	defer db.Close()

	if count, err := sqlite.CountSavedRecords(db); err == nil {
		log.Printf("Journal holds %d saved records", count)
	}

	store := notion.NewGateway(cfg.NotionToken, cfg.NotionDatabaseID, httpx.ExternalHTTPClient())
	classifier := llm.NewClassifier(cfg.AnthropicAPIKey, llm.Options{
		Model:           cfg.LLMModel,
		MaxContentChars: cfg.ContentMaxChars,
		CallAttempts:    cfg.LLMCallAttempts,
		CallTimeout:     time.Duration(cfg.ClassifyTimeoutSeconds) * time.Second,
	})
	fetcher := fetch.New(httpx.ExternalHTTPClient())
	dispatcher := bot.NewDispatcher(store, classifier, fetcher, db, cfg.LLMModel)

	ctx := context.Background()
	adapterErr := make(chan error, 2)

	if cfg.TelegramConfigured() {
		tg, err := telegram.New(cfg.TelegramBotToken, httpx.ExternalHTTPClient(), dispatcher)
		if err != nil {
			log.Fatalf("Telegram setup failed: %v", err)
		}
		go func() { adapterErr <- tg.Run(ctx) }()
		log.Println("Telegram adapter started")
	}
	if cfg.SlackConfigured() {
		sl := slackbot.New(cfg.SlackBotToken, cfg.SlackAppToken, httpx.ExternalHTTPClient(), dispatcher)
		go func() { adapterErr <- sl.Run(ctx) }()
		log.Println("Slack adapter started")
	}

	log.Println("Starting Content Collection Bot...")
	if err := <-adapterErr; err != nil {
		log.Fatalf("Channel adapter error: %v", err)
	}
}
