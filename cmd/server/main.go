package main

import (
	"context"
	"flag"
	"log"
	"net/http"

	"github.com/gophertribe/voxnote/pkg/ai"
	"github.com/gophertribe/voxnote/pkg/api"
	"github.com/gophertribe/voxnote/pkg/calendar"
	"github.com/gophertribe/voxnote/pkg/config"
	"github.com/gophertribe/voxnote/pkg/db"
	"github.com/gophertribe/voxnote/pkg/extract"
	"github.com/gophertribe/voxnote/pkg/integration/discord"
	"github.com/gophertribe/voxnote/pkg/integration/telegram"
	"github.com/gophertribe/voxnote/pkg/session"
	"github.com/gophertribe/voxnote/pkg/storage"
	"github.com/gophertribe/voxnote/pkg/sync"
	"github.com/gophertribe/voxnote/pkg/transcribe"
)

func main() {
	configPath := flag.String("config", "voxnote.yaml", "Path to config file")
	port := flag.String("port", "", "HTTP port (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	ctx := context.Background()

	// Initialize DB
	database, err := db.NewDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer database.Close()

	if err := database.InitSchema(); err != nil {
		log.Fatalf("Failed to init schema: %v", err)
	}

	repo := db.NewRepository(database)

	// Initialize AI client. Extraction degrades to the deterministic parser
	// when no key is configured, so a missing key is not fatal.
	var aiClient ai.Generator
	if cfg.AI.APIKey != "" {
		switch cfg.AI.Provider {
		case "anthropic":
			aiClient = ai.NewAnthropicClient(cfg.AI.APIKey)
		case "openai":
			aiClient = ai.NewOpenAIClient(cfg.AI.APIKey)
		case "moonshot":
			aiClient = ai.NewMoonshotClient(cfg.AI.APIKey)
		case "gemini":
			geminiClient, err := ai.NewGeminiClient(ctx, cfg.AI.APIKey)
			if err != nil {
				log.Fatalf("Failed to create AI client: %v", err)
			}
			defer geminiClient.Close()
			aiClient = geminiClient
		default:
			log.Fatalf("Unknown AI provider: %s", cfg.AI.Provider)
		}
		log.Printf("AI extraction via %s", cfg.AI.Provider)
	} else {
		log.Println("No AI key configured, extraction will use the deterministic parser")
	}
	extractor := extract.New(aiClient)

	// Initialize transcription
	if cfg.Deepgram.APIKey == "" {
		log.Fatal("DEEPGRAM_API_KEY (or deepgram.api_key) is required")
	}
	transcriber := transcribe.NewClient(cfg.Deepgram.APIKey)

	// Initialize storage
	storeCfg := cfg.StorageConfig()
	store, err := storage.NewStore(ctx, storeCfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// Initialize Calendar service (optional)
	var cal calendar.API
	if cfg.Calendar.CredentialsFile != "" {
		svc, err := calendar.NewService(ctx, cfg.Calendar.CredentialsFile, cfg.Calendar.CalendarID)
		if err != nil {
			log.Printf("Calendar integration disabled: %v", err)
		} else {
			cal = svc
			log.Println("Calendar integration enabled")
		}
	}

	// Initialize Git sync (optional)
	var git session.Syncer
	if cfg.Git.Enabled {
		git = sync.NewGitManager(storeCfg.LocalDir, cfg.Git.AuthorName, cfg.Git.AuthorEmail)
	}

	sessions := session.NewManager()
	processor := &session.Processor{
		Transcriber: transcriber,
		Extractor:   extractor,
		Store:       store,
		Calendar:    cal,
		Repo:        repo,
		Git:         git,
	}

	// Initialize Router
	handler := &api.Handler{
		Sessions:  sessions,
		Processor: processor,
		Repo:      repo,
		Caps: api.Capabilities{
			Transcription: true,
			Extraction:    extractor.Available(),
			S3:            !storeCfg.PreferLocal && storeCfg.RemoteConfigured(),
			Calendar:      cal != nil,
			Git:           git != nil,
		},
	}
	router := api.NewRouter(handler)

	// Initialize Discord Bot (Optional)
	if cfg.Discord.Token != "" {
		bot, err := discord.NewBot(cfg.Discord.Token, processor, sessions)
		if err != nil {
			log.Printf("Failed to create Discord bot: %v", err)
		} else {
			if err := bot.Start(); err != nil {
				log.Printf("Failed to start Discord bot: %v", err)
			} else {
				log.Println("Discord Bot started")
				defer bot.Stop()
			}
		}
	}

	// Initialize Telegram Bot (Optional)
	if cfg.Telegram.Token != "" {
		tgBot, err := telegram.NewBot(cfg.Telegram.Token, processor, sessions)
		if err != nil {
			log.Printf("Failed to create Telegram bot: %v", err)
		} else {
			if err := tgBot.Start(); err != nil {
				log.Printf("Failed to start Telegram bot: %v", err)
			} else {
				log.Println("Telegram Bot started")
				defer tgBot.Stop()
			}
		}
	}

	log.Printf("Starting server on :%s", cfg.Server.Port)
	if err := http.ListenAndServe(":"+cfg.Server.Port, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
