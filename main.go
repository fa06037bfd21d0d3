package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"supportagent/agent"
	"supportagent/channel"
	"supportagent/config"
	"supportagent/provider"
	"supportagent/security"
	"supportagent/storage"
	"supportagent/tools"
	"supportagent/voice"
)

const (
	Version = "v0.01.00"
	License = "Apache-2.0"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize debug logging after config is loaded
	config.InitDebugLog(cfg.DataDir())

	whitelist, err := security.LoadWhitelist(filepath.Join(cfg.DataDir(), "contacts.toml"))
	if err != nil {
		fmt.Printf("Failed to load contact whitelist: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d whitelisted contacts\n", whitelist.Size())

	store := storage.NewConversationStore(cfg.Agent.MaxHistory)

	transcripts, err := storage.NewTranscriptStore(cfg.DataDir())
	if err != nil {
		fmt.Printf("Failed to open transcript archive: %v\n", err)
		os.Exit(1)
	}
	defer transcripts.Close()

	registry := tools.NewRegistry()

	if cfg.JumpHost.Host != "" {
		executor := tools.NewExecutor(cfg.JumpHost)
		if err := tools.RegisterRemoteTools(registry, executor); err != nil {
			fmt.Printf("Failed to register remote tools: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Println("No jump host configured, remote execution tools disabled")
	}

	if cfg.Database.Enabled {
		dbTool := tools.NewDatabaseTool(cfg.Database)
		if err := tools.RegisterDatabaseTool(registry, dbTool); err != nil {
			fmt.Printf("Failed to register database tool: %v\n", err)
			os.Exit(1)
		}
	}

	if err := tools.RegisterSystemStatusTool(registry); err != nil {
		fmt.Printf("Failed to register system status tool: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Registered %d tools\n", registry.Len())

	llm, err := provider.NewProvider(provider.Config{
		Type:    provider.MapProviderIDToType(cfg.LLM.Provider),
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		APIKey:  cfg.LLM.APIKey,
	})
	if err != nil {
		fmt.Printf("Failed to create LLM provider: %v\n", err)
		os.Exit(1)
	}

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 10*time.Second)
	if err := llm.Ping(pingCtx); err != nil {
		cancelPing()
		fmt.Printf("Failed to reach %s at %s: %v\n", cfg.LLM.Provider, cfg.LLM.BaseURL, err)
		os.Exit(1)
	}
	cancelPing()
	fmt.Printf("Using %s model %s\n", cfg.LLM.Provider, llm.GetModel())

	knowledge, err := cfg.LoadKnowledgeBase()
	if err != nil {
		fmt.Printf("Failed to load knowledge base: %v\n", err)
		os.Exit(1)
	}
	if knowledge != "" {
		fmt.Println("Knowledge base loaded")
	}

	supportAgent := agent.New(agent.Options{
		Provider:       llm,
		Registry:       registry,
		Store:          store,
		Transcripts:    transcripts,
		SystemPrompt:   cfg.Agent.SystemPrompt,
		KnowledgeBase:  knowledge,
		MaxToolRounds:  cfg.Agent.MaxToolRounds,
		SessionTimeout: cfg.SessionTimeout(),
		LLMTimeout:     cfg.LLMTimeout(),
	})

	var transcriber voice.Transcriber
	if cfg.Voice.Enabled {
		whisper, err := voice.NewWhisperTranscriber(cfg.Voice)
		if err != nil {
			fmt.Printf("Failed to create transcriber: %v\n", err)
			os.Exit(1)
		}
		transcriber = whisper
		fmt.Println("Voice transcription enabled")
	}

	var adapters []channel.Adapter
	if cfg.WhatsApp.Enabled {
		adapters = append(adapters, channel.NewWhatsAppAdapter(cfg.WhatsApp))
		fmt.Printf("WhatsApp channel enabled (bridge: %s)\n", cfg.WhatsApp.BridgeURL)
	}
	if cfg.Web.Enabled {
		adapters = append(adapters, channel.NewWebAdapter(cfg.Web))
		fmt.Printf("Web channel enabled on %s\n", cfg.Web.ListenAddr)
	}
	if len(adapters) == 0 {
		fmt.Println("No channels enabled, nothing to do")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatcher := agent.NewDispatcher(supportAgent, whitelist, transcriber, adapters)

	fmt.Println("Support agent running, press Ctrl+C to stop")
	dispatcher.Run(ctx)

	fmt.Println("Shutting down")
}
