package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

type LLMConfig struct {
	Provider string `toml:"provider"` // "ollama", "openai" or "anthropic"
	Model    string `toml:"model"`
	BaseURL  string `toml:"base_url"`
	APIKey   string `toml:"api_key,omitempty"`
}

type JumpHostConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	Username       string `toml:"username"`
	KeyFile        string `toml:"key_file"`
	KeyPassphrase  string `toml:"key_passphrase,omitempty"` // for encrypted key files
	DirectoryPath  string `toml:"directory_path"`           // servers.json on the jump host
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type DatabaseConfig struct {
	Enabled        bool   `toml:"enabled"`
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	Username       string `toml:"username"`
	Password       string `toml:"password,omitempty"`
	MaxRows        int    `toml:"max_rows"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type WhatsAppConfig struct {
	Enabled   bool   `toml:"enabled"`
	BridgeURL string `toml:"bridge_url"`
}

type WebConfig struct {
	Enabled    bool   `toml:"enabled"`
	ListenAddr string `toml:"listen_addr"`
}

type VoiceConfig struct {
	Enabled bool   `toml:"enabled"`
	BaseURL string `toml:"base_url"` // OpenAI-compatible Whisper endpoint
	APIKey  string `toml:"api_key,omitempty"`
	Model   string `toml:"model"`
}

type AgentConfig struct {
	SystemPrompt          string `toml:"system_prompt,omitempty"`
	KnowledgeFile         string `toml:"knowledge_file"`
	MaxToolRounds         int    `toml:"max_tool_rounds"`
	MaxHistory            int    `toml:"max_history"` // retained messages per conversation
	SessionTimeoutSeconds int    `toml:"session_timeout_seconds"`
	LLMTimeoutSeconds     int    `toml:"llm_timeout_seconds"` // upper bound on a single model call
}

type UserConfig struct {
	LLM      LLMConfig      `toml:"llm"`
	JumpHost JumpHostConfig `toml:"jump_host"`
	Database DatabaseConfig `toml:"database"`
	WhatsApp WhatsAppConfig `toml:"whatsapp"`
	Web      WebConfig      `toml:"web"`
	Voice    VoiceConfig    `toml:"voice"`
	Agent    AgentConfig    `toml:"agent"`
}

// Config is the fully resolved runtime configuration. It is constructed once
// at startup and treated as read-only afterwards.
type Config struct {
	DataDirectory string
	LLM           LLMConfig
	JumpHost      JumpHostConfig
	Database      DatabaseConfig
	WhatsApp      WhatsAppConfig
	Web           WebConfig
	Voice         VoiceConfig
	Agent         AgentConfig
}

var Debug = false
var DebugLog *log.Logger

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// Timeout returns the configured jump host timeout as a duration.
func (j JumpHostConfig) Timeout() time.Duration {
	return time.Duration(j.TimeoutSeconds) * time.Second
}

// SessionTimeout returns the idle gap after which a conversation is reset.
func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.Agent.SessionTimeoutSeconds) * time.Second
}

// LLMTimeout returns the maximum time a single model call may take.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.Agent.LLMTimeoutSeconds) * time.Second
}

func (c *Config) applyEnvOverrides() {
	if provider := os.Getenv("SUPPORTAGENT_LLM_PROVIDER"); provider != "" {
		c.LLM.Provider = provider
	}
	if model := os.Getenv("SUPPORTAGENT_LLM_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if baseURL := os.Getenv("SUPPORTAGENT_LLM_BASE_URL"); baseURL != "" {
		c.LLM.BaseURL = baseURL
	}
	if apiKey := os.Getenv("SUPPORTAGENT_LLM_API_KEY"); apiKey != "" {
		c.LLM.APIKey = apiKey
	}
	if dataDir := os.Getenv("SUPPORTAGENT_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
	if bridgeURL := os.Getenv("SUPPORTAGENT_BRIDGE_URL"); bridgeURL != "" {
		c.WhatsApp.BridgeURL = bridgeURL
	}
}

func CheckDebug() bool {
	debug := os.Getenv("SUPPORTAGENT_DEBUG")
	return debug == "true" || debug == "1"
}

func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	Debug = true
	logPath := filepath.Join(dataDir, "debug.log")

	// Create debug log with secure permissions (0600 - may contain sensitive debug info)
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	DebugLog.Printf("=== Debug logging started (SUPPORTAGENT_DEBUG=%s) ===", os.Getenv("SUPPORTAGENT_DEBUG"))
	DebugLog.Printf("Log path: %s", logPath)
}

func Load() (*Config, error) {
	systemCfg, err := LoadSystemConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load system config: %w", err)
	}

	cfg := &Config{
		DataDirectory: systemCfg.DataDirectory,
	}

	dataDir := cfg.DataDir()
	userCfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	cfg.LLM = userCfg.LLM
	cfg.JumpHost = userCfg.JumpHost
	cfg.Database = userCfg.Database
	cfg.WhatsApp = userCfg.WhatsApp
	cfg.Web = userCfg.Web
	cfg.Voice = userCfg.Voice
	cfg.Agent = userCfg.Agent

	cfg.applyEnvOverrides()

	dataDir = cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	return cfg, nil
}
