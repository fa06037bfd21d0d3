package config

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: "~/.local/share/supportagent",
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		LLM: LLMConfig{
			Provider: "ollama",
			Model:    "llama3.1:latest",
			BaseURL:  "http://localhost:11434",
		},
		JumpHost: JumpHostConfig{
			Port:           22,
			Username:       "admin",
			DirectoryPath:  "~/servers.json",
			TimeoutSeconds: 30,
		},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           3306,
			Username:       "root",
			MaxRows:        100,
			TimeoutSeconds: 30,
		},
		WhatsApp: WhatsAppConfig{
			BridgeURL: "http://localhost:3000",
		},
		Web: WebConfig{
			ListenAddr: ":8080",
		},
		Voice: VoiceConfig{
			Model: "whisper-1",
		},
		Agent: AgentConfig{
			KnowledgeFile:         "knowledge.md",
			MaxToolRounds:         5,
			MaxHistory:            20,
			SessionTimeoutSeconds: 3600,
			LLMTimeoutSeconds:     120,
		},
	}
}

func GenerateSystemConfigTemplate() string {
	return `# Support Agent System Configuration
# Location: ~/.config/supportagent/settings.toml
# This file uses TOML format: https://toml.io

# Directory where conversation transcripts and user config are stored
data_directory = "~/.local/share/supportagent"
`
}

func GenerateUserConfigTemplate() string {
	return `# Support Agent User Configuration
# Location: <data_directory>/config.toml
# This file uses TOML format: https://toml.io

[llm]
# Provider: "ollama", "openai" or "anthropic"
provider = "ollama"
model = "llama3.1:latest"
base_url = "http://localhost:11434"
# api_key = ""

[jump_host]
# All named-server commands are routed through this host
host = ""
port = 22
username = "admin"
key_file = "~/.ssh/id_ed25519"
# Required when key_file is passphrase-protected
# key_passphrase = ""
# Server directory file on the jump host (read fresh on every lookup)
directory_path = "~/servers.json"
timeout_seconds = 30

[database]
enabled = false
host = "localhost"
port = 3306
username = "root"
# password = ""
max_rows = 100
timeout_seconds = 30

[whatsapp]
enabled = false
# Baileys bridge server
bridge_url = "http://localhost:3000"

[web]
enabled = true
listen_addr = ":8080"

[voice]
enabled = false
# OpenAI-compatible Whisper endpoint for voice transcription
base_url = ""
# api_key = ""
model = "whisper-1"

[agent]
# Knowledge base file (relative paths resolve against the data directory)
knowledge_file = "knowledge.md"
max_tool_rounds = 5
max_history = 20
session_timeout_seconds = 3600
# Upper bound on a single model call
llm_timeout_seconds = 120
`
}
