package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Tradelog Configuration

[server]
# Backend API port (env override: PORT)
port = 5000
# Allowed CORS origin for the web client (env override: FRONTEND_URL)
frontend_url = "http://localhost:3000"
# SQLite database path (defaults next to this file)
db_path = ""

[client]
# Backend base URL used by the CLI (env override: TRADELOG_API_URL)
api_base_url = "http://localhost:5000"
# HTTP client timeout in seconds
timeout_seconds = 30

[store]
# Local journal store path (defaults next to this file)
path = ""

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "02-Jan-2006"
# Time format
time_format = "15:04:05"
`

const credentialsTemplate = `# Tradelog AI Provider Credentials
# SECURITY: Keep this file secure (chmod 600)
# Env overrides: GOOGLE_AI_KEY, KIMI_API_KEY, OPENROUTER_API_KEY

google_ai_key = ""
kimi_api_key = ""
openrouter_api_key = ""
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}

	return nil
}
