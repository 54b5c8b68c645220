package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

const (
	DefaultConfigPath   = "config.toml"
	DefaultHTTPAddr     = ":8080"
	DefaultJWTExpiresIn = "24h"
	DefaultPGHost       = "127.0.0.1"
	DefaultPGPort       = 5432
	DefaultPGUser       = "postgres"
	DefaultPGDatabase   = "associa"
	DefaultPGSSLMode    = "disable"
	DefaultAssistantURL = "https://api.openai.com/v1"
	DefaultResetCommand = "reiniciar"
)

type Config struct {
	Log       LogConfig       `toml:"log"`
	Server    ServerConfig    `toml:"server"`
	Auth      AuthConfig      `toml:"auth"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Assistant AssistantConfig `toml:"assistant"`
	WhatsApp  WhatsAppConfig  `toml:"whatsapp"`
	Messaging MessagingConfig `toml:"messaging"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type AuthConfig struct {
	JWTSecret    string `toml:"jwt_secret"`
	JWTExpiresIn string `toml:"jwt_expires_in"`
	// APIKey is the shared secret for the server-to-server messaging paths.
	// When empty the static-key gate denies every request.
	APIKey string `toml:"api_key"`
}

type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

type AssistantConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	AssistantID    string `toml:"assistant_id"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type WhatsAppConfig struct {
	BaseURL        string `toml:"base_url"`
	AccountSID     string `toml:"account_sid"`
	AuthToken      string `toml:"auth_token"`
	FromNumber     string `toml:"from_number"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type MessagingConfig struct {
	ResetCommand      string `toml:"reset_command"`
	ResetConfirmation string `toml:"reset_confirmation"`
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Auth: AuthConfig{
			JWTExpiresIn: DefaultJWTExpiresIn,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Assistant: AssistantConfig{
			BaseURL:        DefaultAssistantURL,
			TimeoutSeconds: 30,
		},
		WhatsApp: WhatsAppConfig{
			TimeoutSeconds: 15,
		},
		Messaging: MessagingConfig{
			ResetCommand:      DefaultResetCommand,
			ResetConfirmation: "Conversa reiniciada. Pode mandar sua mensagem.",
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
