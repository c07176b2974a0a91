// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the full application configuration.
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Monitor  MonitorConfig   `yaml:"monitor"`
	Storage  StorageConfig   `yaml:"storage"`
	Logging  LoggingConfig   `yaml:"logging"`
	Notify   NotifyConfig    `yaml:"notify"`
	Accounts []AccountConfig `yaml:"accounts"`
}

// ServerConfig holds webhook server settings.
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	IPWhiteList []string `yaml:"ip_white_list"`
}

// MonitorConfig holds trailing monitor settings.
type MonitorConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}

// StorageConfig holds record store settings.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// NotifyConfig holds notification channel settings. Empty tokens
// disable the corresponding channel.
type NotifyConfig struct {
	ServerChanToken  string `yaml:"serverchan_token"`
	TelegramBotToken string `yaml:"telegram_bot_token"`
	TelegramChatID   string `yaml:"telegram_chat_id"`
}

// AccountConfig holds one venue account. Simulated routes the account
// to the venue's demo-trading environment.
type AccountConfig struct {
	Name         string `yaml:"name"`
	APIKey       string `yaml:"api_key"`
	APISecret    string `yaml:"api_secret"`
	Passphrase   string `yaml:"passphrase"`
	RESTEndpoint string `yaml:"rest_endpoint"`
	Simulated    bool   `yaml:"simulated"`
}

// Load loads configuration from a YAML file. A .env file alongside the
// process, if present, is loaded first so ${VAR} references in the YAML
// can be kept out of version control.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// Validate checks required fields and applies defaults.
func (c *Config) Validate() error {
	if len(c.Accounts) == 0 {
		return fmt.Errorf("at least one account is required")
	}
	seen := map[string]bool{}
	for i, a := range c.Accounts {
		if a.APIKey == "" {
			return fmt.Errorf("account %d: api_key is required", i)
		}
		if seen[a.APIKey] {
			return fmt.Errorf("account %d: duplicate api_key", i)
		}
		seen[a.APIKey] = true
	}

	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Monitor.IntervalMs == 0 {
		c.Monitor.IntervalMs = 1000
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "symbol_info.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	return nil
}
