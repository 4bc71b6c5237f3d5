package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	TransportPolling = "polling"
	TransportWebhook = "webhook"
	TransportNone    = "none"
)

type Config struct {
	BotToken            string
	BotTransport        string
	WebhookURL          string
	WebhookListenAddr   string
	BotPollingIntervalS int
	DataDir             string
	PluginConfigPath    string
	TodoServerURLEnv    string
	HealthPort          int
	LogLevel            string
	LogFilePath         string
	LogMaxSizeMB        int
	LogMaxBackups       int
	LogMaxAgeDays       int
}

// PluginFile is the on-disk layout of PLUGIN_CONFIG.
type PluginFile struct {
	Plugins map[string]map[string]string `yaml:"plugins"`
}

func LoadFromEnv() (Config, error) {
	dataDir := defaultString(os.Getenv("DATA_DIR"), "./data")

	healthPort, err := parseIntWithDefault("HEALTH_PORT", 4098)
	if err != nil {
		return Config{}, err
	}
	pollingInterval, err := parseIntWithDefault("BOT_POLLING_INTERVAL_SECONDS", 2)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		BotToken:            strings.TrimSpace(os.Getenv("BOT_TOKEN")),
		BotTransport:        defaultString(os.Getenv("BOT_TRANSPORT"), TransportPolling),
		WebhookURL:          strings.TrimSpace(os.Getenv("WEBHOOK_URL")),
		WebhookListenAddr:   defaultString(os.Getenv("WEBHOOK_LISTEN_ADDR"), ":8090"),
		BotPollingIntervalS: pollingInterval,
		DataDir:             dataDir,
		PluginConfigPath:    strings.TrimSpace(os.Getenv("PLUGIN_CONFIG")),
		TodoServerURLEnv:    strings.TrimSpace(os.Getenv("OPENCLAW_TODO_URL")),
		HealthPort:          healthPort,
		LogLevel:            defaultString(os.Getenv("LOG_LEVEL"), "info"),
		LogFilePath:         filepath.Join(dataDir, "logs", "bridge.log"),
		LogMaxSizeMB:        10,
		LogMaxBackups:       5,
		LogMaxAgeDays:       14,
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validate(cfg Config) error {
	switch cfg.BotTransport {
	case TransportPolling, TransportWebhook, TransportNone:
	default:
		return fmt.Errorf("BOT_TRANSPORT must be polling, webhook or none: got %q", cfg.BotTransport)
	}
	if cfg.HealthPort <= 0 {
		return fmt.Errorf("HEALTH_PORT must be > 0: got %d", cfg.HealthPort)
	}
	if cfg.BotPollingIntervalS <= 0 {
		return fmt.Errorf("BOT_POLLING_INTERVAL_SECONDS must be > 0: got %d", cfg.BotPollingIntervalS)
	}
	return nil
}

// ValidateServe checks the settings only the long-running gateway needs.
func ValidateServe(cfg Config) error {
	if cfg.BotTransport == TransportNone {
		return nil
	}
	if cfg.BotToken == "" {
		return errors.New("BOT_TOKEN is required unless BOT_TRANSPORT=none")
	}
	if cfg.BotTransport == TransportWebhook && cfg.WebhookURL == "" {
		return errors.New("WEBHOOK_URL is required when BOT_TRANSPORT=webhook")
	}
	if cfg.BotTransport == TransportWebhook && strings.TrimSpace(cfg.WebhookListenAddr) == "" {
		return errors.New("WEBHOOK_LISTEN_ADDR is required when BOT_TRANSPORT=webhook")
	}
	return nil
}

// LoadPluginConfig returns the settings block for pluginID. A missing path
// or file yields nil without error.
func LoadPluginConfig(path string, pluginID string) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read plugin config: %w", err)
	}

	var file PluginFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse plugin config %s: %w", path, err)
	}
	return file.Plugins[pluginID], nil
}

func parseIntWithDefault(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be integer: %w", key, err)
	}
	return v, nil
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
