package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"BOT_TOKEN", "BOT_TRANSPORT", "DATA_DIR", "HEALTH_PORT", "OPENCLAW_TODO_URL", "PLUGIN_CONFIG", "LOG_LEVEL", "BOT_POLLING_INTERVAL_SECONDS"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BotTransport != TransportPolling {
		t.Fatalf("expected polling transport, got %q", cfg.BotTransport)
	}
	if cfg.HealthPort != 4098 {
		t.Fatalf("expected health port 4098, got %d", cfg.HealthPort)
	}
	if cfg.TodoServerURLEnv != "" {
		t.Fatalf("expected empty todo url env, got %q", cfg.TodoServerURLEnv)
	}
	if cfg.LogFilePath != filepath.Join("./data", "logs", "bridge.log") {
		t.Fatalf("unexpected log path %q", cfg.LogFilePath)
	}
}

func TestLoadFromEnvReadsTodoURL(t *testing.T) {
	t.Setenv("OPENCLAW_TODO_URL", "  http://todo.internal:9000  ")
	t.Setenv("BOT_TRANSPORT", "none")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TodoServerURLEnv != "http://todo.internal:9000" {
		t.Fatalf("unexpected todo url %q", cfg.TodoServerURLEnv)
	}
}

func TestLoadFromEnvRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "transport", key: "BOT_TRANSPORT", value: "carrier-pigeon"},
		{name: "health port", key: "HEALTH_PORT", value: "abc"},
		{name: "negative port", key: "HEALTH_PORT", value: "-1"},
		{name: "polling interval", key: "BOT_POLLING_INTERVAL_SECONDS", value: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := LoadFromEnv(); err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestValidateServe(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "none transport needs nothing", cfg: Config{BotTransport: TransportNone}},
		{name: "polling without token", cfg: Config{BotTransport: TransportPolling}, wantErr: true},
		{name: "polling with token", cfg: Config{BotTransport: TransportPolling, BotToken: "t"}},
		{name: "webhook without url", cfg: Config{BotTransport: TransportWebhook, BotToken: "t", WebhookListenAddr: ":8090"}, wantErr: true},
		{name: "webhook complete", cfg: Config{BotTransport: TransportWebhook, BotToken: "t", WebhookURL: "https://x/hook", WebhookListenAddr: ":8090"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateServe(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateServe error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadPluginConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plugins.yaml")
	content := "plugins:\n  openclaw-todo:\n    serverUrl: http://10.0.0.5:8200\n  other:\n    key: value\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	settings, err := LoadPluginConfig(path, "openclaw-todo")
	if err != nil {
		t.Fatalf("load plugin config: %v", err)
	}
	if settings["serverUrl"] != "http://10.0.0.5:8200" {
		t.Fatalf("unexpected serverUrl %q", settings["serverUrl"])
	}

	missing, err := LoadPluginConfig(path, "absent")
	if err != nil || missing != nil {
		t.Fatalf("expected nil settings for unknown plugin: settings=%v err=%v", missing, err)
	}
}

func TestLoadPluginConfigMissingFile(t *testing.T) {
	settings, err := LoadPluginConfig(filepath.Join(t.TempDir(), "nope.yaml"), "openclaw-todo")
	if err != nil {
		t.Fatalf("expected missing file to be ignored, got %v", err)
	}
	if settings != nil {
		t.Fatalf("expected nil settings, got %v", settings)
	}

	settings, err = LoadPluginConfig("", "openclaw-todo")
	if err != nil || settings != nil {
		t.Fatalf("expected empty path to be ignored: settings=%v err=%v", settings, err)
	}
}

func TestLoadPluginConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plugins.yaml")
	if err := os.WriteFile(path, []byte("plugins: [unclosed"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadPluginConfig(path, "openclaw-todo"); err == nil {
		t.Fatal("expected parse error")
	}
}
