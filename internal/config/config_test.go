// Package config 提供配置加载单元测试
package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRequiresAPIKey(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Error("Expected validation error without api key, got nil")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
openai:
  apiKey: sk-test
assistant:
  instructionPath: ./instructions.txt
  runTimeout: 100
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-test" {
		t.Errorf("Unexpected api key: %s", cfg.OpenAI.APIKey)
	}
	if cfg.Assistant.RunTimeout != 100 {
		t.Errorf("Expected runTimeout 100, got %d", cfg.Assistant.RunTimeout)
	}
	// 文件未覆盖的键仍取默认值
	if cfg.Assistant.PollInterval != 1000 {
		t.Errorf("Expected default pollInterval 1000, got %d", cfg.Assistant.PollInterval)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("VELOBOT_OPENAI_APIKEY", "sk-env")
	t.Setenv("VELOBOT_ASSISTANT_INSTRUCTIONPATH", "./instructions.txt")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-env" {
		t.Errorf("Unexpected api key: %s", cfg.OpenAI.APIKey)
	}
}

func TestMarketDSN(t *testing.T) {
	cfg := MarketConfig{Host: "db", Port: 3306, User: "reader", Password: "pw", DBName: "marketplace"}
	want := "reader:pw@tcp(db:3306)/marketplace?charset=utf8mb4&parseTime=True&loc=Local"
	if got := cfg.GetDSN(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}
