package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mentorcrm/chat/internal/model/chat"
)

func TestLoadServerDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("AGENTD_TOKENS", " a, ,b ")
	t.Setenv("AGENTD_HISTORY_LIMIT", "0")
	t.Setenv("ARK_TEMPERATURE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	if len(cfg.Server.Tokens) != 2 || cfg.Server.Tokens[0] != "a" || cfg.Server.Tokens[1] != "b" {
		t.Fatalf("unexpected tokens %v", cfg.Server.Tokens)
	}
	if cfg.AI.HistoryLimit != 1 {
		t.Fatalf("history limit should clamp to 1, got %d", cfg.AI.HistoryLimit)
	}
	if cfg.AI.Temperature != nil {
		t.Fatalf("blank temperature should be nil")
	}
}

func TestLoadServerAddr(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}

	t.Setenv("PORT", "80 80")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid PORT")
	}
}

func TestLoadInvalidNumbers(t *testing.T) {
	t.Setenv("ARK_MAX_TOKENS", "lots")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for ARK_MAX_TOKENS")
	}
}

func TestAIEnabled(t *testing.T) {
	if (AIConfig{Model: "m"}).Enabled() {
		t.Fatalf("model without credentials should be disabled")
	}
	if !(AIConfig{Model: "m", APIKey: "k"}).Enabled() {
		t.Fatalf("api key + model should be enabled")
	}
	if !(AIConfig{Model: "m", AccessKey: "a", SecretKey: "s"}).Enabled() {
		t.Fatalf("ak/sk + model should be enabled")
	}
}

func TestLoadClient(t *testing.T) {
	t.Setenv("CHAT_MODE", "diagnostico")
	t.Setenv("CHAT_API_ORIGIN", "https://crm.example.com")
	t.Setenv("CHAT_CACHE_TTL", "90s")
	t.Setenv("CHAT_TOKEN", " tok ")

	cfg, err := LoadClient()
	if err != nil {
		t.Fatalf("LoadClient err: %v", err)
	}
	if cfg.Mode != chat.ModeDiagnostico || cfg.Origin != "https://crm.example.com" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.CacheTTL != 90*time.Second || cfg.Token != "tok" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadClientRejectsBadValues(t *testing.T) {
	t.Setenv("CHAT_MODE", "admin")
	if _, err := LoadClient(); err == nil {
		t.Fatalf("expected error for unknown mode")
	}

	t.Setenv("CHAT_MODE", "")
	t.Setenv("CHAT_CACHE_TTL", "-1m")
	if _, err := LoadClient(); err == nil {
		t.Fatalf("expected error for negative ttl")
	}
}

func TestNewChatModelRequiresCredentials(t *testing.T) {
	_, err := AIConfig{Model: "doubao"}.NewChatModel(context.Background())
	if err == nil {
		t.Fatalf("expected error without credentials")
	}
	if !strings.Contains(err.Error(), "ARK_API_KEY") {
		t.Fatalf("error should name the missing variable, got %q", err)
	}
}
