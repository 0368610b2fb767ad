package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mentorcrm/chat/internal/config"
	"github.com/mentorcrm/chat/internal/model/chat"
)

func clearClientEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"CHAT_API_ORIGIN", "CHAT_MODE", "CHAT_TOKEN", "CHAT_TOKEN_FILE", "CHAT_CACHE_DIR", "CHAT_CACHE_TTL", "CHAT_METRICS_ADDR"} {
		t.Setenv(key, "")
	}
}

func resetFlags(t *testing.T) {
	t.Helper()
	origin, mode, token, tokenFile, cacheDir, metricsAddr = "", "", "", "", "", ""
	t.Cleanup(func() {
		origin, mode, token, tokenFile, cacheDir, metricsAddr = "", "", "", "", "", ""
	})
}

func TestResolveConfigFlagsOverrideEnv(t *testing.T) {
	clearClientEnv(t)
	resetFlags(t)
	t.Setenv("CHAT_API_ORIGIN", "https://crm.example.com")
	t.Setenv("CHAT_MODE", "chat")
	t.Setenv("CHAT_TOKEN", "env-token")

	origin = "http://localhost:9090"
	mode = "diagnostico"
	token = "flag-token"

	cfg, err := resolveConfig()
	if err != nil {
		t.Fatalf("resolveConfig err: %v", err)
	}
	if cfg.Origin != "http://localhost:9090" {
		t.Fatalf("origin = %q", cfg.Origin)
	}
	if cfg.Mode != chat.ModeDiagnostico {
		t.Fatalf("mode = %q", cfg.Mode)
	}
	if cfg.Token != "flag-token" {
		t.Fatalf("token = %q", cfg.Token)
	}
}

func TestResolveConfigRejectsUnknownMode(t *testing.T) {
	clearClientEnv(t)
	resetFlags(t)
	mode = "vendas"

	if _, err := resolveConfig(); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestTokenSourceOrder(t *testing.T) {
	clearClientEnv(t)
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("file-token\n"), 0o600); err != nil {
		t.Fatalf("write token file: %v", err)
	}
	t.Setenv("CHAT_TOKEN", "env-token")

	cases := []struct {
		name      string
		token     string
		tokenFile string
		want      string
	}{
		{name: "explicit", token: "flag-token", tokenFile: path, want: "flag-token"},
		{name: "file", tokenFile: path, want: "file-token"},
		{name: "env", want: "env-token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := tokenSource(config.ClientConfig{Token: tc.token, TokenFile: tc.tokenFile})
			got, err := src.Token()
			if err != nil {
				t.Fatalf("Token err: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Token = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTokenSourceEmpty(t *testing.T) {
	clearClientEnv(t)
	if _, err := tokenSource(config.ClientConfig{}).Token(); err == nil {
		t.Fatalf("expected error without any token")
	}
}
