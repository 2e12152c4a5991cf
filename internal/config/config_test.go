package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearKeyEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TERM_CHAT_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("TERM_CHAT_MODEL", "")
}

func TestLoadFileDefaults(t *testing.T) {
	clearKeyEnv(t)
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Model != DefaultModel {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.Temperature != 0.7 {
		t.Errorf("Temperature = %v", cfg.Temperature)
	}
	if cfg.RequestTimeout != 60*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.MaxTokens != 0 {
		t.Errorf("MaxTokens = %d", cfg.MaxTokens)
	}
}

func TestLoadFileValues(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("MY_CHAT_KEY", "sk-from-env")
	path := writeConfig(t, `base_url: http://localhost:8080/v1
api_key: ${MY_CHAT_KEY}
model: Provider-1/claude-3-haiku
temperature: 0.2
max_tokens: 512
request_timeout: 5s
log:
  level: debug
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.BaseURL != "http://localhost:8080/v1" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.APIKey != "sk-from-env" {
		t.Errorf("APIKey = %q", cfg.APIKey)
	}
	if cfg.Model != "Provider-1/claude-3-haiku" || cfg.Temperature != 0.2 || cfg.MaxTokens != 512 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestLoadFileEnvOverrides(t *testing.T) {
	clearKeyEnv(t)
	path := writeConfig(t, "model: from-file\n")

	t.Setenv("TERM_CHAT_MODEL", "from-env")
	t.Setenv("TERM_CHAT_LOG_LEVEL", "warn")
	t.Setenv("TERM_CHAT_API_KEY", "sk-prefixed")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Model != "from-env" {
		t.Errorf("Model = %q, want from-env", cfg.Model)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
	if cfg.APIKey != "sk-prefixed" {
		t.Errorf("APIKey = %q", cfg.APIKey)
	}
}

func TestLoadFileOpenAIKeyFallback(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-openai")

	cfg, err := LoadFile(writeConfig(t, "model: m\n"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.APIKey != "sk-openai" {
		t.Errorf("APIKey = %q, want sk-openai", cfg.APIKey)
	}
}

func TestLoadFileInvalidYAML(t *testing.T) {
	clearKeyEnv(t)
	if _, err := LoadFile(writeConfig(t, "model: [unterminated\n")); err == nil {
		t.Fatal("expected error for invalid yaml")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"ok", Config{BaseURL: "u", APIKey: "k", Temperature: 0.7}, ""},
		{"missing key", Config{BaseURL: "u", Temperature: 0.7}, "no API key"},
		{"missing url", Config{APIKey: "k"}, "base_url"},
		{"temperature", Config{BaseURL: "u", APIKey: "k", Temperature: 3}, "temperature"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestSaveFileThenLoad(t *testing.T) {
	clearKeyEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	in := &Config{
		BaseURL:        "http://example.test/v1",
		APIKey:         "$SOME_KEY",
		Model:          "p/m",
		Temperature:    0.4,
		ModelsFile:     "/tmp/models.json",
		RequestTimeout: 90 * time.Second,
		Log:            LogConfig{Level: "debug"},
	}
	if err := SaveFile(in, path); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	raw, _ := os.ReadFile(path)
	if !strings.Contains(string(raw), "api_key: $SOME_KEY") {
		t.Errorf("api_key reference not preserved:\n%s", raw)
	}

	t.Setenv("SOME_KEY", "resolved")
	out, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if out.APIKey != "resolved" || out.RequestTimeout != 90*time.Second || out.ModelsFile != "/tmp/models.json" {
		t.Errorf("loaded = %+v", out)
	}
}

func TestResolveValue(t *testing.T) {
	t.Setenv("RESOLVE_TEST", "from-env")
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"literal", "literal"},
		{"$RESOLVE_TEST", "from-env"},
		{"${RESOLVE_TEST}", "from-env"},
		{"  $(echo from-command)  ", "from-command"},
	}
	for _, tt := range tests {
		got, err := ResolveValue(tt.in)
		if err != nil {
			t.Fatalf("ResolveValue(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ResolveValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveValueErrors(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		emptyPATH bool
		wantErr   string
	}{
		{name: "command stderr", in: "$(echo denied >&2; exit 1)", wantErr: "command failed: denied"},
		{name: "command exit", in: "$(exit 3)", wantErr: "command failed"},
		{name: "op missing", in: "op://vault/item/key?account=me.1password.com", emptyPATH: true, wantErr: "1password: read op://vault/item/key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.emptyPATH {
				t.Setenv("PATH", t.TempDir())
			}
			got, err := ResolveValue(tt.in)
			if err == nil {
				t.Fatalf("ResolveValue(%q) = %q, want error", tt.in, got)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadRawKeepsReferences(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("CHAT_SECRET", "sk-live-plaintext")
	t.Setenv("TERM_CHAT_MODEL", "env/override")
	t.Setenv("OPENAI_API_KEY", "sk-fallback")
	path := writeConfig(t, `base_url: $(echo http://localhost:9000/v1)
api_key: ${CHAT_SECRET}
model: Provider-1/gpt-4.1-mini
`)

	raw, err := LoadRaw(path)
	if err != nil {
		t.Fatalf("LoadRaw: %v", err)
	}
	if raw.APIKey != "${CHAT_SECRET}" || raw.BaseURL != "$(echo http://localhost:9000/v1)" {
		t.Errorf("raw = %+v, want unresolved references", raw)
	}
	if raw.Model != "Provider-1/gpt-4.1-mini" {
		t.Errorf("raw.Model = %q, environment override leaked in", raw.Model)
	}
	if raw.Temperature != DefaultTemperature {
		t.Errorf("raw.Temperature = %v, want default", raw.Temperature)
	}

	if err := SaveFile(raw, path); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, secret := range []string{"sk-live-plaintext", "sk-fallback", "env/override"} {
		if strings.Contains(string(data), secret) {
			t.Errorf("saved file contains %q:\n%s", secret, data)
		}
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.APIKey != "sk-live-plaintext" || cfg.BaseURL != "http://localhost:9000/v1" {
		t.Errorf("reloaded = %+v, want resolved values", cfg)
	}
}
