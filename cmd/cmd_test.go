package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/samsaffron/term-chat/internal/catalog"
	"github.com/samsaffron/term-chat/internal/config"
	"github.com/samsaffron/term-chat/internal/exitcode"
	"github.com/samsaffron/term-chat/internal/llm"
	"github.com/samsaffron/term-chat/internal/testutil"
	"github.com/samsaffron/term-chat/internal/ui"
)

const testCatalog = `{"data":[
  {"id":"Provider-3/gpt-4.1-mini","owner_cost_per_million_tokens":null},
  {"id":"Provider-2/claude-sonnet","owner_cost_per_million_tokens":3},
  {"id":"Provider-3/gpt-4o","owner_cost_per_million_tokens":2.5}
]}`

// writeTestConfig writes a config file pointing at baseURL and a catalog.
func writeTestConfig(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	modelsPath := filepath.Join(dir, "models.json")
	if err := os.WriteFile(modelsPath, []byte(testCatalog), 0o644); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "config.yaml")
	content := "base_url: " + baseURL + "\napi_key: test-key\nmodel: Provider-3/gpt-4.1-mini\nmodels_file: " + modelsPath + "\nlog:\n  level: error\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

// runRoot executes the root command with args and resets flag state after.
func runRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		configFile, modelFlag, logLevel = "", "", ""
		askText, askCode, askFiles, askSystem = false, false, nil, ""
		modelsJSON, modelsFilter = false, ""
	})
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestAskCommandStreamsPlainText(t *testing.T) {
	mock := testutil.NewMockCompletions(testutil.StreamBody("Hi", " there"))
	defer mock.Close()
	cfgPath := writeTestConfig(t, mock.URL())

	stdout, _, err := runRoot(t, "--config", cfgPath, "ask", "--text", "say", "hi")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if stdout != "Hi there\n" {
		t.Errorf("stdout = %q, want %q", stdout, "Hi there\n")
	}

	req := mock.LastRequest()
	if req["model"] != "Provider-3/gpt-4.1-mini" {
		t.Errorf("model = %v", req["model"])
	}
	msgs, _ := req["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("messages = %v", req["messages"])
	}
	if content := msgs[0].(map[string]any)["content"]; content != "say hi" {
		t.Errorf("content = %v", content)
	}
	if got := mock.LastHeader().Get("Authorization"); got != "Bearer test-key" {
		t.Errorf("Authorization = %q", got)
	}
}

func TestAskCommandAPIErrorExitCode(t *testing.T) {
	mock := testutil.NewMockCompletions()
	mock.Status = 401
	mock.ErrorBody = `{"error":{"message":"invalid key"}}`
	defer mock.Close()
	cfgPath := writeTestConfig(t, mock.URL())

	_, _, err := runRoot(t, "--config", cfgPath, "ask", "--text", "hi")
	if err == nil {
		t.Fatal("expected error")
	}
	if code := exitcode.CodeOf(err); code != exitcode.API {
		t.Errorf("exit code = %d, want %d", code, exitcode.API)
	}
	if !strings.Contains(err.Error(), "invalid key") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestAskCommandModelOverride(t *testing.T) {
	mock := testutil.NewMockCompletions(testutil.StreamBody("ok"))
	defer mock.Close()
	cfgPath := writeTestConfig(t, mock.URL())

	if _, _, err := runRoot(t, "--config", cfgPath, "-m", "Provider-2/claude-sonnet", "ask", "-t", "-s", "be brief", "hi"); err != nil {
		t.Fatalf("ask: %v", err)
	}
	req := mock.LastRequest()
	if req["model"] != "Provider-2/claude-sonnet" {
		t.Errorf("model = %v", req["model"])
	}
	msgs, _ := req["messages"].([]any)
	if len(msgs) != 2 || msgs[0].(map[string]any)["role"] != "system" {
		t.Errorf("messages = %v, want system then user", msgs)
	}
}

func TestMissingAPIKeyIsConfigError(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("TERM_CHAT_API_KEY", "")
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("model: x/y\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, _, err := runRoot(t, "--config", cfgPath, "ask", "hi")
	if code := exitcode.CodeOf(err); code != exitcode.Config {
		t.Errorf("exit code = %d (err %v), want %d", code, err, exitcode.Config)
	}
}

func TestModelsCommand(t *testing.T) {
	cfgPath := writeTestConfig(t, "http://127.0.0.1:1/v1")

	stdout, _, err := runRoot(t, "--config", cfgPath, "models")
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	plain := testutil.StripANSI(stdout)
	if strings.Index(plain, "Provider-3") > strings.Index(plain, "Provider-2") {
		t.Errorf("providers not in first-seen order:\n%s", plain)
	}
	for _, want := range []string{"gpt-4.1-mini", "Free", "claude-sonnet", "$3/M tokens", "$2.5/M tokens"} {
		testutil.AssertContainsPlain(t, stdout, want)
	}
}

func TestModelsCommandJSONFilter(t *testing.T) {
	cfgPath := writeTestConfig(t, "http://127.0.0.1:1/v1")

	stdout, _, err := runRoot(t, "--config", cfgPath, "models", "--json", "--filter", "sonnet")
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	var models []catalog.ModelInfo
	if err := json.Unmarshal([]byte(stdout), &models); err != nil {
		t.Fatalf("invalid json %q: %v", stdout, err)
	}
	if len(models) != 1 || models[0].ID != "Provider-2/claude-sonnet" {
		t.Errorf("models = %+v", models)
	}
}

func TestConfigShowMasksKey(t *testing.T) {
	cfgPath := writeTestConfig(t, "http://example.test/v1")
	t.Setenv("TERM_CHAT_API_KEY", "sk-secret-value-1234")

	stdout, _, err := runRoot(t, "--config", cfgPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(stdout, "sk-secret") {
		t.Errorf("key leaked:\n%s", stdout)
	}
	for _, want := range []string{"****1234", "base_url: http://example.test/v1", "model: Provider-3/gpt-4.1-mini"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("config show missing %q:\n%s", want, stdout)
		}
	}
}

func TestMaskKey(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"short", "****"},
		{"sk-abcdefgh1234", "****1234"},
	}
	for _, tt := range tests {
		if got := maskKey(tt.in); got != tt.want {
			t.Errorf("maskKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := runRoot(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stdout, "term-chat version dev") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestStreamPlain(t *testing.T) {
	mock := llm.NewMockProvider("mock").AddTextResponse("Hello world, this is streaming")
	var out bytes.Buffer

	reply, err := streamPlain(context.Background(), mock, llm.CompletionRequest{Messages: []llm.Message{llm.UserText("hi")}}, &out)
	if err != nil {
		t.Fatalf("streamPlain: %v", err)
	}
	if reply != "Hello world, this is streaming" {
		t.Errorf("reply = %q", reply)
	}
	if out.String() != reply+"\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestStreamPlainError(t *testing.T) {
	mock := llm.NewMockProvider("mock").AddTurn(llm.MockTurn{Text: "partial", Error: errors.New("connection reset")})
	var out bytes.Buffer

	reply, err := streamPlain(context.Background(), mock, llm.CompletionRequest{Messages: []llm.Message{llm.UserText("hi")}}, &out)
	if err == nil || err.Error() != "connection reset" {
		t.Fatalf("err = %v", err)
	}
	if reply != "partial" {
		t.Errorf("reply = %q", reply)
	}
}

func TestBuildAskRequest(t *testing.T) {
	cfg := &config.Config{Model: "a/b", Temperature: 0.2, MaxTokens: 100}

	req := buildAskRequest(cfg, "question", "")
	if len(req.Messages) != 1 || req.Messages[0] != llm.UserText("question") {
		t.Errorf("messages = %+v", req.Messages)
	}
	if *req.Temperature != 0.2 || *req.MaxTokens != 100 || req.Model != "a/b" {
		t.Errorf("request = %+v", req)
	}

	cfg.MaxTokens = 0
	req = buildAskRequest(cfg, "question", "system prompt")
	if len(req.Messages) != 2 || req.Messages[0].Role != llm.RoleSystem {
		t.Errorf("messages = %+v", req.Messages)
	}
	if req.MaxTokens != nil {
		t.Errorf("max tokens = %v, want unset", *req.MaxTokens)
	}
}

func TestRenderMarkdown(t *testing.T) {
	tests := []struct {
		name string
		tty  bool
		text bool
		env  string
		want bool
	}{
		{name: "terminal", tty: true, want: true},
		{name: "pipe", tty: false, want: false},
		{name: "text flag", tty: true, text: true, want: false},
		{name: "env 1", tty: true, env: "1", want: false},
		{name: "env yes", tty: true, env: "yes", want: false},
		{name: "env trimmed case", tty: true, env: "  TrUe ", want: false},
		{name: "env off", tty: true, env: "off", want: true},
		{name: "env 0", tty: true, env: "0", want: true},
		{name: "env unknown", tty: true, env: "maybe", want: true},
		{name: "env on but piped", tty: false, env: "on", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(noMarkdownEnv, tt.env)
			askText = tt.text
			t.Cleanup(func() { askText = false })

			if got := renderMarkdown(tt.tty); got != tt.want {
				t.Errorf("renderMarkdown(%t) with text=%t %s=%q = %t, want %t", tt.tty, tt.text, noMarkdownEnv, tt.env, got, tt.want)
			}
		})
	}
}

func TestAskModelUpdate(t *testing.T) {
	output := make(chan string)
	m := newAskModel(output, 80, nil)

	if !strings.Contains(m.View(), "Thinking") {
		t.Errorf("initial view = %q", m.View())
	}

	next, _ := m.Update(chunkMsg("# Title\n\nsome **bold** text"))
	m = next.(askModel)
	testutil.AssertContainsPlain(t, m.View(), "Title")

	next, cmd := m.Update(doneMsg{})
	m = next.(askModel)
	if !m.done {
		t.Fatal("expected done")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected quit after done")
	}
	testutil.AssertContainsPlain(t, m.View(), "bold")
	testutil.AssertNotContainsPlain(t, m.View(), "**")
}

func TestAskModelCancel(t *testing.T) {
	canceled := false
	m := newAskModel(make(chan string), 80, func() { canceled = true })

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !canceled {
		t.Error("ctrl+c did not cancel the stream")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected quit")
	}
}

func TestPrintCodeBlocks(t *testing.T) {
	var out bytes.Buffer
	printCodeBlocks(&out, ui.NewStyles(&out), "intro\n\n```go\nfunc main() {}\n```\n\n```\nplain\n```\n")

	plain := testutil.StripANSI(out.String())
	for _, want := range []string{"go", "func main() {}", "text", "plain"} {
		if !strings.Contains(plain, want) {
			t.Errorf("output missing %q:\n%s", want, plain)
		}
	}

	out.Reset()
	printCodeBlocks(&out, ui.NewStyles(&out), "no code here")
	if out.Len() != 0 {
		t.Errorf("expected no output, got %q", out.String())
	}
}

func TestCompleteModels(t *testing.T) {
	models := []catalog.ModelInfo{
		{ID: "Provider-3/gpt-4.1-mini"},
		{ID: "Provider-3/gpt-4o"},
		{ID: "Provider-2/claude-sonnet"},
	}
	tests := []struct {
		prefix string
		want   []string
	}{
		{"Provider-3/", []string{"Provider-3/gpt-4.1-mini", "Provider-3/gpt-4o"}},
		{"", []string{"Provider-3/gpt-4.1-mini", "Provider-3/gpt-4o", "Provider-2/claude-sonnet"}},
		{"sonnet", []string{"Provider-2/claude-sonnet"}},
	}
	for _, tt := range tests {
		got := completeModels(models, tt.prefix)
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("completeModels(%q) = %v, want %v", tt.prefix, got, tt.want)
		}
	}
}

func TestExitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitcode.Success},
		{"canceled", &llm.TransportError{Op: "stream aborted", Err: context.Canceled}, exitcode.Cancelled},
		{"api", &llm.APIError{StatusCode: 500, Message: "boom"}, exitcode.API},
		{"transport", &llm.TransportError{Op: "request failed", Err: errors.New("refused")}, exitcode.Error},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitcode.CodeOf(exitError(tt.err)); got != tt.want {
				t.Errorf("code = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOpenLoggerToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "chat.log")
	cfg := &config.Config{Log: config.LogConfig{Level: "info", File: path}}

	log, closeLog, err := openLogger(cfg, os.Stderr, true)
	if err != nil {
		t.Fatalf("openLogger: %v", err)
	}
	log.Info("chat started", "model", "a/b")
	closeLog()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"message":"chat started"`) {
		t.Errorf("log file = %q", data)
	}
}
