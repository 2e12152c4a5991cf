package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// MockCompletions is an httptest.Server that simulates an OpenAI-compatible
// /chat/completions endpoint. Streaming responses replay Frames verbatim,
// flushing after each one, so tests control exactly how bytes are split.
type MockCompletions struct {
	Server *httptest.Server

	// Frames are raw body writes for a streaming response.
	Frames []string
	// Status, when non-zero and not 200, is returned with ErrorBody.
	Status    int
	ErrorBody string
	// JSONBody is returned for non-streaming requests.
	JSONBody string
	// AbortAfterFrames drops the connection once Frames are written,
	// without ending the chunked body.
	AbortAfterFrames bool

	mu          sync.Mutex
	lastRequest map[string]any
	lastHeader  http.Header
	requests    int
}

// NewMockCompletions creates and starts a mock completions server.
func NewMockCompletions(frames ...string) *MockCompletions {
	m := &MockCompletions{Frames: frames}
	m.Server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// Close shuts down the mock server.
func (m *MockCompletions) Close() {
	m.Server.Close()
}

// URL returns the base URL of the mock server, including the /v1 prefix.
func (m *MockCompletions) URL() string {
	return m.Server.URL + "/v1"
}

// LastRequest returns the most recent decoded request body.
func (m *MockCompletions) LastRequest() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRequest
}

// LastHeader returns the headers of the most recent request.
func (m *MockCompletions) LastHeader() http.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastHeader
}

// Requests returns how many requests were served.
func (m *MockCompletions) Requests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests
}

func (m *MockCompletions) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/chat/completions" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	m.mu.Lock()
	m.lastRequest = body
	m.lastHeader = r.Header.Clone()
	m.requests++
	m.mu.Unlock()

	if m.Status != 0 && m.Status != http.StatusOK {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(m.Status)
		_, _ = io.WriteString(w, m.ErrorBody)
		return
	}

	if stream, _ := body["stream"].(bool); !stream {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, m.JSONBody)
		return
	}
	m.writeStreaming(w)
}

func (m *MockCompletions) writeStreaming(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, hasFlusher := w.(http.Flusher)

	for _, frame := range m.Frames {
		_, _ = io.WriteString(w, frame)
		if hasFlusher {
			flusher.Flush()
		}
	}

	if m.AbortAfterFrames {
		if hj, ok := w.(http.Hijacker); ok {
			if conn, _, err := hj.Hijack(); err == nil {
				conn.Close()
			}
		}
	}
}

// DataFrame renders a chunk carrying content as one "data:" line.
func DataFrame(content string) string {
	chunk := map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion.chunk",
		"choices": []map[string]any{{"index": 0, "delta": map[string]any{"content": content}}},
	}
	data, _ := json.Marshal(chunk)
	return fmt.Sprintf("data: %s\n\n", data)
}

// DoneFrame is the stream terminator line.
const DoneFrame = "data: [DONE]\n\n"

// StreamBody joins DataFrame for each piece followed by DoneFrame.
func StreamBody(pieces ...string) string {
	var sb strings.Builder
	for _, p := range pieces {
		sb.WriteString(DataFrame(p))
	}
	sb.WriteString(DoneFrame)
	return sb.String()
}
