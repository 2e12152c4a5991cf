package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockTurn represents a single scripted response from the mock provider.
type MockTurn struct {
	Text  string        // Text to emit (will be chunked for realistic streaming)
	Delay time.Duration // Optional delay before responding (for timeout tests)
	Error error         // Emit this error after the text instead of finishing
	// Hold, when set, blocks the turn after its chunks until the channel is closed.
	Hold chan struct{}
}

// MockProvider is a scripted Streamer for tests.
// It returns scripted responses and records all requests for verification.
type MockProvider struct {
	name      string
	turns     []MockTurn
	turnIndex int
	Requests  []CompletionRequest // Recorded requests for verification
	mu        sync.Mutex
}

// NewMockProvider creates a new mock provider with the given name.
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{name: name}
}

// Name returns the provider name.
func (m *MockProvider) Name() string {
	return m.name
}

// AddTurn adds a response turn and returns the provider for chaining.
func (m *MockProvider) AddTurn(t MockTurn) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, t)
	return m
}

// AddTextResponse is a convenience method to add a simple text response.
func (m *MockProvider) AddTextResponse(text string) *MockProvider {
	return m.AddTurn(MockTurn{Text: text})
}

// AddError adds a turn that fails.
func (m *MockProvider) AddError(err error) *MockProvider {
	return m.AddTurn(MockTurn{Error: err})
}

// Reset clears recorded requests and resets the turn index.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turnIndex = 0
	m.Requests = nil
}

// RequestCount returns how many requests were received.
func (m *MockProvider) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// LastRequest returns the most recent request.
func (m *MockProvider) LastRequest() (CompletionRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return CompletionRequest{}, false
	}
	return m.Requests[len(m.Requests)-1], true
}

// Stream implements Streamer.
func (m *MockProvider) Stream(ctx context.Context, req CompletionRequest) (Stream, error) {
	if len(req.Messages) == 0 {
		return nil, ErrNoMessages
	}
	req.Stream = true
	req.Messages = append([]Message(nil), req.Messages...)

	m.mu.Lock()
	m.Requests = append(m.Requests, req)

	if m.turnIndex >= len(m.turns) {
		m.mu.Unlock()
		return nil, fmt.Errorf("mock provider: no more turns configured (expected turn %d, have %d)", m.turnIndex, len(m.turns))
	}

	turn := m.turns[m.turnIndex]
	m.turnIndex++
	m.mu.Unlock()

	return newEventStream(ctx, func(ctx context.Context, emit emitFunc) error {
		if turn.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(turn.Delay):
			}
		}

		var content string
		for i, piece := range chunkText(turn.Text, 10) {
			content += piece
			text := piece
			chunk := CompletionChunk{
				ID:      fmt.Sprintf("mock-%d", i),
				Object:  "chat.completion.chunk",
				Model:   req.Model,
				Choices: []ChunkChoice{{Index: 0, Delta: MessageDelta{Content: &text}}},
			}
			if !emit(Event{Type: EventChunk, Chunk: &chunk, Messages: []Message{AssistantText(content)}}) {
				return ctx.Err()
			}
		}

		if turn.Hold != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-turn.Hold:
			}
		}

		if turn.Error != nil {
			return turn.Error
		}
		emit(Event{Type: EventDone, Messages: []Message{AssistantText(content)}})
		return nil
	}), nil
}

// chunkText splits text into chunks of approximately the given size.
// It tries to break at word boundaries when possible.
func chunkText(text string, chunkSize int) []string {
	if len(text) == 0 {
		return nil
	}
	if len(text) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	for len(text) > 0 {
		if len(text) <= chunkSize {
			chunks = append(chunks, text)
			break
		}

		// Find a good break point (space) near the chunk size
		breakPoint := chunkSize
		for i := chunkSize; i > chunkSize/2; i-- {
			if text[i] == ' ' {
				breakPoint = i + 1 // include the space in current chunk
				break
			}
		}

		chunks = append(chunks, text[:breakPoint])
		text = text[breakPoint:]
	}
	return chunks
}
