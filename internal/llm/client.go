package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samsaffron/term-chat/internal/logging"
	"github.com/samsaffron/term-chat/internal/sse"
)

// readBufferSize is the size of each body read while streaming.
const readBufferSize = 4096

// maxErrorBodySize caps how much of an error response is read.
const maxErrorBodySize = 1 << 20

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	headers    map[string]string
	model      string
	logger     logging.Logger
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client. Streaming requests are bounded by the
// request context, so the client should not carry an overall Timeout.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for warnings and request tracing.
func WithLogger(l logging.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithDefaultModel sets the model used when a request leaves Model empty.
func WithDefaultModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithHeaders adds extra headers to every request.
func WithHeaders(headers map[string]string) ClientOption {
	return func(c *Client) { c.headers = headers }
}

// NewHTTPClient returns an HTTP client suited to streaming: no overall
// timeout, only a bound on the wait for response headers.
func NewHTTPClient(headerTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = headerTimeout
	return &http.Client{Transport: transport}
}

// NewClient creates a client for baseURL (e.g. "https://api.example.com/v1").
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: NewHTTPClient(60 * time.Second),
		logger:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) completionsURL() string {
	return c.baseURL + "/chat/completions"
}

// Stream sends req with streaming forced on and returns the event sequence.
// Only request validation fails here; everything after the request is issued
// arrives as the stream's terminal EventError.
func (c *Client) Stream(ctx context.Context, req CompletionRequest) (Stream, error) {
	if len(req.Messages) == 0 {
		return nil, ErrNoMessages
	}
	req.Stream = true
	req.Model = chooseModel(req.Model, c.model)

	return newEventStream(ctx, func(ctx context.Context, emit emitFunc) error {
		log := c.logger.With("model", req.Model)
		log.Debug("starting completion stream", "messages", len(req.Messages))

		resp, err := c.post(ctx, req, "text/event-stream")
		if err != nil {
			return err
		}
		if resp.Body == nil {
			return ErrEmptyBody
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := readAPIError(resp)
			log.Warn("completion request failed", "status", resp.StatusCode, "error", apiErr.Message)
			return apiErr
		}
		if resp.Body == http.NoBody {
			return ErrEmptyBody
		}

		s := &session{emit: emit, log: log, decoder: sse.NewLineDecoder()}
		return s.run(ctx, resp.Body)
	}), nil
}

// Handler receives the events of one streaming exchange.
type Handler struct {
	OnChunk func(CompletionChunk)
	OnDone  func()
	OnError func(error)
}

// SendStreaming streams req and dispatches to h until exactly one of OnDone or
// OnError has been called. It blocks until then.
func (c *Client) SendStreaming(ctx context.Context, req CompletionRequest, h Handler) {
	Dispatch(ctx, c, req, h)
}

// Dispatch drives a stream from any Streamer into a Handler.
func Dispatch(ctx context.Context, s Streamer, req CompletionRequest, h Handler) {
	stream, err := s.Stream(ctx, req)
	if err != nil {
		if h.OnError != nil {
			h.OnError(err)
		}
		return
	}
	defer stream.Close()

	for {
		ev, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			// Producer ended without a terminal event.
			if h.OnDone != nil {
				h.OnDone()
			}
			return
		}
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			return
		}

		switch ev.Type {
		case EventChunk:
			if h.OnChunk != nil && ev.Chunk != nil {
				h.OnChunk(*ev.Chunk)
			}
		case EventDone:
			if h.OnDone != nil {
				h.OnDone()
			}
			return
		case EventError:
			if h.OnError != nil {
				h.OnError(ev.Err)
			}
			return
		}
	}
}

// Complete performs a non-streaming completion.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if len(req.Messages) == 0 {
		return nil, ErrNoMessages
	}
	req.Stream = false
	req.Model = chooseModel(req.Model, c.model)

	resp, err := c.post(ctx, req, "application/json")
	if err != nil {
		return nil, err
	}
	if resp.Body == nil {
		return nil, ErrEmptyBody
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, readAPIError(resp)
	}
	if resp.Body == http.NoBody {
		return nil, ErrEmptyBody
	}

	var result CompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

func (c *Client) post(ctx context.Context, req CompletionRequest, accept string) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.completionsURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Accept", accept)
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: "request failed", Err: err}
	}
	return resp, nil
}

func readAPIError(resp *http.Response) *APIError {
	var body []byte
	if resp.Body != nil {
		body, _ = io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	}
	return parseAPIError(resp.StatusCode, body)
}

// session is the per-request state of one stream.
type session struct {
	emit     emitFunc
	log      logging.Logger
	decoder  *sse.LineDecoder
	content  []string // accumulated assistant text per choice index
	warnings int
}

// run reads body until the terminator, end of input, or a failure.
func (s *session) run(ctx context.Context, body io.Reader) error {
	buf := make([]byte, readBufferSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			for _, line := range s.decoder.Feed(buf[:n]) {
				done, err := s.handleLine(ctx, line)
				if err != nil {
					return err
				}
				if done {
					s.decoder.Close()
					return nil
				}
			}
		}
		if errors.Is(readErr, io.EOF) {
			if tail := s.decoder.Close(); tail != "" {
				s.log.Debug("discarding unterminated trailing line", "line", tail)
			}
			s.log.Debug("stream closed without terminator")
			return s.finish(ctx)
		}
		if readErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return &TransportError{Op: "stream aborted", Err: ctxErr}
			}
			return &TransportError{Op: "stream read failed", Err: readErr}
		}
	}
}

// handleLine processes one line; done reports that the terminal event was emitted.
func (s *session) handleLine(ctx context.Context, line string) (done bool, err error) {
	ev, ok := sse.ParseLine[CompletionChunk](line)
	if !ok {
		return false, nil
	}

	switch ev.Kind {
	case sse.KindTerminator:
		return true, s.finish(ctx)
	case sse.KindParseWarning:
		s.warnings++
		s.log.Warn("skipping malformed chunk", "payload", truncate(ev.Payload, 200), "error", ev.Err)
		return false, nil
	case sse.KindChunk:
		chunk := ev.Chunk
		s.accumulate(chunk)
		if !s.emit(Event{Type: EventChunk, Chunk: &chunk, Messages: s.snapshot()}) {
			return false, &TransportError{Op: "stream aborted", Err: ctx.Err()}
		}
	}
	return false, nil
}

func (s *session) accumulate(chunk CompletionChunk) {
	for _, choice := range chunk.Choices {
		if choice.Delta.Content == nil || choice.Index < 0 {
			continue
		}
		for len(s.content) <= choice.Index {
			s.content = append(s.content, "")
		}
		s.content[choice.Index] += *choice.Delta.Content
	}
}

func (s *session) snapshot() []Message {
	msgs := make([]Message, len(s.content))
	for i, text := range s.content {
		msgs[i] = AssistantText(text)
	}
	return msgs
}

func (s *session) finish(ctx context.Context) error {
	if s.warnings > 0 {
		s.log.Info("stream finished with skipped chunks", "skipped", s.warnings)
	}
	if !s.emit(Event{Type: EventDone, Messages: s.snapshot()}) {
		return &TransportError{Op: "stream aborted", Err: ctx.Err()}
	}
	return nil
}
