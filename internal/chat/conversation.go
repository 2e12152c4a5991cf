package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/samsaffron/term-chat/internal/llm"
	"github.com/samsaffron/term-chat/internal/logging"
)

// ErrBusy is returned when a send is attempted while a reply is streaming.
var ErrBusy = errors.New("a response is still streaming")

// ErrEmptyMessage is returned for a send with no text.
var ErrEmptyMessage = errors.New("message is empty")

// DefaultTemperature is the sampling temperature used for chat requests.
const DefaultTemperature = 0.7

// UpdateKind tags the updates of a reply.
type UpdateKind int

const (
	UpdateDelta UpdateKind = iota
	UpdateDone
	UpdateFailed
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateDelta:
		return "delta"
	case UpdateDone:
		return "done"
	case UpdateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Update is the state of the assistant slot after one stream event.
type Update struct {
	Kind    UpdateKind
	Slot    SlotID
	Message llm.Message
	Err     error // UpdateFailed
}

// Options configure a Conversation.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int // 0 leaves the field unset
	Logger      logging.Logger
}

// Conversation sends user turns with the full transcript as context and
// streams the assistant reply into a transcript slot. Only one reply may be
// in flight at a time.
type Conversation struct {
	streamer   llm.Streamer
	transcript *Transcript
	log        logging.Logger

	mu          sync.Mutex
	model       string
	temperature float64
	maxTokens   int
	busy        bool
}

// NewConversation creates a conversation backed by s.
func NewConversation(s llm.Streamer, opts Options) *Conversation {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return &Conversation{
		streamer:    s,
		transcript:  NewTranscript(),
		log:         opts.Logger,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
	}
}

// Transcript returns the conversation's transcript.
func (c *Conversation) Transcript() *Transcript {
	return c.transcript
}

// Model returns the model used for the next send.
func (c *Conversation) Model() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

// SetModel changes the model used for subsequent sends.
func (c *Conversation) SetModel(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = model
}

// Busy reports whether a reply is streaming.
func (c *Conversation) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Clear empties the transcript. It fails with ErrBusy while streaming.
func (c *Conversation) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrBusy
	}
	c.transcript.Clear()
	return nil
}

// Send appends content as a user message, opens an assistant slot and
// streams the reply into it. The returned channel yields zero or more
// UpdateDelta values followed by exactly one UpdateDone or UpdateFailed, then
// closes. Callers must drain it. Canceling ctx aborts the reply, which then
// ends as UpdateFailed.
func (c *Conversation) Send(ctx context.Context, content string) (<-chan Update, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.busy = true
	req := llm.CompletionRequest{
		Model:       c.model,
		Temperature: llm.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		req.MaxTokens = llm.Int(c.maxTokens)
	}
	c.mu.Unlock()

	c.transcript.Append(llm.UserText(content))
	req.Messages = c.transcript.Messages()
	acc := Begin(c.transcript)

	log := c.log.With("model", req.Model)
	updates := make(chan Update, 32)

	go func() {
		defer close(updates)
		defer c.idle()

		llm.Dispatch(ctx, c.streamer, req, llm.Handler{
			OnChunk: func(chunk llm.CompletionChunk) {
				msg, ok := acc.Apply(chunk)
				if !ok {
					return
				}
				select {
				case updates <- Update{Kind: UpdateDelta, Slot: acc.Slot(), Message: msg}:
				case <-ctx.Done():
				}
			},
			OnDone: func() {
				msg := acc.Finish()
				log.Debug("reply finished", "chars", len(msg.Content))
				c.idle()
				updates <- Update{Kind: UpdateDone, Slot: acc.Slot(), Message: msg}
			},
			OnError: func(err error) {
				log.Error("reply failed", "error", err)
				msg := acc.Fail()
				c.idle()
				updates <- Update{Kind: UpdateFailed, Slot: acc.Slot(), Message: msg, Err: err}
			},
		})
	}()

	return updates, nil
}

func (c *Conversation) idle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
}

// Wait drains updates and returns the final one.
func Wait(updates <-chan Update) Update {
	var last Update
	for u := range updates {
		last = u
	}
	return last
}
