package chat

import (
	"sync"

	"github.com/samsaffron/term-chat/internal/llm"
)

// FailureMessage replaces the assistant reply when a stream fails.
const FailureMessage = "I encountered an error processing your request. Please try again."

// Accumulator folds streamed deltas into one assistant slot of a transcript.
type Accumulator struct {
	mu         sync.Mutex
	transcript *Transcript
	slot       SlotID
	final      bool
}

// Begin appends an empty assistant message to t and returns an accumulator
// targeting it.
func Begin(t *Transcript) *Accumulator {
	return &Accumulator{
		transcript: t,
		slot:       t.Append(llm.AssistantText("")),
	}
}

// Slot returns the transcript slot being filled.
func (a *Accumulator) Slot() SlotID {
	return a.slot
}

// Apply appends the first choice's delta content to the slot. It reports
// false when the accumulator is final or the slot is gone.
func (a *Accumulator) Apply(chunk llm.CompletionChunk) (llm.Message, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.final {
		return llm.Message{}, false
	}
	current, ok := a.transcript.Get(a.slot)
	if !ok {
		return llm.Message{}, false
	}
	next := llm.AssistantText(current.Content + chunk.DeltaContent())
	if err := a.transcript.Replace(a.slot, next); err != nil {
		return llm.Message{}, false
	}
	return next, true
}

// Finish marks the slot final and returns its message.
func (a *Accumulator) Finish() llm.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.final = true
	msg, _ := a.transcript.Get(a.slot)
	return msg
}

// Fail discards any partial content, stores FailureMessage and marks the
// slot final.
func (a *Accumulator) Fail() llm.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	msg := llm.AssistantText(FailureMessage)
	if !a.final {
		_ = a.transcript.Replace(a.slot, msg)
	}
	a.final = true
	return msg
}

// Final reports whether Finish or Fail was called.
func (a *Accumulator) Final() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.final
}
