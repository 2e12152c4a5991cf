package chat

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/samsaffron/term-chat/internal/llm"
)

// ErrUnknownSlot is returned when a slot id is not in the transcript.
var ErrUnknownSlot = errors.New("unknown transcript slot")

// SlotID identifies one position in a transcript.
type SlotID string

type slot struct {
	id  SlotID
	msg llm.Message
}

// Transcript is an append-only, ordered list of messages. Each position is
// addressed by a SlotID and its value can be swapped, never edited in place.
// It is safe for concurrent use.
type Transcript struct {
	mu    sync.RWMutex
	slots []slot
	index map[SlotID]int
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{index: make(map[SlotID]int)}
}

// Append adds msg at the end and returns its slot.
func (t *Transcript) Append(msg llm.Message) SlotID {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := SlotID(uuid.NewString())
	t.index[id] = len(t.slots)
	t.slots = append(t.slots, slot{id: id, msg: msg})
	return id
}

// Replace swaps the message held by id.
func (t *Transcript) Replace(id SlotID, msg llm.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.index[id]
	if !ok {
		return ErrUnknownSlot
	}
	t.slots[i].msg = msg
	return nil
}

// Get returns the message held by id.
func (t *Transcript) Get(id SlotID) (llm.Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.index[id]
	if !ok {
		return llm.Message{}, false
	}
	return t.slots[i].msg, true
}

// Messages returns a copy of all messages, oldest first.
func (t *Transcript) Messages() []llm.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]llm.Message, len(t.slots))
	for i, s := range t.slots {
		out[i] = s.msg
	}
	return out
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.slots)
}

// Clear removes every message. Previously issued slot ids become unknown.
func (t *Transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.slots = nil
	t.index = make(map[SlotID]int)
}
