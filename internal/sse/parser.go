package sse

import (
	"encoding/json"
	"strings"
)

const (
	// DataPrefix marks lines that carry a payload.
	DataPrefix = "data:"
	// DoneToken is the payload of the end-of-stream sentinel line.
	DoneToken = "[DONE]"
)

// Kind classifies a parsed line.
type Kind int

const (
	KindChunk Kind = iota + 1
	KindTerminator
	KindParseWarning
)

func (k Kind) String() string {
	switch k {
	case KindChunk:
		return "chunk"
	case KindTerminator:
		return "terminator"
	case KindParseWarning:
		return "parse_warning"
	default:
		return "unknown"
	}
}

// Event is the result of classifying one data line.
type Event[T any] struct {
	Kind    Kind
	Chunk   T      // set for KindChunk
	Payload string // raw payload, set for KindChunk and KindParseWarning
	Err     error  // decode error, set for KindParseWarning
}

// ParseLine classifies a single line. ok is false for lines that carry no
// payload (blank lines, comments, event/id/retry fields).
func ParseLine[T any](line string) (ev Event[T], ok bool) {
	rest, found := strings.CutPrefix(line, DataPrefix)
	if !found {
		return ev, false
	}

	payload := strings.TrimSpace(rest)
	if payload == DoneToken {
		return Event[T]{Kind: KindTerminator, Payload: payload}, true
	}

	var chunk T
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return Event[T]{Kind: KindParseWarning, Payload: payload, Err: err}, true
	}
	return Event[T]{Kind: KindChunk, Chunk: chunk, Payload: payload}, true
}
