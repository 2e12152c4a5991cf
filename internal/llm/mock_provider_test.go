package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestChunkText(t *testing.T) {
	tests := []struct {
		text string
		size int
		want int
	}{
		{"", 10, 0},
		{"short", 10, 1},
		{"this is a longer sentence that needs chunks", 10, 5},
	}
	for _, tt := range tests {
		chunks := chunkText(tt.text, tt.size)
		if len(chunks) != tt.want {
			t.Errorf("chunkText(%q) = %d chunks %q, want %d", tt.text, len(chunks), chunks, tt.want)
		}
		if got := strings.Join(chunks, ""); got != tt.text {
			t.Errorf("joined = %q, want %q", got, tt.text)
		}
	}
}

func TestMockProviderDispatch(t *testing.T) {
	mock := NewMockProvider("mock").
		AddTextResponse("hello from the mock provider").
		AddError(errors.New("boom"))

	var text strings.Builder
	var done int
	Dispatch(context.Background(), mock, testRequest(), Handler{
		OnChunk: func(c CompletionChunk) { text.WriteString(c.DeltaContent()) },
		OnDone:  func() { done++ },
	})
	if text.String() != "hello from the mock provider" || done != 1 {
		t.Fatalf("text=%q done=%d", text.String(), done)
	}

	var gotErr error
	Dispatch(context.Background(), mock, testRequest(), Handler{
		OnDone:  func() { t.Error("unexpected done") },
		OnError: func(err error) { gotErr = err },
	})
	if gotErr == nil || gotErr.Error() != "boom" {
		t.Errorf("err = %v, want boom", gotErr)
	}

	if mock.RequestCount() != 2 {
		t.Errorf("RequestCount = %d", mock.RequestCount())
	}
	if req, ok := mock.LastRequest(); !ok || !req.Stream {
		t.Errorf("LastRequest = %+v, %v", req, ok)
	}

	Dispatch(context.Background(), mock, testRequest(), Handler{
		OnError: func(err error) { gotErr = err },
	})
	if !strings.Contains(gotErr.Error(), "no more turns") {
		t.Errorf("err = %v, want exhausted turns", gotErr)
	}
}
