package ui

import (
	"strings"
	"testing"

	"github.com/samsaffron/term-chat/internal/catalog"
	"github.com/samsaffron/term-chat/internal/testutil"
)

func TestModelOptionsGroupedInCatalogOrder(t *testing.T) {
	cost := 2.5
	models := []catalog.ModelInfo{
		{ID: "Provider-3/gpt-4.1-mini", Provider: "Provider-3", CostPerMillion: &cost},
		{ID: "Provider-1/claude-3-haiku", Provider: "Provider-1"},
		{ID: "Provider-3/gpt-4o", Provider: "Provider-3"},
	}

	opts := NewStyles(&strings.Builder{}).ModelOptions(models)
	var ids []string
	for _, o := range opts {
		ids = append(ids, o.Value)
	}
	want := "Provider-3/gpt-4.1-mini,Provider-3/gpt-4o,Provider-1/claude-3-haiku"
	if got := strings.Join(ids, ","); got != want {
		t.Errorf("option order = %s, want %s", got, want)
	}

	testutil.AssertContainsPlain(t, opts[0].Key, "gpt-4.1-mini")
	testutil.AssertContainsPlain(t, opts[0].Key, "$2.5/M tokens")
	testutil.AssertContainsPlain(t, opts[2].Key, "Free")
}

func TestValidateTemperature(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"0.7", false},
		{"0", false},
		{"2", false},
		{"2.1", true},
		{"-1", true},
		{"warm", true},
	}
	for _, tt := range tests {
		if err := validateTemperature(tt.in); (err != nil) != tt.wantErr {
			t.Errorf("validateTemperature(%q) = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}
