// Package catalog reads the list of selectable models and groups it for
// display.
package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sahilm/fuzzy"
)

// ModelInfo describes one selectable model.
type ModelInfo struct {
	ID             string   `json:"id"`
	Provider       string   `json:"provider"`
	CostPerMillion *float64 `json:"cost_per_million,omitempty"`
}

// DisplayName is the id without its provider prefix.
func (m ModelInfo) DisplayName() string {
	if _, rest, ok := strings.Cut(m.ID, "/"); ok && rest != "" {
		return rest
	}
	return m.ID
}

// CostLabel renders the price per million tokens, or "Free" when unknown or zero.
func (m ModelInfo) CostLabel() string {
	if m.CostPerMillion == nil || *m.CostPerMillion == 0 {
		return "Free"
	}
	return "$" + strconv.FormatFloat(*m.CostPerMillion, 'f', -1, 64) + "/M tokens"
}

// providerOf returns the segment before the first "/".
func providerOf(id string) string {
	provider, _, _ := strings.Cut(id, "/")
	return provider
}

type catalogFile struct {
	Data []struct {
		ID   string   `json:"id"`
		Cost *float64 `json:"owner_cost_per_million_tokens"`
	} `json:"data"`
}

// Parse decodes a catalog document of the form
// {"data":[{"id":"...","owner_cost_per_million_tokens":n|null}]}.
// Entries without an id are skipped.
func Parse(r io.Reader) ([]ModelInfo, error) {
	var doc catalogFile
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode model catalog: %w", err)
	}
	models := make([]ModelInfo, 0, len(doc.Data))
	for _, d := range doc.Data {
		if d.ID == "" {
			continue
		}
		models = append(models, ModelInfo{
			ID:             d.ID,
			Provider:       providerOf(d.ID),
			CostPerMillion: d.Cost,
		})
	}
	return models, nil
}

// Load reads the catalog file at path.
func Load(path string) ([]ModelInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model catalog: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Group is the models of one provider.
type Group struct {
	Provider string
	Models   []ModelInfo
}

// GroupByProvider groups models by provider, keeping the order in which
// providers and models first appear.
func GroupByProvider(models []ModelInfo) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, m := range models {
		i, ok := index[m.Provider]
		if !ok {
			i = len(groups)
			index[m.Provider] = i
			groups = append(groups, Group{Provider: m.Provider})
		}
		groups[i].Models = append(groups[i].Models, m)
	}
	return groups
}

// Find returns the model with id.
func Find(models []ModelInfo, id string) (ModelInfo, bool) {
	for _, m := range models {
		if m.ID == id {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// Resolve returns selected if the catalog has it, else the first model.
// An empty catalog keeps selected.
func Resolve(models []ModelInfo, selected string) string {
	if len(models) == 0 {
		return selected
	}
	if _, ok := Find(models, selected); ok {
		return selected
	}
	return models[0].ID
}

type modelSource []ModelInfo

func (s modelSource) String(i int) string { return s[i].ID }
func (s modelSource) Len() int            { return len(s) }

// Search fuzzy-matches query against model ids, best match first.
// An empty query returns models unchanged.
func Search(models []ModelInfo, query string) []ModelInfo {
	if strings.TrimSpace(query) == "" {
		return models
	}
	matches := fuzzy.FindFrom(query, modelSource(models))
	out := make([]ModelInfo, 0, len(matches))
	for _, match := range matches {
		out = append(out, models[match.Index])
	}
	return out
}
