package ui

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/samsaffron/term-chat/internal/catalog"
)

// ModelLabel renders one catalog entry as "<name>  <cost>", truncated to width.
func (s *Styles) ModelLabel(m catalog.ModelInfo, width int) string {
	name := Truncate(m.DisplayName(), width)
	return name + s.Muted.Render("  "+m.CostLabel())
}

// ModelOptions builds select options grouped by provider, in catalog order.
// Each option's label is prefixed with its provider.
func (s *Styles) ModelOptions(models []catalog.ModelInfo) []huh.Option[string] {
	var options []huh.Option[string]
	for _, group := range catalog.GroupByProvider(models) {
		for _, m := range group.Models {
			label := s.GroupHeader.Render(group.Provider) + " " + s.ModelLabel(m, 40)
			options = append(options, huh.NewOption(label, m.ID))
		}
	}
	return options
}

// SelectModel asks the user to pick a model. current is preselected when it
// is in the catalog.
func (s *Styles) SelectModel(models []catalog.ModelInfo, current string) (string, error) {
	if len(models) == 0 {
		return "", fmt.Errorf("model catalog is empty")
	}
	selected := catalog.Resolve(models, current)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select a model").
				Options(s.ModelOptions(models)...).
				Height(15).
				Value(&selected),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return selected, nil
}
