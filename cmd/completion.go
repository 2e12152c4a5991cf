package cmd

import (
	"strings"

	"github.com/samsaffron/term-chat/internal/catalog"
	"github.com/samsaffron/term-chat/internal/logging"
	"github.com/spf13/cobra"
)

// ModelFlagCompletion completes --model from the model catalog.
func ModelFlagCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return completeModels(loadModels(cfg, logging.Nop()), toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeModels returns ids starting with prefix, or fuzzy matches when no
// id has that prefix.
func completeModels(models []catalog.ModelInfo, prefix string) []string {
	var out []string
	for _, m := range models {
		if strings.HasPrefix(m.ID, prefix) {
			out = append(out, m.ID)
		}
	}
	if len(out) > 0 || prefix == "" {
		return out
	}
	for _, m := range catalog.Search(models, prefix) {
		out = append(out, m.ID)
	}
	return out
}
