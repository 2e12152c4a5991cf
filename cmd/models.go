package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/samsaffron/term-chat/internal/catalog"
	"github.com/samsaffron/term-chat/internal/ui"
	"github.com/spf13/cobra"
)

var modelsJSON bool
var modelsFilter string

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models from the model catalog",
	Long: `List the models of the catalog file (models_file in the config),
grouped by provider in catalog order.

Examples:
  term-chat models                   # list all models
  term-chat models --filter sonnet   # fuzzy filter, best match first
  term-chat models --json            # output as JSON`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().StringVar(&modelsFilter, "filter", "", "Fuzzy filter on model ids")
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "Output as JSON")
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	models, err := catalog.Load(cfg.ModelsFile)
	if err != nil {
		return fmt.Errorf("failed to load models from %s: %w", cfg.ModelsFile, err)
	}
	models = catalog.Search(models, modelsFilter)

	out := cmd.OutOrStdout()
	if modelsJSON {
		return writeModelsJSON(out, models)
	}
	writeModels(out, ui.NewStyles(out), models, cfg.Model)
	return nil
}

func writeModelsJSON(w io.Writer, models []catalog.ModelInfo) error {
	if models == nil {
		models = []catalog.ModelInfo{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(models)
}

// writeModels prints models grouped by provider, marking current.
func writeModels(w io.Writer, styles *ui.Styles, models []catalog.ModelInfo, current string) {
	if len(models) == 0 {
		fmt.Fprintln(w, "No models found.")
		return
	}

	for i, group := range catalog.GroupByProvider(models) {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, styles.GroupHeader.Render(group.Provider))
		for _, m := range group.Models {
			marker := "  "
			if m.ID == current {
				marker = styles.Success.Render(ui.SuccessIcon) + " "
			}
			fmt.Fprintf(w, "  %s%s\n", marker, styles.ModelLabel(m, 48))
		}
	}

	fmt.Fprintf(w, "\nUse a model with --model <id> or set model in your config.\n")
}
