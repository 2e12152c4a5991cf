package cmd

import (
	"fmt"
	"io"

	"github.com/samsaffron/term-chat/internal/config"
	"github.com/samsaffron/term-chat/internal/exitcode"
	"github.com/samsaffron/term-chat/internal/logging"
	"github.com/samsaffron/term-chat/internal/ui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or edit the configuration",
	Long: `Show or edit the term-chat configuration.

Settings come from config.yaml, overridden by TERM_CHAT_* environment
variables (e.g. TERM_CHAT_MODEL, TERM_CHAT_API_KEY). OPENAI_API_KEY is used
when no key is configured.

Examples:
  term-chat config            # show the effective configuration
  term-chat config init       # interactive setup
  term-chat config path       # print the config file location`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or update the config file interactively",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configShowCmd, configPathCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func configPath() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	return config.GetConfigPath()
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return writeConfig(cmd.OutOrStdout(), cfg)
}

// writeConfig prints cfg as YAML with the API key masked.
func writeConfig(w io.Writer, cfg *config.Config) error {
	shown := *cfg
	shown.APIKey = maskKey(cfg.APIKey)
	data, err := yaml.Marshal(&shown)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// maskKey keeps the last four characters of a key.
func maskKey(key string) string {
	switch {
	case key == "":
		return ""
	case len(key) <= 8:
		return "****"
	default:
		return "****" + key[len(key)-4:]
	}
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	raw, err := config.LoadRaw(path)
	if err != nil {
		return exitcode.ConfigError(fmt.Errorf("failed to load config: %w", err))
	}

	styles := ui.NewStyles(cmd.OutOrStdout())
	updated, err := styles.RunSetupWizard(*raw, loadModels(raw, logging.Nop()))
	if err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}
	if err := config.SaveFile(updated, path); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), styles.FormatResult(true, "Saved "+path))
	return nil
}
