package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/samsaffron/term-chat/internal/catalog"
	"github.com/samsaffron/term-chat/internal/config"
	"github.com/samsaffron/term-chat/internal/exitcode"
	"github.com/samsaffron/term-chat/internal/llm"
	"github.com/samsaffron/term-chat/internal/logging"
	"github.com/samsaffron/term-chat/internal/ui"
	"github.com/spf13/cobra"
)

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return nil, exitcode.ConfigError(fmt.Errorf("failed to load config: %w", err))
	}
	applyOverrides(cfg, modelFlag, logLevel)
	return cfg, nil
}

func applyOverrides(cfg *config.Config, model, level string) {
	if model != "" {
		cfg.Model = model
	}
	if level != "" {
		cfg.Log.Level = level
	}
}

// loadValidConfig is loadConfig for commands that talk to the endpoint.
func loadValidConfig() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, exitcode.ConfigError(fmt.Errorf("%w (run 'term-chat config init')", err))
	}
	return cfg, nil
}

// loadConfigWithSetup is loadValidConfig for interactive commands: when no
// config file exists yet and the settings are unusable, it runs the setup
// form and saves the result.
func loadConfigWithSetup(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Validate() == nil || configFile != "" || config.Exists() || !isTerminal(cmd.OutOrStdout()) {
		return loadValidConfig()
	}

	path, err := config.GetConfigPath()
	if err != nil {
		return nil, exitcode.ConfigError(err)
	}
	if err := setupConfig(cmd, path, cfg); err != nil {
		return nil, err
	}
	return loadValidConfig()
}

// setupConfig runs the setup form over the unresolved file values at path and
// saves the result there. cfg is only consulted for the model list.
func setupConfig(cmd *cobra.Command, path string, cfg *config.Config) error {
	raw, err := config.LoadRaw(path)
	if err != nil {
		return exitcode.ConfigError(fmt.Errorf("failed to load config: %w", err))
	}
	styles := ui.NewStyles(cmd.OutOrStdout())
	updated, err := styles.RunSetupWizard(*raw, loadModels(cfg, logging.Nop()))
	if err != nil {
		return exitcode.ConfigError(fmt.Errorf("setup cancelled: %w", err))
	}
	return config.SaveFile(updated, path)
}

// openLogger returns the logger for a command and a func that releases it.
// One-shot commands log to stderr unless log.file is set; the chat UI owns
// the terminal, so toFile sends its log to the default log file instead.
func openLogger(cfg *config.Config, stderr io.Writer, toFile bool) (logging.Logger, func(), error) {
	path := cfg.Log.File
	if path == "" && !toFile {
		return logging.New(stderr, cfg.Log.Level), func() {}, nil
	}
	if path == "" {
		var err error
		if path, err = config.DefaultLogPath(); err != nil {
			return nil, nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return logging.NewJSON(f, cfg.Log.Level), func() { f.Close() }, nil
}

// loadModels reads the model catalog. A missing file yields an empty
// catalog; the model is then used as configured.
func loadModels(cfg *config.Config, log logging.Logger) []catalog.ModelInfo {
	if cfg.ModelsFile == "" {
		return nil
	}
	models, err := catalog.Load(cfg.ModelsFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debug("no model catalog", "path", cfg.ModelsFile)
		} else {
			log.Warn("model catalog unreadable", "path", cfg.ModelsFile, "error", err)
		}
		return nil
	}
	log.Debug("loaded model catalog", "path", cfg.ModelsFile, "models", len(models))
	return models
}

func newClient(cfg *config.Config, log logging.Logger) *llm.Client {
	return llm.NewClient(cfg.BaseURL, cfg.APIKey,
		llm.WithHTTPClient(llm.NewHTTPClient(cfg.RequestTimeout)),
		llm.WithDefaultModel(cfg.Model),
		llm.WithLogger(log),
	)
}

// exitError maps a stream failure onto the process exit code.
func exitError(err error) error {
	var apiErr *llm.APIError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return exitcode.Cancel()
	case errors.As(err, &apiErr):
		return exitcode.APIError(fmt.Errorf("API Error: %w", err))
	default:
		return err
	}
}
