package ui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/samsaffron/term-chat/internal/catalog"
	"github.com/samsaffron/term-chat/internal/config"
)

// validateTemperature accepts a float in [0, 2].
func validateTemperature(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number")
	}
	if v < 0 || v > 2 {
		return fmt.Errorf("must be between 0 and 2")
	}
	return nil
}

// RunSetupWizard collects connection settings starting from cfg and returns
// the edited copy. models may be empty, in which case the model is typed.
func (s *Styles) RunSetupWizard(cfg config.Config, models []catalog.ModelInfo) (*config.Config, error) {
	temperature := strconv.FormatFloat(cfg.Temperature, 'f', -1, 64)

	var modelField huh.Field
	if len(models) > 0 {
		cfg.Model = catalog.Resolve(models, cfg.Model)
		modelField = huh.NewSelect[string]().
			Title("Default model").
			Options(s.ModelOptions(models)...).
			Height(10).
			Value(&cfg.Model)
	} else {
		modelField = huh.NewInput().
			Title("Default model").
			Value(&cfg.Model)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API base URL").
				Description("OpenAI-compatible endpoint, e.g. https://beta.sree.shop/v1").
				Value(&cfg.BaseURL),
			huh.NewInput().
				Title("API key").
				Description("A literal key, $ENV_VAR, $(command) or op:// reference").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.APIKey),
		),
		huh.NewGroup(
			modelField,
			huh.NewInput().
				Title("Temperature").
				Validate(validateTemperature).
				Value(&temperature),
		),
	)

	if err := form.Run(); err != nil {
		return nil, err
	}

	t, err := strconv.ParseFloat(temperature, 64)
	if err != nil {
		return nil, fmt.Errorf("temperature: %w", err)
	}
	cfg.Temperature = t
	return &cfg, nil
}
