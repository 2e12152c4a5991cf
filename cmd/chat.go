package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/samsaffron/term-chat/internal/catalog"
	"github.com/samsaffron/term-chat/internal/chat"
	"github.com/samsaffron/term-chat/internal/config"
	"github.com/samsaffron/term-chat/internal/logging"
	chatui "github.com/samsaffron/term-chat/internal/tui/chat"
	"github.com/samsaffron/term-chat/internal/ui"
	"github.com/spf13/cobra"
)

var (
	chatSelect    bool
	chatAltScreen bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive TUI chat session.

Every message is sent with the whole conversation so far. Replies stream
in as they are generated and are rendered as markdown once complete.

Examples:
  term-chat chat
  term-chat chat --select           # pick the model from the catalog first
  term-chat chat -m Provider-2/claude-sonnet

Keyboard shortcuts:
  Enter        - Send message
  Esc          - Cancel streaming
  PgUp/PgDn    - Scroll
  Ctrl+C       - Quit

Slash commands:
  /help        - Show help
  /clear       - Clear conversation
  /model       - Show or switch the model
  /models      - List models by provider
  /file        - Attach files to the next message
  /copy [N]    - Copy the last reply or its Nth code block
  /quit        - Exit chat`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatSelect, "select", false, "Choose the model from the catalog before starting")
	chatCmd.Flags().BoolVar(&chatAltScreen, "alt-screen", false, "Run in the alternate screen buffer")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigWithSetup(cmd)
	if err != nil {
		return err
	}
	log, closeLog, err := openLogger(cfg, cmd.ErrOrStderr(), true)
	if err != nil {
		return err
	}
	defer closeLog()

	models := loadModels(cfg, log)
	if chatSelect {
		selected, err := ui.NewStyles(cmd.OutOrStdout()).SelectModel(models, cfg.Model)
		if err != nil {
			return fmt.Errorf("model selection cancelled: %w", err)
		}
		cfg.Model = selected
	}

	model := newChatModel(cfg, models, log)

	opts := []tea.ProgramOption{tea.WithContext(cmd.Context())}
	if chatAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if _, err := tea.NewProgram(model, opts...).Run(); err != nil {
		return fmt.Errorf("failed to run chat: %w", err)
	}
	return nil
}

func newChatModel(cfg *config.Config, models []catalog.ModelInfo, log logging.Logger) *chatui.Model {
	conv := chat.NewConversation(newClient(cfg, log), chat.Options{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Logger:      log,
	})
	log.Info("chat started", "model", cfg.Model, "base_url", cfg.BaseURL)
	return chatui.New(conv, chatui.Options{Models: models, Logger: log})
}
