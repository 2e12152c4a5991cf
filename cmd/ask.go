package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samsaffron/term-chat/internal/chat"
	"github.com/samsaffron/term-chat/internal/config"
	"github.com/samsaffron/term-chat/internal/llm"
	"github.com/samsaffron/term-chat/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

// noMarkdownEnv disables rendered output when set to a true value.
const noMarkdownEnv = config.EnvPrefix + "_NO_MARKDOWN"

var (
	askText   bool
	askCode   bool
	askFiles  []string
	askSystem string
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question and stream the answer",
	Long: `Ask a single question and stream the answer to stdout.

Output is rendered as markdown on a terminal and printed as plain text
otherwise (or with --text, or when TERM_CHAT_NO_MARKDOWN=1).

Examples:
  term-chat ask "What is the capital of France?"
  term-chat ask -f 'internal/**/*.go' "Where is the config loaded?"
  term-chat ask --code "Write a Go function that reverses a string"
  term-chat ask -m Provider-2/claude-sonnet "Explain TCP vs UDP" --text`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVarP(&askText, "text", "t", false, "Output plain text instead of rendered markdown")
	askCmd.Flags().BoolVar(&askCode, "code", false, "Print the code blocks of the answer, highlighted, after it")
	askCmd.Flags().StringArrayVarP(&askFiles, "file", "f", nil, "Attach a file or glob (repeatable)")
	askCmd.Flags().StringVarP(&askSystem, "system", "s", "", "System prompt sent before the question")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cfg, err := loadValidConfig()
	if err != nil {
		return err
	}
	log, closeLog, err := openLogger(cfg, cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	defer closeLog()

	out := cmd.OutOrStdout()
	styles := ui.NewStyles(out)

	paths, err := chat.ExpandAttachments(askFiles)
	if err != nil {
		return err
	}
	content, attachErr := chat.Compose(strings.Join(args, " "), paths...)
	if attachErr != nil {
		log.Warn("attachment failed", "error", attachErr)
		fmt.Fprintln(cmd.ErrOrStderr(), styles.FormatResult(false, attachErr.Error()))
	}

	client := newClient(cfg, log)
	req := buildAskRequest(cfg, content, askSystem)

	var reply string
	if renderMarkdown(isTerminal(out)) {
		reply, err = streamRendered(ctx, client, req, out)
	} else {
		reply, err = streamPlain(ctx, client, req, out)
	}
	if err != nil {
		return exitError(err)
	}

	if askCode {
		printCodeBlocks(out, styles, reply)
	}
	return nil
}

// renderMarkdown reports whether the reply is shown as live markdown rather
// than plain streamed text.
func renderMarkdown(tty bool) bool {
	return tty && !askText && !ui.EnvBool(noMarkdownEnv, false)
}

func buildAskRequest(cfg *config.Config, content, system string) llm.CompletionRequest {
	var messages []llm.Message
	if strings.TrimSpace(system) != "" {
		messages = append(messages, llm.SystemText(system))
	}
	messages = append(messages, llm.UserText(content))

	req := llm.CompletionRequest{
		Model:       cfg.Model,
		Messages:    messages,
		Temperature: llm.Float(cfg.Temperature),
	}
	if cfg.MaxTokens > 0 {
		req.MaxTokens = llm.Int(cfg.MaxTokens)
	}
	return req
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return 80
}

// streamPlain writes each fragment as it arrives and returns the whole reply.
func streamPlain(ctx context.Context, s llm.Streamer, req llm.CompletionRequest, w io.Writer) (string, error) {
	var reply strings.Builder
	var streamErr error
	llm.Dispatch(ctx, s, req, llm.Handler{
		OnChunk: func(chunk llm.CompletionChunk) {
			text := chunk.DeltaContent()
			reply.WriteString(text)
			fmt.Fprint(w, text)
		},
		OnError: func(err error) { streamErr = err },
	})
	if reply.Len() > 0 {
		fmt.Fprintln(w)
	}
	return reply.String(), streamErr
}

// streamRendered shows the reply as live markdown through a small bubbletea
// program and returns the whole reply.
func streamRendered(ctx context.Context, s llm.Streamer, req llm.CompletionRequest, w io.Writer) (string, error) {
	// Open TTY for input so stdin stays free for piping
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return streamPlain(ctx, s, req, w)
	}
	defer tty.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	output := make(chan string)
	var g errgroup.Group
	g.Go(func() error {
		defer close(output)
		var streamErr error
		llm.Dispatch(ctx, s, req, llm.Handler{
			OnChunk: func(chunk llm.CompletionChunk) {
				select {
				case output <- chunk.DeltaContent():
				case <-ctx.Done():
				}
			},
			OnError: func(err error) { streamErr = err },
		})
		return streamErr
	})

	model := newAskModel(output, terminalWidth(w), cancel)
	p := tea.NewProgram(model, tea.WithInput(tty), tea.WithOutput(w))
	final, runErr := p.Run()
	// Ends the stream if the program quit early.
	cancel()

	streamErr := g.Wait()
	if runErr != nil {
		return "", runErr
	}
	return final.(askModel).content.String(), streamErr
}

func printCodeBlocks(w io.Writer, styles *ui.Styles, reply string) {
	for i, block := range ui.ExtractCodeBlocks(reply) {
		if i == 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, styles.RenderCodeBlock(block))
		fmt.Fprintln(w)
	}
}

// askModel is the bubbletea model for streaming with glamour
type askModel struct {
	spinner   spinner.Model
	content   *strings.Builder
	renderer  *ui.StreamRenderer
	output    <-chan string
	cancel    context.CancelFunc
	done      bool
	finalView string
}

// chunkMsg carries a streaming chunk
type chunkMsg string

// doneMsg signals streaming is complete
type doneMsg struct{}

func newAskModel(output <-chan string, width int, cancel context.CancelFunc) askModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return askModel{
		spinner:  s,
		content:  &strings.Builder{},
		renderer: ui.NewStreamRenderer(width),
		output:   output,
		cancel:   cancel,
	}
}

func (m askModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForChunk(m.output))
}

// waitForChunk reads from the channel and sends chunks as messages
func waitForChunk(output <-chan string) tea.Cmd {
	return func() tea.Msg {
		chunk, ok := <-output
		if !ok {
			return doneMsg{}
		}
		return chunkMsg(chunk)
	}
}

func (m askModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "esc" {
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case chunkMsg:
		m.content.WriteString(string(msg))
		return m, waitForChunk(m.output)

	case doneMsg:
		m.done = true
		if m.content.Len() > 0 {
			m.finalView = strings.TrimRight(m.renderer.Finish(m.content.String()), "\n") + "\n"
		}
		return m, tea.Quit
	}

	return m, nil
}

func (m askModel) View() string {
	if m.done {
		return m.finalView
	}
	if m.content.Len() == 0 {
		return m.spinner.View() + " Thinking..."
	}
	return m.renderer.Render(m.content.String())
}
