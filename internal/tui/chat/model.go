package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samsaffron/term-chat/internal/catalog"
	chatcore "github.com/samsaffron/term-chat/internal/chat"
	"github.com/samsaffron/term-chat/internal/llm"
	"github.com/samsaffron/term-chat/internal/logging"
	"github.com/samsaffron/term-chat/internal/ui"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	// inputHeight is the number of rows below the viewport: status and input.
	inputHeight = 3
)

// updateMsg carries one conversation update into the bubbletea loop.
type updateMsg struct {
	update chatcore.Update
	ch     <-chan chatcore.Update
}

// streamClosedMsg is sent once the update channel is drained.
type streamClosedMsg struct{}

// Options configure a chat Model.
type Options struct {
	Models []catalog.ModelInfo
	Logger logging.Logger
	Output io.Writer // where styles detect color support; nil means stderr
}

// Model is the bubbletea model of the interactive chat.
type Model struct {
	conv   *chatcore.Conversation
	models []catalog.ModelInfo
	styles *ui.Styles
	log    logging.Logger

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	width, height int
	entries       []entry
	files         []string // attachments for the next message

	streaming      bool
	streamStart    time.Time
	streamCancel   context.CancelFunc
	streamRenderer *ui.StreamRenderer
	phase          string

	// copyToClipboard is replaced in tests.
	copyToClipboard func(string) error

	quitting bool
}

// New creates a chat model around conv.
func New(conv *chatcore.Conversation, opts Options) *Model {
	styles := ui.DefaultStyles()
	if opts.Output != nil {
		styles = ui.NewStyles(opts.Output)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	input := textinput.New()
	input.Placeholder = "Type a message, or /help"
	input.Prompt = ui.PromptIcon + " "
	input.CharLimit = 0
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		conv:            conv,
		models:          opts.Models,
		styles:          styles,
		log:             opts.Logger,
		viewport:        viewport.New(defaultWidth, defaultHeight-inputHeight),
		input:           input,
		spinner:         sp,
		width:           defaultWidth,
		height:          defaultHeight,
		streamRenderer:  ui.NewStreamRenderer(defaultWidth),
		copyToClipboard: clipboard.WriteAll,
	}

	if len(opts.Models) > 0 {
		resolved := catalog.Resolve(opts.Models, conv.Model())
		if resolved != conv.Model() {
			m.log.Info("selected model not in catalog, using first entry", "selected", conv.Model(), "model", resolved)
			conv.SetModel(resolved)
		}
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) contentWidth() int {
	if m.width < 20 {
		return 20
	}
	return m.width
}

// refresh re-renders the history into the viewport and scrolls to the end.
func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(1, msg.Height-inputHeight)
		m.input.Width = max(10, msg.Width-4)
		m.streamRenderer = ui.NewStreamRenderer(m.contentWidth())
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case updateMsg:
		return m.handleUpdate(msg)

	case streamClosedMsg:
		m.streaming = false
		m.streamCancel = nil
		m.phase = ""
		return m, nil

	case spinner.TickMsg:
		if !m.streaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m.cmdQuit()

	case tea.KeyEsc:
		if m.streaming && m.streamCancel != nil {
			m.streamCancel()
			m.phase = "Stopping"
		}
		return m, nil

	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.KeyEnter:
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		if strings.HasPrefix(text, "/") {
			return m.ExecuteCommand(text)
		}
		if m.streaming {
			m.phase = "Still responding, press Esc to cancel"
			return m, nil
		}
		return m.send(text)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// send composes text with pending attachments and starts a reply.
func (m *Model) send(text string) (tea.Model, tea.Cmd) {
	content, attachErr := chatcore.Compose(text, m.files...)

	ctx, cancel := context.WithCancel(context.Background())
	updates, err := m.conv.Send(ctx, content)
	if err != nil {
		cancel()
		if errors.Is(err, chatcore.ErrBusy) {
			m.phase = "Still responding, press Esc to cancel"
			return m, nil
		}
		return m.showError(err.Error())
	}

	files := make([]string, 0, len(m.files))
	for _, f := range m.files {
		files = append(files, fileName(f))
	}
	m.entries = append(m.entries, entry{kind: entryUser, text: text, files: files})
	if attachErr != nil {
		m.log.Warn("attachment failed", "error", attachErr)
		m.entries = append(m.entries, entry{kind: entryError, text: attachErr.Error()})
	}
	m.files = nil
	m.input.SetValue("")

	m.streaming = true
	m.streamStart = time.Now()
	m.streamCancel = cancel
	m.streamRenderer.Reset()
	m.phase = "Waiting"
	m.refresh()

	return m, tea.Batch(waitForUpdate(updates), m.spinner.Tick)
}

// waitForUpdate reads the next update from ch.
func waitForUpdate(ch <-chan chatcore.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return updateMsg{update: u, ch: ch}
	}
}

func (m *Model) assistantEntry(slot chatcore.SlotID) *entry {
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].kind == entryAssistant && m.entries[i].slot == slot {
			return &m.entries[i]
		}
	}
	m.entries = append(m.entries, entry{kind: entryAssistant, slot: slot})
	return &m.entries[len(m.entries)-1]
}

func (m *Model) handleUpdate(msg updateMsg) (tea.Model, tea.Cmd) {
	u := msg.update
	e := m.assistantEntry(u.Slot)

	switch u.Kind {
	case chatcore.UpdateDelta:
		m.phase = "Responding"
	case chatcore.UpdateDone:
		e.final = true
		m.log.Debug("reply complete", "elapsed", time.Since(m.streamStart))
	case chatcore.UpdateFailed:
		e.final = true
		if errors.Is(u.Err, context.Canceled) {
			m.entries = append(m.entries, entry{kind: entryNotice, text: "Cancelled."})
			break
		}
		text := "API Error: " + u.Err.Error()
		if llm.IsAPIError(u.Err, http.StatusUnauthorized) {
			text += "\nCheck api_key in your config (term-chat config init)."
		}
		m.entries = append(m.entries, entry{kind: entryError, text: text})
	}

	if u.Kind == chatcore.UpdateDone || u.Kind == chatcore.UpdateFailed {
		if m.streamCancel != nil {
			m.streamCancel()
		}
		m.streamRenderer.Reset()
	}
	m.refresh()
	return m, waitForUpdate(msg.ch)
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var status string
	switch {
	case m.streaming:
		var chars int
		if text, ok := m.lastReply(); ok {
			chars = len(text)
		}
		status = ui.StreamingIndicator{
			Spinner:    m.spinner.View(),
			Phase:      m.phase,
			Elapsed:    time.Since(m.streamStart),
			Chars:      chars,
			ShowCancel: true,
		}.Render(m.styles)
	case m.phase != "":
		status = m.styles.Muted.Render(m.phase)
	default:
		status = m.styles.Muted.Render(m.statusLine())
	}

	return fmt.Sprintf("%s\n%s\n%s", m.viewport.View(), status, m.input.View())
}

func (m *Model) statusLine() string {
	parts := []string{ui.Truncate(m.conv.Model(), 40)}
	if info, ok := catalog.Find(m.models, m.conv.Model()); ok {
		parts = append(parts, info.CostLabel())
	}
	if n := len(m.files); n > 0 {
		parts = append(parts, fmt.Sprintf("%d file(s) attached", n))
	}
	return strings.Join(parts, " · ")
}

// Quitting reports whether the user asked to exit.
func (m *Model) Quitting() bool {
	return m.quitting
}
