package chat

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"
	"github.com/samsaffron/term-chat/internal/catalog"
	"github.com/samsaffron/term-chat/internal/ui"
)

// Command represents a slash command
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
}

// AllCommands returns all available slash commands
func AllCommands() []Command {
	return []Command{
		{
			Name:        "help",
			Aliases:     []string{"h", "?"},
			Description: "Show help and available commands",
			Usage:       "/help",
		},
		{
			Name:        "clear",
			Aliases:     []string{"c"},
			Description: "Clear conversation history",
			Usage:       "/clear",
		},
		{
			Name:        "model",
			Aliases:     []string{"m"},
			Description: "Show or switch the model",
			Usage:       "/model [name]",
		},
		{
			Name:        "models",
			Aliases:     []string{"ls"},
			Description: "List models by provider",
			Usage:       "/models [filter]",
		},
		{
			Name:        "file",
			Aliases:     []string{"f", "attach"},
			Description: "Attach file(s) to the next message",
			Usage:       "/file <path|glob> | /file clear",
		},
		{
			Name:        "copy",
			Aliases:     []string{"y"},
			Description: "Copy the last reply, or its Nth code block",
			Usage:       "/copy [N]",
		},
		{
			Name:        "quit",
			Aliases:     []string{"q", "exit"},
			Description: "Exit chat",
			Usage:       "/quit",
		},
	}
}

// CommandSource implements fuzzy.Source for command searching
type CommandSource []Command

func (c CommandSource) String(i int) string {
	return c[i].Name
}

func (c CommandSource) Len() int {
	return len(c)
}

// FilterCommands returns commands matching the query using fuzzy search
func FilterCommands(query string) []Command {
	commands := AllCommands()
	query = strings.ToLower(strings.TrimPrefix(query, "/"))
	if query == "" {
		return commands
	}

	for _, cmd := range commands {
		if cmd.Name == query {
			return []Command{cmd}
		}
		for _, alias := range cmd.Aliases {
			if alias == query {
				return []Command{cmd}
			}
		}
	}

	var result []Command
	for _, match := range fuzzy.FindFrom(query, CommandSource(commands)) {
		result = append(result, commands[match.Index])
	}
	return result
}

// lookupCommand resolves a name, alias or unique prefix.
func lookupCommand(name string) (*Command, []Command) {
	for _, c := range AllCommands() {
		if c.Name == name {
			return &c, nil
		}
		for _, alias := range c.Aliases {
			if alias == name {
				return &c, nil
			}
		}
	}

	var prefixMatches []Command
	for _, c := range AllCommands() {
		if strings.HasPrefix(c.Name, name) {
			prefixMatches = append(prefixMatches, c)
		}
	}
	if len(prefixMatches) == 1 {
		return &prefixMatches[0], nil
	}
	return nil, prefixMatches
}

// ExecuteCommand handles slash command execution
func (m *Model) ExecuteCommand(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return m, nil
	}
	m.input.SetValue("")

	cmdName := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	args := parts[1:]

	cmd, candidates := lookupCommand(cmdName)
	if cmd == nil {
		if len(candidates) > 1 {
			var names []string
			for _, c := range candidates {
				names = append(names, "/"+c.Name)
			}
			return m.showSystemMessage(fmt.Sprintf("Ambiguous command: /%s\nDid you mean: %s?", cmdName, strings.Join(names, ", ")))
		}
		return m.showSystemMessage(fmt.Sprintf("Unknown command: /%s\nType /help for available commands.", cmdName))
	}

	switch cmd.Name {
	case "help":
		return m.cmdHelp()
	case "clear":
		return m.cmdClear()
	case "model":
		return m.cmdModel(args)
	case "models":
		return m.cmdModels(args)
	case "file":
		return m.cmdFile(args)
	case "copy":
		return m.cmdCopy(args)
	case "quit":
		return m.cmdQuit()
	default:
		return m.showSystemMessage(fmt.Sprintf("Command /%s is not yet implemented.", cmd.Name))
	}
}

func (m *Model) showSystemMessage(content string) (tea.Model, tea.Cmd) {
	m.entries = append(m.entries, entry{kind: entryNotice, text: content})
	m.refresh()
	return m, nil
}

func (m *Model) showError(content string) (tea.Model, tea.Cmd) {
	m.entries = append(m.entries, entry{kind: entryError, text: content})
	m.refresh()
	return m, nil
}

func (m *Model) cmdHelp() (tea.Model, tea.Cmd) {
	var b strings.Builder
	b.WriteString("## Available Commands\n\n")

	for _, cmd := range AllCommands() {
		fmt.Fprintf(&b, "**%s**", cmd.Usage)
		if len(cmd.Aliases) > 0 {
			fmt.Fprintf(&b, " (aliases: %s)", strings.Join(cmd.Aliases, ", "))
		}
		fmt.Fprintf(&b, "\n  %s\n\n", cmd.Description)
	}

	b.WriteString("## Keyboard Shortcuts\n\n")
	b.WriteString("- `Enter` - Send message\n")
	b.WriteString("- `Esc` - Cancel streaming\n")
	b.WriteString("- `PgUp`/`PgDn` - Scroll\n")
	b.WriteString("- `Ctrl+C` - Quit\n")

	return m.showSystemMessage(b.String())
}

func (m *Model) cmdClear() (tea.Model, tea.Cmd) {
	if err := m.conv.Clear(); err != nil {
		return m.showError(err.Error())
	}
	m.entries = nil
	m.phase = ""
	return m.showSystemMessage("Chat cleared.")
}

func (m *Model) cmdQuit() (tea.Model, tea.Cmd) {
	if m.streamCancel != nil {
		m.streamCancel()
	}
	m.quitting = true
	return m, tea.Quit
}

func (m *Model) cmdModel(args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		current := m.conv.Model()
		label := current
		if info, ok := catalog.Find(m.models, current); ok {
			label = fmt.Sprintf("%s (%s, %s)", info.DisplayName(), info.Provider, info.CostLabel())
		}
		return m.showSystemMessage(fmt.Sprintf("Current model: `%s`\n\nUse `/model <name>` to switch or `/models` to list.", label))
	}
	if m.streaming {
		return m.showError("cannot switch models while a reply is streaming")
	}

	query := strings.Join(args, " ")
	if _, ok := catalog.Find(m.models, query); ok || len(m.models) == 0 {
		m.conv.SetModel(query)
		return m.showSystemMessage(fmt.Sprintf("Switched to `%s`.", query))
	}

	matches := catalog.Search(m.models, query)
	if len(matches) == 0 {
		return m.showError(fmt.Sprintf("no model matches %q", query))
	}
	m.conv.SetModel(matches[0].ID)
	m.log.Info("model switched", "model", matches[0].ID)
	return m.showSystemMessage(fmt.Sprintf("Switched to `%s`.", matches[0].ID))
}

func (m *Model) cmdModels(args []string) (tea.Model, tea.Cmd) {
	if len(m.models) == 0 {
		return m.showSystemMessage("No model catalog loaded. Set `models_file` in your config.")
	}
	models := catalog.Search(m.models, strings.Join(args, " "))
	if len(models) == 0 {
		return m.showSystemMessage("No models match.")
	}

	current := m.conv.Model()
	var b strings.Builder
	for _, group := range catalog.GroupByProvider(models) {
		fmt.Fprintf(&b, "**%s**\n\n", group.Provider)
		for _, info := range group.Models {
			marker := ""
			if info.ID == current {
				marker = " ✓"
			}
			fmt.Fprintf(&b, "- `%s` %s%s\n", ui.Truncate(info.DisplayName(), 48), info.CostLabel(), marker)
		}
		b.WriteString("\n")
	}
	return m.showSystemMessage(strings.TrimRight(b.String(), "\n"))
}

func (m *Model) cmdFile(args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		if len(m.files) == 0 {
			return m.showSystemMessage("No files attached.\nUsage: `/file <path>` or `/file clear`")
		}
		var b strings.Builder
		b.WriteString("Attached files:\n\n")
		for _, f := range m.files {
			fmt.Fprintf(&b, "- `%s`\n", f)
		}
		return m.showSystemMessage(b.String())
	}

	if args[0] == "clear" {
		if n := m.clearFiles(); n > 0 {
			return m.showSystemMessage(fmt.Sprintf("Cleared %d attached file(s).", n))
		}
		return m.showSystemMessage("No files were attached.")
	}

	return m.attachFiles(strings.Join(args, " "))
}

func (m *Model) cmdCopy(args []string) (tea.Model, tea.Cmd) {
	reply, ok := m.lastReply()
	if !ok || reply == "" {
		return m.showError("nothing to copy yet")
	}

	text := reply
	what := "reply"
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return m.showError(fmt.Sprintf("invalid block number %q", args[0]))
		}
		blocks := ui.ExtractCodeBlocks(reply)
		if n < 1 || n > len(blocks) {
			return m.showError(fmt.Sprintf("no code block %d (last reply has %d)", n, len(blocks)))
		}
		text = blocks[n-1].Code
		what = fmt.Sprintf("%s code block %d", blocks[n-1].Language, n)
	}

	if err := m.copyToClipboard(text); err != nil {
		return m.showError(fmt.Sprintf("clipboard: %v", err))
	}
	return m.showSystemMessage(fmt.Sprintf("Copied %s to clipboard.", what))
}
