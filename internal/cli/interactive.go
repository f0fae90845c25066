package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/apresai/dialoguegen/internal/dialogue"
	"github.com/apresai/dialoguegen/internal/record"
)

const (
	windowTitle  = "AI NPC Dialogue Generator"
	defaultInput = "Hello, do you have any information?"
	waitingText  = "AI is crafting a masterpiece... Please wait."
)

const dotInterval = 300 * time.Millisecond

// menuItem represents a single field or button in the editor window.
type menuItem struct {
	label    string
	value    string
	options  []menuOption
	required bool
	editing  bool
	cursor   int // cursor within options when editing
}

type menuOption struct {
	label string
	value string
}

// menuState tracks which phase the TUI is in.
type menuState int

const (
	stateMenu menuState = iota
	stateEditing
)

// menu item indices
const (
	idxCharacter = 0
	idxInput     = 1
	idxGenerate  = 2
	idxResponse  = 3
	idxSave      = 4
)

type generatedMsg dialogue.Result

type savedMsg struct {
	path string
	err  error
}

type tickMsg struct{}

// editorModel is the Bubble Tea model for the dialogue editor window.
type editorModel struct {
	ctx    context.Context
	cancel context.CancelFunc
	gen    *dialogue.Generator
	writer *record.Writer

	outputDir  string
	timeLayout string
	now        func() time.Time

	items      []menuItem
	cursor     int
	state      menuState
	width      int
	generating bool
	dots       int
	status     string
	err        error
	quitting   bool
}

// style constants
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			MarginBottom(1)

	menuLabelStyle = lipgloss.NewStyle().
			Width(14).
			Align(lipgloss.Right).
			MarginRight(2)

	menuValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	menuValueDimStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#555555")).
				Italic(true)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	requiredStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			Bold(true)

	optionStyle = lipgloss.NewStyle().
			PaddingLeft(4)

	selectedOptionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#04B575")).
				Bold(true).
				PaddingLeft(2)

	buttonStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 3)

	buttonDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555")).
			Padding(0, 3)

	waitingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F4B942")).
			Italic(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			Bold(true)

	headerBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("#7D56F4")).
			MarginBottom(1).
			PaddingBottom(0)
)

func buildMenuItems(catalog *dialogue.Catalog) []menuItem {
	var chars []menuOption
	for _, id := range catalog.IDs() {
		chars = append(chars, menuOption{label: id, value: id})
	}
	return []menuItem{
		{label: "Character", value: chars[0].value, options: chars, required: true},
		{label: "Player Input", value: defaultInput},
		{label: "Generate"},
		{label: "Response"},
		{label: "Save"},
	}
}

func newEditorModel(ctx context.Context, gen *dialogue.Generator, w *record.Writer, outputDir, timeLayout string) editorModel {
	ctx, cancel := context.WithCancel(ctx)
	return editorModel{
		ctx:        ctx,
		cancel:     cancel,
		gen:        gen,
		writer:     w,
		outputDir:  outputDir,
		timeLayout: timeLayout,
		now:        time.Now,
		items:      buildMenuItems(gen.Picker().Catalog()),
		cursor:     idxCharacter,
		state:      stateMenu,
	}
}

func (m editorModel) Init() tea.Cmd {
	return nil
}

func (m editorModel) isTextInput(idx int) bool {
	return idx == idxInput || idx == idxResponse
}

// lastIdx is the last reachable item; Save only exists with a response.
func (m editorModel) lastIdx() int {
	if m.canSave() {
		return idxSave
	}
	return idxResponse
}

func (m editorModel) canSave() bool {
	return strings.TrimSpace(m.items[idxResponse].value) != ""
}

func (m editorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		if !m.generating {
			return m, nil
		}
		m.dots = (m.dots + 1) % 4
		return m, tick()

	case generatedMsg:
		m.generating = false
		m.dots = 0
		if msg.Err != nil {
			m.err = fmt.Errorf("generation failed: %w", msg.Err)
			return m, nil
		}
		m.items[idxResponse].value = msg.Text
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.status = fmt.Sprintf("Dialogue saved as %s!", filepath.Base(msg.path))
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case stateMenu:
			return m.updateMenu(msg)
		case stateEditing:
			return m.updateEditing(msg)
		}
	}
	return m, nil
}

func (m editorModel) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		m.cancel()
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < m.lastIdx() {
			m.cursor++
		}

	case "enter", " ":
		switch {
		case m.cursor == idxGenerate:
			return m.startGeneration()
		case m.cursor == idxSave:
			return m.save()
		case m.isTextInput(m.cursor), len(m.items[m.cursor].options) > 0:
			m.state = stateEditing
			m.items[m.cursor].editing = true
			m.err = nil
			m.status = ""
		}
	}
	return m, nil
}

func (m editorModel) startGeneration() (tea.Model, tea.Cmd) {
	if m.generating {
		return m, nil
	}
	ch, err := m.gen.Start(m.ctx, m.items[idxCharacter].value)
	if err != nil {
		m.err = err
		return m, nil
	}
	m.generating = true
	m.dots = 0
	m.err = nil
	m.status = ""
	m.items[idxResponse].value = ""
	return m, tea.Batch(waitForResult(ch), tick())
}

func (m editorModel) save() (tea.Model, tea.Cmd) {
	if !m.canSave() {
		return m, nil
	}
	m.err = nil
	m.status = ""

	character := m.items[idxCharacter].value
	text := m.items[idxResponse].value
	ts := record.Timestamp(m.now(), m.timeLayout)
	w, dir := m.writer, m.outputDir
	return m, func() tea.Msg {
		path, err := w.Save(character, text, ts, dir)
		return savedMsg{path: path, err: err}
	}
}

func waitForResult(ch <-chan dialogue.Result) tea.Cmd {
	return func() tea.Msg {
		return generatedMsg(<-ch)
	}
}

func tick() tea.Cmd {
	return tea.Tick(dotInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m editorModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	idx := m.cursor
	item := &m.items[idx]

	if m.isTextInput(idx) {
		switch msg.String() {
		case "enter":
			item.editing = false
			m.state = stateMenu
			if m.cursor < m.lastIdx() {
				m.cursor++
			}
			return m, nil
		case "esc":
			item.editing = false
			m.state = stateMenu
			return m, nil
		case "backspace":
			if r := []rune(item.value); len(r) > 0 {
				item.value = string(r[:len(r)-1])
			}
			return m, nil
		case "ctrl+u":
			item.value = ""
			return m, nil
		default:
			// Accept typed characters and pasted text
			switch msg.Type {
			case tea.KeyRunes:
				item.value += string(msg.Runes)
			case tea.KeySpace:
				item.value += " "
			}
			return m, nil
		}
	}

	switch msg.String() {
	case "enter", " ":
		if item.cursor >= 0 && item.cursor < len(item.options) {
			item.value = item.options[item.cursor].value
		}
		item.editing = false
		m.state = stateMenu
		if m.cursor < m.lastIdx() {
			m.cursor++
		}
		return m, nil

	case "esc":
		item.editing = false
		m.state = stateMenu
		return m, nil

	case "up", "k":
		if item.cursor > 0 {
			item.cursor--
		}

	case "down", "j":
		if item.cursor < len(item.options)-1 {
			item.cursor++
		}
	}
	return m, nil
}

func (m editorModel) View() string {
	var b strings.Builder

	title := titleStyle.Render(windowTitle)
	b.WriteString(headerBorder.Render(title))
	b.WriteString("\n")

	for i, item := range m.items {
		isActive := m.cursor == i

		switch i {
		case idxGenerate:
			b.WriteString("\n")
			if m.generating {
				b.WriteString("  " + waitingStyle.Render(waitingDots(m.dots)))
			} else {
				b.WriteString("  " + button(" Generate ", isActive))
			}
			b.WriteString("\n\n")
			continue
		case idxSave:
			if !m.canSave() {
				continue
			}
			b.WriteString("\n  " + button(" Save ", isActive) + "\n")
			continue
		}

		cursor := "  "
		if isActive {
			cursor = cursorStyle.Render("> ")
		}

		label := item.label
		if item.required {
			label = label + requiredStyle.Render("*")
		}
		renderedLabel := menuLabelStyle.Render(label)

		var renderedValue string
		switch {
		case item.editing && m.isTextInput(i):
			renderedValue = menuValueStyle.Render(item.value + "_")
		case item.value == "":
			placeholder := "(not set)"
			switch i {
			case idxInput:
				placeholder = "(what does the player say?)"
			case idxResponse:
				placeholder = "(press Generate)"
			}
			renderedValue = menuValueDimStyle.Render(placeholder)
		default:
			renderedValue = menuValueStyle.Render(item.value)
		}

		b.WriteString(cursor + renderedLabel + " " + renderedValue + "\n")

		if item.editing && len(item.options) > 0 {
			for j, opt := range item.options {
				if j == item.cursor {
					b.WriteString(selectedOptionStyle.Render("> "+opt.label) + "\n")
				} else {
					b.WriteString(optionStyle.Render("  "+opt.label) + "\n")
				}
			}
		}
	}

	if m.status != "" {
		b.WriteString("\n" + statusStyle.Render("  "+m.status) + "\n")
	}
	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render("  Error: "+m.err.Error()) + "\n")
	}

	switch m.state {
	case stateMenu:
		b.WriteString(helpStyle.Render("  j/k or arrows to navigate | enter to edit or press | q to quit"))
	case stateEditing:
		if m.isTextInput(m.cursor) {
			b.WriteString(helpStyle.Render("  type value | enter to confirm | esc to cancel | ctrl+u to clear"))
		} else {
			b.WriteString(helpStyle.Render("  j/k or arrows to pick | enter to select | esc to cancel"))
		}
	}
	b.WriteString("\n")

	return b.String()
}

func button(label string, active bool) string {
	if active {
		return buttonStyle.Render(label)
	}
	return buttonDimStyle.Render(label)
}

// waitingDots animates the trailing dots of the waiting message.
func waitingDots(n int) string {
	return strings.TrimSuffix(waitingText, ".") + strings.Repeat(".", 1+n%3)
}

func runEditor(ctx context.Context, d *deps) error {
	m := newEditorModel(ctx, d.generator(), d.writer, d.cfg.OutputDir, d.cfg.TimeLayout)
	defer m.cancel()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
