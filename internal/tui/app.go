// Package tui is the terminal front end for the review session. It follows
// The Elm Architecture: the App model holds all state, Update reacts to
// messages, View renders the current state to a string.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/models"
	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/session"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

// generatedMsg carries a generation result back into the update loop.
type generatedMsg struct {
	candidate string
	err       error
}

// savedMsg carries a save result back into the update loop.
type savedMsg struct {
	result models.SaveResult
	err    error
}

type styles struct {
	title   lipgloss.Style
	label   lipgloss.Style
	status  lipgloss.Style
	errText lipgloss.Style
	box     lipgloss.Style
}

func newStyles(theme string) styles {
	accent := lipgloss.Color("220") // yellow, like the light-theme mark
	if theme == "dark" {
		accent = lipgloss.Color("208") // orange
	}
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(accent),
		label:   lipgloss.NewStyle().Bold(true),
		status:  lipgloss.NewStyle().Foreground(accent),
		errText: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		box:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}
}

// App is the terminal review form. It drives the same session controller as
// the web handler, one action at a time.
type App struct {
	ctrl   *session.Controller
	logger *zap.Logger
	styles styles

	editor     textarea.Model
	view       models.RecordView
	candidate  string
	statusLine string
	errLine    string
	generating bool
	completed  bool

	width  int
	height int
}

// New builds the TUI app over an initialized controller.
func New(ctrl *session.Controller, theme string, logger *zap.Logger) *App {
	editor := textarea.New()
	editor.Placeholder = "Edited conversation JSON..."
	editor.CharLimit = 0
	editor.SetHeight(10)
	editor.Focus()

	a := &App{
		ctrl:   ctrl,
		logger: logger,
		styles: newStyles(theme),
		editor: editor,
	}
	a.showRecord(ctrl.Current())
	return a
}

// showRecord refreshes the form from a record view.
func (a *App) showRecord(view models.RecordView) {
	a.view = view
	a.candidate = view.Candidate
	a.statusLine = view.Status
	a.errLine = ""
	a.completed = view.Completed
	a.editor.SetValue(view.Annotated)
	if a.completed {
		a.editor.Blur()
	} else if !a.editor.Focused() {
		a.editor.Focus()
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return textarea.Blink
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.editor.SetWidth(msg.Width - 4)
		return a, nil

	case generatedMsg:
		a.generating = false
		if msg.err != nil {
			a.errLine = fmt.Sprintf("Generation failed: %v", msg.err)
			return a, nil
		}
		a.candidate = msg.candidate
		a.statusLine = "New conversation generated."
		return a, nil

	case savedMsg:
		if msg.err != nil {
			a.errLine = fmt.Sprintf("Save failed: %v", msg.err)
			return a, nil
		}
		a.showRecord(msg.result.Record)
		a.statusLine = msg.result.Status
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return a, tea.Quit

		case "ctrl+s":
			if a.completed {
				a.errLine = "Session already completed."
				return a, nil
			}
			edited := a.editor.Value()
			return a, func() tea.Msg {
				result, err := a.ctrl.Save(edited)
				return savedMsg{result: result, err: err}
			}

		case "ctrl+g":
			if a.generating {
				return a, nil
			}
			a.generating = true
			a.errLine = ""
			a.statusLine = "Generating..."
			return a, func() tea.Msg {
				candidate, err := a.ctrl.Generate(context.Background())
				return generatedMsg{candidate: candidate, err: err}
			}

		case "ctrl+n":
			a.showRecord(a.ctrl.Advance())
			return a, nil

		case "ctrl+p":
			a.showRecord(a.ctrl.Retreat())
			return a, nil
		}
	}

	var cmd tea.Cmd
	a.editor, cmd = a.editor.Update(msg)
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(a.styles.title.Render(
		fmt.Sprintf("Dialogue Annotation Tool - Annotator: %s", a.ctrl.Annotator())))
	b.WriteString("\n\n")

	if a.view.Title != "" {
		b.WriteString(a.styles.label.Render("Title: "))
		b.WriteString(a.view.Title)
		b.WriteString("\n")
	}
	if a.view.Style != "" {
		b.WriteString(a.styles.label.Render("Style: "))
		b.WriteString(a.view.Style)
		b.WriteString("\n")
	}
	if a.view.Starter != "" {
		b.WriteString(a.styles.label.Render("Starter: "))
		b.WriteString(a.view.Starter)
		b.WriteString("\n")
	}

	b.WriteString(a.styles.label.Render("Context:"))
	b.WriteString("\n")
	b.WriteString(a.styles.box.Render(truncateLines(a.view.Context, 8)))
	b.WriteString("\n\n")

	if a.completed {
		b.WriteString(a.styles.status.Render(a.statusLine))
		b.WriteString("\n\n")
	} else {
		b.WriteString(a.styles.label.Render("Annotated conversation:"))
		b.WriteString("\n")
		b.WriteString(a.editor.View())
		b.WriteString("\n")
	}

	if a.candidate != "" {
		b.WriteString(a.styles.label.Render("New candidate:"))
		b.WriteString("\n")
		b.WriteString(a.styles.box.Render(truncateLines(a.candidate, 8)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(a.styles.status.Render(a.statusLine))
	b.WriteString("\n")
	if a.errLine != "" {
		b.WriteString(a.styles.errText.Render(a.errLine))
		b.WriteString("\n")
	}

	b.WriteString("\nctrl+s save  ctrl+g generate  ctrl+n next  ctrl+p previous  esc quit\n")
	return b.String()
}

// truncateLines keeps the first n lines of text, appending an ellipsis line
// when content was cut.
func truncateLines(text string, n int) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= n {
		return text
	}
	return strings.Join(lines[:n], "\n") + "\n..."
}
