// Package chat provides the interactive TUI for the daily examination of
// conscience. The chat functionality is split across files:
//   - model.go: types, construction, Init (this file)
//   - update.go: the bubbletea update loop
//   - view.go: rendering functions
//   - process.go: commands that invoke the conversation controller
//
// The TUI is purely presentational: it renders whatever state the
// conversation controller produces and calls its command functions.
package chat

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"examen/cmd/examen/ui"
	"examen/internal/cache"
	"examen/internal/config"
	"examen/internal/conversation"
	"examen/internal/gateway"
	"examen/internal/logging"
	"examen/internal/poller"
)

const inputHeight = 2

// Model is the bubbletea model for the chat interface.
type Model struct {
	ctrl *conversation.Controller

	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	styles   ui.Styles
	renderer *glamour.TermRenderer

	width  int
	height int
	ready  bool
	err    error
}

// NewModel wires the chat model around an existing controller.
func NewModel(ctrl *conversation.Controller, theme ui.Theme) Model {
	ta := textarea.New()
	ta.Placeholder = "Type your answer..."
	ta.ShowLineNumbers = false
	ta.SetHeight(inputHeight)
	ta.CharLimit = 0
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Accent)

	var renderer *glamour.TermRenderer
	style := glamour.WithStandardStyle("light")
	if theme.IsDark {
		style = glamour.WithStandardStyle("dark")
	}
	if r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(80)); err == nil {
		renderer = r
	}

	return Model{
		ctrl:     ctrl,
		textarea: ta,
		spinner:  sp,
		styles:   ui.NewStyles(theme),
		renderer: renderer,
	}
}

// Init starts the spinner and kicks off state restoration.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.initializeCmd())
}

// Run builds the whole stack (cache, gateway, poller, controller) from the
// configuration and runs the chat program until exit.
func Run(cfg *config.Config) error {
	sessionCache, err := cache.Open(cfg.Cache.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open session cache: %w", err)
	}
	defer sessionCache.Close()

	gw := gateway.NewHTTPClient(cfg.Gateway.BaseURL, cfg.GatewayTimeout())
	jobPoller := poller.New(cfg.PollInterval(), cfg.PollMaxWait())
	ctrl := conversation.New(gw, sessionCache, jobPoller)
	defer ctrl.Close()

	logging.Get(logging.CategoryUI).Info("starting chat TUI (backend=%s)", cfg.Gateway.BaseURL)
	model := NewModel(ctrl, ui.ThemeByName(cfg.UI.Theme))
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}
