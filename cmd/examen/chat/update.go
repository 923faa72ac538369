// This file contains the bubbletea update loop for the chat interface.
package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"examen/internal/conversation"
	"examen/internal/logging"
	"examen/internal/types"
)

// Update handles incoming events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		headerHeight := 2
		footerHeight := inputHeight + 4
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
		m.textarea.SetWidth(msg.Width - 4)
		m.refreshTranscript()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.ctrl.Close()
			return m, tea.Quit
		case tea.KeyCtrlN:
			if !m.ctrl.Loading() {
				m.refreshTranscript()
				return m, m.startNewCmd()
			}
			return m, nil
		case tea.KeyEnter:
			return m.handleEnter()
		}

	case stateSyncedMsg:
		m.err = msg.err
		m.refreshTranscript()
		return m, nil

	case queryResolvedMsg:
		// Failures already left an error message in the transcript.
		m.refreshTranscript()
		return m, nil

	case analysisRequestedMsg:
		m.err = msg.err
		m.refreshTranscript()
		if msg.err == nil {
			// The analysis succeeded; wait for the background job so the
			// blocking indicator can be dismissed.
			return m, m.waitAnalysisCmd()
		}
		return m, nil

	case analysisJobDoneMsg:
		m.refreshTranscript()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// handleEnter dispatches the enter key by controller phase: submit an
// answer, send a free query, or request the analysis once the exam is
// complete.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	phase := m.ctrl.Phase()
	state := m.ctrl.State()
	logging.Controller("enter dispatched (phase=%s)", phase)

	switch phase {
	case conversation.PhaseGuidedAwaitingInput:
		if state.Completed {
			// Exam finished but not yet analyzed: enter triggers the
			// analysis.
			m.refreshTranscript()
			return m, m.requestAnalysisCmd()
		}
		text := strings.TrimSpace(m.textarea.Value())
		if text == "" {
			return m, nil
		}
		m.textarea.Reset()
		m.refreshTranscript()
		return m, m.submitAnswerCmd(text)

	case conversation.PhaseFreeQueryIdle:
		text := strings.TrimSpace(m.textarea.Value())
		if text == "" {
			return m, nil
		}
		m.textarea.Reset()
		m.refreshTranscript()
		return m, m.freeQueryCmd(text)
	}

	// Loading, submitting, waiting, or analysis pending: duplicate
	// submissions are dropped.
	return m, nil
}

// refreshTranscript re-renders the history into the viewport and follows
// the newest message.
func (m *Model) refreshTranscript() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

// placeholderFor returns the input placeholder for the active mode.
func placeholderFor(state types.ConversationState) string {
	if state.Mode == types.ModeFreeQuery {
		return "Ask about the Doctrine..."
	}
	return "Type your answer..."
}
