// This file contains view rendering for the chat interface.
package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"examen/internal/conversation"
	"examen/internal/types"
)

const defaultCategory = "Examination of Conscience"

// View renders the full interface: header, transcript, and the footer that
// matches the current phase.
func (m Model) View() string {
	if !m.ready {
		return m.spinner.View() + " Preparing..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	if m.ctrl.Phase() == conversation.PhaseAnalysisPending {
		return m.overlayPopup(b.String())
	}
	return b.String()
}

func (m Model) renderHeader() string {
	title := m.styles.Bold.Render("Examen")
	subtitle := m.styles.Muted.Render(" · daily examination of conscience")
	return title + subtitle
}

func (m Model) renderFooter() string {
	phase := m.ctrl.Phase()
	state := m.ctrl.State()

	switch phase {
	case conversation.PhaseLoading:
		hint := "connecting to the backend..."
		if m.err != nil {
			return m.styles.ErrorText.Render(
				"Cannot reach the examination service: "+m.err.Error()) + "\n" +
				m.styles.FooterHint.Render("check the backend and restart · ctrl+c: quit")
		}
		return m.spinner.View() + " " + m.styles.Muted.Render(hint)

	case conversation.PhaseGuidedSubmitting, conversation.PhaseFreeQueryWaiting,
		conversation.PhaseAnalysisPending:
		return m.spinner.View() + " " + m.styles.Muted.Render("waiting for the assistant...") + "\n" +
			m.styles.FooterHint.Render("ctrl+c: quit")

	case conversation.PhaseGuidedAwaitingInput:
		if state.Completed {
			return m.styles.Bold.Render("Exam complete!") + "\n" +
				m.styles.FooterHint.Render("enter: view the analysis · ctrl+n: start a new exam · ctrl+c: quit")
		}
	}

	m.textarea.Placeholder = placeholderFor(state)
	frame := m.styles.InputFrame.Width(m.width - 2).Render(m.textarea.View())
	return frame + "\n" + m.styles.FooterHint.Render("enter: send · ctrl+n: new exam · ctrl+c: quit")
}

// renderHistory renders the transcript: user turns, assistant turns with
// their category label, and typing indicators for pending turns.
func (m Model) renderHistory() string {
	state := m.ctrl.State()
	var sb strings.Builder

	for _, msg := range state.Messages {
		switch msg.Role {
		case types.RoleUser:
			sb.WriteString(m.styles.UserLabel.Render("You") + m.renderTime(msg) + "\n")
			sb.WriteString(m.styles.UserText.Render(msg.Content))
			sb.WriteString("\n")

		default:
			category := msg.Category
			if category == "" {
				category = defaultCategory
			}
			sb.WriteString(m.styles.Assistant.Render(category) + m.renderTime(msg) + "\n")
			if msg.Pending {
				sb.WriteString(m.spinner.View() + m.styles.Muted.Render(" typing..."))
				sb.WriteString("\n")
				continue
			}
			sb.WriteString(m.safeRenderMarkdown(msg.Content))
			sb.WriteString("\n")
		}
	}

	if len(state.Messages) == 0 && m.err == nil {
		sb.WriteString(m.styles.Muted.Render("No conversation yet."))
	}
	return sb.String()
}

func (m Model) renderTime(msg types.Message) string {
	return m.styles.Muted.Render("  " + msg.Timestamp.Format("15:04"))
}

// safeRenderMarkdown renders markdown with panic recovery; glamour can choke
// on odd model output, in which case the plain text is shown.
func (m Model) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = content
		}
	}()
	if m.renderer != nil && content != "" {
		if rendered, err := m.renderer.Render(content); err == nil {
			return rendered
		}
	}
	return content
}

// overlayPopup replaces the view with the centered blocking "still
// analyzing" indicator until the background job is observed complete.
func (m Model) overlayPopup(_ string) string {
	popup := m.styles.Popup.Render(fmt.Sprintf(
		"%s The assistant is analyzing your answers...\n%s",
		m.spinner.View(),
		m.styles.Muted.Render("This can take a while; progress is tracked in the background."),
	))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, popup,
		lipgloss.WithWhitespaceChars(" "), lipgloss.WithWhitespaceForeground(m.styles.Theme.Muted))
}
