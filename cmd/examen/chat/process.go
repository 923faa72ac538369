// This file contains the commands that bridge the TUI to the conversation
// controller. Each command runs on its own goroutine and reports back with a
// message; the controller serializes the actual state mutations.
package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// stateSyncedMsg reports completion of any operation that ends with a full
// re-synchronization: initialize, answer submission, new exercise.
type stateSyncedMsg struct {
	err error
}

// queryResolvedMsg reports a resolved (or failed) free-form query. Failures
// already appended a visible error message to the transcript.
type queryResolvedMsg struct {
	err error
}

// analysisRequestedMsg reports the synchronous part of the analysis request.
type analysisRequestedMsg struct {
	err error
}

// analysisJobDoneMsg arrives when the background analysis job is observed
// complete and the blocking indicator can be dismissed.
type analysisJobDoneMsg struct{}

func (m Model) initializeCmd() tea.Cmd {
	return func() tea.Msg {
		return stateSyncedMsg{err: m.ctrl.Initialize(context.Background())}
	}
}

func (m Model) submitAnswerCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return stateSyncedMsg{err: m.ctrl.SubmitAnswer(context.Background(), text)}
	}
}

func (m Model) freeQueryCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return queryResolvedMsg{err: m.ctrl.SubmitFreeQuery(context.Background(), text)}
	}
}

func (m Model) requestAnalysisCmd() tea.Cmd {
	return func() tea.Msg {
		return analysisRequestedMsg{err: m.ctrl.RequestAnalysis(context.Background())}
	}
}

// waitAnalysisCmd blocks until the controller signals that the background
// job finished. Issued right after a successful analysis request.
func (m Model) waitAnalysisCmd() tea.Cmd {
	done := m.ctrl.AnalysisDone()
	return func() tea.Msg {
		<-done
		return analysisJobDoneMsg{}
	}
}

func (m Model) startNewCmd() tea.Cmd {
	return func() tea.Msg {
		return stateSyncedMsg{err: m.ctrl.StartNewExercise(context.Background())}
	}
}
