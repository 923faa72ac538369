// Package types defines the shared data model for the examen front end:
// transcript messages, guided-exercise questions, and the full conversation
// snapshot that is persisted locally and synchronized with the backend.
package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a transcript message.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Mode is the active interaction mode of the conversation.
type Mode string

const (
	// ModeGuided is the fixed-sequence examination phase.
	ModeGuided Mode = "guided"
	// ModeFreeQuery is the open-ended doctrine Q&A phase that follows the
	// examination. The transition guided -> free_query is one-way; only an
	// explicit reset goes back.
	ModeFreeQuery Mode = "free_query"
)

// Sentinel message IDs. The analysis result and the mode-switch announcement
// keep fixed IDs so a restored or re-fetched transcript reveals whether the
// analysis already happened. The *Pending IDs mark transient placeholders
// that are replaced in place and never persisted as final answers.
const (
	MsgIDAnalysisResult  = "analysis-result"
	MsgIDModeSwitch      = "rag-guidance"
	MsgIDAnalysisPending = "analysis-loading"
	MsgIDQueryPending    = "rag-loading"
)

// Categories attached to assistant messages generated on the client side.
const (
	CategoryDoctrine   = "Doctrine Assistant"
	CategoryModeSwitch = "Query Mode Enabled"
	CategoryError      = "System Error"
)

// Message is one turn in the transcript.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Category  string    `json:"category,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Pending   bool      `json:"pending,omitempty"`
}

// Question is a single guided-exercise prompt.
type Question struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Text     string `json:"text"`
}

// ConversationState is the full in-memory and persisted snapshot of a
// conversation. Messages are chronological and append-only within a session,
// except for pending placeholders which are replaced in place.
type ConversationState struct {
	Messages        []Message `json:"messages"`
	Completed       bool      `json:"completed"`
	Mode            Mode      `json:"mode"`
	CurrentQuestion *Question `json:"current_question,omitempty"`
}

// NewUserMessage builds a user turn stamped now.
func NewUserMessage(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewAssistantMessage builds an assistant turn stamped now. An empty id gets
// a generated one.
func NewAssistantMessage(id, content, category string) Message {
	if id == "" {
		id = uuid.NewString()
	}
	return Message{
		ID:        id,
		Role:      RoleAssistant,
		Content:   content,
		Category:  category,
		Timestamp: time.Now(),
	}
}

// LastMessage returns the most recent message, or false when the transcript
// is empty.
func (s *ConversationState) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// HasAnalysis reports whether the transcript already contains the analysis
// result or the mode-switch announcement from a previous analysis run.
func (s *ConversationState) HasAnalysis() bool {
	for _, m := range s.Messages {
		if m.ID == MsgIDAnalysisResult || m.ID == MsgIDModeSwitch {
			return true
		}
	}
	return false
}

// RemoveMessage deletes every message with the given id and reports whether
// anything was removed. Used to retire pending placeholders.
func (s *ConversationState) RemoveMessage(id string) bool {
	kept := s.Messages[:0]
	removed := false
	for _, m := range s.Messages {
		if m.ID == id {
			removed = true
			continue
		}
		kept = append(kept, m)
	}
	s.Messages = kept
	return removed
}

// Clone returns a deep copy safe to hand to the presentation layer.
func (s *ConversationState) Clone() ConversationState {
	out := ConversationState{
		Completed: s.Completed,
		Mode:      s.Mode,
	}
	if len(s.Messages) > 0 {
		out.Messages = make([]Message, len(s.Messages))
		copy(out.Messages, s.Messages)
	}
	if s.CurrentQuestion != nil {
		q := *s.CurrentQuestion
		out.CurrentQuestion = &q
	}
	return out
}

// Validate checks the structural invariant: a current question is present
// iff the conversation is in guided mode and not yet completed.
func (s *ConversationState) Validate() error {
	wantQuestion := s.Mode == ModeGuided && !s.Completed
	if wantQuestion && s.CurrentQuestion == nil {
		return fmt.Errorf("guided in-progress state is missing a current question")
	}
	if !wantQuestion && s.CurrentQuestion != nil {
		return fmt.Errorf("current question present outside guided in-progress state (mode=%s completed=%v)", s.Mode, s.Completed)
	}
	return nil
}
