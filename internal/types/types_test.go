package types

import (
	"testing"
	"time"
)

func TestRemoveMessage(t *testing.T) {
	s := ConversationState{Messages: []Message{
		{ID: "a", Role: RoleUser, Content: "one"},
		{ID: MsgIDQueryPending, Role: RoleAssistant, Pending: true},
		{ID: "b", Role: RoleAssistant, Content: "two"},
	}}

	if !s.RemoveMessage(MsgIDQueryPending) {
		t.Fatal("expected placeholder to be removed")
	}
	if len(s.Messages) != 2 {
		t.Fatalf("expected 2 messages after removal, got %d", len(s.Messages))
	}
	for _, m := range s.Messages {
		if m.Pending {
			t.Error("pending message survived removal")
		}
	}
	if s.RemoveMessage(MsgIDQueryPending) {
		t.Error("second removal should report nothing removed")
	}
}

func TestHasAnalysis(t *testing.T) {
	s := ConversationState{Messages: []Message{{ID: "q-1"}, {ID: "a-1"}}}
	if s.HasAnalysis() {
		t.Error("transcript without analysis markers reported HasAnalysis")
	}
	s.Messages = append(s.Messages, Message{ID: MsgIDAnalysisResult})
	if !s.HasAnalysis() {
		t.Error("analysis result marker not detected")
	}

	s2 := ConversationState{Messages: []Message{{ID: MsgIDModeSwitch}}}
	if !s2.HasAnalysis() {
		t.Error("mode-switch marker not detected")
	}
}

func TestCloneIsDeep(t *testing.T) {
	q := &Question{ID: "q1", Category: "Humility", Text: "..."}
	s := ConversationState{
		Messages:        []Message{{ID: "a", Content: "orig", Timestamp: time.Now()}},
		Mode:            ModeGuided,
		CurrentQuestion: q,
	}

	clone := s.Clone()
	clone.Messages[0].Content = "changed"
	clone.CurrentQuestion.Text = "changed"

	if s.Messages[0].Content != "orig" {
		t.Error("clone shares message backing array with original")
	}
	if s.CurrentQuestion.Text != "..." {
		t.Error("clone shares current question with original")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		state   ConversationState
		wantErr bool
	}{
		{"guided in progress with question", ConversationState{Mode: ModeGuided, CurrentQuestion: &Question{ID: "q"}}, false},
		{"guided in progress without question", ConversationState{Mode: ModeGuided}, true},
		{"guided completed without question", ConversationState{Mode: ModeGuided, Completed: true}, false},
		{"guided completed with question", ConversationState{Mode: ModeGuided, Completed: true, CurrentQuestion: &Question{ID: "q"}}, true},
		{"free query without question", ConversationState{Mode: ModeFreeQuery, Completed: true}, false},
		{"free query with question", ConversationState{Mode: ModeFreeQuery, Completed: true, CurrentQuestion: &Question{ID: "q"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.state.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
