package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examen/internal/types"
)

func newTestClient(t *testing.T, handler http.Handler) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL+"/api", 5*time.Second)
}

func TestCurrentStateInProgress(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/exame/current-state", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "in_progress",
			"history": [
				{"id": "q-1", "type": "ai", "content": "Did you pray?", "categoria": "Piety", "timestamp": "2026-03-14T08:00:00.123456"},
				{"id": "a-1", "type": "user", "content": "Yes", "timestamp": "2026-03-14T08:01:00"}
			],
			"next_question": {"id": "2", "categoria": "Charity", "texto": "Were you patient?"}
		}`))
	}))

	snap, err := client.CurrentState(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusInProgress, snap.Status)
	require.Len(t, snap.History, 2)
	assert.Equal(t, types.RoleAssistant, snap.History[0].Role)
	assert.Equal(t, "Piety", snap.History[0].Category)
	assert.Equal(t, types.RoleUser, snap.History[1].Role)
	assert.False(t, snap.History[0].Timestamp.IsZero())

	require.NotNil(t, snap.NextQuestion)
	assert.Equal(t, "2", snap.NextQuestion.ID)
	assert.Equal(t, "Charity", snap.NextQuestion.Category)
	assert.Equal(t, "Were you patient?", snap.NextQuestion.Text)
}

func TestCurrentStateCompleted(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "completed", "history": []}`))
	}))

	snap, err := client.CurrentState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Nil(t, snap.NextQuestion)
	assert.Empty(t, snap.History)
}

func TestSubmitAnswerPayload(t *testing.T) {
	var got map[string]string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/exame/submit-answer", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message": "saved"}`))
	}))

	err := client.SubmitAnswer(context.Background(), "7", "I was impatient twice")
	require.NoError(t, err)
	assert.Equal(t, "7", got["question_id"])
	assert.Equal(t, "I was impatient twice", got["answer"])
}

func TestQueryMapsAnswerAndSources(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/rag/query", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "What is grace?", body["question"])
		_, _ = w.Write([]byte(`{"answer": "Grace is...", "sources": "catechism.pdf (p. 3)"}`))
	}))

	res, err := client.Query(context.Background(), "What is grace?")
	require.NoError(t, err)
	assert.Equal(t, "Grace is...", res.Answer)
	assert.Equal(t, "catechism.pdf (p. 3)", res.Sources)
}

func TestAnalyze(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/exame/analyze", r.URL.Path)
		_, _ = w.Write([]byte(`{"analysis": "Keep persevering."}`))
	}))

	analysis, err := client.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Keep persevering.", analysis)
}

func TestJobStatus(t *testing.T) {
	status := "processing"
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/dashboard/status", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
	}))

	got, err := client.JobStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "processing", got)

	status = JobStatusIdle
	got, err = client.JobStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, JobStatusIdle, got)
}

func TestHealthDegradedBackend(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/system/health", r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status": "error", "errors": ["model not found"]}`))
	}))

	report, err := client.Health(context.Background())
	require.NoError(t, err, "degraded health is a report, not a transport error")
	assert.Equal(t, "error", report.Status)
	assert.Equal(t, []string{"model not found"}, report.Errors)
}

func TestProgress(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/dashboard/progress", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"chartData": [{"day": "Mon", "sins": 2, "virtues": 5}],
			"summary": {"totalSessions": 12, "dailyImprovement": 50, "consecutiveDays": 4}
		}`))
	}))

	report, err := client.Progress(context.Background())
	require.NoError(t, err)
	require.Len(t, report.ChartData, 1)
	assert.Equal(t, DayStat{Day: "Mon", Sins: 2, Virtues: 5}, report.ChartData[0])
	assert.Equal(t, 12, report.Summary.TotalSessions)
	assert.Equal(t, 4, report.Summary.ConsecutiveDays)
}

func TestUnexpectedStatusIsError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.CurrentState(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestParseTimestamp(t *testing.T) {
	t.Run("rfc3339", func(t *testing.T) {
		got := parseTimestamp("2026-03-14T08:00:00Z")
		assert.Equal(t, time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC), got.UTC())
	})
	t.Run("zoneless iso", func(t *testing.T) {
		got := parseTimestamp("2026-03-14T08:00:00.500000")
		want := time.Date(2026, 3, 14, 8, 0, 0, 500000000, time.Local)
		assert.True(t, got.Equal(want), "got %v want %v", got, want)
	})
	t.Run("garbage falls back to now", func(t *testing.T) {
		got := parseTimestamp("not-a-time")
		assert.WithinDuration(t, time.Now(), got, time.Minute)
	})
}
