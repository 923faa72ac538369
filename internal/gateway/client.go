// Package gateway implements the HTTP client for the examination backend.
// The backend owns the question bank, the analysis generation, and the
// progress statistics; this package only speaks its wire contract and maps
// the responses onto the internal data model.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"examen/internal/logging"
	"examen/internal/types"
)

// Exam status values returned by the current-state endpoint.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// JobStatusIdle is reported by the job-status endpoint once the background
// analysis job has finished.
const JobStatusIdle = "idle"

// StateSnapshot is the backend's authoritative view of the exam session.
type StateSnapshot struct {
	Status       string
	History      []types.Message
	NextQuestion *types.Question
}

// HealthReport is the backend self-check result.
type HealthReport struct {
	Status string
	Errors []string
}

// QueryResult is the answer to a free-form doctrine question.
type QueryResult struct {
	Answer  string
	Sources string
}

// DayStat is one day of aggregated examination results.
type DayStat struct {
	Day     string `json:"day"`
	Sins    int    `json:"sins"`
	Virtues int    `json:"virtues"`
}

// ProgressSummary aggregates long-term examination statistics.
type ProgressSummary struct {
	TotalSessions    int `json:"totalSessions"`
	DailyImprovement int `json:"dailyImprovement"`
	ConsecutiveDays  int `json:"consecutiveDays"`
}

// ProgressReport is the dashboard payload: a 7-day chart plus summary.
type ProgressReport struct {
	ChartData []DayStat       `json:"chartData"`
	Summary   ProgressSummary `json:"summary"`
}

// Client is the backend gateway consumed by the conversation controller.
type Client interface {
	Health(ctx context.Context) (HealthReport, error)
	CurrentState(ctx context.Context) (StateSnapshot, error)
	SubmitAnswer(ctx context.Context, questionID, answer string) error
	StartNew(ctx context.Context) error
	Analyze(ctx context.Context) (string, error)
	Query(ctx context.Context, question string) (QueryResult, error)
	JobStatus(ctx context.Context) (string, error)
	Progress(ctx context.Context) (ProgressReport, error)
}

// HTTPClient talks JSON over HTTP to the backend.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient builds a client for the given base URL (e.g.
// "http://localhost:5000/api").
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Wire DTOs. The backend predates this client and uses its own field names
// ("categoria", "texto") and the role values "user"/"ai".

type wireQuestion struct {
	ID       string `json:"id"`
	Category string `json:"categoria"`
	Text     string `json:"texto"`
}

type wireMessage struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Content   string `json:"content"`
	Category  string `json:"categoria"`
	Timestamp string `json:"timestamp"`
}

type wireState struct {
	Status       string        `json:"status"`
	History      []wireMessage `json:"history"`
	NextQuestion *wireQuestion `json:"next_question"`
}

func (q *wireQuestion) toQuestion() *types.Question {
	if q == nil {
		return nil
	}
	return &types.Question{ID: q.ID, Category: q.Category, Text: q.Text}
}

func (m wireMessage) toMessage() types.Message {
	role := types.RoleAssistant
	if m.Type == "user" {
		role = types.RoleUser
	}
	return types.Message{
		ID:        m.ID,
		Role:      role,
		Content:   m.Content,
		Category:  m.Category,
		Timestamp: parseTimestamp(m.Timestamp),
	}
}

// parseTimestamp accepts RFC 3339 or the backend's zone-less ISO form
// (datetime.isoformat) interpreted in local time. Unparseable values fall
// back to now so a bad timestamp never breaks hydration.
func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", s, time.Local); err == nil {
		return t
	}
	return time.Now()
}

// Health calls the backend self-check endpoint. A degraded backend responds
// non-2xx with an error list; that is reported in the HealthReport, not as a
// transport error.
func (c *HTTPClient) Health(ctx context.Context) (HealthReport, error) {
	var body struct {
		Status string   `json:"status"`
		Errors []string `json:"errors"`
	}
	if err := c.get(ctx, "/system/health", &body, true); err != nil {
		return HealthReport{}, err
	}
	return HealthReport{Status: body.Status, Errors: body.Errors}, nil
}

// CurrentState fetches the authoritative exam state: full history plus, when
// in progress, the next question to ask.
func (c *HTTPClient) CurrentState(ctx context.Context) (StateSnapshot, error) {
	var body wireState
	if err := c.get(ctx, "/exame/current-state", &body, false); err != nil {
		return StateSnapshot{}, err
	}

	snap := StateSnapshot{
		Status:       body.Status,
		NextQuestion: body.NextQuestion.toQuestion(),
	}
	for _, m := range body.History {
		snap.History = append(snap.History, m.toMessage())
	}
	logging.GatewayDebug("current-state: status=%s history=%d", snap.Status, len(snap.History))
	return snap, nil
}

// SubmitAnswer records the answer to a guided question. The response body is
// an opaque ack; callers re-fetch the current state afterward.
func (c *HTTPClient) SubmitAnswer(ctx context.Context, questionID, answer string) error {
	payload := map[string]string{"question_id": questionID, "answer": answer}
	return c.post(ctx, "/exame/submit-answer", payload, nil)
}

// StartNew discards the backend's saved answers and begins a fresh exam.
func (c *HTTPClient) StartNew(ctx context.Context) error {
	return c.post(ctx, "/exame/start-new", nil, nil)
}

// Analyze runs the examination analysis and returns the generated text. The
// backend also kicks off an out-of-band progress-aggregation job whose
// completion is observed via JobStatus.
func (c *HTTPClient) Analyze(ctx context.Context) (string, error) {
	var body struct {
		Analysis string `json:"analysis"`
	}
	if err := c.post(ctx, "/exame/analyze", nil, &body); err != nil {
		return "", err
	}
	return body.Analysis, nil
}

// Query asks a free-form doctrine question.
func (c *HTTPClient) Query(ctx context.Context, question string) (QueryResult, error) {
	var body struct {
		Answer  string `json:"answer"`
		Sources string `json:"sources"`
	}
	if err := c.post(ctx, "/rag/query", map[string]string{"question": question}, &body); err != nil {
		return QueryResult{}, err
	}
	return QueryResult{Answer: body.Answer, Sources: body.Sources}, nil
}

// JobStatus reports the state of the background analysis job: "idle" once
// done, any other value while busy.
func (c *HTTPClient) JobStatus(ctx context.Context) (string, error) {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/dashboard/status", &body, false); err != nil {
		return "", err
	}
	return body.Status, nil
}

// Progress fetches the aggregated dashboard statistics.
func (c *HTTPClient) Progress(ctx context.Context) (ProgressReport, error) {
	var body ProgressReport
	if err := c.get(ctx, "/dashboard/progress", &body, false); err != nil {
		return ProgressReport{}, err
	}
	return body, nil
}

// get issues a GET and decodes the JSON response into out. When lenient is
// true, non-2xx responses are still decoded (the health endpoint reports
// failures with a 500 and a JSON body).
func (c *HTTPClient) get(ctx context.Context, path string, out interface{}, lenient bool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("gateway: build request %s: %w", path, err)
	}
	return c.do(req, out, lenient)
}

// post issues a POST with an optional JSON payload and decodes the response
// into out when out is non-nil.
func (c *HTTPClient) post(ctx context.Context, path string, payload, out interface{}) error {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("gateway: encode request %s: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("gateway: build request %s: %w", path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out, false)
}

func (c *HTTPClient) do(req *http.Request, out interface{}, lenient bool) error {
	logging.GatewayDebug("%s %s", req.Method, req.URL.Path)
	resp, err := c.http.Do(req)
	if err != nil {
		logging.Get(logging.CategoryGateway).Error("%s %s failed: %v", req.Method, req.URL.Path, err)
		return fmt.Errorf("gateway: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if !lenient && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("gateway: %s %s: unexpected status %d", req.Method, req.URL.Path, resp.StatusCode)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gateway: %s %s: decode response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}
