package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/revise/internal/output"
	"github.com/manav03panchal/revise/internal/runtime"
)

// Saturday morning.
var now = time.Date(2024, 6, 15, 10, 0, 0, 0, time.Local)

func setupServer(t *testing.T) (*runtime.Context, http.Handler) {
	t.Helper()
	rt, err := runtime.New(context.Background(), runtime.Options{
		InMemory: true,
		Now:      func() time.Time { return now },
	})
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close() })
	return rt, New(rt.Engine).Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createTopic(t *testing.T, h http.Handler, body map[string]string) *output.TopicOutput {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/topics", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[output.TopicResponse](t, rec).Topic
}

// =============================================================================
// Topic Tests
// =============================================================================

func TestHealth(t *testing.T) {
	_, h := setupServer(t)
	rec := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))
}

func TestCreateTopicDefaultStrategy(t *testing.T) {
	rt, h := setupServer(t)

	topic := createTopic(t, h, map[string]string{"name": "Graph theory"})
	assert.Equal(t, "Graph theory", topic.Name)
	require.NotNil(t, topic.NextRevisionDate)
	assert.Equal(t, "2024-06-16", *topic.NextRevisionDate)

	strategies, err := rt.Engine.ListStrategies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, strategies[0].ID, topic.StrategyID)
}

func TestCreateTopicWithStrategyName(t *testing.T) {
	rt, h := setupServer(t)

	topic := createTopic(t, h, map[string]string{"name": "Organic chemistry", "strategyId": "exam prep"})
	st, err := rt.Engine.GetStrategy(context.Background(), "Exam Prep")
	require.NoError(t, err)
	assert.Equal(t, st.ID, topic.StrategyID)
	assert.Equal(t, []string{"2024-06-16", "2024-06-16", "2024-06-17", "2024-06-18", "2024-06-20", "2024-06-23"},
		topic.RevisionDates)
}

func TestCreateTopicBackdated(t *testing.T) {
	_, h := setupServer(t)

	topic := createTopic(t, h, map[string]string{"name": "Graphs", "createdAt": "2024-06-10"})
	assert.Equal(t, "2024-06-10", topic.CreatedAt[:10])
	require.NotNil(t, topic.NextRevisionDate)
	assert.Equal(t, "2024-06-17", *topic.NextRevisionDate, "missed days are skipped")
	assert.Equal(t, "upcoming", topic.Status)
}

func TestCreateTopicRejected(t *testing.T) {
	_, h := setupServer(t)

	tests := []struct {
		name   string
		body   any
		status int
		errMsg string
	}{
		{"missing_name", map[string]string{}, http.StatusBadRequest, "name is required"},
		{"blank_name", map[string]string{"name": "   "}, http.StatusBadRequest, "topic name is required"},
		{"unknown_field", `{"name":"x","colour":"red"}`, http.StatusBadRequest, "invalid request body"},
		{"not_json", `name=x`, http.StatusBadRequest, "invalid request body"},
		{"bad_day", map[string]string{"name": "x", "createdAt": "blorptastic"}, http.StatusBadRequest, "could not parse day"},
		{"unknown_strategy", map[string]string{"name": "x", "strategyId": "nope"}, http.StatusNotFound, "strategy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/topics", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			resp := decodeBody[output.ErrorResponse](t, rec)
			assert.Equal(t, "error", resp.Status)
			assert.Contains(t, resp.Error, tt.errMsg)
		})
	}
}

func TestGetTopic(t *testing.T) {
	_, h := setupServer(t)
	created := createTopic(t, h, map[string]string{"name": "Graphs"})

	for _, ref := range []string{created.ID, created.ID[:8], "graphs"} {
		rec := do(t, h, http.MethodGet, "/api/topics/"+ref, nil)
		require.Equal(t, http.StatusOK, rec.Code, ref)
		assert.Equal(t, created.ID, decodeBody[output.TopicResponse](t, rec).Topic.ID)
	}

	rec := do(t, h, http.MethodGet, "/api/topics/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTopics(t *testing.T) {
	_, h := setupServer(t)
	createTopic(t, h, map[string]string{"name": "Trees"})
	createTopic(t, h, map[string]string{"name": "Graphs", "createdAt": "2024-06-01"})

	rec := do(t, h, http.MethodGet, "/api/topics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[output.TopicsResponse](t, rec)
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Topics, 2)
	assert.Equal(t, "Graphs", resp.Topics[0].Name, "earliest next due first")
}

func TestMarkRevised(t *testing.T) {
	_, h := setupServer(t)
	created := createTopic(t, h, map[string]string{"name": "Graphs", "createdAt": "2024-06-01"})
	require.NotNil(t, created.NextRevisionDate)
	assert.Equal(t, "2024-06-15", *created.NextRevisionDate)

	rec := do(t, h, http.MethodPost, "/api/topics/"+created.ID+"/revise", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[output.TopicResponse](t, rec)
	assert.Equal(t, "revised", resp.Status)
	require.NotNil(t, resp.Topic.LastRevisedDate)
	assert.Equal(t, "2024-06-15", *resp.Topic.LastRevisedDate)
	require.NotNil(t, resp.Topic.NextRevisionDate)
	assert.Equal(t, "2024-07-01", *resp.Topic.NextRevisionDate)

	rec = do(t, h, http.MethodGet, "/api/topics/"+created.ID+"/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decodeBody[HistoryResponse](t, rec)
	require.Len(t, history.Instances, 2)
	assert.True(t, history.Instances[0].IsCompleted)
	assert.False(t, history.Instances[1].IsCompleted)
}

func TestRenameTopic(t *testing.T) {
	_, h := setupServer(t)
	created := createTopic(t, h, map[string]string{"name": "Grpahs"})

	rec := do(t, h, http.MethodPatch, "/api/topics/"+created.ID, map[string]string{"name": "Graphs"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Graphs", decodeBody[output.TopicResponse](t, rec).Topic.Name)

	rec = do(t, h, http.MethodPatch, "/api/topics/"+created.ID, map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChangeStrategy(t *testing.T) {
	_, h := setupServer(t)
	created := createTopic(t, h, map[string]string{"name": "Graphs", "createdAt": "2024-06-10"})

	rec := do(t, h, http.MethodPut, "/api/topics/"+created.ID+"/strategy", map[string]string{"strategyId": "Short Term"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	topic := decodeBody[output.TopicResponse](t, rec).Topic
	assert.NotEqual(t, created.StrategyID, topic.StrategyID)
	assert.Equal(t, []string{"2024-06-11", "2024-06-12", "2024-06-14", "2024-06-17", "2024-06-22"}, topic.RevisionDates)

	rec = do(t, h, http.MethodPut, "/api/topics/"+created.ID+"/strategy", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteTopic(t *testing.T) {
	_, h := setupServer(t)
	created := createTopic(t, h, map[string]string{"name": "Graphs"})

	rec := do(t, h, http.MethodDelete, "/api/topics/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/topics/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, h, http.MethodDelete, "/api/topics/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// Query Tests
// =============================================================================

func TestDue(t *testing.T) {
	_, h := setupServer(t)
	createTopic(t, h, map[string]string{"name": "Trees"})
	createTopic(t, h, map[string]string{"name": "Graphs", "createdAt": "2024-01-01"})

	rec := do(t, h, http.MethodGet, "/api/due?day=tomorrow", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[output.DueResponse](t, rec)
	assert.Equal(t, "2024-06-16", resp.Day)
	require.Len(t, resp.Due, 1)
	assert.Equal(t, "Trees", resp.Due[0].TopicName)
	require.Len(t, resp.Overdue, 1)
	assert.Equal(t, "Graphs", resp.Overdue[0].Name)

	rec = do(t, h, http.MethodGet, "/api/due", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeBody[output.DueResponse](t, rec)
	assert.Equal(t, "2024-06-15", resp.Day)
	assert.Empty(t, resp.Due)

	rec = do(t, h, http.MethodGet, "/api/due?day=blorptastic", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalendar(t *testing.T) {
	_, h := setupServer(t)
	createTopic(t, h, map[string]string{"name": "Trees"})

	rec := do(t, h, http.MethodGet, "/api/calendar?range=this+week", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[output.CalendarResponse](t, rec)
	assert.Equal(t, "2024-06-10", resp.From)
	assert.Equal(t, "2024-06-16", resp.To)
	require.Len(t, resp.Instances, 1)
	assert.Equal(t, "2024-06-16", resp.Instances[0].ScheduledDate)

	rec = do(t, h, http.MethodGet, "/api/calendar?range=2024-06-30..2024-06-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// Strategy Tests
// =============================================================================

func TestStrategies(t *testing.T) {
	_, h := setupServer(t)

	rec := do(t, h, http.MethodGet, "/api/strategies", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[output.StrategiesResponse](t, rec).Strategies, 3)

	rec = do(t, h, http.MethodPost, "/api/strategies", map[string]string{"name": "Weekly", "intervals": "7, 14, x, 21"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[output.StrategyOutput](t, rec)
	assert.Equal(t, []int{7, 14, 21}, created.Intervals)

	rec = do(t, h, http.MethodPost, "/api/strategies", map[string]string{"name": "weekly", "intervals": "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/strategies", map[string]string{"name": "Empty", "intervals": "0,-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	createTopic(t, h, map[string]string{"name": "Graphs", "strategyId": "Weekly"})

	rec = do(t, h, http.MethodDelete, "/api/strategies/Weekly", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decodeBody[output.ErrorResponse](t, rec).Error, "used by existing topics")

	rec = do(t, h, http.MethodDelete, "/api/strategies/Weekly?force=true", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodDelete, "/api/strategies/Weekly", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// Server Tests
// =============================================================================

func TestServeListenerShutsDown(t *testing.T) {
	rt, _ := setupServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(rt.Engine, WithShutdownTimeout(time.Second)).ServeListener(ctx, ln) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + ln.Addr().String() + "/health")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRequestLoggerKeepsStatus(t *testing.T) {
	h := requestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", strings.NewReader("")))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
