package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liut/insightchat/pkg/models/convo"
)

func TestNewRejectsEmptyBase(t *testing.T) {
	_, err := New("  ")
	assert.Error(t, err)

	c, err := New("http://localhost:8000/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", c.BaseURL())
}

func TestAnalyze(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/analyze", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"query_id":"q-1","status":"success","execution_time":1.234,
			"insights":["DE leads"],"data":[{"country":"DE","total":9}],"executed_sql":"SELECT 1"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	res, err := c.Analyze(context.Background(), convo.AnalyzeRequest{
		Question:   "who buys most?",
		UserID:     "web_user",
		SaveResult: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "who buys most?", got["question"])
	assert.Equal(t, "web_user", got["user_id"])
	assert.Equal(t, true, got["save_result"])
	assert.Equal(t, []any{}, got["conversation_history"], "history is sent as an empty array, never null")

	assert.Equal(t, "q-1", res.QueryID)
	require.NotNil(t, res.ExecutionTime)
	assert.InDelta(t, 1.234, *res.ExecutionTime, 1e-9)
	assert.Equal(t, []string{"country", "total"}, res.Columns())
	assert.Equal(t, "SELECT 1", res.ExecutedSQL)
}

func TestAnalyzeStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Analyze(context.Background(), convo.AnalyzeRequest{Question: "q"})
	require.Error(t, err)
	assert.True(t, IsStatus(err))
	assert.Equal(t, "HTTP 500: Internal Server Error", err.Error())

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 500, se.HTTPStatusCode())
	assert.Contains(t, se.Body, "boom")
}

func TestAnalyzeTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(base)
	require.NoError(t, err)
	_, err = c.Analyze(context.Background(), convo.AnalyzeRequest{Question: "q"})
	require.Error(t, err)
	assert.False(t, IsStatus(err))
}

func TestAnalyzeBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	_, err := c.Analyze(context.Background(), convo.AnalyzeRequest{Question: "q"})
	assert.ErrorContains(t, err, "decode response")
}

func TestHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/history", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[{"query_id":"b","question":"q2","status":"success","execution_time":2,"created_at":"2026-01-01T00:00:00"},
			{"query_id":"a","question":"q1","status":"failed","user_id":"u1","result_rows":4,"created_at":"2025-12-31T00:00:00"}]`))
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	data, err := c.History(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, data, 2)
	assert.Equal(t, "b", data[0].QueryID, "order is kept as returned")
	assert.Equal(t, "u1", data[1].User())
	assert.Equal(t, 4, data[1].Rows())
}

func TestHistoryStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	_, err := c.History(context.Background(), 50)
	assert.EqualError(t, err, "HTTP 502: Bad Gateway")
}
