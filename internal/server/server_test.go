package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querylens/querylens/internal/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Analysis: config.DefaultAnalysis()}
	return NewServer(cfg, nil, nil)
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	srv.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestAnalyzeTrace(t *testing.T) {
	srv := newTestServer(t)

	body := map[string]any{}
	var queries []map[string]any
	for i := 0; i < 12; i++ {
		queries = append(queries, map[string]any{
			"sql":     fmt.Sprintf("SELECT * FROM orders WHERE customer_id = %d", i+1),
			"time_ms": 0.9,
		})
	}
	body["queries"] = queries
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	srv.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		TraceSize  int `json:"trace_size"`
		IssueCount int `json:"issue_count"`
		Issues     []struct {
			Type string `json:"type"`
		} `json:"issues"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 12, resp.TraceSize)
	require.NotEmpty(t, resp.Issues)
	assert.Equal(t, "n_plus_one", resp.Issues[0].Type)
}

func TestAnalyzeTraceWithMetadata(t *testing.T) {
	srv := newTestServer(t)

	raw := []byte(`{
		"queries": [
			{"sql": "SELECT o.id, c.name FROM orders o LEFT JOIN customers c ON o.customer_id = c.id", "time_ms": 3.2}
		],
		"associations": {
			"orders": [
				{"table": "orders", "target_table": "customers", "columns": ["customer_id"], "nullable": false, "cardinality": "MANY_TO_ONE"}
			]
		},
		"identifiers": {"orders": ["id"], "customers": ["id"]}
	}`)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	srv.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "suboptimal_left_join")
}

func TestAnalyzeRejectsBadRequest(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")
	srv.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunsEndpointWithoutArchive(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	srv.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
