package devsink

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/GriffinCanCode/telemetry/internal/logging"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, ringSize int) (*gin.Engine, *Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	handler := NewHandler(ringSize, logging.NewNop(), reg)
	return handler.Router(reg), handler
}

func spanBatchBody(t *testing.T, names ...string) []byte {
	t.Helper()
	spans := make([]map[string]any, len(names))
	for i, name := range names {
		spans[i] = map[string]any{"name": name}
	}
	body, err := sonic.Marshal(map[string]any{
		"spans":          spans,
		"serviceName":    "checkout",
		"serviceVersion": "1.2.3",
	})
	require.NoError(t, err)
	return body
}

func TestReceiveSpanBatch(t *testing.T) {
	router, handler := newTestRouter(t, 10)

	req := httptest.NewRequest(http.MethodPost, "/v1/traces", bytes.NewReader(spanBatchBody(t, "a", "b")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Batch-ID", "batch_123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"accepted":2`)

	handler.mu.Lock()
	defer handler.mu.Unlock()
	require.Len(t, handler.ring, 1)
	rec := handler.ring[0]
	assert.Equal(t, "spans", rec.Payload)
	assert.Equal(t, "batch_123", rec.BatchID)
	assert.Equal(t, "checkout", rec.ServiceName)
	assert.Equal(t, 2, rec.Count)
}

func TestReceiveGzipBatch(t *testing.T) {
	router, handler := newTestRouter(t, 10)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(spanBatchBody(t, "compressed"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/traces", &buf)
	req.Header.Set("Content-Encoding", "gzip")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	handler.mu.Lock()
	defer handler.mu.Unlock()
	require.Len(t, handler.ring, 1)
	assert.Equal(t, 1, handler.ring[0].Count)
}

func TestReceiveRejectsInvalidBody(t *testing.T) {
	router, _ := newTestRouter(t, 10)

	req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader("not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecentReturnsRingNewestLast(t *testing.T) {
	router, _ := newTestRouter(t, 2)

	for _, name := range []string{"first", "second", "third"} {
		req := httptest.NewRequest(http.MethodPost, "/v1/traces", bytes.NewReader(spanBatchBody(t, name)))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/recent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Batches []Received `json:"batches"`
	}
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &resp))

	// Ring of two keeps only the most recent batches.
	require.Len(t, resp.Batches, 2)
	spans := resp.Batches[1].Body["spans"].([]any)
	assert.Equal(t, "third", spans[0].(map[string]any)["name"])
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	router, _ := newTestRouter(t, 10)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Push one batch so the counters have samples.
	req = httptest.NewRequest(http.MethodPost, "/v1/traces", bytes.NewReader(spanBatchBody(t, "a")))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "devsink_batches_received_total")
}
