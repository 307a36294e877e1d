package export

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/telemetry/internal/config"
	"github.com/GriffinCanCode/telemetry/internal/logging"
	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	path    string
	headers http.Header
	body    []byte
}

func newCollector(t *testing.T, status int) (*httptest.Server, func() []capturedRequest) {
	t.Helper()
	var mu sync.Mutex
	var reqs []capturedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		mu.Lock()
		reqs = append(reqs, capturedRequest{path: r.URL.Path, headers: r.Header.Clone(), body: body})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), reqs...)
	}
}

func newTestTransport(t *testing.T, endpoint string, compress bool, cachePath string) *HTTPTransport {
	t.Helper()
	return NewHTTPTransport(
		config.ExportConfig{
			Endpoint:       endpoint,
			RequestTimeout: 2 * time.Second,
			Compress:       compress,
		},
		config.ServiceConfig{Name: "checkout", Version: "1.2.3"},
		NewCache(cachePath, 100, logging.NewNop()),
		logging.NewNop(),
	)
}

func TestTransportSendsSpanBatch(t *testing.T) {
	srv, captured := newCollector(t, http.StatusOK)
	transport := newTestTransport(t, srv.URL, false, "")

	spans := cacheSpans(2)
	require.NoError(t, transport.SendSpans(context.Background(), spans))

	reqs := captured()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/v1/traces", reqs[0].path)
	assert.NotEmpty(t, reqs[0].headers.Get("X-Batch-ID"))
	assert.Contains(t, reqs[0].headers.Get("User-Agent"), "telemetry-export/1.2.3")

	var payload spanPayload
	require.NoError(t, sonic.Unmarshal(reqs[0].body, &payload))
	require.Len(t, payload.Spans, 2)
	assert.Equal(t, "checkout", payload.ServiceName)
	assert.Equal(t, spans[0].ID, payload.Spans[0].ID)
}

func TestTransportCompressesBody(t *testing.T) {
	srv, captured := newCollector(t, http.StatusOK)
	transport := newTestTransport(t, srv.URL, true, "")

	require.NoError(t, transport.SendSpans(context.Background(), cacheSpans(1)))

	reqs := captured()
	require.Len(t, reqs, 1)
	assert.Equal(t, "gzip", reqs[0].headers.Get("Content-Encoding"))

	r, err := gzip.NewReader(bytes.NewReader(reqs[0].body))
	require.NoError(t, err)
	decoded, err := io.ReadAll(r)
	require.NoError(t, err)

	var payload spanPayload
	require.NoError(t, sonic.Unmarshal(decoded, &payload))
	assert.Len(t, payload.Spans, 1)
}

func TestTransportRejectionIsError(t *testing.T) {
	srv, _ := newCollector(t, http.StatusBadRequest)
	transport := newTestTransport(t, srv.URL, false, "")

	err := transport.SendSpans(context.Background(), cacheSpans(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collector rejected batch")
}

func TestTransportMirrorsBeforeSend(t *testing.T) {
	srv, _ := newCollector(t, http.StatusInternalServerError)
	cachePath := filepath.Join(t.TempDir(), "cache.json")
	transport := newTestTransport(t, srv.URL, false, cachePath)

	// Even a rejected batch lands in the local mirror.
	require.Error(t, transport.SendSpans(context.Background(), cacheSpans(3)))
	assert.Len(t, transport.cache.Load(), 3)
}

func TestTransportSendsEventBatch(t *testing.T) {
	srv, captured := newCollector(t, http.StatusAccepted)
	transport := newTestTransport(t, srv.URL, false, "")

	require.NoError(t, transport.SendEvents(context.Background(), nil))
	reqs := captured()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/v1/events", reqs[0].path)

	var payload eventPayload
	require.NoError(t, sonic.Unmarshal(reqs[0].body, &payload))
	assert.Equal(t, "checkout", payload.ServiceName)
}
