package export

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GriffinCanCode/telemetry/internal/logging"
	"github.com/GriffinCanCode/telemetry/internal/shared/id"
	"github.com/GriffinCanCode/telemetry/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cacheSpans(n int) []*telemetry.Span {
	spans := make([]*telemetry.Span, n)
	for i := range spans {
		spans[i] = &telemetry.Span{
			ID:        id.NewSpanID(),
			TraceID:   id.NewTraceID(),
			Name:      fmt.Sprintf("span-%d", i),
			Kind:      telemetry.KindInternal,
			StartTime: time.Now().UTC(),
			Status:    telemetry.StatusOk,
		}
	}
	return spans
}

func TestCacheDisabledWithoutPath(t *testing.T) {
	cache := NewCache("", 10, logging.NewNop())

	assert.False(t, cache.Enabled())
	cache.MirrorSpans(cacheSpans(3))
	assert.Nil(t, cache.Load())
}

func TestCacheMirrorAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry", "cache.json")
	cache := NewCache(path, 10, logging.NewNop())

	spans := cacheSpans(3)
	cache.MirrorSpans(spans)

	loaded := cache.Load()
	require.Len(t, loaded, 3)
	assert.Equal(t, spans[0].ID, loaded[0].ID)
	assert.Equal(t, "span-2", loaded[2].Name)
}

func TestCacheAccumulatesAcrossBatches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	cache := NewCache(path, 10, logging.NewNop())

	cache.MirrorSpans(cacheSpans(2))
	cache.MirrorSpans(cacheSpans(2))

	assert.Len(t, cache.Load(), 4)
}

func TestCacheTrimsOldestAtCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	cache := NewCache(path, 3, logging.NewNop())

	first := cacheSpans(2)
	second := cacheSpans(2)
	cache.MirrorSpans(first)
	cache.MirrorSpans(second)

	loaded := cache.Load()
	require.Len(t, loaded, 3)
	assert.Equal(t, first[1].ID, loaded[0].ID)
	assert.Equal(t, second[1].ID, loaded[2].ID)
}

func TestCacheLoadSurvivesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	cache := NewCache(path, 10, logging.NewNop())

	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	assert.Nil(t, cache.Load())

	// A corrupt slot is overwritten by the next mirror.
	cache.MirrorSpans(cacheSpans(1))
	assert.Len(t, cache.Load(), 1)
}
