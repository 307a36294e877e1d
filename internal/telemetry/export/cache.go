package export

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/GriffinCanCode/telemetry/internal/logging"
	"github.com/GriffinCanCode/telemetry/internal/telemetry"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// Cache is the crash-survival mirror: a single bounded JSON file slot
// holding the most recently exported spans. Strictly best-effort: every
// failure is logged at debug and swallowed. This is an inspection aid, not a
// durability guarantee.
type Cache struct {
	mu     sync.Mutex
	path   string
	max    int
	logger *logging.Logger
}

// NewCache creates the mirror at path, capped at max spans. An empty path
// disables the cache; all writes become no-ops.
func NewCache(path string, max int, logger *logging.Logger) *Cache {
	if max <= 0 {
		max = 1
	}
	return &Cache{
		path:   path,
		max:    max,
		logger: logger.Component("cache"),
	}
}

// Enabled reports whether a cache path is configured.
func (c *Cache) Enabled() bool {
	return c.path != ""
}

// MirrorSpans appends the batch to the cached slot, trims it to the cap
// (oldest first), and rewrites the file.
func (c *Cache) MirrorSpans(spans []*telemetry.Span) {
	if !c.Enabled() || len(spans) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cached := c.readLocked()
	cached = append(cached, spans...)
	if excess := len(cached) - c.max; excess > 0 {
		cached = cached[excess:]
	}

	data, err := sonic.Marshal(cached)
	if err != nil {
		c.logger.Debug("failed to encode cache slot", zap.Error(err))
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		c.logger.Debug("failed to create cache directory", zap.Error(err))
		return
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		c.logger.Debug("failed to write cache slot", zap.Error(err))
	}
}

// Load returns the cached spans from the last process, if any.
func (c *Cache) Load() []*telemetry.Span {
	if !c.Enabled() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readLocked()
}

func (c *Cache) readLocked() []*telemetry.Span {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil
	}
	var spans []*telemetry.Span
	if err := sonic.Unmarshal(data, &spans); err != nil {
		c.logger.Debug("failed to decode cache slot", zap.Error(err))
		return nil
	}
	return spans
}
