package devsink

import (
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/GriffinCanCode/telemetry/internal/logging"
	"github.com/bytedance/sonic"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Dev tool, all origins allowed
	},
}

// Received is one batch as the sink saw it.
type Received struct {
	Payload        string         `json:"payload"` // "spans" or "events"
	BatchID        string         `json:"batch_id,omitempty"`
	ServiceName    string         `json:"service_name"`
	ServiceVersion string         `json:"service_version"`
	Count          int            `json:"count"`
	ReceivedAt     time.Time      `json:"received_at"`
	Body           map[string]any `json:"body"`
}

// Handler serves the devsink HTTP surface.
type Handler struct {
	logger *logging.Logger

	mu    sync.Mutex
	ring  []Received
	max   int
	conns map[*websocket.Conn]bool

	batchesReceived *prometheus.CounterVec
	itemsReceived   *prometheus.CounterVec
}

// NewHandler creates the handler with a bounded recent-batch ring.
func NewHandler(ringSize int, logger *logging.Logger, reg prometheus.Registerer) *Handler {
	if ringSize <= 0 {
		ringSize = 1
	}
	factory := promauto.With(reg)
	return &Handler{
		logger: logger.Component("devsink"),
		max:    ringSize,
		conns:  make(map[*websocket.Conn]bool),
		batchesReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devsink_batches_received_total",
				Help: "Batches received from instrumented clients, by payload",
			},
			[]string{"payload"},
		),
		itemsReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devsink_items_received_total",
				Help: "Spans and events received, by payload",
			},
			[]string{"payload"},
		),
	}
}

// Router builds the gin engine with all devsink routes registered.
func (h *Handler) Router(gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Content-Encoding", "Accept", "Origin"},
		MaxAge:       12 * time.Hour,
	}))

	router.POST("/v1/traces", h.receive("spans"))
	router.POST("/v1/events", h.receive("events"))
	router.GET("/v1/recent", h.recent)
	router.GET("/ws", h.liveTail)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return router
}

// receive accepts an export payload, gzip-decoding when the client
// compressed it, and records it in the ring.
func (h *Handler) receive(payload string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := h.readBody(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var decoded map[string]any
		if err := sonic.Unmarshal(body, &decoded); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}

		count := 0
		if items, ok := decoded[payload].([]any); ok {
			count = len(items)
		}

		rec := Received{
			Payload:        payload,
			BatchID:        c.GetHeader("X-Batch-ID"),
			ServiceName:    stringField(decoded, "serviceName"),
			ServiceVersion: stringField(decoded, "serviceVersion"),
			Count:          count,
			ReceivedAt:     time.Now(),
			Body:           decoded,
		}

		h.batchesReceived.WithLabelValues(payload).Inc()
		h.itemsReceived.WithLabelValues(payload).Add(float64(count))

		h.record(rec)
		h.broadcast(rec)

		h.logger.Info("batch received",
			zap.String("payload", payload),
			zap.String("service", rec.ServiceName),
			zap.Int("count", count),
		)
		c.JSON(http.StatusOK, gin.H{"accepted": count})
	}
}

func (h *Handler) readBody(c *gin.Context) ([]byte, error) {
	reader := io.Reader(c.Request.Body)
	if c.GetHeader("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(reader)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	}
	return io.ReadAll(reader)
}

func (h *Handler) record(rec Received) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ring = append(h.ring, rec)
	if len(h.ring) > h.max {
		h.ring = h.ring[len(h.ring)-h.max:]
	}
}

func (h *Handler) recent(c *gin.Context) {
	h.mu.Lock()
	out := make([]Received, len(h.ring))
	copy(out, h.ring)
	h.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"batches": out})
}

// liveTail upgrades to a websocket and streams every batch as it arrives.
func (h *Handler) liveTail(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.conns[conn] = true
	h.mu.Unlock()

	// Reader loop exists only to detect close.
	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.conns, conn)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Handler) broadcast(rec Received) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(rec); err != nil {
			delete(h.conns, conn)
			conn.Close()
		}
	}
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
