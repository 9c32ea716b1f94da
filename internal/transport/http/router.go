package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Gunvolt24/kafka-runner/internal/domain"
	"github.com/Gunvolt24/kafka-runner/internal/ports"
	"github.com/Gunvolt24/kafka-runner/pkg/httpx"
)

// Границы GET /messages; offset глубже MaxOffset отклоняется.
var listRules = httpx.PageRules{DefaultLimit: 20, MaxLimit: 100, MaxOffset: 100000}

// Handler - HTTP-поверхность сервиса: архив сообщений и проверки состояния.
type Handler struct {
	repo    ports.MessageRepository
	state   ports.RunnerState
	log     ports.Logger
	timeout time.Duration
}

// NewHandler; timeout <= 0 - без ограничения времени обработчика.
func NewHandler(repo ports.MessageRepository, state ports.RunnerState, log ports.Logger, timeout time.Duration) *Handler {
	return &Handler{repo: repo, state: state, log: log, timeout: timeout}
}

// RouterOptions - режим gin и включение otelgin.
type RouterOptions struct {
	GinMode     string
	ServiceName string
	Tracing     bool
}

func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	if opts.GinMode != "" {
		gin.SetMode(opts.GinMode)
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	if opts.Tracing {
		r.Use(otelgin.Middleware(opts.ServiceName))
	}
	r.Use(httpx.RequestIDMiddleware())
	r.Use(httpx.RequestLogger(h.log))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/healthz", h.healthz)
	r.GET("/readyz", h.readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/messages", h.listMessages)
	r.GET("/messages/:topic/:partition/:offset", h.getMessage)
	r.GET("/topics/:topic/count", h.countMessages)

	return r
}

func (h *Handler) ctx(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return c.Request.Context(), func() {}
	}
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

// healthz - живость зависимостей (БД).
func (h *Handler) healthz(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.repo.Ping(ctx); err != nil {
		h.log.Warnf(ctx, "healthz: db ping failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readyz - цикл потребления держит подписку.
func (h *Handler) readyz(c *gin.Context) {
	if h.state == nil || !h.state.Subscribed() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *Handler) getMessage(c *gin.Context) {
	at, err := httpx.ParseCoordinates(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	msg, err := h.repo.Get(ctx, at.Topic, at.Partition, at.Offset)
	if err != nil {
		h.log.Errorf(ctx, "get message failed id=%s err=%v", domain.MessageID(at.Topic, at.Partition, at.Offset), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if msg == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}
	c.JSON(http.StatusOK, toView(msg))
}

func (h *Handler) listMessages(c *gin.Context) {
	topic := c.Query("topic")
	if err := httpx.ValidateTopic(topic); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	page, err := httpx.ParsePage(c, listRules)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	msgs, err := h.repo.List(ctx, topic, page.Limit, page.Offset)
	if err != nil {
		h.log.Errorf(ctx, "list messages failed topic=%s err=%v", topic, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	out := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toView(m))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) countMessages(c *gin.Context) {
	topic := c.Param("topic")
	if err := httpx.ValidateTopic(topic); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	n, err := h.repo.Count(ctx, topic)
	if err != nil {
		h.log.Errorf(ctx, "count messages failed topic=%s err=%v", topic, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"topic": topic, "count": n})
}

// messageView - JSON-представление записи: value отдаётся как есть, если это JSON, иначе строкой.
type messageView struct {
	ID         string            `json:"id"`
	Topic      string            `json:"topic"`
	Partition  int               `json:"partition"`
	Offset     int64             `json:"offset"`
	Key        string            `json:"key,omitempty"`
	Value      json.RawMessage   `json:"value"`
	Headers    map[string]string `json:"headers,omitempty"`
	ProducedAt *time.Time        `json:"produced_at,omitempty"`
	ArchivedAt time.Time         `json:"archived_at"`
}

func toView(m *domain.Message) messageView {
	v := messageView{
		ID:         m.ID(),
		Topic:      m.Topic,
		Partition:  m.Partition,
		Offset:     m.Offset,
		Key:        string(m.Key),
		Headers:    m.Headers,
		ArchivedAt: m.ArchivedAt,
	}
	if !m.ProducedAt.IsZero() {
		t := m.ProducedAt
		v.ProducedAt = &t
	}
	if json.Valid(m.Value) {
		v.Value = json.RawMessage(m.Value)
	} else {
		raw, _ := json.Marshal(string(m.Value))
		v.Value = raw
	}
	return v
}
