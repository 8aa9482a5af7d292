package api

import (
	"context"
	"net/http"
	"time"

	resdto "scheduled-mailer/internal/handler/dto/response"
	"scheduled-mailer/internal/pkg/clock"

	"github.com/gin-gonic/gin"
)

const healthPingTimeout = 2 * time.Second

// Backend is a storage backend the health endpoint reports on.
type Backend interface {
	Backend() string
	Durable() bool
	Ping(ctx context.Context) error
}

// holder is implemented by backends that park entries in memory while the
// durable store refuses them.
type holder interface {
	Held() int
}

type HealthHandler struct {
	records Backend
	queue   Backend
	clock   clock.Clock
}

func NewHealthHandler(records, queue Backend, clk clock.Clock) *HealthHandler {
	return &HealthHandler{records: records, queue: queue, clock: clk}
}

// @Summary Health check
// @Description Report record store and queue connectivity. status is "degraded" while any part runs without durability.
// @Tags health
// @Produce json
// @Success 200 {object} resdto.HealthResponse
// @Router /health [get]
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
	defer cancel()

	records := checkBackend(ctx, h.records)
	queue := checkBackend(ctx, h.queue)

	durable := records.Status == "connected" && records.Held == 0 &&
		queue.Status == "connected" && queue.Held == 0
	status := "ok"
	if !durable {
		status = "degraded"
	}

	c.JSON(http.StatusOK, resdto.HealthResponse{
		Status:      status,
		Durable:     durable,
		RecordStore: records,
		Queue:       queue,
		Timestamp:   h.clock.Now().UTC(),
	})
}

func checkBackend(ctx context.Context, b Backend) resdto.BackendHealth {
	out := resdto.BackendHealth{Backend: b.Backend(), Durable: b.Durable()}
	if h, ok := b.(holder); ok {
		out.Held = h.Held()
	}
	switch {
	case !b.Durable():
		out.Status = "memory"
	case b.Ping(ctx) != nil:
		out.Status = "unreachable"
	default:
		out.Status = "connected"
	}
	return out
}
