package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/makeasinger/genqueue/internal/model"
	"github.com/makeasinger/genqueue/internal/scheduler"
	"github.com/makeasinger/genqueue/pkg/response"
)

// HealthCheck probes one collaborator
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	engine *scheduler.Engine
	checks map[string]HealthCheck
}

type healthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Queue      model.QueueStats  `json:"queue"`
	Components map[string]string `json:"components"`
}

// NewHealthHandler creates the handler. checks are keyed by component name.
func NewHealthHandler(engine *scheduler.Engine, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{engine: engine, checks: checks}
}

// Health handles GET /health. Failing components degrade the status but
// the endpoint still answers 200 so the queue stays inspectable.
// @Summary      Health check
// @Tags         Health
// @Produce      json
// @Success      200 {object} healthResponse
// @Router       /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	out := healthResponse{
		Status:     "ok",
		Timestamp:  time.Now().UTC(),
		Queue:      h.engine.Stats(),
		Components: make(map[string]string, len(h.checks)),
	}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			out.Components[name] = "error: " + err.Error()
			out.Status = "degraded"
			continue
		}
		out.Components[name] = "ok"
	}

	return response.OK(c, out)
}

// Root handles GET /
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{
		"service":   "genqueue",
		"timestamp": time.Now().UTC(),
	})
}
