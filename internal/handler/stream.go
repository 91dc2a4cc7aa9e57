package handler

import (
	"log/slog"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/makeasinger/genqueue/internal/model"
	"github.com/makeasinger/genqueue/internal/scheduler"
	ws "github.com/makeasinger/genqueue/internal/websocket"
)

// StreamHandler serves live job updates over WebSocket
type StreamHandler struct {
	engine *scheduler.Engine
	hub    *ws.Hub
}

func NewStreamHandler(engine *scheduler.Engine, hub *ws.Hub) *StreamHandler {
	return &StreamHandler{engine: engine, hub: hub}
}

// RequireUpgrade rejects plain HTTP requests on /ws routes
func (h *StreamHandler) RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// RequireJob answers 404 before upgrading when the job is unknown
func (h *StreamHandler) RequireJob(c *fiber.Ctx) error {
	if _, err := h.engine.GetStatus(c.Params("jobId")); err != nil {
		return writeError(c, err)
	}
	return c.Next()
}

// Job handles GET /ws/jobs/:jobId
func (h *StreamHandler) Job() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")

		var initial []byte
		if job, err := h.engine.GetStatus(jobID); err == nil {
			initial, err = ws.EncodeEvent(model.JobEvent{Type: eventTypeFor(job.Status), Job: job})
			if err != nil {
				slog.Error("failed to encode initial job state", "job_id", jobID, "error", err)
			}
		}

		h.hub.HandleConnection(c, jobID, initial)
	})
}

func eventTypeFor(status model.JobStatus) model.JobEventType {
	switch status {
	case model.JobStatusPending:
		return model.JobEventQueued
	case model.JobStatusCompleted:
		return model.JobEventCompleted
	case model.JobStatusFailed:
		return model.JobEventFailed
	case model.JobStatusCancelled:
		return model.JobEventCancelled
	}
	return model.JobEventProgress
}
