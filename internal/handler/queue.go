package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/makeasinger/genqueue/internal/model"
	"github.com/makeasinger/genqueue/internal/scheduler"
	"github.com/makeasinger/genqueue/pkg/response"
)

type QueueHandler struct {
	engine    *scheduler.Engine
	validator *validator.Validate
}

func NewQueueHandler(engine *scheduler.Engine, v *validator.Validate) *QueueHandler {
	return &QueueHandler{
		engine:    engine,
		validator: v,
	}
}

// List handles GET /api/queue
// @Summary      List queue
// @Tags         Queue
// @Produce      json
// @Success      200 {object} model.QueueResponse
// @Router       /api/queue [get]
func (h *QueueHandler) List(c *fiber.Ctx) error {
	return response.OK(c, h.queue())
}

// Reorder handles PUT /api/queue/:jobId/position
// @Summary      Reorder job
// @Tags         Queue
// @Accept       json
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Param        request body model.ReorderRequest true "New position"
// @Success      200 {object} model.QueueResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Router       /api/queue/{jobId}/position [put]
func (h *QueueHandler) Reorder(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	var req model.ReorderRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	if err := h.engine.Reorder(jobID, req.NewPosition); err != nil {
		return writeError(c, err)
	}

	return response.OK(c, h.queue())
}

// MoveUp handles POST /api/queue/:jobId/up
// @Summary      Move job up
// @Tags         Queue
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.QueueResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Router       /api/queue/{jobId}/up [post]
func (h *QueueHandler) MoveUp(c *fiber.Ctx) error {
	if err := h.engine.MoveUp(c.Params("jobId")); err != nil {
		return writeError(c, err)
	}
	return response.OK(c, h.queue())
}

// MoveDown handles POST /api/queue/:jobId/down
// @Summary      Move job down
// @Tags         Queue
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.QueueResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Router       /api/queue/{jobId}/down [post]
func (h *QueueHandler) MoveDown(c *fiber.Ctx) error {
	if err := h.engine.MoveDown(c.Params("jobId")); err != nil {
		return writeError(c, err)
	}
	return response.OK(c, h.queue())
}

func (h *QueueHandler) queue() model.QueueResponse {
	jobs := h.engine.ListQueue()
	out := model.QueueResponse{Items: make([]model.QueueItemResponse, len(jobs)), Total: len(jobs)}
	for i, j := range jobs {
		out.Items[i] = model.NewQueueItemResponse(j)
	}
	return out
}
