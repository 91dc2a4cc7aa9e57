package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/makeasinger/genqueue/internal/model"
	"github.com/makeasinger/genqueue/internal/scheduler"
	"github.com/makeasinger/genqueue/pkg/response"
)

type GenerationHandler struct {
	engine    *scheduler.Engine
	validator *validator.Validate
}

func NewGenerationHandler(engine *scheduler.Engine, v *validator.Validate) *GenerationHandler {
	return &GenerationHandler{
		engine:    engine,
		validator: v,
	}
}

// Submit handles POST /api/generate
// @Summary      Submit generation
// @Description  Validate a generation request and append it to the queue
// @Tags         Generation
// @Accept       json
// @Produce      json
// @Param        request body model.GenerationRequest true "Generation request"
// @Success      202 {object} model.SubmitResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Router       /api/generate [post]
func (h *GenerationHandler) Submit(c *fiber.Ctx) error {
	var req model.GenerationRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	job, err := h.engine.Submit(req)
	if err != nil {
		return writeError(c, err)
	}

	return response.Accepted(c, model.SubmitResponse{
		JobID:     job.ID,
		Status:    job.Status,
		Position:  job.Position,
		CreatedAt: job.CreatedAt,
	})
}

// Status handles GET /api/jobs/:jobId
// @Summary      Get job status
// @Tags         Jobs
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.JobStatusResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/jobs/{jobId} [get]
func (h *GenerationHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	job, err := h.engine.GetStatus(jobID)
	if err != nil {
		return writeError(c, err)
	}

	return response.OK(c, model.NewJobStatusResponse(job))
}

// Preset handles GET /api/jobs/:jobId/preset
// @Summary      Get job preset
// @Description  Return the original request of a job for re-submission
// @Tags         Jobs
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.PresetResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/jobs/{jobId}/preset [get]
func (h *GenerationHandler) Preset(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	req, err := h.engine.GetPreset(jobID)
	if err != nil {
		return writeError(c, err)
	}

	return response.OK(c, model.PresetResponse{JobID: jobID, Request: req})
}

// Cancel handles POST /api/jobs/:jobId/cancel. A processing job keeps its
// status until the backend acknowledges; the response shows the job as it
// is right after the request.
// @Summary      Cancel job
// @Tags         Jobs
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.JobStatusResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/jobs/{jobId}/cancel [post]
func (h *GenerationHandler) Cancel(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	if err := h.engine.Cancel(jobID); err != nil {
		return writeError(c, err)
	}

	job, err := h.engine.GetStatus(jobID)
	if err != nil {
		return writeError(c, err)
	}

	return response.OK(c, model.NewJobStatusResponse(job))
}

// Remove handles DELETE /api/jobs/:jobId
// @Summary      Remove job
// @Description  Cancel a processing job or delete any other job. Removing an already removed job succeeds.
// @Tags         Jobs
// @Param        jobId path string true "Job ID"
// @Success      204
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/jobs/{jobId} [delete]
func (h *GenerationHandler) Remove(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	if err := h.engine.Remove(jobID); err != nil {
		return writeError(c, err)
	}

	return response.NoContent(c)
}

// History handles GET /api/jobs?status=
// @Summary      List jobs
// @Tags         Jobs
// @Produce      json
// @Param        status query string false "Status filter" Enums(pending, processing, completed, failed, cancelled)
// @Success      200 {object} model.HistoryResponse
// @Failure      400 {object} response.ErrorResponse
// @Router       /api/jobs [get]
func (h *GenerationHandler) History(c *fiber.Ctx) error {
	status := model.JobStatus(c.Query("status"))
	if status != "" && !status.IsValid() {
		return response.ValidationError(c, "Invalid status filter", map[string]string{"status": "oneof"})
	}

	jobs := h.engine.History(status)
	out := model.HistoryResponse{Jobs: make([]model.JobStatusResponse, len(jobs)), Total: len(jobs)}
	for i, j := range jobs {
		out.Jobs[i] = model.NewJobStatusResponse(j)
	}

	return response.OK(c, out)
}
