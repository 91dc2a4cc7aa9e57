package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/makeasinger/genqueue/internal/model"
	"github.com/makeasinger/genqueue/internal/scheduler"
	"github.com/makeasinger/genqueue/pkg/response"
)

type ProviderHandler struct {
	engine    *scheduler.Engine
	validator *validator.Validate
}

func NewProviderHandler(engine *scheduler.Engine, v *validator.Validate) *ProviderHandler {
	return &ProviderHandler{
		engine:    engine,
		validator: v,
	}
}

// List handles GET /api/providers
// @Summary      List providers
// @Tags         Providers
// @Produce      json
// @Success      200 {object} model.ProvidersResponse
// @Router       /api/providers [get]
func (h *ProviderHandler) List(c *fiber.Ctx) error {
	return response.OK(c, h.providers())
}

// Switch handles POST /api/providers/switch. It is rejected with
// RESOURCE_BUSY while a job is processing.
// @Summary      Switch provider
// @Tags         Providers
// @Accept       json
// @Produce      json
// @Param        request body model.SwitchProviderRequest true "Provider to load"
// @Success      200 {object} model.ProvidersResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Router       /api/providers/switch [post]
func (h *ProviderHandler) Switch(c *fiber.Ctx) error {
	var req model.SwitchProviderRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	if err := h.engine.SwitchProvider(c.UserContext(), req.Provider); err != nil {
		return writeError(c, err)
	}

	return response.OK(c, h.providers())
}

func (h *ProviderHandler) providers() model.ProvidersResponse {
	statuses := h.engine.Providers()
	out := model.ProvidersResponse{Providers: make([]model.ProviderResponse, len(statuses))}
	for i, s := range statuses {
		out.Providers[i] = model.ProviderResponse{
			Name:     s.Name,
			Loaded:   s.Loaded,
			InUse:    s.InUse,
			Default:  s.Default,
			LoadedAt: s.LoadedAt,
		}
	}
	if cur, ok := h.engine.CurrentProvider(); ok {
		out.Current = &cur
	}
	return out
}
