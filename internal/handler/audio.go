package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/makeasinger/genqueue/internal/client"
	"github.com/makeasinger/genqueue/internal/scheduler"
	"github.com/makeasinger/genqueue/pkg/response"
)

type AudioHandler struct {
	engine *scheduler.Engine
	store  client.AudioStore
}

// NewAudioHandler creates the handler. store may be nil when audio stays
// with the model service.
func NewAudioHandler(engine *scheduler.Engine, store client.AudioStore) *AudioHandler {
	return &AudioHandler{engine: engine, store: store}
}

// Version handles GET /api/versions/:versionId/audio
// @Summary      Get version audio
// @Tags         Audio
// @Produce      audio/wav
// @Param        versionId path string true "Version ID"
// @Success      200 {file} binary
// @Success      302
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/versions/{versionId}/audio [get]
func (h *AudioHandler) Version(c *fiber.Ctx) error {
	versionID := c.Params("versionId")
	if versionID == "" {
		return response.ValidationError(c, "Version ID is required", nil)
	}

	v, _, err := h.engine.FindVersion(versionID)
	if err != nil {
		return writeError(c, err)
	}

	if isRemote(v.AudioRef) {
		return c.Redirect(v.AudioRef, fiber.StatusFound)
	}
	if h.store == nil {
		return response.NotFound(c, "Audio not available for this version")
	}

	loc, err := h.store.Locate(c.UserContext(), v.AudioRef)
	if err != nil {
		return response.NotFound(c, "Audio not available for this version")
	}
	if isRemote(loc) {
		return c.Redirect(loc, fiber.StatusFound)
	}

	return c.SendFile(loc)
}

func isRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}
