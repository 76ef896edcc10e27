package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"room-staging-backend/internal/middleware"
	"room-staging-backend/internal/services"
	"room-staging-backend/internal/workspace"
)

type ExportHandler struct {
	registry       *workspace.Registry
	storageService *services.StorageService
}

func NewExportHandler(registry *workspace.Registry, storageService *services.StorageService) *ExportHandler {
	return &ExportHandler{registry: registry, storageService: storageService}
}

// Export godoc
// @Summary     Export displayed image
// @Description Copies the image on display to object storage and returns a URL for it.
// @Tags        workspace
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.ExportResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Failure     501 {object} models.ErrorResponse
// @Router      /workspace/export [post]
func (h *ExportHandler) Export(c *gin.Context) {
	if !h.storageService.Enabled() {
		writeError(c, services.ErrExportDisabled)
		return
	}
	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return
	}
	d, err := ws.Download()
	if err != nil {
		writeError(c, err)
		return
	}

	userID, _ := middleware.UserID(c)
	resp, err := h.storageService.Export(c.Request.Context(), userID, d)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
