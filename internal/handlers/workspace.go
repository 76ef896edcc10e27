package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"room-staging-backend/internal/gemini"
	"room-staging-backend/internal/ingest"
	"room-staging-backend/internal/models"
	"room-staging-backend/internal/slider"
	"room-staging-backend/internal/workspace"
)

const maxMultipartMemory = 32 << 20

type WorkspaceHandler struct {
	registry *workspace.Registry
	decoder  *ingest.Decoder
	log      zerolog.Logger
}

func NewWorkspaceHandler(registry *workspace.Registry, decoder *ingest.Decoder, log zerolog.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{
		registry: registry,
		decoder:  decoder,
		log:      log.With().Str("component", "workspace_handler").Logger(),
	}
}

// GetWorkspace godoc
// @Summary     Get workspace
// @Description Returns the uploaded originals, staged variants, current selections and the comparison state.
// @Tags        workspace
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.WorkspaceResponse
// @Failure     401 {object} models.ErrorResponse
// @Router      /workspace [get]
func (h *WorkspaceHandler) GetWorkspace(c *gin.Context) {
	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ws.Snapshot())
}

// UploadImages godoc
// @Summary     Upload room photos
// @Description Decodes every image file of the form (any field name) and adds the ones that decode.
// @Description Non-image files are ignored and files that fail to decode are dropped without an error.
// @Description The last added photo becomes the active one.
// @Tags        workspace
// @Accept      multipart/form-data
// @Produce     json
// @Security    Bearer
// @Param       images formData file true "Room photos (multiple files allowed)"
// @Success     200 {object} models.UploadResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Router      /workspace/images [post]
func (h *WorkspaceHandler) UploadImages(c *gin.Context) {
	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return
	}

	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "failed to parse multipart form",
			Message: err.Error(),
		})
		return
	}

	sources := ingest.SourcesFromMultipart(c.Request.MultipartForm)
	if len(sources) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "no files uploaded",
			Message: "attach one or more image files to the form",
		})
		return
	}

	c.JSON(http.StatusOK, models.UploadResponse{Images: h.ingest(c, ws, sources)})
}

// PasteImages godoc
// @Summary     Paste room photos
// @Description Adds images from clipboard items. Items that are not images are ignored.
// @Description A paste while a staging request is pending is ignored.
// @Tags        workspace
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.PasteRequest true "Clipboard items"
// @Success     200 {object} models.UploadResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Router      /workspace/paste [post]
func (h *WorkspaceHandler) PasteImages(c *gin.Context) {
	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return
	}

	var req models.PasteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	if ws.Processing() {
		c.JSON(http.StatusOK, models.UploadResponse{Images: []models.UploadedImage{}})
		return
	}

	sources := make([]ingest.Source, 0, len(req.Items))
	for i, item := range req.Items {
		sources = append(sources, ingest.PasteSource(fmt.Sprintf("clipboard-%d", i+1), item.Type, item.Data))
	}
	c.JSON(http.StatusOK, models.UploadResponse{Images: h.ingest(c, ws, sources)})
}

func (h *WorkspaceHandler) ingest(c *gin.Context, ws *workspace.Workspace, sources []ingest.Source) []models.UploadedImage {
	ctx := c.Request.Context()
	added := []models.UploadedImage{}
	h.decoder.Ingest(ctx, sources, func(images []ingest.Image) {
		added = ws.Upload(ctx, images)
	})
	return added
}

// SelectActiveImage godoc
// @Summary     Select active photo
// @Description Makes an uploaded photo the active one and shows its original.
// @Tags        workspace
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.SelectImageRequest true "Image to activate"
// @Success     200 {object} models.WorkspaceResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /workspace/active [put]
func (h *WorkspaceHandler) SelectActiveImage(c *gin.Context) {
	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return
	}

	var req models.SelectImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}
	id, err := uuid.Parse(req.ImageID)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid image id"})
		return
	}

	if err := ws.SelectActiveImage(id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ws.Snapshot())
}

// UpdateSelection godoc
// @Summary     Update staging parameters
// @Description Changes the style, room type or model used by the next staging request. Rejected while a request is pending.
// @Description Nothing is changed unless every given field is valid.
// @Tags        workspace
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.SelectionRequest true "New selections"
// @Success     200 {object} models.WorkspaceResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /workspace/selection [put]
func (h *WorkspaceHandler) UpdateSelection(c *gin.Context) {
	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return
	}

	var req models.SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	err := ws.UpdateSelection(workspace.Selection{
		Style:    req.Style,
		RoomType: req.RoomType,
		Model:    req.Model,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ws.Snapshot())
}

// Stage godoc
// @Summary     Stage the active photo
// @Description Sends the active photo to the image model with the selected style, room type and model, and waits for the result.
// @Description On success the staged variant is added and shown. On failure the message is returned and kept in the workspace error.
// @Tags        workspace
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.StageResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Failure     429 {object} models.ErrorResponse
// @Failure     502 {object} models.ErrorResponse
// @Failure     503 {object} models.ErrorResponse
// @Router      /workspace/stage [post]
func (h *WorkspaceHandler) Stage(c *gin.Context) {
	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return
	}

	staged, err := ws.Stage(c.Request.Context())
	if err != nil {
		if isWorkspaceError(err) {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusBadGateway, models.ErrorResponse{Error: "staging failed", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.StageResponse{StagedImage: *staged})
}

// StagePrecheck rejects staging requests that cannot reach the gateway, so
// they are not counted against the rate limit.
func (h *WorkspaceHandler) StagePrecheck(c *gin.Context) {
	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		c.Abort()
		return
	}
	if err := ws.CanStage(); err != nil {
		writeError(c, err)
		c.Abort()
		return
	}
	c.Next()
}

func isWorkspaceError(err error) bool {
	for _, target := range []error{
		workspace.ErrNoActiveImage,
		workspace.ErrBusy,
		workspace.ErrStaleResult,
		workspace.ErrImageNotFound,
		gemini.ErrMissingCredentials,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// SelectView godoc
// @Summary     Select view
// @Description Shows the active original ("original") or one of its staged variants.
// @Tags        workspace
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.SelectViewRequest true "View to show"
// @Success     200 {object} models.WorkspaceResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /workspace/view [put]
func (h *WorkspaceHandler) SelectView(c *gin.Context) {
	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return
	}

	var req models.SelectViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}
	if err := ws.SelectView(req.ViewID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ws.Snapshot())
}

// MovePointer godoc
// @Summary     Drive the comparison slider
// @Description Applies a pointer event (down, move, up, cancel) to the before/after divider.
// @Description Without left/width, x is read as a percentage of the widget width.
// @Tags        workspace
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.PointerRequest true "Pointer event"
// @Success     200 {object} models.ComparisonResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /workspace/comparison/pointer [post]
func (h *WorkspaceHandler) MovePointer(c *gin.Context) {
	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return
	}

	var req models.PointerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}
	cmp, err := ws.Pointer(workspace.PointerEvent{
		Type:   req.Type,
		X:      req.X,
		Bounds: slider.Bounds{Left: req.Left, Width: req.Width},
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cmp)
}

// DeleteImage godoc
// @Summary     Delete a photo
// @Description Deletes an uploaded photo and every variant staged from it. Requires confirm=true or an X-Confirm: true header.
// @Tags        workspace
// @Produce     json
// @Security    Bearer
// @Param       image_id path string true "Image ID (UUID)"
// @Param       confirm query bool false "Confirm the deletion"
// @Success     200 {object} models.WorkspaceResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     428 {object} models.ErrorResponse
// @Router      /workspace/images/{image_id} [delete]
func (h *WorkspaceHandler) DeleteImage(c *gin.Context) {
	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("image_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid image id"})
		return
	}
	if err := ws.DeleteImage(c.Request.Context(), id, requestConfirmer(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ws.Snapshot())
}

// ResetWorkspace godoc
// @Summary     Reset workspace
// @Description Clears every photo and variant and restores the default selections. Requires confirm=true or an X-Confirm: true header.
// @Tags        workspace
// @Produce     json
// @Security    Bearer
// @Param       confirm query bool false "Confirm the reset"
// @Success     200 {object} models.WorkspaceResponse
// @Failure     428 {object} models.ErrorResponse
// @Router      /workspace [delete]
func (h *WorkspaceHandler) ResetWorkspace(c *gin.Context) {
	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return
	}
	if err := ws.Reset(c.Request.Context(), requestConfirmer(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ws.Snapshot())
}

// Download godoc
// @Summary     Download displayed image
// @Description Returns the image on display (the active original or the viewed staged variant) as an attachment.
// @Tags        workspace
// @Produce     image/png
// @Produce     image/jpeg
// @Security    Bearer
// @Success     200 {file} binary
// @Failure     404 {object} models.ErrorResponse
// @Router      /workspace/download [get]
func (h *WorkspaceHandler) Download(c *gin.Context) {
	ws, ok := workspaceFor(c, h.registry)
	if !ok {
		return
	}
	d, err := ws.Download()
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, d.Filename))
	c.Data(http.StatusOK, d.MimeType, d.Data)
}
