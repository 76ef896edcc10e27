package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"room-staging-backend/internal/gemini"
	"room-staging-backend/internal/middleware"
	"room-staging-backend/internal/models"
	"room-staging-backend/internal/services"
	"room-staging-backend/internal/workspace"
)

// writeError maps a domain error to its status code and error body.
func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, workspace.ErrImageNotFound):
		status, code = http.StatusNotFound, "image not found"
	case errors.Is(err, workspace.ErrViewNotFound):
		status, code = http.StatusNotFound, "view not found"
	case errors.Is(err, workspace.ErrNothingToDownload):
		status, code = http.StatusNotFound, "nothing to download"
	case errors.Is(err, workspace.ErrNoActiveImage):
		status, code = http.StatusBadRequest, "no active image"
	case errors.Is(err, workspace.ErrUnknownStyle),
		errors.Is(err, workspace.ErrUnknownRoomType),
		errors.Is(err, workspace.ErrInvalidModel):
		status, code = http.StatusBadRequest, "invalid selection"
	case errors.Is(err, workspace.ErrInvalidPointer):
		status, code = http.StatusBadRequest, "invalid pointer event"
	case errors.Is(err, workspace.ErrBusy):
		status, code = http.StatusConflict, "staging in progress"
	case errors.Is(err, workspace.ErrStaleResult):
		status, code = http.StatusConflict, "staging result discarded"
	case errors.Is(err, workspace.ErrNoComparison):
		status, code = http.StatusConflict, "no comparison"
	case errors.Is(err, workspace.ErrNotConfirmed):
		status, code = http.StatusPreconditionRequired, "confirmation required"
	case errors.Is(err, gemini.ErrMissingCredentials):
		status, code = http.StatusServiceUnavailable, "missing credentials"
	case errors.Is(err, services.ErrExportDisabled):
		status, code = http.StatusNotImplemented, "export disabled"
	}
	c.JSON(status, models.ErrorResponse{Error: code, Message: err.Error()})
}

// workspaceFor returns the workspace of the authenticated user.
func workspaceFor(c *gin.Context, registry *workspace.Registry) (*workspace.Workspace, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return nil, false
	}
	return registry.Get(userID), true
}

// requestConfirmer confirms destructive actions only when the request says
// so explicitly, with ?confirm=true or an X-Confirm: true header.
func requestConfirmer(c *gin.Context) workspace.Confirmer {
	return workspace.ConfirmFunc(func(_ context.Context, _ workspace.Action) bool {
		return isTrue(c.Query("confirm")) || isTrue(c.GetHeader("X-Confirm"))
	})
}

func isTrue(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}
