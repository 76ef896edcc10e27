package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"room-staging-backend/internal/middleware"
	"room-staging-backend/internal/models"
)

const (
	defaultUsageLimit = 50
	maxUsageLimit     = 200
)

// AttemptLister reads the staging usage ledger.
type AttemptLister interface {
	ListAttempts(ctx context.Context, userID string, limit int) ([]models.StagingAttempt, error)
}

type UsageHandler struct {
	ledger AttemptLister
}

func NewUsageHandler(ledger AttemptLister) *UsageHandler {
	return &UsageHandler{ledger: ledger}
}

// GetUsage godoc
// @Summary     Staging usage
// @Description Lists the caller's most recent staging attempts, newest first.
// @Tags        usage
// @Produce     json
// @Security    Bearer
// @Param       limit query int false "Maximum number of attempts (default 50, max 200)"
// @Success     200 {object} models.UsageResponse
// @Failure     500 {object} models.ErrorResponse
// @Failure     503 {object} models.ErrorResponse
// @Router      /usage [get]
func (h *UsageHandler) GetUsage(c *gin.Context) {
	if h.ledger == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "database not available"})
		return
	}
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return
	}

	limit := defaultUsageLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = min(n, maxUsageLimit)
	}

	attempts, err := h.ledger.ListAttempts(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to list usage", Message: err.Error()})
		return
	}

	resp := models.UsageResponse{Attempts: attempts}
	for _, a := range attempts {
		if a.Succeeded {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}
	c.JSON(http.StatusOK, resp)
}
