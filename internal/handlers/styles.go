package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"room-staging-backend/internal/models"
	"room-staging-backend/internal/styles"
)

type StylesHandler struct {
	catalog      *styles.Catalog
	defaultModel string
}

func NewStylesHandler(catalog *styles.Catalog, defaultModel string) *StylesHandler {
	return &StylesHandler{catalog: catalog, defaultModel: defaultModel}
}

// ListStyles godoc
// @Summary     List staging styles
// @Description Returns the style presets, the supported room types and the defaults a new workspace starts with.
// @Tags        styles
// @Produce     json
// @Success     200 {object} models.StylesResponse
// @Router      /styles [get]
func (h *StylesHandler) ListStyles(c *gin.Context) {
	resp := models.StylesResponse{
		Styles:          make([]models.StyleResponse, 0, len(h.catalog.Styles)),
		RoomTypes:       make([]models.RoomTypeResponse, 0, len(h.catalog.RoomTypes)),
		DefaultStyle:    h.catalog.DefaultStyle,
		DefaultRoomType: h.catalog.DefaultRoomType,
		DefaultModel:    h.defaultModel,
	}
	for _, s := range h.catalog.Styles {
		resp.Styles = append(resp.Styles, models.StyleResponse{Name: s.Name, Description: s.Description})
	}
	for _, r := range h.catalog.RoomTypes {
		resp.RoomTypes = append(resp.RoomTypes, models.RoomTypeResponse{Key: r.Key, Label: r.Label})
	}
	c.JSON(http.StatusOK, resp)
}
