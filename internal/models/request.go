package models

type SelectImageRequest struct {
	ImageID string `json:"image_id" binding:"required"`
}

// SelectionRequest changes any of the staging parameters. Empty fields are left as they are.
type SelectionRequest struct {
	Style    string `json:"style,omitempty" example:"Modern"`
	RoomType string `json:"room_type,omitempty" example:"LIVING_ROOM"`
	Model    string `json:"model,omitempty" example:"gemini-2.5-flash-image"`
}

type SelectViewRequest struct {
	// ViewID is "original" or the id of a staged variant of the active image.
	ViewID string `json:"view_id" binding:"required" example:"original"`
}

type PasteItem struct {
	Type string `json:"type" example:"image/png"`
	// Data is the base64 payload or a data URL.
	Data string `json:"data"`
}

type PasteRequest struct {
	Items []PasteItem `json:"items"`
}

type PointerRequest struct {
	// Type is one of "down", "move", "up", "cancel".
	Type  string  `json:"type" binding:"required" example:"down"`
	X     float64 `json:"x"`
	Left  float64 `json:"left"`
	Width float64 `json:"width"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
