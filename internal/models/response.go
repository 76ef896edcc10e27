package models

import "time"

type WorkspaceResponse struct {
	UploadedImages   []UploadedImage     `json:"uploaded_images"`
	StagedImages     []StagedImage       `json:"staged_images"`
	ActiveImageID    *string             `json:"active_image_id"`
	SelectedStyle    string              `json:"selected_style"`
	SelectedRoomType string              `json:"selected_room_type"`
	SelectedModel    string              `json:"selected_model"`
	IsProcessing     bool                `json:"is_processing"`
	Error            *string             `json:"error"`
	ViewID           string              `json:"view_id"`
	History          []StagedImage       `json:"history"`
	Comparison       *ComparisonResponse `json:"comparison,omitempty"`
}

type ComparisonResponse struct {
	BeforeURL string  `json:"before_url"`
	AfterURL  string  `json:"after_url"`
	Position  float64 `json:"position"`
	ClipRight float64 `json:"clip_right"`
	Dragging  bool    `json:"dragging"`
}

type UploadResponse struct {
	Images []UploadedImage `json:"images"`
}

type StageResponse struct {
	StagedImage StagedImage `json:"staged_image"`
}

type ExportResponse struct {
	Filename   string    `json:"filename"`
	StorageURL string    `json:"storage_url"`
	ExportedAt time.Time `json:"exported_at"`
}

type StyleResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type RoomTypeResponse struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type StylesResponse struct {
	Styles          []StyleResponse    `json:"styles"`
	RoomTypes       []RoomTypeResponse `json:"room_types"`
	DefaultStyle    string             `json:"default_style"`
	DefaultRoomType string             `json:"default_room_type"`
	DefaultModel    string             `json:"default_model"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type UsageResponse struct {
	Attempts  []StagingAttempt `json:"attempts"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
}
