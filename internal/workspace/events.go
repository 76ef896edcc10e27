package workspace

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventImagesUploaded EventType = "images_uploaded"
	EventRoomStaged     EventType = "room_staged"
	EventStagingFailed  EventType = "staging_failed"
	EventImageDeleted   EventType = "image_deleted"
	EventReset          EventType = "workspace_reset"
)

// Event is a completed state transition, reported to the sinks after the
// workspace lock is released.
type Event struct {
	Type          EventType
	UserID        string
	ImageID       uuid.UUID
	StagedImageID uuid.UUID
	Style         string
	RoomType      string
	Model         string
	Count         int
	Error         string
	Duration      time.Duration
	At            time.Time
}

// EventSink receives workspace events. A failing sink is logged and never
// affects the operation that produced the event.
type EventSink interface {
	Record(ctx context.Context, e Event) error
}

func (w *Workspace) emit(ctx context.Context, e Event) {
	e.UserID = w.userID
	if e.At.IsZero() {
		e.At = w.now()
	}
	for _, sink := range w.sinks {
		if err := sink.Record(ctx, e); err != nil {
			w.log.Warn().Err(err).Str("event", string(e.Type)).Msg("failed to record workspace event")
		}
	}
}
