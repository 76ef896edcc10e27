package supabase

import (
	"context"
	"fmt"

	"github.com/supabase-community/supabase-go"
	"room-staging-backend/internal/workspace"
)

const eventsTable = "workspace_events"

// eventRow is a row of workspace_events. Supabase Realtime broadcasts each
// insert to clients subscribed to the table, filtered by channel.
type eventRow struct {
	Channel string         `json:"channel"`
	UserID  string         `json:"user_id"`
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload"`
}

type rowInserter interface {
	insert(table string, row any) error
}

type postgrestInserter struct {
	client *supabase.Client
}

func (p postgrestInserter) insert(table string, row any) error {
	_, _, err := p.client.From(table).Insert(row, false, "", "minimal", "").Execute()
	return err
}

// RealtimePublisher records workspace events in workspace_events.
type RealtimePublisher struct {
	rows rowInserter
}

func NewRealtimePublisher(client *supabase.Client) *RealtimePublisher {
	return &RealtimePublisher{rows: postgrestInserter{client: client}}
}

func (r *RealtimePublisher) PublishEvent(channel, userID, event string, payload map[string]any) error {
	row := eventRow{Channel: channel, UserID: userID, Event: event, Payload: payload}
	if err := r.rows.insert(eventsTable, row); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event, err)
	}
	return nil
}

func (r *RealtimePublisher) PublishUserEvent(userID, event string, payload map[string]any) error {
	return r.PublishEvent(UserChannel(userID), userID, event, payload)
}

// Record publishes a workspace event on the user's channel.
func (r *RealtimePublisher) Record(_ context.Context, e workspace.Event) error {
	return r.PublishUserEvent(e.UserID, string(e.Type), EventPayload(e))
}

func UserChannel(userID string) string {
	return "user:" + userID
}

// EventPayload builds the payload published for a workspace event.
func EventPayload(e workspace.Event) map[string]any {
	switch e.Type {
	case workspace.EventImagesUploaded:
		return ImagesUploadedPayload(e.ImageID.String(), e.Count)
	case workspace.EventRoomStaged:
		return RoomStagedPayload(e.ImageID.String(), e.StagedImageID.String(), e.Style, e.RoomType, e.Duration.Milliseconds())
	case workspace.EventStagingFailed:
		return StagingFailedPayload(e.ImageID.String(), e.Style, e.Error)
	case workspace.EventImageDeleted:
		return ImageDeletedPayload(e.ImageID.String(), e.Count)
	default:
		return map[string]any{"at": e.At.UnixMilli()}
	}
}

// Event payloads
func ImagesUploadedPayload(activeImageID string, count int) map[string]any {
	return map[string]any{
		"active_image_id": activeImageID,
		"image_count":     count,
	}
}

func RoomStagedPayload(imageID, stagedImageID, style, roomType string, durationMs int64) map[string]any {
	return map[string]any{
		"image_id":        imageID,
		"staged_image_id": stagedImageID,
		"style":           style,
		"room_type":       roomType,
		"duration_ms":     durationMs,
	}
}

func StagingFailedPayload(imageID, style, errorMsg string) map[string]any {
	return map[string]any{
		"image_id": imageID,
		"style":    style,
		"error":    errorMsg,
	}
}

func ImageDeletedPayload(imageID string, removedVariants int) map[string]any {
	return map[string]any{
		"image_id":         imageID,
		"removed_variants": removedVariants,
	}
}
