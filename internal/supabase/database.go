package supabase

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"room-staging-backend/internal/models"
	"room-staging-backend/internal/workspace"
)

// DatabaseClient keeps the usage ledger: one row per staging attempt.
type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(connectionString string) (*DatabaseClient, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

// Record stores staging outcomes and ignores every other workspace event.
func (d *DatabaseClient) Record(ctx context.Context, e workspace.Event) error {
	attempt, ok := AttemptFromEvent(e)
	if !ok {
		return nil
	}
	return d.CreateAttempt(ctx, attempt)
}

// AttemptFromEvent converts a staging event into a ledger row.
func AttemptFromEvent(e workspace.Event) (*models.StagingAttempt, bool) {
	if e.Type != workspace.EventRoomStaged && e.Type != workspace.EventStagingFailed {
		return nil, false
	}
	a := &models.StagingAttempt{
		ID:         uuid.New(),
		UserID:     e.UserID,
		ImageID:    e.ImageID,
		Style:      e.Style,
		RoomType:   e.RoomType,
		Model:      e.Model,
		Succeeded:  e.Type == workspace.EventRoomStaged,
		DurationMs: e.Duration.Milliseconds(),
		CreatedAt:  e.At,
	}
	if a.Succeeded {
		id := e.StagedImageID
		a.StagedImageID = &id
	} else {
		msg := e.Error
		a.ErrorMessage = &msg
	}
	return a, true
}

func (d *DatabaseClient) CreateAttempt(ctx context.Context, a *models.StagingAttempt) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO staging_attempts (id, user_id, image_id, staged_image_id, style, room_type, model, succeeded, error_message, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, a.ID, a.UserID, a.ImageID, a.StagedImageID, a.Style, a.RoomType, a.Model,
		a.Succeeded, a.ErrorMessage, a.DurationMs, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create staging attempt: %w", err)
	}
	return nil
}

func (d *DatabaseClient) ListAttempts(ctx context.Context, userID string, limit int) ([]models.StagingAttempt, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, user_id, image_id, staged_image_id, style, room_type, model, succeeded, error_message, duration_ms, created_at
		FROM staging_attempts
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list staging attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]models.StagingAttempt, 0)
	for rows.Next() {
		var a models.StagingAttempt
		var stagedID uuid.NullUUID
		var errMsg sql.NullString
		err := rows.Scan(
			&a.ID, &a.UserID, &a.ImageID, &stagedID, &a.Style, &a.RoomType,
			&a.Model, &a.Succeeded, &errMsg, &a.DurationMs, &a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan staging attempt: %w", err)
		}
		if stagedID.Valid {
			id := stagedID.UUID
			a.StagedImageID = &id
		}
		if errMsg.Valid {
			msg := errMsg.String
			a.ErrorMessage = &msg
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read staging attempts: %w", err)
	}

	return attempts, nil
}

func (d *DatabaseClient) Close() error {
	return d.db.Close()
}
