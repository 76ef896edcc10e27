package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"room-staging-backend/internal/models"
	"room-staging-backend/internal/objectstore"
	"room-staging-backend/internal/workspace"
)

var ErrExportDisabled = errors.New("no export storage is configured")

// StorageService copies downloaded images to object storage.
type StorageService struct {
	store objectstore.Store
	log   zerolog.Logger
	now   func() time.Time
}

func NewStorageService(store objectstore.Store, log zerolog.Logger) *StorageService {
	return &StorageService{
		store: store,
		log:   log.With().Str("component", "export").Logger(),
		now:   time.Now,
	}
}

// Enabled reports whether a storage backend is configured.
func (s *StorageService) Enabled() bool {
	return s != nil && s.store != nil
}

// ExportKey is where an exported image is stored.
func ExportKey(userID, filename string) string {
	return fmt.Sprintf("users/%s/exports/%s", userID, filename)
}

// Export uploads d and returns a URL for it. The object is removed again if
// no URL can be produced.
func (s *StorageService) Export(ctx context.Context, userID string, d *workspace.Download) (*models.ExportResponse, error) {
	if !s.Enabled() {
		return nil, ErrExportDisabled
	}

	key := ExportKey(userID, d.Filename)
	if err := s.store.Put(ctx, key, bytes.NewReader(d.Data), int64(len(d.Data)), d.MimeType); err != nil {
		return nil, fmt.Errorf("failed to export image: %w", err)
	}

	url, err := s.store.URL(ctx, key)
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.log.Warn().Err(delErr).Str("key", key).Msg("failed to remove export without url")
		}
		return nil, fmt.Errorf("failed to get export url: %w", err)
	}

	s.log.Info().
		Str("user_id", userID).
		Str("key", key).
		Bool("staged", d.Staged).
		Int("bytes", len(d.Data)).
		Msg("image exported")

	return &models.ExportResponse{
		Filename:   d.Filename,
		StorageURL: url,
		ExportedAt: s.now(),
	}, nil
}
