// Package workspace is the per-user state store of the staging tool: the
// uploaded originals, their staged variants and the current selections.
//
// Every operation holds the workspace lock for its whole duration, so no two
// operations interleave. Stage is the exception: it releases the lock while
// the gateway works and applies the result in one step when it returns.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"room-staging-backend/internal/gemini"
	"room-staging-backend/internal/ingest"
	"room-staging-backend/internal/models"
	"room-staging-backend/internal/slider"
	"room-staging-backend/internal/styles"
)

var (
	ErrImageNotFound     = errors.New("image not found")
	ErrViewNotFound      = errors.New("staged image not found for the active image")
	ErrNoActiveImage     = errors.New("no image is selected")
	ErrBusy              = errors.New("a staging request is already in progress")
	ErrNotConfirmed      = errors.New("action was not confirmed")
	ErrNothingToDownload = errors.New("nothing to download")
	ErrStaleResult       = errors.New("staging result discarded because the workspace changed")
	ErrUnknownStyle      = styles.ErrUnknownStyle
	ErrUnknownRoomType   = styles.ErrUnknownRoomType
	ErrInvalidModel      = errors.New("model must not be empty")
	ErrNoComparison      = errors.New("no staged variant is being compared")
	ErrInvalidPointer    = errors.New("pointer event type must be down, move, up or cancel")
)

// Gateway produces a staged variant of a room photo.
type Gateway interface {
	Stage(ctx context.Context, req gemini.Request) (*gemini.Result, error)
}

type Options struct {
	Catalog      *styles.Catalog
	Gateway      Gateway
	DefaultModel string
	Sinks        []EventSink
	Logger       zerolog.Logger
	Now          func() time.Time
	NewID        func() uuid.UUID
}

// DefaultBounds lets clients that do not measure the widget send pointer x
// as a percentage.
var DefaultBounds = slider.Bounds{Left: 0, Width: 100}

type Workspace struct {
	mu sync.Mutex

	userID       string
	catalog      *styles.Catalog
	gateway      Gateway
	defaultModel string
	sinks        []EventSink
	log          zerolog.Logger
	now          func() time.Time
	newID        func() uuid.UUID

	uploaded   []models.UploadedImage // oldest first
	staged     []models.StagedImage   // newest first
	activeID   *uuid.UUID
	style      string
	roomType   string
	model      string
	processing bool
	errMsg     *string
	viewID     string
	generation uint64

	window  *slider.EventWindow
	slider  *slider.Slider
	unmount func()
}

func New(userID string, opts Options) *Workspace {
	if opts.Catalog == nil {
		opts.Catalog = styles.Default()
	}
	if opts.DefaultModel == "" {
		opts.DefaultModel = gemini.DefaultModel
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.New
	}
	w := &Workspace{
		userID:       userID,
		catalog:      opts.Catalog,
		gateway:      opts.Gateway,
		defaultModel: opts.DefaultModel,
		sinks:        opts.Sinks,
		log:          opts.Logger.With().Str("component", "workspace").Str("user_id", userID).Logger(),
		now:          opts.Now,
		newID:        opts.NewID,
		window:       slider.NewEventWindow(),
	}
	w.resetLocked()
	return w
}

// Upload appends the decoded images and makes the last one active. An empty
// batch changes nothing.
func (w *Workspace) Upload(ctx context.Context, images []ingest.Image) []models.UploadedImage {
	if len(images) == 0 {
		return nil
	}

	w.mu.Lock()
	added := make([]models.UploadedImage, 0, len(images))
	for _, img := range images {
		u := models.UploadedImage{
			ID:        w.newID(),
			URL:       img.URL,
			MimeType:  img.MimeType,
			Timestamp: w.now(),
		}
		w.uploaded = append(w.uploaded, u)
		added = append(added, u)
	}
	last := added[len(added)-1].ID
	w.activeID = &last
	w.errMsg = nil
	w.showOriginalLocked()
	w.mu.Unlock()

	w.emit(ctx, Event{Type: EventImagesUploaded, ImageID: last, Count: len(added)})
	return added
}

// SelectActiveImage switches the active original and shows it.
func (w *Workspace) SelectActiveImage(id uuid.UUID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.findUploadedLocked(id); !ok {
		return ErrImageNotFound
	}
	w.activeID = &id
	w.showOriginalLocked()
	return nil
}

func (w *Workspace) SelectStyle(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.processing {
		return ErrBusy
	}
	if _, ok := w.catalog.Style(name); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStyle, name)
	}
	w.style = name
	return nil
}

func (w *Workspace) SelectRoomType(key string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.processing {
		return ErrBusy
	}
	if _, ok := w.catalog.RoomType(key); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRoomType, key)
	}
	w.roomType = key
	return nil
}

func (w *Workspace) SelectModel(model string) error {
	model = strings.TrimSpace(model)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.processing {
		return ErrBusy
	}
	if model == "" {
		return ErrInvalidModel
	}
	w.model = model
	return nil
}

// Selection holds staging parameters to change. Empty fields are left as
// they are.
type Selection struct {
	Style    string
	RoomType string
	Model    string
}

// UpdateSelection validates every field of sel before applying any of them,
// so a rejected update leaves the selections untouched.
func (w *Workspace) UpdateSelection(sel Selection) error {
	model := strings.TrimSpace(sel.Model)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.processing {
		return ErrBusy
	}
	if sel.Style != "" {
		if _, ok := w.catalog.Style(sel.Style); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownStyle, sel.Style)
		}
	}
	if sel.RoomType != "" {
		if _, ok := w.catalog.RoomType(sel.RoomType); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownRoomType, sel.RoomType)
		}
	}
	if sel.Model != "" && model == "" {
		return ErrInvalidModel
	}

	if sel.Style != "" {
		w.style = sel.Style
	}
	if sel.RoomType != "" {
		w.roomType = sel.RoomType
	}
	if model != "" {
		w.model = model
	}
	return nil
}

// CanStage reports why Stage would be rejected before reaching the gateway,
// or nil when it would not.
func (w *Workspace) CanStage() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.activeID == nil {
		return ErrNoActiveImage
	}
	if w.processing {
		return ErrBusy
	}
	return nil
}

// Stage sends the active image to the gateway with the current selections.
// On success the new variant is prepended and shown; on failure the message
// is kept in the error field and the variants are left untouched.
func (w *Workspace) Stage(ctx context.Context) (*models.StagedImage, error) {
	w.mu.Lock()
	if w.activeID == nil {
		w.mu.Unlock()
		return nil, ErrNoActiveImage
	}
	if w.processing {
		w.mu.Unlock()
		return nil, ErrBusy
	}
	parent, ok := w.findUploadedLocked(*w.activeID)
	if !ok {
		w.mu.Unlock()
		return nil, ErrImageNotFound
	}
	req := gemini.Request{
		Image:    parent.URL,
		Style:    w.style,
		RoomType: w.roomType,
		Model:    w.model,
	}
	generation := w.generation
	w.processing = true
	w.errMsg = nil
	w.mu.Unlock()

	start := w.now()
	result, err := w.callGateway(ctx, req)
	elapsed := w.now().Sub(start)

	w.mu.Lock()
	if generation != w.generation {
		w.mu.Unlock()
		w.log.Info().Str("image_id", parent.ID.String()).Msg("discarding staging result after reset")
		return nil, ErrStaleResult
	}
	w.processing = false

	if err != nil {
		msg := err.Error()
		w.errMsg = &msg
		w.mu.Unlock()
		w.emit(ctx, Event{
			Type: EventStagingFailed, ImageID: parent.ID,
			Style: req.Style, RoomType: req.RoomType, Model: req.Model,
			Error: msg, Duration: elapsed,
		})
		return nil, err
	}

	if _, ok := w.findUploadedLocked(parent.ID); !ok {
		w.mu.Unlock()
		w.log.Info().Str("image_id", parent.ID.String()).Msg("discarding staging result for a deleted image")
		return nil, ErrStaleResult
	}

	staged := models.StagedImage{
		ID:              w.newID(),
		OriginalImageID: parent.ID,
		URL:             result.URL,
		Description:     result.Description,
		Style:           req.Style,
		RoomType:        req.RoomType,
		Model:           req.Model,
		Timestamp:       w.now(),
	}
	w.staged = append([]models.StagedImage{staged}, w.staged...)
	if w.activeID != nil && *w.activeID == parent.ID {
		w.showStagedLocked(staged.ID.String())
	}
	w.mu.Unlock()

	w.emit(ctx, Event{
		Type: EventRoomStaged, ImageID: parent.ID, StagedImageID: staged.ID,
		Style: req.Style, RoomType: req.RoomType, Model: req.Model,
		Duration: elapsed,
	})
	return &staged, nil
}

func (w *Workspace) callGateway(ctx context.Context, req gemini.Request) (*gemini.Result, error) {
	if w.gateway == nil {
		return nil, gemini.ErrMissingCredentials
	}
	return w.gateway.Stage(ctx, req)
}

// SelectView shows the original or one of the active image's staged variants.
func (w *Workspace) SelectView(viewID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if viewID == models.OriginalView {
		w.showOriginalLocked()
		return nil
	}
	if w.activeID == nil {
		return ErrNoActiveImage
	}
	id, err := uuid.Parse(viewID)
	if err != nil {
		return ErrViewNotFound
	}
	s, ok := w.findStagedLocked(id)
	if !ok || s.OriginalImageID != *w.activeID {
		return ErrViewNotFound
	}
	w.showStagedLocked(viewID)
	return nil
}

// DeleteImage removes an original and every variant staged from it, once
// the confirmer agrees.
func (w *Workspace) DeleteImage(ctx context.Context, id uuid.UUID, c Confirmer) error {
	if !confirmed(ctx, c, Action{Kind: ActionDeleteImage, ImageID: id}) {
		return ErrNotConfirmed
	}

	w.mu.Lock()
	idx := -1
	for i, u := range w.uploaded {
		if u.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		w.mu.Unlock()
		return ErrImageNotFound
	}
	w.uploaded = append(w.uploaded[:idx:idx], w.uploaded[idx+1:]...)

	kept := make([]models.StagedImage, 0, len(w.staged))
	removed := 0
	for _, s := range w.staged {
		if s.OriginalImageID == id {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	w.staged = kept

	if w.activeID != nil && *w.activeID == id {
		if n := len(w.uploaded); n > 0 {
			next := w.uploaded[n-1].ID
			w.activeID = &next
		} else {
			w.activeID = nil
		}
		w.showOriginalLocked()
	}
	w.mu.Unlock()

	w.emit(ctx, Event{Type: EventImageDeleted, ImageID: id, Count: removed})
	return nil
}

// Reset restores the initial state, once the confirmer agrees. A staging
// request still in flight is discarded when it returns.
func (w *Workspace) Reset(ctx context.Context, c Confirmer) error {
	if !confirmed(ctx, c, Action{Kind: ActionReset}) {
		return ErrNotConfirmed
	}
	w.mu.Lock()
	w.resetLocked()
	w.mu.Unlock()

	w.emit(ctx, Event{Type: EventReset})
	return nil
}

// Download is the image currently on display, ready to be saved.
type Download struct {
	Filename string
	MimeType string
	Data     []byte
	Style    string
	ImageID  uuid.UUID
	Staged   bool
}

// Download resolves the displayed image: the active original or the staged
// variant being viewed.
func (w *Workspace) Download() (*Download, error) {
	w.mu.Lock()
	if w.activeID == nil {
		w.mu.Unlock()
		return nil, ErrNothingToDownload
	}
	var (
		url    string
		style  = w.style
		id     = *w.activeID
		staged bool
	)
	if s, ok := w.viewedStagedLocked(); ok {
		url, style, id, staged = s.URL, s.Style, s.ID, true
	} else if u, ok := w.findUploadedLocked(*w.activeID); ok {
		url = u.URL
	}
	now := w.now()
	w.mu.Unlock()

	if url == "" {
		return nil, ErrNothingToDownload
	}
	mimeType, data, err := ingest.DecodeDataURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to decode displayed image: %w", err)
	}
	return &Download{
		Filename: DownloadFilename(style, mimeType, now),
		MimeType: mimeType,
		Data:     data,
		Style:    style,
		ImageID:  id,
		Staged:   staged,
	}, nil
}

// DownloadFilename names a saved image after its style and the save time.
func DownloadFilename(style, mimeType string, at time.Time) string {
	ext := ".png"
	if m := mimetype.Lookup(mimeType); m != nil && m.Extension() != "" {
		ext = m.Extension()
	}
	return fmt.Sprintf("staged-%s-%d%s", slug(style), at.UnixMilli(), ext)
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "image"
	}
	return out
}

// PointerEvent is a comparison slider input. Bounds may be zero, in which
// case the bounds of the last event (or DefaultBounds) apply.
type PointerEvent struct {
	Type   string
	X      float64
	Bounds slider.Bounds
}

// Pointer feeds a pointer event to the slider of the variant being viewed.
// Moves and releases go through the window so they are honored anywhere.
func (w *Workspace) Pointer(ev PointerEvent) (*models.ComparisonResponse, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.slider == nil {
		return nil, ErrNoComparison
	}
	if ev.Bounds.Width > 0 {
		w.slider.Resize(ev.Bounds)
	}
	switch ev.Type {
	case "down":
		w.slider.Press(ev.X)
	case "move":
		w.window.DispatchMove(ev.X)
	case "up":
		w.window.DispatchUp()
	case "cancel":
		w.slider.Cancel()
	default:
		return nil, ErrInvalidPointer
	}
	return w.comparisonLocked(), nil
}

// Processing reports whether a staging request is pending.
func (w *Workspace) Processing() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.processing
}

// Snapshot returns a copy of the whole state.
func (w *Workspace) Snapshot() models.WorkspaceResponse {
	w.mu.Lock()
	defer w.mu.Unlock()

	resp := models.WorkspaceResponse{
		UploadedImages:   append([]models.UploadedImage{}, w.uploaded...),
		StagedImages:     append([]models.StagedImage{}, w.staged...),
		SelectedStyle:    w.style,
		SelectedRoomType: w.roomType,
		SelectedModel:    w.model,
		IsProcessing:     w.processing,
		ViewID:           w.viewID,
		History:          []models.StagedImage{},
	}
	if w.activeID != nil {
		id := w.activeID.String()
		resp.ActiveImageID = &id
		for _, s := range w.staged {
			if s.OriginalImageID == *w.activeID {
				resp.History = append(resp.History, s)
			}
		}
	}
	if w.errMsg != nil {
		msg := *w.errMsg
		resp.Error = &msg
	}
	resp.Comparison = w.comparisonLocked()
	return resp
}

// caller holds mu
func (w *Workspace) resetLocked() {
	w.uploaded = nil
	w.staged = nil
	w.activeID = nil
	w.style = w.catalog.DefaultStyle
	w.roomType = w.catalog.DefaultRoomType
	w.model = w.defaultModel
	w.processing = false
	w.errMsg = nil
	w.generation++
	w.showOriginalLocked()
}

// caller holds mu
func (w *Workspace) showOriginalLocked() {
	w.viewID = models.OriginalView
	w.unmountSliderLocked()
}

// showStagedLocked switches to a staged variant with a freshly mounted,
// centered slider. Caller holds mu.
func (w *Workspace) showStagedLocked(viewID string) {
	w.unmountSliderLocked()
	w.viewID = viewID
	w.slider = slider.New()
	w.unmount = w.slider.Mount(w.window, DefaultBounds)
}

// caller holds mu
func (w *Workspace) unmountSliderLocked() {
	if w.unmount != nil {
		w.unmount()
	}
	w.unmount = nil
	w.slider = nil
}

// caller holds mu
func (w *Workspace) comparisonLocked() *models.ComparisonResponse {
	s, ok := w.viewedStagedLocked()
	if !ok || w.slider == nil {
		return nil
	}
	parent, ok := w.findUploadedLocked(s.OriginalImageID)
	if !ok {
		return nil
	}
	r := w.slider.Reveal()
	return &models.ComparisonResponse{
		BeforeURL: parent.URL,
		AfterURL:  s.URL,
		Position:  r.Position,
		ClipRight: r.ClipRight,
		Dragging:  w.slider.Dragging(),
	}
}

// caller holds mu
func (w *Workspace) viewedStagedLocked() (models.StagedImage, bool) {
	if w.viewID == models.OriginalView {
		return models.StagedImage{}, false
	}
	id, err := uuid.Parse(w.viewID)
	if err != nil {
		return models.StagedImage{}, false
	}
	return w.findStagedLocked(id)
}

// caller holds mu
func (w *Workspace) findUploadedLocked(id uuid.UUID) (models.UploadedImage, bool) {
	for _, u := range w.uploaded {
		if u.ID == id {
			return u, true
		}
	}
	return models.UploadedImage{}, false
}

// caller holds mu
func (w *Workspace) findStagedLocked(id uuid.UUID) (models.StagedImage, bool) {
	for _, s := range w.staged {
		if s.ID == id {
			return s, true
		}
	}
	return models.StagedImage{}, false
}
