package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"room-staging-backend/internal/config"
	"room-staging-backend/internal/gemini"
	"room-staging-backend/internal/handlers"
	"room-staging-backend/internal/ingest"
	"room-staging-backend/internal/models"
	"room-staging-backend/internal/ratelimit"
	"room-staging-backend/internal/services"
	"room-staging-backend/internal/styles"
	"room-staging-backend/internal/workspace"
)

const jwtSecret = "handler-test-secret"

type stubGateway struct {
	err error
}

func (s *stubGateway) Stage(_ context.Context, req gemini.Request) (*gemini.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &gemini.Result{
		URL:         ingest.EncodeDataURL("image/png", []byte("staged-"+req.Style)),
		Description: "Staged in " + req.Style + ".",
	}, nil
}

type memoryStore struct {
	objects map[string][]byte
}

func (m *memoryStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memoryStore) URL(_ context.Context, key string) (string, error) {
	return "https://files.example.com/" + key, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

type stubLedger struct {
	attempts []models.StagingAttempt
	limit    int
}

func (s *stubLedger) ListAttempts(_ context.Context, _ string, limit int) ([]models.StagingAttempt, error) {
	s.limit = limit
	return s.attempts, nil
}

type testServer struct {
	router   *gin.Engine
	registry *workspace.Registry
	gateway  *stubGateway
	store    *memoryStore
}

func newTestServer(t *testing.T, mutate ...func(*handlers.Deps)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gw := &stubGateway{}
	registry := workspace.NewRegistry(workspace.Options{Gateway: gw, Logger: zerolog.Nop()})
	store := &memoryStore{objects: map[string][]byte{}}
	deps := handlers.Deps{
		Catalog:        styles.Default(),
		DefaultModel:   gemini.DefaultModel,
		Registry:       registry,
		Decoder:        ingest.NewDecoder(1<<20, zerolog.Nop()),
		StorageService: services.NewStorageService(store, zerolog.Nop()),
		Logger:         zerolog.Nop(),
	}
	for _, m := range mutate {
		m(&deps)
	}
	cfg := &config.Config{JWTSecret: jwtSecret}
	return &testServer{
		router:   handlers.NewRouter(cfg, deps),
		registry: registry,
		gateway:  gw,
		store:    store,
	}
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": userID})
	s, err := token.SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return "Bearer " + s
}

func (s *testServer) do(t *testing.T, method, path string, body io.Reader, contentType string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", bearer(t, "user-1"))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) doJSON(t *testing.T, method, path string, payload any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	return s.do(t, method, path, body, "application/json", headers...)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(1, 1, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type formFile struct {
	field, name, contentType string
	data                     []byte
}

func multipartBody(t *testing.T, files ...formFile) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (s *testServer) upload(t *testing.T) models.UploadedImage {
	t.Helper()
	body, ct := multipartBody(t, formFile{"images", "room.png", "image/png", pngBytes(t)})
	w := s.do(t, http.MethodPost, "/api/v1/workspace/images", body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[models.UploadResponse](t, w)
	require.Len(t, resp.Images, 1)
	return resp.Images[0]
}

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", handlers.HealthHandler)

	req, _ := http.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestListStyles_Public(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/styles", nil))

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[models.StylesResponse](t, w)
	assert.Len(t, resp.Styles, 18)
	assert.Len(t, resp.RoomTypes, 7)
	assert.Equal(t, "Modern", resp.DefaultStyle)
	assert.Equal(t, "LIVING_ROOM", resp.DefaultRoomType)
	assert.Equal(t, gemini.DefaultModel, resp.DefaultModel)
}

func TestWorkspace_RequiresAuth(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/workspace", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUploadStageDeleteFlow(t *testing.T) {
	s := newTestServer(t)
	original := s.upload(t)

	w := s.doJSON(t, http.MethodPut, "/api/v1/workspace/selection", models.SelectionRequest{Style: "Coastal", RoomType: "BEDROOM"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.doJSON(t, http.MethodPost, "/api/v1/workspace/stage", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	staged := decode[models.StageResponse](t, w).StagedImage
	assert.Equal(t, "Coastal", staged.Style)
	assert.Equal(t, "BEDROOM", staged.RoomType)
	assert.Equal(t, original.ID, staged.OriginalImageID)

	snap := decode[models.WorkspaceResponse](t, s.doJSON(t, http.MethodGet, "/api/v1/workspace", nil))
	assert.Equal(t, staged.ID.String(), snap.ViewID)
	require.NotNil(t, snap.Comparison)
	assert.Equal(t, 50.0, snap.Comparison.Position)
	assert.Equal(t, original.URL, snap.Comparison.BeforeURL)

	w = s.doJSON(t, http.MethodDelete, "/api/v1/workspace/images/"+original.ID.String(), nil)
	assert.Equal(t, http.StatusPreconditionRequired, w.Code)

	w = s.doJSON(t, http.MethodDelete, "/api/v1/workspace/images/"+original.ID.String()+"?confirm=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	snap = decode[models.WorkspaceResponse](t, w)
	assert.Empty(t, snap.UploadedImages)
	assert.Empty(t, snap.StagedImages)
	assert.Nil(t, snap.ActiveImageID)
	assert.Equal(t, models.OriginalView, snap.ViewID)
}

func TestUpload_FiltersAndDropsSilently(t *testing.T) {
	s := newTestServer(t)
	body, ct := multipartBody(t,
		formFile{"files", "notes.txt", "text/plain", []byte("hello")},
		formFile{"files", "broken.png", "image/png", []byte("not a png")},
		formFile{"files", "good.png", "image/png", pngBytes(t)},
	)
	w := s.do(t, http.MethodPost, "/api/v1/workspace/images", body, ct)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[models.UploadResponse](t, w).Images, 1)

	body, ct = multipartBody(t, formFile{"files", "broken.png", "image/png", []byte("nope")})
	w = s.do(t, http.MethodPost, "/api/v1/workspace/images", body, ct)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[models.UploadResponse](t, w).Images)
	assert.Len(t, s.registry.Get("user-1").Snapshot().UploadedImages, 1)
}

func TestUpload_NoFiles(t *testing.T) {
	s := newTestServer(t)
	body, ct := multipartBody(t)
	w := s.do(t, http.MethodPost, "/api/v1/workspace/images", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaste(t *testing.T) {
	s := newTestServer(t)
	data := pngBytes(t)
	w := s.doJSON(t, http.MethodPost, "/api/v1/workspace/paste", models.PasteRequest{Items: []models.PasteItem{
		{Type: "text/html", Data: "<b>hi</b>"},
		{Type: "image/png", Data: ingest.EncodeDataURL("image/png", data)},
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	images := decode[models.UploadResponse](t, w).Images
	require.Len(t, images, 1)
	assert.Equal(t, "image/png", images[0].MimeType)
}

func TestStage_FailureSurfacedVerbatim(t *testing.T) {
	s := newTestServer(t)
	s.upload(t)
	s.gateway.err = errors.New("the model refused the request")

	w := s.doJSON(t, http.MethodPost, "/api/v1/workspace/stage", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	resp := decode[models.ErrorResponse](t, w)
	assert.Equal(t, "the model refused the request", resp.Message)

	snap := decode[models.WorkspaceResponse](t, s.doJSON(t, http.MethodGet, "/api/v1/workspace", nil))
	require.NotNil(t, snap.Error)
	assert.Equal(t, "the model refused the request", *snap.Error)
	assert.Empty(t, snap.StagedImages)
}

func TestStage_MissingCredentials(t *testing.T) {
	s := newTestServer(t)
	s.upload(t)
	s.gateway.err = gemini.ErrMissingCredentials

	w := s.doJSON(t, http.MethodPost, "/api/v1/workspace/stage", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "GEMINI_API_KEY")
}

func TestStage_NoActiveImage(t *testing.T) {
	s := newTestServer(t)
	w := s.doJSON(t, http.MethodPost, "/api/v1/workspace/stage", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStage_RateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter, err := ratelimit.NewFixedWindowLimiter(mr.Addr(), "", "test", 1, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = limiter.Close() })

	s := newTestServer(t, func(d *handlers.Deps) { d.Limiter = limiter })
	s.upload(t)

	w := s.doJSON(t, http.MethodPost, "/api/v1/workspace/stage", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.doJSON(t, http.MethodPost, "/api/v1/workspace/stage", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestSelection_Invalid(t *testing.T) {
	s := newTestServer(t)
	w := s.doJSON(t, http.MethodPut, "/api/v1/workspace/selection", models.SelectionRequest{Style: "Brutalist"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSelection_RejectedUpdateChangesNothing(t *testing.T) {
	s := newTestServer(t)
	w := s.doJSON(t, http.MethodPut, "/api/v1/workspace/selection", models.SelectionRequest{Style: "Scandinavian", RoomType: "NOT_A_ROOM"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	snap := decode[models.WorkspaceResponse](t, s.doJSON(t, http.MethodGet, "/api/v1/workspace", nil))
	assert.Equal(t, "Modern", snap.SelectedStyle)
	assert.Equal(t, "LIVING_ROOM", snap.SelectedRoomType)
}

func TestStage_RejectedRequestsDoNotUseQuota(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter, err := ratelimit.NewFixedWindowLimiter(mr.Addr(), "", "test", 1, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = limiter.Close() })

	s := newTestServer(t, func(d *handlers.Deps) { d.Limiter = limiter })
	for range 3 {
		w := s.doJSON(t, http.MethodPost, "/api/v1/workspace/stage", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}

	s.upload(t)
	w := s.doJSON(t, http.MethodPost, "/api/v1/workspace/stage", nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestSelectActiveAndView(t *testing.T) {
	s := newTestServer(t)
	first := s.upload(t)
	s.upload(t)

	w := s.doJSON(t, http.MethodPut, "/api/v1/workspace/active", models.SelectImageRequest{ImageID: first.ID.String()})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first.ID.String(), *decode[models.WorkspaceResponse](t, w).ActiveImageID)

	w = s.doJSON(t, http.MethodPut, "/api/v1/workspace/active", models.SelectImageRequest{ImageID: "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.doJSON(t, http.MethodPut, "/api/v1/workspace/view", models.SelectViewRequest{ViewID: "3f1e8a4c-0000-4000-8000-000000000000"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.doJSON(t, http.MethodPut, "/api/v1/workspace/view", models.SelectViewRequest{ViewID: models.OriginalView})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPointer(t *testing.T) {
	s := newTestServer(t)
	s.upload(t)

	w := s.doJSON(t, http.MethodPost, "/api/v1/workspace/comparison/pointer", models.PointerRequest{Type: "down", X: 10})
	assert.Equal(t, http.StatusConflict, w.Code)

	require.Equal(t, http.StatusOK, s.doJSON(t, http.MethodPost, "/api/v1/workspace/stage", nil).Code)

	w = s.doJSON(t, http.MethodPost, "/api/v1/workspace/comparison/pointer", models.PointerRequest{Type: "down", X: 150, Left: 100, Width: 200})
	require.Equal(t, http.StatusOK, w.Code)
	cmp := decode[models.ComparisonResponse](t, w)
	assert.Equal(t, 25.0, cmp.Position)
	assert.True(t, cmp.Dragging)

	w = s.doJSON(t, http.MethodPost, "/api/v1/workspace/comparison/pointer", models.PointerRequest{Type: "move", X: 900})
	assert.Equal(t, 100.0, decode[models.ComparisonResponse](t, w).Position)

	w = s.doJSON(t, http.MethodPost, "/api/v1/workspace/comparison/pointer", models.PointerRequest{Type: "up"})
	assert.False(t, decode[models.ComparisonResponse](t, w).Dragging)

	w = s.doJSON(t, http.MethodPost, "/api/v1/workspace/comparison/pointer", models.PointerRequest{Type: "scroll"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDownload(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/v1/workspace/download", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	s.upload(t)
	require.Equal(t, http.StatusOK, s.doJSON(t, http.MethodPost, "/api/v1/workspace/stage", nil).Code)

	w = s.do(t, http.MethodGet, "/api/v1/workspace/download", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	disposition := w.Header().Get("Content-Disposition")
	assert.True(t, strings.HasPrefix(disposition, `attachment; filename="staged-modern-`), disposition)
	assert.Equal(t, "staged-Modern", w.Body.String())
}

func TestExport(t *testing.T) {
	s := newTestServer(t)
	s.upload(t)

	w := s.doJSON(t, http.MethodPost, "/api/v1/workspace/export", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[models.ExportResponse](t, w)
	assert.True(t, strings.HasPrefix(resp.StorageURL, "https://files.example.com/users/user-1/exports/staged-modern-"))
	assert.Len(t, s.store.objects, 1)
}

func TestExport_Disabled(t *testing.T) {
	s := newTestServer(t, func(d *handlers.Deps) {
		d.StorageService = services.NewStorageService(nil, zerolog.Nop())
	})
	s.upload(t)

	w := s.doJSON(t, http.MethodPost, "/api/v1/workspace/export", nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestReset(t *testing.T) {
	s := newTestServer(t)
	s.upload(t)

	w := s.doJSON(t, http.MethodDelete, "/api/v1/workspace", nil)
	assert.Equal(t, http.StatusPreconditionRequired, w.Code)

	w = s.doJSON(t, http.MethodDelete, "/api/v1/workspace", nil, "X-Confirm", "true")
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode[models.WorkspaceResponse](t, w)
	assert.Empty(t, snap.UploadedImages)
	assert.Equal(t, "Modern", snap.SelectedStyle)
}

func TestUsage(t *testing.T) {
	ledger := &stubLedger{attempts: []models.StagingAttempt{
		{Style: "Modern", Succeeded: true},
		{Style: "Coastal", Succeeded: false},
		{Style: "Rustic", Succeeded: true},
	}}
	s := newTestServer(t, func(d *handlers.Deps) { d.Ledger = ledger })

	w := s.do(t, http.MethodGet, "/api/v1/usage?limit=500", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[models.UsageResponse](t, w)
	assert.Equal(t, 2, resp.Succeeded)
	assert.Equal(t, 1, resp.Failed)
	assert.Equal(t, 200, ledger.limit)

	w = s.do(t, http.MethodGet, "/api/v1/usage?limit=-1", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUsage_NoDatabase(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/v1/usage", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
