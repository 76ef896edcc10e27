// Package gemini is the staging gateway: it sends a room photo with a style
// prompt to a Gemini image model and returns the staged image and caption.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
	"room-staging-backend/internal/ingest"
	"room-staging-backend/internal/styles"
)

const (
	DefaultModel       = "gemini-2.5-flash-image"
	DefaultDescription = "Room successfully staged with professional decor."

	placeholderAPIKey = "PLACEHOLDER_API_KEY"
	defaultInputMime  = "image/jpeg"
	defaultOutputMime = "image/png"
)

var (
	ErrMissingCredentials = errors.New("invalid API key: add GEMINI_API_KEY to .env.local or the environment")
	ErrNoImage            = errors.New("no image data was returned from the model")
	ErrEmptyImage         = errors.New("no image was provided for staging")
)

type Request struct {
	// Image is a data URL or bare base64 payload.
	Image    string
	Style    string
	RoomType string
	Model    string
}

type Result struct {
	// URL is a data URL holding the generated image.
	URL         string
	Description string
}

type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Catalog *styles.Catalog
	Logger  zerolog.Logger
}

type Client struct {
	apiKey       string
	baseURL      string
	defaultModel string
	httpClient   *http.Client
	catalog      *styles.Catalog
	log          zerolog.Logger

	mu     sync.Mutex
	models *genai.Models
}

func NewClient(opts Options) *Client {
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	catalog := opts.Catalog
	if catalog == nil {
		catalog = styles.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		baseURL:      opts.BaseURL,
		defaultModel: model,
		httpClient:   &http.Client{Timeout: timeout},
		catalog:      catalog,
		log:          opts.Logger.With().Str("component", "gemini").Logger(),
	}
}

// HasCredentials reports whether an API key that is not the placeholder is configured.
func (c *Client) HasCredentials() bool {
	return c.apiKey != "" && c.apiKey != placeholderAPIKey
}

// Stage sends one staging request and waits for the complete response.
func (c *Client) Stage(ctx context.Context, req Request) (*Result, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingCredentials
	}

	prompt, err := c.catalog.Prompt(req.Style, req.RoomType)
	if err != nil {
		return nil, err
	}

	mimeType, data, err := imagePayload(req.Image)
	if err != nil {
		return nil, err
	}

	models, err := c.client(ctx)
	if err != nil {
		return nil, err
	}

	model := strings.TrimPrefix(strings.TrimSpace(req.Model), "models/")
	if model == "" {
		model = c.defaultModel
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, mimeType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}

	start := time.Now()
	resp, err := models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		c.log.Error().Err(err).Str("model", model).Str("style", req.Style).Msg("staging request failed")
		return nil, fmt.Errorf("failed to stage the room: %w", err)
	}

	result, err := parseResponse(resp)
	if err != nil {
		c.log.Warn().Err(err).Str("model", model).Msg("staging response had no image")
		return nil, err
	}

	c.log.Info().
		Str("model", model).
		Str("style", req.Style).
		Str("room_type", req.RoomType).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("room staged")
	return result, nil
}

func (c *Client) client(ctx context.Context) (*genai.Models, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.models != nil {
		return c.models, nil
	}
	cfg := &genai.ClientConfig{
		APIKey:     c.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	c.models = client.Models
	return c.models, nil
}

func imagePayload(image string) (string, []byte, error) {
	image = strings.TrimSpace(image)
	if image == "" {
		return "", nil, ErrEmptyImage
	}
	if strings.HasPrefix(image, "data:") {
		mimeType, data, err := ingest.DecodeDataURL(image)
		if err != nil {
			return "", nil, err
		}
		return mimeType, data, nil
	}
	_, data, err := ingest.DecodeDataURL("data:" + defaultInputMime + ";base64," + image)
	if err != nil {
		return "", nil, err
	}
	return defaultInputMime, data, nil
}

func parseResponse(resp *genai.GenerateContentResponse) (*Result, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrNoImage
	}

	var url string
	var texts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			mimeType := part.InlineData.MIMEType
			if mimeType == "" {
				mimeType = defaultOutputMime
			}
			url = ingest.EncodeDataURL(mimeType, part.InlineData.Data)
			continue
		}
		if text := strings.TrimSpace(part.Text); text != "" {
			texts = append(texts, text)
		}
	}
	if url == "" {
		return nil, ErrNoImage
	}

	description := strings.Join(texts, " ")
	if description == "" {
		description = DefaultDescription
	}
	return &Result{URL: url, Description: description}, nil
}
