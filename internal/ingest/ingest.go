// Package ingest turns raw uploaded or pasted files into self-contained image
// references (data URLs).
//
// All sources of one ingestion event are decoded concurrently and delivered
// together once the last decode finishes. Sources that are not declared as
// images are filtered out up front; sources that fail to decode are dropped
// from the batch without any signal to the caller.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

// Source is one raw input of an ingestion event.
type Source struct {
	Name        string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// Image is a decoded source.
type Image struct {
	Name     string
	URL      string
	MimeType string
	Width    int
	Height   int
	Size     int
}

type Decoder struct {
	maxBytes    int64
	concurrency int
	log         zerolog.Logger
}

func NewDecoder(maxBytes int64, log zerolog.Logger) *Decoder {
	return &Decoder{
		maxBytes:    maxBytes,
		concurrency: defaultConcurrency,
		log:         log.With().Str("component", "ingest").Logger(),
	}
}

// IsImageType reports whether a declared content type names an image.
func IsImageType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

// Filter keeps the sources declared as images, preserving order.
func Filter(sources []Source) []Source {
	out := make([]Source, 0, len(sources))
	for _, s := range sources {
		if IsImageType(s.ContentType) {
			out = append(out, s)
		}
	}
	return out
}

// Decode filters and decodes sources, returning the images that decoded
// successfully in input order.
func (d *Decoder) Decode(ctx context.Context, sources []Source) []Image {
	sources = Filter(sources)
	if len(sources) == 0 {
		return nil
	}

	results := make([]*Image, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, src := range sources {
		g.Go(func() error {
			img, err := d.decodeOne(gctx, src)
			if err != nil {
				d.log.Debug().Err(err).Str("source", src.Name).Msg("dropping source that failed to decode")
				return nil
			}
			results[i] = img
			return nil
		})
	}
	_ = g.Wait()

	images := make([]Image, 0, len(results))
	for _, img := range results {
		if img != nil {
			images = append(images, *img)
		}
	}
	return images
}

// Ingest decodes sources and calls onBatch exactly once with every image
// that decoded. onBatch is not called when nothing decoded.
func (d *Decoder) Ingest(ctx context.Context, sources []Source, onBatch func([]Image)) {
	images := d.Decode(ctx, sources)
	if len(images) == 0 {
		return
	}
	onBatch(images)
}

func (d *Decoder) decodeOne(ctx context.Context, src Source) (*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if src.Open == nil {
		return nil, fmt.Errorf("source %q has no content", src.Name)
	}
	rc, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, d.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}
	if int64(len(data)) > d.maxBytes {
		return nil, fmt.Errorf("source exceeds %d bytes", d.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("source is empty")
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("content is %s, not an image", mt.String())
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	mimeType := baseType(mt.String())
	return &Image{
		Name:     src.Name,
		URL:      EncodeDataURL(mimeType, data),
		MimeType: mimeType,
		Width:    cfg.Width,
		Height:   cfg.Height,
		Size:     len(data),
	}, nil
}

func baseType(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		return strings.TrimSpace(mime[:i])
	}
	return mime
}
