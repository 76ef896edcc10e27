package ingest

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"sort"
	"strings"
)

var ErrInvalidDataURL = errors.New("invalid data URL")

// preferredFields are checked first so a form with a single known field keeps
// its order; any other file fields follow in name order.
var preferredFields = []string{"images", "image", "files", "file", "photos", "photo"}

// SourcesFromMultipart collects every file of a multipart form.
func SourcesFromMultipart(form *multipart.Form) []Source {
	if form == nil {
		return nil
	}
	fields := make([]string, 0, len(form.File))
	seen := make(map[string]bool)
	for _, f := range preferredFields {
		if len(form.File[f]) > 0 {
			fields = append(fields, f)
			seen[f] = true
		}
	}
	rest := make([]string, 0, len(form.File))
	for f := range form.File {
		if !seen[f] {
			rest = append(rest, f)
		}
	}
	sort.Strings(rest)
	fields = append(fields, rest...)

	var sources []Source
	for _, field := range fields {
		for _, fh := range form.File[field] {
			sources = append(sources, Source{
				Name:        fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Open: func() (io.ReadCloser, error) {
					return fh.Open()
				},
			})
		}
	}
	return sources
}

// PasteSource builds a source from a clipboard item. data is either a data
// URL or bare base64.
func PasteSource(name, contentType, data string) Source {
	return Source{
		Name:        name,
		ContentType: contentType,
		Open: func() (io.ReadCloser, error) {
			raw, err := decodePayload(data)
			if err != nil {
				return nil, err
			}
			return io.NopCloser(bytes.NewReader(raw)), nil
		},
	}
}

// BytesSource wraps in-memory content.
func BytesSource(name, contentType string, data []byte) Source {
	return Source{
		Name:        name,
		ContentType: contentType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// EncodeDataURL renders data as a base64 data URL.
func EncodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL splits a base64 data URL into its media type and payload.
func DecodeDataURL(url string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(url, "data:")
	if !ok {
		return "", nil, ErrInvalidDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrInvalidDataURL
	}
	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("%w: payload is not base64", ErrInvalidDataURL)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	if mediaType == "" {
		mediaType = "text/plain"
	}
	return mediaType, data, nil
}

// Base64Payload returns the base64 part of a data URL, or s unchanged when it
// is already bare base64.
func Base64Payload(s string) string {
	if strings.HasPrefix(s, "data:") {
		if _, payload, ok := strings.Cut(s, ","); ok {
			return payload
		}
	}
	return s
}

func decodePayload(data string) ([]byte, error) {
	if strings.HasPrefix(data, "data:") {
		_, raw, err := DecodeDataURL(data)
		return raw, err
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 payload: %w", err)
	}
	return raw, nil
}
