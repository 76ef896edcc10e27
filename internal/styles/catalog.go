// Package styles holds the staging style presets, the supported room types
// and the prompt sent to the generative model for a style/room pair.
package styles

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

var (
	ErrUnknownStyle    = errors.New("unknown style")
	ErrUnknownRoomType = errors.New("unknown room type")
)

// Style is a selectable staging preset.
type Style struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Prompt      string `yaml:"prompt" json:"-"`
}

// RoomType is a room category and the phrase used for it in prompts.
type RoomType struct {
	Key   string `yaml:"key" json:"key"`
	Label string `yaml:"label" json:"label"`
}

type Catalog struct {
	DefaultStyle      string     `yaml:"defaultStyle"`
	DefaultRoomType   string     `yaml:"defaultRoomType"`
	FallbackRoomLabel string     `yaml:"fallbackRoomLabel"`
	Styles            []Style    `yaml:"styles"`
	RoomTypes         []RoomType `yaml:"roomTypes"`
}

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded style catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog from path, or returns the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read style catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse style catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Styles) == 0 {
		return errors.New("style catalog has no styles")
	}
	seen := make(map[string]bool, len(c.Styles))
	for _, s := range c.Styles {
		if strings.TrimSpace(s.Name) == "" || strings.TrimSpace(s.Prompt) == "" {
			return errors.New("style catalog entry needs a name and a prompt")
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate style %q", s.Name)
		}
		seen[s.Name] = true
	}
	if _, ok := c.Style(c.DefaultStyle); !ok {
		return fmt.Errorf("default style %q is not in the catalog", c.DefaultStyle)
	}
	if _, ok := c.RoomType(c.DefaultRoomType); !ok {
		return fmt.Errorf("default room type %q is not in the catalog", c.DefaultRoomType)
	}
	if c.FallbackRoomLabel == "" {
		c.FallbackRoomLabel = "a room"
	}
	return nil
}

func (c *Catalog) Style(name string) (Style, bool) {
	for _, s := range c.Styles {
		if s.Name == name {
			return s, true
		}
	}
	return Style{}, false
}

func (c *Catalog) RoomType(key string) (RoomType, bool) {
	for _, r := range c.RoomTypes {
		if r.Key == key {
			return r, true
		}
	}
	return RoomType{}, false
}

// RoomLabel returns the prompt phrase for key, falling back to a generic label.
func (c *Catalog) RoomLabel(key string) string {
	if r, ok := c.RoomType(key); ok {
		return r.Label
	}
	return c.FallbackRoomLabel
}

// Prompt composes the instruction text for staging a photo of roomType in style.
func (c *Catalog) Prompt(style, roomType string) (string, error) {
	s, ok := c.Style(style)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownStyle, style)
	}
	return fmt.Sprintf(promptTemplate, c.RoomLabel(roomType), s.Prompt), nil
}

const promptTemplate = `Act as a professional real estate virtual staging expert. This image is %s.

IMPORTANT STRUCTURAL PRESERVATION RULES:
- DO NOT modify, alter, or change: walls, ceilings, floors, doors, windows, moldings, light fixtures, outlets, vents, built-in cabinetry, or any architectural elements.
- ONLY add or replace: furniture, rugs, artwork, decorative items, plants, and soft furnishings (pillows, throws, curtains).
- The room's structure, paint colors, flooring material, and architectural details must remain EXACTLY as shown in the original photo.

%s

CRITICAL OUTPUT REQUIREMENTS:
1. Return a TEXT part: A professional 2-sentence description of the furniture and decor choices made.
2. Return an IMAGE part: The hyper-realistic staged room with furniture added but structure unchanged.`
