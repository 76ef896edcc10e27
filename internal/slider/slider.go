// Package slider implements the before/after comparison divider.
//
// The divider position is a percentage of the widget width. A drag starts with
// a pointer-down inside the widget; from then on moves and releases are taken
// from the window, so leaving the widget does not lose the drag.
package slider

import (
	"math"
	"sync"
)

const (
	MinPosition     = 0.0
	MaxPosition     = 100.0
	InitialPosition = 50.0
)

// Bounds is the horizontal extent of the widget in window coordinates.
type Bounds struct {
	Left  float64 `json:"left"`
	Width float64 `json:"width"`
}

// Window delivers pointer events from the whole window. Each subscription
// returns a function that removes it.
type Window interface {
	OnPointerMove(func(x float64)) (remove func())
	OnPointerUp(func()) (remove func())
}

// Reveal describes which part of the widget shows the "after" image.
type Reveal struct {
	Position float64 `json:"position"`
	// AfterFrom and AfterTo are percentages of width, from the left edge.
	AfterFrom float64 `json:"after_from"`
	AfterTo   float64 `json:"after_to"`
	// ClipRight is the inset hiding the "after" image on the right side.
	ClipRight float64 `json:"clip_right"`
}

type Slider struct {
	mu       sync.Mutex
	position float64
	dragging bool
	bounds   Bounds
}

func New() *Slider {
	return &Slider{position: InitialPosition}
}

// Mount resets the slider to the center and subscribes to window events for
// the lifetime of the mount. The returned function unmounts it.
func (s *Slider) Mount(w Window, bounds Bounds) (unmount func()) {
	s.mu.Lock()
	s.position = InitialPosition
	s.dragging = false
	s.bounds = bounds
	s.mu.Unlock()

	removeMove := w.OnPointerMove(s.Move)
	removeUp := w.OnPointerUp(s.Release)

	var once sync.Once
	return func() {
		once.Do(func() {
			removeMove()
			removeUp()
			s.Release()
		})
	}
}

// Resize updates the widget bounds used by window-level moves.
func (s *Slider) Resize(bounds Bounds) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bounds = bounds
}

// Press starts a drag at pointer x using the mounted bounds.
func (s *Slider) Press(x float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dragging = true
	s.update(x, s.bounds)
}

// Move follows the pointer while a drag is active.
func (s *Slider) Move(x float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dragging {
		return
	}
	s.update(x, s.bounds)
}

// Release ends the drag. Safe to call when no drag is active.
func (s *Slider) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dragging = false
}

// PointerDown is Press with explicit bounds, for callers that measure the
// widget on every event.
func (s *Slider) PointerDown(x float64, bounds Bounds) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bounds = bounds
	s.dragging = true
	s.update(x, bounds)
}

// PointerMove is Move with explicit bounds.
func (s *Slider) PointerMove(x float64, bounds Bounds) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bounds = bounds
	if !s.dragging {
		return
	}
	s.update(x, bounds)
}

// PointerUp ends the drag wherever the pointer is.
func (s *Slider) PointerUp() { s.Release() }

// Cancel ends the drag, same as a release.
func (s *Slider) Cancel() { s.Release() }

func (s *Slider) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *Slider) Dragging() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dragging
}

func (s *Slider) Reveal() Reveal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Reveal{
		Position:  s.position,
		AfterFrom: MinPosition,
		AfterTo:   s.position,
		ClipRight: MaxPosition - s.position,
	}
}

// caller holds mu
func (s *Slider) update(x float64, b Bounds) {
	if !finite(x) || !finite(b.Left) || !finite(b.Width) || b.Width <= 0 {
		return
	}
	p := (x - b.Left) / b.Width * 100
	if math.IsNaN(p) {
		return
	}
	s.position = Clamp(p)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Clamp limits p to [MinPosition, MaxPosition]. NaN maps to MinPosition.
func Clamp(p float64) float64 {
	if math.IsNaN(p) || p < MinPosition {
		return MinPosition
	}
	if p > MaxPosition {
		return MaxPosition
	}
	return p
}
