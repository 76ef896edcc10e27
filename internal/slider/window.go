package slider

import "sync"

// EventWindow is a Window fed by explicit dispatch calls. Listeners are
// invoked in subscription order.
type EventWindow struct {
	mu     sync.Mutex
	nextID int
	moves  map[int]func(float64)
	ups    map[int]func()
	order  []int
}

func NewEventWindow() *EventWindow {
	return &EventWindow{
		moves: make(map[int]func(float64)),
		ups:   make(map[int]func()),
	}
}

func (w *EventWindow) OnPointerMove(fn func(x float64)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.add()
	w.moves[id] = fn
	return func() { w.remove(id) }
}

func (w *EventWindow) OnPointerUp(fn func()) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.add()
	w.ups[id] = fn
	return func() { w.remove(id) }
}

// DispatchMove delivers a window-level pointer move.
func (w *EventWindow) DispatchMove(x float64) {
	for _, fn := range w.snapshotMoves() {
		fn(x)
	}
}

// DispatchUp delivers a window-level pointer release.
func (w *EventWindow) DispatchUp() {
	for _, fn := range w.snapshotUps() {
		fn()
	}
}

// Listeners reports how many subscriptions are active.
func (w *EventWindow) Listeners() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.moves) + len(w.ups)
}

// caller holds mu
func (w *EventWindow) add() int {
	w.nextID++
	w.order = append(w.order, w.nextID)
	return w.nextID
}

func (w *EventWindow) remove(id int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.moves, id)
	delete(w.ups, id)
	kept := w.order[:0]
	for _, o := range w.order {
		if o != id {
			kept = append(kept, o)
		}
	}
	w.order = kept
}

func (w *EventWindow) snapshotMoves() []func(float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]func(float64), 0, len(w.moves))
	for _, id := range w.order {
		if fn, ok := w.moves[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func (w *EventWindow) snapshotUps() []func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]func(), 0, len(w.ups))
	for _, id := range w.order {
		if fn, ok := w.ups[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}
