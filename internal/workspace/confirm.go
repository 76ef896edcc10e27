package workspace

import (
	"context"

	"github.com/google/uuid"
)

type ActionKind string

const (
	ActionDeleteImage ActionKind = "delete_image"
	ActionReset       ActionKind = "reset"
)

// Action describes the destructive operation awaiting confirmation.
type Action struct {
	Kind    ActionKind
	ImageID uuid.UUID
}

// Confirmer is the yes/no gate in front of destructive operations. Confirm
// blocks until the user answers.
type Confirmer interface {
	Confirm(ctx context.Context, action Action) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, action Action) bool

func (f ConfirmFunc) Confirm(ctx context.Context, action Action) bool {
	return f(ctx, action)
}

var (
	AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, Action) bool { return true })
	NeverConfirm  Confirmer = ConfirmFunc(func(context.Context, Action) bool { return false })
)

func confirmed(ctx context.Context, c Confirmer, action Action) bool {
	if c == nil {
		return false
	}
	return c.Confirm(ctx, action)
}
