package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
)

// Caller is who a request acts for. A guest has a SessionID and no UserID;
// a signed-in user may carry both while their guest cart is merged.
type Caller struct {
	UserID    uuid.UUID
	Role      enums.UserRole
	SessionID string
}

func (c Caller) Authenticated() bool { return c.UserID != uuid.Nil }

// Identified reports whether the caller owns a cart at all.
func (c Caller) Identified() bool { return c.Authenticated() || c.SessionID != "" }

type callerKey struct{}

// CallerFrom returns the zero Caller when Identity has not run.
func CallerFrom(ctx context.Context) Caller {
	c, _ := ctx.Value(callerKey{}).(Caller)
	return c
}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}
