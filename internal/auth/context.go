package auth

import (
	"context"

	"grantvault/internal/fault"
)

type ctxKey int

const ctxUserID ctxKey = iota

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxUserID, userID)
}

// UserID returns the authenticated caller, or ErrUnauthenticated when the
// middleware did not run.
func UserID(ctx context.Context) (string, error) {
	if s, ok := ctx.Value(ctxUserID).(string); ok && s != "" {
		return s, nil
	}
	return "", fault.ErrUnauthenticated
}
