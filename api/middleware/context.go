package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ctxUserID    contextKey = "user_id"
	ctxCompanyID contextKey = "company_id"
	ctxRequestID contextKey = "request_id"
)

// Actor is the user acting on behalf of a company.
type Actor struct {
	UserID    uuid.UUID
	CompanyID uuid.UUID
}

func UserIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxUserID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

func CompanyIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxCompanyID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// ActorFromContext reports false unless both ids were set by Auth.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor := Actor{UserID: UserIDFromContext(ctx), CompanyID: CompanyIDFromContext(ctx)}
	return actor, actor.UserID != uuid.Nil && actor.CompanyID != uuid.Nil
}

// WithActor injects the acting user and company into the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, actor.UserID)
	return context.WithValue(ctx, ctxCompanyID, actor.CompanyID)
}

// RequestIDFromContext returns the id assigned by RequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(ctxRequestID).(string)
	return v
}
