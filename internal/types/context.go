package types

import (
	"context"
)

// ContextKey namespaces values this module stores on a context
type ContextKey string

const (
	CtxRequestID     ContextKey = "ctx_request_id"
	CtxUserID        ContextKey = "ctx_user_id"
	CtxDBTransaction ContextKey = "ctx_db_transaction"

	// DefaultUserID acts for writes the system performs itself, such as the billing sweep
	DefaultUserID = "00000000-0000-0000-0000-000000000000"
)

func stringValue(ctx context.Context, key ContextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

func GetUserID(ctx context.Context) string {
	return stringValue(ctx, CtxUserID)
}

func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, CtxRequestID)
}

func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, CtxUserID, userID)
}

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, CtxRequestID, requestID)
}
