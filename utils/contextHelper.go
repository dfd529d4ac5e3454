package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/ticket_backend/appctx"
)

// Alias the shared context key type so existing code keeps working.
type contextKey = appctx.ContextKey

var (
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
	ContextKeyRunId         = appctx.ContextKeyRunId
)

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func GetRunIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyRunId)
}

func SetRunIdInContext(ctx context.Context, runId string) context.Context {
	return appctx.Set(ctx, ContextKeyRunId, runId)
}
