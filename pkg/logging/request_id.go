package logging

import (
	"context"

	"github.com/google/uuid"
)

func GetRequestIDFromCtx(ctx context.Context) string {
	if s, ok := ctx.Value(reqKey).(string); ok {
		return s
	}
	return ""
}

func MakeContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, reqKey, requestID)
}

func MakeContextWithNewRequestID(ctx context.Context) context.Context {
	return MakeContextWithRequestID(ctx, uuid.NewString())
}
