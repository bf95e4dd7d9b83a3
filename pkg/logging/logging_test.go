package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerFromContextCarriesRequestIDAndOp(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := MakeContextWithLogger(context.Background(), base)
	ctx = MakeContextWithRequestID(ctx, "req-1")

	GetLoggerFromContextWithOp(ctx, "service.Read").Info("hello")

	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-1"`)
	assert.Contains(t, out, `"op":"service.Read"`)
	assert.Contains(t, out, `"msg":"hello"`)
}

func TestLoggerFromEmptyContext(t *testing.T) {
	require.NotNil(t, GetLoggerFromContext(context.Background()))
	assert.Empty(t, GetRequestIDFromCtx(context.Background()))
}

func TestNewRequestID(t *testing.T) {
	ctx := MakeContextWithNewRequestID(context.Background())
	id := GetRequestIDFromCtx(ctx)
	require.NotEmpty(t, id)

	other := GetRequestIDFromCtx(MakeContextWithNewRequestID(context.Background()))
	assert.NotEqual(t, id, other)
}
