package trace

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmcmillan34/edge-journal/internal/config"
)

func TestStartSpanDisabledIsNoop(t *testing.T) {
	require.NoError(t, Init(config.TracingConfig{Enabled: false}))
	assert.False(t, Enabled())
	ctx, span := StartSpan(context.Background(), "noop")
	span.End()
	_, _, ok := Fields(ctx)
	assert.False(t, ok)
}

func TestSpansAreExported(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWriter(config.TracingConfig{Enabled: true, ServiceName: "test"}, &buf))
	assert.True(t, Enabled())

	ctx, span := StartSpan(context.Background(), "playbook.evaluate")
	traceID, spanID, ok := Fields(ctx)
	assert.True(t, ok)
	assert.NotEmpty(t, traceID)
	assert.NotEmpty(t, spanID)
	span.End()

	require.NoError(t, Shutdown(context.Background()))
	assert.False(t, Enabled())
	assert.Contains(t, buf.String(), "playbook.evaluate")
}
