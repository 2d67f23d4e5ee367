package tracing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	ctx = WithTraceID(ctx, "trace-1")
	ctx = WithSessionID(ctx, "session-1")
	ctx = WithTurnID(ctx, "turn-1")

	tc := FromContext(ctx)
	assert.Equal(t, &TraceContext{TraceID: "trace-1", SessionID: "session-1", TurnID: "turn-1"}, tc)
}

func TestDetach(t *testing.T) {
	parent, cancel := context.WithCancel(WithSessionID(context.Background(), "s"))
	cancel()

	detached := Detach(parent)
	assert.NoError(t, detached.Err())
	assert.Equal(t, "s", GetSessionID(detached))
}

func TestNewIDsAreUnique(t *testing.T) {
	assert.NotEqual(t, NewTraceID(), NewTraceID())
	assert.NotEqual(t, NewTurnID(), NewTurnID())
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := WithTurnID(WithSessionID(WithTraceID(context.Background(), "t"), "s"), "u")
	logger := LoggerFromContext(ctx, base)
	logger.Info().Msg("hello")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "t", line["trace_id"])
	assert.Equal(t, "s", line["session_id"])
	assert.Equal(t, "u", line["turn_id"])
}

func TestStartSpanAndFail(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	require.NoError(t, InitOpenTelemetry("pasokh-test", sdktrace.WithSpanProcessor(recorder)))

	ctx, span := StartSpan(context.Background(), "pasokh.test", "op")
	Fail(span, errors.New("boom"))
	Fail(span, nil)
	span.End()

	assert.NotEmpty(t, GetTraceID(ctx))
	ended := recorder.Ended()
	require.NotEmpty(t, ended)
	assert.Equal(t, "op", ended[len(ended)-1].Name())
	assert.Len(t, ended[len(ended)-1].Events(), 1)
}
