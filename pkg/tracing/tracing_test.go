package tracing

import (
	"testing"

	"github.com/opentracing/opentracing-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledKeepsNoopTracer(t *testing.T) {
	closer, err := InitTracer(Config{Enabled: false}, "volatility_bot")
	require.NoError(t, err)
	require.NoError(t, closer.Close())

	assert.IsType(t, opentracing.NoopTracer{}, opentracing.GlobalTracer())
}

func TestTraceIDOfForeignSpan(t *testing.T) {
	assert.Empty(t, TraceID(nil))
	assert.Empty(t, TraceID(opentracing.NoopTracer{}.StartSpan("x")))
}
