package logger

import (
	"context"
	"testing"

	"github.com/muhammadchandra19/settlement/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, WarnLevel, ParseLevel(" warn "))
	assert.Equal(t, InfoLevel, ParseLevel("verbose"))
	assert.Equal(t, InfoLevel, ParseLevel(""))
}

func TestAppendRequestID(t *testing.T) {
	ctx := util.WithRequestID(context.Background(), "req-1")

	fields := appendRequestID(ctx, []Field{NewField("pair", "BTC/JPY")})
	require.Len(t, fields, 2)
	assert.Equal(t, Field{Key: "request_id", Value: "req-1"}, fields[1])

	ctx = util.WithEventID(ctx, "evt-9")
	fields = appendRequestID(ctx, nil)
	assert.Equal(t, []Field{
		{Key: "request_id", Value: "req-1"},
		{Key: "event_id", Value: "evt-9"},
	}, fields)
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger(WithLoggingLevel(DebugLevel), WithOutputPaths([]string{"stdout"}))
	require.NoError(t, err)
	require.NotNil(t, log.GetZap())

	child := log.WithFields(NewField("component", "test"))
	assert.NotNil(t, child.GetZap())

	NewNop().Info("discarded", NewField("k", "v"))
}
