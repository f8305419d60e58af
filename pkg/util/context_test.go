package util

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "abc")
	assert.Equal(t, "abc", GetRequestID(ctx))

	generated := GetRequestID(WithRequestID(context.Background(), ""))
	_, err := uuid.Parse(generated)
	require.NoError(t, err)

	assert.Empty(t, GetRequestID(context.Background()))
}

func TestEventAndActorID(t *testing.T) {
	ctx := WithActorID(WithEventID(context.Background(), "evt"), "user-1")
	assert.Equal(t, "evt", GetEventID(ctx))
	assert.Equal(t, "user-1", GetActorID(ctx))
}

func TestDetach(t *testing.T) {
	ctx, cancel := context.WithCancel(WithRequestID(context.Background(), "r"))
	detached := Detach(ctx)
	cancel()

	assert.Error(t, ctx.Err())
	assert.NoError(t, detached.Err())
	assert.Equal(t, "r", GetRequestID(detached))
}

func TestTimePointer(t *testing.T) {
	now := time.Now()
	p := TimePointer(now)
	require.NotNil(t, p)
	assert.True(t, now.Equal(*p))
}
