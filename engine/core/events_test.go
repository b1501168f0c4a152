package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventFireReachesAllListeners(t *testing.T) {
	require.True(t, EventSystemInitialize())

	got := make([]uint32, 0, 2)
	EventRegister(EVENT_CODE_RESIZED, func(ctx EventContext) {
		got = append(got, ctx.Data.U32[0])
	})
	EventRegister(EVENT_CODE_RESIZED, func(ctx EventContext) {
		got = append(got, ctx.Data.U32[1])
	})

	ctx := EventContext{Type: EVENT_CODE_RESIZED}
	ctx.Data.U32[0] = 640
	ctx.Data.U32[1] = 480
	EventFire(ctx)

	require.Equal(t, []uint32{640, 480}, got)
}

func TestEventFireUnknownCodeIsNoop(t *testing.T) {
	require.True(t, EventSystemInitialize())
	EventFire(EventContext{Type: SystemEventCode(0xFF)})
}
