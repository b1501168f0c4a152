package vulkan

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prisma/engine/core"
)

// scriptedOps drives the frame scheduler without a GPU. Acquire and
// present outcomes are scripted per call, everything else records the
// call order.
type scriptedOps struct {
	calls []string

	acquireResults    []error
	acquireSuboptimal []bool
	presentResults    []error
	acquireCalls      int
	presentCalls      int

	drawableWidth  uint32
	drawableHeight uint32

	rebuilds [][2]uint32
}

func (s *scriptedOps) WaitSlotFence(slot uint32) error {
	s.calls = append(s.calls, fmt.Sprintf("wait:%d", slot))
	return nil
}

func (s *scriptedOps) AcquireImage(slot uint32) (uint32, bool, error) {
	s.calls = append(s.calls, fmt.Sprintf("acquire:%d", slot))
	var err error
	if s.acquireCalls < len(s.acquireResults) {
		err = s.acquireResults[s.acquireCalls]
	}
	suboptimal := false
	if s.acquireCalls < len(s.acquireSuboptimal) {
		suboptimal = s.acquireSuboptimal[s.acquireCalls]
	}
	s.acquireCalls++
	if err != nil {
		return 0, false, err
	}
	return uint32(s.acquireCalls % 3), suboptimal, nil
}

func (s *scriptedOps) ResetSlotFence(slot uint32) error {
	s.calls = append(s.calls, fmt.Sprintf("reset:%d", slot))
	return nil
}

func (s *scriptedOps) Record(slot uint32, imageIndex uint32) error {
	s.calls = append(s.calls, fmt.Sprintf("record:%d", slot))
	return nil
}

func (s *scriptedOps) Submit(slot uint32) error {
	s.calls = append(s.calls, fmt.Sprintf("submit:%d", slot))
	return nil
}

func (s *scriptedOps) Present(slot uint32, imageIndex uint32) error {
	s.calls = append(s.calls, fmt.Sprintf("present:%d", slot))
	var err error
	if s.presentCalls < len(s.presentResults) {
		err = s.presentResults[s.presentCalls]
	}
	s.presentCalls++
	return err
}

func (s *scriptedOps) WaitDrawableExtent() (uint32, uint32) {
	s.calls = append(s.calls, "waitExtent")
	return s.drawableWidth, s.drawableHeight
}

func (s *scriptedOps) RebuildSwapchain(width, height uint32) error {
	s.calls = append(s.calls, fmt.Sprintf("rebuild:%dx%d", width, height))
	s.rebuilds = append(s.rebuilds, [2]uint32{width, height})
	return nil
}

func newScriptedOps() *scriptedOps {
	return &scriptedOps{
		drawableWidth:  800,
		drawableHeight: 600,
	}
}

func TestFrameLoopCursorCyclesThroughSlots(t *testing.T) {
	ops := newScriptedOps()
	loop := newFrameLoop(ops, 2)

	expected := []uint32{0, 1, 0, 1, 0, 1}
	for i, want := range expected {
		assert.Equal(t, want, loop.Cursor(), "frame %d", i)
		require.NoError(t, loop.DrawFrame())
	}
	assert.Empty(t, ops.rebuilds)
}

func TestFrameLoopSlotOperationOrder(t *testing.T) {
	ops := newScriptedOps()
	loop := newFrameLoop(ops, 2)

	require.NoError(t, loop.DrawFrame())

	// The fence resets strictly after a successful acquire so an out of
	// date surface never strands an unsignaled fence.
	assert.Equal(t, []string{"wait:0", "acquire:0", "reset:0", "record:0", "submit:0", "present:0"}, ops.calls)
}

func TestFrameLoopAcquireOutOfDateDoesNotAdvanceCursor(t *testing.T) {
	ops := newScriptedOps()
	ops.acquireResults = []error{core.ErrSurfaceOutOfDate}
	loop := newFrameLoop(ops, 2)

	require.ErrorIs(t, loop.DrawFrame(), core.ErrSurfaceOutOfDate)

	assert.Equal(t, uint32(0), loop.Cursor(), "cursor must stay on the slot whose frame was skipped")
	assert.Equal(t, [][2]uint32{{800, 600}}, ops.rebuilds)

	// The fence was never reset and nothing was recorded or submitted.
	assert.NotContains(t, ops.calls, "reset:0")
	assert.NotContains(t, ops.calls, "submit:0")

	// Next frame proceeds normally on the same slot.
	require.NoError(t, loop.DrawFrame())
	assert.Equal(t, uint32(1), loop.Cursor())
}

func TestFrameLoopSuboptimalAcquireRebuildsAfterPresent(t *testing.T) {
	ops := newScriptedOps()
	ops.acquireSuboptimal = []bool{true}
	loop := newFrameLoop(ops, 2)

	require.NoError(t, loop.DrawFrame())

	// The suboptimal image is rendered and presented in full; the
	// rebuild comes strictly after.
	assert.Equal(t, []string{"wait:0", "acquire:0", "reset:0", "record:0", "submit:0", "present:0", "waitExtent", "rebuild:800x600"}, ops.calls)
	assert.Equal(t, uint32(1), loop.Cursor())

	// A clean acquire on the next frame does not rebuild again.
	require.NoError(t, loop.DrawFrame())
	assert.Len(t, ops.rebuilds, 1)
}

func TestFrameLoopPresentOutOfDateAdvancesCursor(t *testing.T) {
	ops := newScriptedOps()
	ops.presentResults = []error{core.ErrSurfaceOutOfDate}
	loop := newFrameLoop(ops, 2)

	require.NoError(t, loop.DrawFrame())

	// Work was submitted, so the slot is in flight and the cursor moved
	// before the rebuild.
	assert.Equal(t, uint32(1), loop.Cursor())
	assert.Equal(t, [][2]uint32{{800, 600}}, ops.rebuilds)
}

func TestFrameLoopResizeRequestsCoalesce(t *testing.T) {
	ops := newScriptedOps()
	loop := newFrameLoop(ops, 2)

	loop.RequestResize()
	loop.RequestResize()
	loop.RequestResize()

	require.NoError(t, loop.DrawFrame())
	assert.Len(t, ops.rebuilds, 1, "burst of resize events must cost one rebuild")

	require.NoError(t, loop.DrawFrame())
	assert.Len(t, ops.rebuilds, 1, "no further rebuilds without new requests")
}

func TestFrameLoopFatalErrorPropagates(t *testing.T) {
	ops := newScriptedOps()
	ops.acquireResults = []error{fmt.Errorf("device lost")}
	loop := newFrameLoop(ops, 2)

	err := loop.DrawFrame()
	require.Error(t, err)
	assert.Empty(t, ops.rebuilds, "non recoverable errors must not trigger a rebuild")
}

// Full resize scenario: render at 800x600, minimize (out of date with a
// zero area drawable), then restore at 640x480 and keep rendering.
func TestFrameLoopMinimizeAndRestore(t *testing.T) {
	ops := newScriptedOps()
	loop := newFrameLoop(ops, 2)

	for i := 0; i < 10; i++ {
		require.NoError(t, loop.DrawFrame())
	}
	assert.Equal(t, uint32(0), loop.Cursor())
	assert.Empty(t, ops.rebuilds)

	// Window is minimized: presentation reports out of date and the
	// drawable blocks until it reopens at 640x480.
	ops.presentResults = make([]error, ops.presentCalls+1)
	ops.presentResults[ops.presentCalls] = core.ErrSurfaceOutOfDate
	ops.drawableWidth, ops.drawableHeight = 640, 480

	require.NoError(t, loop.DrawFrame())
	assert.Equal(t, [][2]uint32{{640, 480}}, ops.rebuilds)

	// Rendering continues at the new size with the cursor still cycling.
	for i := 0; i < 4; i++ {
		require.NoError(t, loop.DrawFrame())
	}
	assert.Equal(t, uint32(1), loop.Cursor())
	assert.Len(t, ops.rebuilds, 1)
}
