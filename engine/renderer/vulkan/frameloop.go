package vulkan

import (
	"errors"

	"github.com/spaghettifunk/prisma/engine/core"
)

// frameOps is the narrow surface the frame scheduler drives. The real
// renderer implements it with Vulkan calls; tests can script it.
type frameOps interface {
	// WaitSlotFence blocks until the slot's previous submission retired.
	WaitSlotFence(slot uint32) error
	// AcquireImage asks for the next swapchain image, signaling the
	// slot's image available semaphore. Returns core.ErrSurfaceOutOfDate
	// when the swapchain must be rebuilt. A true suboptimal flag means
	// the image is usable but the swapchain no longer matches the
	// surface exactly.
	AcquireImage(slot uint32) (imageIndex uint32, suboptimal bool, err error)
	// ResetSlotFence moves the slot's fence back to unsignaled. Must
	// only happen once an image is secured, otherwise an out of date
	// acquire would deadlock the next wait on this slot.
	ResetSlotFence(slot uint32) error
	// Record re-records the slot's command buffer for the given image.
	Record(slot uint32, imageIndex uint32) error
	// Submit hands the command buffer to the graphics queue, fencing
	// the slot and chaining the acquire and present semaphores.
	Submit(slot uint32) error
	// Present queues the image for presentation. Returns
	// core.ErrSurfaceOutOfDate when the swapchain must be rebuilt.
	Present(slot uint32, imageIndex uint32) error
	// WaitDrawableExtent blocks while the drawable has zero area and
	// returns the first usable size.
	WaitDrawableExtent() (uint32, uint32)
	// RebuildSwapchain tears down and recreates the swapchain and
	// everything derived from it at the given size.
	RebuildSwapchain(width, height uint32) error
}

// frameLoop cycles through the in-flight frame slots and owns the
// out of date recovery policy around acquire and present.
type frameLoop struct {
	ops       frameOps
	slotCount uint32
	cursor    uint32

	resizeRequested bool
}

func newFrameLoop(ops frameOps, slotCount uint32) *frameLoop {
	return &frameLoop{
		ops:       ops,
		slotCount: slotCount,
	}
}

// Cursor reports the slot the next frame will use.
func (fl *frameLoop) Cursor() uint32 {
	return fl.cursor
}

// RequestResize marks the swapchain for rebuild after the next
// presented frame. Multiple requests between frames coalesce.
func (fl *frameLoop) RequestResize() {
	fl.resizeRequested = true
}

func (fl *frameLoop) rebuild() error {
	width, height := fl.ops.WaitDrawableExtent()
	if err := fl.ops.RebuildSwapchain(width, height); err != nil {
		return err
	}
	fl.resizeRequested = false
	return nil
}

// DrawFrame runs one pass of the frame state machine. An out of date
// surface is recovered internally by rebuilding the swapchain; that
// frame is simply skipped. Any other error is fatal to the frame.
func (fl *frameLoop) DrawFrame() error {
	if err := fl.ops.WaitSlotFence(fl.cursor); err != nil {
		return err
	}

	imageIndex, suboptimal, err := fl.ops.AcquireImage(fl.cursor)
	if errors.Is(err, core.ErrSurfaceOutOfDate) {
		// The fence was not reset, so the slot stays reusable and the
		// cursor does not advance. Rebuild, then surface the recoverable
		// condition so the caller knows this frame was skipped.
		if rerr := fl.rebuild(); rerr != nil {
			return rerr
		}
		return err
	}
	if err != nil {
		return err
	}
	if suboptimal {
		// A suboptimal image is still rendered and presented; the
		// swapchain is rebuilt once this frame is done.
		fl.resizeRequested = true
	}

	// An image is secured, committing this slot to a submission.
	if err := fl.ops.ResetSlotFence(fl.cursor); err != nil {
		return err
	}
	if err := fl.ops.Record(fl.cursor, imageIndex); err != nil {
		return err
	}
	if err := fl.ops.Submit(fl.cursor); err != nil {
		return err
	}

	err = fl.ops.Present(fl.cursor, imageIndex)
	outOfDate := errors.Is(err, core.ErrSurfaceOutOfDate)
	if err != nil && !outOfDate {
		return err
	}

	// Work was submitted, so the slot is in flight and the cursor
	// advances even when presentation reported out of date.
	fl.cursor = (fl.cursor + 1) % fl.slotCount

	if outOfDate || fl.resizeRequested {
		return fl.rebuild()
	}
	return nil
}
