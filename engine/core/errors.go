package core

import (
	"errors"
)

var (
	// ErrSurfaceOutOfDate reports that the presentation surface became
	// incompatible with the current swapchain mid-frame. The frame was
	// aborted and a rebuild has been triggered; callers should skip the
	// rest of the frame and carry on.
	ErrSurfaceOutOfDate = errors.New("surface out of date, swapchain rebuilt")

	ErrNoSuitableDevice           = errors.New("no physical device meets the requirements")
	ErrMissingExtension           = errors.New("required device extension not supported")
	ErrValidationLayerUnavailable = errors.New("requested validation layer not installed")
	ErrShaderCompilation          = errors.New("shader module creation failed")
	ErrPipelineCreation           = errors.New("graphics pipeline creation failed")
)
