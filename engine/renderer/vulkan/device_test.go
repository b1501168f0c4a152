package vulkan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prisma/engine/core"
)

func TestDeviceSelectionErrorNamesMissingExtension(t *testing.T) {
	err := deviceSelectionError(2, 2, "VK_KHR_swapchain")
	require.ErrorIs(t, err, core.ErrMissingExtension)
	assert.Contains(t, err.Error(), "VK_KHR_swapchain")
}

func TestDeviceSelectionErrorMixedRejections(t *testing.T) {
	// One device lacked the extension, two failed for other reasons, so
	// the generic error applies.
	require.ErrorIs(t, deviceSelectionError(3, 1, "VK_KHR_swapchain"), core.ErrNoSuitableDevice)
}

func TestDeviceSelectionErrorNoCandidates(t *testing.T) {
	require.ErrorIs(t, deviceSelectionError(0, 0, ""), core.ErrNoSuitableDevice)
}
