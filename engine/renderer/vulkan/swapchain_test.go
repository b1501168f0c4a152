package vulkan

import (
	"math"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestChooseSurfaceFormatPrefersBGRA8Srgb(t *testing.T) {
	formats := []vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}

	chosen := chooseSurfaceFormat(formats)
	assert.Equal(t, vk.FormatB8g8r8a8Srgb, chosen.Format)
	assert.Equal(t, vk.ColorSpaceSrgbNonlinear, chosen.ColorSpace)
}

func TestChooseSurfaceFormatFallsBackToFirst(t *testing.T) {
	formats := []vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatR5g6b5UnormPack16, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}

	chosen := chooseSurfaceFormat(formats)
	assert.Equal(t, formats[0], chosen)
}

func TestChoosePresentModePrefersMailbox(t *testing.T) {
	modes := []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox, vk.PresentModeImmediate}
	assert.Equal(t, vk.PresentModeMailbox, choosePresentMode(modes))
}

func TestChoosePresentModeFallsBackToFifo(t *testing.T) {
	modes := []vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeFifoRelaxed}
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode(modes))
}

func TestChooseSwapExtentUsesCurrentExtentWhenFixed(t *testing.T) {
	capabilities := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: 800, Height: 600},
		MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
	}

	// The drawable size must be ignored when the surface dictates the
	// extent.
	extent := chooseSwapExtent(capabilities, 1234, 987)
	assert.Equal(t, vk.Extent2D{Width: 800, Height: 600}, extent)
}

func TestChooseSwapExtentClampsDrawableSize(t *testing.T) {
	capabilities := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32},
		MinImageExtent: vk.Extent2D{Width: 64, Height: 64},
		MaxImageExtent: vk.Extent2D{Width: 2048, Height: 2048},
	}

	tests := []struct {
		name          string
		width, height uint32
		want          vk.Extent2D
	}{
		{"within range", 800, 600, vk.Extent2D{Width: 800, Height: 600}},
		{"below minimum", 16, 16, vk.Extent2D{Width: 64, Height: 64}},
		{"above maximum", 8192, 8192, vk.Extent2D{Width: 2048, Height: 2048}},
		{"mixed", 16, 8192, vk.Extent2D{Width: 64, Height: 2048}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chooseSwapExtent(capabilities, tt.width, tt.height))
		})
	}
}

func TestChooseImageCountRequestsOneAboveMinimum(t *testing.T) {
	capabilities := vk.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 8}
	assert.Equal(t, uint32(3), chooseImageCount(capabilities))
}

func TestChooseImageCountRespectsMaximum(t *testing.T) {
	capabilities := vk.SurfaceCapabilities{MinImageCount: 3, MaxImageCount: 3}
	assert.Equal(t, uint32(3), chooseImageCount(capabilities))
}

func TestChooseImageCountZeroMaxMeansUnbounded(t *testing.T) {
	capabilities := vk.SurfaceCapabilities{MinImageCount: 4, MaxImageCount: 0}
	assert.Equal(t, uint32(5), chooseImageCount(capabilities))
}
