package terrain

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/math"
)

// Heightmap holds normalized terrain heights sampled from a grayscale
// image. X runs along image columns, Z along rows.
type Heightmap struct {
	Width int
	Depth int

	heights []float32
}

// LoadHeightmap reads a heightmap image from disk. PNG, JPEG, BMP and
// TIFF are supported; color images use their luma as height.
func LoadHeightmap(path string) (*Heightmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open heightmap %s: %w", path, err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode heightmap %s: %w", path, err)
	}
	core.LogDebug("Heightmap %s decoded as %s (%dx%d).", path, format, img.Bounds().Dx(), img.Bounds().Dy())

	return NewHeightmapFromImage(img), nil
}

func NewHeightmapFromImage(img image.Image) *Heightmap {
	bounds := img.Bounds()
	hm := &Heightmap{
		Width:   bounds.Dx(),
		Depth:   bounds.Dy(),
		heights: make([]float32, bounds.Dx()*bounds.Dy()),
	}

	for z := 0; z < hm.Depth; z++ {
		for x := 0; x < hm.Width; x++ {
			gray := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+z)).(color.Gray)
			hm.heights[z*hm.Width+x] = float32(gray.Y) / 255.0
		}
	}
	return hm
}

// At samples the normalized height at a grid cell. Coordinates outside
// the map clamp to the nearest edge so neighbor lookups never go out of
// bounds.
func (hm *Heightmap) At(x, z int) float32 {
	x = math.Clamp(x, 0, hm.Width-1)
	z = math.Clamp(z, 0, hm.Depth-1)
	return hm.heights[z*hm.Width+x]
}

// Normal approximates the surface normal at a grid cell with central
// height differences across the neighboring cells.
func (hm *Heightmap) Normal(x, z int, scaleXY, scaleY float32) math.Vec3 {
	hl := hm.At(x-1, z) * scaleY
	hr := hm.At(x+1, z) * scaleY
	hd := hm.At(x, z-1) * scaleY
	hu := hm.At(x, z+1) * scaleY

	n := math.Vec3{
		X: scaleXY * (hl - hr),
		Y: 2.0 * scaleXY,
		Z: scaleXY * (hd - hu),
	}
	return n.Normalized()
}

// Terrain colors blend from vegetation at the valleys to rock and snow
// at the peaks, shaded against a fixed overhead light.
var (
	lowColor  = math.Vec3{X: 0.2, Y: 0.5, Z: 0.2}
	highColor = math.Vec3{X: 0.9, Y: 0.9, Z: 0.9}
	lightDir  = math.Vec3{X: 0.3, Y: 0.9, Z: 0.3}.Normalized()
)

// BuildMesh expands the heightmap into a colored triangle grid. Each
// quad becomes two counter clockwise triangles. The index format is 16
// bits, so maps above 65536 vertices are rejected.
func (hm *Heightmap) BuildMesh(scaleXY, scaleY float32) ([]math.ColorVertex, []uint16, error) {
	if hm.Width < 2 || hm.Depth < 2 {
		return nil, nil, fmt.Errorf("heightmap too small to build a mesh: %dx%d", hm.Width, hm.Depth)
	}
	vertexCount := hm.Width * hm.Depth
	if vertexCount > 65536 {
		return nil, nil, fmt.Errorf("heightmap %dx%d exceeds the 16 bit index range", hm.Width, hm.Depth)
	}

	// Center the grid on the origin so the camera orbit frames it.
	offsetX := float32(hm.Width-1) * scaleXY * 0.5
	offsetZ := float32(hm.Depth-1) * scaleXY * 0.5

	vertices := make([]math.ColorVertex, 0, vertexCount)
	for z := 0; z < hm.Depth; z++ {
		for x := 0; x < hm.Width; x++ {
			height := hm.At(x, z)
			normal := hm.Normal(x, z, scaleXY, scaleY)

			shade := math.Clamp(normal.Dot(lightDir), 0.3, 1.0)
			base := lowColor.MulScalar(1 - height).Add(highColor.MulScalar(height))

			vertices = append(vertices, math.ColorVertex{
				Position: math.Vec3{
					X: float32(x)*scaleXY - offsetX,
					Y: height * scaleY,
					Z: float32(z)*scaleXY - offsetZ,
				},
				Color: base.MulScalar(shade),
			})
		}
	}

	indices := make([]uint16, 0, (hm.Width-1)*(hm.Depth-1)*6)
	for z := 0; z < hm.Depth-1; z++ {
		for x := 0; x < hm.Width-1; x++ {
			topLeft := uint16(z*hm.Width + x)
			topRight := topLeft + 1
			bottomLeft := uint16((z+1)*hm.Width + x)
			bottomRight := bottomLeft + 1

			indices = append(indices,
				topLeft, bottomLeft, topRight,
				topRight, bottomLeft, bottomRight)
		}
	}

	core.LogInfo("Terrain mesh built: %d vertices, %d indices.", len(vertices), len(indices))
	return vertices, indices, nil
}
