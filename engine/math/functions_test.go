package math

import (
	gomath "math"
	"testing"

	"github.com/stretchr/testify/require"
)

const epsilon = 1e-5

func requireMat4Equal(t *testing.T, expected, actual Mat4) {
	t.Helper()
	for i := 0; i < 16; i++ {
		require.InDelta(t, expected.Data[i], actual.Data[i], epsilon, "element %d", i)
	}
}

func TestEulerYZeroIsIdentity(t *testing.T) {
	requireMat4Equal(t, NewMat4Identity(), NewMat4EulerY(0))
}

func TestEulerYIsPureRotation(t *testing.T) {
	for _, deg := range []float32{15, 45, 90, 180, 270, 359} {
		m := NewMat4EulerY(DegToRad(deg))

		// Rows stay orthonormal.
		r0 := NewVec3(m.Data[0], m.Data[1], m.Data[2])
		r1 := NewVec3(m.Data[4], m.Data[5], m.Data[6])
		r2 := NewVec3(m.Data[8], m.Data[9], m.Data[10])
		require.InDelta(t, 1.0, r0.Length(), epsilon)
		require.InDelta(t, 1.0, r1.Length(), epsilon)
		require.InDelta(t, 1.0, r2.Length(), epsilon)
		require.InDelta(t, 0.0, r0.Dot(r1), epsilon)
		require.InDelta(t, 0.0, r0.Dot(r2), epsilon)

		// The vertical axis is fixed.
		require.InDelta(t, 1.0, m.Data[5], epsilon)
		require.InDelta(t, 0.0, m.Data[4], epsilon)
		require.InDelta(t, 0.0, m.Data[6], epsilon)

		// The rotation angle matches.
		c := float32(gomath.Cos(float64(DegToRad(deg))))
		require.InDelta(t, c, m.Data[0], epsilon)
		require.InDelta(t, c, m.Data[10], epsilon)
	}
}

func TestEulerYAdvancesWithTime(t *testing.T) {
	// t seconds of elapsed time maps to t*45 degrees in the transform
	// update; two half-steps must compose into the full step.
	half := NewMat4EulerY(DegToRad(22.5))
	full := NewMat4EulerY(DegToRad(45))
	requireMat4Equal(t, full, half.Mul(half))
}

func TestPerspectiveVKFlipsYForAllAspectRatios(t *testing.T) {
	for _, aspect := range []float32{0.25, 0.5, 1.0, 4.0 / 3.0, 16.0 / 9.0, 3.2} {
		canonical := NewMat4Perspective(DegToRad(45), aspect, 0.1, 10.0)
		vk := NewMat4PerspectiveVK(DegToRad(45), aspect, 0.1, 10.0)

		require.Greater(t, canonical.Data[5], float32(0), "aspect %f", aspect)
		require.InDelta(t, -canonical.Data[5], vk.Data[5], epsilon, "aspect %f", aspect)

		// Every other element is untouched by the clip-space fix.
		for i := 0; i < 16; i++ {
			if i == 5 {
				continue
			}
			require.InDelta(t, canonical.Data[i], vk.Data[i], epsilon)
		}
	}
}

func TestLookAtKeepsEyeAtOrigin(t *testing.T) {
	eye := NewVec3(2, 2, 2)
	view := NewMat4LookAt(eye, NewVec3(0, 0, 0), NewVec3(0, 1, 0))

	// Transforming the eye position must land on the view-space origin.
	x := view.Data[0]*eye.X + view.Data[4]*eye.Y + view.Data[8]*eye.Z + view.Data[12]
	y := view.Data[1]*eye.X + view.Data[5]*eye.Y + view.Data[9]*eye.Z + view.Data[13]
	z := view.Data[2]*eye.X + view.Data[6]*eye.Y + view.Data[10]*eye.Z + view.Data[14]
	require.InDelta(t, 0.0, x, epsilon)
	require.InDelta(t, 0.0, y, epsilon)
	require.InDelta(t, 0.0, z, epsilon)
}

func TestClamp(t *testing.T) {
	require.Equal(t, uint32(4), Clamp(uint32(2), 4, 10))
	require.Equal(t, uint32(10), Clamp(uint32(200), 4, 10))
	require.Equal(t, uint32(7), Clamp(uint32(7), 4, 10))
	require.Equal(t, float32(1.5), Clamp(float32(1.5), 0.0, 2.0))
}
