package geom

import (
	"math"
)

// Mat4 is a 4x4 matrix in column-major order (OpenGL-style).
// Element (row r, column c) lives at index c*4+r.
type Mat4 [16]float64

func IdentityMat4() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// PerspectiveMat4 builds a right-handed OpenGL projection.
// fovy is in DEGREES, aspect = width/height, NDC z ∈ [-1,1].
func PerspectiveMat4(fovy, aspect, near, far float64) Mat4 {
	f := 1.0 / math.Tan(fovy*math.Pi/360.0)
	nf := 1.0 / (near - far)

	return Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, (far + near) * nf, -1,
		0, 0, 2 * far * near * nf, 0,
	}
}

// LookAtMat4 creates a right-handed view matrix.
func LookAtMat4(eye, center, up Vec3) Mat4 {
	const eps = 1e-8

	f := center.Sub(eye).NormalizeSafe(eps)
	s := f.Cross(up)
	if s.Length() < eps {
		// Choose an alternate up if too parallel
		var altUp Vec3
		if math.Abs(f.X) < 0.9 {
			altUp = Vec3{1, 0, 0}
		} else {
			altUp = Vec3{0, 1, 0}
		}
		s = f.Cross(altUp)
	}
	s = s.Normalize()
	u := s.Cross(f)

	return Mat4{
		s.X, u.X, -f.X, 0,
		s.Y, u.Y, -f.Y, 0,
		s.Z, u.Z, -f.Z, 0,
		-s.Dot(eye), -u.Dot(eye), f.Dot(eye), 1,
	}
}

func TranslationMat4(v Vec3) Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		v.X, v.Y, v.Z, 1,
	}
}

func RotationXMat4(angle float64) Mat4 {
	c := math.Cos(angle)
	s := math.Sin(angle)
	return Mat4{
		1, 0, 0, 0,
		0, c, s, 0,
		0, -s, c, 0,
		0, 0, 0, 1,
	}
}

// RotationYMat4 matches Vec3.RotateY.
func RotationYMat4(angle float64) Mat4 {
	c := math.Cos(angle)
	s := math.Sin(angle)
	return Mat4{
		c, 0, -s, 0,
		0, 1, 0, 0,
		s, 0, c, 0,
		0, 0, 0, 1,
	}
}

func RotationZMat4(angle float64) Mat4 {
	c := math.Cos(angle)
	s := math.Sin(angle)
	return Mat4{
		c, s, 0, 0,
		-s, c, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

func ScaleMat4(sx, sy, sz float64) Mat4 {
	return Mat4{
		sx, 0, 0, 0,
		0, sy, 0, 0,
		0, 0, sz, 0,
		0, 0, 0, 1,
	}
}

// ComposeTRS builds T * Ry(yaw) * Rx(pitch) * Rz(roll) * S.
func ComposeTRS(t Vec3, yaw, pitch, roll float64, scale Vec3) Mat4 {
	return TranslationMat4(t).
		Mul(RotationYMat4(yaw)).
		Mul(RotationXMat4(pitch)).
		Mul(RotationZMat4(roll)).
		Mul(ScaleMat4(scale.X, scale.Y, scale.Z))
}

// Mul performs column-major matrix multiplication: result = m * other.
func (m Mat4) Mul(other Mat4) Mat4 {
	var result Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			sum := 0.0
			for k := 0; k < 4; k++ {
				sum += m[k*4+row] * other[col*4+k]
			}
			result[col*4+row] = sum
		}
	}
	return result
}

// MulVec4 multiplies matrix by a column vector v: r = m * v.
func (m Mat4) MulVec4(v Vec4) Vec4 {
	r0 := m[0*4+0]*v.X + m[1*4+0]*v.Y + m[2*4+0]*v.Z + m[3*4+0]*v.W
	r1 := m[0*4+1]*v.X + m[1*4+1]*v.Y + m[2*4+1]*v.Z + m[3*4+1]*v.W
	r2 := m[0*4+2]*v.X + m[1*4+2]*v.Y + m[2*4+2]*v.Z + m[3*4+2]*v.W
	r3 := m[0*4+3]*v.X + m[1*4+3]*v.Y + m[2*4+3]*v.Z + m[3*4+3]*v.W
	return Vec4{r0, r1, r2, r3}
}

// MulPoint transforms a point (w=1) and applies perspective divide if w != 0.
func (m Mat4) MulPoint(p Vec3) Vec3 {
	r := m.MulVec4(Vec4{p.X, p.Y, p.Z, 1})
	if r.W != 0 {
		inv := 1.0 / r.W
		return Vec3{r.X * inv, r.Y * inv, r.Z * inv}
	}
	return Vec3{r.X, r.Y, r.Z}
}

// MulDirection transforms a direction (w=0), ignoring translation.
func (m Mat4) MulDirection(d Vec3) Vec3 {
	r := m.MulVec4(Vec4{d.X, d.Y, d.Z, 0})
	return Vec3{r.X, r.Y, r.Z}
}

// Translation returns the translation column.
func (m Mat4) Translation() Vec3 {
	return Vec3{m[12], m[13], m[14]}
}

// Float32 converts to the layout gl.UniformMatrix4fv expects.
func (m Mat4) Float32() [16]float32 {
	var out [16]float32
	for i, v := range m {
		out[i] = float32(v)
	}
	return out
}
