package geom

import (
	"math"
)

type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(other Vec3) Vec3     { return Vec3{v.X + other.X, v.Y + other.Y, v.Z + other.Z} }
func (v Vec3) Sub(other Vec3) Vec3     { return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z} }
func (v Vec3) Mul(scalar float64) Vec3 { return Vec3{v.X * scalar, v.Y * scalar, v.Z * scalar} }

func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		v.Y*other.Z - v.Z*other.Y,
		v.Z*other.X - v.X*other.Z,
		v.X*other.Y - v.Y*other.X,
	}
}

func (v Vec3) Length() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// HorizontalLength is the length of the XZ projection.
func (v Vec3) HorizontalLength() float64 { return math.Sqrt(v.X*v.X + v.Z*v.Z) }

func (v Vec3) Normalize() Vec3 {
	length := v.Length()
	if length == 0 {
		return Vec3{0, 0, 0}
	}
	return Vec3{v.X / length, v.Y / length, v.Z / length}
}

// NormalizeSafe normalizes unless |v| < eps, in which case it returns (0,0,0).
func (v Vec3) NormalizeSafe(eps float64) Vec3 {
	if v.Length() < eps {
		return Vec3{0, 0, 0}
	}
	return v.Normalize()
}

// RotateY rotates v about the +Y axis. A yaw of 0 maps local +Z (forward)
// to world +Z; positive yaw turns +Z toward +X.
func (v Vec3) RotateY(angle float64) Vec3 {
	c, s := math.Cos(angle), math.Sin(angle)
	return Vec3{
		X: v.X*c + v.Z*s,
		Y: v.Y,
		Z: -v.X*s + v.Z*c,
	}
}

// Lerp moves v toward target by fraction t.
func (v Vec3) Lerp(target Vec3, t float64) Vec3 {
	return v.Add(target.Sub(v).Mul(t))
}

// IsFinite reports whether every component is a finite number.
func (v Vec3) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

type Vec4 struct {
	X, Y, Z, W float64
}

func DegToRad(deg float64) float64 { return deg * math.Pi / 180.0 }
func RadToDeg(rad float64) float64 { return rad * 180.0 / math.Pi }

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Blend converts a per-second smoothing rate into the fraction to move this
// step: 1 - exp(-rate*dt). Equal total time gives equal convergence no matter
// how it is sliced into steps.
func Blend(rate, dt float64) float64 {
	if rate <= 0 || dt <= 0 {
		return 0
	}
	return 1 - math.Exp(-rate*dt)
}

// Decay is the complement of Blend: the factor left after dt.
func Decay(rate, dt float64) float64 {
	if rate <= 0 || dt <= 0 {
		return 1
	}
	return math.Exp(-rate * dt)
}

// RateFromTickFactor converts a fixed per-tick blend factor observed at
// tickHz into the equivalent per-second rate for Blend.
func RateFromTickFactor(factor, tickHz float64) float64 {
	if factor <= 0 || factor >= 1 || tickHz <= 0 {
		return 0
	}
	return -math.Log(1-factor) * tickHz
}

// WrapDegrees normalizes an angle in degrees to [0,360).
func WrapDegrees(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}

func isFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
