// Package geom holds the vector, angle and triangulation maths shared by the
// joint, metric, stereo and landing packages.
//
// Coordinate convention: X is lateral (subject's left/right), Y is vertical,
// Z is depth (anterior/posterior). Planes are named after the anatomical plane
// they represent:
//
//	sagittal   = Y/Z (X dropped)
//	frontal    = X/Y (Z dropped)
//	transverse = X/Z (Y dropped)
//
// Nothing in this package logs or allocates on the hot path.
package geom

import "math"

// Vec3 is a point or direction in 2D (Z = 0) or 3D space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

// Cross returns v × o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 { return math.Sqrt(v.Dot(v)) }

// IsZero reports whether all components are exactly zero.
func (v Vec3) IsZero() bool { return v.X == 0 && v.Y == 0 && v.Z == 0 }

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Vec3) Vec3 {
	return Vec3{(a.X + b.X) / 2, (a.Y + b.Y) / 2, (a.Z + b.Z) / 2}
}

// Distance returns the Euclidean distance between a and b. Points with Z = 0
// yield the 2D distance.
func Distance(a, b Vec3) float64 { return a.Sub(b).Norm() }

// Lerp returns a + (b-a)*t.
func Lerp(a, b Vec3, t float64) Vec3 { return a.Add(b.Sub(a).Scale(t)) }

// Round rounds every component of v to the given number of decimal places.
func Round(v Vec3, decimals int) Vec3 {
	p := math.Pow(10, float64(decimals))
	return Vec3{
		math.Round(v.X*p) / p,
		math.Round(v.Y*p) / p,
		math.Round(v.Z*p) / p,
	}
}

// RadToDeg converts radians to degrees.
func RadToDeg(r float64) float64 { return r * 180.0 / math.Pi }

// DegToRad converts degrees to radians.
func DegToRad(d float64) float64 { return d * math.Pi / 180.0 }
