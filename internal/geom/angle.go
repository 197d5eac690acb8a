package geom

import "math"

// Plane selects an anatomical projection plane for angle measurement.
type Plane int

const (
	// PlaneNone measures the full 3D angle.
	PlaneNone Plane = iota
	// PlaneSagittal drops the lateral (X) axis.
	PlaneSagittal
	// PlaneFrontal drops the depth (Z) axis.
	PlaneFrontal
	// PlaneTransverse drops the vertical (Y) axis.
	PlaneTransverse
)

// String returns the plane name.
func (p Plane) String() string {
	switch p {
	case PlaneSagittal:
		return "sagittal"
	case PlaneFrontal:
		return "frontal"
	case PlaneTransverse:
		return "transverse"
	default:
		return "3d"
	}
}

// Project drops the axis orthogonal to plane. PlaneNone returns v unchanged.
func Project(v Vec3, plane Plane) Vec3 {
	switch plane {
	case PlaneSagittal:
		return Vec3{0, v.Y, v.Z}
	case PlaneFrontal:
		return Vec3{v.X, v.Y, 0}
	case PlaneTransverse:
		return Vec3{v.X, 0, v.Z}
	default:
		return v
	}
}

// AngleBetween returns the angle in degrees, in [0, 180], at vertex between
// the rays vertex→a and vertex→b. When plane is not PlaneNone both rays are
// projected onto it first. A zero-length ray yields 0.
func AngleBetween(a, vertex, b Vec3, plane Plane) float64 {
	return angleOf(Project(a.Sub(vertex), plane), Project(b.Sub(vertex), plane))
}

// AngleFromVertical returns the angle in degrees between v and the vertical
// axis after projection onto plane, ignoring whether v points up or down.
// The result is in [0, 90]; a zero vector yields 0.
func AngleFromVertical(v Vec3, plane Plane) float64 {
	p := Project(v, plane)
	n := p.Norm()
	if n == 0 {
		return 0
	}
	c := math.Abs(p.Y) / n
	return RadToDeg(math.Acos(clamp(c, -1, 1)))
}

// ElevationAngle returns the angle in degrees between v and the horizontal
// (X/Z) plane, in [0, 90]. A zero vector yields 0.
func ElevationAngle(v Vec3) float64 {
	n := v.Norm()
	if n == 0 {
		return 0
	}
	return RadToDeg(math.Asin(clamp(math.Abs(v.Y)/n, -1, 1)))
}

// LineAngle returns the unsigned angle in degrees, in [0, 90], between two
// undirected lines u and w after projection onto plane.
func LineAngle(u, w Vec3, plane Plane) float64 {
	a := angleOf(Project(u, plane), Project(w, plane))
	if a > 90 {
		a = 180 - a
	}
	return a
}

func angleOf(v1, v2 Vec3) float64 {
	m1, m2 := v1.Norm(), v2.Norm()
	if m1 == 0 || m2 == 0 {
		return 0
	}
	c := clamp(v1.Dot(v2)/(m1*m2), -1, 1)
	return RadToDeg(math.Acos(c))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
