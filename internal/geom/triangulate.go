package geom

import (
	"errors"
	"math"
)

// MinDeterminant is the smallest |det| accepted when inverting the normal
// equations of a triangulation.
const MinDeterminant = 1e-10

// ErrDegenerate is returned when a matrix is too close to singular to invert.
var ErrDegenerate = errors.New("degenerate matrix")

// Point2 is a 2D image observation, usually in pixels.
type Point2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Mat3 is a row-major 3x3 matrix.
type Mat3 [3][3]float64

// Mat34 is a row-major 3x4 camera projection matrix.
type Mat34 [3][4]float64

// Identity3 returns the 3x3 identity matrix.
func Identity3() Mat3 {
	return Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Det returns the determinant of m by cofactor expansion along the first row.
func (m Mat3) Det() float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// MulVec returns m·v.
func (m Mat3) MulVec(v Vec3) Vec3 {
	return Vec3{
		m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// Inverse3x3 returns the inverse of m using the closed-form adjugate. It
// returns ErrDegenerate when |det(m)| < MinDeterminant.
func Inverse3x3(m Mat3) (Mat3, error) {
	det := m.Det()
	if math.Abs(det) < MinDeterminant {
		return Mat3{}, ErrDegenerate
	}
	inv := 1.0 / det
	var r Mat3
	r[0][0] = (m[1][1]*m[2][2] - m[1][2]*m[2][1]) * inv
	r[0][1] = (m[0][2]*m[2][1] - m[0][1]*m[2][2]) * inv
	r[0][2] = (m[0][1]*m[1][2] - m[0][2]*m[1][1]) * inv
	r[1][0] = (m[1][2]*m[2][0] - m[1][0]*m[2][2]) * inv
	r[1][1] = (m[0][0]*m[2][2] - m[0][2]*m[2][0]) * inv
	r[1][2] = (m[0][2]*m[1][0] - m[0][0]*m[1][2]) * inv
	r[2][0] = (m[1][0]*m[2][1] - m[1][1]*m[2][0]) * inv
	r[2][1] = (m[0][1]*m[2][0] - m[0][0]*m[2][1]) * inv
	r[2][2] = (m[0][0]*m[1][1] - m[0][1]*m[1][0]) * inv
	return r, nil
}

// ProjectPoint maps X through the projection matrix P. ok is false when X
// lies on the camera's principal plane.
func ProjectPoint(P Mat34, X Vec3) (p Point2, ok bool) {
	u := P[0][0]*X.X + P[0][1]*X.Y + P[0][2]*X.Z + P[0][3]
	v := P[1][0]*X.X + P[1][1]*X.Y + P[1][2]*X.Z + P[1][3]
	w := P[2][0]*X.X + P[2][1]*X.Y + P[2][2]*X.Z + P[2][3]
	if w == 0 {
		return Point2{}, false
	}
	return Point2{u / w, v / w}, true
}

// Triangulate recovers the 3D point observed at p1 by camera P1 and at p2 by
// camera P2 using the linear (DLT) method. The inhomogeneous 4x3 system
// A·X = b is solved through the normal equations AᵗA·X = Aᵗb.
func Triangulate(p1, p2 Point2, P1, P2 Mat34) (Vec3, error) {
	var A [4][3]float64
	var b [4]float64
	fillRows := func(row int, p Point2, P Mat34) {
		for c := 0; c < 3; c++ {
			A[row][c] = p.X*P[2][c] - P[0][c]
			A[row+1][c] = p.Y*P[2][c] - P[1][c]
		}
		b[row] = P[0][3] - p.X*P[2][3]
		b[row+1] = P[1][3] - p.Y*P[2][3]
	}
	fillRows(0, p1, P1)
	fillRows(2, p2, P2)

	var ata Mat3
	var atb Vec3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var s float64
			for r := 0; r < 4; r++ {
				s += A[r][i] * A[r][j]
			}
			ata[i][j] = s
		}
	}
	for r := 0; r < 4; r++ {
		atb.X += A[r][0] * b[r]
		atb.Y += A[r][1] * b[r]
		atb.Z += A[r][2] * b[r]
	}

	inv, err := Inverse3x3(ata)
	if err != nil {
		return Vec3{}, err
	}
	return inv.MulVec(atb), nil
}
