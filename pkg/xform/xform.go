// Package xform provides float64 transform helpers on top of go3d matrices.
//
// Matrices are column-major mat4.T values; translation lives in the fourth
// column. All rotation results are Euler angles in degrees so they can be
// compared against user-facing tolerances directly.
package xform

import (
	gomath "math"

	"github.com/flywave/go3d/float64/mat4"
	"github.com/flywave/go3d/float64/quaternion"
	"github.com/flywave/go3d/float64/vec3"
)

// Mul returns a * b.
func Mul(a, b *mat4.T) mat4.T {
	var out mat4.T
	out.AssignMul(a, b)
	return out
}

// Inverse returns the inverse of the matrix.
// Returns identity if the matrix is singular.
func Inverse(mat *mat4.T) mat4.T {
	// Flatten to column-major [16] so the cofactor expansion stays readable.
	var m [16]float64
	for i := 0; i < 16; i++ {
		m[i] = mat[i/4][i%4]
	}

	// Calculate cofactors
	c00 := m[5]*m[10]*m[15] - m[5]*m[11]*m[14] - m[9]*m[6]*m[15] + m[9]*m[7]*m[14] + m[13]*m[6]*m[11] - m[13]*m[7]*m[10]
	c01 := -m[1]*m[10]*m[15] + m[1]*m[11]*m[14] + m[9]*m[2]*m[15] - m[9]*m[3]*m[14] - m[13]*m[2]*m[11] + m[13]*m[3]*m[10]
	c02 := m[1]*m[6]*m[15] - m[1]*m[7]*m[14] - m[5]*m[2]*m[15] + m[5]*m[3]*m[14] + m[13]*m[2]*m[7] - m[13]*m[3]*m[6]
	c03 := -m[1]*m[6]*m[11] + m[1]*m[7]*m[10] + m[5]*m[2]*m[11] - m[5]*m[3]*m[10] - m[9]*m[2]*m[7] + m[9]*m[3]*m[6]

	c10 := -m[4]*m[10]*m[15] + m[4]*m[11]*m[14] + m[8]*m[6]*m[15] - m[8]*m[7]*m[14] - m[12]*m[6]*m[11] + m[12]*m[7]*m[10]
	c11 := m[0]*m[10]*m[15] - m[0]*m[11]*m[14] - m[8]*m[2]*m[15] + m[8]*m[3]*m[14] + m[12]*m[2]*m[11] - m[12]*m[3]*m[10]
	c12 := -m[0]*m[6]*m[15] + m[0]*m[7]*m[14] + m[4]*m[2]*m[15] - m[4]*m[3]*m[14] - m[12]*m[2]*m[7] + m[12]*m[3]*m[6]
	c13 := m[0]*m[6]*m[11] - m[0]*m[7]*m[10] - m[4]*m[2]*m[11] + m[4]*m[3]*m[10] + m[8]*m[2]*m[7] - m[8]*m[3]*m[6]

	c20 := m[4]*m[9]*m[15] - m[4]*m[11]*m[13] - m[8]*m[5]*m[15] + m[8]*m[7]*m[13] + m[12]*m[5]*m[11] - m[12]*m[7]*m[9]
	c21 := -m[0]*m[9]*m[15] + m[0]*m[11]*m[13] + m[8]*m[1]*m[15] - m[8]*m[3]*m[13] - m[12]*m[1]*m[11] + m[12]*m[3]*m[9]
	c22 := m[0]*m[5]*m[15] - m[0]*m[7]*m[13] - m[4]*m[1]*m[15] + m[4]*m[3]*m[13] + m[12]*m[1]*m[7] - m[12]*m[3]*m[5]
	c23 := -m[0]*m[5]*m[11] + m[0]*m[7]*m[9] + m[4]*m[1]*m[11] - m[4]*m[3]*m[9] - m[8]*m[1]*m[7] + m[8]*m[3]*m[5]

	c30 := -m[4]*m[9]*m[14] + m[4]*m[10]*m[13] + m[8]*m[5]*m[14] - m[8]*m[6]*m[13] - m[12]*m[5]*m[10] + m[12]*m[6]*m[9]
	c31 := m[0]*m[9]*m[14] - m[0]*m[10]*m[13] - m[8]*m[1]*m[14] + m[8]*m[2]*m[13] + m[12]*m[1]*m[10] - m[12]*m[2]*m[9]
	c32 := -m[0]*m[5]*m[14] + m[0]*m[6]*m[13] + m[4]*m[1]*m[14] - m[4]*m[2]*m[13] - m[12]*m[1]*m[6] + m[12]*m[2]*m[5]
	c33 := m[0]*m[5]*m[10] - m[0]*m[6]*m[9] - m[4]*m[1]*m[10] + m[4]*m[2]*m[9] + m[8]*m[1]*m[6] - m[8]*m[2]*m[5]

	// Calculate determinant
	det := m[0]*c00 + m[4]*c01 + m[8]*c02 + m[12]*c03
	if det == 0 {
		return mat4.Ident
	}
	invDet := 1.0 / det

	inv := [16]float64{
		c00 * invDet, c01 * invDet, c02 * invDet, c03 * invDet,
		c10 * invDet, c11 * invDet, c12 * invDet, c13 * invDet,
		c20 * invDet, c21 * invDet, c22 * invDet, c23 * invDet,
		c30 * invDet, c31 * invDet, c32 * invDet, c33 * invDet,
	}

	var out mat4.T
	for i := 0; i < 16; i++ {
		out[i/4][i%4] = inv[i]
	}
	return out
}

// Translate returns a translation matrix.
func Translate(x, y, z float64) mat4.T {
	m := mat4.Ident
	m[3][0] = x
	m[3][1] = y
	m[3][2] = z
	return m
}

// Scale returns a scale matrix.
func Scale(x, y, z float64) mat4.T {
	m := mat4.Ident
	m[0][0] = x
	m[1][1] = y
	m[2][2] = z
	return m
}

// RotationMatrix builds a rotation matrix from a unit quaternion (x, y, z, w).
func RotationMatrix(q quaternion.T) mat4.T {
	x, y, z, w := q[0], q[1], q[2], q[3]

	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z

	m := mat4.Ident
	m[0][0] = 1 - 2*(yy+zz)
	m[0][1] = 2 * (xy + wz)
	m[0][2] = 2 * (xz - wy)

	m[1][0] = 2 * (xy - wz)
	m[1][1] = 1 - 2*(xx+zz)
	m[1][2] = 2 * (yz + wx)

	m[2][0] = 2 * (xz + wy)
	m[2][1] = 2 * (yz - wx)
	m[2][2] = 1 - 2*(xx+yy)
	return m
}

// ComposeTRS builds a world matrix from translation, rotation and scale,
// applied in the conventional T * R * S order.
func ComposeTRS(t vec3.T, r quaternion.T, s vec3.T) mat4.T {
	translate := Translate(t[0], t[1], t[2])
	rotate := RotationMatrix(r)
	scale := Scale(s[0], s[1], s[2])

	tr := Mul(&translate, &rotate)
	return Mul(&tr, &scale)
}

// Decompose splits a matrix into translation, rotation (Euler XYZ in degrees)
// and scale.
func Decompose(m *mat4.T) (translation, rotationDeg, scale vec3.T) {
	t, q, s := mat4.Decompose(m)
	return *t, eulerDegrees(*q), *s
}

// Translation returns the translation component of the matrix.
func Translation(m *mat4.T) vec3.T {
	return vec3.T{m[3][0], m[3][1], m[3][2]}
}

// eulerDegrees converts a unit quaternion to XYZ Euler angles in degrees.
func eulerDegrees(q quaternion.T) vec3.T {
	x, y, z, w := q[0], q[1], q[2], q[3]

	sinX := 2 * (w*x + y*z)
	cosX := 1 - 2*(x*x+y*y)
	rx := gomath.Atan2(sinX, cosX)

	sinY := 2 * (w*y - z*x)
	if sinY > 1 {
		sinY = 1
	} else if sinY < -1 {
		sinY = -1
	}
	ry := gomath.Asin(sinY)

	sinZ := 2 * (w*z + x*y)
	cosZ := 1 - 2*(y*y+z*z)
	rz := gomath.Atan2(sinZ, cosZ)

	const radToDeg = 180.0 / gomath.Pi
	return vec3.T{rx * radToDeg, ry * radToDeg, rz * radToDeg}
}

// AngleDelta returns the signed difference between two angles in degrees,
// wrapped to [-180, 180].
func AngleDelta(a, b float64) float64 {
	delta := gomath.Mod(a-b+180.0, 360.0)
	if delta < 0 {
		delta += 360.0
	}
	return delta - 180.0
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b vec3.T) float64 {
	d := vec3.Sub(&a, &b)
	return d.Length()
}

// Round rounds a value to the given number of decimal places.
func Round(value float64, places int) float64 {
	factor := gomath.Pow(10, float64(places))
	return gomath.Round(value*factor) / factor
}

// RoundVec rounds each component of a vector to the given decimal places.
func RoundVec(v vec3.T, places int) vec3.T {
	return vec3.T{
		Round(v[0], places),
		Round(v[1], places),
		Round(v[2], places),
	}
}
