package geometry

import (
	"math"

	"github.com/golang/geo/r3"
)

// mat3 is a 3x3 matrix stored as three rows, used for the rotation matrices
// in the forward geometry transform. golang/geo/r3 supplies the vector
// type; the matrix itself is small enough that a dedicated dependency buys
// nothing over three dot products per row.
type mat3 [3]r3.Vector

func rotX(theta float64) mat3 {
	s, c := math.Sin(theta), math.Cos(theta)
	return mat3{
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: c, Z: -s},
		{X: 0, Y: s, Z: c},
	}
}

func rotY(theta float64) mat3 {
	s, c := math.Sin(theta), math.Cos(theta)
	return mat3{
		{X: c, Y: 0, Z: s},
		{X: 0, Y: 1, Z: 0},
		{X: -s, Y: 0, Z: c},
	}
}

func rotZ(theta float64) mat3 {
	s, c := math.Sin(theta), math.Cos(theta)
	return mat3{
		{X: c, Y: -s, Z: 0},
		{X: s, Y: c, Z: 0},
		{X: 0, Y: 0, Z: 1},
	}
}

// col returns column j of m as a vector, used by matMul.
func (m mat3) col(j int) r3.Vector {
	switch j {
	case 0:
		return r3.Vector{X: m[0].X, Y: m[1].X, Z: m[2].X}
	case 1:
		return r3.Vector{X: m[0].Y, Y: m[1].Y, Z: m[2].Y}
	default:
		return r3.Vector{X: m[0].Z, Y: m[1].Z, Z: m[2].Z}
	}
}

// matMul computes a*b (matrix product), rows of a times columns of b.
func matMul(a, b mat3) mat3 {
	var out mat3
	cols := [3]r3.Vector{b.col(0), b.col(1), b.col(2)}
	for i := 0; i < 3; i++ {
		out[i] = r3.Vector{
			X: a[i].Dot(cols[0]),
			Y: a[i].Dot(cols[1]),
			Z: a[i].Dot(cols[2]),
		}
	}
	return out
}

// mul applies m to vector v (m*v).
func (m mat3) mul(v r3.Vector) r3.Vector {
	return r3.Vector{X: m[0].Dot(v), Y: m[1].Dot(v), Z: m[2].Dot(v)}
}

// rotTransFromOrient builds the rotation matrix R = Ry(tiltY)·Rx(tiltX)·Rz(rotZ)
// and the translation offset T = (transX, transY, piston). The composition
// order is a fixed convention; changing it silently changes every mount.
func rotTransFromOrient(o Orientation) (mat3, r3.Vector) {
	r := matMul(rotY(o.TiltY()), rotX(o.TiltX()))
	r = matMul(r, rotZ(o.RotZ()))
	t := r3.Vector{X: o.TransX(), Y: o.TransY(), Z: o.Piston()}
	return r, t
}

// rotEqPolMat builds the matrix for a rotation by polAng that tips the +Z
// axis toward azimuth eqAng (equatorial angle in the x-y plane, from x to
// y; polar angle from the z axis); its axis is the horizontal line
// perpendicular to that azimuth. It is written directly from the four
// sines and cosines. This is the TCC's equatorial-polar rotation
// convention, which the geometric regression data assumes.
func rotEqPolMat(eqAng, polAng float64) mat3 {
	sinEq, cosEq := math.Sin(eqAng), math.Cos(eqAng)
	sinPol, cosPol := math.Sin(polAng), math.Cos(polAng)
	return mat3{
		{
			X: sinEq*sinEq + cosEq*cosEq*cosPol,
			Y: -sinEq * cosEq * (1 - cosPol),
			Z: cosEq * sinPol,
		},
		{
			X: -sinEq * cosEq * (1 - cosPol),
			Y: cosEq*cosEq + sinEq*sinEq*cosPol,
			Z: sinEq * sinPol,
		},
		{
			X: -cosEq * sinPol,
			Y: -sinEq * sinPol,
			Z: cosPol,
		},
	}
}
