package raster

import "math"

// matrix is a PDF transformation [a b c d e f] mapping (x, y) to
// (a·x + c·y + e, b·x + d·y + f).
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// multiply returns the transform that applies m first and then n.
func (m matrix) multiply(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// scale is the geometric mean stretch of m, used to size line widths.
func (m matrix) scale() float64 {
	return math.Sqrt(math.Abs(m[0]*m[3] - m[1]*m[2]))
}

// deviceMatrix maps PDF user space of a page with the given media box origin
// and top edge into top-left-origin pixels at scale s.
func deviceMatrix(llx, ury, s float64) matrix {
	return matrix{s, 0, 0, -s, -llx * s, ury * s}
}
