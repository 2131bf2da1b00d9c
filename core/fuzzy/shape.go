package fuzzy

import "fmt"

type ShapeKind uint8

const (
	ShapeTriangle ShapeKind = iota + 1
	ShapeTrapezoid
)

// Shape is a piecewise-linear membership function, a closed set of variants
// tagged by kind. The zero Shape is invalid.
type Shape struct {
	kind ShapeKind
	p    [4]float64
}

// Triangle is the membership function that is 0 outside [a, c], 1 at b, and
// linear in between. Vertices must satisfy a <= b <= c.
func Triangle(a, b, c float64) Shape {
	return Shape{kind: ShapeTriangle, p: [4]float64{a, b, b, c}}
}

// Trapezoid is the membership function that is 0 outside [a, d], 1 on
// [b, c], and linear in between. Vertices must satisfy a <= b <= c <= d.
func Trapezoid(a, b, c, d float64) Shape {
	return Shape{kind: ShapeTrapezoid, p: [4]float64{a, b, c, d}}
}

func (s Shape) Kind() ShapeKind { return s.kind }

// Points returns the defining vertices: three for a triangle, four for a
// trapezoid.
func (s Shape) Points() []float64 {
	switch s.kind {
	case ShapeTriangle:
		return []float64{s.p[0], s.p[1], s.p[3]}
	case ShapeTrapezoid:
		return []float64{s.p[0], s.p[1], s.p[2], s.p[3]}
	default:
		panic("unexpected shape kind")
	}
}

func (s Shape) validate() error {
	switch s.kind {
	case ShapeTriangle, ShapeTrapezoid:
		if !(s.p[0] <= s.p[1] && s.p[1] <= s.p[2] && s.p[2] <= s.p[3]) {
			return fmt.Errorf("%w: non-monotonic shape vertices %v", ErrConfiguration, s.Points())
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown shape kind", ErrConfiguration)
	}
}

// Degree evaluates the membership function at x: 0 outside [a, d], 1 on the
// peak or plateau [b, c], linear on the ramps. Vertical edges (a == b or
// c == d) act as shoulders. Callers are responsible for clamping x into the
// variable's universe first.
func (s Shape) Degree(x float64) float64 {
	a, b, c, d := s.p[0], s.p[1], s.p[2], s.p[3]
	switch {
	case x < a || x > d:
		return 0
	case x >= b && x <= c:
		return 1
	case x < b:
		return (x - a) / (b - a)
	default:
		return (d - x) / (d - c)
	}
}
