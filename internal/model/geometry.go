package model

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// Vec is a continuous 2-D vector.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Position is a point in continuous lattice coordinates.
type Position = Vec

// Force is a 2-D force vector.
type Force = Vec

func (v Vec) Add(w Vec) Vec {
	return Vec{X: v.X + w.X, Y: v.Y + w.Y}
}

func (v Vec) Sub(w Vec) Vec {
	return Vec{X: v.X - w.X, Y: v.Y - w.Y}
}

func (v Vec) Scale(s float64) Vec {
	return Vec{X: v.X * s, Y: v.Y * s}
}

func (v Vec) Dot(w Vec) float64 {
	return v.X*w.X + v.Y*w.Y
}

// Length is the Euclidean norm.
func (v Vec) Length() float64 {
	return math.Sqrt(v.Dot(v))
}

// InfNorm is the Chebyshev norm max(|x|, |y|).
func (v Vec) InfNorm() float64 {
	return math.Max(math.Abs(v.X), math.Abs(v.Y))
}

// Unit returns v scaled to length one. A zero vector yields NaN components.
func (v Vec) Unit() Vec {
	return v.Scale(1 / v.Length())
}

// Perp rotates v by 90 degrees counter-clockwise.
func (v Vec) Perp() Vec {
	return Vec{X: -v.Y, Y: v.X}
}

// Pixel returns the lattice site containing v (component-wise floor).
func (v Vec) Pixel() Pixel {
	return Pixel{X: int(math.Floor(v.X)), Y: int(math.Floor(v.Y))}
}

func (v Vec) String() string {
	return fmt.Sprintf("(%g,%g)", v.X, v.Y)
}

// Pixel is an integer lattice coordinate.
type Pixel struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Pixel) Add(d Displacement) Pixel {
	return Pixel{X: p.X + d.X, Y: p.Y + d.Y}
}

// Sub returns the displacement leading from q to p.
func (p Pixel) Sub(q Pixel) Displacement {
	return Displacement{X: p.X - q.X, Y: p.Y - q.Y}
}

// Less orders pixels by x, then y.
func (p Pixel) Less(q Pixel) bool {
	if p.X != q.X {
		return p.X < q.X
	}
	return p.Y < q.Y
}

// ComparePixels is Less as a three-way comparison for slices.SortFunc.
func ComparePixels(a, b Pixel) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	default:
		return 0
	}
}

func (p Pixel) String() string {
	return fmt.Sprintf("[%d,%d]", p.X, p.Y)
}

// Displacement is an integer lattice offset.
type Displacement struct {
	X int `json:"x"`
	Y int `json:"y"`
}

var (
	// ZeroDisplacement leaves adhesions where they are.
	ZeroDisplacement = Displacement{}

	// Annihilated marks adhesions that are destroyed instead of displaced.
	Annihilated = Displacement{X: math.MinInt32, Y: math.MinInt32}
)

// Vec converts d to a continuous offset.
func (d Displacement) Vec() Vec {
	return Vec{X: float64(d.X), Y: float64(d.Y)}
}

func (d Displacement) IsZero() bool {
	return d == ZeroDisplacement
}

func (d Displacement) String() string {
	if d == Annihilated {
		return "annihilated"
	}
	return fmt.Sprintf("<%d,%d>", d.X, d.Y)
}

// MooreOffsets lists the eight neighbour offsets of the Moore neighbourhood
// in a fixed order.
var MooreOffsets = [8]Displacement{
	{X: -1, Y: -1}, {X: -1, Y: 0}, {X: -1, Y: 1},
	{X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0},
	{X: 1, Y: -1}, {X: 0, Y: -1},
}

// Clamp limits value to [lo, hi].
func Clamp[T constraints.Ordered](value, lo, hi T) T {
	if value > hi {
		return hi
	}
	if value < lo {
		return lo
	}
	return value
}
