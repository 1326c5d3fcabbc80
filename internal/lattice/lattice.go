// Package lattice is an in-memory Cellular Potts lattice: a grid of cell ids
// with the neighbourhood geometry adhesion moves are chosen from.
package lattice

import (
	"fmt"
	"maps"
	"math/rand"
	"slices"

	"adhesim/internal/model"
)

// Medium is the spin of pixels not owned by any cell.
const Medium = 0

// ExtensionMechanism decides where the adhesions on a source pixel may go when
// their cell extends into a neighbouring pixel.
type ExtensionMechanism string

const (
	// ExtendLazy leaves adhesions where they are.
	ExtendLazy ExtensionMechanism = "lazy"
	// ExtendSticky moves adhesions along with the extension.
	ExtendSticky ExtensionMechanism = "sticky"
	// ExtendMixed allows staying or following the extension.
	ExtendMixed ExtensionMechanism = "mixed"
	// ExtendRandom allows following the extension or stepping to any
	// neighbour owned by the same cell.
	ExtendRandom ExtensionMechanism = "random"
)

func ParseExtensionMechanism(name string) (ExtensionMechanism, error) {
	switch ExtensionMechanism(name) {
	case ExtendLazy, ExtendSticky, ExtendMixed, ExtendRandom:
		return ExtensionMechanism(name), nil
	default:
		return "", fmt.Errorf("unsupported extension mechanism: %s", name)
	}
}

type cellMoments struct {
	area       int
	sumX, sumY float64
}

// Grid is a rectangular lattice of spins.
type Grid struct {
	width, height int
	spins         []int
	cells         map[int]*cellMoments
	extension     ExtensionMechanism
}

func NewGrid(width, height int, extension ExtensionMechanism) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid lattice size %dx%d", width, height)
	}
	if extension == "" {
		extension = ExtendSticky
	}
	if _, err := ParseExtensionMechanism(string(extension)); err != nil {
		return nil, err
	}
	return &Grid{
		width:     width,
		height:    height,
		spins:     make([]int, width*height),
		cells:     make(map[int]*cellMoments),
		extension: extension,
	}, nil
}

func (g *Grid) Size() (int, int) {
	return g.width, g.height
}

func (g *Grid) InBounds(p model.Pixel) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < g.width && p.Y < g.height
}

// Spin returns the cell owning p. Pixels outside the grid are medium.
func (g *Grid) Spin(p model.Pixel) int {
	if !g.InBounds(p) {
		return Medium
	}
	return g.spins[p.Y*g.width+p.X]
}

// Set assigns p to spin and keeps the cell moments current.
func (g *Grid) Set(p model.Pixel, spin int) {
	if !g.InBounds(p) {
		return
	}
	i := p.Y*g.width + p.X
	old := g.spins[i]
	if old == spin {
		return
	}
	cx, cy := float64(p.X)+0.5, float64(p.Y)+0.5
	if old != Medium {
		m := g.cells[old]
		m.area--
		m.sumX -= cx
		m.sumY -= cy
		if m.area == 0 {
			delete(g.cells, old)
		}
	}
	if spin != Medium {
		m, ok := g.cells[spin]
		if !ok {
			m = &cellMoments{}
			g.cells[spin] = m
		}
		m.area++
		m.sumX += cx
		m.sumY += cy
	}
	g.spins[i] = spin
}

// Area is the number of pixels owned by spin.
func (g *Grid) Area(spin int) int {
	if m, ok := g.cells[spin]; ok {
		return m.area
	}
	return 0
}

// Centroid returns the mean pixel centre of a cell. Unknown cells give the
// origin.
func (g *Grid) Centroid(spin int) model.Position {
	m, ok := g.cells[spin]
	if !ok || m.area == 0 {
		return model.Position{}
	}
	n := float64(m.area)
	return model.Position{X: m.sumX / n, Y: m.sumY / n}
}

// Cells lists the cells present on the grid, sorted.
func (g *Grid) Cells() []int {
	return slices.Sorted(maps.Keys(g.cells))
}

// PlaceDisc assigns every pixel whose centre lies within radius of center to
// spin and returns the number of pixels set.
func (g *Grid) PlaceDisc(center model.Position, radius float64, spin int) int {
	set := 0
	r2 := radius * radius
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			d := model.Position{X: float64(x) + 0.5, Y: float64(y) + 0.5}.Sub(center)
			if d.Dot(d) <= r2 {
				g.Set(model.Pixel{X: x, Y: y}, spin)
				set++
			}
		}
	}
	return set
}

// Pixels returns the pixels owned by spin in row order.
func (g *Grid) Pixels(spin int) []model.Pixel {
	var out []model.Pixel
	for i, s := range g.spins {
		if s == spin {
			out = append(out, model.Pixel{X: i % g.width, Y: i / g.width})
		}
	}
	return out
}

// LocalConnected reports whether spin stays locally connected around p: walking
// the Moore ring of p, ownership by spin changes at most twice.
func (g *Grid) LocalConnected(p model.Pixel, spin int) bool {
	transitions := 0
	prev := g.Spin(p.Add(model.MooreOffsets[len(model.MooreOffsets)-1])) == spin
	for _, d := range model.MooreOffsets {
		cur := g.Spin(p.Add(d)) == spin
		if cur != prev {
			transitions++
		}
		prev = cur
	}
	return transitions <= 2
}

// ExtensionDisplacements lists where the adhesions on src may go when src's
// spin is copied into tgt.
func (g *Grid) ExtensionDisplacements(src, tgt model.Pixel) []model.Displacement {
	follow := tgt.Sub(src)
	switch g.extension {
	case ExtendLazy:
		return []model.Displacement{model.ZeroDisplacement}
	case ExtendMixed:
		return []model.Displacement{model.ZeroDisplacement, follow}
	case ExtendRandom:
		spin := g.Spin(src)
		out := []model.Displacement{follow}
		for _, d := range model.MooreOffsets {
			if d == follow {
				continue
			}
			if n := src.Add(d); g.InBounds(n) && g.Spin(n) == spin {
				out = append(out, d)
			}
		}
		return out
	default:
		return []model.Displacement{follow}
	}
}

// RetractionDisplacements lists where the adhesions on tgt may escape to when
// tgt is lost to src's spin: neighbours of tgt still owned by tgt's cell,
// other than src, that keep the cell locally connected.
func (g *Grid) RetractionDisplacements(src, tgt model.Pixel) []model.Displacement {
	spin := g.Spin(tgt)
	if spin == Medium {
		return nil
	}
	var out []model.Displacement
	for _, d := range model.MooreOffsets {
		p := tgt.Add(d)
		if !g.InBounds(p) || p == src {
			continue
		}
		if g.Spin(p) != spin || !g.LocalConnected(p, spin) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// CopyAttempt draws a random target pixel and one of its Moore neighbours as
// the source. ok is false when the source falls outside the grid or already
// has the target's spin.
func (g *Grid) CopyAttempt(rng *rand.Rand) (src, tgt model.Pixel, ok bool) {
	tgt = model.Pixel{X: rng.Intn(g.width), Y: rng.Intn(g.height)}
	src = tgt.Add(model.MooreOffsets[rng.Intn(len(model.MooreOffsets))])
	if !g.InBounds(src) || g.Spin(src) == g.Spin(tgt) {
		return src, tgt, false
	}
	return src, tgt, true
}

// AreaDeltaH is the change of the area constraint energy
// lambda*sum((A-target)^2) over cells if src's spin is copied into tgt.
func (g *Grid) AreaDeltaH(src, tgt model.Pixel, target, lambda float64) float64 {
	dh := 0.0
	if s := g.Spin(src); s != Medium {
		a := float64(g.Area(s))
		dh += lambda * ((a+1-target)*(a+1-target) - (a-target)*(a-target))
	}
	if s := g.Spin(tgt); s != Medium {
		a := float64(g.Area(s))
		dh += lambda * ((a-1-target)*(a-1-target) - (a-target)*(a-target))
	}
	return dh
}

// Copy gives tgt the spin of src.
func (g *Grid) Copy(src, tgt model.Pixel) {
	g.Set(tgt, g.Spin(src))
}
