// Package mover prices and applies the adhesion side effects of Cellular
// Potts copy attempts, and relaxes adhesions towards their cell's centroid.
package mover

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"adhesim/internal/adhesion"
	"adhesim/internal/model"
)

// Lattice is the read-only view of the lattice engine the mover needs.
type Lattice interface {
	// Spin returns the cell owning p, 0 for the medium.
	Spin(p model.Pixel) int
	// Centroid returns the centre of mass of a cell.
	Centroid(spin int) model.Position
	// Cells lists the ids of all cells, excluding the medium.
	Cells() []int
	// ExtensionDisplacements lists where adhesions at the source pixel may go
	// when src is copied into tgt.
	ExtensionDisplacements(src, tgt model.Pixel) []model.Displacement
	// RetractionDisplacements lists where adhesions at the target pixel may
	// go when src is copied into tgt.
	RetractionDisplacements(src, tgt model.Pixel) []model.Displacement
}

// SelectionPolicy decides which of several permissible displacements is used.
type SelectionPolicy string

const (
	// SelectUniform picks one permissible displacement at random.
	SelectUniform SelectionPolicy = "uniform"
	// SelectGradient picks the displacement needing the least work.
	SelectGradient SelectionPolicy = "gradient"
)

func ParseSelectionPolicy(name string) (SelectionPolicy, error) {
	switch SelectionPolicy(name) {
	case SelectUniform, SelectGradient:
		return SelectionPolicy(name), nil
	default:
		return "", fmt.Errorf("unsupported displacement selection: %s", name)
	}
}

type Config struct {
	Selection SelectionPolicy

	// Yielding removes target adhesions at a size-dependent cost instead of
	// displacing them.
	Yielding       bool
	YieldingLambda float64
	YieldingNh     float64
	N0             float64

	// AnnihilationPenalty is the work per adhesion destroyed because it
	// could not be displaced.
	AnnihilationPenalty float64
	// OverflowThreshold is the adhesion count per pixel above which each
	// extra adhesion adds OverflowPenalty on annihilation. 0 disables it.
	OverflowThreshold int
	OverflowPenalty   float64
}

// Displacements describes where the adhesions of both pixels of a copy
// attempt go.
type Displacements struct {
	Source model.Displacement
	Target model.Displacement
}

// Mover evaluates and commits adhesion moves for one lattice.
type Mover struct {
	lattice Lattice
	index   *adhesion.Index
	cfg     Config
	rng     *rand.Rand
	logger  *slog.Logger
}

func New(lattice Lattice, index *adhesion.Index, cfg Config, rng *rand.Rand, logger *slog.Logger) *Mover {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Selection == "" {
		cfg.Selection = SelectUniform
	}
	return &Mover{
		lattice: lattice,
		index:   index,
		cfg:     cfg,
		rng:     rng,
		logger:  logger,
	}
}

func (m *Mover) Index() *adhesion.Index {
	return m.index
}

// MoveDH returns the work the adhesions add to copying src into tgt, and the
// displacements that work corresponds to. The displacements must be passed
// back to CommitMove if the copy is accepted.
func (m *Mover) MoveDH(src, tgt model.Pixel) (float64, Displacements) {
	var d Displacements
	sourceDH, targetDH := 0.0, 0.0

	if len(m.index.Adhesions(src)) > 0 {
		options := m.lattice.ExtensionDisplacements(src, tgt)
		d.Source, sourceDH = m.SelectDisplacement(src, options)
	}

	atTarget := m.index.Adhesions(tgt)
	if len(atTarget) > 0 {
		if m.cfg.Yielding {
			targetDH = YieldingPenalty(atTarget, m.cfg.N0, m.cfg.YieldingNh, m.cfg.YieldingLambda)
			d.Target = model.Annihilated
		} else {
			options := m.lattice.RetractionDisplacements(src, tgt)
			if len(options) == 0 {
				d.Target = model.Annihilated
				targetDH = m.AnnihilationPenalty(len(atTarget))
			} else {
				d.Target, targetDH = m.SelectDisplacement(tgt, options)
			}
		}
	}

	return sourceDH + targetDH, d
}

// SelectDisplacement chooses one of options for the adhesions at pixel and
// returns it with the work it requires. An empty option list keeps the
// adhesions in place at no cost.
func (m *Mover) SelectDisplacement(pixel model.Pixel, options []model.Displacement) (model.Displacement, float64) {
	if len(options) == 0 {
		return model.ZeroDisplacement, 0
	}
	records := m.index.Adhesions(pixel)

	if m.cfg.Selection == SelectGradient {
		best := options[0]
		bestDH := totalMoveDH(records, best)
		for _, option := range options[1:] {
			if dh := totalMoveDH(records, option); dh < bestDH {
				best, bestDH = option, dh
			}
		}
		return best, bestDH
	}

	choice := options[m.rng.Intn(len(options))]
	return choice, totalMoveDH(records, choice)
}

func totalMoveDH(records []adhesion.Record, d model.Displacement) float64 {
	dh := 0.0
	for _, rec := range records {
		dh += rec.MoveDH(d)
	}
	return dh
}

// CommitMove applies displacements previously returned by MoveDH for the
// same pixel pair.
func (m *Mover) CommitMove(src, tgt model.Pixel, d Displacements) {
	if d.Source != model.ZeroDisplacement {
		m.index.MoveAdhesions(src, src.Add(d.Source))
	}

	switch d.Target {
	case model.ZeroDisplacement:
	case model.Annihilated:
		m.logger.Debug("annihilating adhesions", "pixel", tgt, "count", len(m.index.Adhesions(tgt)))
		m.index.RemoveAdhesions(tgt)
	default:
		m.index.MoveAdhesions(tgt, tgt.Add(d.Target))
	}
}

// YieldingPenalty is lambda*R/(Nh+R) with R the total number of integrins
// above N0 over records, floored at zero.
func YieldingPenalty(records []adhesion.Record, n0, nh, lambda float64) float64 {
	total := 0.0
	for _, rec := range records {
		total += rec.Size - n0
	}
	resisting := math.Max(0, total)
	if resisting == 0 {
		return 0
	}
	return lambda * resisting / (nh + resisting)
}

// AnnihilationPenalty is the work to destroy count colliding adhesions.
func (m *Mover) AnnihilationPenalty(count int) float64 {
	penalty := float64(count) * m.cfg.AnnihilationPenalty
	if m.cfg.OverflowThreshold > 0 && count > m.cfg.OverflowThreshold {
		penalty += float64(count-m.cfg.OverflowThreshold) * m.cfg.OverflowPenalty
	}
	return penalty
}

// ContractAdhesionInCells tries to step every adhesion one Moore neighbour
// towards its cell's centroid. A step is taken when it stays inside the cell
// and lowers the sum of matrix and cytoskeletal energy. It returns the number
// of adhesions moved.
func (m *Mover) ContractAdhesionInCells(forceScale float64) int {
	snapshot := m.index.All()
	moved := 0
	for _, pixel := range m.index.Pixels() {
		spin := m.lattice.Spin(pixel)
		if spin == 0 {
			continue
		}
		center := m.lattice.Centroid(spin)

		for _, rec := range snapshot[pixel] {
			deltaR := center.Sub(rec.Position)
			norm := deltaR.InfNorm()
			if norm == 0 {
				continue
			}
			unit := deltaR.Scale(1 / norm)
			step := model.Displacement{X: int(unit.X), Y: int(unit.Y)}

			newPos := rec.Position.Add(step.Vec())
			if m.lattice.Spin(newPos.Pixel()) != spin {
				continue
			}

			newDeltaR := center.Sub(newPos)
			dhMatrix := rec.MoveDH(step)
			dhCyto := forceScale * rec.Myosin * 0.5 * (newDeltaR.Dot(newDeltaR) - deltaR.Dot(deltaR))
			if dhMatrix+dhCyto < 0 {
				if m.index.MoveAdhesion(rec.ID, pixel, newPos) {
					moved++
				}
			}
		}
	}
	m.logger.Debug("contracted adhesions", "moved", moved, "adhesions", m.index.Len())
	return moved
}

// UpdateMyosin integrates the myosin state of all adhesions.
func (m *Mover) UpdateMyosin(field adhesion.ActinField) {
	m.index.SetMyosin(field)
}

// Update resynchronises the cache with the matrix owner's snapshot and
// recomputes tension and size of every adhesion.
func (m *Mover) Update(s model.BoundarySnapshot) error {
	if err := m.index.Rebuild(s); err != nil {
		return fmt.Errorf("rebuild adhesion index: %w", err)
	}
	cells := m.lattice.Cells()
	centroids := make(map[int]model.Position, len(cells))
	for _, spin := range cells {
		centroids[spin] = m.lattice.Centroid(spin)
	}
	m.index.SetForceOnAdhesions(centroids, m.lattice)
	m.index.SetSizeOnAdhesions()
	return nil
}

func (m *Mover) Interactions() model.Interactions {
	return m.index.Interactions()
}

func (m *Mover) ResetInteractions() {
	m.index.ResetInteractions()
}

// FlushInteractions returns the recorded changes and resets them.
func (m *Mover) FlushInteractions() model.Interactions {
	return m.index.FlushInteractions()
}
