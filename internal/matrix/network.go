// Package matrix is an in-process extracellular matrix: the authoritative
// particle network that adhesion diffs are applied to and boundary
// snapshots are taken from.
package matrix

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"math/rand"
	"slices"

	"adhesim/internal/model"
	"adhesim/internal/spring"
)

// ErrUnknownParticle reports a diff that references a particle the network
// does not hold.
var ErrUnknownParticle = errors.New("unknown matrix particle")

// GridSpec describes a regular square network.
type GridSpec struct {
	// Columns and Rows count particles along each axis.
	Columns, Rows int
	Spacing       float64
	Origin        model.Position

	BondK      float64
	AngleK     float64
	FixBorders bool
}

// Network owns the particle graph.
type Network struct {
	state  model.BoundarySnapshot
	logger *slog.Logger
}

func New(state model.BoundarySnapshot, logger *slog.Logger) *Network {
	return &Network{state: state.Clone(), logger: orDefault(logger)}
}

// NewGrid builds a square lattice of free particles joined by springs of
// rest length Spacing, with straight angle constraints along rows and
// columns.
func NewGrid(spec GridSpec, logger *slog.Logger) (*Network, error) {
	if spec.Columns < 2 || spec.Rows < 2 {
		return nil, fmt.Errorf("matrix grid needs at least 2x2 particles, got %dx%d", spec.Columns, spec.Rows)
	}
	if spec.Spacing <= 0 {
		return nil, fmt.Errorf("matrix grid spacing must be positive, got %g", spec.Spacing)
	}

	s := model.NewBoundarySnapshot()
	s.BondTypes[0] = model.BondType{K: spec.BondK, R0: spec.Spacing}
	s.AngleConstraintTypes[0] = model.AngleConstraintType{K: spec.AngleK, Theta0: math.Pi}

	id := func(col, row int) model.ParticleID {
		return model.ParticleID(row*spec.Columns + col)
	}
	for row := 0; row < spec.Rows; row++ {
		for col := 0; col < spec.Columns; col++ {
			typ := model.ParticleFree
			border := col == 0 || row == 0 || col == spec.Columns-1 || row == spec.Rows-1
			if spec.FixBorders && border {
				typ = model.ParticleBoundary
			}
			s.Particles[id(col, row)] = model.Particle{
				Position: spec.Origin.Add(model.Position{X: float64(col) * spec.Spacing, Y: float64(row) * spec.Spacing}),
				Type:     typ,
			}
		}
	}

	var bond model.BondID
	var angle model.AngleConstraintID
	for row := 0; row < spec.Rows; row++ {
		for col := 0; col < spec.Columns; col++ {
			if col+1 < spec.Columns {
				s.Bonds[bond] = model.Bond{P1: id(col, row), P2: id(col+1, row)}
				bond++
			}
			if row+1 < spec.Rows {
				s.Bonds[bond] = model.Bond{P1: id(col, row), P2: id(col, row+1)}
				bond++
			}
			if col+2 < spec.Columns {
				s.AngleConstraints[angle] = model.AngleConstraint{P1: id(col, row), P2: id(col+1, row), P3: id(col+2, row)}
				angle++
			}
			if row+2 < spec.Rows {
				s.AngleConstraints[angle] = model.AngleConstraint{P1: id(col, row), P2: id(col, row+1), P3: id(col, row+2)}
				angle++
			}
		}
	}
	return &Network{state: s, logger: orDefault(logger)}, nil
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// Snapshot returns a deep copy of the current network.
func (n *Network) Snapshot() model.BoundarySnapshot {
	return n.state.Clone()
}

// CountType returns the number of particles of type t.
func (n *Network) CountType(t model.ParticleType) int {
	return n.state.CountType(t)
}

// ChangeTypeInArea converts up to req.Count particles of type req.From lying
// on the pixels of req.Area to type req.To. Candidates are shuffled with rng
// and taken in that order. It returns the converted ids, sorted.
func (n *Network) ChangeTypeInArea(req model.ChangeTypeInArea, rng *rand.Rand) []model.ParticleID {
	area := make(map[model.Pixel]struct{}, len(req.Area))
	for _, p := range req.Area {
		area[p] = struct{}{}
	}

	var candidates []model.ParticleID
	for _, pid := range n.state.ParticleIDs() {
		particle := n.state.Particles[pid]
		if particle.Type != req.From {
			continue
		}
		if _, ok := area[particle.Position.Pixel()]; ok {
			candidates = append(candidates, pid)
		}
	}
	if rng != nil {
		rng.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
	}
	if req.Count < len(candidates) {
		candidates = candidates[:max(req.Count, 0)]
	}

	for _, pid := range candidates {
		particle := n.state.Particles[pid]
		particle.Type = req.To
		n.state.Particles[pid] = particle
	}
	slices.Sort(candidates)
	n.logger.Debug("changed particle types", "from", req.From, "to", req.To, "count", len(candidates), "area", len(req.Area))
	return candidates
}

// Apply moves and releases adhesions according to a flushed diff. Released
// adhesions turn back into free particles. A change-type request is carried
// out last, drawing candidates with rng. The network is left unchanged if the
// diff names an unknown particle.
func (n *Network) Apply(diff model.Interactions, rng *rand.Rand) error {
	for _, pid := range slices.Sorted(maps.Keys(diff.Moves)) {
		if _, ok := n.state.Particles[pid]; !ok {
			return fmt.Errorf("move particle %d: %w", pid, ErrUnknownParticle)
		}
	}
	for _, pid := range diff.Removals {
		if _, ok := n.state.Particles[pid]; !ok {
			return fmt.Errorf("remove particle %d: %w", pid, ErrUnknownParticle)
		}
	}

	for pid, pos := range diff.Moves {
		particle := n.state.Particles[pid]
		particle.Position = pos
		n.state.Particles[pid] = particle
	}
	for _, pid := range diff.Removals {
		particle := n.state.Particles[pid]
		if particle.Type == model.ParticleAdhesion {
			particle.Type = model.ParticleFree
		}
		n.state.Particles[pid] = particle
	}
	n.logger.Debug("applied adhesion diff", "moves", len(diff.Moves), "removals", len(diff.Removals))

	if diff.ChangeTypeInArea != nil {
		n.ChangeTypeInArea(*diff.ChangeTypeInArea, rng)
	}
	return nil
}

// Forces returns the net spring force on every particle. Angle constraints
// with zero stiffness are skipped.
func (n *Network) Forces() map[model.ParticleID]model.Force {
	forces := make(map[model.ParticleID]model.Force, len(n.state.Particles))
	for _, bid := range slices.Sorted(maps.Keys(n.state.Bonds)) {
		bond := n.state.Bonds[bid]
		bt := n.state.BondTypes[bond.Type]
		a := n.state.Particles[bond.P1].Position
		b := n.state.Particles[bond.P2].Position
		onB := spring.LinearForce(a, b, bt.K, bt.R0)
		forces[bond.P2] = forces[bond.P2].Add(onB)
		forces[bond.P1] = forces[bond.P1].Sub(onB)
	}
	for _, aid := range slices.Sorted(maps.Keys(n.state.AngleConstraints)) {
		cst := n.state.AngleConstraints[aid]
		at := n.state.AngleConstraintTypes[cst.Type]
		if at.K == 0 {
			continue
		}
		a := n.state.Particles[cst.P1].Position
		b := n.state.Particles[cst.P2].Position
		c := n.state.Particles[cst.P3].Position
		onA := spring.AngularForceOnEndpoint(a, b, c, at.K, at.Theta0)
		onC := spring.AngularForceOnEndpoint(c, b, a, at.K, at.Theta0)
		forces[cst.P1] = forces[cst.P1].Add(onA)
		forces[cst.P3] = forces[cst.P3].Add(onC)
		forces[cst.P2] = forces[cst.P2].Sub(onA.Add(onC))
	}
	return forces
}

// Relax takes steps of overdamped motion for the free particles. Adhesions
// are held by their cells and boundary particles are fixed. Forces that are
// not finite are skipped. It returns the largest displacement of the last
// step.
func (n *Network) Relax(steps int, dt float64) float64 {
	largest := 0.0
	for i := 0; i < steps; i++ {
		largest = 0
		forces := n.Forces()
		for _, pid := range n.state.ParticleIDs() {
			particle := n.state.Particles[pid]
			if particle.Type != model.ParticleFree {
				continue
			}
			step := forces[pid].Scale(dt)
			if math.IsNaN(step.X) || math.IsNaN(step.Y) || math.IsInf(step.X, 0) || math.IsInf(step.Y, 0) {
				continue
			}
			particle.Position = particle.Position.Add(step)
			n.state.Particles[pid] = particle
			largest = max(largest, step.Length())
		}
	}
	return largest
}
