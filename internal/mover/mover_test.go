package mover

import (
	"io"
	"log/slog"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adhesim/internal/adhesion"
	"adhesim/internal/integrin"
	"adhesim/internal/model"
	"adhesim/internal/myosin"
)

type fakeLattice struct {
	spins      map[model.Pixel]int
	centroids  map[int]model.Position
	extension  []model.Displacement
	retraction []model.Displacement
}

func (f *fakeLattice) Spin(p model.Pixel) int {
	return f.spins[p]
}

func (f *fakeLattice) Centroid(spin int) model.Position {
	return f.centroids[spin]
}

func (f *fakeLattice) Cells() []int {
	out := make([]int, 0, len(f.centroids))
	for spin := range f.centroids {
		out = append(out, spin)
	}
	return out
}

func (f *fakeLattice) ExtensionDisplacements(_, _ model.Pixel) []model.Displacement {
	return f.extension
}

func (f *fakeLattice) RetractionDisplacements(_, _ model.Pixel) []model.Displacement {
	return f.retraction
}

// squareCell owns every pixel of [0,size)^2 with spin 1.
func squareCell(size int) *fakeLattice {
	spins := make(map[model.Pixel]int)
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			spins[model.Pixel{X: x, Y: y}] = 1
		}
	}
	c := float64(size) / 2
	return &fakeLattice{
		spins:     spins,
		centroids: map[int]model.Position{1: {X: c, Y: c}},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newIndex() *adhesion.Index {
	return adhesion.NewIndex(adhesion.Config{
		N0:            50,
		DefaultMyosin: 0.1,
		MaxActin:      20,
		Integrin: integrin.Params{
			Nt: 1000, PhiS: 5, PhiC: 5, D0: 1, Gamma: 1,
			Dt: 0.001, T: 0.01, N0: 50, FStar: 1,
		},
		Myosin: myosin.Params{CreationRate: 0.001, DecayRate: 1, IntegrationTime: 1, IntegrationTimestep: 0.001},
	}, quietLogger())
}

// bondedAdhesion places adhesion 1 at pos with a stiff spring anchored at
// anchor with rest length zero.
func bondedAdhesion(pos, anchor model.Position) model.BoundarySnapshot {
	s := model.NewBoundarySnapshot()
	s.Particles[1] = model.Particle{Position: pos, Type: model.ParticleAdhesion}
	s.Particles[2] = model.Particle{Position: anchor, Type: model.ParticleFree}
	s.BondTypes[0] = model.BondType{K: 1, R0: 0}
	s.Bonds[1] = model.Bond{P1: 1, P2: 2}
	return s
}

func newMover(t *testing.T, lat *fakeLattice, cfg Config, s model.BoundarySnapshot) *Mover {
	t.Helper()
	ix := newIndex()
	require.NoError(t, ix.Rebuild(s))
	return New(lat, ix, cfg, rand.New(rand.NewSource(1)), quietLogger())
}

func TestMoveDHNoAdhesions(t *testing.T) {
	m := newMover(t, squareCell(4), Config{}, model.NewBoundarySnapshot())
	dh, d := m.MoveDH(model.Pixel{X: 0, Y: 0}, model.Pixel{X: 1, Y: 0})
	assert.Zero(t, dh)
	assert.Equal(t, Displacements{}, d)
}

func TestMoveDHSourceGradientPicksCheapest(t *testing.T) {
	lat := squareCell(8)
	lat.extension = []model.Displacement{{X: 1, Y: 0}, {X: 0, Y: 0}, {X: -1, Y: 0}}
	s := bondedAdhesion(model.Position{X: 3.5, Y: 3.5}, model.Position{X: 1.5, Y: 3.5})
	m := newMover(t, lat, Config{Selection: SelectGradient}, s)

	dh, d := m.MoveDH(model.Pixel{X: 3, Y: 3}, model.Pixel{X: 4, Y: 3})
	assert.Equal(t, model.Displacement{X: -1, Y: 0}, d.Source)
	assert.InDelta(t, 0.5*1-0.5*4, dh, 1e-12)
	assert.Equal(t, model.ZeroDisplacement, d.Target)
}

func TestSelectDisplacementUniformIsReproducible(t *testing.T) {
	lat := squareCell(8)
	options := []model.Displacement{{X: 1, Y: 0}, {X: 0, Y: 1}, {X: -1, Y: 0}, {X: 0, Y: -1}}
	s := bondedAdhesion(model.Position{X: 3.5, Y: 3.5}, model.Position{X: 1.5, Y: 3.5})

	run := func() []model.Displacement {
		m := newMover(t, lat, Config{Selection: SelectUniform}, s)
		var out []model.Displacement
		for i := 0; i < 16; i++ {
			d, dh := m.SelectDisplacement(model.Pixel{X: 3, Y: 3}, options)
			require.Equal(t, m.index.Adhesions(model.Pixel{X: 3, Y: 3})[0].MoveDH(d), dh)
			out = append(out, d)
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestSelectDisplacementEmptyOptions(t *testing.T) {
	m := newMover(t, squareCell(4), Config{}, bondedAdhesion(model.Position{X: 1.5, Y: 1.5}, model.Position{}))
	d, dh := m.SelectDisplacement(model.Pixel{X: 1, Y: 1}, nil)
	assert.Equal(t, model.ZeroDisplacement, d)
	assert.Zero(t, dh)
}

func TestMoveDHYieldingAnnihilatesTarget(t *testing.T) {
	lat := squareCell(8)
	s := bondedAdhesion(model.Position{X: 3.5, Y: 3.5}, model.Position{X: 1.5, Y: 3.5})
	cfg := Config{Yielding: true, YieldingLambda: 100, YieldingNh: 10, N0: 50}
	m := newMover(t, lat, cfg, s)
	m.index.SetSizeOnAdhesions()

	dh, d := m.MoveDH(model.Pixel{X: 2, Y: 3}, model.Pixel{X: 3, Y: 3})
	assert.Equal(t, model.Annihilated, d.Target)
	assert.NotEqual(t, model.ZeroDisplacement, d.Target)
	want := YieldingPenalty(m.index.Adhesions(model.Pixel{X: 3, Y: 3}), 50, 10, 100)
	assert.Equal(t, want, dh)
}

func TestMoveDHRetractionWithoutOptionsAnnihilates(t *testing.T) {
	lat := squareCell(8)
	s := bondedAdhesion(model.Position{X: 3.5, Y: 3.5}, model.Position{X: 1.5, Y: 3.5})
	cfg := Config{AnnihilationPenalty: 7, OverflowThreshold: 0}
	m := newMover(t, lat, cfg, s)

	dh, d := m.MoveDH(model.Pixel{X: 2, Y: 3}, model.Pixel{X: 3, Y: 3})
	assert.Equal(t, model.Annihilated, d.Target)
	assert.Equal(t, 7.0, dh)
}

func TestMoveDHRetractionSelectsOption(t *testing.T) {
	lat := squareCell(8)
	lat.retraction = []model.Displacement{{X: 1, Y: 0}, {X: -1, Y: 0}}
	s := bondedAdhesion(model.Position{X: 3.5, Y: 3.5}, model.Position{X: 1.5, Y: 3.5})
	m := newMover(t, lat, Config{Selection: SelectGradient}, s)

	dh, d := m.MoveDH(model.Pixel{X: 4, Y: 3}, model.Pixel{X: 3, Y: 3})
	assert.Equal(t, model.Displacement{X: -1, Y: 0}, d.Target)
	assert.InDelta(t, -1.5, dh, 1e-12)
}

func TestCommitMoveZeroIsNoop(t *testing.T) {
	s := bondedAdhesion(model.Position{X: 3.5, Y: 3.5}, model.Position{X: 1.5, Y: 3.5})
	m := newMover(t, squareCell(8), Config{}, s)
	before := m.index.All()

	m.CommitMove(model.Pixel{X: 3, Y: 3}, model.Pixel{X: 4, Y: 3}, Displacements{})
	assert.Equal(t, before, m.index.All())
	assert.True(t, m.Interactions().Empty())
}

func TestCommitMoveAppliesDisplacements(t *testing.T) {
	s := bondedAdhesion(model.Position{X: 3.5, Y: 3.5}, model.Position{X: 1.5, Y: 3.5})
	s.Particles[3] = model.Particle{Position: model.Position{X: 4.5, Y: 3.5}, Type: model.ParticleAdhesion}
	m := newMover(t, squareCell(8), Config{}, s)

	m.CommitMove(model.Pixel{X: 3, Y: 3}, model.Pixel{X: 4, Y: 3}, Displacements{
		Source: model.Displacement{X: 0, Y: 1},
		Target: model.Annihilated,
	})
	assert.Len(t, m.index.Adhesions(model.Pixel{X: 3, Y: 4}), 1)
	assert.Empty(t, m.index.Adhesions(model.Pixel{X: 4, Y: 3}))

	diff := m.FlushInteractions()
	assert.Equal(t, model.Position{X: 3.5, Y: 4.5}, diff.Moves[1])
	assert.Equal(t, []model.ParticleID{3}, diff.Removals)
	assert.True(t, m.Interactions().Empty())
}

func TestYieldingPenaltyMonotonicAndSaturating(t *testing.T) {
	const lambda, nh, n0 = 40.0, 25.0, 50.0
	prev := -1.0
	for _, size := range []float64{0, 50, 51, 60, 100, 1e3, 1e6, 1e12} {
		p := YieldingPenalty([]adhesion.Record{{Size: size}}, n0, nh, lambda)
		if p < prev {
			t.Fatalf("penalty decreased at size=%g: %g < %g", size, p, prev)
		}
		if p > lambda {
			t.Fatalf("penalty exceeded lambda at size=%g: %g", size, p)
		}
		prev = p
	}
	assert.InDelta(t, lambda, prev, 1e-6)
	assert.Zero(t, YieldingPenalty([]adhesion.Record{{Size: 10}, {Size: 60}}, n0, nh, lambda))
	assert.InDelta(t, lambda*10/(nh+10), YieldingPenalty([]adhesion.Record{{Size: 55}, {Size: 55}}, n0, nh, lambda), 1e-12)
}

func TestAnnihilationPenaltyMonotonic(t *testing.T) {
	m := New(squareCell(2), newIndex(), Config{AnnihilationPenalty: 2, OverflowThreshold: 3, OverflowPenalty: 600}, nil, quietLogger())
	prev := math.Inf(-1)
	for count := 0; count < 8; count++ {
		p := m.AnnihilationPenalty(count)
		if p < prev {
			t.Fatalf("annihilation penalty decreased at count=%d", count)
		}
		prev = p
	}
	assert.Equal(t, 6.0, m.AnnihilationPenalty(3))
	assert.Equal(t, 8.0+600, m.AnnihilationPenalty(4))
}

func TestContractMovesTowardsCentroid(t *testing.T) {
	lat := squareCell(8) // centroid (4, 4)
	s := model.NewBoundarySnapshot()
	s.Particles[1] = model.Particle{Position: model.Position{X: 0.5, Y: 3.5}, Type: model.ParticleAdhesion}
	m := newMover(t, lat, Config{}, s)

	moved := m.ContractAdhesionInCells(1)
	require.Equal(t, 1, moved)
	assert.Len(t, m.index.Adhesions(model.Pixel{X: 1, Y: 3}), 1)
	assert.Equal(t, model.Position{X: 1.5, Y: 3.5}, m.Interactions().Moves[1])
	require.NoError(t, m.index.Validate(lat))
}

func TestContractRejectsStepAgainstMatrix(t *testing.T) {
	lat := squareCell(8)
	s := bondedAdhesion(model.Position{X: 0.5, Y: 3.5}, model.Position{X: -5.5, Y: 3.5})
	m := newMover(t, lat, Config{}, s)

	// spring work 0.5*(49-36) outweighs the cytoskeletal gain
	assert.Zero(t, m.ContractAdhesionInCells(1))
	assert.Len(t, m.index.Adhesions(model.Pixel{X: 0, Y: 3}), 1)
	assert.True(t, m.Interactions().Empty())
}

func TestContractStaysInsideCell(t *testing.T) {
	lat := squareCell(8)
	lat.spins[model.Pixel{X: 1, Y: 3}] = 2
	s := model.NewBoundarySnapshot()
	s.Particles[1] = model.Particle{Position: model.Position{X: 0.5, Y: 3.5}, Type: model.ParticleAdhesion}
	m := newMover(t, lat, Config{}, s)

	assert.Zero(t, m.ContractAdhesionInCells(1))
	assert.Len(t, m.index.Adhesions(model.Pixel{X: 0, Y: 3}), 1)
}

func TestContractSkipsAdhesionAtCentroid(t *testing.T) {
	lat := squareCell(8)
	lat.centroids[1] = model.Position{X: 2.5, Y: 2.5}
	s := model.NewBoundarySnapshot()
	s.Particles[1] = model.Particle{Position: model.Position{X: 2.5, Y: 2.5}, Type: model.ParticleAdhesion}
	m := newMover(t, lat, Config{}, s)
	assert.Zero(t, m.ContractAdhesionInCells(1))
}

func TestUpdateRecomputesTensionAndSize(t *testing.T) {
	lat := squareCell(8)
	s := bondedAdhesion(model.Position{X: 0.5, Y: 4}, model.Position{X: -1.5, Y: 4})
	m := newMover(t, lat, Config{}, model.NewBoundarySnapshot())

	require.NoError(t, m.Update(s))
	recs := m.index.Records()
	require.Len(t, recs, 1)
	// trial position (1.5, 4), spring length 3 with rest length 0
	assert.InDelta(t, 3.0, recs[0].Tension, 1e-12)
	assert.GreaterOrEqual(t, recs[0].Size, 50.0)
}

func TestUpdateRejectsInconsistentSnapshot(t *testing.T) {
	s := bondedAdhesion(model.Position{X: 0.5, Y: 4}, model.Position{X: -1.5, Y: 4})
	delete(s.Particles, 2)
	m := newMover(t, squareCell(8), Config{}, model.NewBoundarySnapshot())
	require.ErrorIs(t, m.Update(s), adhesion.ErrNotFound)
}

func TestParseSelectionPolicy(t *testing.T) {
	p, err := ParseSelectionPolicy("gradient")
	require.NoError(t, err)
	assert.Equal(t, SelectGradient, p)
	_, err = ParseSelectionPolicy("random")
	require.Error(t, err)
}
