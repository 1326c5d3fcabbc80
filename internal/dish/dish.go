// Package dish wires a lattice, an actin field, a matrix network and the
// adhesion mover into a runnable Cellular Potts simulation.
package dish

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"slices"

	"adhesim/internal/actin"
	"adhesim/internal/adhesion"
	"adhesim/internal/config"
	"adhesim/internal/lattice"
	"adhesim/internal/matrix"
	"adhesim/internal/model"
	"adhesim/internal/mover"
)

// StepResult reports one Monte Carlo sweep.
type StepResult struct {
	Step        int
	Attempted   int
	Accepted    int
	Annihilated int
	Contracted  int
	// Diff is the interaction diff handed to the matrix network.
	Diff model.Interactions
}

// Dish owns all state of one simulation.
type Dish struct {
	params config.Config
	rng    *rand.Rand
	logger *slog.Logger

	grid    *lattice.Grid
	actin   *actin.Field
	network *matrix.Network
	index   *adhesion.Index
	mover   *mover.Mover

	step int
}

// New places NInitCells round cells on a horizontal line through the middle
// of the lattice, lays the matrix over it and seeds adhesions around each
// cell's centroid.
func New(params config.Config, seed int64, logger *slog.Logger) (*Dish, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	ext, err := lattice.ParseExtensionMechanism(params.ExtensionMechanism)
	if err != nil {
		return nil, err
	}
	grid, err := lattice.NewGrid(params.SizeX, params.SizeY, ext)
	if err != nil {
		return nil, err
	}
	network, err := matrix.NewGrid(params.MatrixSpec(), logger)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(seed))
	index := adhesion.NewIndex(params.IndexConfig(), logger)
	d := &Dish{
		params:  params,
		rng:     rng,
		logger:  logger,
		grid:    grid,
		actin:   actin.NewField(),
		network: network,
		index:   index,
		mover:   mover.New(grid, index, params.MoverConfig(), rng, logger),
	}

	for i := 0; i < params.NInitCells; i++ {
		center := model.Position{
			X: float64((i+1)*params.SizeX) / float64(params.NInitCells+1),
			Y: float64(params.SizeY) / 2,
		}
		area := grid.PlaceDisc(center, params.CellRadius, i+1)
		logger.Debug("placed cell", "spin", i+1, "center", center, "area", area)
	}

	seeded := 0
	for _, spin := range grid.Cells() {
		seeded += len(network.ChangeTypeInArea(model.ChangeTypeInArea{
			Area:  d.adhesionZone(spin),
			Count: params.NumInitialAdhesions,
			From:  model.ParticleFree,
			To:    model.ParticleAdhesion,
		}, rng))
	}
	if err := d.mover.Update(network.Snapshot()); err != nil {
		return nil, fmt.Errorf("initial adhesion update: %w", err)
	}
	logger.Info("dish ready",
		"size", fmt.Sprintf("%dx%d", params.SizeX, params.SizeY),
		"cells", len(grid.Cells()),
		"adhesions", seeded,
		"extension", ext,
		"selection", params.DisplacementSelect,
	)
	return d, nil
}

// adhesionZone lists the pixels of spin within AdhesionZoneRadius of its
// centroid.
func (d *Dish) adhesionZone(spin int) []model.Pixel {
	center := d.grid.Centroid(spin)
	r2 := d.params.AdhesionZoneRadius * d.params.AdhesionZoneRadius
	var zone []model.Pixel
	for _, p := range d.grid.Pixels(spin) {
		off := model.Position{X: float64(p.X) + 0.5, Y: float64(p.Y) + 0.5}.Sub(center)
		if off.Dot(off) <= r2 {
			zone = append(zone, p)
		}
	}
	return zone
}

func (d *Dish) Grid() *lattice.Grid { return d.grid }
func (d *Dish) Actin() *actin.Field { return d.actin }
func (d *Dish) Network() *matrix.Network { return d.network }
func (d *Dish) Mover() *mover.Mover { return d.mover }
func (d *Dish) Params() config.Config { return d.params }
func (d *Dish) Index() *adhesion.Index { return d.index }
func (d *Dish) StepCount() int { return d.step }

// Step runs one Monte Carlo sweep of SizeX*SizeY copy attempts, then the
// per-sweep adhesion dynamics, and synchronises with the matrix network.
func (d *Dish) Step(ctx context.Context) (StepResult, error) {
	res := StepResult{Step: d.step}
	extended := make(map[model.Pixel]struct{})

	attempts := d.params.SizeX * d.params.SizeY
	for i := 0; i < attempts; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}
		src, tgt, ok := d.grid.CopyAttempt(d.rng)
		if !ok {
			continue
		}
		res.Attempted++
		if lost := d.grid.Spin(tgt); lost != lattice.Medium && !d.grid.LocalConnected(tgt, lost) {
			continue
		}

		dh := d.grid.AreaDeltaH(src, tgt, d.params.TargetArea, d.params.LambdaArea)
		dh -= d.actin.DeltaH(d.grid, src, tgt, d.params.LambdaAct, d.params.MaxAct)
		moveDH, displacements := d.mover.MoveDH(src, tgt)
		dh += moveDH
		if !d.accept(dh) {
			continue
		}

		res.Accepted++
		before := d.index.Len()
		d.mover.CommitMove(src, tgt, displacements)
		res.Annihilated += before - d.index.Len()
		d.grid.Copy(src, tgt)
		d.actin.CommitMove(d.grid, tgt, d.params.MaxAct)
		if d.grid.Spin(src) != lattice.Medium {
			extended[tgt] = struct{}{}
		}
	}

	d.actin.Decrease()
	if n := d.params.ContractionInterval; n > 0 && d.step%n == 0 {
		res.Contracted = d.mover.ContractAdhesionInCells(d.params.ContractionForce)
	}
	d.mover.UpdateMyosin(d.actin)

	diff := d.mover.FlushInteractions()
	if d.params.CreateOnExtension {
		if area := d.ownedPixels(extended); len(area) > 0 {
			diff.ChangeTypeInArea = &model.ChangeTypeInArea{
				Area:  area,
				Count: len(area),
				From:  model.ParticleFree,
				To:    model.ParticleAdhesion,
			}
		}
	}
	res.Diff = diff

	if err := d.network.Apply(diff, d.rng); err != nil {
		return res, fmt.Errorf("apply interactions at step %d: %w", d.step, err)
	}
	if d.params.MatrixRelaxSteps > 0 {
		d.network.Relax(d.params.MatrixRelaxSteps, d.params.MatrixRelaxDt)
	}
	if err := d.mover.Update(d.network.Snapshot()); err != nil {
		return res, fmt.Errorf("update adhesions at step %d: %w", d.step, err)
	}
	if err := d.index.Validate(d.grid); err != nil {
		d.logger.Warn("adhesion index inconsistent", "step", d.step, "err", err)
	}

	d.logger.Debug("sweep done",
		"step", d.step,
		"attempted", res.Attempted,
		"accepted", res.Accepted,
		"annihilated", res.Annihilated,
		"contracted", res.Contracted,
		"adhesions", d.index.Len(),
	)
	d.step++
	return res, nil
}

// accept is the Metropolis rule at temperature T.
func (d *Dish) accept(dh float64) bool {
	if dh <= 0 {
		return true
	}
	return d.rng.Float64() < math.Exp(-dh/d.params.Temperature)
}

// ownedPixels keeps the pixels still owned by a cell, sorted.
func (d *Dish) ownedPixels(pixels map[model.Pixel]struct{}) []model.Pixel {
	var out []model.Pixel
	for p := range pixels {
		if d.grid.Spin(p) != lattice.Medium {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, model.ComparePixels)
	return out
}

// Samples returns the observable state of every adhesion in pixel order.
func (d *Dish) Samples() []model.AdhesionSample {
	records := d.index.Records()
	out := make([]model.AdhesionSample, 0, len(records))
	for _, rec := range records {
		out = append(out, model.AdhesionSample{
			ID:       rec.ID,
			Step:     d.step,
			Position: rec.Position,
			Size:     rec.Size,
			Tension:  rec.Tension,
			Myosin:   rec.Myosin,
		})
	}
	return out
}
