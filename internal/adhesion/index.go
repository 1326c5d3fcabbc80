// Package adhesion caches adhesion particles per lattice pixel together with
// their matrix attachments, and evolves their size, tension and myosin state.
package adhesion

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"adhesim/internal/integrin"
	"adhesim/internal/interaction"
	"adhesim/internal/model"
	"adhesim/internal/myosin"
)

var (
	// ErrNotFound reports a snapshot that references a missing particle or type.
	ErrNotFound = errors.New("not found in boundary snapshot")
	// ErrCorrupt reports an adhesion stored in the wrong pixel bucket.
	ErrCorrupt = errors.New("adhesion index corrupt")
	// ErrOnMedium reports an adhesion on a pixel not owned by any cell.
	ErrOnMedium = errors.New("adhesion outside of cells")
)

// SpinField maps a pixel to the id of the cell owning it; 0 is the medium.
type SpinField interface {
	Spin(p model.Pixel) int
}

// ActinField gives the actin level at a pixel, 0 if unset.
type ActinField interface {
	Value(p model.Pixel) float64
}

type Config struct {
	N0            float64
	DefaultMyosin float64
	MaxActin      float64
	Integrin      integrin.Params
	Myosin        myosin.Params
}

// Index holds the adhesions per pixel. It is a cache of the matrix state:
// positions chosen here survive rebuilds, attachments do not.
type Index struct {
	cfg        Config
	integrator *integrin.Integrator
	logger     *slog.Logger

	byPixel map[model.Pixel][]Record
	tracker *interaction.Tracker
	version uint64
}

func NewIndex(cfg Config, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{
		cfg:        cfg,
		integrator: integrin.New(cfg.Integrin, logger),
		logger:     logger,
		byPixel:    make(map[model.Pixel][]Record),
		tracker:    interaction.NewTracker(),
	}
}

// Version counts successful rebuilds. Attachments cached in records are only
// valid for the snapshot of the current version.
func (ix *Index) Version() uint64 {
	return ix.version
}

type savedState struct {
	position model.Position
	size     float64
	myosin   float64
}

// Rebuild re-derives the index from a boundary snapshot. Known adhesions keep
// their position, size and myosin; new ones take the snapshot position and
// the configured defaults. On error the index is left unchanged.
func (ix *Index) Rebuild(s model.BoundarySnapshot) error {
	saved := make(map[model.ParticleID]savedState)
	for _, records := range ix.byPixel {
		for _, rec := range records {
			saved[rec.ID] = savedState{position: rec.Position, size: rec.Size, myosin: rec.Myosin}
		}
	}

	bondsFor, err := bondIndex(s)
	if err != nil {
		return err
	}
	anglesFor, err := angleConstraintIndex(s)
	if err != nil {
		return err
	}

	version := ix.version + 1
	byPixel := make(map[model.Pixel][]Record)
	created := 0
	for _, pid := range s.ParticleIDs() {
		particle := s.Particles[pid]
		if particle.Type != model.ParticleAdhesion {
			continue
		}

		rec := Record{
			ID:              pid,
			Position:        particle.Position,
			Size:            ix.cfg.N0,
			Myosin:          ix.cfg.DefaultMyosin,
			SnapshotVersion: version,
		}
		if st, ok := saved[pid]; ok {
			rec.Position = st.position
			rec.Size = st.size
			rec.Myosin = st.myosin
		} else {
			created++
		}

		for _, bid := range bondsFor[pid] {
			bond := s.Bonds[bid]
			other := bond.P1
			if bond.P1 == pid {
				other = bond.P2
			}
			neighbor, err := particleAt(s, other)
			if err != nil {
				return fmt.Errorf("bond %d: %w", bid, err)
			}
			bt, ok := s.BondTypes[bond.Type]
			if !ok {
				return fmt.Errorf("bond %d: bond type %d: %w", bid, bond.Type, ErrNotFound)
			}
			rec.Bonds = append(rec.Bonds, AttachedBond{Neighbor: neighbor.Position, Type: bt})
		}

		for _, aid := range anglesFor[pid] {
			cst := s.AngleConstraints[aid]
			middle, err := particleAt(s, cst.P2)
			if err != nil {
				return fmt.Errorf("angle constraint %d: %w", aid, err)
			}
			farID := cst.P1
			if cst.P1 == pid {
				farID = cst.P3
			}
			far, err := particleAt(s, farID)
			if err != nil {
				return fmt.Errorf("angle constraint %d: %w", aid, err)
			}
			at, ok := s.AngleConstraintTypes[cst.Type]
			if !ok {
				return fmt.Errorf("angle constraint %d: type %d: %w", aid, cst.Type, ErrNotFound)
			}
			rec.AngleConstraints = append(rec.AngleConstraints, AttachedAngleConstraint{
				Middle: middle.Position,
				Far:    far.Position,
				Type:   at,
			})
		}

		pixel := rec.Position.Pixel()
		byPixel[pixel] = append(byPixel[pixel], rec)
	}

	ix.byPixel = byPixel
	ix.version = version
	ix.logger.Debug("adhesion index rebuilt",
		"version", version,
		"pixels", len(byPixel),
		"adhesions", ix.Len(),
		"created", created,
	)
	return nil
}

func particleAt(s model.BoundarySnapshot, id model.ParticleID) (model.Particle, error) {
	p, ok := s.Particles[id]
	if !ok {
		return model.Particle{}, fmt.Errorf("particle %d: %w", id, ErrNotFound)
	}
	return p, nil
}

// bondIndex maps adhesion particles to their bonds. A bond counts for an
// adhesion unless the other end is excluded.
func bondIndex(s model.BoundarySnapshot) (map[model.ParticleID][]model.BondID, error) {
	out := make(map[model.ParticleID][]model.BondID)
	for _, bid := range slices.Sorted(maps.Keys(s.Bonds)) {
		bond := s.Bonds[bid]
		p1, err := particleAt(s, bond.P1)
		if err != nil {
			return nil, fmt.Errorf("bond %d: %w", bid, err)
		}
		p2, err := particleAt(s, bond.P2)
		if err != nil {
			return nil, fmt.Errorf("bond %d: %w", bid, err)
		}

		if p1.Type == model.ParticleAdhesion && p2.Type != model.ParticleExcluded {
			out[bond.P1] = append(out[bond.P1], bid)
		}
		if p2.Type == model.ParticleAdhesion && p1.Type != model.ParticleExcluded {
			out[bond.P2] = append(out[bond.P2], bid)
		}
	}
	return out, nil
}

// angleConstraintIndex maps adhesion particles to the angle constraints they
// end. A constraint counts unless the far end is an adhesion as well;
// excluded far ends are kept.
func angleConstraintIndex(s model.BoundarySnapshot) (map[model.ParticleID][]model.AngleConstraintID, error) {
	out := make(map[model.ParticleID][]model.AngleConstraintID)
	for _, aid := range slices.Sorted(maps.Keys(s.AngleConstraints)) {
		cst := s.AngleConstraints[aid]
		p1, err := particleAt(s, cst.P1)
		if err != nil {
			return nil, fmt.Errorf("angle constraint %d: %w", aid, err)
		}
		p3, err := particleAt(s, cst.P3)
		if err != nil {
			return nil, fmt.Errorf("angle constraint %d: %w", aid, err)
		}

		p1Adhesion := p1.Type == model.ParticleAdhesion
		p3Adhesion := p3.Type == model.ParticleAdhesion
		if p1Adhesion && !p3Adhesion {
			out[cst.P1] = append(out[cst.P1], aid)
		}
		if p3Adhesion && !p1Adhesion {
			out[cst.P3] = append(out[cst.P3], aid)
		}
	}
	return out, nil
}

// Adhesions returns the adhesions at p. The slice is owned by the index and
// is invalidated by any mutating call.
func (ix *Index) Adhesions(p model.Pixel) []Record {
	return ix.byPixel[p]
}

// Pixels returns the pixels holding adhesions, sorted.
func (ix *Index) Pixels() []model.Pixel {
	pixels := make([]model.Pixel, 0, len(ix.byPixel))
	for p, records := range ix.byPixel {
		if len(records) > 0 {
			pixels = append(pixels, p)
		}
	}
	slices.SortFunc(pixels, model.ComparePixels)
	return pixels
}

// All returns a deep copy of the index contents.
func (ix *Index) All() map[model.Pixel][]Record {
	out := make(map[model.Pixel][]Record, len(ix.byPixel))
	for p, records := range ix.byPixel {
		copied := make([]Record, len(records))
		for i, rec := range records {
			copied[i] = rec.clone()
		}
		out[p] = copied
	}
	return out
}

// Records returns copies of all adhesions in pixel order.
func (ix *Index) Records() []Record {
	var out []Record
	for _, p := range ix.Pixels() {
		for _, rec := range ix.byPixel[p] {
			out = append(out, rec.clone())
		}
	}
	return out
}

// Len is the number of adhesions in the index.
func (ix *Index) Len() int {
	n := 0
	for _, records := range ix.byPixel {
		n += len(records)
	}
	return n
}

// MoveAdhesions shifts every adhesion at `from` by the offset to `to`.
func (ix *Index) MoveAdhesions(from, to model.Pixel) {
	if from == to {
		return
	}
	records, ok := ix.byPixel[from]
	if !ok {
		return
	}
	offset := to.Sub(from).Vec()
	for _, rec := range records {
		rec.Position = rec.Position.Add(offset)
		ix.tracker.RecordMove(rec.ID, rec.Position)
		ix.byPixel[to] = append(ix.byPixel[to], rec)
	}
	delete(ix.byPixel, from)
}

// MoveAdhesion moves adhesion id from pixel `from` into the pixel containing
// `to`, keeping its offset within the pixel. It reports whether the adhesion
// was found at `from`.
func (ix *Index) MoveAdhesion(id model.ParticleID, from model.Pixel, to model.Position) bool {
	records := ix.byPixel[from]
	i := slices.IndexFunc(records, func(r Record) bool { return r.ID == id })
	if i < 0 {
		return false
	}
	target := to.Pixel()
	if target == from {
		return true
	}

	rec := records[i]
	rec.Position = rec.Position.Add(target.Sub(from).Vec())
	ix.tracker.RecordMove(rec.ID, rec.Position)

	remaining := slices.Delete(records, i, i+1)
	if len(remaining) == 0 {
		delete(ix.byPixel, from)
	} else {
		ix.byPixel[from] = remaining
	}
	ix.byPixel[target] = append(ix.byPixel[target], rec)
	return true
}

// RemoveAdhesions drops every adhesion at p and records the removals.
func (ix *Index) RemoveAdhesions(p model.Pixel) {
	for _, rec := range ix.byPixel[p] {
		ix.tracker.RecordRemove(rec.ID)
	}
	delete(ix.byPixel, p)
}

// RemoveAdhesion records the removal of id for the matrix owner. The cached
// record stays until the next rebuild.
func (ix *Index) RemoveAdhesion(id model.ParticleID) {
	ix.tracker.RecordRemove(id)
}

// SetMyosin integrates the myosin fraction of every adhesion using the actin
// level of its pixel relative to MaxActin.
func (ix *Index) SetMyosin(field ActinField) {
	p := ix.cfg.Myosin
	for pixel, records := range ix.byPixel {
		activity := field.Value(pixel) / ix.cfg.MaxActin
		for i := range records {
			records[i].Myosin = myosin.Integrate(activity, records[i].Myosin, p)
		}
	}
}

// SetForceOnAdhesions sets the tension of every adhesion to the magnitude of
// the attachment force one unit step towards its cell's centroid.
// Adhesions on pixels without a known centroid get zero tension.
func (ix *Index) SetForceOnAdhesions(centroids map[int]model.Position, spins SpinField) {
	for pixel, records := range ix.byPixel {
		spin := spins.Spin(pixel)
		center, ok := centroids[spin]
		if !ok {
			ix.logger.Debug("no centroid for adhesion pixel", "pixel", pixel, "spin", spin)
			for i := range records {
				records[i].Tension = 0
			}
			continue
		}
		for i := range records {
			rec := &records[i]
			step := center.Sub(rec.Position).Unit()
			rec.Tension = rec.Force(rec.Position.Add(step)).Length()
		}
	}
}

// SetSizeOnAdhesions advances the integrin count of every adhesion under its
// current tension.
func (ix *Index) SetSizeOnAdhesions() {
	for _, records := range ix.byPixel {
		for i := range records {
			records[i].Size = ix.integrator.Integrate(records[i].Tension, records[i].Size)
		}
	}
}

// Interactions returns the changes recorded since the last reset.
func (ix *Index) Interactions() model.Interactions {
	return ix.tracker.Changes()
}

func (ix *Index) ResetInteractions() {
	ix.tracker.Reset()
}

// FlushInteractions returns the recorded changes and resets the tracker.
func (ix *Index) FlushInteractions() model.Interactions {
	return ix.tracker.Flush()
}

// Validate checks that every adhesion sits in the bucket of its own pixel and
// that the pixel belongs to a cell.
func (ix *Index) Validate(spins SpinField) error {
	var errs []error
	for _, pixel := range ix.Pixels() {
		for _, rec := range ix.byPixel[pixel] {
			if rec.Position.Pixel() != pixel {
				errs = append(errs, fmt.Errorf("adhesion %d at %v stored in %v: %w", rec.ID, rec.Position, pixel, ErrCorrupt))
			}
			if spins != nil && spins.Spin(pixel) == 0 {
				errs = append(errs, fmt.Errorf("adhesion %d at %v: %w", rec.ID, pixel, ErrOnMedium))
			}
		}
	}
	return errors.Join(errs...)
}
