// Package interaction accumulates the adhesion changes made on the lattice
// side until the matrix owner collects them.
package interaction

import (
	"maps"
	"slices"

	"adhesim/internal/model"
)

// Tracker is a write-ahead log of adhesion moves and removals. Reading the
// changes does not clear them; Reset or Flush does.
type Tracker struct {
	moves    map[model.ParticleID]model.Position
	removals map[model.ParticleID]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{
		moves:    make(map[model.ParticleID]model.Position),
		removals: make(map[model.ParticleID]struct{}),
	}
}

// RecordMove records that id now sits at pos. Later moves of the same id
// overwrite earlier ones.
func (t *Tracker) RecordMove(id model.ParticleID, pos model.Position) {
	t.moves[id] = pos
}

// RecordRemove records that id was destroyed. A pending move of id is dropped.
func (t *Tracker) RecordRemove(id model.ParticleID) {
	delete(t.moves, id)
	t.removals[id] = struct{}{}
}

// Changes returns a copy of the accumulated diff. Removals are sorted by id.
func (t *Tracker) Changes() model.Interactions {
	return model.Interactions{
		Moves:    maps.Clone(t.moves),
		Removals: slices.Sorted(maps.Keys(t.removals)),
	}
}

// Reset discards the accumulated diff.
func (t *Tracker) Reset() {
	clear(t.moves)
	clear(t.removals)
}

// Flush returns the accumulated diff and resets the tracker.
func (t *Tracker) Flush() model.Interactions {
	changes := t.Changes()
	t.Reset()
	return changes
}

// Len is the number of pending moves plus removals.
func (t *Tracker) Len() int {
	return len(t.moves) + len(t.removals)
}
