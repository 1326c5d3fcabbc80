// Package actin holds the actin polymerisation level per lattice pixel and
// its contribution to copy-attempt energies.
package actin

import (
	"maps"
	"math"
	"slices"

	"adhesim/internal/model"
)

// Spins maps a pixel to the cell owning it.
type Spins interface {
	Spin(p model.Pixel) int
}

// Field stores the actin level of active pixels. Pixels without an entry have
// level zero.
type Field struct {
	values map[model.Pixel]float64
}

func NewField() *Field {
	return &Field{values: make(map[model.Pixel]float64)}
}

// Value returns the actin level at p, 0 if unset.
func (f *Field) Value(p model.Pixel) float64 {
	return f.values[p]
}

// Set assigns the level at p. Levels at or below zero remove the entry.
func (f *Field) Set(p model.Pixel, v float64) {
	if v <= 0 {
		delete(f.values, p)
		return
	}
	f.values[p] = v
}

// Increase adds v to the level at p. Negative v may leave a negative level.
func (f *Field) Increase(p model.Pixel, v float64) {
	f.values[p] += v
}

// Decrease lowers every level by one and drops pixels that reach zero.
func (f *Field) Decrease() {
	for p, v := range f.values {
		if v-1 <= 0 {
			delete(f.values, p)
			continue
		}
		f.values[p] = v - 1
	}
}

func (f *Field) Len() int {
	return len(f.values)
}

// Pixels returns the pixels with an actin entry, sorted.
func (f *Field) Pixels() []model.Pixel {
	return slices.SortedFunc(maps.Keys(f.values), model.ComparePixels)
}

// GeometricMean is the geometric mean of the actin levels of p and those of
// its Moore neighbours owned by the same cell as p.
func (f *Field) GeometricMean(spins Spins, p model.Pixel) float64 {
	spin := spins.Spin(p)
	logSum := math.Log(f.Value(p))
	n := 1
	for _, d := range model.MooreOffsets {
		q := p.Add(d)
		if spins.Spin(q) != spin {
			continue
		}
		logSum += math.Log(f.Value(q))
		n++
	}
	return math.Exp(logSum / float64(n))
}

// DeltaH is the energy discount for copying src into tgt:
// lambda/maxActin*(GM(src)-GM(tgt)). It is subtracted from the copy energy.
func (f *Field) DeltaH(spins Spins, src, tgt model.Pixel, lambda, maxActin float64) float64 {
	if lambda == 0 || maxActin <= 0 {
		return 0
	}
	return lambda / maxActin * (f.GeometricMean(spins, src) - f.GeometricMean(spins, tgt))
}

// CommitMove sets the actin level of tgt to maxActin if it now belongs to a
// cell.
func (f *Field) CommitMove(spins Spins, tgt model.Pixel, maxActin float64) {
	if spins.Spin(tgt) > 0 {
		f.Set(tgt, maxActin)
	}
}
