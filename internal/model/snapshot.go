package model

import (
	"maps"
	"slices"
)

type (
	ParticleID            int
	BondID                int
	AngleConstraintID     int
	BondTypeID            int
	AngleConstraintTypeID int
)

// ParticleType classifies matrix particles.
type ParticleType string

const (
	ParticleFree     ParticleType = "free"
	ParticleAdhesion ParticleType = "adhesion"
	ParticleExcluded ParticleType = "excluded"
	ParticleBoundary ParticleType = "boundary"
)

type Particle struct {
	Position Position     `json:"position"`
	Type     ParticleType `json:"type"`
}

// Bond is a linear spring between two particles.
type Bond struct {
	P1   ParticleID `json:"p1"`
	P2   ParticleID `json:"p2"`
	Type BondTypeID `json:"type"`
}

// AngleConstraint is a torsion spring over P1-P2-P3 with P2 in the middle.
type AngleConstraint struct {
	P1   ParticleID            `json:"p1"`
	P2   ParticleID            `json:"p2"`
	P3   ParticleID            `json:"p3"`
	Type AngleConstraintTypeID `json:"type"`
}

type BondType struct {
	K  float64 `json:"k"`
	R0 float64 `json:"r0"`
}

type AngleConstraintType struct {
	K      float64 `json:"k"`
	Theta0 float64 `json:"theta0"`
}

// BoundarySnapshot is the part of the matrix particle graph that the lattice
// side needs to price adhesion moves. Every id referenced by a bond or
// constraint must be present.
type BoundarySnapshot struct {
	Particles            map[ParticleID]Particle                       `json:"particles"`
	Bonds                map[BondID]Bond                               `json:"bonds"`
	AngleConstraints     map[AngleConstraintID]AngleConstraint         `json:"angle_constraints"`
	BondTypes            map[BondTypeID]BondType                       `json:"bond_types"`
	AngleConstraintTypes map[AngleConstraintTypeID]AngleConstraintType `json:"angle_constraint_types"`
}

// NewBoundarySnapshot returns an empty snapshot with all maps allocated.
func NewBoundarySnapshot() BoundarySnapshot {
	return BoundarySnapshot{
		Particles:            make(map[ParticleID]Particle),
		Bonds:                make(map[BondID]Bond),
		AngleConstraints:     make(map[AngleConstraintID]AngleConstraint),
		BondTypes:            make(map[BondTypeID]BondType),
		AngleConstraintTypes: make(map[AngleConstraintTypeID]AngleConstraintType),
	}
}

// Clone returns a deep copy.
func (s BoundarySnapshot) Clone() BoundarySnapshot {
	return BoundarySnapshot{
		Particles:            maps.Clone(s.Particles),
		Bonds:                maps.Clone(s.Bonds),
		AngleConstraints:     maps.Clone(s.AngleConstraints),
		BondTypes:            maps.Clone(s.BondTypes),
		AngleConstraintTypes: maps.Clone(s.AngleConstraintTypes),
	}
}

// ParticleIDs returns the particle ids in ascending order.
func (s BoundarySnapshot) ParticleIDs() []ParticleID {
	return slices.Sorted(maps.Keys(s.Particles))
}

// CountType returns the number of particles of the given type.
func (s BoundarySnapshot) CountType(t ParticleType) int {
	n := 0
	for _, p := range s.Particles {
		if p.Type == t {
			n++
		}
	}
	return n
}

// ChangeTypeInArea asks the matrix owner to convert up to Count particles of
// type From lying inside Area into type To. It is issued by the lattice
// engine, never by the adhesion index.
type ChangeTypeInArea struct {
	Area  []Pixel      `json:"area"`
	Count int          `json:"count"`
	From  ParticleType `json:"from"`
	To    ParticleType `json:"to"`
}

// Interactions is the diff sent from the lattice side to the matrix owner.
type Interactions struct {
	Moves            map[ParticleID]Position `json:"moves"`
	Removals         []ParticleID            `json:"removals"`
	ChangeTypeInArea *ChangeTypeInArea       `json:"change_type_in_area,omitempty"`
}

// Empty reports whether the diff carries no moves, removals or requests.
func (in Interactions) Empty() bool {
	return len(in.Moves) == 0 && len(in.Removals) == 0 && in.ChangeTypeInArea == nil
}
