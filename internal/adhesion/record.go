package adhesion

import (
	"adhesim/internal/model"
	"adhesim/internal/spring"
)

// AttachedBond is a bond seen from the adhesion it is attached to. The
// neighbour position is a copy taken at the last rebuild.
type AttachedBond struct {
	Neighbor model.Position
	Type     model.BondType
}

// MoveDH is the work needed to move the adhesion from `from` to `to`.
func (b AttachedBond) MoveDH(from, to model.Position) float64 {
	return spring.LinearEnergyDelta(b.Type.K, b.Type.R0, b.Neighbor, from, to)
}

// Force is the bond force on the adhesion when it sits at `at`.
func (b AttachedBond) Force(at model.Position) model.Force {
	return spring.LinearForce(b.Neighbor, at, b.Type.K, b.Type.R0)
}

// AttachedAngleConstraint is an angle constraint seen from the adhesion at
// one of its ends.
type AttachedAngleConstraint struct {
	Middle model.Position
	Far    model.Position
	Type   model.AngleConstraintType
}

func (a AttachedAngleConstraint) MoveDH(from, to model.Position) float64 {
	return spring.AngularEnergyDelta(a.Type.K, a.Type.Theta0, a.Middle, a.Far, from, to)
}

func (a AttachedAngleConstraint) Force(at model.Position) model.Force {
	return spring.AngularForceOnEndpoint(at, a.Middle, a.Far, a.Type.K, a.Type.Theta0)
}

// Record is an adhesion particle together with its matrix attachments.
type Record struct {
	ID       model.ParticleID
	Position model.Position

	// Size is the number of bound integrins, within [N0, Nt].
	Size float64
	// Tension is recomputed on every update.
	Tension float64
	// Myosin is the fraction of the cytoskeletal force applied by myosin.
	Myosin float64

	Bonds            []AttachedBond
	AngleConstraints []AttachedAngleConstraint

	// SnapshotVersion is the index version the attachments were resolved at.
	SnapshotVersion uint64
}

// MoveDH is the matrix work needed to displace the adhesion by d.
func (r Record) MoveDH(d model.Displacement) float64 {
	from := r.Position
	to := r.Position.Add(d.Vec())

	dh := 0.0
	for _, bond := range r.Bonds {
		dh += bond.MoveDH(from, to)
	}
	for _, cst := range r.AngleConstraints {
		dh += cst.MoveDH(from, to)
	}
	return dh
}

// Force is the summed attachment force on the adhesion if it sat at `at`.
func (r Record) Force(at model.Position) model.Force {
	var f model.Force
	for _, bond := range r.Bonds {
		f = f.Add(bond.Force(at))
	}
	for _, cst := range r.AngleConstraints {
		f = f.Add(cst.Force(at))
	}
	return f
}

// Pixel is the lattice site holding the adhesion.
func (r Record) Pixel() model.Pixel {
	return r.Position.Pixel()
}

func (r Record) clone() Record {
	out := r
	out.Bonds = append([]AttachedBond(nil), r.Bonds...)
	out.AngleConstraints = append([]AttachedAngleConstraint(nil), r.AngleConstraints...)
	return out
}
