package repo

import (
	"maps"

	"github.com/go-odb/odb/model"
	"github.com/go-odb/odb/oid"
)

// Tables is the single root aggregate: one map per entity kind, the last
// issued id per kind, and the many-to-many link tables. A *Tables value is
// treated as immutable once installed as the current snapshot; all writes go
// through DB.Modify, which hands the transition a private clone.
type Tables struct {
	Programs      map[oid.Program]model.Program
	LastProgramID oid.Program

	Observations      map[oid.Observation]model.Observation
	LastObservationID oid.Observation

	Targets      map[oid.Target]model.Target
	LastTargetID oid.Target

	Asterisms      map[oid.Asterism]model.Asterism
	LastAsterismID oid.Asterism

	// AsterismTargets links the targets an asterism consists of.
	AsterismTargets ManyToMany[oid.Asterism, oid.Target]

	// ProgramTargets links the targets shared with a program.
	ProgramTargets ManyToMany[oid.Program, oid.Target]
}

// NewTables returns an empty aggregate.
func NewTables() *Tables {
	return &Tables{
		Programs:          map[oid.Program]model.Program{},
		LastProgramID:     oid.Program{},
		Observations:      map[oid.Observation]model.Observation{},
		LastObservationID: oid.Observation{},
		Targets:           map[oid.Target]model.Target{},
		LastTargetID:      oid.Target{},
		Asterisms:         map[oid.Asterism]model.Asterism{},
		LastAsterismID:    oid.Asterism{},
		AsterismTargets:   NewManyToMany[oid.Asterism, oid.Target](),
		ProgramTargets:    NewManyToMany[oid.Program, oid.Target](),
	}
}

// clone copies every table, so a transition can mutate the copy freely
// without the current snapshot ever exposing a partial state.
func (t *Tables) clone() *Tables {
	n := *t

	n.Programs = maps.Clone(t.Programs)
	n.Observations = maps.Clone(t.Observations)
	n.Targets = maps.Clone(t.Targets)
	n.Asterisms = maps.Clone(t.Asterisms)
	n.AsterismTargets = t.AsterismTargets.clone()
	n.ProgramTargets = t.ProgramTargets.clone()

	return &n
}
