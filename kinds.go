package odb

import (
	"github.com/go-odb/odb/event"
	"github.com/go-odb/odb/model"
	"github.com/go-odb/odb/oid"
	"github.com/go-odb/odb/repo"
)

// The kind configurations wiring each entity type into the generic engine.
// Adding a new top-level entity means a new table in repo.Tables and one
// more of these.

func programKind() repo.Kind[model.Program, oid.Program] {
	return repo.Kind[model.Program, oid.Program]{ //nolint:exhaustruct // Equal defaults to DeepEqual
		Name:   "program",
		Table:  func(t *repo.Tables) map[oid.Program]model.Program { return t.Programs },
		LastID: func(t *repo.Tables) *oid.Program { return &t.LastProgramID },
		NextID: oid.Program.Next,
		Less:   oid.Program.Less,
		ID:     func(p model.Program) oid.Program { return p.ID },
		WithID: func(p model.Program, id oid.Program) model.Program {
			p.ID = id

			return p
		},
		Existence: func(p model.Program) model.Existence { return p.Existence },
		WithExistence: func(p model.Program, e model.Existence) model.Program {
			p.Existence = e

			return p
		},
		Event: event.Factory[model.Program]("program"),
	}
}

func observationKind() repo.Kind[model.Observation, oid.Observation] {
	return repo.Kind[model.Observation, oid.Observation]{ //nolint:exhaustruct // Equal defaults to DeepEqual
		Name:   "observation",
		Table:  func(t *repo.Tables) map[oid.Observation]model.Observation { return t.Observations },
		LastID: func(t *repo.Tables) *oid.Observation { return &t.LastObservationID },
		NextID: oid.Observation.Next,
		Less:   oid.Observation.Less,
		ID:     func(o model.Observation) oid.Observation { return o.ID },
		WithID: func(o model.Observation, id oid.Observation) model.Observation {
			o.ID = id

			return o
		},
		Existence: func(o model.Observation) model.Existence { return o.Existence },
		WithExistence: func(o model.Observation, e model.Existence) model.Observation {
			o.Existence = e

			return o
		},
		Event: event.Factory[model.Observation]("observation"),
	}
}

func targetKind() repo.Kind[model.Target, oid.Target] {
	return repo.Kind[model.Target, oid.Target]{ //nolint:exhaustruct // Equal defaults to DeepEqual
		Name:   "target",
		Table:  func(t *repo.Tables) map[oid.Target]model.Target { return t.Targets },
		LastID: func(t *repo.Tables) *oid.Target { return &t.LastTargetID },
		NextID: oid.Target.Next,
		Less:   oid.Target.Less,
		ID:     func(tg model.Target) oid.Target { return tg.ID },
		WithID: func(tg model.Target, id oid.Target) model.Target {
			tg.ID = id

			return tg
		},
		Existence: func(tg model.Target) model.Existence { return tg.Existence },
		WithExistence: func(tg model.Target, e model.Existence) model.Target {
			tg.Existence = e

			return tg
		},
		Event: event.Factory[model.Target]("target"),
	}
}

func asterismKind() repo.Kind[model.Asterism, oid.Asterism] {
	return repo.Kind[model.Asterism, oid.Asterism]{ //nolint:exhaustruct // Equal defaults to DeepEqual
		Name:   "asterism",
		Table:  func(t *repo.Tables) map[oid.Asterism]model.Asterism { return t.Asterisms },
		LastID: func(t *repo.Tables) *oid.Asterism { return &t.LastAsterismID },
		NextID: oid.Asterism.Next,
		Less:   oid.Asterism.Less,
		ID:     func(a model.Asterism) oid.Asterism { return a.ID },
		WithID: func(a model.Asterism, id oid.Asterism) model.Asterism {
			a.ID = id

			return a
		},
		Existence: func(a model.Asterism) model.Existence { return a.Existence },
		WithExistence: func(a model.Asterism, e model.Existence) model.Asterism {
			a.Existence = e

			return a
		},
		Event: event.Factory[model.Asterism]("asterism"),
	}
}

// SiderealNarrowing narrows a target to its sidereal tracking, for edits
// that only make sense on sidereal targets.
func SiderealNarrowing() repo.Narrowing[model.Target, model.Sidereal] {
	return repo.Narrowing[model.Target, model.Sidereal]{
		Name: "sidereal target",
		Narrow: func(t model.Target) (model.Sidereal, bool) {
			return t.Sidereal()
		},
		Widen: func(t model.Target, s model.Sidereal) model.Target {
			t.Tracking = s

			return t
		},
	}
}

// NonsiderealNarrowing narrows a target to its nonsidereal tracking.
func NonsiderealNarrowing() repo.Narrowing[model.Target, model.Nonsidereal] {
	return repo.Narrowing[model.Target, model.Nonsidereal]{
		Name: "nonsidereal target",
		Narrow: func(t model.Target) (model.Nonsidereal, bool) {
			return t.Nonsidereal()
		},
		Widen: func(t model.Target, n model.Nonsidereal) model.Target {
			t.Tracking = n

			return t
		},
	}
}
