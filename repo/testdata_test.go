package repo_test

import (
	"context"

	"github.com/go-odb/odb/event"
	"github.com/go-odb/odb/model"
	"github.com/go-odb/odb/oid"
	"github.com/go-odb/odb/repo"
)

var ctx = context.Background()

// The kind wirings used by the engine tests. Deliberately local copies, so
// the generic machinery is tested through its public extension point.

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

// drain empties a subscriber queue without blocking. Publication happens
// synchronously before an operation returns, so whatever an operation
// emitted is already queued.
func drain(ch <-chan event.Envelope) []event.Envelope {
	events := []event.Envelope{}

	for {
		select {
		case env := <-ch:
			events = append(events, env)
		default:
			return events
		}
	}
}
