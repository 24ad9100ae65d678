// Package event carries the change notifications emitted by the store.
//
// Events are immutable values describing a single committed change. They are
// produced only after a successful commit and are never replayed; a missed
// event is gone.
package event

import (
	"github.com/oklog/ulid/v2"
)

// EditType says whether an entity came into existence or changed.
type EditType uint8

const (
	Created EditType = iota + 1
	Updated
)

func (e EditType) String() string {
	switch e {
	case Created:
		return "created"
	case Updated:
		return "updated"
	default:
		return "undefined"
	}
}

// Envelope is the kind-agnostic view of an event, used by the Bus and by
// subscribers that dispatch on entity kind before narrowing to a Change.
type Envelope interface {
	// Sequence is assigned monotonically at publish time.
	Sequence() uint64

	// Entity names the entity kind, e.g. "program".
	Entity() string

	// Type reports whether the entity was created or updated.
	Type() EditType
}

// Builder produces an Envelope once the Bus has assigned a sequence number.
type Builder func(seq uint64) Envelope

// Change is the concrete event for an entity of type E.
// Old is the zero value for Created events.
type Change[E any] struct {
	ID   ulid.ULID
	Seq  uint64
	Name string
	Edit EditType
	Old  E
	New  E
}

func (c Change[E]) Sequence() uint64 { return c.Seq }
func (c Change[E]) Entity() string   { return c.Name }
func (c Change[E]) Type() EditType   { return c.Edit }

// Factory returns the event constructor for one entity kind. The two-step
// shape exists because the sequence number is only known at publish time.
func Factory[E any](name string) func(EditType, E, E) Builder {
	return func(edit EditType, old, value E) Builder {
		return func(seq uint64) Envelope {
			return Change[E]{
				ID:   ulid.Make(),
				Seq:  seq,
				Name: name,
				Edit: edit,
				Old:  old,
				New:  value,
			}
		}
	}
}
