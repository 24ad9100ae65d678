// Package repo is the generic, optimistically-concurrent engine beneath the
// store: one shared snapshot of all entity tables, mutated exclusively
// through an atomic compare-and-swap cycle, with change events published to
// subscribers after each successful commit.
package repo

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/go-odb/odb/event"
	"github.com/go-odb/odb/model"
)

// Kind is the per-entity-kind configuration the generic engine runs on:
// which map inside Tables, which id counter, how ids advance and order, how
// existence is read and written, and how change events are built. One Kind
// value is wired per entity kind; everything else is generic.
type Kind[E any, I comparable] struct {
	Name string

	// Table returns this kind's map inside the given snapshot.
	Table func(*Tables) map[I]E

	// LastID returns the last-issued id counter inside the given snapshot.
	LastID func(*Tables) *I

	// NextID is the successor function of the bounded id domain; wrapping
	// past the maximum is defined behaviour, not a failure.
	NextID func(I) I

	// Less orders ids, used for stable listings.
	Less func(I, I) bool

	ID     func(E) I
	WithID func(E, I) E

	Existence     func(E) model.Existence
	WithExistence func(E, model.Existence) E

	// Equal detects no-op edits. Nil falls back to reflect.DeepEqual.
	Equal func(E, E) bool

	// Event builds the change event for this kind.
	Event func(event.EditType, E, E) event.Builder
}

func (k Kind[E, I]) equal(a, b E) bool {
	if k.Equal != nil {
		return k.Equal(a, b)
	}

	return reflect.DeepEqual(a, b)
}

// NewRepository wires one entity kind to the shared DB.
func NewRepository[E any, I comparable](db *DB, kind Kind[E, I]) *Repository[E, I] {
	return &Repository[E, I]{db: db, kind: kind}
}

// Repository exposes the generic operations over one entity kind. All writes
// run as a single atomic-modify cycle on the shared DB; all reads see one
// consistent snapshot.
type Repository[E any, I comparable] struct {
	db   *DB
	kind Kind[E, I]
}

// Kind returns the kind configuration this repository runs on.
func (r *Repository[E, I]) Kind() Kind[E, I] {
	return r.kind
}

// NextID advances the kind's id counter and returns the fresh id.
// It never fails; past the maximum the counter wraps around, so ids can be
// reused eventually. That reuse is accepted for a memory-resident store.
func (r *Repository[E, I]) NextID(ctx context.Context) (I, error) {
	var id I

	err := r.db.Modify(ctx, r.kind.Name+".nextid", func(t *Tables) ([]event.Builder, error) {
		last := r.kind.LastID(t)
		*last = r.kind.NextID(*last)
		id = *last

		return nil, nil
	})
	if err != nil {
		return id, err
	}

	return id, nil
}

// Constructor builds a new entity from the current snapshot. It may read
// other tables for validation and must accumulate all input problems into
// one error (errors.Join) instead of stopping at the first.
type Constructor[E any] func(*Tables) (E, error)

// Create validates and inserts a new entity under a freshly generated id,
// all inside one atomic cycle. On a validation failure the snapshot is left
// untouched and no event publishes. On success the created entity is
// returned and one Created event publishes after the commit.
func (r *Repository[E, I]) Create(ctx context.Context, construct Constructor[E]) (E, error) {
	var created E

	err := r.db.Modify(ctx, r.kind.Name+".create", func(t *Tables) ([]event.Builder, error) {
		e, err := construct(t)
		if err != nil {
			return nil, validationErr(err)
		}

		last := r.kind.LastID(t)
		*last = r.kind.NextID(*last)

		e = r.kind.WithID(e, *last)
		r.kind.Table(t)[*last] = e
		created = e

		var zero E

		return []event.Builder{r.kind.Event(event.Created, zero, e)}, nil
	})
	if err != nil {
		return *new(E), err
	}

	return created, nil
}

// CreateWith is Create under a caller-supplied id. The id counter is not
// consumed. Inserting under a taken id fails with ErrAlreadyExists.
func (r *Repository[E, I]) CreateWith(ctx context.Context, id I, construct Constructor[E]) (E, error) {
	var created E

	err := r.db.Modify(ctx, r.kind.Name+".create", func(t *Tables) ([]event.Builder, error) {
		if _, taken := r.kind.Table(t)[id]; taken {
			return nil, fmt.Errorf("%w: %s %v", ErrAlreadyExists, r.kind.Name, id)
		}

		e, err := construct(t)
		if err != nil {
			return nil, validationErr(err)
		}

		e = r.kind.WithID(e, id)
		r.kind.Table(t)[id] = e
		created = e

		var zero E

		return []event.Builder{r.kind.Event(event.Created, zero, e)}, nil
	})
	if err != nil {
		return *new(E), err
	}

	return created, nil
}

// Find returns the entity for id. Deleted entities are filtered out unless
// includeDeleted is set; absence is an empty result, not a failure.
func (r *Repository[E, I]) Find(ctx context.Context, id I, includeDeleted bool) (E, bool) {
	_, span := r.db.tracer.Start(ctx, r.kind.Name+".find")
	defer span.End()

	e, ok := r.kind.Table(r.db.Snapshot())[id]
	if !ok {
		return *new(E), false
	}

	if !includeDeleted && r.kind.Existence(e) == model.Deleted {
		return *new(E), false
	}

	return e, true
}

// Get is Find, but absence is an ErrMissingReference failure.
func (r *Repository[E, I]) Get(ctx context.Context, id I, includeDeleted bool) (E, error) {
	e, ok := r.Find(ctx, id, includeDeleted)
	if !ok {
		return *new(E), fmt.Errorf("%w: %s %v", ErrMissingReference, r.kind.Name, id)
	}

	return e, nil
}

// All returns all entities of the kind, ordered by id.
func (r *Repository[E, I]) All(ctx context.Context, includeDeleted bool) []E {
	return r.AllWhere(ctx, includeDeleted, nil)
}

// AllWhere returns all entities matching the predicate, ordered by id. The
// predicate also sees the whole snapshot, so it can filter against other
// tables, e.g. observations by owning program. The deletion filter applies
// after the predicate.
func (r *Repository[E, I]) AllWhere(ctx context.Context, includeDeleted bool, pred func(*Tables, E) bool) []E {
	_, span := r.db.tracer.Start(ctx, r.kind.Name+".all")
	defer span.End()

	t := r.db.Snapshot()
	table := r.kind.Table(t)

	matches := []E{}

	for _, e := range table {
		if pred != nil && !pred(t, e) {
			continue
		}

		if !includeDeleted && r.kind.Existence(e) == model.Deleted {
			continue
		}

		matches = append(matches, e)
	}

	slices.SortFunc(matches, func(a, b E) int {
		ida, idb := r.kind.ID(a), r.kind.ID(b)

		if r.kind.Less(ida, idb) {
			return -1
		} else if r.kind.Less(idb, ida) {
			return 1
		}

		return 0
	})

	return matches
}

// Count reports the number of entities of the kind, deleted ones included.
func (r *Repository[E, I]) Count(ctx context.Context) int {
	_, span := r.db.tracer.Start(ctx, r.kind.Name+".count")
	defer span.End()

	return len(r.kind.Table(r.db.Snapshot()))
}

// validationErr tags constructor and editor errors, unless they already
// carry a failure class of their own.
func validationErr(err error) error {
	if errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrMissingReference) ||
		errors.Is(err, ErrCheckFailed) ||
		errors.Is(err, ErrTypeMismatch) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrValidationFailed, err)
}
