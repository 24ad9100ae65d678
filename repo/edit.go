package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-odb/odb/event"
	"github.com/go-odb/odb/model"
)

// Editor is a validated state transition over a single entity value.
// Returning an error rejects the edit; returning a value equal to the input
// makes the whole operation a no-op.
type Editor[E any] func(E) (E, error)

// Check is a whole-table consistency validation. Checks run against the
// same snapshot as the edit, so they can depend on other entities.
type Check func(*Tables) error

// Narrowing maps the general entity type E down to one of its variants U
// and back. Narrow reports whether the stored value matches the variant;
// Widen re-embeds the edited variant into the entity it came from.
type Narrowing[E, U any] struct {
	Name   string
	Narrow func(E) (U, bool)
	Widen  func(E, U) E
}

// Identity is the always-matching narrowing; Edit is EditSub through it.
func Identity[E any]() Narrowing[E, E] {
	return Narrowing[E, E]{
		Name:   "",
		Narrow: func(e E) (E, bool) { return e, true },
		Widen:  func(_, u E) E { return u },
	}
}

// Edit looks up the entity, validates, and applies the editor, all inside
// one atomic cycle:
//
//   - a missing id, a rejecting editor, and every failing check are
//     accumulated into one error; if any fail nothing changes and no event
//     publishes,
//   - if the edited value equals the stored one the snapshot stays
//     untouched, no event publishes, and the unchanged value is returned,
//   - otherwise the new value replaces the old, is returned, and one
//     Updated event publishes after the commit.
//
// Deleted entities are editable; that is how undelete works.
func (r *Repository[E, I]) Edit(ctx context.Context, id I, edit Editor[E], checks ...Check) (E, error) {
	return EditSub(ctx, r, id, Identity[E](), edit, checks...)
}

// EditSub is Edit through a subtype narrowing: the editor runs on the
// variant U instead of on E, and a stored value that does not match the
// variant fails with ErrTypeMismatch, accumulated like any other
// validation failure.
//
// A free function, as Go methods cannot introduce the type parameter U.
func EditSub[E any, I comparable, U any](
	ctx context.Context,
	r *Repository[E, I],
	id I,
	narrowing Narrowing[E, U],
	edit Editor[U],
	checks ...Check,
) (E, error) {
	var out E

	err := r.db.Modify(ctx, r.kind.Name+".edit", func(t *Tables) ([]event.Builder, error) {
		var errs []error

		old, found := r.kind.Table(t)[id]
		if !found {
			errs = append(errs, fmt.Errorf("%w: %s %v", ErrMissingReference, r.kind.Name, id))
		}

		for _, check := range checks {
			if err := check(t); err != nil {
				if !errors.Is(err, ErrCheckFailed) {
					err = fmt.Errorf("%w: %w", ErrCheckFailed, err)
				}

				errs = append(errs, err)
			}
		}

		var edited E

		if found {
			variant, matches := narrowing.Narrow(old)

			switch {
			case !matches:
				errs = append(errs, fmt.Errorf("%w: %s %v is no %s",
					ErrTypeMismatch, r.kind.Name, id, narrowing.Name))
			default:
				newVariant, err := edit(variant)
				if err != nil {
					errs = append(errs, validationErr(err))
				} else {
					edited = narrowing.Widen(old, newVariant)
				}
			}
		}

		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}

		if r.kind.equal(old, edited) {
			out = old

			return nil, errNoChange
		}

		r.kind.Table(t)[id] = edited
		out = edited

		return []event.Builder{r.kind.Event(event.Updated, old, edited)}, nil
	})
	if err != nil {
		return *new(E), err
	}

	return out, nil
}

// Delete flips the entity's existence to Deleted. The row stays in the
// table. Deleting an already deleted entity is a no-op, not an error, and
// publishes no event.
func (r *Repository[E, I]) Delete(ctx context.Context, id I) (E, error) {
	return r.Edit(ctx, id, r.existenceEditor(model.Deleted))
}

// Undelete flips the entity's existence back to Present, with the same
// no-op behaviour as Delete.
func (r *Repository[E, I]) Undelete(ctx context.Context, id I) (E, error) {
	return r.Edit(ctx, id, r.existenceEditor(model.Present))
}

func (r *Repository[E, I]) existenceEditor(existence model.Existence) Editor[E] {
	return func(e E) (E, error) {
		return r.kind.WithExistence(e, existence), nil
	}
}
