package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-odb/odb/event"
)

// ShareInput names one owner and the set of entities to link it with.
type ShareInput[I, J comparable] struct {
	Owner I
	Many  []J
}

// LinkUpdate selects the direction of a share: add links or remove them.
type LinkUpdate uint8

const (
	Link LinkUpdate = iota + 1
	Unlink
)

// Share maintains a many-to-many relation between one owner and a set of
// entities, all inside one atomic cycle. The owner and every many-id are
// resolved first, accumulating every unresolved reference; if any fails to
// resolve, no link changes and no event publishes. Otherwise apply updates
// the link table pair by pair and, after the commit, one Updated event
// publishes for the owner followed by one for every many entity whose links
// actually changed, in input order. A share that changes nothing leaves the
// snapshot uncommitted and publishes no events, mirroring the edit no-op rule.
//
// resolve is caller-supplied and sees the whole snapshot, so a relation can
// resolve its members through other tables. apply reports whether the link
// table changed for the given many-id.
func Share[O, M any, I, J comparable](
	ctx context.Context,
	owner *Repository[O, I],
	many *Repository[M, J],
	resolve func(*Tables, J) (M, bool),
	apply func(*Tables, J) bool,
	in ShareInput[I, J],
) error {
	return owner.db.Modify(ctx, owner.kind.Name+".share", func(t *Tables) ([]event.Builder, error) {
		var errs []error

		o, found := owner.kind.Table(t)[in.Owner]
		if !found {
			errs = append(errs, fmt.Errorf("%w: %s %v", ErrMissingReference, owner.kind.Name, in.Owner))
		}

		resolved := make([]M, len(in.Many))

		for i, id := range in.Many {
			m, ok := resolve(t, id)
			if !ok {
				errs = append(errs, fmt.Errorf("%w: %s %v", ErrMissingReference, many.kind.Name, id))

				continue
			}

			resolved[i] = m
		}

		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}

		changed := []event.Builder{}

		for i, id := range in.Many {
			if apply(t, id) {
				changed = append(changed, many.kind.Event(event.Updated, resolved[i], resolved[i]))
			}
		}

		if len(changed) == 0 {
			return nil, errNoChange
		}

		events := make([]event.Builder, 0, len(changed)+1)
		events = append(events, owner.kind.Event(event.Updated, o, o))
		events = append(events, changed...)

		return events, nil
	})
}

// ShareLeft is Share over a link table whose left side holds the owner.
func ShareLeft[O, M any, I, J comparable](
	ctx context.Context,
	owner *Repository[O, I],
	many *Repository[M, J],
	link func(*Tables) *ManyToMany[I, J],
	in ShareInput[I, J],
	update LinkUpdate,
) error {
	return Share(ctx, owner, many,
		func(t *Tables, id J) (M, bool) {
			m, ok := many.kind.Table(t)[id]

			return m, ok
		},
		func(t *Tables, id J) bool {
			if update == Unlink {
				return link(t).Unlink(in.Owner, id)
			}

			return link(t).Link(in.Owner, id)
		},
		in,
	)
}

// ShareRight is Share over a link table whose right side holds the owner.
func ShareRight[O, M any, I, J comparable](
	ctx context.Context,
	owner *Repository[O, I],
	many *Repository[M, J],
	link func(*Tables) *ManyToMany[J, I],
	in ShareInput[I, J],
	update LinkUpdate,
) error {
	return Share(ctx, owner, many,
		func(t *Tables, id J) (M, bool) {
			m, ok := many.kind.Table(t)[id]

			return m, ok
		},
		func(t *Tables, id J) bool {
			if update == Unlink {
				return link(t).Unlink(id, in.Owner)
			}

			return link(t).Link(id, in.Owner)
		},
		in,
	)
}
