package repo_test

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/go-odb/odb/event"
	"github.com/go-odb/odb/model"
	"github.com/go-odb/odb/oid"
	"github.com/go-odb/odb/repo"
	"github.com/go-odb/odb/repo/testdata"
)

func TestRepository_Edit(t *testing.T) {
	t.Parallel()

	t.Run("success publishes old and new value", func(t *testing.T) {
		t.Parallel()

		db := repo.NewDB()
		programs := repo.NewRepository(db, programKind())

		created, err := programs.Create(ctx, testdata.Constant(testdata.RandomProgram()))
		require.NoError(t, err)

		sub, cancel := db.Bus().Subscribe()
		defer cancel()

		edited, err := programs.Edit(ctx, created.ID, func(p model.Program) (model.Program, error) {
			p.Name = "renamed"

			return p, nil
		})
		require.NoError(t, err)
		assert.Equal(t, "renamed", edited.Name)

		got, ok := programs.Find(ctx, created.ID, false)
		assert.True(t, ok)
		assert.Equal(t, edited, got)

		events := drain(sub)
		require.Len(t, events, 1)
		change, ok := events[0].(event.Change[model.Program])
		require.True(t, ok)
		assert.Equal(t, event.Updated, change.Edit)
		assert.Equal(t, created, change.Old)
		assert.Equal(t, edited, change.New)
	})

	t.Run("no-op edit publishes nothing", func(t *testing.T) {
		t.Parallel()

		db := repo.NewDB()
		programs := repo.NewRepository(db, programKind())

		created, err := programs.Create(ctx, testdata.Constant(testdata.RandomProgram()))
		require.NoError(t, err)

		sub, cancel := db.Bus().Subscribe()
		defer cancel()

		before := db.Snapshot()

		edited, err := programs.Edit(ctx, created.ID, func(p model.Program) (model.Program, error) {
			return p, nil
		})
		require.NoError(t, err)
		assert.Equal(t, created, edited, "the unchanged value is returned")

		assert.Same(t, before, db.Snapshot(), "no commit for a no-op edit")
		assert.Empty(t, drain(sub))
	})

	t.Run("missing id and failing checks accumulate", func(t *testing.T) {
		t.Parallel()

		db := repo.NewDB()
		programs := repo.NewRepository(db, programKind())
		sub, cancel := db.Bus().Subscribe()
		defer cancel()

		_, err := programs.Edit(ctx, oid.Program{Index: 9}, func(p model.Program) (model.Program, error) {
			return p, nil
		}, func(_ *repo.Tables) error {
			return errors.New("quota exceeded") //nolint:err113 // test input
		})

		assert.ErrorIs(t, err, repo.ErrMissingReference)
		assert.ErrorIs(t, err, repo.ErrCheckFailed, "both failures reported in one round trip")
		assert.Empty(t, drain(sub))
	})

	t.Run("rejecting editor leaves the snapshot untouched", func(t *testing.T) {
		t.Parallel()

		db := repo.NewDB()
		programs := repo.NewRepository(db, programKind())

		created, err := programs.Create(ctx, testdata.Constant(testdata.RandomProgram()))
		require.NoError(t, err)

		_, err = programs.Edit(ctx, created.ID, func(model.Program) (model.Program, error) {
			return model.Program{}, errors.New("not allowed") //nolint:err113 // test input
		})
		assert.ErrorIs(t, err, repo.ErrValidationFailed)

		got, ok := programs.Find(ctx, created.ID, false)
		assert.True(t, ok)
		assert.Equal(t, created, got)
	})

	t.Run("lost updates do not happen", func(t *testing.T) {
		t.Parallel()

		const workers = 64

		db := repo.NewDB()
		programs := repo.NewRepository(db, programKind())

		p := testdata.RandomProgram()
		p.Name = ""
		created, err := programs.Create(ctx, testdata.Constant(p))
		require.NoError(t, err)

		var group errgroup.Group

		for i := 0; i < workers; i++ {
			group.Go(func() error {
				_, err := programs.Edit(ctx, created.ID, func(p model.Program) (model.Program, error) {
					p.Name += "x" // pure increment-like transition, recomputed on retry

					return p, nil
				})

				return err
			})
		}

		require.NoError(t, group.Wait())

		got, ok := programs.Find(ctx, created.ID, false)
		assert.True(t, ok)
		assert.Len(t, got.Name, workers, "every edit applied exactly once")
	})

	t.Run("concurrent ids are unique", func(t *testing.T) {
		t.Parallel()

		const workers = 64

		db := repo.NewDB()
		programs := repo.NewRepository(db, programKind())

		ids := make([]oid.Program, workers)

		var group errgroup.Group

		for i := 0; i < workers; i++ {
			i := i
			group.Go(func() error {
				id, err := programs.NextID(ctx)
				ids[i] = id

				return err
			})
		}

		require.NoError(t, group.Wait())

		seen := map[oid.Program]bool{}
		for _, id := range ids {
			assert.False(t, seen[id], "id "+id.String()+" issued twice")
			seen[id] = true
		}
	})
}

func TestEditSub(t *testing.T) {
	t.Parallel()

	siderealNarrowing := repo.Narrowing[model.Target, model.Sidereal]{
		Name:   "sidereal target",
		Narrow: model.Target.Sidereal,
		Widen: func(tg model.Target, s model.Sidereal) model.Target {
			tg.Tracking = s

			return tg
		},
	}

	t.Run("edits the matching variant", func(t *testing.T) {
		t.Parallel()

		db := repo.NewDB()
		targets := repo.NewRepository(db, targetKind())

		created, err := targets.Create(ctx, testdata.Constant(testdata.RandomSiderealTarget()))
		require.NoError(t, err)

		edited, err := repo.EditSub(ctx, targets, created.ID, siderealNarrowing,
			func(s model.Sidereal) (model.Sidereal, error) {
				s.RA = 180

				return s, nil
			})
		require.NoError(t, err)

		sidereal, ok := edited.Sidereal()
		require.True(t, ok)
		assert.InDelta(t, 180.0, sidereal.RA, 0)
	})

	t.Run("mismatching variant never mutates", func(t *testing.T) {
		t.Parallel()

		db := repo.NewDB()
		targets := repo.NewRepository(db, targetKind())
		sub, cancel := db.Bus().Subscribe()
		defer cancel()

		created, err := targets.Create(ctx, testdata.Constant(testdata.RandomNonsiderealTarget()))
		require.NoError(t, err)
		drain(sub)

		before := db.Snapshot()

		_, err = repo.EditSub(ctx, targets, created.ID, siderealNarrowing,
			func(s model.Sidereal) (model.Sidereal, error) {
				s.RA = 180

				return s, nil
			})
		assert.ErrorIs(t, err, repo.ErrTypeMismatch)

		assert.Same(t, before, db.Snapshot())
		assert.Empty(t, drain(sub))
	})
}

func TestRepository_Delete(t *testing.T) {
	t.Parallel()

	t.Run("delete is idempotent", func(t *testing.T) {
		t.Parallel()

		db := repo.NewDB()
		programs := repo.NewRepository(db, programKind())

		created, err := programs.Create(ctx, testdata.Constant(testdata.RandomProgram()))
		require.NoError(t, err)

		sub, cancel := db.Bus().Subscribe()
		defer cancel()

		deleted, err := programs.Delete(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, model.Deleted, deleted.Existence)

		before := db.Snapshot()

		again, err := programs.Delete(ctx, created.ID)
		require.NoError(t, err, "deleting twice is a no-op, not an error")
		assert.Equal(t, deleted, again)
		assert.Same(t, before, db.Snapshot(), "no commit for the redundant delete")

		assert.Len(t, drain(sub), 1, "at most one event for repeated deletes")
		assert.Equal(t, 1, programs.Count(ctx), "rows are never removed")
	})

	t.Run("undelete restores the entity", func(t *testing.T) {
		t.Parallel()

		db := repo.NewDB()
		programs := repo.NewRepository(db, programKind())

		created, err := programs.Create(ctx, testdata.Constant(testdata.RandomProgram()))
		require.NoError(t, err)

		_, err = programs.Delete(ctx, created.ID)
		require.NoError(t, err)

		restored, err := programs.Undelete(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, model.Present, restored.Existence)

		got, ok := programs.Find(ctx, created.ID, false)
		assert.True(t, ok)
		assert.Equal(t, restored, got)
	})
}

func TestDB_Modify(t *testing.T) {
	t.Parallel()

	t.Run("no partial state on error", func(t *testing.T) {
		t.Parallel()

		db := repo.NewDB()
		before := db.Snapshot()

		err := db.Modify(ctx, "test.op", func(t *repo.Tables) ([]event.Builder, error) {
			t.Programs[oid.Program{Index: 1}] = model.Program{
				ID:        oid.Program{Index: 1},
				Existence: model.Present,
				Name:      "never visible",
			}

			return nil, errors.New("abort") //nolint:err113 // test input
		})
		require.Error(t, err)

		assert.Same(t, before, db.Snapshot())
		assert.Empty(t, db.Snapshot().Programs)
	})

	t.Run("serialises concurrent transitions", func(t *testing.T) {
		t.Parallel()

		const workers = 32

		db := repo.NewDB()

		var group errgroup.Group

		for i := 0; i < workers; i++ {
			i := i
			group.Go(func() error {
				return db.Modify(ctx, "test.op", func(t *repo.Tables) ([]event.Builder, error) {
					id := oid.Program{Index: uint32(i) + 1} //nolint:gosec // small test range
					t.Programs[id] = model.Program{ID: id, Existence: model.Present, Name: strconv.Itoa(i)}

					return nil, nil
				})
			})
		}

		require.NoError(t, group.Wait())
		assert.Len(t, db.Snapshot().Programs, workers)
	})
}
