// Package odb is an in-memory, optimistically-concurrent store for the
// top-level entities of an observing database: programs, observations,
// targets, and asterisms.
//
// All entity tables live in one shared snapshot mutated exclusively through
// an atomic compare-and-swap cycle, every committed change is broadcast to
// subscribers, and deletion is always soft. The generic machinery is in the
// repo package; this package wires it to the concrete entity kinds and adds
// validated convenience operations on top.
package odb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-odb/odb/event"
	"github.com/go-odb/odb/model"
	"github.com/go-odb/odb/oid"
	"github.com/go-odb/odb/olog"
	"github.com/go-odb/odb/repo"
)

// Option configures an ODB.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	busBuffer int
	tables    *repo.Tables
	tp        trace.TracerProvider
	mp        metric.MeterProvider
}

// WithLogger sets the logger used by the engine and the bus.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithBusBuffer sets the per-subscriber event queue size.
func WithBusBuffer(size int) Option {
	return func(o *options) {
		o.busBuffer = size
	}
}

// WithTables pre-seeds the store instead of starting empty.
func WithTables(tables *repo.Tables) Option {
	return func(o *options) {
		o.tables = tables
	}
}

// WithTracerProvider enables tracing of store operations.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tp = tp
	}
}

// WithMeterProvider enables engine metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.mp = mp
	}
}

// New initialises a store with one repository per entity kind, all sharing
// the same DB and bus. Each New call is fully isolated; tests can create as
// many stores as they like.
func New(opts ...Option) *ODB {
	opt := &options{ //nolint:exhaustruct // nil providers mean noop
		logger: olog.NewNoop(),
	}

	for _, o := range opts {
		o(opt)
	}

	busOpts := []event.BusOption{event.WithLogger(opt.logger)}
	if opt.busBuffer > 0 {
		busOpts = append(busOpts, event.WithBuffer(opt.busBuffer))
	}

	bus := event.NewBus(busOpts...)

	dbOpts := []repo.DBOption{repo.WithLogger(opt.logger), repo.WithBus(bus)}
	if opt.tables != nil {
		dbOpts = append(dbOpts, repo.WithSnapshot(opt.tables))
	}

	if opt.tp != nil {
		dbOpts = append(dbOpts, repo.WithTracerProvider(opt.tp))
	}

	if opt.mp != nil {
		dbOpts = append(dbOpts, repo.WithMeterProvider(opt.mp))
	}

	db := repo.NewDB(dbOpts...)

	return &ODB{
		DB:  db,
		Bus: bus,

		Programs:     repo.NewRepository(db, programKind()),
		Observations: repo.NewRepository(db, observationKind()),
		Targets:      repo.NewRepository(db, targetKind()),
		Asterisms:    repo.NewRepository(db, asterismKind()),

		validate: validator.New(),
	}
}

// ODB bundles the repositories of all entity kinds over one shared DB.
// It is passed around explicitly; there is no hidden global instance.
type ODB struct {
	DB  *repo.DB
	Bus *event.Bus

	Programs     *repo.Repository[model.Program, oid.Program]
	Observations *repo.Repository[model.Observation, oid.Observation]
	Targets      *repo.Repository[model.Target, oid.Target]
	Asterisms    *repo.Repository[model.Asterism, oid.Asterism]

	validate *validator.Validate
}

// CreateProgram validates and inserts a new program.
func (o *ODB) CreateProgram(ctx context.Context, name string) (model.Program, error) {
	return o.Programs.Create(ctx, func(_ *repo.Tables) (model.Program, error) {
		p := model.Program{ //nolint:exhaustruct // id assigned on insert
			Existence: model.Present,
			Name:      name,
		}

		return p, o.validate.Struct(p) //nolint:wrapcheck // engine tags it as validation failure
	})
}

// CreateObservation validates and inserts a new observation owned by the
// given program. Input problems and a missing program are reported together.
func (o *ODB) CreateObservation(ctx context.Context, pid oid.Program, title string) (model.Observation, error) {
	return o.Observations.Create(ctx, func(t *repo.Tables) (model.Observation, error) {
		obs := model.Observation{ //nolint:exhaustruct // id assigned on insert
			Existence: model.Present,
			ProgramID: pid,
			Title:     title,
			Status:    model.ObsNew,
		}

		var errs []error

		if err := o.validate.StructExcept(obs, "ProgramID"); err != nil {
			errs = append(errs, fmt.Errorf("%w: %w", repo.ErrValidationFailed, err))
		}

		if _, ok := t.Programs[pid]; !ok {
			errs = append(errs, fmt.Errorf("%w: program %v", repo.ErrMissingReference, pid))
		}

		return obs, errors.Join(errs...)
	})
}

// CreateTarget validates and inserts a new target with the given tracking.
func (o *ODB) CreateTarget(ctx context.Context, name string, tracking model.Tracking) (model.Target, error) {
	return o.Targets.Create(ctx, func(_ *repo.Tables) (model.Target, error) {
		target := model.Target{ //nolint:exhaustruct // id assigned on insert
			Existence: model.Present,
			Name:      name,
			Tracking:  tracking,
		}

		var errs []error

		if err := o.validate.Struct(target); err != nil {
			errs = append(errs, err)
		}

		switch tr := tracking.(type) {
		case model.Sidereal:
			if tr.RA < 0 || tr.RA >= 360 {
				errs = append(errs, fmt.Errorf("ra %f not in [0, 360)", tr.RA)) //nolint:err113 // carries the value
			}

			if tr.Dec < -90 || tr.Dec > 90 {
				errs = append(errs, fmt.Errorf("dec %f not in [-90, 90]", tr.Dec)) //nolint:err113 // carries the value
			}
		case model.Nonsidereal:
			if tr.KeyType == "" || tr.Des == "" {
				errs = append(errs, errors.New("nonsidereal tracking needs key type and designation")) //nolint:err113
			}
		case nil:
			errs = append(errs, errors.New("tracking is required")) //nolint:err113
		}

		return target, errors.Join(errs...)
	})
}

// CreateAsterism validates and inserts a new asterism.
func (o *ODB) CreateAsterism(ctx context.Context, name string) (model.Asterism, error) {
	return o.Asterisms.Create(ctx, func(_ *repo.Tables) (model.Asterism, error) {
		a := model.Asterism{ //nolint:exhaustruct // id assigned on insert
			Existence: model.Present,
			Name:      name,
		}

		return a, o.validate.Struct(a) //nolint:wrapcheck // engine tags it as validation failure
	})
}

// EditSiderealTarget edits the sidereal tracking of a target. A target with
// nonsidereal tracking fails with repo.ErrTypeMismatch.
func (o *ODB) EditSiderealTarget(
	ctx context.Context,
	id oid.Target,
	edit repo.Editor[model.Sidereal],
) (model.Target, error) {
	return repo.EditSub(ctx, o.Targets, id, SiderealNarrowing(), edit)
}

// SetObservationStatus moves an observation to the given status.
func (o *ODB) SetObservationStatus(
	ctx context.Context,
	id oid.Observation,
	status model.ObsStatus,
) (model.Observation, error) {
	return o.Observations.Edit(ctx, id, func(obs model.Observation) (model.Observation, error) {
		obs.Status = status

		return obs, nil
	})
}

// ObservationsOfProgram lists the program's observations, ordered by id.
func (o *ODB) ObservationsOfProgram(ctx context.Context, pid oid.Program, includeDeleted bool) []model.Observation {
	return o.Observations.AllWhere(ctx, includeDeleted, func(_ *repo.Tables, obs model.Observation) bool {
		return obs.ProgramID == pid
	})
}

// ShareTargetsWithAsterism links the targets to the asterism.
func (o *ODB) ShareTargetsWithAsterism(ctx context.Context, aid oid.Asterism, tids ...oid.Target) error {
	return repo.ShareLeft(ctx, o.Asterisms, o.Targets, asterismTargets,
		repo.ShareInput[oid.Asterism, oid.Target]{Owner: aid, Many: tids}, repo.Link)
}

// UnshareTargetsWithAsterism removes the links between the targets and the
// asterism.
func (o *ODB) UnshareTargetsWithAsterism(ctx context.Context, aid oid.Asterism, tids ...oid.Target) error {
	return repo.ShareLeft(ctx, o.Asterisms, o.Targets, asterismTargets,
		repo.ShareInput[oid.Asterism, oid.Target]{Owner: aid, Many: tids}, repo.Unlink)
}

// ShareAsterismsWithTarget links the asterisms to the target; the same
// relation as ShareTargetsWithAsterism, owned from the other side.
func (o *ODB) ShareAsterismsWithTarget(ctx context.Context, tid oid.Target, aids ...oid.Asterism) error {
	return repo.ShareRight(ctx, o.Targets, o.Asterisms, asterismTargets,
		repo.ShareInput[oid.Target, oid.Asterism]{Owner: tid, Many: aids}, repo.Link)
}

// ShareTargetsWithProgram links the targets to the program.
func (o *ODB) ShareTargetsWithProgram(ctx context.Context, pid oid.Program, tids ...oid.Target) error {
	return repo.ShareLeft(ctx, o.Programs, o.Targets, programTargets,
		repo.ShareInput[oid.Program, oid.Target]{Owner: pid, Many: tids}, repo.Link)
}

// UnshareTargetsWithProgram removes the links between the targets and the
// program.
func (o *ODB) UnshareTargetsWithProgram(ctx context.Context, pid oid.Program, tids ...oid.Target) error {
	return repo.ShareLeft(ctx, o.Programs, o.Targets, programTargets,
		repo.ShareInput[oid.Program, oid.Target]{Owner: pid, Many: tids}, repo.Unlink)
}

// TargetsOfAsterism lists the targets an asterism consists of, ordered by id.
func (o *ODB) TargetsOfAsterism(ctx context.Context, aid oid.Asterism, includeDeleted bool) []model.Target {
	return o.Targets.AllWhere(ctx, includeDeleted, func(t *repo.Tables, target model.Target) bool {
		return t.AsterismTargets.Contains(aid, target.ID)
	})
}

// TargetsOfProgram lists the targets shared with a program, ordered by id.
func (o *ODB) TargetsOfProgram(ctx context.Context, pid oid.Program, includeDeleted bool) []model.Target {
	return o.Targets.AllWhere(ctx, includeDeleted, func(t *repo.Tables, target model.Target) bool {
		return t.ProgramTargets.Contains(pid, target.ID)
	})
}

func asterismTargets(t *repo.Tables) *repo.ManyToMany[oid.Asterism, oid.Target] {
	return &t.AsterismTargets
}

func programTargets(t *repo.Tables) *repo.ManyToMany[oid.Program, oid.Target] {
	return &t.ProgramTargets
}
