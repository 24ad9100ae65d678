// Package model holds the top-level entities of the observing database.
//
// Entities are plain value types. They are never constructed with an ID by
// callers; IDs are assigned by the repository engine on insert. Rows are
// never removed, deletion only flips the Existence flag.
package model

import (
	"github.com/go-odb/odb/oid"
)

// Existence is the soft-delete marker carried by every top-level entity.
type Existence uint8

const (
	Present Existence = iota + 1
	Deleted
)

func (e Existence) String() string {
	switch e {
	case Present:
		return "present"
	case Deleted:
		return "deleted"
	default:
		return "undefined"
	}
}

// Program is a science program, the root a proposal's observations hang off.
type Program struct {
	ID        oid.Program
	Existence Existence
	Name      string `validate:"required,max=255"`
}

// ObsStatus tracks an observation through its lifecycle.
type ObsStatus uint8

const (
	ObsNew ObsStatus = iota + 1
	ObsReady
	ObsOngoing
	ObsObserved
)

func (s ObsStatus) String() string {
	switch s {
	case ObsNew:
		return "new"
	case ObsReady:
		return "ready"
	case ObsOngoing:
		return "ongoing"
	case ObsObserved:
		return "observed"
	default:
		return "undefined"
	}
}

// Observation belongs to exactly one Program.
type Observation struct {
	ID        oid.Observation
	Existence Existence
	ProgramID oid.Program `validate:"required"`
	Title     string      `validate:"max=255"`
	Status    ObsStatus
}

// Asterism is a named group of targets observed together.
type Asterism struct {
	ID        oid.Asterism
	Existence Existence
	Name      string `validate:"required,max=255"`
}

// Target is a single observable object. Its Tracking is a closed union:
// either Sidereal or Nonsidereal.
type Target struct {
	ID        oid.Target
	Existence Existence
	Name      string `validate:"required,max=255"`
	Tracking  Tracking
}

// Sidereal returns the sidereal tracking, if this target has one.
func (t Target) Sidereal() (Sidereal, bool) {
	s, ok := t.Tracking.(Sidereal)

	return s, ok
}

// Nonsidereal returns the nonsidereal tracking, if this target has one.
func (t Target) Nonsidereal() (Nonsidereal, bool) {
	n, ok := t.Tracking.(Nonsidereal)

	return n, ok
}

// Tracking describes how a target moves across the sky.
// The only implementations are Sidereal and Nonsidereal.
type Tracking interface {
	isTracking()
}

// Sidereal tracking: a fixed celestial position plus proper motion.
type Sidereal struct {
	RA  float64 // right ascension in degrees, [0, 360)
	Dec float64 // declination in degrees, [-90, 90]

	// Proper motion in milliarcseconds per year.
	ProperMotionRA  float64
	ProperMotionDec float64
}

func (Sidereal) isTracking() {}

// Nonsidereal tracking: an ephemeris key resolved by an external service.
type Nonsidereal struct {
	KeyType string // e.g. "comet", "asteroid", "major-body"
	Des     string // designation within the key type
}

func (Nonsidereal) isTracking() {}
