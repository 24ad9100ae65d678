// Package testdata provides entity factories for tests.
package testdata

import (
	"github.com/brianvoe/gofakeit/v6"

	"github.com/go-odb/odb/model"
	"github.com/go-odb/odb/repo"
)

// Constant returns a constructor that ignores the snapshot and always
// yields the given entity. Handy when a test does not care about validation.
func Constant[E any](e E) repo.Constructor[E] {
	return func(_ *repo.Tables) (E, error) {
		return e, nil
	}
}

// RandomProgram returns a present program without an id.
func RandomProgram() model.Program {
	return model.Program{ //nolint:exhaustruct // id assigned on insert
		Existence: model.Present,
		Name:      gofakeit.Sentence(3),
	}
}

// RandomAsterism returns a present asterism without an id.
func RandomAsterism() model.Asterism {
	return model.Asterism{ //nolint:exhaustruct // id assigned on insert
		Existence: model.Present,
		Name:      gofakeit.Noun(),
	}
}

// RandomSiderealTarget returns a present target with sidereal tracking.
func RandomSiderealTarget() model.Target {
	return model.Target{ //nolint:exhaustruct // id assigned on insert
		Existence: model.Present,
		Name:      gofakeit.Noun(),
		Tracking: model.Sidereal{
			RA:              gofakeit.Float64Range(0, 360),
			Dec:             gofakeit.Float64Range(-90, 90),
			ProperMotionRA:  gofakeit.Float64Range(-100, 100),
			ProperMotionDec: gofakeit.Float64Range(-100, 100),
		},
	}
}

// RandomNonsiderealTarget returns a present target with nonsidereal tracking.
func RandomNonsiderealTarget() model.Target {
	return model.Target{ //nolint:exhaustruct // id assigned on insert
		Existence: model.Present,
		Name:      gofakeit.Noun(),
		Tracking: model.Nonsidereal{
			KeyType: "comet",
			Des:     gofakeit.LetterN(8),
		},
	}
}
