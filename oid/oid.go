// Package oid provides the typed identifiers used by all top-level entities.
//
// Each identifier is drawn from a bounded, totally ordered domain: a
// one-letter kind tag plus an index in [MinIndex, MaxIndex]. The successor of
// the maximum index wraps around to the minimum, so generation never fails.
// Identifiers render as e.g. "p-12" or "t-3".
package oid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// MinIndex is the first index issued for every kind.
	MinIndex uint32 = 1

	// MaxIndex is the last index of the domain; its successor is MinIndex.
	MaxIndex uint32 = 1<<31 - 1
)

var ErrInvalidID = errors.New("invalid id")

type (
	// Program identifies a science program, e.g. "p-2".
	Program struct{ Index uint32 }

	// Observation identifies an observation, e.g. "o-3".
	Observation struct{ Index uint32 }

	// Target identifies a target, e.g. "t-7".
	Target struct{ Index uint32 }

	// Asterism identifies an asterism, e.g. "a-1".
	Asterism struct{ Index uint32 }
)

// next is the successor in the bounded domain, wrapping past MaxIndex.
func next(i uint32) uint32 {
	if i >= MaxIndex {
		return MinIndex
	}

	return i + 1
}

func format(tag byte, i uint32) string {
	return string(tag) + "-" + strconv.FormatUint(uint64(i), 10)
}

func parse(tag byte, s string) (uint32, error) {
	prefix := string(tag) + "-"
	if !strings.HasPrefix(s, prefix) {
		return 0, fmt.Errorf("%w: %q does not start with %q", ErrInvalidID, s, prefix)
	}

	i, err := strconv.ParseUint(strings.TrimPrefix(s, prefix), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidID, s, err)
	}

	if uint32(i) < MinIndex || uint32(i) > MaxIndex {
		return 0, fmt.Errorf("%w: %q: index out of range", ErrInvalidID, s)
	}

	return uint32(i), nil
}

func (id Program) Next() Program          { return Program{next(id.Index)} }
func (id Program) Less(o Program) bool    { return id.Index < o.Index }
func (id Program) IsZero() bool           { return id.Index == 0 }
func (id Program) String() string         { return format('p', id.Index) }
func (id Program) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *Program) UnmarshalText(b []byte) error {
	i, err := parse('p', string(b))
	if err != nil {
		return err
	}

	id.Index = i

	return nil
}

// ParseProgram parses "p-<index>".
func ParseProgram(s string) (Program, error) {
	i, err := parse('p', s)

	return Program{i}, err
}

func (id Observation) Next() Observation       { return Observation{next(id.Index)} }
func (id Observation) Less(o Observation) bool { return id.Index < o.Index }
func (id Observation) IsZero() bool            { return id.Index == 0 }
func (id Observation) String() string          { return format('o', id.Index) }
func (id Observation) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *Observation) UnmarshalText(b []byte) error {
	i, err := parse('o', string(b))
	if err != nil {
		return err
	}

	id.Index = i

	return nil
}

// ParseObservation parses "o-<index>".
func ParseObservation(s string) (Observation, error) {
	i, err := parse('o', s)

	return Observation{i}, err
}

func (id Target) Next() Target       { return Target{next(id.Index)} }
func (id Target) Less(o Target) bool { return id.Index < o.Index }
func (id Target) IsZero() bool       { return id.Index == 0 }
func (id Target) String() string     { return format('t', id.Index) }
func (id Target) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *Target) UnmarshalText(b []byte) error {
	i, err := parse('t', string(b))
	if err != nil {
		return err
	}

	id.Index = i

	return nil
}

// ParseTarget parses "t-<index>".
func ParseTarget(s string) (Target, error) {
	i, err := parse('t', s)

	return Target{i}, err
}

func (id Asterism) Next() Asterism       { return Asterism{next(id.Index)} }
func (id Asterism) Less(o Asterism) bool { return id.Index < o.Index }
func (id Asterism) IsZero() bool         { return id.Index == 0 }
func (id Asterism) String() string       { return format('a', id.Index) }
func (id Asterism) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *Asterism) UnmarshalText(b []byte) error {
	i, err := parse('a', string(b))
	if err != nil {
		return err
	}

	id.Index = i

	return nil
}

// ParseAsterism parses "a-<index>".
func ParseAsterism(s string) (Asterism, error) {
	i, err := parse('a', s)

	return Asterism{i}, err
}
