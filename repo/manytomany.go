package repo

// ManyToMany is an unordered set of (left, right) pairs, queryable from
// either side. It is a plain value inside Tables and follows the same
// discipline as the entity maps: mutate only inside the atomic-modify cycle.
type ManyToMany[L, R comparable] struct {
	pairs map[pair[L, R]]struct{}
}

type pair[L, R comparable] struct {
	left  L
	right R
}

// NewManyToMany returns an empty link table.
func NewManyToMany[L, R comparable]() ManyToMany[L, R] {
	return ManyToMany[L, R]{pairs: map[pair[L, R]]struct{}{}}
}

// Contains reports whether the pair is linked.
func (m ManyToMany[L, R]) Contains(left L, right R) bool {
	_, ok := m.pairs[pair[L, R]{left, right}]

	return ok
}

// Link adds the pair and reports whether the table changed.
func (m *ManyToMany[L, R]) Link(left L, right R) bool {
	p := pair[L, R]{left, right}
	if _, ok := m.pairs[p]; ok {
		return false
	}

	if m.pairs == nil {
		m.pairs = map[pair[L, R]]struct{}{}
	}

	m.pairs[p] = struct{}{}

	return true
}

// Unlink removes the pair and reports whether the table changed.
func (m *ManyToMany[L, R]) Unlink(left L, right R) bool {
	p := pair[L, R]{left, right}
	if _, ok := m.pairs[p]; !ok {
		return false
	}

	delete(m.pairs, p)

	return true
}

// RightsOf returns all right-side ids linked to left, in map order.
// Callers needing a stable order sort with their kind's Less.
func (m ManyToMany[L, R]) RightsOf(left L) []R {
	rights := []R{}

	for p := range m.pairs {
		if p.left == left {
			rights = append(rights, p.right)
		}
	}

	return rights
}

// LeftsOf returns all left-side ids linked to right, in map order.
func (m ManyToMany[L, R]) LeftsOf(right R) []L {
	lefts := []L{}

	for p := range m.pairs {
		if p.right == right {
			lefts = append(lefts, p.left)
		}
	}

	return lefts
}

// Len reports the number of linked pairs.
func (m ManyToMany[L, R]) Len() int {
	return len(m.pairs)
}

func (m ManyToMany[L, R]) clone() ManyToMany[L, R] {
	pairs := make(map[pair[L, R]]struct{}, len(m.pairs))
	for p := range m.pairs {
		pairs[p] = struct{}{}
	}

	return ManyToMany[L, R]{pairs: pairs}
}
