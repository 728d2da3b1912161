package checker

import "strings"

// An EffectSet is the set of effect capabilities of a function type.
//
// EffectSets form a lattice ordered by subset,
// with the empty set at the bottom
// and Suspends|Fails at the top.
type EffectSet uint8

const (
	// Suspends is the capability to yield control to a scheduler: async.
	Suspends EffectSet = 1 << iota
	// Fails is the capability to produce an error instead of a value: throws.
	Fails

	// NoEffects is the empty EffectSet.
	NoEffects EffectSet = 0
	// AllEffects is the EffectSet with every capability.
	AllEffects = Suspends | Fails
)

// Suspends returns whether the set has the Suspends capability.
func (e EffectSet) Suspends() bool { return e&Suspends != 0 }

// Fails returns whether the set has the Fails capability.
func (e EffectSet) Fails() bool { return e&Fails != 0 }

// Join returns the least upper bound of e and f.
func (e EffectSet) Join(f EffectSet) EffectSet { return e | f }

// Leq returns whether e is below or equal to f in the lattice;
// that is, whether e is a subset of f.
func (e EffectSet) Leq(f EffectSet) bool { return e&^f == 0 }

// Count returns the number of capabilities in the set.
func (e EffectSet) Count() int {
	var n int
	for _, c := range capabilities {
		if e&c != 0 {
			n++
		}
	}
	return n
}

// String returns the effect keywords of the set
// in the order they are written in a function type.
func (e EffectSet) String() string {
	var s []string
	for _, c := range capabilities {
		if e&c != 0 {
			s = append(s, capabilityNames[c])
		}
	}
	return strings.Join(s, " ")
}

var (
	capabilities    = []EffectSet{Suspends, Fails}
	capabilityNames = map[EffectSet]string{
		Suspends: "async",
		Fails:    "throws",
	}
)

// JoinAll returns the join of all of the sets;
// the join of no sets is NoEffects.
func JoinAll(sets []EffectSet) EffectSet {
	var e EffectSet
	for _, s := range sets {
		e = e.Join(s)
	}
	return e
}
