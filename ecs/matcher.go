package ecs

import "reflect"

// Matcher is a pure, cheap predicate over an archetype descriptor.
type Matcher interface {
	Match(desc *EntityDescriptor) bool
}

type noneMatcher struct{}

func (noneMatcher) Match(*EntityDescriptor) bool { return false }

type anyMatcher struct{}

func (anyMatcher) Match(*EntityDescriptor) bool { return true }

var (
	matchNone Matcher = noneMatcher{}
	matchAny  Matcher = anyMatcher{}
)

// None matches no archetype. Systems with a None (or nil) matcher and no
// triggers are passive.
func None() Matcher { return matchNone }

// Any matches every archetype.
func Any() Matcher { return matchAny }

// isNone reports whether the matcher is absent or the None singleton.
func isNone(m Matcher) bool {
	return m == nil || m == matchNone
}

type hasAllMatcher struct {
	types []reflect.Type
}

func (m hasAllMatcher) Match(desc *EntityDescriptor) bool {
	for _, typ := range m.types {
		if !desc.HasComponent(typ) {
			return false
		}
	}
	return true
}

// HasAll matches archetypes containing all of the given component types.
func HasAll(types ...reflect.Type) Matcher {
	return hasAllMatcher{types: types}
}

// HasComponent matches archetypes containing component C.
func HasComponent[C any]() Matcher {
	return hasAllMatcher{types: []reflect.Type{reflect.TypeFor[C]()}}
}

type andMatcher struct{ matchers []Matcher }

func (m andMatcher) Match(desc *EntityDescriptor) bool {
	for _, inner := range m.matchers {
		if !inner.Match(desc) {
			return false
		}
	}
	return true
}

type orMatcher struct{ matchers []Matcher }

func (m orMatcher) Match(desc *EntityDescriptor) bool {
	for _, inner := range m.matchers {
		if inner.Match(desc) {
			return true
		}
	}
	return false
}

type notMatcher struct{ inner Matcher }

func (m notMatcher) Match(desc *EntityDescriptor) bool {
	return !m.inner.Match(desc)
}

// And matches archetypes satisfying every given matcher.
func And(matchers ...Matcher) Matcher { return andMatcher{matchers: matchers} }

// Or matches archetypes satisfying at least one given matcher.
func Or(matchers ...Matcher) Matcher { return orMatcher{matchers: matchers} }

// Not inverts a matcher.
func Not(matcher Matcher) Matcher { return notMatcher{inner: matcher} }
