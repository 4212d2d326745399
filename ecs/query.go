package ecs

import (
	"iter"

	"github.com/kamstrup/intmap"
)

// Query is a live collection of entities whose archetypes satisfy a
// matcher. The matcher is tested once per host, including hosts created
// after the query; membership then tracks that host's create and release
// events.
type Query struct {
	world   *World
	matcher Matcher
	entries []EntityRef
	index   *intmap.Map[uint64, int]
	cancels []func()
	closed  bool
}

func newQuery(world *World, matcher Matcher) *Query {
	q := &Query{
		world:   world,
		matcher: matcher,
		index:   intmap.New[uint64, int](64),
	}
	if matcher == nil {
		q.matcher = None()
	}
	q.cancels = append(q.cancels, world.OnHostAdded(q.trackHost))
	for host := range world.Hosts() {
		q.trackHost(host)
	}
	return q
}

func (q *Query) trackHost(host EntityHost) {
	if q.closed || !q.matcher.Match(host.Descriptor()) {
		return
	}
	for slot := range host.Slots() {
		q.add(EntityRef{host: host, slot: slot})
	}
	q.cancels = append(q.cancels, host.OnEntityCreated(q.add))
	q.cancels = append(q.cancels, host.OnEntityReleased(q.remove))
}

func (q *Query) add(entity EntityRef) {
	key := entity.Key()
	if _, ok := q.index.Get(key); ok {
		return
	}
	q.index.Put(key, len(q.entries))
	q.entries = append(q.entries, entity)
}

func (q *Query) remove(entity EntityRef) {
	key := entity.Key()
	pos, ok := q.index.Get(key)
	if !ok {
		return
	}
	last := len(q.entries) - 1
	moved := q.entries[last]
	q.entries[pos] = moved
	q.index.Put(moved.Key(), pos)
	q.entries = q.entries[:last]
	q.index.Del(key)
}

// Count reports the current number of matching entities.
func (q *Query) Count() int {
	return len(q.entries)
}

// Iter iterates a snapshot of the current membership, skipping entities
// released while the iteration is in flight.
func (q *Query) Iter() iter.Seq[EntityRef] {
	snapshot := append([]EntityRef(nil), q.entries...)
	return func(yield func(EntityRef) bool) {
		for _, entity := range snapshot {
			if !entity.IsValid() {
				continue
			}
			if !yield(entity) {
				return
			}
		}
	}
}

// Close detaches the query from the world's hooks. Closed queries stop
// updating; Iter keeps returning the last membership.
func (q *Query) Close() {
	if q.closed {
		return
	}
	q.closed = true
	for _, cancel := range q.cancels {
		cancel()
	}
	q.cancels = nil
}
