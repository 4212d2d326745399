package ecs

import (
	"reflect"

	"github.com/kamstrup/intmap"
)

// Listener receives events for a target entity. Returning true removes the
// listener after the current fan-out completes.
type Listener func(target EntityRef, event any) bool

type listenerEntry struct {
	fn      Listener
	removed bool
}

// listenerList is an ordered listener registry that stays structurally
// stable during fan-out: removal is a tombstone compacted once the
// outermost dispatch over the list finishes, and listeners added during
// dispatch do not observe the in-flight event.
type listenerList struct {
	entries []*listenerEntry
	depth   int
	dirty   bool
}

func (l *listenerList) add(fn Listener) *listenerEntry {
	entry := &listenerEntry{fn: fn}
	l.entries = append(l.entries, entry)
	return entry
}

func (l *listenerList) count() int {
	n := 0
	for _, entry := range l.entries {
		if !entry.removed {
			n++
		}
	}
	return n
}

func (l *listenerList) dispatch(target EntityRef, event any) {
	// Snapshot the listeners live when the fan-out starts: later additions
	// miss this event, removals during the fan-out still receive it.
	live := make([]*listenerEntry, 0, len(l.entries))
	for _, entry := range l.entries {
		if !entry.removed {
			live = append(live, entry)
		}
	}
	l.depth++
	defer func() {
		l.depth--
		if l.depth == 0 && l.dirty {
			l.compact()
		}
	}()
	for _, entry := range live {
		if entry.fn(target, event) {
			entry.removed = true
			l.dirty = true
		}
	}
}

func (l *listenerList) compact() {
	kept := l.entries[:0]
	for _, entry := range l.entries {
		if !entry.removed {
			kept = append(kept, entry)
		}
	}
	l.entries = kept
	l.dirty = false
}

// Dispatcher is a per-world event bus with three listener channels: chained
// per-entity listeners, per-type listeners keyed by the event's runtime
// type, and global listeners receiving everything.
type Dispatcher struct {
	global   *listenerList
	byType   map[reflect.Type]*listenerList
	byEntity *intmap.Map[uint64, *listenerList]
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		global:   &listenerList{},
		byType:   make(map[reflect.Type]*listenerList),
		byEntity: intmap.New[uint64, *listenerList](64),
	}
}

// Listen registers a global listener. The returned func cancels it.
func (d *Dispatcher) Listen(fn Listener) func() {
	entry := d.global.add(fn)
	return func() { entry.removed = true; d.global.dirty = true }
}

// ListenType registers a listener for events of type E.
func ListenType[E any](d *Dispatcher, fn Listener) func() {
	return d.ListenTypeOf(reflect.TypeFor[E](), fn)
}

// ListenTypeOf registers a listener for events of the given runtime type.
func (d *Dispatcher) ListenTypeOf(typ reflect.Type, fn Listener) func() {
	list, ok := d.byType[typ]
	if !ok {
		list = &listenerList{}
		d.byType[typ] = list
	}
	entry := list.add(fn)
	return func() { entry.removed = true; list.dirty = true }
}

// ListenEntity chains a listener onto a specific entity. The returned func
// cancels it; Host.Release drops whole chains via UnlistenAll.
func (d *Dispatcher) ListenEntity(target EntityRef, fn Listener) func() {
	key := target.Key()
	list, ok := d.byEntity.Get(key)
	if !ok {
		list = &listenerList{}
		d.byEntity.Put(key, list)
	}
	entry := list.add(fn)
	return func() { entry.removed = true; list.dirty = true }
}

// Send fans the event out in the stable order per-entity, then per-type,
// then global; registration order within each channel. Listener mutations
// during dispatch are safe: added listeners miss the in-flight event,
// removed listeners still receive it.
func (d *Dispatcher) Send(target EntityRef, event any) {
	if target.Host() != nil {
		if list, ok := d.byEntity.Get(target.Key()); ok {
			list.dispatch(target, event)
		}
	}
	if list, ok := d.byType[reflect.TypeOf(event)]; ok {
		list.dispatch(target, event)
	}
	d.global.dispatch(target, event)
}

// UnlistenAll drops every per-entity listener chained to the entity. It is
// idempotent and safe to call during a fan-out over that chain.
func (d *Dispatcher) UnlistenAll(target EntityRef) {
	if target.Host() == nil {
		return
	}
	key := target.Key()
	list, ok := d.byEntity.Get(key)
	if !ok {
		return
	}
	for _, entry := range list.entries {
		entry.removed = true
	}
	list.dirty = true
	d.byEntity.Del(key)
}

// GlobalCount reports live global listeners.
func (d *Dispatcher) GlobalCount() int {
	return d.global.count()
}

// TypeCount reports live listeners for the given event type.
func (d *Dispatcher) TypeCount(typ reflect.Type) int {
	if list, ok := d.byType[typ]; ok {
		return list.count()
	}
	return 0
}

// EntityCount reports live listeners chained to the entity.
func (d *Dispatcher) EntityCount(target EntityRef) int {
	if target.Host() == nil {
		return 0
	}
	if list, ok := d.byEntity.Get(target.Key()); ok {
		return list.count()
	}
	return 0
}

// reset drops every listener; used by World.Dispose.
func (d *Dispatcher) reset() {
	d.global = &listenerList{}
	d.byType = make(map[reflect.Type]*listenerList)
	d.byEntity = intmap.New[uint64, *listenerList](64)
}
