package ecs

import "sync"

// EntityAddedEvent announces a freshly created (or re-announced) entity.
type EntityAddedEvent struct{}

// EntityRemovedEvent announces an entity about to be released. It is
// delivered while the entity's slot is still valid.
type EntityRemovedEvent struct{}

// WorldEvents groups the built-in host events so call sites read
// WorldEvents.Add / WorldEvents.Remove.
var WorldEvents = struct {
	Add    EntityAddedEvent
	Remove EntityRemovedEvent
}{}

// ComponentAdded announces a component attached during a dynamic archetype
// build.
type ComponentAdded[T any] struct {
	Component *T
}

// ComponentRemoved announces a component detached during a dynamic
// archetype build.
type ComponentRemoved[T any] struct {
	Component *T
}

// Command is an executable event that mutates a target entity or one of its
// components. Commands sent through World.Modify are executed first and then
// dispatched as events of their own type.
type Command interface {
	Execute(w *World, target EntityRef)
}

// PooledCommand is a Command that returns itself to an object pool once the
// core is done with it. The core calls Release after execute-and-dispatch
// and never assumes a command instance is unique across events.
type PooledCommand interface {
	Command
	Release()
}

// Resetter lets pooled values clear themselves before reuse.
type Resetter interface {
	Reset()
}

// CommandPool is a typed object pool for commands and events, with a reset
// hook on release.
type CommandPool[T any] struct {
	pool sync.Pool
}

// NewCommandPool builds an empty pool for T.
func NewCommandPool[T any]() *CommandPool[T] {
	p := &CommandPool[T]{}
	p.pool.New = func() any { return new(T) }
	return p
}

// Acquire takes a value from the pool, allocating when empty.
func (p *CommandPool[T]) Acquire() *T {
	return p.pool.Get().(*T)
}

// Put resets the value if it implements Resetter and returns it to the pool.
func (p *CommandPool[T]) Put(value *T) {
	if value == nil {
		return
	}
	if r, ok := any(value).(Resetter); ok {
		r.Reset()
	}
	p.pool.Put(value)
}
