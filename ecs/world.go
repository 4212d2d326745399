package ecs

import (
	"fmt"
	"iter"
	"reflect"

	"github.com/kamstrup/intmap"
	"go.uber.org/zap"
)

// WorldOption configures world construction.
type WorldOption func(*World)

// WithLogger attaches a structured logger to the world. The default is a
// no-op logger.
func WithLogger(logger *zap.Logger) WorldOption {
	return func(w *World) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// World is the registry of hosts, keyed by archetype index, plus the
// dispatcher, addon map and command buffer shared by everything bound to it.
type World struct {
	hosts      *intmap.Map[uint32, EntityHost]
	hostOrder  []EntityHost
	dispatcher *Dispatcher
	addons     map[reflect.Type]any
	commands   *CommandBuffer
	systems    map[System]*SystemHandle
	count      int
	nextHostID uint32
	disposed   bool

	onDisposed    *hookList[*World]
	onHostAdded   *hookList[EntityHost]
	onHostRemoved *hookList[EntityHost]

	logger *zap.Logger
}

// NewWorld creates an empty world.
func NewWorld(opts ...WorldOption) *World {
	w := &World{
		hosts:         intmap.New[uint32, EntityHost](16),
		dispatcher:    NewDispatcher(),
		addons:        make(map[reflect.Type]any),
		commands:      NewCommandBuffer(),
		systems:       make(map[System]*SystemHandle),
		onDisposed:    newHookList[*World](),
		onHostAdded:   newHookList[EntityHost](),
		onHostRemoved: newHookList[EntityHost](),
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// AcquireHost returns the host for archetype E, creating it on first demand.
// Options only apply on creation.
func AcquireHost[E any](w *World, opts ...HostOption) *Host[E] {
	desc := DescriptorFor[E]()
	if existing, ok := w.hosts.Get(desc.ArchetypeIndex()); ok {
		host, ok := existing.(*Host[E])
		if !ok {
			panic(fmt.Sprintf("ecs: archetype index collision between %s and %s",
				existing.Descriptor().EntityType(), desc.EntityType()))
		}
		return host
	}

	w.nextHostID++
	host := newHost[E](w, w.nextHostID, opts...)
	w.hosts.Put(desc.ArchetypeIndex(), host)
	w.hostOrder = append(w.hostOrder, host)
	w.logger.Debug("host created",
		zap.String("archetype", desc.EntityType().String()),
		zap.Uint32("index", desc.ArchetypeIndex()))
	w.onHostAdded.fire(host)
	return host
}

// Dispatcher returns the world's event bus.
func (w *World) Dispatcher() *Dispatcher {
	return w.dispatcher
}

// Commands returns the world's deferred-mutation buffer.
func (w *World) Commands() *CommandBuffer {
	return w.commands
}

// Count reports the number of live entities across all hosts.
func (w *World) Count() int {
	return w.count
}

// Hosts iterates the registered hosts in registration order.
func (w *World) Hosts() iter.Seq[EntityHost] {
	return func(yield func(EntityHost) bool) {
		for _, host := range w.hostOrder {
			if !yield(host) {
				return
			}
		}
	}
}

// HostByArchetype looks up a host by archetype index in O(1).
func (w *World) HostByArchetype(index uint32) (EntityHost, bool) {
	return w.hosts.Get(index)
}

// Add re-announces an entity on the dispatcher with WorldEvents.Add.
// Host.Create announces automatically; Add covers entities whose listeners
// were set up after creation.
func (w *World) Add(entity EntityRef) error {
	if err := w.checkEntity(entity); err != nil {
		return err
	}
	w.dispatcher.Send(entity, WorldEvents.Add)
	return nil
}

// Remove releases the entity through its owning host.
func (w *World) Remove(entity EntityRef) error {
	if err := w.checkEntity(entity); err != nil {
		return err
	}
	return entity.Host().ReleaseSlot(entity.Slot())
}

// Modify executes the command against the target entity, then sends the
// command itself as an event for the same target. Pooled commands are
// released afterwards.
func (w *World) Modify(entity EntityRef, cmd Command) error {
	if err := w.checkEntity(entity); err != nil {
		return err
	}
	cmd.Execute(w, entity)
	w.dispatcher.Send(entity, cmd)
	if pooled, ok := cmd.(PooledCommand); ok {
		pooled.Release()
	}
	return nil
}

// Send dispatches an event for the entity, pre-checked against the world.
func (w *World) Send(entity EntityRef, event any) error {
	if w.disposed {
		return ErrWorldDisposed
	}
	if entity.Host() != nil && !entity.IsValid() {
		return ErrEntityNotAlive
	}
	w.dispatcher.Send(entity, event)
	return nil
}

func (w *World) checkEntity(entity EntityRef) error {
	if w.disposed {
		return ErrWorldDisposed
	}
	if entity.Host() == nil || !entity.IsValid() {
		return ErrEntityNotAlive
	}
	return nil
}

// Query returns a live collection of entities whose archetypes satisfy the
// matcher, maintained reactively as hosts and entities come and go.
func (w *World) Query(matcher Matcher) *Query {
	return newQuery(w, matcher)
}

// OnDisposed registers a hook fired at the start of Dispose. System handles
// use it to tear themselves down with the world.
func (w *World) OnDisposed(fn func(*World)) func() {
	return w.onDisposed.add(fn)
}

// OnHostAdded registers a hook fired when a host is created.
func (w *World) OnHostAdded(fn func(EntityHost)) func() {
	return w.onHostAdded.add(fn)
}

// OnEntityHostRemoved registers a hook fired when a host is disposed.
func (w *World) OnEntityHostRemoved(fn func(EntityHost)) func() {
	return w.onHostRemoved.add(fn)
}

// ClearEmptyHosts disposes hosts with zero entities, the canonical way to
// reclaim memory for short-lived archetypes.
func (w *World) ClearEmptyHosts() {
	kept := w.hostOrder[:0]
	var removed []EntityHost
	for _, host := range w.hostOrder {
		if host.Count() == 0 {
			w.hosts.Del(host.ArchetypeIndex())
			removed = append(removed, host)
			continue
		}
		kept = append(kept, host)
	}
	w.hostOrder = kept
	for _, host := range removed {
		w.logger.Debug("empty host removed",
			zap.String("archetype", host.Descriptor().EntityType().String()))
		w.onHostRemoved.fire(host)
	}
}

// ReleaseHost disposes the host for archetype E, releasing its entities with
// full event ordering.
func ReleaseHost[E any](w *World) {
	desc := DescriptorFor[E]()
	host, ok := w.hosts.Get(desc.ArchetypeIndex())
	if !ok {
		return
	}
	w.releaseHost(host)
}

func (w *World) releaseHost(host EntityHost) {
	host.(interface{ clear() }).clear()
	w.hosts.Del(host.ArchetypeIndex())
	for i, h := range w.hostOrder {
		if h == host {
			w.hostOrder = append(w.hostOrder[:i], w.hostOrder[i+1:]...)
			break
		}
	}
	w.onHostRemoved.fire(host)
}

// ClearHosts disposes every host.
func (w *World) ClearHosts() {
	for len(w.hostOrder) > 0 {
		w.releaseHost(w.hostOrder[len(w.hostOrder)-1])
	}
}

// Disposed reports whether Dispose has run.
func (w *World) Disposed() bool {
	return w.disposed
}

// Dispose fires OnDisposed, clears hosts (each entity receiving the full
// Remove ordering), drops addons and listeners, and marks the world dead.
// Idempotent.
func (w *World) Dispose() {
	if w.disposed {
		return
	}
	w.logger.Debug("world disposing", zap.Int("entities", w.count))
	w.onDisposed.fire(w)
	w.ClearHosts()
	w.addons = make(map[reflect.Type]any)
	w.dispatcher.reset()
	w.disposed = true
}

func (w *World) entityCreated() {
	w.count++
}

func (w *World) entityReleased() {
	w.count--
}
