package ecs

import (
	"fmt"
	"iter"
	"reflect"
	"unsafe"
)

// EntityHost is the type-erased surface of a Host, used by the world
// registry, queries and the external serializer.
type EntityHost interface {
	// Descriptor returns the archetype descriptor shared by all entities
	// of this host.
	Descriptor() *EntityDescriptor
	// ArchetypeIndex returns the world-registry key.
	ArchetypeIndex() uint32
	// HostID returns the world-unique host identifier.
	HostID() uint32
	// Count reports the number of live entities.
	Count() int
	// Slots iterates the allocated slots.
	Slots() iter.Seq[Slot]
	// ContainsSlot reports whether the slot is currently allocated.
	ContainsSlot(slot Slot) bool
	// EntityPointer returns the base address of the entity tuple.
	EntityPointer(slot Slot) (unsafe.Pointer, error)
	// StorageLayout reports the shape of the backing storage.
	StorageLayout() StorageLayout
	// ReleaseSlot releases the entity in the slot with full event ordering.
	ReleaseSlot(slot Slot) error
	// VisitComponents calls fn for each component of the entity, in
	// descriptor order, until fn returns false.
	VisitComponents(slot Slot, fn func(typ reflect.Type, ptr unsafe.Pointer) bool) error
	// OnEntityCreated registers a hook fired after each create. The
	// returned func cancels the registration.
	OnEntityCreated(fn func(EntityRef)) func()
	// OnEntityReleased registers a hook fired during each release, after
	// the Remove event. The returned func cancels the registration.
	OnEntityReleased(fn func(EntityRef)) func()
}

// HostOption configures host construction.
type HostOption func(*hostConfig)

type hostConfig struct {
	layout StorageLayout
}

// WithSparseStorage backs the host with paged sparse storage instead of the
// default contiguous array.
func WithSparseStorage(pageSize int) HostOption {
	return func(c *hostConfig) {
		c.layout = StorageLayout{Kind: StorageSparse, PageSize: pageSize}
	}
}

// WithStorageLayout backs the host with a storage of the given shape, e.g.
// to mirror another host's layout during an archetype split.
func WithStorageLayout(layout StorageLayout) HostOption {
	return func(c *hostConfig) {
		c.layout = layout
	}
}

// WithInitialCapacity sizes the host's array storage up front.
func WithInitialCapacity(capacity int) HostOption {
	return func(c *hostConfig) {
		c.layout.Capacity = capacity
	}
}

// Host owns all entities of one archetype: one descriptor paired with one
// storage of tuple values.
type Host[E any] struct {
	world    *World
	desc     *EntityDescriptor
	storage  Storage[E]
	id       uint32
	created  *hookList[EntityRef]
	released *hookList[EntityRef]
}

func newHost[E any](world *World, id uint32, opts ...HostOption) *Host[E] {
	cfg := hostConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Host[E]{
		world:    world,
		desc:     DescriptorFor[E](),
		storage:  NewStorage[E](cfg.layout),
		id:       id,
		created:  newHookList[EntityRef](),
		released: newHookList[EntityRef](),
	}
}

// Create allocates a zeroed entity, fires OnEntityCreated, and announces it
// with WorldEvents.Add.
func (h *Host[E]) Create() EntityRef {
	return h.announce(h.storage.AllocateSlot())
}

// CreateValue is Create with the tuple copied from initial.
func (h *Host[E]) CreateValue(initial E) EntityRef {
	return h.announce(h.storage.AllocateSlotValue(initial))
}

func (h *Host[E]) announce(slot Slot) EntityRef {
	ref := EntityRef{host: h, slot: slot}
	h.world.entityCreated()
	h.created.fire(ref)
	h.world.dispatcher.Send(ref, WorldEvents.Add)
	return ref
}

// Release tears an entity down. The Remove event is delivered while the
// slot is still valid so listeners can read component values; per-entity
// listeners are dropped after Remove so they fire one last time.
func (h *Host[E]) Release(slot Slot) error {
	if !h.storage.IsValid(slot) {
		return ErrInvalidSlot
	}
	ref := EntityRef{host: h, slot: slot}
	h.world.dispatcher.Send(ref, WorldEvents.Remove)
	h.world.dispatcher.UnlistenAll(ref)
	h.released.fire(ref)
	if err := h.storage.Release(slot); err != nil {
		return err
	}
	h.world.entityReleased()
	return nil
}

// Entity returns a typed reference to the whole tuple.
func (h *Host[E]) Entity(slot Slot) (*E, error) {
	return h.storage.GetRef(slot)
}

// Storage exposes the underlying storage, e.g. for Fetch/Write batches.
func (h *Host[E]) Storage() Storage[E] {
	return h.storage
}

// World returns the owning world.
func (h *Host[E]) World() *World {
	return h.world
}

func (h *Host[E]) Descriptor() *EntityDescriptor { return h.desc }

func (h *Host[E]) ArchetypeIndex() uint32 { return h.desc.ArchetypeIndex() }

func (h *Host[E]) HostID() uint32 { return h.id }

func (h *Host[E]) Count() int { return h.storage.Count() }

func (h *Host[E]) Slots() iter.Seq[Slot] { return h.storage.Slots() }

func (h *Host[E]) ContainsSlot(slot Slot) bool { return h.storage.IsValid(slot) }

func (h *Host[E]) EntityPointer(slot Slot) (unsafe.Pointer, error) {
	ref, err := h.storage.GetRef(slot)
	if err != nil {
		return nil, err
	}
	return unsafe.Pointer(ref), nil
}

func (h *Host[E]) ReleaseSlot(slot Slot) error { return h.Release(slot) }

func (h *Host[E]) StorageLayout() StorageLayout { return h.storage.Layout() }

func (h *Host[E]) VisitComponents(slot Slot, fn func(typ reflect.Type, ptr unsafe.Pointer) bool) error {
	base, err := h.EntityPointer(slot)
	if err != nil {
		return err
	}
	for _, field := range h.desc.Fields() {
		if !fn(field.Type, unsafe.Add(base, field.Offset)) {
			return nil
		}
	}
	return nil
}

func (h *Host[E]) OnEntityCreated(fn func(EntityRef)) func() {
	return h.created.add(fn)
}

func (h *Host[E]) OnEntityReleased(fn func(EntityRef)) func() {
	return h.released.add(fn)
}

// clear releases every live entity with full event ordering.
func (h *Host[E]) clear() {
	for {
		var pending []Slot
		for slot := range h.storage.Slots() {
			pending = append(pending, slot)
		}
		if len(pending) == 0 {
			return
		}
		for _, slot := range pending {
			if h.storage.IsValid(slot) {
				if err := h.Release(slot); err != nil {
					panic(fmt.Sprintf("ecs: host clear: %v", err))
				}
			}
		}
	}
}

// hookList is an ordered callback registry with cancelable registrations.
type hookList[T any] struct {
	entries []*hookEntry[T]
}

type hookEntry[T any] struct {
	fn      func(T)
	removed bool
}

func newHookList[T any]() *hookList[T] {
	return &hookList[T]{}
}

func (l *hookList[T]) add(fn func(T)) func() {
	entry := &hookEntry[T]{fn: fn}
	l.entries = append(l.entries, entry)
	return func() { entry.removed = true }
}

func (l *hookList[T]) fire(value T) {
	n := len(l.entries)
	for i := 0; i < n; i++ {
		if entry := l.entries[i]; !entry.removed {
			entry.fn(value)
		}
	}
	l.compact()
}

func (l *hookList[T]) compact() {
	kept := l.entries[:0]
	for _, entry := range l.entries {
		if !entry.removed {
			kept = append(kept, entry)
		}
	}
	l.entries = kept
}
