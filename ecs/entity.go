package ecs

import (
	"reflect"
	"unsafe"
)

// EntityRef is the universal reference to a live entity: the owning host
// plus the storage slot. It is a copyable value; holding one does not extend
// the entity's lifetime.
type EntityRef struct {
	host EntityHost
	slot Slot
}

// RefOf builds an EntityRef from a host and slot, e.g. when re-deriving
// references from host iteration.
func RefOf(host EntityHost, slot Slot) EntityRef {
	return EntityRef{host: host, slot: slot}
}

// Host returns the owning host, nil for the zero ref.
func (e EntityRef) Host() EntityHost {
	return e.host
}

// Slot returns the storage slot.
func (e EntityRef) Slot() Slot {
	return e.slot
}

// IsValid reports whether the referenced entity is still alive.
func (e EntityRef) IsValid() bool {
	return e.host != nil && e.host.ContainsSlot(e.slot)
}

// Key packs the host ID and slot index into one integer, used to key
// per-entity registries.
func (e EntityRef) Key() uint64 {
	return uint64(e.host.HostID())<<32 | uint64(e.slot.Index())
}

// Get returns a live reference to component C of the entity. The reference
// stays valid until the entity is released or the host's storage grows.
func Get[C any](e EntityRef) (*C, error) {
	if e.host == nil {
		return nil, ErrEntityNotAlive
	}
	offset, ok := e.host.Descriptor().OffsetOf(reflect.TypeFor[C]())
	if !ok {
		return nil, ErrComponentNotFound
	}
	base, err := e.host.EntityPointer(e.slot)
	if err != nil {
		return nil, err
	}
	return (*C)(unsafe.Add(base, offset)), nil
}

// GetOrNil is Get with an absent marker instead of an error: it returns nil
// when the archetype lacks C or the entity is gone.
func GetOrNil[C any](e EntityRef) *C {
	ref, err := Get[C](e)
	if err != nil {
		return nil
	}
	return ref
}

// GetIndexed returns the n-th occurrence of component type C within the
// tuple, for archetypes carrying the same component type more than once.
func GetIndexed[C any](e EntityRef, occurrence int) (*C, error) {
	if e.host == nil {
		return nil, ErrEntityNotAlive
	}
	offset, ok := e.host.Descriptor().OffsetOfIndexed(reflect.TypeFor[C](), occurrence)
	if !ok {
		return nil, ErrComponentNotFound
	}
	base, err := e.host.EntityPointer(e.slot)
	if err != nil {
		return nil, err
	}
	return (*C)(unsafe.Add(base, offset)), nil
}

// MustGet is Get for call sites that treat absence as a programming error.
func MustGet[C any](e EntityRef) *C {
	ref, err := Get[C](e)
	if err != nil {
		panic(err)
	}
	return ref
}
