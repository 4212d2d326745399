package ecs

import (
	"reflect"
	"unsafe"
)

// Transmute rebuilds an entity under archetype To: components present in
// both archetypes keep their values, the rest start zeroed. The target
// host inherits the source host's storage shape (created as a sibling of
// the source storage). The new entity is announced with WorldEvents.Add,
// then the source entity is released with the full Remove ordering.
func Transmute[To any](w *World, entity EntityRef) (EntityRef, error) {
	if err := w.checkEntity(entity); err != nil {
		return EntityRef{}, err
	}
	source := entity.Host()
	target := AcquireHost[To](w, WithStorageLayout(source.StorageLayout()))

	srcBase, err := source.EntityPointer(entity.Slot())
	if err != nil {
		return EntityRef{}, err
	}

	var value To
	dstBase := unsafe.Pointer(&value)
	srcDesc := source.Descriptor()
	for _, field := range target.Descriptor().Fields() {
		srcOffset, ok := srcDesc.OffsetOfIndexed(field.Type, field.Occurrence)
		if !ok {
			continue
		}
		dst := reflect.NewAt(field.Type, unsafe.Add(dstBase, field.Offset)).Elem()
		src := reflect.NewAt(field.Type, unsafe.Add(srcBase, srcOffset)).Elem()
		dst.Set(src)
	}

	created := target.CreateValue(value)
	if err := source.ReleaseSlot(entity.Slot()); err != nil {
		return EntityRef{}, err
	}
	return created, nil
}

// AnnounceComponentAdded sends ComponentAdded[C] for the entity, the
// per-component counterpart of WorldEvents.Add used by dynamic archetype
// builds. Fails with ErrComponentNotFound when the archetype lacks C.
func AnnounceComponentAdded[C any](w *World, entity EntityRef) error {
	ref, err := Get[C](entity)
	if err != nil {
		return err
	}
	return w.Send(entity, ComponentAdded[C]{Component: ref})
}

// AnnounceComponentRemoved sends ComponentRemoved[C] for the entity while
// the component value is still readable.
func AnnounceComponentRemoved[C any](w *World, entity EntityRef) error {
	ref, err := Get[C](entity)
	if err != nil {
		return err
	}
	return w.Send(entity, ComponentRemoved[C]{Component: ref})
}
