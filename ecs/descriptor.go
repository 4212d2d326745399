package ecs

import (
	"fmt"
	"reflect"
	"sync"
)

// componentKey identifies a component within an archetype. The occurrence
// index disambiguates two fields of the same type within one tuple.
type componentKey struct {
	typ        reflect.Type
	occurrence int
}

// ComponentField records where one component lives inside an archetype tuple.
type ComponentField struct {
	Type       reflect.Type
	Offset     uintptr
	Size       uintptr
	Occurrence int
}

// EntityDescriptor maps component types to byte offsets within one
// archetype's entity tuple. Descriptors are built once per archetype struct
// type, memoised process-wide, and never destroyed; offsets are stable for
// the descriptor's lifetime.
type EntityDescriptor struct {
	entityType reflect.Type
	fields     []ComponentField
	byKey      map[componentKey]int
	stride     uintptr
	archetype  uint32
}

var descriptorCache sync.Map // reflect.Type -> *EntityDescriptor

// DescriptorFor returns the memoised descriptor for archetype struct E.
func DescriptorFor[E any]() *EntityDescriptor {
	return descriptorFor(reflect.TypeFor[E]())
}

func descriptorFor(entityType reflect.Type) *EntityDescriptor {
	if cached, ok := descriptorCache.Load(entityType); ok {
		return cached.(*EntityDescriptor)
	}
	desc := buildDescriptor(entityType)
	actual, _ := descriptorCache.LoadOrStore(entityType, desc)
	return actual.(*EntityDescriptor)
}

// buildDescriptor walks the tuple type, recording each field's offset under
// the platform's natural alignment rules as computed by the compiler.
func buildDescriptor(entityType reflect.Type) *EntityDescriptor {
	if entityType.Kind() != reflect.Struct {
		panic(fmt.Sprintf("ecs: archetype type %s must be a struct", entityType))
	}

	desc := &EntityDescriptor{
		entityType: entityType,
		byKey:      make(map[componentKey]int, entityType.NumField()),
		stride:     entityType.Size(),
	}

	occurrences := make(map[reflect.Type]int, entityType.NumField())
	for i := 0; i < entityType.NumField(); i++ {
		field := entityType.Field(i)
		occ := occurrences[field.Type]
		occurrences[field.Type] = occ + 1

		desc.byKey[componentKey{typ: field.Type, occurrence: occ}] = len(desc.fields)
		desc.fields = append(desc.fields, ComponentField{
			Type:       field.Type,
			Offset:     field.Offset,
			Size:       field.Type.Size(),
			Occurrence: occ,
		})
	}

	desc.archetype = hashArchetype(desc.fields)
	return desc
}

// hashArchetype derives the archetype index from the canonical component
// list with FNV-1a.
func hashArchetype(fields []ComponentField) uint32 {
	var h uint32 = 2166136261
	const prime uint32 = 16777619
	for _, field := range fields {
		name := field.Type.PkgPath() + "." + field.Type.String()
		for i := 0; i < len(name); i++ {
			h ^= uint32(name[i])
			h *= prime
		}
		h ^= uint32(field.Occurrence)
		h *= prime
	}
	return h
}

// EntityType returns the archetype's tuple struct type.
func (d *EntityDescriptor) EntityType() reflect.Type {
	return d.entityType
}

// ArchetypeIndex returns the archetype's world-registry key.
func (d *EntityDescriptor) ArchetypeIndex() uint32 {
	return d.archetype
}

// Stride returns the byte size of one entity tuple.
func (d *EntityDescriptor) Stride() uintptr {
	return d.stride
}

// Fields returns the ordered component list.
func (d *EntityDescriptor) Fields() []ComponentField {
	return d.fields
}

// HasComponent reports whether the archetype contains the component type.
func (d *EntityDescriptor) HasComponent(typ reflect.Type) bool {
	_, ok := d.byKey[componentKey{typ: typ}]
	return ok
}

// OffsetOf returns the byte offset of the first occurrence of typ.
func (d *EntityDescriptor) OffsetOf(typ reflect.Type) (uintptr, bool) {
	return d.OffsetOfIndexed(typ, 0)
}

// OffsetOfIndexed returns the byte offset of the n-th occurrence of typ.
func (d *EntityDescriptor) OffsetOfIndexed(typ reflect.Type, occurrence int) (uintptr, bool) {
	idx, ok := d.byKey[componentKey{typ: typ, occurrence: occurrence}]
	if !ok {
		return 0, false
	}
	return d.fields[idx].Offset, true
}
