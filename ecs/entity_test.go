package ecs_test

import (
	"reflect"
	"testing"
	"unsafe"

	"github.com/plus3/quiver/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorOffsets(t *testing.T) {
	desc := ecs.DescriptorFor[Mover]()

	assert.Equal(t, reflect.TypeFor[Mover](), desc.EntityType())
	assert.Equal(t, reflect.TypeFor[Mover]().Size(), desc.Stride())

	posOffset, ok := desc.OffsetOf(reflect.TypeFor[Position]())
	require.True(t, ok)
	velOffset, ok := desc.OffsetOf(reflect.TypeFor[Velocity]())
	require.True(t, ok)

	var zero Mover
	zeroType := reflect.TypeOf(zero)
	assert.Equal(t, zeroType.Field(0).Offset, posOffset)
	assert.Equal(t, zeroType.Field(1).Offset, velOffset)

	assert.True(t, desc.HasComponent(reflect.TypeFor[Position]()))
	assert.False(t, desc.HasComponent(reflect.TypeFor[Health]()))
}

func TestDescriptorMemoised(t *testing.T) {
	assert.Same(t, ecs.DescriptorFor[Mover](), ecs.DescriptorFor[Mover]())
	assert.NotEqual(t,
		ecs.DescriptorFor[Mover]().ArchetypeIndex(),
		ecs.DescriptorFor[Creature]().ArchetypeIndex())
}

func TestDescriptorRepeatedComponentType(t *testing.T) {
	type Span struct {
		Start Position
		End   Position
	}
	desc := ecs.DescriptorFor[Span]()

	first, ok := desc.OffsetOfIndexed(reflect.TypeFor[Position](), 0)
	require.True(t, ok)
	second, ok := desc.OffsetOfIndexed(reflect.TypeFor[Position](), 1)
	require.True(t, ok)
	assert.NotEqual(t, first, second)

	_, ok = desc.OffsetOfIndexed(reflect.TypeFor[Position](), 2)
	assert.False(t, ok)
}

func TestGetComponent(t *testing.T) {
	world := ecs.NewWorld()
	host := ecs.AcquireHost[Mover](world)

	entity := host.CreateValue(Mover{
		Position: Position{X: 3, Y: 4},
		Velocity: Velocity{DX: 0.5, DY: 0.5},
	})

	pos, err := ecs.Get[Position](entity)
	require.NoError(t, err)
	assert.Equal(t, Position{X: 3, Y: 4}, *pos)

	vel, err := ecs.Get[Velocity](entity)
	require.NoError(t, err)
	assert.Equal(t, Velocity{DX: 0.5, DY: 0.5}, *vel)
}

// Component access on an archetype lacking the component fails with
// ErrComponentNotFound and mutates nothing.
func TestGetComponentNotFound(t *testing.T) {
	world := ecs.NewWorld()
	host := ecs.AcquireHost[Mover](world)
	entity := host.CreateValue(Mover{Position: Position{X: 1}})

	_, err := ecs.Get[Health](entity)
	assert.ErrorIs(t, err, ecs.ErrComponentNotFound)
	assert.Nil(t, ecs.GetOrNil[Health](entity))

	// No storage mutation occurred.
	pos, err := ecs.Get[Position](entity)
	require.NoError(t, err)
	assert.Equal(t, Position{X: 1}, *pos)
	assert.Equal(t, 1, world.Count())
}

// Component references are stable addresses until release, and writes
// through them are visible to subsequent reads.
func TestComponentAddressStability(t *testing.T) {
	world := ecs.NewWorld()
	host := ecs.AcquireHost[Unit](world, ecs.WithSparseStorage(0))

	entity := host.CreateValue(Unit{Health: Health{Value: 100}})

	health, err := ecs.Get[Health](entity)
	require.NoError(t, err)
	health.Value = 55

	again, err := ecs.Get[Health](entity)
	require.NoError(t, err)
	assert.Same(t, health, again)
	assert.Equal(t, 55.0, again.Value)

	// Sparse storages never relocate; the address survives growth too.
	for i := 0; i < 512; i++ {
		host.Create()
	}
	after, err := ecs.Get[Health](entity)
	require.NoError(t, err)
	assert.Same(t, health, after)
}

func TestGetAfterRelease(t *testing.T) {
	world := ecs.NewWorld()
	host := ecs.AcquireHost[Mover](world)
	entity := host.Create()

	require.NoError(t, world.Remove(entity))
	assert.False(t, entity.IsValid())

	_, err := ecs.Get[Position](entity)
	assert.ErrorIs(t, err, ecs.ErrInvalidSlot)
}

func TestGetIndexed(t *testing.T) {
	type Span struct {
		Start Position
		End   Position
	}
	world := ecs.NewWorld()
	host := ecs.AcquireHost[Span](world)
	entity := host.CreateValue(Span{Start: Position{X: 1}, End: Position{X: 2}})

	start, err := ecs.GetIndexed[Position](entity, 0)
	require.NoError(t, err)
	end, err := ecs.GetIndexed[Position](entity, 1)
	require.NoError(t, err)

	assert.Equal(t, float32(1), start.X)
	assert.Equal(t, float32(2), end.X)
}

func TestVisitComponents(t *testing.T) {
	world := ecs.NewWorld()
	host := ecs.AcquireHost[Unit](world)
	entity := host.CreateValue(Unit{Transform: Transform{X: 1, Y: 2}, Health: Health{Value: 10}})

	var visited []reflect.Type
	err := entity.Host().VisitComponents(entity.Slot(), func(typ reflect.Type, _ unsafe.Pointer) bool {
		visited = append(visited, typ)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []reflect.Type{reflect.TypeFor[Transform](), reflect.TypeFor[Health]()}, visited)
}
