package ecs_test

import (
	"reflect"
	"testing"

	"github.com/plus3/quiver/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireHostIsIdempotent(t *testing.T) {
	world := ecs.NewWorld()

	first := ecs.AcquireHost[Mover](world)
	second := ecs.AcquireHost[Mover](world)
	assert.Same(t, first, second)

	other := ecs.AcquireHost[Creature](world)
	assert.NotEqual(t, first.ArchetypeIndex(), other.ArchetypeIndex())

	found, ok := world.HostByArchetype(first.ArchetypeIndex())
	require.True(t, ok)
	assert.Equal(t, ecs.EntityHost(first), found)
}

func TestWorldCount(t *testing.T) {
	world := ecs.NewWorld()
	movers := ecs.AcquireHost[Mover](world)
	creatures := ecs.AcquireHost[Creature](world)

	a := movers.Create()
	movers.Create()
	creatures.Create()
	assert.Equal(t, 3, world.Count())
	assert.Equal(t, 2, movers.Count())

	require.NoError(t, world.Remove(a))
	assert.Equal(t, 2, world.Count())
}

func TestWorldAddReannounces(t *testing.T) {
	world := ecs.NewWorld()
	host := ecs.AcquireHost[Mover](world)
	entity := host.Create()

	adds := 0
	ecs.ListenType[ecs.EntityAddedEvent](world.Dispatcher(), func(ecs.EntityRef, any) bool {
		adds++
		return false
	})

	require.NoError(t, world.Add(entity))
	assert.Equal(t, 1, adds)

	require.NoError(t, world.Remove(entity))
	assert.ErrorIs(t, world.Add(entity), ecs.ErrEntityNotAlive)
}

func TestModifyExecutesThenDispatches(t *testing.T) {
	world := ecs.NewWorld()
	host := ecs.AcquireHost[Unit](world)
	entity := host.Create()

	var positionAtDispatch Transform
	ecs.ListenType[*SetPosition](world.Dispatcher(), func(target ecs.EntityRef, event any) bool {
		// The command has already executed when its event arrives.
		positionAtDispatch = *ecs.MustGet[Transform](target)
		return false
	})

	require.NoError(t, world.Modify(entity, &SetPosition{X: 5, Y: 6}))
	assert.Equal(t, Transform{X: 5, Y: 6}, positionAtDispatch)
	assert.Equal(t, Transform{X: 5, Y: 6}, *ecs.MustGet[Transform](entity))
}

func TestModifyReleasesPooledCommands(t *testing.T) {
	world := ecs.NewWorld()
	host := ecs.AcquireHost[Labelled](world)
	entity := host.Create()

	pool := ecs.NewCommandPool[AddScore]()
	released := 0

	cmd := pool.Acquire()
	cmd.Amount = 5
	cmd.pool = pool
	cmd.released = &released

	require.NoError(t, world.Modify(entity, cmd))
	assert.Equal(t, Score(5), *ecs.MustGet[Score](entity))
	assert.Equal(t, 1, released)

	// The pool reset hook cleared the payload for reuse.
	reused := pool.Acquire()
	assert.Equal(t, Score(0), reused.Amount)
}

func TestAddons(t *testing.T) {
	world := ecs.NewWorld()

	clock := ecs.AcquireAddon[ecs.Clock](world)
	clock.DeltaTime = 0.25

	again := ecs.AcquireAddon[ecs.Clock](world)
	assert.Same(t, clock, again)
	assert.Equal(t, 0.25, again.DeltaTime)

	got, ok := ecs.GetAddon[ecs.Clock](world)
	require.True(t, ok)
	assert.Same(t, clock, got)

	_, ok = ecs.GetAddon[Score](world)
	assert.False(t, ok)
}

type attachAware struct {
	world *ecs.World
}

func (a *attachAware) OnAttach(w *ecs.World) { a.world = w }

func TestAddonAttachHook(t *testing.T) {
	world := ecs.NewWorld()
	addon := ecs.AcquireAddon[attachAware](world)
	assert.Same(t, world, addon.world)
}

func TestClearEmptyHosts(t *testing.T) {
	world := ecs.NewWorld()
	movers := ecs.AcquireHost[Mover](world)
	ecs.AcquireHost[Creature](world)

	entity := movers.Create()

	var removed []uint32
	world.OnEntityHostRemoved(func(host ecs.EntityHost) {
		removed = append(removed, host.ArchetypeIndex())
	})

	world.ClearEmptyHosts()
	assert.Equal(t, []uint32{ecs.DescriptorFor[Creature]().ArchetypeIndex()}, removed)

	_, ok := world.HostByArchetype(ecs.DescriptorFor[Creature]().ArchetypeIndex())
	assert.False(t, ok)
	_, ok = world.HostByArchetype(movers.ArchetypeIndex())
	assert.True(t, ok)

	require.NoError(t, world.Remove(entity))
	world.ClearEmptyHosts()
	assert.Len(t, removed, 2)
}

func TestDispose(t *testing.T) {
	world := ecs.NewWorld()
	host := ecs.AcquireHost[Creature](world)
	entity := host.CreateValue(Creature{Health: Health{Value: 9}})

	disposedFired := 0
	world.OnDisposed(func(*ecs.World) { disposedFired++ })

	releases := 0
	host.OnEntityReleased(func(ecs.EntityRef) { releases++ })

	world.Dispose()
	assert.Equal(t, 1, disposedFired)
	assert.Equal(t, 1, releases)
	assert.Equal(t, 0, world.Count())
	assert.True(t, world.Disposed())
	assert.False(t, entity.IsValid())

	// Idempotent; further mutation is refused.
	world.Dispose()
	assert.Equal(t, 1, disposedFired)
	assert.ErrorIs(t, world.Send(ecs.EntityRef{}, pingEvent{}), ecs.ErrWorldDisposed)
	assert.ErrorIs(t, world.Remove(entity), ecs.ErrWorldDisposed)
}

func TestQueryTracksHostsReactively(t *testing.T) {
	world := ecs.NewWorld()
	units := ecs.AcquireHost[Unit](world)
	pre := units.Create()

	query := world.Query(ecs.HasComponent[Health]())
	assert.Equal(t, 1, query.Count())

	// Entities created after the query join it.
	post := units.Create()
	assert.Equal(t, 2, query.Count())

	// Hosts created after the query are matched once, then tracked.
	creatures := ecs.AcquireHost[Creature](world)
	c := creatures.Create()
	assert.Equal(t, 3, query.Count())

	// Non-matching hosts stay invisible.
	ecs.AcquireHost[Mover](world).Create()
	assert.Equal(t, 3, query.Count())

	require.NoError(t, world.Remove(post))
	assert.Equal(t, 2, query.Count())

	seen := map[uint64]bool{}
	for entity := range query.Iter() {
		seen[entity.Key()] = true
	}
	assert.True(t, seen[pre.Key()])
	assert.True(t, seen[c.Key()])

	query.Close()
	creatures.Create()
	assert.Equal(t, 2, query.Count())
}

func TestQueryMatcherAlgebra(t *testing.T) {
	unitDesc := ecs.DescriptorFor[Unit]()
	moverDesc := ecs.DescriptorFor[Mover]()

	withHealth := ecs.HasComponent[Health]()
	withPosition := ecs.HasComponent[Position]()

	assert.True(t, withHealth.Match(unitDesc))
	assert.False(t, withHealth.Match(moverDesc))

	assert.True(t, ecs.Or(withHealth, withPosition).Match(moverDesc))
	assert.False(t, ecs.And(withHealth, withPosition).Match(moverDesc))
	assert.True(t, ecs.Not(withHealth).Match(moverDesc))
	assert.True(t, ecs.Any().Match(moverDesc))
	assert.False(t, ecs.None().Match(moverDesc))
	assert.True(t, ecs.HasAll(
		reflect.TypeFor[Transform](), reflect.TypeFor[Health]()).Match(unitDesc))
}
