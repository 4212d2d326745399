package ecs_test

import (
	"fmt"

	"github.com/plus3/quiver/ecs"
)

// MovementSystem integrates velocity into position every tick.
type MovementSystem struct {
	ecs.SystemBase
}

func (s *MovementSystem) Matcher() ecs.Matcher {
	return ecs.And(ecs.HasComponent[Position](), ecs.HasComponent[Velocity]())
}

func (s *MovementSystem) Execute(w *ecs.World, _ *ecs.Scheduler, entity ecs.EntityRef) {
	clock := ecs.AcquireAddon[ecs.Clock](w)
	pos := ecs.MustGet[Position](entity)
	vel := ecs.MustGet[Velocity](entity)
	pos.X += vel.DX * float32(clock.DeltaTime)
	pos.Y += vel.DY * float32(clock.DeltaTime)
}

func Example_movement() {
	world := ecs.NewWorld()
	sched := ecs.NewScheduler()
	defer world.Dispose()

	clock := ecs.AcquireAddon[ecs.Clock](world)
	clock.DeltaTime = 1

	if _, err := ecs.RegisterSystem(world, sched, &MovementSystem{}); err != nil {
		panic(err)
	}

	host := ecs.AcquireHost[Mover](world)
	entity := host.CreateValue(Mover{
		Position: Position{X: 0, Y: 0},
		Velocity: Velocity{DX: 1, DY: 2},
	})

	sched.Tick()
	sched.Tick()

	pos := ecs.MustGet[Position](entity)
	fmt.Printf("(%.0f, %.0f)\n", pos.X, pos.Y)
	// Output: (2, 4)
}

func Example_reactive() {
	world := ecs.NewWorld()
	sched := ecs.NewScheduler()
	defer world.Dispose()

	sys := &LocationDamageSystem{}
	if _, err := ecs.RegisterSystem(world, sched, sys); err != nil {
		panic(err)
	}

	host := ecs.AcquireHost[Unit](world)
	entity := host.CreateValue(Unit{
		Transform: Transform{X: 1, Y: 1},
		Health:    Health{Value: 100},
	})

	sched.Tick()
	fmt.Printf("health %.0f\n", ecs.MustGet[Health](entity).Value)
	// Output: health 90
}
