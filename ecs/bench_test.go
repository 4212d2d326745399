package ecs_test

import (
	"testing"

	"github.com/plus3/quiver/ecs"
)

func BenchmarkAllocateRelease(b *testing.B) {
	for name, layout := range storageLayouts {
		b.Run(name, func(b *testing.B) {
			storage := ecs.NewStorage[Unit](layout)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				slot := storage.AllocateSlot()
				_ = storage.Release(slot)
			}
		})
	}
}

func BenchmarkGetComponent(b *testing.B) {
	world := ecs.NewWorld()
	host := ecs.AcquireHost[Unit](world)
	entity := host.CreateValue(Unit{Health: Health{Value: 100}})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		health, _ := ecs.Get[Health](entity)
		health.Value += 1
	}
}

func BenchmarkDispatchPerEntity(b *testing.B) {
	world := ecs.NewWorld()
	host := ecs.AcquireHost[Unit](world)
	entity := host.Create()
	d := world.Dispatcher()
	d.ListenEntity(entity, func(ecs.EntityRef, any) bool { return false })
	event := pingEvent{}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Send(entity, event)
	}
}

func BenchmarkQueryTick(b *testing.B) {
	world := ecs.NewWorld()
	sched := ecs.NewScheduler()
	clock := ecs.AcquireAddon[ecs.Clock](world)
	clock.DeltaTime = 0.016

	if _, err := ecs.RegisterSystem(world, sched, &HealthUpdateSystem{}); err != nil {
		b.Fatal(err)
	}

	host := ecs.AcquireHost[Creature](world)
	for i := 0; i < 1000; i++ {
		host.CreateValue(Creature{Health: Health{Value: 1e9, Debuff: 1}})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sched.Tick()
	}
}
