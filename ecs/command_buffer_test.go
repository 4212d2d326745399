package ecs_test

import (
	"sync"
	"testing"

	"github.com/plus3/quiver/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandBufferSubmitsInWriterOrder(t *testing.T) {
	world := ecs.NewWorld()
	host := ecs.AcquireHost[Unit](world)
	entity := host.Create()

	var order []float64
	ecs.ListenType[*SetPosition](world.Dispatcher(), func(_ ecs.EntityRef, event any) bool {
		order = append(order, event.(*SetPosition).X)
		return false
	})

	buf := ecs.NewCommandBuffer()
	first := buf.Writer()
	second := buf.Writer()

	second.Record(&SetPosition{X: 3}, entity)
	first.Record(&SetPosition{X: 1}, entity)
	first.Record(&SetPosition{X: 2}, entity)
	require.Equal(t, 3, buf.Len())

	require.NoError(t, buf.Submit(world))
	assert.Equal(t, []float64{1, 2, 3}, order)
	assert.Equal(t, 0, buf.Len())

	// The entity carries the last applied position.
	assert.Equal(t, 3.0, ecs.MustGet[Transform](entity).X)
}

// A panicking entry leaves unsubmitted entries queued; submitted entries
// stay submitted.
func TestCommandBufferPartialProgress(t *testing.T) {
	world := ecs.NewWorld()
	host := ecs.AcquireHost[Labelled](world)
	entity := host.Create()

	buf := ecs.NewCommandBuffer()
	writer := buf.Writer()

	writer.Record(&AddScore{Amount: 1}, entity)
	writer.Record(panicCommand{}, entity)
	writer.Record(&AddScore{Amount: 10}, entity)

	assert.Panics(t, func() { _ = buf.Submit(world) })

	// The first entry executed, the panicking entry was consumed, the
	// last entry remains for a retry.
	assert.Equal(t, Score(1), *ecs.MustGet[Score](entity))
	assert.Equal(t, 1, buf.Len())

	require.NoError(t, buf.Submit(world))
	assert.Equal(t, Score(11), *ecs.MustGet[Score](entity))
}

func TestCommandBufferStopsOnDeadTarget(t *testing.T) {
	world := ecs.NewWorld()
	host := ecs.AcquireHost[Labelled](world)
	alive := host.Create()
	dead := host.Create()
	require.NoError(t, world.Remove(dead))

	buf := ecs.NewCommandBuffer()
	writer := buf.Writer()
	writer.Record(&AddScore{Amount: 1}, dead)
	writer.Record(&AddScore{Amount: 2}, alive)

	err := buf.Submit(world)
	assert.ErrorIs(t, err, ecs.ErrEntityNotAlive)

	// The entry after the failure is untouched and submits cleanly.
	require.NoError(t, buf.Submit(world))
	assert.Equal(t, Score(2), *ecs.MustGet[Score](alive))
}

// Writers can be fed from worker goroutines; Submit drains them all on the
// calling goroutine.
func TestCommandBufferParallelWriters(t *testing.T) {
	world := ecs.NewWorld()
	host := ecs.AcquireHost[Labelled](world)
	entity := host.Create()

	buf := ecs.NewCommandBuffer()

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		writer := buf.Writer()
		wg.Add(1)
		go func(w *ecs.CommandWriter) {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				w.Record(&AddScore{Amount: 1}, entity)
			}
		}(writer)
	}
	wg.Wait()

	require.NoError(t, buf.Submit(world))
	assert.Equal(t, Score(workers*perWorker), *ecs.MustGet[Score](entity))
}

type panicCommand struct{}

func (panicCommand) Execute(*ecs.World, ecs.EntityRef) { panic("command failed") }
