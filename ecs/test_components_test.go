package ecs_test

import (
	"github.com/plus3/quiver/ecs"
)

// Shared component types used across the test suite.

type Position struct {
	X, Y float32
}

type Velocity struct {
	DX, DY float32
}

type Health struct {
	Value  float64
	Debuff float64
}

type Transform struct {
	X, Y float64
}

type Name string

type Score int

// Archetype tuples.

type Mover struct {
	Position Position
	Velocity Velocity
}

type Creature struct {
	Health Health
}

type Unit struct {
	Transform Transform
	Health    Health
}

type Labelled struct {
	Name  Name
	Score Score
}

// SetPosition is a command that moves a Unit; it doubles as the trigger
// event for reactive position rules.
type SetPosition struct {
	X, Y float64
}

func (c *SetPosition) Execute(_ *ecs.World, target ecs.EntityRef) {
	if transform := ecs.GetOrNil[Transform](target); transform != nil {
		transform.X = c.X
		transform.Y = c.Y
	}
}

// AddScore is a pooled command used by pooling and command-buffer tests.
type AddScore struct {
	Amount   Score
	pool     *ecs.CommandPool[AddScore]
	released *int
}

func (c *AddScore) Execute(_ *ecs.World, target ecs.EntityRef) {
	if score := ecs.GetOrNil[Score](target); score != nil {
		*score += c.Amount
	}
}

func (c *AddScore) Release() {
	if c.released != nil {
		*c.released++
	}
	if c.pool != nil {
		c.pool.Put(c)
	}
}

func (c *AddScore) Reset() {
	c.Amount = 0
}
