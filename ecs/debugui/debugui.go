// Package debugui provides immediate-mode GUI inspectors for ECS worlds
// using Dear ImGui: an entity browser over hosts, a component inspector
// driven by archetype descriptors, and a performance panel over scheduler
// stats.
package debugui

import (
	"github.com/plus3/quiver/ecs"
)

// Inspector bundles the debug panels over one world and scheduler.
// Construct it once and call Render from the host loop while an ImGui
// frame is open.
type Inspector struct {
	Browser   EntityBrowser
	Component ComponentInspector
	Stats     PerformanceStats
}

// NewInspector creates an inspector with default panel settings.
func NewInspector() *Inspector {
	return &Inspector{
		Browser:   NewEntityBrowser(100),
		Component: NewComponentInspector(),
		Stats:     NewPerformanceStats(120),
	}
}

// Render draws all panels. deltaTime is the host loop's frame time in
// seconds.
func (in *Inspector) Render(world *ecs.World, sched *ecs.Scheduler, deltaTime float32) {
	in.Browser.Render(world)
	in.Component.Render(world, in.Browser.Selected())
	in.Stats.Render(world, sched, deltaTime)
}
