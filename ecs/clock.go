package ecs

// Clock is the conventional addon carrying the host loop's time step.
// The embedding program sets DeltaTime before each Scheduler.Tick; systems
// read it through AcquireAddon[Clock].
type Clock struct {
	DeltaTime float64
}
