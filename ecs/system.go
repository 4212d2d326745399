package ecs

import (
	"fmt"
	"reflect"
)

// System is a unit of behavior with read-only configuration. Children nest
// lifetimes under this system, Dependencies order its task after theirs,
// Matcher selects which archetypes it sees, and Triggers/Filters are the
// event types that grow and shrink its pending group.
//
// Embed SystemBase to get no-op defaults for everything.
type System interface {
	Children() []System
	Dependencies() []System
	Matcher() Matcher
	Triggers() []any
	Filters() []any

	Initialize(w *World, s *Scheduler)
	Uninitialize(w *World, s *Scheduler)
	BeforeExecute(w *World, s *Scheduler)
	Execute(w *World, s *Scheduler, entity EntityRef)
	AfterExecute(w *World, s *Scheduler)

	// OnTriggerEvent decides whether a trigger event admits the target
	// into the pending group.
	OnTriggerEvent(entity EntityRef, event any) bool
	// OnFilterEvent decides whether a filter event evicts the target from
	// the pending group.
	OnFilterEvent(entity EntityRef, event any) bool
}

// SystemBase provides no-op defaults for the System interface.
type SystemBase struct{}

func (SystemBase) Children() []System                    { return nil }
func (SystemBase) Dependencies() []System                { return nil }
func (SystemBase) Matcher() Matcher                      { return nil }
func (SystemBase) Triggers() []any                       { return nil }
func (SystemBase) Filters() []any                        { return nil }
func (SystemBase) Initialize(*World, *Scheduler)         {}
func (SystemBase) Uninitialize(*World, *Scheduler)       {}
func (SystemBase) BeforeExecute(*World, *Scheduler)      {}
func (SystemBase) Execute(*World, *Scheduler, EntityRef) {}
func (SystemBase) AfterExecute(*World, *Scheduler)       {}
func (SystemBase) OnTriggerEvent(EntityRef, any) bool    { return true }
func (SystemBase) OnFilterEvent(EntityRef, any) bool     { return true }

// SystemHandle owns one registration of a system onto a (world, scheduler)
// pair. Disposing it tears down listeners, disposes children in reverse
// order, uninitialises the system and removes the task.
type SystemHandle struct {
	system System
	world  *World
	sched  *Scheduler
	task   *Task

	children      []*SystemHandle
	cancels       []func()
	entityCancels map[uint64]func()
	query         *Query
	group         *pendingGroup

	cancelOnDisposed func()
	disposed         bool
}

// System returns the registered system.
func (h *SystemHandle) System() System { return h.system }

// Task returns the scheduler node created at registration.
func (h *SystemHandle) Task() *Task { return h.task }

// Disposed reports whether the handle has been disposed.
func (h *SystemHandle) Disposed() bool { return h.disposed }

// Dispose tears the registration down: the system entry is unregistered,
// reactive listeners are cancelled, children are disposed in reverse order,
// the system is uninitialised and the task is removed. A second call fails
// with ErrHandleDisposed.
func (h *SystemHandle) Dispose() error {
	if h.disposed {
		return ErrHandleDisposed
	}
	h.disposed = true
	if h.cancelOnDisposed != nil {
		h.cancelOnDisposed()
	}
	h.teardown()
	return nil
}

func (h *SystemHandle) teardown() {
	delete(h.world.systems, h.system)
	for _, cancel := range h.cancels {
		cancel()
	}
	h.cancels = nil
	for _, cancel := range h.entityCancels {
		cancel()
	}
	h.entityCancels = nil
	if h.query != nil {
		h.query.Close()
	}
	for i := len(h.children) - 1; i >= 0; i-- {
		if !h.children[i].disposed {
			h.children[i].disposed = true
			if h.children[i].cancelOnDisposed != nil {
				h.children[i].cancelOnDisposed()
			}
			h.children[i].teardown()
		}
	}
	h.system.Uninitialize(h.world, h.sched)
	if h.sched.Contains(h.task) {
		if err := h.sched.RemoveTask(h.task); err != nil {
			panic(fmt.Sprintf("ecs: system task removal: %v", err))
		}
	}
	h.world = nil
}

// RegisterSystem registers a system onto a (world, scheduler) pair, wiring
// its matcher, triggers, filters, dependency edges and children, and
// returns a disposable handle.
func RegisterSystem(w *World, s *Scheduler, sys System) (*SystemHandle, error) {
	return registerSystem(w, s, sys, nil)
}

func registerSystem(w *World, s *Scheduler, sys System, extraPreds []*Task) (*SystemHandle, error) {
	if w.Disposed() {
		return nil, ErrWorldDisposed
	}
	if _, exists := w.systems[sys]; exists {
		return nil, fmt.Errorf("%w: %s", ErrSystemAlreadyRegistered, systemName(sys))
	}

	predTasks := append([]*Task(nil), extraPreds...)
	for _, dep := range sys.Dependencies() {
		depHandle, ok := w.systems[dep]
		if !ok || depHandle.sched != s {
			return nil, fmt.Errorf("%w: %s depends on unregistered %s",
				ErrInvalidSystemDependency, systemName(sys), systemName(dep))
		}
		predTasks = append(predTasks, depHandle.task)
	}

	triggers := eventTypeSet(sys.Triggers())
	filters := eventTypeSet(sys.Filters())
	if len(triggers) == 0 && len(filters) > 0 {
		return nil, fmt.Errorf("%w: %s declares filters without triggers",
			ErrInvalidSystemAttribute, systemName(sys))
	}

	handle := &SystemHandle{
		system:        sys,
		world:         w,
		sched:         s,
		entityCancels: make(map[uint64]func()),
	}

	// Execution mode: reactive when triggers are declared, query-driven
	// when only a matcher is, passive otherwise (thunkless task acting as
	// a synchronisation point for children).
	var thunk func() bool
	switch {
	case len(triggers) > 0:
		handle.group = newPendingGroup()
		thunk = handle.reactiveThunk()
	case !isNone(sys.Matcher()):
		handle.query = w.Query(sys.Matcher())
		thunk = handle.queryThunk()
	}

	task, err := s.CreateTask(thunk, predTasks...)
	if err != nil {
		if handle.query != nil {
			handle.query.Close()
		}
		return nil, err
	}
	task.Data = sys
	task.SetLabel(systemName(sys))
	handle.task = task

	if len(triggers) > 0 {
		handle.wireReactive(triggers, filters)
	}

	w.systems[sys] = handle
	sys.Initialize(w, s)

	for _, child := range sys.Children() {
		childHandle, childErr := registerSystem(w, s, child, []*Task{task})
		if childErr != nil {
			for i := len(handle.children) - 1; i >= 0; i-- {
				_ = handle.children[i].Dispose()
			}
			handle.children = nil
			handle.teardown()
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSystemChild, systemName(child), childErr)
		}
		handle.children = append(handle.children, childHandle)
	}

	handle.cancelOnDisposed = w.OnDisposed(func(*World) {
		if !handle.disposed {
			handle.disposed = true
			handle.teardown()
		}
	})
	return handle, nil
}

// queryThunk iterates the live query each tick.
func (h *SystemHandle) queryThunk() func() bool {
	return func() bool {
		h.system.BeforeExecute(h.world, h.sched)
		for entity := range h.query.Iter() {
			h.system.Execute(h.world, h.sched, entity)
		}
		h.system.AfterExecute(h.world, h.sched)
		return false
	}
}

// reactiveThunk consumes the pending group. The group length is re-read
// each iteration so reentrant additions during consumption are picked up;
// the group is cleared afterwards.
func (h *SystemHandle) reactiveThunk() func() bool {
	return func() bool {
		h.system.BeforeExecute(h.world, h.sched)
		for i := 0; i < h.group.len(); i++ {
			entity, ok := h.group.at(i)
			if !ok {
				continue
			}
			h.system.Execute(h.world, h.sched, entity)
		}
		h.group.clear()
		h.system.AfterExecute(h.world, h.sched)
		return false
	}
}

var (
	entityAddedType   = reflect.TypeOf(EntityAddedEvent{})
	entityRemovedType = reflect.TypeOf(EntityRemovedEvent{})
)

// wireReactive installs the listeners maintaining the pending group:
// per-entity listeners attach on WorldEvents.Add for entities matching the
// matcher (and to already-live matching entities), and detach on
// WorldEvents.Remove.
func (h *SystemHandle) wireReactive(triggers, filters map[reflect.Type]struct{}) {
	matcher := h.system.Matcher()
	if isNone(matcher) {
		matcher = Any()
	}

	entityListener := func(target EntityRef, event any) bool {
		eventType := reflect.TypeOf(event)
		if eventType == entityRemovedType {
			// Remove always evicts the target, unless Remove itself is
			// a trigger; either way the per-entity listener detaches.
			if _, isTrigger := triggers[entityRemovedType]; isTrigger {
				if h.system.OnTriggerEvent(target, event) {
					h.group.add(target)
				}
			} else {
				h.group.remove(target)
			}
			delete(h.entityCancels, target.Key())
			return true
		}
		if _, isFilter := filters[eventType]; isFilter {
			if h.system.OnFilterEvent(target, event) {
				h.group.remove(target)
			}
			return false
		}
		if _, isTrigger := triggers[eventType]; isTrigger {
			if h.system.OnTriggerEvent(target, event) {
				h.group.add(target)
			}
		}
		return false
	}

	attach := func(target EntityRef) {
		// A fan-out that began before disposal still reaches this listener.
		if h.disposed {
			return
		}
		key := target.Key()
		if _, attached := h.entityCancels[key]; attached {
			return
		}
		h.entityCancels[key] = h.world.Dispatcher().ListenEntity(target, entityListener)
	}

	cancel := ListenType[EntityAddedEvent](h.world.Dispatcher(), func(target EntityRef, event any) bool {
		if target.Host() == nil || !matcher.Match(target.Host().Descriptor()) {
			return false
		}
		attach(target)
		// The listener above was added during this fan-out, so it will
		// not observe the in-flight Add; feed it through directly when
		// Add is a trigger.
		_, isFilter := filters[entityAddedType]
		if _, isTrigger := triggers[entityAddedType]; isTrigger && !isFilter {
			if h.system.OnTriggerEvent(target, event) {
				h.group.add(target)
			}
		}
		return false
	})
	h.cancels = append(h.cancels, cancel)

	// Entities already live at registration get their listeners too; they
	// enter the group on their next trigger event.
	for host := range h.world.Hosts() {
		if !matcher.Match(host.Descriptor()) {
			continue
		}
		for slot := range host.Slots() {
			attach(EntityRef{host: host, slot: slot})
		}
	}
}

// pendingGroup is the ordered entity set a reactive system consumes each
// tick. Removal tombstones the entry so in-flight iteration stays
// structurally stable.
type pendingGroup struct {
	entries []EntityRef
	index   map[uint64]int
}

func newPendingGroup() *pendingGroup {
	return &pendingGroup{index: make(map[uint64]int)}
}

func (g *pendingGroup) add(entity EntityRef) {
	key := entity.Key()
	if _, ok := g.index[key]; ok {
		return
	}
	g.index[key] = len(g.entries)
	g.entries = append(g.entries, entity)
}

func (g *pendingGroup) remove(entity EntityRef) {
	key := entity.Key()
	pos, ok := g.index[key]
	if !ok {
		return
	}
	g.entries[pos] = EntityRef{}
	delete(g.index, key)
}

func (g *pendingGroup) len() int {
	return len(g.entries)
}

func (g *pendingGroup) at(i int) (EntityRef, bool) {
	entity := g.entries[i]
	return entity, entity.Host() != nil
}

func (g *pendingGroup) clear() {
	g.entries = g.entries[:0]
	clear(g.index)
}

func eventTypeSet(events []any) map[reflect.Type]struct{} {
	if len(events) == 0 {
		return nil
	}
	set := make(map[reflect.Type]struct{}, len(events))
	for _, event := range events {
		set[reflect.TypeOf(event)] = struct{}{}
	}
	return set
}

func systemName(sys System) string {
	t := reflect.TypeOf(sys)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}
