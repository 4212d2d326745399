package ecs

import "errors"

var (
	// ErrComponentNotFound signals typed access to a component the entity's archetype lacks.
	ErrComponentNotFound = errors.New("ecs: component not found in archetype")
	// ErrInvalidSlot is returned when a storage operation receives a released or never-allocated slot.
	ErrInvalidSlot = errors.New("ecs: invalid storage slot")
	// ErrSystemAlreadyRegistered indicates a system instance was registered twice on the same world.
	ErrSystemAlreadyRegistered = errors.New("ecs: system already registered")
	// ErrInvalidSystemDependency indicates a declared dependency is not registered on the same world and scheduler.
	ErrInvalidSystemDependency = errors.New("ecs: invalid system dependency")
	// ErrInvalidSystemChild wraps a child registration failure during composite registration.
	ErrInvalidSystemChild = errors.New("ecs: invalid system child")
	// ErrInvalidSystemAttribute indicates an inconsistent system configuration, e.g. a filter without a trigger.
	ErrInvalidSystemAttribute = errors.New("ecs: invalid system attribute")
	// ErrTaskDepended is returned when removing a task that still has successors.
	ErrTaskDepended = errors.New("ecs: task has dependent successors")
	// ErrUnknownTask indicates a predecessor that is not part of the task graph.
	ErrUnknownTask = errors.New("ecs: task not in graph")
	// ErrCyclicDependency indicates an edge that would close a cycle in the task graph.
	ErrCyclicDependency = errors.New("ecs: cyclic task dependency")
	// ErrWorldDisposed signals use of a world after Dispose.
	ErrWorldDisposed = errors.New("ecs: world disposed")
	// ErrHandleDisposed signals use of a system handle after Dispose.
	ErrHandleDisposed = errors.New("ecs: handle disposed")
	// ErrEntityNotAlive signals an operation on an entity whose slot has been released.
	ErrEntityNotAlive = errors.New("ecs: entity not alive")
	// ErrBufferLengthMismatch is returned by Write when slots and values differ in length.
	ErrBufferLengthMismatch = errors.New("ecs: slot and value buffer lengths differ")
)
