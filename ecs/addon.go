package ecs

import "reflect"

// WorldAddon is an optional hook for addons that need the world at
// attachment time.
type WorldAddon interface {
	OnAttach(w *World)
}

// AcquireAddon returns the world's singleton of type T, creating and
// attaching it on first demand. Addons live until the world is disposed.
func AcquireAddon[T any](w *World) *T {
	typ := reflect.TypeFor[T]()
	if existing, ok := w.addons[typ]; ok {
		return existing.(*T)
	}
	addon := new(T)
	w.addons[typ] = addon
	if hooked, ok := any(addon).(WorldAddon); ok {
		hooked.OnAttach(w)
	}
	return addon
}

// GetAddon returns the world's singleton of type T without creating it.
func GetAddon[T any](w *World) (*T, bool) {
	if existing, ok := w.addons[reflect.TypeFor[T]()]; ok {
		return existing.(*T), true
	}
	return nil, false
}
