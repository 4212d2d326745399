package ecs

import "sync"

type bufferedCommand struct {
	cmd    Command
	target EntityRef
}

// CommandWriter is one goroutine's private queue of deferred mutations.
// Writers are not safe for concurrent use; each worker takes its own from
// CommandBuffer.Writer.
type CommandWriter struct {
	entries []bufferedCommand
}

// Record queues a command against a target entity.
func (w *CommandWriter) Record(cmd Command, target EntityRef) {
	w.entries = append(w.entries, bufferedCommand{cmd: cmd, target: target})
}

// Len reports how many entries are queued.
func (w *CommandWriter) Len() int {
	return len(w.entries)
}

// CommandBuffer is a side-channel for deferred mutations, safe to feed from
// worker goroutines: each worker records into its own CommandWriter, and
// Submit drains all writers on the submitting goroutine at a safe point
// (typically a system's AfterExecute).
type CommandBuffer struct {
	mu      sync.Mutex
	writers []*CommandWriter
}

// NewCommandBuffer creates an empty buffer.
func NewCommandBuffer() *CommandBuffer {
	return &CommandBuffer{}
}

// Writer hands out a new private writer, recorded in creation order.
func (b *CommandBuffer) Writer() *CommandWriter {
	w := &CommandWriter{}
	b.mu.Lock()
	b.writers = append(b.writers, w)
	b.mu.Unlock()
	return w
}

// Len reports the total queued entries across all writers.
func (b *CommandBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, w := range b.writers {
		total += len(w.entries)
	}
	return total
}

// Submit drains all writers in creation order on the calling goroutine,
// executing each entry through World.Modify (execute, then the
// command-typed event). An entry that panics or errors leaves unsubmitted
// entries in place; already-submitted entries are not re-executed, so retry
// logic lives with the caller.
func (b *CommandBuffer) Submit(world *World) error {
	b.mu.Lock()
	writers := append([]*CommandWriter(nil), b.writers...)
	b.mu.Unlock()

	for _, w := range writers {
		for len(w.entries) > 0 {
			entry := w.entries[0]
			w.entries = w.entries[1:]
			if err := world.Modify(entry.target, entry.cmd); err != nil {
				return err
			}
		}
	}
	return nil
}
