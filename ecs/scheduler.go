package ecs

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Task is one node of the scheduler's dependency graph. The thunk is
// optional: thunkless tasks exist purely as synchronisation points. A thunk
// returning true asks for the task's removal at end of tick.
type Task struct {
	sched *Scheduler
	thunk func() bool
	preds []*Task
	succs []*Task
	seq   int
	label string

	// Data is an opaque user slot; the system engine stores the owning
	// system here.
	Data any

	stats taskStatsInternal
}

// Label returns the task's display name, used in stats and logs.
func (t *Task) Label() string {
	if t.label == "" {
		return fmt.Sprintf("task-%d", t.seq)
	}
	return t.label
}

// SetLabel names the task for stats and logs.
func (t *Task) SetLabel(label string) {
	t.label = label
}

// Predecessors returns the tasks this task runs after.
func (t *Task) Predecessors() []*Task {
	return append([]*Task(nil), t.preds...)
}

// Successors returns the tasks that run after this task.
func (t *Task) Successors() []*Task {
	return append([]*Task(nil), t.succs...)
}

// SchedulerOption configures scheduler construction.
type SchedulerOption func(*Scheduler)

// WithSchedulerLogger attaches a structured logger for tick traces.
func WithSchedulerLogger(logger *zap.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Scheduler owns a directed acyclic task graph and executes it in
// topological order once per Tick. The order is recomputed lazily when the
// edge set changes; during a tick it is immutable.
type Scheduler struct {
	tasks      map[*Task]struct{}
	insertion  []*Task
	order      []*Task
	orderValid bool
	ticking    bool
	nextSeq    int
	tickIndex  uint64
	logger     *zap.Logger
}

// NewScheduler creates an empty scheduler.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		tasks:  make(map[*Task]struct{}),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTask adds a node with edges from each predecessor. Every
// predecessor must already be in the graph. The new node sorts after all
// its predecessors in the topological order.
func (s *Scheduler) CreateTask(thunk func() bool, preds ...*Task) (*Task, error) {
	for _, pred := range preds {
		if _, ok := s.tasks[pred]; !ok {
			return nil, fmt.Errorf("%w: predecessor %s", ErrUnknownTask, pred.Label())
		}
	}
	task := &Task{sched: s, thunk: thunk, seq: s.nextSeq}
	s.nextSeq++
	s.tasks[task] = struct{}{}
	s.insertion = append(s.insertion, task)
	for _, pred := range preds {
		task.preds = append(task.preds, pred)
		pred.succs = append(pred.succs, task)
	}
	s.orderValid = false
	return task, nil
}

// AddDependency draws an edge making task run after pred. An edge that
// would close a cycle fails with ErrCyclicDependency, leaving the graph
// unchanged.
func (s *Scheduler) AddDependency(task, pred *Task) error {
	if _, ok := s.tasks[task]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, task.Label())
	}
	if _, ok := s.tasks[pred]; !ok {
		return fmt.Errorf("%w: predecessor %s", ErrUnknownTask, pred.Label())
	}
	if task == pred || s.reaches(task, pred) {
		return fmt.Errorf("%w: %s -> %s", ErrCyclicDependency, pred.Label(), task.Label())
	}
	if containsTask(task.preds, pred) {
		return nil
	}
	task.preds = append(task.preds, pred)
	pred.succs = append(pred.succs, task)
	s.orderValid = false
	return nil
}

// reaches reports whether target is reachable from start along successor
// edges.
func (s *Scheduler) reaches(start, target *Task) bool {
	stack := []*Task{start}
	seen := map[*Task]struct{}{start: {}}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if current == target {
			return true
		}
		for _, succ := range current.succs {
			if _, ok := seen[succ]; !ok {
				seen[succ] = struct{}{}
				stack = append(stack, succ)
			}
		}
	}
	return false
}

// RemoveTask detaches a task with no successors from the graph.
func (s *Scheduler) RemoveTask(task *Task) error {
	if _, ok := s.tasks[task]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, task.Label())
	}
	if len(task.succs) > 0 {
		return fmt.Errorf("%w: %s has %d successors", ErrTaskDepended, task.Label(), len(task.succs))
	}
	for _, pred := range task.preds {
		pred.succs = removeTaskFrom(pred.succs, task)
	}
	task.preds = nil
	delete(s.tasks, task)
	s.insertion = removeTaskFrom(s.insertion, task)
	s.orderValid = false
	return nil
}

// Contains reports whether the task is in the graph.
func (s *Scheduler) Contains(task *Task) bool {
	_, ok := s.tasks[task]
	return ok
}

// TaskCount reports the number of tasks in the graph.
func (s *Scheduler) TaskCount() int {
	return len(s.tasks)
}

// TickIndex reports the number of completed ticks.
func (s *Scheduler) TickIndex() uint64 {
	return s.tickIndex
}

// Tick walks the graph in topological order once, running each thunk.
// Thunks returning true are removed at end of tick (kept if successors
// still exist). A panicking thunk aborts the tick: earlier tasks have
// executed, later tasks have not, and removal bookkeeping for the executed
// prefix still applies.
func (s *Scheduler) Tick() {
	if !s.orderValid {
		s.rebuildOrder()
	}
	snapshot := s.order
	start := time.Now()
	var selfRemoved []*Task

	s.ticking = true
	defer func() {
		s.ticking = false
		for _, task := range selfRemoved {
			if err := s.RemoveTask(task); err != nil {
				s.logger.Debug("self-removal deferred", zap.String("task", task.Label()), zap.Error(err))
			}
		}
		s.tickIndex++
		s.logger.Debug("tick complete",
			zap.Uint64("tick", s.tickIndex),
			zap.Int("tasks", len(snapshot)),
			zap.Duration("elapsed", time.Since(start)))
	}()

	for _, task := range snapshot {
		if task.thunk == nil {
			continue
		}
		taskStart := time.Now()
		remove := task.thunk()
		task.stats.record(time.Since(taskStart))
		if remove {
			selfRemoved = append(selfRemoved, task)
		}
	}
}

// rebuildOrder recomputes the topological order, stable with respect to
// task insertion sequence.
func (s *Scheduler) rebuildOrder() {
	indegree := make(map[*Task]int, len(s.insertion))
	for _, task := range s.insertion {
		indegree[task] = len(task.preds)
	}

	queue := make([]*Task, 0, len(s.insertion))
	for _, task := range s.insertion {
		if indegree[task] == 0 {
			queue = append(queue, task)
		}
	}

	order := make([]*Task, 0, len(s.insertion))
	for len(queue) > 0 {
		task := queue[0]
		queue = queue[1:]
		order = append(order, task)
		for _, succ := range task.succs {
			indegree[succ]--
			if indegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}

	s.order = order
	s.orderValid = true
}

func containsTask(tasks []*Task, target *Task) bool {
	for _, task := range tasks {
		if task == target {
			return true
		}
	}
	return false
}

func removeTaskFrom(tasks []*Task, target *Task) []*Task {
	for i, task := range tasks {
		if task == target {
			return append(tasks[:i], tasks[i+1:]...)
		}
	}
	return tasks
}
