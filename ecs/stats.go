package ecs

import "time"

// SchedulerStats provides statistics about task execution.
type SchedulerStats struct {
	TaskCount       int
	TotalExecutions int64
	Tasks           []TaskStats
}

// TaskStats provides execution statistics for a single task.
type TaskStats struct {
	Name           string
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

type taskStatsInternal struct {
	executionCount int64
	minDuration    time.Duration
	maxDuration    time.Duration
	totalDuration  time.Duration
	lastDuration   time.Duration
}

func (s *taskStatsInternal) record(duration time.Duration) {
	if s.executionCount == 0 || duration < s.minDuration {
		s.minDuration = duration
	}
	if duration > s.maxDuration {
		s.maxDuration = duration
	}
	s.executionCount++
	s.lastDuration = duration
	s.totalDuration += duration
}

// Stats returns execution statistics for every task in the graph, in
// insertion order. Thunkless tasks report zero executions.
func (s *Scheduler) Stats() *SchedulerStats {
	stats := &SchedulerStats{
		TaskCount: len(s.insertion),
		Tasks:     make([]TaskStats, 0, len(s.insertion)),
	}

	for _, task := range s.insertion {
		internal := task.stats
		avgDuration := time.Duration(0)
		if internal.executionCount > 0 {
			avgDuration = internal.totalDuration / time.Duration(internal.executionCount)
		}
		stats.Tasks = append(stats.Tasks, TaskStats{
			Name:           task.Label(),
			ExecutionCount: internal.executionCount,
			MinDuration:    internal.minDuration,
			MaxDuration:    internal.maxDuration,
			AvgDuration:    avgDuration,
			LastDuration:   internal.lastDuration,
			TotalDuration:  internal.totalDuration,
		})
		stats.TotalExecutions += internal.executionCount
	}

	return stats
}
