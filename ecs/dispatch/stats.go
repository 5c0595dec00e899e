package dispatch

import (
	"math"
	"time"
)

// Stats provides statistics about dispatcher execution.
type Stats struct {
	SystemCount      int
	FrameCount       uint64
	PhysicsStepCount uint64
	DroppedPhysicsDT float64
	TotalExecutions  int64
	TotalErrors      int64
	Systems          []SystemStats
}

// SystemStats provides execution statistics for a single system, summed
// over every phase it takes part in.
type SystemStats struct {
	Name           string
	ExecutionCount int64
	ErrorCount     int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
	LastError      error
}

type systemStats struct {
	name           string
	executionCount int64
	errorCount     int64
	minDuration    time.Duration
	maxDuration    time.Duration
	totalDuration  time.Duration
	lastDuration   time.Duration
	lastError      error
}

func newSystemStats(name string) *systemStats {
	return &systemStats{
		name:        name,
		minDuration: time.Duration(math.MaxInt64),
	}
}

func (s *systemStats) record(d time.Duration, err error) {
	s.executionCount++
	s.lastDuration = d
	s.totalDuration += d
	if d < s.minDuration {
		s.minDuration = d
	}
	if d > s.maxDuration {
		s.maxDuration = d
	}
	if err != nil {
		s.errorCount++
		s.lastError = err
	}
}

func (s *systemStats) snapshot() SystemStats {
	out := SystemStats{
		Name:           s.name,
		ExecutionCount: s.executionCount,
		ErrorCount:     s.errorCount,
		MaxDuration:    s.maxDuration,
		LastDuration:   s.lastDuration,
		TotalDuration:  s.totalDuration,
		LastError:      s.lastError,
	}
	if s.executionCount > 0 {
		out.MinDuration = s.minDuration
		out.AvgDuration = s.totalDuration / time.Duration(s.executionCount)
	}
	return out
}
