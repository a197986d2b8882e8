package stats

import (
	"time"
)

// Defines the calls we make to the stdlib time package. Allows for overriding in tests.
type StatsTime interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

type defaultStatsTime struct{}

func (defaultStatsTime) Now() time.Time                  { return time.Now() }
func (defaultStatsTime) Since(t time.Time) time.Duration { return time.Since(t) }

// Returns a StatsTime instance backed by the stdlib 'time' package
func DefaultStatsTime() StatsTime { return defaultStatsTime{} }

// TestStatsTime returns a fixed Now and advances each Since by step.
type testStatsTime struct {
	now  time.Time
	step time.Duration
}

func NewTestTime(now time.Time, step time.Duration) StatsTime {
	return &testStatsTime{now: now, step: step}
}

func (t *testStatsTime) Now() time.Time                  { return t.now }
func (t *testStatsTime) Since(time.Time) time.Duration { return t.step }
