package application

import "time"

// Clock lets services stamp reports without reaching for time.Now directly.
type Clock interface {
	Now() time.Time
}

// SystemClock is the default Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant; handy for deterministic output.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }
