package common

import "time"

// Clock lets tests control the timestamps used for write latency metrics.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

type DefaultClock struct{}

func NewDefaultClock() Clock {
	return &DefaultClock{}
}

func (c *DefaultClock) Now() time.Time {
	return time.Now()
}

func (c *DefaultClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

// ManualClock only moves when Advance is called.
type ManualClock struct {
	T time.Time
}

func (c *ManualClock) Now() time.Time {
	return c.T
}

func (c *ManualClock) Since(t time.Time) time.Duration {
	return c.T.Sub(t)
}

func (c *ManualClock) Advance(d time.Duration) {
	c.T = c.T.Add(d)
}
