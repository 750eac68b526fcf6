package clock

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Clock is the time source services and pollers are built on.
type Clock = clock.Clock

// Mock only moves when Add or Set is called, firing any ticker it passes.
type Mock = clock.Mock

type utc struct {
	clock.Clock
}

func (c utc) Now() time.Time {
	return c.Clock.Now().UTC()
}

// New returns the wall clock, reporting UTC.
func New() Clock {
	return utc{Clock: clock.New()}
}

// NewMock returns a mock clock stopped at start.
func NewMock(start time.Time) *Mock {
	m := clock.NewMock()
	m.Set(start)
	return m
}
