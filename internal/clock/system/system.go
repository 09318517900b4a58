// Package system provides the wall-clock implementation of hotlist.Clock.
package system

import (
	"time"

	"hotboard/internal/hotlist"
)

type clock struct{}

// New returns a Clock backed by time.Now.
func New() hotlist.Clock {
	return clock{}
}

func (clock) Now() time.Time {
	return time.Now()
}
