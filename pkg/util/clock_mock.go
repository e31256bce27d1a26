package util

import (
	"time"

	"github.com/stretchr/testify/mock"
)

// fails if MockClock does not implement Clock
var _ Clock = &MockClock{}

// MockClock implements the Clock interface using the testify mock package.
type MockClock struct {
	mock.Mock
}

// Now returns the current time.
func (mc *MockClock) Now() time.Time {
	args := mc.Called()
	return args.Get(0).(time.Time)
}

// After waits for the duration to elapse and then sends the current time
func (mc *MockClock) After(d time.Duration) <-chan time.Time {
	args := mc.Called(d)
	return args.Get(0).(chan time.Time)
}

// AfterFunc records the scheduled callback; tests retrieve it through mock.Arguments in Run.
func (mc *MockClock) AfterFunc(d time.Duration, f func()) Timer {
	args := mc.Called(d, f)
	return args.Get(0).(Timer)
}

// MockTimer implements the Timer interface using the testify mock package.
type MockTimer struct {
	mock.Mock
}

func (mt *MockTimer) Stop() bool {
	args := mt.Called()
	return args.Bool(0)
}
