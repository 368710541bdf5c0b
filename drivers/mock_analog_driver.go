package drivers

import (
	"context"
	"errors"
	"sync"
)

// MockAnalogInput simulates a potentiometer channel for tests.
type MockAnalogInput struct {
	FailSetup bool

	mu      sync.Mutex
	value   float64
	readErr error
	isReady bool
}

func (ma *MockAnalogInput) String() string {
	return "mock_analog"
}

func (ma *MockAnalogInput) Setup(ctx context.Context) error {
	if ma.FailSetup {
		return errors.New("mock analog setup failure")
	}
	ma.mu.Lock()
	ma.isReady = true
	ma.mu.Unlock()
	return nil
}

func (ma *MockAnalogInput) IsReady() bool {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	return ma.isReady
}

func (ma *MockAnalogInput) Read() (float64, error) {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	if ma.readErr != nil {
		return 0, ma.readErr
	}
	return ma.value, nil
}

func (ma *MockAnalogInput) SetValue(v float64) {
	ma.mu.Lock()
	ma.value = v
	ma.mu.Unlock()
}

func (ma *MockAnalogInput) SetReadError(err error) {
	ma.mu.Lock()
	ma.readErr = err
	ma.mu.Unlock()
}

func (ma *MockAnalogInput) Close() error {
	ma.mu.Lock()
	ma.isReady = false
	ma.mu.Unlock()
	return nil
}
