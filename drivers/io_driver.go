package drivers

import (
	"context"
)

// IoDriver is the common surface of every digital io backend (Raspberry Pi
// header, MCP23017 expander, mock). Setup claims the listed pins; inputs are
// configured with pull-ups, outputs driven low. A driver that fails Setup
// stays not-ready and the service degrades instead of crashing.
type IoDriver interface {
	Setup(ctx context.Context, inputs []uint16, outputs []uint16) error
	Close() error
	String() string
	IsReady() bool
	GetInput(pin uint16) (DigitalInput, error)
	GetOutput(pin uint16) (DigitalOutput, error)
	GetAllIo() (inputs []uint16, outputs []uint16)
}

func MapAllIoDrivers() map[string]IoDriver {
	drivers := []IoDriver{
		&GpIO{},
		&McpIO{},
		&MockIoDriver{},
	}

	mapped := make(map[string]IoDriver)
	for _, driver := range drivers {
		mapped[driver.String()] = driver
	}
	return mapped
}

type DigitalInput interface {
	GetState() (bool, error)
	// SubscribeToEdges registers a listener called on every debounced
	// transition of the input. Listeners run on the driver's scan goroutine
	// and must not block.
	SubscribeToEdges(EdgeListener) error
}

type DigitalOutput interface {
	GetState() (bool, error)
	Set(bool) error
}

// PwmOutput drives a duty-cycle capable output line. Duty is in [0.0, 1.0].
type PwmOutput interface {
	SetDuty(duty float64) error
	GetDuty() float64
}

// PwmProvider is implemented by drivers whose output pins can do duty-cycle
// control.
type PwmProvider interface {
	GetPwmOutput(pin uint16) (PwmOutput, error)
}

// EdgeListener receives debounced edge transitions; active reports the
// logical state (pressed/on) after the edge.
type EdgeListener interface {
	HandleEdge(pin uint16, active bool)
}

// EdgeFunc adapts a plain function to the EdgeListener interface.
type EdgeFunc func(pin uint16, active bool)

func (f EdgeFunc) HandleEdge(pin uint16, active bool) {
	f(pin, active)
}

// AnalogInput is a single normalized analog channel. Read returns the
// current sample scaled to [0.0, 1.0].
type AnalogInput interface {
	Setup(ctx context.Context) error
	Close() error
	String() string
	IsReady() bool
	Read() (float64, error)
}
