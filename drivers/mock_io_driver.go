package drivers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// MockIoDriver stands in for real hardware in tests and desktop runs.
// Input edges are injected with MockInput.Set, which fires subscribed
// listeners synchronously (no debounce).
type MockIoDriver struct {
	inputs  []*MockInput
	outputs []*MockOutput
	ready   bool
}

type MockInput struct {
	pin uint16

	mu        sync.Mutex
	state     bool
	listeners []EdgeListener
}

type MockOutput struct {
	pin uint16

	mu               sync.Mutex
	duty             float64
	writeTo          io.Writer
	writeStateChange bool
}

func (mi *MockInput) GetState() (bool, error) {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	return mi.state, nil
}

func (mi *MockInput) SubscribeToEdges(listener EdgeListener) error {
	if listener == nil {
		return errors.New("nil edge listener")
	}
	mi.mu.Lock()
	mi.listeners = append(mi.listeners, listener)
	mi.mu.Unlock()
	return nil
}

// Set flips the simulated input; listeners fire only on an actual change.
func (mi *MockInput) Set(state bool) {
	mi.mu.Lock()
	if mi.state == state {
		mi.mu.Unlock()
		return
	}
	mi.state = state
	listeners := make([]EdgeListener, len(mi.listeners))
	copy(listeners, mi.listeners)
	mi.mu.Unlock()

	for _, listener := range listeners {
		listener.HandleEdge(mi.pin, state)
	}
}

func (mo *MockOutput) GetState() (bool, error) {
	return mo.GetDuty() > 0.5, nil
}

func (mo *MockOutput) Set(state bool) error {
	if state {
		return mo.SetDuty(1)
	}
	return mo.SetDuty(0)
}

func (mo *MockOutput) SetDuty(duty float64) error {
	if duty < 0 || duty > 1 {
		return fmt.Errorf("duty cycle out of range: %f", duty)
	}

	mo.mu.Lock()
	changed := duty != mo.duty
	mo.duty = duty
	writeTo := mo.writeTo
	report := mo.writeStateChange && changed
	mo.mu.Unlock()

	if report {
		fmt.Fprintf(writeTo, "[pin %d] duty changed to %.2f\n", mo.pin, duty)
	}
	return nil
}

func (mo *MockOutput) GetDuty() float64 {
	mo.mu.Lock()
	defer mo.mu.Unlock()
	return mo.duty
}

func (md *MockIoDriver) Setup(ctx context.Context, inputs []uint16, outputs []uint16) error {
	for _, inPin := range inputs {
		md.inputs = append(md.inputs, &MockInput{pin: inPin})
	}
	for _, outPin := range outputs {
		md.outputs = append(md.outputs, &MockOutput{pin: outPin})
	}
	md.ready = true
	return nil
}

func (md *MockIoDriver) Close() error {
	md.ready = false
	return nil
}

func (md *MockIoDriver) String() string {
	return "mock_driver"
}

func (md *MockIoDriver) IsReady() bool {
	return md.ready
}

func (md *MockIoDriver) GetInput(pin uint16) (DigitalInput, error) {
	for _, input := range md.inputs {
		if pin == input.pin {
			return input, nil
		}
	}
	return nil, fmt.Errorf("mock input %d not found", pin)
}

// GetMockInput exposes the concrete input so tests can inject edges.
func (md *MockIoDriver) GetMockInput(pin uint16) (*MockInput, error) {
	for _, input := range md.inputs {
		if pin == input.pin {
			return input, nil
		}
	}
	return nil, fmt.Errorf("mock input %d not found", pin)
}

func (md *MockIoDriver) GetOutput(pin uint16) (DigitalOutput, error) {
	for _, output := range md.outputs {
		if pin == output.pin {
			return output, nil
		}
	}
	return nil, fmt.Errorf("mock output %d not found", pin)
}

func (md *MockIoDriver) GetPwmOutput(pin uint16) (PwmOutput, error) {
	for _, output := range md.outputs {
		if pin == output.pin {
			return output, nil
		}
	}
	return nil, fmt.Errorf("mock output %d not found", pin)
}

func (md *MockIoDriver) GetAllIo() (inputs []uint16, outputs []uint16) {
	for _, input := range md.inputs {
		inputs = append(inputs, input.pin)
	}
	for _, output := range md.outputs {
		outputs = append(outputs, output.pin)
	}
	return
}

func (md *MockIoDriver) MonitorStateChanges(writer io.Writer) {
	for _, out := range md.outputs {
		out.mu.Lock()
		out.writeTo = writer
		out.writeStateChange = true
		out.mu.Unlock()
	}
}
