package drivers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/racerxdl/go-mcp23017"
)

const mcpioDriverName = "mcpio"

// McpIO talks to an MCP23017 port expander over I2C. It serves extra digital
// inputs when the header runs out of free pins; expander pins cannot do PWM.
// Edge detection polls the expander from one scan goroutine, same debounce
// scheme as the gpio driver.
type McpIO struct {
	device *mcp23017.Device

	inputs  []*McpInput
	outputs []*McpOutput
	isReady bool

	BusNo         uint8
	DevNo         uint8
	InvertInputs  bool
	InvertOutputs bool

	Debounce     time.Duration
	ScanInterval time.Duration

	stop chan struct{}
	done chan struct{}
}

type McpInput struct {
	pin    uint8
	invert bool

	device *mcp23017.Device

	mu        sync.Mutex
	listeners []EdgeListener
	stable    bool
	raw       bool
	flipSince time.Time
}

type McpOutput struct {
	pin    uint8
	invert bool

	device *mcp23017.Device
}

func (min *McpInput) GetState() (state bool, err error) {
	rawState, err := min.device.DigitalRead(min.pin)
	if err != nil {
		return
	}

	if min.invert {
		state = !bool(rawState)
	} else {
		state = bool(rawState)
	}
	return
}

func (min *McpInput) SubscribeToEdges(listener EdgeListener) error {
	if listener == nil {
		return errors.New("nil edge listener")
	}
	min.mu.Lock()
	min.listeners = append(min.listeners, listener)
	min.mu.Unlock()
	return nil
}

func (min *McpInput) scan(now time.Time, debounce time.Duration) {
	raw, err := min.GetState()
	if err != nil {
		return
	}

	min.mu.Lock()
	if raw != min.raw {
		min.raw = raw
		min.flipSince = now
	}

	if min.raw == min.stable || now.Sub(min.flipSince) < debounce {
		min.mu.Unlock()
		return
	}

	min.stable = min.raw
	listeners := make([]EdgeListener, len(min.listeners))
	copy(listeners, min.listeners)
	state := min.stable
	min.mu.Unlock()

	for _, listener := range listeners {
		listener.HandleEdge(uint16(min.pin), state)
	}
}

func (mout *McpOutput) GetState() (state bool, err error) {
	rawState, err := mout.device.DigitalRead(mout.pin)
	if err != nil {
		return
	}

	if mout.invert {
		state = !bool(rawState)
	} else {
		state = bool(rawState)
	}
	return
}

func (mout *McpOutput) Set(state bool) (err error) {
	if mout.invert {
		state = !state
	}

	err = mout.device.DigitalWrite(mout.pin, mcp23017.PinLevel(state))

	return
}

func (mcp *McpIO) String() string {
	return mcpioDriverName
}

func (mcp *McpIO) IsReady() bool {
	return mcp.isReady
}

func (mcp *McpIO) Setup(ctx context.Context, inputs []uint16, outputs []uint16) (err error) {
	mcp.device, err = mcp23017.Open(mcp.BusNo, mcp.DevNo)
	if err != nil {
		return errors.Wrapf(err, "failed to open mcp23017 (bus %d dev %d)", mcp.BusNo, mcp.DevNo)
	}

	if mcp.Debounce <= 0 {
		mcp.Debounce = defaultDebounce
	}
	if mcp.ScanInterval <= 0 {
		mcp.ScanInterval = defaultScanInterval
	}

	for _, inputPin := range inputs {
		if inputPin > 255 {
			return errors.Errorf("input pin out of range (mcpio takes uint8 pin id)")
		}
		err = mcp.device.PinMode(uint8(inputPin), mcp23017.INPUT)
		if err != nil {
			return
		}
		err = mcp.device.SetPullUp(uint8(inputPin), true)
		if err != nil {
			return
		}
		in := &McpInput{pin: uint8(inputPin), invert: mcp.InvertInputs, device: mcp.device}
		in.stable, _ = in.GetState()
		in.raw = in.stable
		mcp.inputs = append(mcp.inputs, in)
	}

	for _, outputPin := range outputs {
		if outputPin > 255 {
			return errors.Errorf("output pin out of range (mcpio takes uint8 pin id)")
		}
		err = mcp.device.PinMode(uint8(outputPin), mcp23017.OUTPUT)
		if err != nil {
			return
		}
		mcp.outputs = append(mcp.outputs, &McpOutput{pin: uint8(outputPin), invert: mcp.InvertOutputs, device: mcp.device})
	}

	mcp.stop = make(chan struct{})
	mcp.done = make(chan struct{})
	go mcp.scanLoop()

	mcp.isReady = true

	return
}

func (mcp *McpIO) scanLoop() {
	defer close(mcp.done)

	ticker := time.NewTicker(mcp.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-mcp.stop:
			return
		case now := <-ticker.C:
			for _, in := range mcp.inputs {
				in.scan(now, mcp.Debounce)
			}
		}
	}
}

func (mcp *McpIO) GetInput(id uint16) (input DigitalInput, err error) {
	for _, in := range mcp.inputs {
		if uint16(in.pin) == id {
			return in, nil
		}
	}

	err = fmt.Errorf("McpIO Input (id: %d) not found", id)
	return
}

func (mcp *McpIO) GetOutput(id uint16) (output DigitalOutput, err error) {
	for _, out := range mcp.outputs {
		if uint16(out.pin) == id {
			return out, nil
		}
	}

	err = fmt.Errorf("McpIO Output (id: %d) not found", id)
	return
}

func (mcp *McpIO) GetAllIo() (inputs []uint16, outputs []uint16) {
	for _, input := range mcp.inputs {
		inputs = append(inputs, uint16(input.pin))
	}
	for _, output := range mcp.outputs {
		outputs = append(outputs, uint16(output.pin))
	}
	return
}

func (mcp *McpIO) Close() error {
	if !mcp.isReady {
		return nil
	}
	mcp.isReady = false

	close(mcp.stop)
	<-mcp.done

	for _, out := range mcp.outputs {
		out.Set(false)
	}
	return mcp.device.Close()
}
