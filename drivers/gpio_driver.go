package drivers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/stianeikeland/go-rpio/v4"
)

const gpioDriverName = "gpio"

const defaultScanInterval = 10 * time.Millisecond
const defaultDebounce = 50 * time.Millisecond

// pwm clock granularity: duty is mapped onto a 100-step cycle
const pwmCycleLength = 100
const pwmFrequencyHz = 1000

// GpIO drives the Raspberry Pi header directly through go-rpio. Inputs are
// pulled up (active low wiring), outputs start low. Edge detection runs on a
// single scan goroutine started by Setup; each input is debounced before its
// listeners fire.
type GpIO struct {
	inputs  []*GpInput
	outputs []*GpOutput

	InvertInputs  bool
	InvertOutputs bool

	Debounce     time.Duration
	ScanInterval time.Duration

	isReady bool
	stop    chan struct{}
	done    chan struct{}
}

type GpInput struct {
	pin    uint8
	invert bool

	mu        sync.Mutex
	listeners []EdgeListener
	stable    bool
	raw       bool
	flipSince time.Time
}

type GpOutput struct {
	pin    uint8
	invert bool

	mu   sync.Mutex
	duty float64
}

func (gpi *GpInput) GetState() (state bool, err error) {
	if gpi.invert {
		state = rpio.Pin(gpi.pin).Read() == rpio.Low
	} else {
		state = rpio.Pin(gpi.pin).Read() == rpio.High
	}

	return
}

func (gpi *GpInput) SubscribeToEdges(listener EdgeListener) error {
	if listener == nil {
		return errors.New("nil edge listener")
	}
	gpi.mu.Lock()
	gpi.listeners = append(gpi.listeners, listener)
	gpi.mu.Unlock()
	return nil
}

// scan samples the raw pin once and fires listeners when a level held for the
// debounce window differs from the last stable state.
func (gpi *GpInput) scan(now time.Time, debounce time.Duration) {
	raw, err := gpi.GetState()
	if err != nil {
		return
	}

	gpi.mu.Lock()
	if raw != gpi.raw {
		gpi.raw = raw
		gpi.flipSince = now
	}

	if gpi.raw == gpi.stable || now.Sub(gpi.flipSince) < debounce {
		gpi.mu.Unlock()
		return
	}

	gpi.stable = gpi.raw
	listeners := make([]EdgeListener, len(gpi.listeners))
	copy(listeners, gpi.listeners)
	state := gpi.stable
	gpi.mu.Unlock()

	for _, listener := range listeners {
		listener.HandleEdge(uint16(gpi.pin), state)
	}
}

func (gpo *GpOutput) Set(state bool) error {
	duty := 0.0
	if state {
		duty = 1.0
	}
	return gpo.SetDuty(duty)
}

func (gpo *GpOutput) SetDuty(duty float64) error {
	if duty < 0 || duty > 1 {
		return errors.Errorf("duty cycle out of range: %f", duty)
	}
	if gpo.invert {
		duty = 1 - duty
	}

	gpo.mu.Lock()
	gpo.duty = duty
	gpo.mu.Unlock()

	rpio.Pin(gpo.pin).DutyCycle(uint32(duty*pwmCycleLength+0.5), pwmCycleLength)
	return nil
}

func (gpo *GpOutput) GetDuty() float64 {
	gpo.mu.Lock()
	defer gpo.mu.Unlock()
	if gpo.invert {
		return 1 - gpo.duty
	}
	return gpo.duty
}

func (gpo *GpOutput) GetState() (state bool, err error) {
	return gpo.GetDuty() > 0.5, nil
}

func (gp *GpIO) Setup(ctx context.Context, inputs []uint16, outputs []uint16) error {
	err := rpio.Open()
	if err != nil {
		return errors.Wrapf(err, "failed to Setup gpio driver for pins: %v, %v", inputs, outputs)
	}

	if gp.Debounce <= 0 {
		gp.Debounce = defaultDebounce
	}
	if gp.ScanInterval <= 0 {
		gp.ScanInterval = defaultScanInterval
	}

	for _, inPin := range inputs {
		if inPin > 255 {
			return errors.Errorf("inpin out of range (gpio takes uint8 pin)")
		}
		pin := rpio.Pin(inPin)
		pin.Input()
		pin.PullUp()
		in := &GpInput{pin: uint8(inPin), invert: gp.InvertInputs}
		in.stable, _ = in.GetState()
		in.raw = in.stable
		gp.inputs = append(gp.inputs, in)
	}

	for _, outPin := range outputs {
		if outPin > 255 {
			return errors.Errorf("outpin out of range (gpio takes uint8 pin)")
		}
		pin := rpio.Pin(outPin)
		pin.Mode(rpio.Pwm)
		pin.Freq(pwmFrequencyHz * pwmCycleLength)
		pin.DutyCycle(0, pwmCycleLength)
		gp.outputs = append(gp.outputs, &GpOutput{pin: uint8(outPin), invert: gp.InvertOutputs})
	}

	gp.stop = make(chan struct{})
	gp.done = make(chan struct{})
	go gp.scanLoop()

	gp.isReady = true
	return nil
}

func (gp *GpIO) scanLoop() {
	defer close(gp.done)

	ticker := time.NewTicker(gp.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-gp.stop:
			return
		case now := <-ticker.C:
			for _, in := range gp.inputs {
				in.scan(now, gp.Debounce)
			}
		}
	}
}

func (gp *GpIO) String() string {
	return gpioDriverName
}

func (gp *GpIO) IsReady() bool {
	return gp.isReady
}

func (gp *GpIO) Close() error {
	if !gp.isReady {
		return nil
	}
	gp.isReady = false

	close(gp.stop)
	<-gp.done

	for _, output := range gp.outputs {
		output.SetDuty(0)
	}
	return rpio.Close()
}

func (gp *GpIO) GetInput(id uint16) (input DigitalInput, err error) {
	for _, in := range gp.inputs {
		if uint16(in.pin) == id {
			return in, nil
		}
	}

	err = fmt.Errorf("GpIO Input (id: %d) not found", id)
	return
}

func (gp *GpIO) GetOutput(id uint16) (output DigitalOutput, err error) {
	for _, out := range gp.outputs {
		if uint16(out.pin) == id {
			return out, nil
		}
	}

	err = fmt.Errorf("GpIO Output (id: %d) not found", id)
	return
}

// GetPwmOutput returns the duty-cycle interface of an output pin.
func (gp *GpIO) GetPwmOutput(id uint16) (PwmOutput, error) {
	for _, out := range gp.outputs {
		if uint16(out.pin) == id {
			return out, nil
		}
	}

	return nil, fmt.Errorf("GpIO Output (id: %d) not found", id)
}

func (gp *GpIO) GetAllIo() (inputs []uint16, outputs []uint16) {
	for _, input := range gp.inputs {
		inputs = append(inputs, uint16(input.pin))
	}

	for _, output := range gp.outputs {
		outputs = append(outputs, uint16(output.pin))
	}

	return
}
