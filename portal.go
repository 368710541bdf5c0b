package portal

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/ahadik/photo-portal-device/drivers"
)

const defaultListen = "localhost:8765"
const defaultPollInterval = 100 * time.Millisecond
const defaultChangeThreshold = 0.02
const defaultFadePeriod = 2 * time.Second
const defaultFadeSteps = 20

// producers that refuse to stop are abandoned after this window
const producerJoinTimeout = 2 * time.Second

// LedConfig locates the PWM output line.
type LedConfig struct {
	Pin        uint16
	DriverName string
}

// Portal is the service context: configuration unmarshalled from JSON plus
// every runtime component, with an explicit lifecycle (Setup, InitDrivers,
// InitInputs, Run, Close). Nothing lives in package-level state.
type Portal struct {
	Name   string
	Listen string

	PollInterval    time.Duration
	ChangeThreshold float64
	FadePeriod      time.Duration
	FadeSteps       int

	Inputs []InputConfig
	Led    *LedConfig

	Gpio       *drivers.GpIO
	Mcp23017   *drivers.McpIO
	FakeDriver *drivers.MockIoDriver
	Ads1115    *drivers.ADS1115

	ioDrivers map[string]drivers.IoDriver
	analog    drivers.AnalogInput

	inputs  []*InputLine
	led     *LedController
	dial    *DialPoller
	bridge  *Bridge
	hub     *Hub
	metrics *metrics
	logger  *log.Logger

	switchMu     sync.RWMutex
	switchStates map[string]string

	analogMu        sync.RWMutex
	analogValue     float64
	analogAt        time.Time
	analogAvailable bool
}

// Setup wires the runtime pieces and applies configuration defaults. Must be
// called once, before InitDrivers.
func (p *Portal) Setup(logger *log.Logger) {
	if logger == nil {
		logger = log.Default()
	}
	p.logger = logger

	if p.Listen == "" {
		p.Listen = defaultListen
	}
	if p.PollInterval <= 0 {
		p.PollInterval = defaultPollInterval
	}
	if p.ChangeThreshold <= 0 {
		p.ChangeThreshold = defaultChangeThreshold
	}
	if p.FadePeriod <= 0 {
		p.FadePeriod = defaultFadePeriod
	}
	if p.FadeSteps <= 0 {
		p.FadeSteps = defaultFadeSteps
	}

	for i := range p.Inputs {
		if p.Inputs[i].DriverName == "" {
			p.Inputs[i].DriverName = "gpio"
		}
	}
	if p.Led != nil && p.Led.DriverName == "" {
		p.Led.DriverName = "gpio"
	}

	p.metrics = newMetrics()
	p.bridge = NewBridge(p.logger.With("component", "bridge"))
	p.bridge.SetDropHook(p.metrics.bridgeDropped.Inc)
	p.hub = NewHub(p.logger.With("component", "hub"), p.metrics)
	p.switchStates = make(map[string]string)
}

func (p *Portal) getInPins(driverName string) (pins []uint16) {
	for _, in := range p.Inputs {
		if strings.EqualFold(in.DriverName, driverName) {
			pins = append(pins, in.Pin)
		}
	}

	return
}

func (p *Portal) getOutPins(driverName string) (pins []uint16) {
	if p.Led != nil && strings.EqualFold(p.Led.DriverName, driverName) {
		pins = append(pins, p.Led.Pin)
	}

	return
}

// InitDrivers sets up every configured io driver and the analog converter.
// A driver that fails Setup is left not-ready and logged; the inputs behind
// it are later reported unavailable instead of the service crashing.
func (p *Portal) InitDrivers(ctx context.Context) {
	p.ioDrivers = make(map[string]drivers.IoDriver)

	if p.Gpio != nil {
		p.ioDrivers[p.Gpio.String()] = p.Gpio
	}

	if p.Mcp23017 != nil {
		p.ioDrivers[p.Mcp23017.String()] = p.Mcp23017
	}

	if p.FakeDriver != nil {
		p.ioDrivers[p.FakeDriver.String()] = p.FakeDriver
	}

	for _, driver := range p.ioDrivers {
		err := driver.Setup(ctx, p.getInPins(driver.String()), p.getOutPins(driver.String()))
		if err != nil {
			p.logger.Error("driver setup failed, continuing degraded", "driver", driver.String(), "err", err)
		}
	}

	if p.Ads1115 != nil {
		if err := p.Ads1115.Setup(ctx); err != nil {
			// analog stays disabled for the process lifetime, no retry
			p.logger.Error("analog converter unavailable", "err", err)
		} else {
			p.analog = p.Ads1115
		}
	}
}

// SetAnalogInput overrides the analog backend; used by tests and desktop
// runs in place of the ADS1115.
func (p *Portal) SetAnalogInput(in drivers.AnalogInput) {
	p.analog = in
}

// InitInputs builds the LED controller and the producers for every configured
// input line. Lines whose driver did not come up are marked absent. The LED
// comes first: edge listeners fire on the driver scan goroutine as soon as a
// line subscribes, and they read the led pointer.
func (p *Portal) InitInputs() error {
	if p.Led != nil {
		if err := p.initLed(); err != nil {
			p.logger.Error("led unavailable", "err", err)
		}
	}

	for _, cfg := range p.Inputs {
		if err := cfg.validate(); err != nil {
			return errors.Wrap(err, "invalid input config")
		}

		line := newInputLine(cfg, p)
		driver := p.ioDrivers[cfg.DriverName]
		if err := line.Init(driver); err != nil {
			p.logger.Error("input unavailable", "input", cfg.Name, "err", err)
		}
		p.inputs = append(p.inputs, line)
	}

	if p.analog != nil && p.analog.IsReady() {
		p.dial = newDialPoller(p.analog, p.PollInterval, p.ChangeThreshold, p)
		// the power-on default is reported until the first sample lands
		p.acceptAnalog(0)
	}

	return nil
}

func (p *Portal) initLed() error {
	driver, found := p.ioDrivers[p.Led.DriverName]
	if !found || !driver.IsReady() {
		return errors.Errorf("led driver %q not ready", p.Led.DriverName)
	}

	provider, ok := driver.(drivers.PwmProvider)
	if !ok {
		return errors.Errorf("driver %q has no pwm outputs", p.Led.DriverName)
	}

	out, err := provider.GetPwmOutput(p.Led.Pin)
	if err != nil {
		return errors.Wrapf(err, "failed to get pwm output %d", p.Led.Pin)
	}

	p.led = newLedController(out, p.FadePeriod, p.FadeSteps, p.logger)
	return nil
}

func (p *Portal) setSwitchState(name, state string) {
	p.switchMu.Lock()
	p.switchStates[name] = state
	p.switchMu.Unlock()
}

// SwitchState returns the last observed state of a toggle input.
func (p *Portal) SwitchState(name string) (string, bool) {
	p.switchMu.RLock()
	defer p.switchMu.RUnlock()
	state, ok := p.switchStates[name]
	return state, ok
}

func (p *Portal) acceptAnalog(value float64) {
	p.analogMu.Lock()
	p.analogValue = value
	p.analogAt = time.Now()
	p.analogAvailable = true
	p.analogMu.Unlock()
}

func (p *Portal) analogState() (value float64, at time.Time, available bool) {
	p.analogMu.RLock()
	defer p.analogMu.RUnlock()
	return p.analogValue, p.analogAt, p.analogAvailable
}

func (p *Portal) holdPulse(active bool) {
	if p.led == nil {
		return
	}
	if active {
		p.led.BeginPulse()
	} else {
		p.led.EndPulse()
	}
}

// Run serves until ctx is cancelled or the listener fails. On the way out it
// stops the workers, closes every subscriber and joins the producers with a
// bounded timeout.
func (p *Portal) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	listener, err := net.Listen("tcp", p.Listen)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", p.Listen)
	}

	server := &http.Server{Handler: p.routes()}

	var workers sync.WaitGroup
	workers.Add(1)
	go func() {
		defer workers.Done()
		p.hub.RunBroadcast(ctx, p.bridge)
	}()

	if p.dial != nil {
		workers.Add(1)
		go func() {
			defer workers.Done()
			p.dial.Run(ctx)
		}()
	}

	if p.led != nil {
		workers.Add(1)
		go func() {
			defer workers.Done()
			p.led.Run(ctx)
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()
	p.logger.Info("listening", "addr", listener.Addr().String())

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			runErr = errors.Wrap(err, "server failed")
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), producerJoinTimeout)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)
	p.hub.closeAll()

	joined := make(chan struct{})
	go func() {
		workers.Wait()
		close(joined)
	}()
	select {
	case <-joined:
	case <-time.After(producerJoinTimeout):
		p.logger.Warn("timed out joining producers, abandoning")
	}

	return runErr
}

// Close zeroes the output and releases every hardware resource.
func (p *Portal) Close() (err error) {
	if p.led != nil {
		if closeErr := p.led.Close(); closeErr != nil {
			err = errors.Wrap(closeErr, "failed to zero led")
		}
	}

	for _, driver := range p.ioDrivers {
		if driver != nil && driver.IsReady() {
			if closeErr := driver.Close(); closeErr != nil {
				err = errors.Wrapf(closeErr, "failed to close driver %s", driver.String())
			}
		}
	}

	if p.analog != nil && p.analog.IsReady() {
		if closeErr := p.analog.Close(); closeErr != nil {
			err = errors.Wrap(closeErr, "failed to close analog input")
		}
	}

	return
}
