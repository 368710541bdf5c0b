package portal

import (
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/ahadik/photo-portal-device/drivers"
)

const (
	KindMomentary = "momentary"
	KindToggle    = "toggle"
)

// InputConfig is the static descriptor of one monitored line. It is loaded
// from configuration at startup and immutable afterwards.
type InputConfig struct {
	Name       string
	Pin        uint16
	Kind       string
	Event      EventType
	DriverName string

	// ReportState attaches the ON/OFF value to every emitted event and to
	// the connect snapshot. Only meaningful for toggles.
	ReportState bool

	// HoldPulse makes the LED pulse while this momentary input is held.
	HoldPulse bool
}

func (c InputConfig) validate() error {
	if c.Name == "" {
		return errors.New("input config missing name")
	}
	if c.Event == "" {
		return errors.Errorf("input %s missing event name", c.Name)
	}
	switch strings.ToLower(c.Kind) {
	case KindMomentary, KindToggle:
	default:
		return errors.Errorf("input %s has unknown kind %q", c.Name, c.Kind)
	}
	if c.ReportState && !c.isToggle() {
		return errors.Errorf("input %s: only toggles can report state", c.Name)
	}
	return nil
}

func (c InputConfig) isToggle() bool {
	return strings.EqualFold(c.Kind, KindToggle)
}

// InputLine is the runtime producer for one digital input. The driver fires
// debounced edges on its scan goroutine; onEdge turns each edge into an
// Event and hands it to the bridge.
type InputLine struct {
	cfg    InputConfig
	portal *Portal
	logger *log.Logger

	input     drivers.DigitalInput
	available bool
}

func newInputLine(cfg InputConfig, p *Portal) *InputLine {
	return &InputLine{
		cfg:    cfg,
		portal: p,
		logger: p.logger.With("input", cfg.Name),
	}
}

// Init acquires the driver input, records the initial toggle state and
// subscribes for edges. A driver failure leaves the line absent; the service
// keeps running without it.
func (il *InputLine) Init(driver drivers.IoDriver) error {
	if driver == nil || !driver.IsReady() {
		return errors.Errorf("input %s: driver not ready", il.cfg.Name)
	}

	input, err := driver.GetInput(il.cfg.Pin)
	if err != nil {
		return errors.Wrapf(err, "input %s: failed to get pin %d", il.cfg.Name, il.cfg.Pin)
	}
	il.input = input

	if il.cfg.isToggle() {
		state, err := input.GetState()
		if err != nil {
			return errors.Wrapf(err, "input %s: failed to read initial state", il.cfg.Name)
		}
		il.portal.setSwitchState(il.cfg.Name, switchValue(state))
		il.logger.Info("initial state", "state", switchValue(state))
	}

	err = input.SubscribeToEdges(drivers.EdgeFunc(func(_ uint16, active bool) {
		il.onEdge(active)
	}))
	if err != nil {
		return errors.Wrapf(err, "input %s: failed to subscribe to edges", il.cfg.Name)
	}

	il.available = true
	return nil
}

// Available reports whether the underlying hardware line was acquired.
func (il *InputLine) Available() bool {
	return il.available
}

func (il *InputLine) Name() string {
	return il.cfg.Name
}

// onEdge is the producer step: update the switch table for toggles, build
// the event, submit to the bridge. Every debounced edge emits; the released
// edge is a first-class state change, not noise.
func (il *InputLine) onEdge(active bool) {
	event := Event{Type: il.cfg.Event}

	if il.cfg.isToggle() {
		state := switchValue(active)
		il.portal.setSwitchState(il.cfg.Name, state)
		if il.cfg.ReportState {
			event.Value = state
		}
		il.logger.Info("toggle edge", "state", state)
	} else {
		il.logger.Info("edge", "active", active)
		if il.cfg.HoldPulse {
			il.portal.holdPulse(active)
		}
	}

	il.portal.bridge.Submit(event)
}

func switchValue(active bool) string {
	if active {
		return SwitchOn
	}
	return SwitchOff
}
