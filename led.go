package portal

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/ahadik/photo-portal-device/drivers"
)

// LedController owns the PWM output line. Two modes: static (duty pinned to
// 0 or 1 by direct command) and fading (the stepper sweeps a full in/out
// triangle over FadePeriod). Mode switches take effect at the next step
// boundary. A direct command during a fade is applied immediately and races
// with the stepper; the last writer within a step wins.
type LedController struct {
	out    drivers.PwmOutput
	logger *log.Logger

	period time.Duration
	steps  int

	mu         sync.Mutex
	fading     bool
	staticDuty float64
	pos        int
}

func newLedController(out drivers.PwmOutput, period time.Duration, steps int, logger *log.Logger) *LedController {
	return &LedController{
		out:    out,
		logger: logger.With("component", "led"),
		period: period,
		steps:  steps,
	}
}

// Set applies a discrete ON/OFF command. Values are case-insensitive and
// repeated commands are idempotent.
func (lc *LedController) Set(value string) error {
	var duty float64
	switch strings.ToUpper(value) {
	case SwitchOn:
		duty = 1.0
	case SwitchOff:
		duty = 0.0
	default:
		return errors.Errorf("invalid led value: %q", value)
	}

	lc.mu.Lock()
	lc.staticDuty = duty
	lc.mu.Unlock()

	if err := lc.out.SetDuty(duty); err != nil {
		return errors.Wrap(err, "failed to write led duty")
	}
	lc.logger.Info("led set", "value", strings.ToUpper(value))
	return nil
}

// BeginPulse enters fading mode at the next step boundary.
func (lc *LedController) BeginPulse() {
	lc.mu.Lock()
	lc.fading = true
	lc.mu.Unlock()
	lc.logger.Info("pulse started")
}

// EndPulse leaves fading mode; the stepper restores the last static duty at
// the next step boundary.
func (lc *LedController) EndPulse() {
	lc.mu.Lock()
	lc.fading = false
	lc.mu.Unlock()
	lc.logger.Info("pulse stopped")
}

// Fading reports whether the stepper currently owns the duty cycle.
func (lc *LedController) Fading() bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.fading
}

// Duty returns the current output duty cycle.
func (lc *LedController) Duty() float64 {
	return lc.out.GetDuty()
}

// Run drives the fade stepper until ctx is done. The full in/out cycle spans
// 2*steps ticks over the fade period.
func (lc *LedController) Run(ctx context.Context) {
	interval := lc.period / time.Duration(2*lc.steps)
	if interval <= 0 {
		interval = time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	wasFading := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			duty, write := lc.step(&wasFading)
			if !write {
				continue
			}
			if err := lc.out.SetDuty(duty); err != nil {
				lc.logger.Warn("fade step write failed", "err", err)
			}
		}
	}
}

// step advances the triangle wave one position, or restores the static duty
// on the first tick after leaving fade mode.
func (lc *LedController) step(wasFading *bool) (duty float64, write bool) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if lc.fading {
		lc.pos = (lc.pos + 1) % (2 * lc.steps)
		*wasFading = true
		if lc.pos <= lc.steps {
			return float64(lc.pos) / float64(lc.steps), true
		}
		return float64(2*lc.steps-lc.pos) / float64(lc.steps), true
	}

	if *wasFading {
		*wasFading = false
		lc.pos = 0
		return lc.staticDuty, true
	}

	return 0, false
}

// Close forces the duty cycle to zero. Always called before the driver
// releases the output resource.
func (lc *LedController) Close() error {
	lc.mu.Lock()
	lc.fading = false
	lc.staticDuty = 0
	lc.mu.Unlock()

	return lc.out.SetDuty(0)
}
