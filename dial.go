package portal

import (
	"context"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ahadik/photo-portal-device/drivers"
)

// DialPoller reads the analog channel at a fixed rate and emits a ZOOM_DIAL
// event only when the sample moves at least threshold away from the last
// accepted value. Comparisons run against the accepted value, not the prior
// raw sample, so sub-threshold drift never leaks events and never accumulates
// error.
type DialPoller struct {
	analog    drivers.AnalogInput
	interval  time.Duration
	threshold float64
	portal    *Portal
	logger    *log.Logger
}

func newDialPoller(analog drivers.AnalogInput, interval time.Duration, threshold float64, p *Portal) *DialPoller {
	return &DialPoller{
		analog:    analog,
		interval:  interval,
		threshold: threshold,
		portal:    p,
		logger:    p.logger.With("producer", "dial"),
	}
}

// Run polls until ctx is done. The first successful read seeds the accepted
// value without broadcasting; late joiners pick it up from the connect
// snapshot instead.
func (dp *DialPoller) Run(ctx context.Context) {
	initial, err := dp.analog.Read()
	if err != nil {
		dp.logger.Warn("initial analog read failed", "err", err)
	} else {
		dp.portal.acceptAnalog(initial)
		dp.logger.Info("initial analog value", "value", initial)
	}

	ticker := time.NewTicker(dp.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dp.tick()
		}
	}
}

func (dp *DialPoller) tick() {
	value, err := dp.analog.Read()
	if err != nil {
		// one lost sample, next tick continues
		dp.logger.Warn("analog read failed", "err", err)
		return
	}

	accepted, _, _ := dp.portal.analogState()
	if math.Abs(value-accepted) < dp.threshold {
		dp.portal.metrics.analogDiscards.Inc()
		return
	}

	dp.portal.acceptAnalog(value)
	dp.logger.Info("analog change accepted", "value", value, "delta", math.Abs(value-accepted))
	dp.portal.bridge.Submit(Event{Type: EventZoomDial, Value: value})
}
