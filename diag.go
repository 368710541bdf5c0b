package portal

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ahadik/photo-portal-device/drivers"
)

const diagTimeFormat = "2006-01-02 15:04:05.000"

// RunDiagnostic monitors the configured inputs and writes every debounced
// transition to out, for verifying physical wiring from a console. No
// networking, LED or analog activity; blocks until ctx is done.
func (p *Portal) RunDiagnostic(ctx context.Context, out io.Writer) error {
	fmt.Fprintln(out, "photo portal input diagnostic")
	fmt.Fprintln(out, "all inputs configured with pull-up resistors (active low)")
	fmt.Fprintln(out)

	for _, cfg := range p.Inputs {
		cfg := cfg

		driver := p.ioDrivers[cfg.DriverName]
		if driver == nil || !driver.IsReady() {
			fmt.Fprintf(out, "%s (pin %2d): driver %q not available\n", cfg.Name, cfg.Pin, cfg.DriverName)
			continue
		}

		input, err := driver.GetInput(cfg.Pin)
		if err != nil {
			fmt.Fprintf(out, "%s (pin %2d): %v\n", cfg.Name, cfg.Pin, err)
			continue
		}

		state, err := input.GetState()
		if err == nil {
			fmt.Fprintf(out, "[%s] %s (pin %2d) [%s] -> %s (initial state)\n",
				time.Now().Format(diagTimeFormat), cfg.Name, cfg.Pin, cfg.Kind, diagState(cfg, state))
		}

		err = input.SubscribeToEdges(drivers.EdgeFunc(func(_ uint16, active bool) {
			fmt.Fprintf(out, "[%s] %s (pin %2d) [%s] -> %s\n",
				time.Now().Format(diagTimeFormat), cfg.Name, cfg.Pin, cfg.Kind, diagState(cfg, active))
		}))
		if err != nil {
			fmt.Fprintf(out, "%s (pin %2d): subscribe failed: %v\n", cfg.Name, cfg.Pin, err)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "monitoring, Ctrl-C to stop")

	<-ctx.Done()
	return nil
}

func diagState(cfg InputConfig, active bool) string {
	if cfg.isToggle() {
		return switchValue(active)
	}
	if active {
		return "PRESSED"
	}
	return "RELEASED"
}
