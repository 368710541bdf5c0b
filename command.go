package portal

import (
	"encoding/json"
	"strings"
)

const commandLed = "LED"

type commandEnvelope struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// dispatchCommand validates and applies one inbound message. Malformed
// payloads and unknown commands are logged and ignored; they never terminate
// the connection or change output state.
func (p *Portal) dispatchCommand(raw []byte) {
	var cmd commandEnvelope
	if err := json.Unmarshal(raw, &cmd); err != nil {
		p.logger.Warn("invalid command payload", "payload", string(raw), "err", err)
		p.metrics.commandsTotal.WithLabelValues("malformed").Inc()
		return
	}

	switch cmd.Type {
	case commandLed:
		p.applyLedCommand(cmd.Value)
	default:
		p.logger.Warn("unknown command type", "type", cmd.Type)
		p.metrics.commandsTotal.WithLabelValues("unknown").Inc()
	}
}

func (p *Portal) applyLedCommand(value string) {
	switch strings.ToUpper(value) {
	case SwitchOn, SwitchOff:
	default:
		p.logger.Warn("invalid led value", "value", value)
		p.metrics.commandsTotal.WithLabelValues("invalid").Inc()
		return
	}

	if p.led == nil {
		p.logger.Warn("led unavailable, command ignored", "value", value)
		p.metrics.commandsTotal.WithLabelValues("unavailable").Inc()
		return
	}

	if err := p.led.Set(value); err != nil {
		p.logger.Error("failed to apply led command", "value", value, "err", err)
		p.metrics.commandsTotal.WithLabelValues("failed").Inc()
		return
	}
	p.metrics.commandsTotal.WithLabelValues("applied").Inc()
}
