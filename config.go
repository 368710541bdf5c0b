package portal

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/ahadik/photo-portal-device/drivers"
)

// Wiring from the build's technical architecture notes (BCM numbering).
const (
	DefaultPinLed            uint16 = 17
	DefaultPinLikeButton     uint16 = 18
	DefaultPinMapToggle      uint16 = 27
	DefaultPinMetadataToggle uint16 = 22
	DefaultPinMessageButton  uint16 = 23
)

// Default returns a Portal wired for the reference hardware: four pull-up
// inputs and the PWM LED on the Pi header, potentiometer on ADS1115 channel 0.
func Default() *Portal {
	return &Portal{
		Name:   "photo-portal",
		Listen: defaultListen,
		Inputs: []InputConfig{
			{Name: "LIKE_BUTTON", Pin: DefaultPinLikeButton, Kind: KindMomentary, Event: EventLikeButton},
			{Name: "MAP_TOGGLE", Pin: DefaultPinMapToggle, Kind: KindToggle, Event: EventMapToggle, ReportState: true},
			{Name: "METADATA_TOGGLE", Pin: DefaultPinMetadataToggle, Kind: KindToggle, Event: EventMetadataToggle},
			{Name: "MESSAGE_BUTTON", Pin: DefaultPinMessageButton, Kind: KindMomentary, Event: EventMessageButton, HoldPulse: true},
		},
		Led:     &LedConfig{Pin: DefaultPinLed},
		Gpio:    &drivers.GpIO{},
		Ads1115: &drivers.ADS1115{},
	}
}

// Load reads a JSON configuration file over the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (*Portal, error) {
	p := Default()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed reading config file %s", path)
	}

	if err := json.Unmarshal(data, p); err != nil {
		return nil, errors.Wrapf(err, "failed unmarshalling json config %s", path)
	}

	return p, nil
}
