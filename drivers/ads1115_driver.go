package drivers

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"

	"periph.io/x/conn/v3/i2c/i2creg"
)

const adsDriverName = "ads1115"

const adsFullScale = 32767.0

// ADS1115 reads one single-ended channel of a TI ADS1115 converter over I2C
// through periph.io. Read returns the sample normalized to [0.0, 1.0] of the
// positive full range.
type ADS1115 struct {
	BusName    string
	Address    uint16
	Channel    int
	MaxVoltage physic.ElectricPotential
	SampleRate physic.Frequency

	bus i2c.BusCloser
	pin ads1x15.PinADC

	mu      sync.Mutex
	isReady bool
}

func (ads *ADS1115) String() string {
	return adsDriverName
}

func (ads *ADS1115) IsReady() bool {
	ads.mu.Lock()
	defer ads.mu.Unlock()
	return ads.isReady
}

func (ads *ADS1115) Setup(ctx context.Context) error {
	if _, err := host.Init(); err != nil {
		return errors.Wrap(err, "failed to init periph host")
	}

	bus, err := i2creg.Open(ads.BusName)
	if err != nil {
		return errors.Wrapf(err, "failed to open i2c bus %q", ads.BusName)
	}

	opts := ads1x15.DefaultOpts
	if ads.Address != 0 {
		opts.I2cAddress = ads.Address
	}

	dev, err := ads1x15.NewADS1115(bus, &opts)
	if err != nil {
		bus.Close()
		return errors.Wrap(err, "failed to open ads1115")
	}

	channel, err := adsChannel(ads.Channel)
	if err != nil {
		bus.Close()
		return err
	}

	maxVoltage := ads.MaxVoltage
	if maxVoltage == 0 {
		maxVoltage = 3300 * physic.MilliVolt
	}
	rate := ads.SampleRate
	if rate == 0 {
		rate = 10 * physic.Hertz
	}

	pin, err := dev.PinForChannel(channel, maxVoltage, rate, ads1x15.SaveEnergy)
	if err != nil {
		bus.Close()
		return errors.Wrapf(err, "failed to acquire ads1115 channel %d", ads.Channel)
	}

	ads.mu.Lock()
	ads.bus = bus
	ads.pin = pin
	ads.isReady = true
	ads.mu.Unlock()

	return nil
}

func (ads *ADS1115) Read() (float64, error) {
	ads.mu.Lock()
	pin := ads.pin
	ready := ads.isReady
	ads.mu.Unlock()

	if !ready {
		return 0, errors.New("ads1115 driver not ready")
	}

	sample, err := pin.Read()
	if err != nil {
		return 0, errors.Wrap(err, "ads1115 read failed")
	}

	normalized := float64(sample.Raw) / adsFullScale
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}
	return normalized, nil
}

func (ads *ADS1115) Close() error {
	ads.mu.Lock()
	defer ads.mu.Unlock()

	if !ads.isReady {
		return nil
	}
	ads.isReady = false

	if ads.pin != nil {
		ads.pin.Halt()
	}
	if ads.bus != nil {
		return ads.bus.Close()
	}
	return nil
}

func adsChannel(index int) (ads1x15.Channel, error) {
	switch index {
	case 0:
		return ads1x15.Channel0, nil
	case 1:
		return ads1x15.Channel1, nil
	case 2:
		return ads1x15.Channel2, nil
	case 3:
		return ads1x15.Channel3, nil
	}
	return ads1x15.Channel0, errors.Errorf("ads1115 channel out of range: %d", index)
}
