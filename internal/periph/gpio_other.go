//go:build !linux

package periph

import "github.com/sweeney/signalctl/internal/errors"

// GPIO is not available on non-Linux platforms.
type GPIO struct{}

// OpenGPIO returns an error on non-Linux platforms.
func OpenGPIO(chipName string, buttonPin, buzzerPin int) (*GPIO, error) {
	return nil, errors.New().WithMessage(errors.ErrNotSupported, "gpio requires Linux")
}

// Pressed is not implemented on non-Linux platforms.
func (g *GPIO) Pressed() (bool, error) {
	return false, errors.New().New(errors.ErrNotSupported)
}

// SetBuzzer is a no-op on non-Linux platforms.
func (g *GPIO) SetBuzzer(on bool, intensity float64) {}

// Close is not implemented on non-Linux platforms.
func (g *GPIO) Close() error {
	return nil
}
