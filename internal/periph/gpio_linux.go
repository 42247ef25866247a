//go:build linux

package periph

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// GPIO owns the chip plus the button and buzzer lines.
type GPIO struct {
	chip   *gpiocdev.Chip
	button *gpiocdev.Line
	buzzer *gpiocdev.Line
}

// OpenGPIO requests the button line as a pulled-up input and the buzzer line
// as an output driven low. A pin of 0 leaves that line unrequested.
func OpenGPIO(chipName string, buttonPin, buzzerPin int) (*GPIO, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}
	g := &GPIO{chip: chip}

	if buttonPin > 0 {
		// The button shorts the pin to ground, so it reads active low.
		g.button, err = chip.RequestLine(buttonPin, gpiocdev.AsInput, gpiocdev.WithPullUp)
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("request button pin %d: %w", buttonPin, err)
		}
	}

	if buzzerPin > 0 {
		g.buzzer, err = chip.RequestLine(buzzerPin, gpiocdev.AsOutput(0))
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("request buzzer pin %d: %w", buzzerPin, err)
		}
	}

	return g, nil
}

// Pressed returns true while the button holds the line low.
func (g *GPIO) Pressed() (bool, error) {
	if g.button == nil {
		return false, nil
	}
	v, err := g.button.Value()
	if err != nil {
		return false, fmt.Errorf("read button pin: %w", err)
	}
	return v == 0, nil
}

// SetBuzzer drives the buzzer line. The line has no PWM, so any non-zero
// intensity is full volume.
func (g *GPIO) SetBuzzer(on bool, intensity float64) {
	if g.buzzer == nil {
		return
	}
	v := 0
	if on && ClampIntensity(intensity) > 0 {
		v = 1
	}
	// A failed write leaves the previous level; the next pulse retries.
	_ = g.buzzer.SetValue(v)
}

// Close silences the buzzer and returns both lines to pulled-down inputs
// so the pins are in their boot state.
func (g *GPIO) Close() error {
	var errs []error

	if g.buzzer != nil {
		if err := g.buzzer.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("silence buzzer: %w", err))
		}
		if err := g.buzzer.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure buzzer pin: %w", err))
		}
		if err := g.buzzer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close buzzer pin: %w", err))
		}
	}
	if g.button != nil {
		if err := g.button.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure button pin: %w", err))
		}
		if err := g.button.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button pin: %w", err))
		}
	}
	if g.chip != nil {
		if err := g.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
