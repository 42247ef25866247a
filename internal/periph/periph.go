// Package periph defines the peripheral ports consumed by the controller.
// Real implementations use the Linux GPIO character device and IIO sysfs.
// Fake implementations allow testing without hardware.
package periph

import (
	"time"

	"github.com/sweeney/signalctl/internal/logic"
)

// AxisReader reads one bounded analog channel. Reads are synchronous and fast.
type AxisReader interface {
	ReadAxis(ch logic.Channel) (uint16, error)
}

// Buzzer drives the audible output. Intensity is clamped to [0, 1].
type Buzzer interface {
	SetBuzzer(on bool, intensity float64)
}

// Display renders lines of text. Each call completes before the next.
type Display interface {
	RenderText(lines []string)
	ClearDisplay()
}

// Matrix renders one 5x5 frame.
type Matrix interface {
	RenderMatrixFrame(frame Frame, intensity float64)
	ClearMatrix()
}

// Button reads the mode button level.
type Button interface {
	// Pressed returns true while the button is held.
	Pressed() (bool, error)
}

// Clock is the monotonic time source shared by every task.
type Clock interface {
	Now() time.Time
}

// Closer releases hardware resources.
type Closer interface {
	Close() error
}

// Color is an RGB triple.
type Color struct {
	R, G, B uint8
}

// Scale returns the color dimmed by intensity, clamped to [0, 1].
func (c Color) Scale(intensity float64) Color {
	intensity = ClampIntensity(intensity)
	return Color{
		R: uint8(float64(c.R) * intensity),
		G: uint8(float64(c.G) * intensity),
		B: uint8(float64(c.B) * intensity),
	}
}

// Frame is a 5x5 matrix image indexed [row][column].
type Frame [5][5]Color

// ClampIntensity limits intensity to [0, 1].
func ClampIntensity(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// SystemClock reads the wall clock, which carries a monotonic reading.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Default pins and channels (BCM numbering on the Pi header).
const (
	DefaultButtonPin = 5
	DefaultBuzzerPin = 21
	DefaultYChannel  = logic.Channel(0)
	DefaultXChannel  = logic.Channel(1)
)
