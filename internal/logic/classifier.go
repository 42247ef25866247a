package logic

import (
	"github.com/sweeney/signalctl/internal/errors"
)

// Bounds are the raw limits of an axis.
type Bounds struct {
	Min uint16
	Max uint16
}

// Calibration holds the learned neutral point of each axis.
type Calibration struct {
	CenterY float64
	CenterX float64
	Samples int
}

// Thresholds are the single-threshold alert levels, in percent.
type Thresholds struct {
	Water float64
	Rain  float64
}

// MapToPercentage maps a raw value onto a 0-100 scale with center at 50.
// The result is not clamped: values outside [min, max] overshoot.
func MapToPercentage(v, min, center, max float64) (float64, error) {
	if center == min || center == max {
		return 0, errors.New().WithData(errors.ErrCalibrationDegenerate, struct {
			Min, Center, Max float64
		}{min, center, max})
	}
	if v < center {
		return (v - min) / (center - min) * 50, nil
	}
	return 50 + (v-center)/(max-center)*50, nil
}

// Classifier converts raw samples into readings and readings into states.
type Classifier struct {
	bounds     Bounds
	cal        Calibration
	thresholds Thresholds
}

// NewClassifier validates the calibration against the bounds. A center that
// coincides with a bound is rejected as degenerate.
func NewClassifier(bounds Bounds, cal Calibration, thresholds Thresholds) (*Classifier, error) {
	errFactory := errors.New()

	min, max := float64(bounds.Min), float64(bounds.Max)
	if min >= max {
		return nil, errFactory.WithMessage(errors.ErrInvalidConfig, "axis min must be below max")
	}
	for _, axis := range []struct {
		name   string
		center float64
	}{{"y", cal.CenterY}, {"x", cal.CenterX}} {
		if axis.center == min || axis.center == max {
			return nil, errFactory.WithData(errors.ErrCalibrationDegenerate, struct {
				Axis     string
				Center   float64
				Min, Max float64
			}{axis.name, axis.center, min, max})
		}
	}

	return &Classifier{bounds: bounds, cal: cal, thresholds: thresholds}, nil
}

// Calibrate converts a raw sample into a reading.
func (c *Classifier) Calibrate(raw RawSample) Reading {
	min, max := float64(c.bounds.Min), float64(c.bounds.Max)
	// Degenerate centers were rejected in NewClassifier.
	water, _ := MapToPercentage(float64(raw.Y), min, c.cal.CenterY, max)
	rain, _ := MapToPercentage(float64(raw.X), min, c.cal.CenterX, max)
	return Reading{WaterLevel: water, RainLevel: rain, At: raw.At}
}

// Classify derives the state from one reading alone. There is no hysteresis
// and no memory of previous readings.
func (c *Classifier) Classify(r Reading) State {
	return ClassifyLevels(r, c.thresholds)
}

// ClassifyLevels combines the water and rain flags into a flood state.
func ClassifyLevels(r Reading, t Thresholds) State {
	water := r.WaterLevel >= t.Water
	rain := r.RainLevel >= t.Rain

	switch {
	case water && rain:
		return StateBothCritical
	case water:
		return StateWaterOverflow
	case rain:
		return StateHeavyRain
	default:
		return StateStable
	}
}

// Calibration returns the calibration in use.
func (c *Classifier) Calibration() Calibration {
	return c.cal
}
