package logic

import "github.com/sweeney/signalctl/internal/errors"

// Accumulator sums warm-up readings per axis. Individual readings are
// discarded.
type Accumulator struct {
	sumY  uint64
	sumX  uint64
	count int
}

// Add accumulates one warm-up reading.
func (a *Accumulator) Add(y, x uint16) {
	a.sumY += uint64(y)
	a.sumX += uint64(x)
	a.count++
}

// Count returns the number of accumulated readings.
func (a *Accumulator) Count() int {
	return a.count
}

// Center returns the mean of each axis. An empty accumulator is an
// incomplete calibration.
func (a *Accumulator) Center() (Calibration, error) {
	if a.count == 0 {
		return Calibration{}, errors.New().New(errors.ErrCalibrationIncomplete)
	}
	n := float64(a.count)
	return Calibration{
		CenterY: float64(a.sumY) / n,
		CenterX: float64(a.sumX) / n,
		Samples: a.count,
	}, nil
}
