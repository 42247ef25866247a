package periph

import (
	"errors"
	"sync"
	"time"

	"github.com/sweeney/signalctl/internal/logic"
)

// AxisSample is one scripted pair of raw readings.
type AxisSample struct {
	Y uint16
	X uint16
}

// FakeAxisReader is a test double that returns scripted axis values.
// Each channel keeps its own cursor; once samples are exhausted the last
// sample is returned repeatedly.
type FakeAxisReader struct {
	mu sync.Mutex

	// Samples contains scripted readings.
	Samples []AxisSample

	// YChannel selects which channel reads Sample.Y; any other reads Sample.X.
	YChannel logic.Channel

	// ReadError, if set, will be returned by ReadAxis.
	ReadError error

	// Reads counts ReadAxis calls.
	Reads int

	cursor map[logic.Channel]int
}

// NewFakeAxisReader creates a FakeAxisReader with the given samples.
func NewFakeAxisReader(samples []AxisSample) *FakeAxisReader {
	return &FakeAxisReader{
		Samples:  samples,
		YChannel: DefaultYChannel,
		cursor:   make(map[logic.Channel]int),
	}
}

// ReadAxis returns the next scripted value for ch.
func (f *FakeAxisReader) ReadAxis(ch logic.Channel) (uint16, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Reads++
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}

	i := f.cursor[ch]
	sample := f.Samples[i]
	if i < len(f.Samples)-1 {
		f.cursor[ch] = i + 1
	}

	if ch == f.YChannel {
		return sample.Y, nil
	}
	return sample.X, nil
}

// SetReadError changes the scripted error.
func (f *FakeAxisReader) SetReadError(err error) {
	f.mu.Lock()
	f.ReadError = err
	f.mu.Unlock()
}

// SetSamples replaces the script and rewinds every channel.
func (f *FakeAxisReader) SetSamples(samples []AxisSample) {
	f.mu.Lock()
	f.Samples = samples
	f.cursor = make(map[logic.Channel]int)
	f.mu.Unlock()
}

// Reset rewinds every channel to the first sample.
func (f *FakeAxisReader) Reset() {
	f.mu.Lock()
	f.cursor = make(map[logic.Channel]int)
	f.Reads = 0
	f.mu.Unlock()
}

// BuzzerCall records one SetBuzzer call.
type BuzzerCall struct {
	On        bool
	Intensity float64
}

// FakeBuzzer records buzzer commands.
type FakeBuzzer struct {
	mu    sync.Mutex
	calls []BuzzerCall
}

// NewFakeBuzzer creates a FakeBuzzer.
func NewFakeBuzzer() *FakeBuzzer {
	return &FakeBuzzer{}
}

// SetBuzzer records the command.
func (f *FakeBuzzer) SetBuzzer(on bool, intensity float64) {
	f.mu.Lock()
	f.calls = append(f.calls, BuzzerCall{On: on, Intensity: ClampIntensity(intensity)})
	f.mu.Unlock()
}

// On reports the last commanded level.
func (f *FakeBuzzer) On() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return false
	}
	return f.calls[len(f.calls)-1].On
}

// Calls returns a copy of every recorded command.
func (f *FakeBuzzer) Calls() []BuzzerCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]BuzzerCall(nil), f.calls...)
}

// FakeDisplay records rendered text.
type FakeDisplay struct {
	mu      sync.Mutex
	renders [][]string
	clears  int
}

// NewFakeDisplay creates a FakeDisplay.
func NewFakeDisplay() *FakeDisplay {
	return &FakeDisplay{}
}

// RenderText records a copy of lines.
func (f *FakeDisplay) RenderText(lines []string) {
	f.mu.Lock()
	f.renders = append(f.renders, append([]string(nil), lines...))
	f.mu.Unlock()
}

// ClearDisplay counts the clear.
func (f *FakeDisplay) ClearDisplay() {
	f.mu.Lock()
	f.clears++
	f.mu.Unlock()
}

// Renders returns every recorded render.
func (f *FakeDisplay) Renders() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.renders...)
}

// Last returns the most recent render, or nil.
func (f *FakeDisplay) Last() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.renders) == 0 {
		return nil
	}
	return f.renders[len(f.renders)-1]
}

// Clears returns how many times the display was cleared.
func (f *FakeDisplay) Clears() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clears
}

// FakeMatrix records rendered frames.
type FakeMatrix struct {
	mu     sync.Mutex
	frames []Frame
	clears int
}

// NewFakeMatrix creates a FakeMatrix.
func NewFakeMatrix() *FakeMatrix {
	return &FakeMatrix{}
}

// RenderMatrixFrame records the frame as it would appear at intensity.
func (f *FakeMatrix) RenderMatrixFrame(frame Frame, intensity float64) {
	var scaled Frame
	for y := range frame {
		for x := range frame[y] {
			scaled[y][x] = frame[y][x].Scale(intensity)
		}
	}
	f.mu.Lock()
	f.frames = append(f.frames, scaled)
	f.mu.Unlock()
}

// ClearMatrix counts the clear.
func (f *FakeMatrix) ClearMatrix() {
	f.mu.Lock()
	f.clears++
	f.mu.Unlock()
}

// Frames returns every recorded frame.
func (f *FakeMatrix) Frames() []Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Frame(nil), f.frames...)
}

// Clears returns how many times the matrix was cleared.
func (f *FakeMatrix) Clears() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clears
}

// FakeButton returns scripted levels, then the last level (or the value set
// with Set) repeatedly.
type FakeButton struct {
	mu        sync.Mutex
	levels    []bool
	index     int
	level     bool
	ReadError error
}

// NewFakeButton creates a FakeButton with the given scripted levels.
func NewFakeButton(levels ...bool) *FakeButton {
	return &FakeButton{levels: levels}
}

// Pressed returns the next scripted level.
func (f *FakeButton) Pressed() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ReadError != nil {
		return false, f.ReadError
	}
	if f.index < len(f.levels) {
		f.level = f.levels[f.index]
		f.index++
	}
	return f.level, nil
}

// Set fixes the level returned once the script is exhausted.
func (f *FakeButton) Set(pressed bool) {
	f.mu.Lock()
	f.level = pressed
	f.index = len(f.levels)
	f.mu.Unlock()
}

// FakeClock is a manually advanced clock. If Step is set, every Now call
// advances the clock by Step after reading it.
type FakeClock struct {
	mu   sync.Mutex
	now  time.Time
	Step time.Duration
}

// NewFakeClock creates a clock frozen at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.Step)
	return t
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
