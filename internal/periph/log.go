package periph

import (
	"strings"

	"github.com/rs/zerolog"
)

// LogOutputs renders actuator output to a logger instead of hardware. The
// display and matrix only log when their content changes.
type LogOutputs struct {
	log zerolog.Logger

	lastText  string
	lastFrame string
	buzzerOn  bool
}

// NewLogOutputs returns outputs that write at debug level to log.
func NewLogOutputs(log zerolog.Logger) *LogOutputs {
	return &LogOutputs{log: log}
}

// SetBuzzer logs buzzer edges.
func (l *LogOutputs) SetBuzzer(on bool, intensity float64) {
	if on == l.buzzerOn {
		return
	}
	l.buzzerOn = on
	l.log.Debug().Bool("on", on).Float64("intensity", ClampIntensity(intensity)).Msg("buzzer")
}

// RenderText logs the lines joined by " | ".
func (l *LogOutputs) RenderText(lines []string) {
	text := strings.Join(lines, " | ")
	if text == l.lastText {
		return
	}
	l.lastText = text
	l.log.Debug().Str("text", text).Msg("display")
}

// ClearDisplay logs a clear.
func (l *LogOutputs) ClearDisplay() {
	l.lastText = ""
	l.log.Debug().Msg("display cleared")
}

// RenderMatrixFrame logs the frame as five rows of '#' and '.'.
func (l *LogOutputs) RenderMatrixFrame(frame Frame, intensity float64) {
	art := FrameArt(frame)
	if art == l.lastFrame {
		return
	}
	l.lastFrame = art
	l.log.Debug().Str("frame", art).Float64("intensity", ClampIntensity(intensity)).Msg("matrix")
}

// ClearMatrix logs a clear.
func (l *LogOutputs) ClearMatrix() {
	l.lastFrame = ""
	l.log.Debug().Msg("matrix cleared")
}

// FrameArt renders lit pixels as '#' and dark ones as '.', rows joined by '/'.
func FrameArt(frame Frame) string {
	var b strings.Builder
	for y := range frame {
		if y > 0 {
			b.WriteByte('/')
		}
		for x := range frame[y] {
			if frame[y][x] == (Color{}) {
				b.WriteByte('.')
			} else {
				b.WriteByte('#')
			}
		}
	}
	return b.String()
}
