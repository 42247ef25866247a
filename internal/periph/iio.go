package periph

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sweeney/signalctl/internal/logic"
)

// DefaultIIODir is the first industrial-I/O device exposed by the kernel.
const DefaultIIODir = "/sys/bus/iio/devices/iio:device0"

// IIOAxis reads ADC channels from the kernel IIO sysfs interface.
// Each channel is a file in_voltage<N>_raw holding a decimal count.
type IIOAxis struct {
	dir string
}

// NewIIOAxis checks that dir exists and returns a reader for it.
func NewIIOAxis(dir string) (*IIOAxis, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open iio device: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open iio device: %s is not a directory", dir)
	}
	return &IIOAxis{dir: dir}, nil
}

// ReadAxis returns the raw count for ch.
func (a *IIOAxis) ReadAxis(ch logic.Channel) (uint16, error) {
	path := filepath.Join(a.dir, fmt.Sprintf("in_voltage%d_raw", ch))
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read channel %d: %w", ch, err)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(b)), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("parse channel %d: %w", ch, err)
	}
	return uint16(v), nil
}
