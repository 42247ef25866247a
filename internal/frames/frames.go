// Package frames holds the 5x5 matrix bitmaps shown for each state family.
package frames

import "github.com/sweeney/signalctl/internal/periph"

// Family is an animation loop shown while any of its states is current.
type Family struct {
	Name   string
	Frames []periph.Frame
}

// Palette colors.
var (
	Red    = periph.Color{R: 255}
	Green  = periph.Color{G: 255}
	Yellow = periph.Color{R: 255, G: 160}
	Blue   = periph.Color{B: 255}
	Off    = periph.Color{}
)

// Parse builds a frame from five rows of five characters. '#' paints on,
// anything else leaves the pixel dark.
func Parse(on periph.Color, rows [5]string) periph.Frame {
	var f periph.Frame
	for y, row := range rows {
		for x := 0; x < 5 && x < len(row); x++ {
			if row[x] == '#' {
				f[y][x] = on
			}
		}
	}
	return f
}

// Solid returns a frame with every pixel set to c.
func Solid(c periph.Color) periph.Frame {
	var f periph.Frame
	for y := range f {
		for x := range f[y] {
			f[y][x] = c
		}
	}
	return f
}

// Wave is a rising water animation: the level climbs row by row, then a
// warning mark flashes.
var Wave = Family{
	Name: "alert",
	Frames: []periph.Frame{
		Parse(Blue, [5]string{".....", ".....", ".....", ".....", "#####"}),
		Parse(Blue, [5]string{".....", ".....", ".....", "#####", "#####"}),
		Parse(Blue, [5]string{".....", ".....", "#####", "#####", "#####"}),
		Parse(Blue, [5]string{".....", "#####", "#####", "#####", "#####"}),
		Parse(Blue, [5]string{"#####", "#####", "#####", "#####", "#####"}),
		Parse(Red, [5]string{"..#..", "..#..", "..#..", ".....", "..#.."}),
	},
}

// Traffic light families, one solid frame each.
var (
	GreenLight  = Family{Name: "green", Frames: []periph.Frame{Solid(Green)}}
	YellowLight = Family{Name: "yellow", Frames: []periph.Frame{Solid(Yellow)}}
	RedLight    = Family{Name: "red", Frames: []periph.Frame{Solid(Red)}}
)

// Dark is the empty family; the matrix is cleared while it is current.
var Dark = Family{Name: "dark"}
