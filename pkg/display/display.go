// Package display implements the 64x32 monochrome framebuffer.
//
// The interpreter is the only writer. Renderers read the framebuffer between
// cycle batches, never while a cycle is executing.
package display

import "gochip8/pkg/grid"

const (
	Width  = 64
	Height = 32

	// Cells is the number of pixels in the framebuffer.
	Cells = Width * Height
)

// Display is a row-major grid of on/off pixels.
type Display struct {
	cells [Cells]bool
}

// New returns a blank display.
func New() *Display {
	return &Display{}
}

// Clear turns every pixel off.
func (d *Display) Clear() {
	d.cells = [Cells]bool{}
}

// Draw XORs sprite onto the framebuffer with its top-left corner at (x, y).
// Each sprite byte is one 8-pixel row, most significant bit leftmost.
// Coordinates wrap around both edges. Zero bits leave the framebuffer
// untouched. It returns true if any set bit landed on a lit pixel.
func (d *Display) Draw(x, y byte, sprite []byte) bool {
	collision := false
	for i, row := range sprite {
		for j := 0; j < 8; j++ {
			if row&(0x80>>j) == 0 {
				continue
			}
			tx := (int(x) + j) % Width
			ty := (int(y) + i) % Height
			idx := grid.Index(tx, ty, Width)
			old := d.cells[idx]
			collision = collision || old
			d.cells[idx] = !old
		}
	}
	return collision
}

// Pixel returns the state of the pixel at (x, y). Coordinates wrap.
func (d *Display) Pixel(x, y int) bool {
	return d.cells[grid.Index(grid.Wrap(x, Width), grid.Wrap(y, Height), Width)]
}

// Pixels returns a row-major copy of the framebuffer.
func (d *Display) Pixels() []bool {
	out := make([]bool, Cells)
	copy(out, d.cells[:])
	return out
}

// Lit returns the number of pixels that are on.
func (d *Display) Lit() int {
	n := 0
	for _, on := range d.cells {
		if on {
			n++
		}
	}
	return n
}
