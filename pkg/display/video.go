package display

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"

	"golang.org/x/image/draw"

	"gochip8/pkg/grid"
)

// Palette maps the two pixel states to colours. The core never chooses
// colours; callers pass one in.
type Palette struct {
	On  color.RGBA
	Off color.RGBA
}

// DefaultPalette is white on black.
var DefaultPalette = Palette{
	On:  color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF},
	Off: color.RGBA{A: 0xFF},
}

// RGBA decodes the framebuffer into a Width×Height RGBA8888 byte slice
// (length Width*Height*4).
func (d *Display) RGBA(p Palette) []byte {
	pixels := make([]byte, Cells*4)
	for i, on := range d.cells {
		c := p.Off
		if on {
			c = p.On
		}
		pixels[i*4+0] = c.R
		pixels[i*4+1] = c.G
		pixels[i*4+2] = c.B
		pixels[i*4+3] = c.A
	}
	return pixels
}

// Image returns the framebuffer as an *image.RGBA.
func (d *Display) Image(p Palette) *image.RGBA {
	return &image.RGBA{
		Pix:    d.RGBA(p),
		Stride: Width * 4,
		Rect:   image.Rect(0, 0, Width, Height),
	}
}

// SaveScreenshot encodes the framebuffer, scaled up by scale with
// nearest-neighbour sampling, as a PNG and writes it to filename.
func (d *Display) SaveScreenshot(filename string, scale int, p Palette) error {
	if scale < 1 {
		return fmt.Errorf("invalid screenshot scale %d", scale)
	}
	src := d.Image(p)
	dst := image.NewRGBA(image.Rect(0, 0, Width*scale, Height*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, dst)
}

// String renders the framebuffer as text, one line per row, using '#' for lit
// pixels and '.' for dark ones.
func (d *Display) String() string {
	var sb strings.Builder
	sb.Grow(Cells + Height)
	for i, on := range d.cells {
		if on {
			sb.WriteByte('#')
		} else {
			sb.WriteByte('.')
		}
		if x, _ := grid.GetGridCoords(i, Width); x == Width-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
