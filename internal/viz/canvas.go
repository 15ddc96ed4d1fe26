package viz

import (
	"math"
	"strings"

	"github.com/san-kum/snowsim/internal/vmath"
)

// Braille cells hold 2x4 dots:
//
//	1 4
//	2 5
//	3 6
//	7 8
var dotBits = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank rune = 0x2800

// Canvas is a grid of braille cells. Drawing is addressed in dots, so the
// drawable area is Width*2 by Height*4.
type Canvas struct {
	Width, Height int
	cells         []rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{}
	c.Resize(w, h)
	return c
}

// Resize reallocates the canvas and clears it.
func (c *Canvas) Resize(w, h int) {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	c.Width, c.Height = w, h
	c.cells = make([]rune, w*h)
	c.Clear()
}

// Dots returns the drawable size in dots.
func (c *Canvas) Dots() (int, int) { return c.Width * 2, c.Height * 4 }

func (c *Canvas) cell(x, y int) (int, bool) {
	if x < 0 || y < 0 {
		return 0, false
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return 0, false
	}
	return row*c.Width + col, true
}

func (c *Canvas) Set(x, y int) {
	if i, ok := c.cell(x, y); ok {
		c.cells[i] |= dotBits[y%4][x%2]
	}
}

// IsSet reports whether the dot at (x, y) is lit.
func (c *Canvas) IsSet(x, y int) bool {
	i, ok := c.cell(x, y)
	return ok && c.cells[i]&dotBits[y%4][x%2] != 0
}

func (c *Canvas) Clear() {
	for i := range c.cells {
		c.cells[i] = blank
	}
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// String returns the rows joined by newlines, without a trailing newline.
func (c *Canvas) String() string {
	var b strings.Builder
	b.Grow(len(c.cells)*3 + c.Height)
	for row := 0; row < c.Height; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		for _, r := range c.cells[row*c.Width : (row+1)*c.Width] {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Viewport maps domain coordinates onto canvas dots, y up, keeping the
// domain's aspect ratio. Braille dots are close enough to square.
type Viewport struct {
	scale float64
	h     int
}

func (c *Canvas) Viewport(domain vmath.Vec2) Viewport {
	w, h := c.Dots()
	if domain.X <= 0 || domain.Y <= 0 {
		return Viewport{scale: 0, h: h}
	}
	scale := math.Min(float64(w)/domain.X, float64(h)/domain.Y)
	return Viewport{scale: scale, h: h}
}

func (v Viewport) Project(p vmath.Vec2) (int, int) {
	x := int(p.X * v.scale)
	y := v.h - 1 - int(p.Y*v.scale)
	return x, y
}

func (c *Canvas) DrawParticles(v Viewport, pos []vmath.Vec2) {
	for _, p := range pos {
		c.Set(v.Project(p))
	}
}

// DrawSegments draws {x0, y0, x1, y1} segments given in domain units.
func (c *Canvas) DrawSegments(v Viewport, segs [][4]float64) {
	for _, s := range segs {
		x0, y0 := v.Project(vmath.V(s[0], s[1]))
		x1, y1 := v.Project(vmath.V(s[2], s[3]))
		c.DrawLine(x0, y0, x1, y1)
	}
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
