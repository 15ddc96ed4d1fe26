package render

import (
	"image/color"
	"math"
	"sort"
)

// ColorScheme decides how the level set and particles are painted.
type ColorScheme struct {
	Name       string
	Background color.RGBA
	Boundary   color.RGBA
	Solid      color.RGBA
	Particle   func(material string, jp, speed float64) color.RGBA
}

var ColorSchemes = map[string]ColorScheme{
	"snow": {
		Name:       "snow",
		Background: rgb(0x1b, 0x26, 0x3b),
		Boundary:   rgb(0xc0, 0xc8, 0xd8),
		Solid:      rgb(0x41, 0x5a, 0x77),
		Particle: func(_ string, jp, _ float64) color.RGBA {
			// Compacted snow is drawn darker and bluer.
			t := clamp01((1 - jp) / 0.4)
			return mix(rgb(0xff, 0xff, 0xff), rgb(0x8f, 0xb8, 0xde), t)
		},
	},
	"sand": {
		Name:       "sand",
		Background: rgb(0x26, 0x1c, 0x15),
		Boundary:   rgb(0xe0, 0xd0, 0xb0),
		Solid:      rgb(0x5c, 0x45, 0x33),
		Particle: func(_ string, _, speed float64) color.RGBA {
			return mix(rgb(0xc2, 0xa0, 0x6b), rgb(0xf4, 0xe1, 0xb5), clamp01(speed/2))
		},
	},
	"water": {
		Name:       "water",
		Background: rgb(0x0b, 0x13, 0x2b),
		Boundary:   rgb(0x9a, 0xd1, 0xd4),
		Solid:      rgb(0x1c, 0x25, 0x41),
		Particle: func(_ string, _, speed float64) color.RGBA {
			return mix(rgb(0x1f, 0x6f, 0xeb), rgb(0xd0, 0xf0, 0xff), clamp01(speed/3))
		},
	},
	"bright": {
		Name:       "bright",
		Background: rgb(0xf5, 0xf5, 0xf5),
		Boundary:   rgb(0x22, 0x22, 0x22),
		Solid:      rgb(0xbb, 0xbb, 0xbb),
		Particle: func(material string, _, _ float64) color.RGBA {
			return materialColor(material)
		},
	},
	"dark": {
		Name:       "dark",
		Background: rgb(0x0a, 0x0a, 0x0a),
		Boundary:   rgb(0x66, 0x66, 0x66),
		Solid:      rgb(0x22, 0x22, 0x22),
		Particle: func(material string, _, speed float64) color.RGBA {
			return mix(materialColor(material), rgb(0xff, 0xff, 0xff), clamp01(speed/4))
		},
	},
}

// GetScheme looks up a scheme by name, falling back to snow.
func GetScheme(name string) ColorScheme {
	if s, ok := ColorSchemes[name]; ok {
		return s
	}
	return ColorSchemes["snow"]
}

func SchemeNames() []string {
	names := make([]string, 0, len(ColorSchemes))
	for name := range ColorSchemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func materialColor(material string) color.RGBA {
	switch material {
	case "ep":
		return rgb(0x4a, 0x90, 0xd9)
	case "jelly":
		return rgb(0xe0, 0x4f, 0x7a)
	case "water":
		return rgb(0x1f, 0x6f, 0xeb)
	case "sand":
		return rgb(0xd9, 0x9a, 0x3b)
	}
	return rgb(0x80, 0x80, 0x80)
}

// Hex formats a color as #rrggbb.
func Hex(c color.RGBA) string {
	const digits = "0123456789abcdef"
	b := []byte{'#', 0, 0, 0, 0, 0, 0}
	for i, v := range []uint8{c.R, c.G, c.B} {
		b[1+2*i] = digits[v>>4]
		b[2+2*i] = digits[v&0x0f]
	}
	return string(b)
}

func rgb(r, g, b uint8) color.RGBA { return color.RGBA{R: r, G: g, B: b, A: 0xff} }

func mix(a, b color.RGBA, t float64) color.RGBA {
	lerp := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.RGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: 0xff}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
