package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/snowsim/internal/levelset"
	"github.com/san-kum/snowsim/internal/mpm"
	"github.com/san-kum/snowsim/internal/render"
)

// FrameToSVG draws a snapshot as one circle per particle, with the zero
// contour of the level set as a path. scale is pixels per domain unit.
func FrameToSVG(snap mpm.FrameSnapshot, ls *levelset.LevelSet, scheme render.ColorScheme, scale float64) string {
	size := snap.DomainSize()
	width := size.X * scale
	height := size.Y * scale

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, render.Hex(scheme.Background)))

	if ls != nil && !ls.Empty() {
		segs := Contour(ls.Supersample(2), ls.Dx()/2)
		if len(segs) > 0 {
			sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="`, render.Hex(scheme.Boundary)))
			for _, s := range segs {
				sb.WriteString(fmt.Sprintf("M%.1f,%.1f L%.1f,%.1f ",
					s[0]*scale, height-s[1]*scale, s[2]*scale, height-s[3]*scale))
			}
			sb.WriteString("\"/>\n")
		}
	}

	r := 0.4 * snap.Dx * scale
	if r < 0.5 {
		r = 0.5
	}
	sb.WriteString("<g>\n")
	for i, p := range snap.Positions {
		c := scheme.Particle(snap.Materials[i], snap.Jp[i], snap.Velocities[i].Len())
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>
`, p.X*scale, height-p.Y*scale, r, render.Hex(c)))
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// Contour extracts the zero crossing of a [j][i] field with spacing h as
// line segments {x0, y0, x1, y1} by marching squares.
func Contour(field [][]float64, h float64) [][4]float64 {
	var segs [][4]float64
	for j := 0; j+1 < len(field); j++ {
		for i := 0; i+1 < len(field[j]); i++ {
			v := [4]float64{field[j][i], field[j][i+1], field[j+1][i+1], field[j+1][i]}
			corners := [4][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

			var pts [][2]float64
			for e := 0; e < 4; e++ {
				a, b := v[e], v[(e+1)%4]
				if (a < 0) == (b < 0) {
					continue
				}
				t := a / (a - b)
				ca, cb := corners[e], corners[(e+1)%4]
				pts = append(pts, [2]float64{
					(float64(i) + ca[0] + (cb[0]-ca[0])*t) * h,
					(float64(j) + ca[1] + (cb[1]-ca[1])*t) * h,
				})
			}
			for k := 0; k+1 < len(pts); k += 2 {
				segs = append(segs, [4]float64{pts[k][0], pts[k][1], pts[k+1][0], pts[k+1][1]})
			}
		}
	}
	return segs
}

// SeriesToSVG plots ys against xs as a polyline.
func SeriesToSVG(xs, ys []float64, width, height int, strokeColor string) string {
	n := min(len(xs), len(ys))
	if n < 2 {
		return ""
	}

	minX, maxX := xs[0], xs[0]
	minY, maxY := ys[0], ys[0]
	for i := 0; i < n; i++ {
		minX, maxX = min(minX, xs[i]), max(maxX, xs[i])
		minY, maxY = min(minY, ys[i]), max(maxY, ys[i])
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor))

	for i := 0; i < n; i++ {
		x := (xs[i] - minX) / rangeX * float64(width)
		y := float64(height) - (ys[i]-minY)/rangeY*float64(height)

		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
