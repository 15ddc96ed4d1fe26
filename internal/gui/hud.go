package gui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
)

var (
	colText    = rl.NewColor(230, 236, 242, 255)
	colTextDim = rl.NewColor(150, 160, 170, 255)
	colPanel   = rl.NewColor(0, 0, 0, 110)
	colAccent  = rl.NewColor(140, 200, 255, 255)
)

func (w *Window) drawHUD() {
	rl.DrawRectangle(8, 8, 230, 104, colPanel)

	status := "RUNNING"
	switch {
	case w.sim.Finished():
		status = "DONE"
	case w.paused:
		status = "PAUSED"
	}
	for i, line := range w.hudLines(status) {
		c := colText
		if i == 0 {
			c = colAccent
		}
		rl.DrawText(line, 16, int32(14+i*16), 14, c)
	}

	width := int32(w.renderer.Width)
	height := int32(w.renderer.Height(w.snap))
	w.drawTelemetry(16, height-60, min(300, width-32), 44)

	rl.DrawText("[SPACE] PAUSE  [S] SAVE  [ESC] QUIT", width-280, height-20, 12, colTextDim)
	if w.status != "" {
		rl.DrawText(w.status, 16, height-14, 10, colTextDim)
	}
	rl.DrawText(fmt.Sprintf("%d FPS", rl.GetFPS()), width-60, 12, 12, colTextDim)
}

func (w *Window) hudLines(status string) []string {
	level := 0.0
	if n := len(w.series.Levels); n > 0 {
		level = w.series.Levels[n-1]
	}
	return []string{
		fmt.Sprintf("%s  %s", w.opts.Title, status),
		fmt.Sprintf("t = %.4f s", w.snap.Time),
		fmt.Sprintf("frame %d", w.snap.Frame),
		fmt.Sprintf("%d particles", w.snap.Len()),
		fmt.Sprintf("mean level %.2f", level),
	}
}

func (w *Window) drawTelemetry(x, y, width, height int32) {
	pts := telemetryPoints(w.series.Energy, float32(x), float32(y), float32(width), float32(height))
	if len(pts) < 2 {
		return
	}
	points := make([]rl.Vector2, len(pts))
	for i, p := range pts {
		points[i] = rl.NewVector2(p[0], p[1])
	}
	rl.DrawLineStrip(points, colAccent)
	last := w.series.Energy[len(w.series.Energy)-1]
	rl.DrawText(fmt.Sprintf("E %.2e", last), x+width+6, y+height-10, 12, colTextDim)
}

// telemetryPoints fits values into the rectangle, larger values higher.
func telemetryPoints(values []float64, x, y, width, height float32) [][2]float32 {
	if len(values) < 2 {
		return nil
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if hi == lo {
		hi = lo + 1
	}
	pts := make([][2]float32, len(values))
	for i, v := range values {
		px := x + float32(i)/float32(len(values)-1)*width
		py := y + height - float32((v-lo)/(hi-lo))*height
		pts[i] = [2]float32{px, py}
	}
	return pts
}
