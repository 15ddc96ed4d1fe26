// Package gui shows a running simulation in a raylib window.
package gui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/san-kum/snowsim/internal/metrics"
	"github.com/san-kum/snowsim/internal/mpm"
	"github.com/san-kum/snowsim/internal/render"
)

const telemetryLimit = 300

// WindowOptions mirrors the window section of a scenario.
type WindowOptions struct {
	LevelSetSupersampling int
	ShowImages            bool
	OutputDir             string
	Title                 string
}

type Window struct {
	sim      *mpm.Simulator
	renderer *render.Renderer
	opts     WindowOptions
	series   *metrics.Series

	writer   *render.FrameWriter
	snap     mpm.FrameSnapshot
	frame    *image.RGBA
	pixels   []color.RGBA
	paused   bool
	status   string
	savedAt  int
	tex      rl.Texture2D
	texReady bool
}

func NewWindow(width int, sim *mpm.Simulator, scheme render.ColorScheme, opts WindowOptions) *Window {
	if opts.OutputDir == "" {
		opts.OutputDir = "frames"
	}
	if opts.Title == "" {
		opts.Title = "snowsim"
	}
	w := &Window{
		sim:      sim,
		renderer: render.NewRenderer(width, scheme, opts.LevelSetSupersampling),
		opts:     opts,
		series:   metrics.NewSeries(telemetryLimit),
		savedAt:  -1,
	}
	sim.AddObserver(w.series)
	return w
}

// Run opens the window and blocks until it is closed or ctx is done. The
// window stays open on the last frame once the simulation has finished.
func (w *Window) Run(ctx context.Context) error {
	w.snap = w.sim.Snapshot()
	width, height := w.renderer.Width, w.renderer.Height(w.snap)

	rl.SetTraceLogLevel(rl.LogWarning)
	rl.InitWindow(int32(width), int32(height), w.opts.Title)
	defer rl.CloseWindow()
	rl.SetTargetFPS(60)
	rl.SetExitKey(rl.KeyEscape)

	w.redraw()
	if w.opts.ShowImages {
		if err := w.save(); err != nil {
			return err
		}
	}
	defer func() {
		if w.texReady {
			rl.UnloadTexture(w.tex)
		}
	}()

	for !rl.WindowShouldClose() {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.handleKeys()

		if !w.paused && !w.sim.Finished() {
			if err := w.advance(ctx); err != nil {
				return err
			}
		}

		rl.BeginDrawing()
		rl.ClearBackground(w.renderer.Scheme.Background)
		rl.DrawTexture(w.tex, 0, 0, rl.White)
		w.drawHUD()
		rl.EndDrawing()
	}
	return nil
}

func (w *Window) handleKeys() {
	if rl.IsKeyPressed(rl.KeySpace) {
		w.paused = !w.paused
	}
	if rl.IsKeyPressed(rl.KeyS) {
		if err := w.save(); err != nil {
			log.Printf("gui: save frame: %v", err)
			w.status = "save failed"
		}
	}
}

func (w *Window) advance(ctx context.Context) error {
	if err := w.sim.AdvanceFrame(ctx); err != nil {
		if errors.Is(err, mpm.ErrFinished) {
			return nil
		}
		return err
	}
	w.snap = w.sim.Snapshot()
	w.redraw()
	if w.opts.ShowImages {
		return w.save()
	}
	return nil
}

// redraw renders the current snapshot and uploads it to the texture.
func (w *Window) redraw() {
	w.frame = w.renderer.Render(w.snap, w.sim.LevelSet())
	w.pixels = toPixels(w.frame, w.pixels)

	if !w.texReady {
		img := rl.NewImageFromImage(w.frame)
		w.tex = rl.LoadTextureFromImage(img)
		rl.UnloadImage(img)
		w.texReady = true
		return
	}
	rl.UpdateTexture(w.tex, w.pixels)
}

func (w *Window) save() error {
	if w.frame == nil || w.savedAt == w.snap.Frame {
		return nil
	}
	if w.writer == nil {
		fw, err := render.NewFrameWriter(w.opts.OutputDir)
		if err != nil {
			return err
		}
		w.writer = fw
	}
	path, err := w.writer.Write(w.snap.Frame, w.frame)
	if err != nil {
		return fmt.Errorf("gui: write frame %d: %w", w.snap.Frame, err)
	}
	w.savedAt = w.snap.Frame
	w.status = "saved " + path
	return nil
}

// toPixels copies an RGBA image into a packed pixel slice, reusing buf.
func toPixels(img *image.RGBA, buf []color.RGBA) []color.RGBA {
	b := img.Bounds()
	n := b.Dx() * b.Dy()
	if cap(buf) < n {
		buf = make([]color.RGBA, n)
	}
	buf = buf[:n]
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride:]
		for x := 0; x < b.Dx(); x++ {
			p := row[x*4 : x*4+4]
			buf[i] = color.RGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
			i++
		}
	}
	return buf
}
