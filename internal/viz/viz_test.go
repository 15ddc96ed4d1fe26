package viz

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/snowsim/internal/mpm"
	"github.com/san-kum/snowsim/internal/vmath"
)

func TestCanvasSet(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(1, 3)
	if got := c.cells[0]; got != blank|0x1|0x80 {
		t.Errorf("cell = %#x", got)
	}
	if !c.IsSet(1, 3) || c.IsSet(0, 1) {
		t.Error("unexpected dot state")
	}

	c.Set(-1, 0)
	c.Set(4, 0)
	c.Set(0, 4)
	if c.IsSet(4, 0) {
		t.Error("out of bounds dot set")
	}

	c.Clear()
	if c.IsSet(0, 0) {
		t.Error("clear left dots")
	}
}

func TestCanvasLineAndString(t *testing.T) {
	c := NewCanvas(4, 3)
	c.DrawLine(0, 5, 7, 5)
	for x := 0; x < 8; x++ {
		if !c.IsSet(x, 5) {
			t.Errorf("dot %d not set", x)
		}
	}
	if lines := strings.Split(c.String(), "\n"); len(lines) != 3 {
		t.Errorf("lines = %d, want 3", len(lines))
	}
}

func TestViewport(t *testing.T) {
	c := NewCanvas(10, 5) // 20x20 dots
	v := c.Viewport(vmath.V(2, 1))

	tests := []struct {
		p    vmath.Vec2
		x, y int
	}{
		{vmath.V(0, 0), 0, 19},
		{vmath.V(1, 1), 10, 9},
		{vmath.V(1.95, 0.5), 19, 14},
	}
	for _, tt := range tests {
		x, y := v.Project(tt.p)
		if x != tt.x || y != tt.y {
			t.Errorf("Project(%v) = (%d,%d), want (%d,%d)", tt.p, x, y, tt.x, tt.y)
		}
	}
}

func TestThemes(t *testing.T) {
	if GetTheme("nope").Name != "frost" {
		t.Error("unknown theme should fall back to frost")
	}
	if NextTheme("mono").Name != "frost" {
		t.Error("NextTheme should wrap")
	}
	if NextTheme("frost").Name != "aurora" {
		t.Error("NextTheme order")
	}
	if len(ThemeNames()) != len(Themes) {
		t.Error("ThemeNames length")
	}
	if themeForScheme("sand").Name != "dune" {
		t.Error("sand scheme theme")
	}
}

func testSim(t *testing.T) *mpm.Simulator {
	t.Helper()
	cfg := mpm.DefaultConfig()
	cfg.Res = vmath.Vec2i{X: 32, Y: 32}
	cfg.FrameDt = 1e-3
	cfg.BaseDeltaT = 1e-5
	cfg.SimulationTime = 3e-3
	cfg.Async = true
	cfg.Seed = 3
	sim, err := mpm.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	sim.SetLogger(nil)
	if _, err := sim.AddParticlesSphere(vmath.V(0.5, 0.5), 0.1, "snow", mpm.ParticleOptions{}); err != nil {
		t.Fatal(err)
	}
	return sim
}

func TestRunnerDeliversFrames(t *testing.T) {
	r := NewRunner(testSim(t))
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	r.Start(ctx)

	frames := 0
	for {
		msg := r.Next()()
		if msg == nil {
			t.Fatal("channel closed before DoneMsg")
		}
		if done, ok := msg.(DoneMsg); ok {
			if done.Err != nil {
				t.Fatal(done.Err)
			}
			break
		}
		fm := msg.(FrameMsg)
		frames++
		if fm.Snap.Frame != frames {
			t.Errorf("snapshot frame = %d, want %d", fm.Snap.Frame, frames)
		}
		if fm.Snap.Len() == 0 {
			t.Error("empty snapshot")
		}
	}
	if frames != 3 {
		t.Errorf("frames = %d, want 3", frames)
	}
}

func TestRunnerPause(t *testing.T) {
	r := NewRunner(testSim(t))
	r.SetPaused(true)
	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)

	select {
	case <-r.msgs:
		t.Fatal("paused runner produced a frame")
	case <-time.After(50 * time.Millisecond):
	}

	r.SetPaused(false)
	if _, ok := r.Next()().(FrameMsg); !ok {
		t.Error("resumed runner should produce a frame")
	}
	cancel()
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelUpdate(t *testing.T) {
	r := NewRunner(testSim(t))
	m := NewModel(r, Options{Title: "test", Scheme: "snow"})
	if m.theme.Name != "frost" {
		t.Fatalf("theme = %s", m.theme.Name)
	}

	next, _ := m.Update(keyPress("p"))
	m = next.(Model)
	if !m.paused || !r.Paused() {
		t.Error("p should pause")
	}

	next, _ = m.Update(keyPress("t"))
	m = next.(Model)
	if m.theme.Name != "aurora" {
		t.Errorf("theme = %s, want aurora", m.theme.Name)
	}

	next, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(Model)
	if m.canvas.Width != 120-statsWidth-6 || m.canvas.Height != 36 {
		t.Errorf("canvas = %dx%d", m.canvas.Width, m.canvas.Height)
	}

	snap := r.sim.Snapshot()
	next, cmd := m.Update(FrameMsg{Info: mpm.FrameInfo{Frame: 1, KineticEnergy: 2}, Snap: snap})
	m = next.(Model)
	if cmd == nil || len(m.energy) != 1 || m.energy[0] != 2 {
		t.Error("frame not recorded")
	}

	next, _ = m.Update(DoneMsg{})
	m = next.(Model)
	if !m.finished {
		t.Error("done not recorded")
	}
	if view := m.View(); !strings.Contains(view, "DONE") {
		t.Error("view should report DONE")
	}

	_, cmd = m.Update(keyPress("q"))
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should return tea.Quit")
	}
}

func TestLevelBars(t *testing.T) {
	st := newStyles(ThemeMono)
	out := levelBars([]int{0, 10, 0}, st)
	if !strings.Contains(out, "█") {
		t.Errorf("full level should render a full bar: %q", out)
	}
	if !strings.Contains(levelBars(nil, st), "none") {
		t.Error("empty histogram")
	}
}
