package export

import (
	"math"
	"strings"
	"testing"

	"github.com/san-kum/snowsim/internal/levelset"
	"github.com/san-kum/snowsim/internal/mpm"
	"github.com/san-kum/snowsim/internal/render"
	"github.com/san-kum/snowsim/internal/vmath"
)

func TestFrameToSVG(t *testing.T) {
	snap := mpm.FrameSnapshot{
		Res:        vmath.Vec2i{X: 20, Y: 10},
		Dx:         0.1,
		Positions:  []vmath.Vec2{vmath.V(0.5, 0.5), vmath.V(1.5, 0.2)},
		Velocities: []vmath.Vec2{{}, {}},
		Materials:  []string{"ep", "ep"},
		Jp:         []float64{1, 1},
	}
	ls := levelset.New(snap.Res, snap.Dx)
	if err := ls.AddPlane(vmath.V(0, 1), 0.15); err != nil {
		t.Fatal(err)
	}

	svg := FrameToSVG(snap, ls, render.GetScheme("snow"), 100)

	if !strings.Contains(svg, `width="200" height="100"`) {
		t.Errorf("unexpected svg size: %s", svg[:120])
	}
	if got := strings.Count(svg, "<circle"); got != 2 {
		t.Errorf("expected 2 circles, got %d", got)
	}
	if !strings.Contains(svg, "<path") {
		t.Error("expected level set contour")
	}
	if !strings.Contains(svg, `cx="50.0" cy="50.0"`) {
		t.Error("particle not flipped into svg coordinates")
	}
}

func TestContour_Plane(t *testing.T) {
	ls := levelset.New(vmath.Vec2i{X: 4, Y: 4}, 0.25)
	if err := ls.AddPlane(vmath.V(0, 1), 0.4); err != nil {
		t.Fatal(err)
	}

	segs := Contour(ls.Supersample(1), 0.25)
	if len(segs) != 4 {
		t.Fatalf("expected one segment per column, got %d", len(segs))
	}
	for _, s := range segs {
		if math.Abs(s[1]-0.4) > 1e-9 || math.Abs(s[3]-0.4) > 1e-9 {
			t.Errorf("segment %v is off the zero line", s)
		}
	}
}

func TestSeriesToSVG(t *testing.T) {
	if SeriesToSVG([]float64{1}, []float64{1}, 100, 50, "#fff") != "" {
		t.Error("expected empty output for a single point")
	}
	svg := SeriesToSVG([]float64{0, 1, 2}, []float64{1, 3, 2}, 100, 50, "#00ff00")
	if !strings.Contains(svg, "L100.0") {
		t.Error("expected the series to span the width")
	}
}
