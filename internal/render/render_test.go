package render

import (
	"image/png"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/snowsim/internal/levelset"
	"github.com/san-kum/snowsim/internal/mpm"
	"github.com/san-kum/snowsim/internal/vmath"
)

func snapshot() mpm.FrameSnapshot {
	return mpm.FrameSnapshot{
		Frame:      3,
		Res:        vmath.Vec2i{X: 32, Y: 16},
		Dx:         1.0 / 16,
		Positions:  []vmath.Vec2{vmath.V(1, 0.5)},
		Velocities: []vmath.Vec2{{}},
		Materials:  []string{"ep"},
		Jp:         []float64{1},
	}
}

func TestGetScheme(t *testing.T) {
	assert.Equal(t, "water", GetScheme("water").Name)
	assert.Equal(t, "snow", GetScheme("neon").Name)
	assert.Equal(t, []string{"bright", "dark", "sand", "snow", "water"}, SchemeNames())
}

func TestSchemes_ParticleColors(t *testing.T) {
	for _, name := range SchemeNames() {
		s := GetScheme(name)
		c := s.Particle("ep", 0.7, 1)
		assert.Equal(t, uint8(0xff), c.A, name)
	}
	snow := GetScheme("snow")
	assert.NotEqual(t, snow.Particle("ep", 1, 0), snow.Particle("ep", 0.6, 0))
}

func TestHex(t *testing.T) {
	assert.Equal(t, "#1b263b", Hex(rgb(0x1b, 0x26, 0x3b)))
}

func TestRender_AspectAndParticles(t *testing.T) {
	r := NewRenderer(200, GetScheme("snow"), 2)
	snap := snapshot()

	img := r.Render(snap, nil)
	require.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())

	assert.Equal(t, r.Scheme.Background, img.RGBAAt(5, 5))
	assert.Equal(t, r.Scheme.Particle("ep", 1, 0), img.RGBAAt(100, 49))
}

func TestRender_LevelSet(t *testing.T) {
	snap := snapshot()
	ls := levelset.New(snap.Res, snap.Dx)
	require.NoError(t, ls.AddPlane(vmath.V(0, 1), 0.25))

	r := NewRenderer(200, GetScheme("dark"), 2)
	img := r.Render(snap, ls)

	// Below the plane is solid, above is free.
	assert.Equal(t, r.Scheme.Solid, img.RGBAAt(20, 95))
	assert.Equal(t, r.Scheme.Background, img.RGBAAt(20, 10))
	assert.Equal(t, r.Scheme.Boundary, img.RGBAAt(20, 75))

	// A second render reuses the cached layer without sharing pixels.
	img.SetRGBA(20, 10, rgb(1, 2, 3))
	again := r.Render(snap, ls)
	assert.Equal(t, r.Scheme.Background, again.RGBAAt(20, 10))
}

func TestFrameWriter(t *testing.T) {
	w, err := NewFrameWriter(t.TempDir())
	require.NoError(t, err)

	img := NewRenderer(64, GetScheme("snow"), 1).Render(snapshot(), nil)
	path, err := w.Write(7, img)
	require.NoError(t, err)
	assert.Contains(t, path, "frame_00007.png")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	decoded, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}
