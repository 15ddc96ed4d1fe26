package render

import (
	"image"
	"image/color"
	"math"

	"github.com/san-kum/snowsim/internal/levelset"
	"github.com/san-kum/snowsim/internal/mpm"
)

// Renderer rasterizes frame snapshots. The background layer with the level
// set is cached and only rebuilt when the level set or size changes.
type Renderer struct {
	Width         int
	Scheme        ColorScheme
	Supersampling int
	ParticleSize  int

	cache   *image.RGBA
	cacheLS *levelset.LevelSet
	cacheW  int
}

func NewRenderer(width int, scheme ColorScheme, supersampling int) *Renderer {
	if supersampling < 1 {
		supersampling = 1
	}
	return &Renderer{Width: width, Scheme: scheme, Supersampling: supersampling, ParticleSize: 2}
}

// Height follows the domain aspect ratio.
func (r *Renderer) Height(snap mpm.FrameSnapshot) int {
	size := snap.DomainSize()
	if size.X <= 0 {
		return r.Width
	}
	return max(1, int(math.Round(float64(r.Width)*size.Y/size.X)))
}

func (r *Renderer) Render(snap mpm.FrameSnapshot, ls *levelset.LevelSet) *image.RGBA {
	w, h := r.Width, r.Height(snap)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	copy(img.Pix, r.background(snap, ls, w, h).Pix)

	size := snap.DomainSize()
	if size.X <= 0 || size.Y <= 0 {
		return img
	}
	sx, sy := float64(w)/size.X, float64(h)/size.Y
	ps := max(1, r.ParticleSize)

	for i, x := range snap.Positions {
		px := int(x.X * sx)
		py := h - 1 - int(x.Y*sy)
		c := r.Scheme.Particle(snap.Materials[i], snap.Jp[i], snap.Velocities[i].Len())
		for dy := 0; dy < ps; dy++ {
			for dx := 0; dx < ps; dx++ {
				setIn(img, px+dx-ps/2, py+dy-ps/2, c)
			}
		}
	}
	return img
}

func (r *Renderer) background(snap mpm.FrameSnapshot, ls *levelset.LevelSet, w, h int) *image.RGBA {
	if r.cache != nil && r.cacheLS == ls && r.cacheW == w && r.cache.Bounds().Dy() == h {
		return r.cache
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	bg := r.Scheme.Background
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = bg.R, bg.G, bg.B, bg.A
	}

	if ls != nil && !ls.Empty() {
		field := ls.Supersample(r.Supersampling)
		ny, nx := len(field), len(field[0])
		size := snap.DomainSize()
		// Half a pixel of boundary on either side of the zero contour.
		band := 0.75 * size.X / float64(w)
		for py := 0; py < h; py++ {
			fy := (1 - (float64(py)+0.5)/float64(h)) * float64(ny-1)
			for px := 0; px < w; px++ {
				fx := (float64(px) + 0.5) / float64(w) * float64(nx-1)
				phi := bilinear(field, fx, fy)
				switch {
				case math.Abs(phi) < band:
					img.SetRGBA(px, py, r.Scheme.Boundary)
				case phi < 0:
					img.SetRGBA(px, py, r.Scheme.Solid)
				}
			}
		}
	}

	r.cache, r.cacheLS, r.cacheW = img, ls, w
	return img
}

func bilinear(f [][]float64, x, y float64) float64 {
	ny, nx := len(f), len(f[0])
	i := min(max(int(x), 0), nx-2)
	j := min(max(int(y), 0), ny-2)
	if nx < 2 || ny < 2 {
		return f[0][0]
	}
	tx, ty := x-float64(i), y-float64(j)
	a := f[j][i]*(1-tx) + f[j][i+1]*tx
	b := f[j+1][i]*(1-tx) + f[j+1][i+1]*tx
	return a*(1-ty) + b*ty
}

func setIn(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Rect) {
		img.SetRGBA(x, y, c)
	}
}
