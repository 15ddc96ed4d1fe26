package experiment

import (
	"sort"

	"github.com/san-kum/snowsim/internal/config"
	"github.com/san-kum/snowsim/internal/mpm"
	"github.com/san-kum/snowsim/internal/render"
)

type Registry struct {
	materials map[string]string
	shapes    map[string]string
}

func NewRegistry() *Registry {
	r := &Registry{
		materials: make(map[string]string),
		shapes:    make(map[string]string),
	}

	r.materials["ep"] = "elasto-plastic snow with hardening"
	r.materials["jelly"] = "elastic solid"
	r.materials["water"] = "weakly compressible fluid"
	r.materials["sand"] = "Drucker-Prager granular material"

	r.shapes["sphere"] = "disc emitter / circular boundary"
	r.shapes["box"] = "axis-aligned emitter"
	r.shapes["polygon"] = "emitter or container/obstacle boundary"
	r.shapes["plane"] = "half-space boundary"

	return r
}

func (r *Registry) ListMaterials() []string { return sortedKeys(r.materials) }
func (r *Registry) ListShapes() []string    { return sortedKeys(r.shapes) }

func (r *Registry) DescribeMaterial(name string) (string, bool) {
	d, ok := r.materials[name]
	return d, ok
}

// MaterialDefaults instantiates a material with default parameters.
func (r *Registry) MaterialDefaults(name string) (mpm.Material, error) {
	return mpm.NewMaterial(name, mpm.MaterialOptions{})
}

func (r *Registry) ListSchemes() []string { return render.SchemeNames() }

func (r *Registry) ListPresets() []string { return config.ListPresets() }

func sortedKeys(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
