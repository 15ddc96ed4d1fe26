package config

import (
	"fmt"
	"sort"

	"github.com/san-kum/snowsim/internal/mpm"
)

// box is the container used by most presets: the full domain minus a
// small margin.
var box = ShapeConfig{
	Type:     "polygon",
	Inside:   true,
	Vertices: [][2]float64{{0.05, 0.05}, {1.73, 0.05}, {1.73, 0.95}, {0.05, 0.95}},
}

var window = WindowConfig{Width: 640, ColorScheme: "snow", LevelSetSupersampling: 2, ShowImages: true}

var Presets = map[string]*Scenario{
	"snowball": {
		Name: "snowball", Res: [2]int{320, 180}, SimulationTime: 2, FrameDt: 2e-2, BaseDeltaT: 1e-6,
		Async: true, DebugInput: [4]int{16, 10, 0, 0}, Gravity: [2]float64{0, -10},
		Events: []EventConfig{{Time: -1, Emit: EmitConfig{
			Shape: "sphere", Center: [2]float64{0.72, 0.45}, Radius: 0.10, Material: "ep",
			Velocity:        [2]float64{1.0, 0.0},
			MaterialOptions: mpm.MaterialOptions{Compression: 0.8, ThetaS: 0.002},
		}}},
		LevelSet: LevelSetConfig{Shapes: []ShapeConfig{box}},
		Window:   window,
	},
	"snowball_sync": {
		Name: "snowball_sync", Res: [2]int{320, 180}, SimulationTime: 2, FrameDt: 2e-2, BaseDeltaT: 1e-6,
		Async: false, DebugInput: [4]int{16, 10, 0, 0}, Gravity: [2]float64{0, -10},
		Events: []EventConfig{{Time: -1, Emit: EmitConfig{
			Shape: "sphere", Center: [2]float64{0.72, 0.45}, Radius: 0.10, Material: "ep",
			Velocity:        [2]float64{1.0, 0.0},
			MaterialOptions: mpm.MaterialOptions{Compression: 0.8, ThetaS: 0.002},
		}}},
		LevelSet: LevelSetConfig{Shapes: []ShapeConfig{box}},
		Window:   window,
	},
	"snow_smash": {
		Name: "snow_smash", Res: [2]int{320, 180}, SimulationTime: 1.5, FrameDt: 2e-2, BaseDeltaT: 1e-6,
		Async: true, DebugInput: [4]int{16, 10, 0, 0}, Gravity: [2]float64{0, -10},
		Events: []EventConfig{
			{Time: -1, Emit: EmitConfig{
				Shape: "sphere", Center: [2]float64{0.45, 0.5}, Radius: 0.09, Material: "ep",
				Velocity:        [2]float64{4, 0},
				MaterialOptions: mpm.MaterialOptions{Compression: 0.9},
			}},
			{Time: -1, Emit: EmitConfig{
				Shape: "sphere", Center: [2]float64{1.3, 0.55}, Radius: 0.09, Material: "ep",
				Velocity:        [2]float64{-4, 0},
				MaterialOptions: mpm.MaterialOptions{Compression: 0.9},
			}},
		},
		LevelSet: LevelSetConfig{Shapes: []ShapeConfig{box}},
		Window:   window,
	},
	"dam_break": {
		Name: "dam_break", Res: [2]int{320, 180}, SimulationTime: 2, FrameDt: 2e-2, BaseDeltaT: 1e-6,
		Async: true, DebugInput: [4]int{16, 10, 0, 0}, Gravity: [2]float64{0, -10},
		Events: []EventConfig{{Time: -1, Emit: EmitConfig{
			Shape: "box", Min: [2]float64{0.06, 0.06}, Max: [2]float64{0.5, 0.7}, Material: "water",
		}}},
		LevelSet: LevelSetConfig{Shapes: []ShapeConfig{box}},
		Window:   WindowConfig{Width: 640, ColorScheme: "water", LevelSetSupersampling: 2, ShowImages: true},
	},
	"sand_pile": {
		Name: "sand_pile", Res: [2]int{320, 180}, SimulationTime: 2, FrameDt: 2e-2, BaseDeltaT: 1e-6,
		Async: true, DebugInput: [4]int{16, 10, 0, 0}, Gravity: [2]float64{0, -10},
		Events: []EventConfig{
			{Time: -1, Emit: EmitConfig{
				Shape: "box", Min: [2]float64{0.75, 0.55}, Max: [2]float64{1.0, 0.9}, Material: "sand",
			}},
			{Time: 0.5, Emit: EmitConfig{
				Shape: "box", Min: [2]float64{0.8, 0.7}, Max: [2]float64{0.95, 0.9}, Material: "sand",
			}},
		},
		LevelSet: LevelSetConfig{Friction: 0.5, Shapes: []ShapeConfig{
			box,
			{Type: "polygon", Vertices: [][2]float64{{0.6, 0.05}, {1.15, 0.05}, {0.875, 0.3}}},
		}},
		Window: WindowConfig{Width: 640, ColorScheme: "sand", LevelSetSupersampling: 2, ShowImages: true},
	},
	"jelly_drop": {
		Name: "jelly_drop", Res: [2]int{320, 180}, SimulationTime: 1.5, FrameDt: 2e-2, BaseDeltaT: 1e-6,
		Async: true, DebugInput: [4]int{16, 10, 0, 0}, Gravity: [2]float64{0, -10},
		Events: []EventConfig{{Time: -1, Emit: EmitConfig{
			Shape: "polygon", Material: "jelly",
			Vertices: [][2]float64{{0.7, 0.6}, {0.95, 0.6}, {1.0, 0.75}, {0.82, 0.88}, {0.65, 0.75}},
			Velocity: [2]float64{0.5, -1},
		}}},
		LevelSet: LevelSetConfig{Friction: 0.3, Shapes: []ShapeConfig{
			box,
			{Type: "sphere", Center: [2]float64{0.9, 0.2}, Radius: 0.12},
		}},
		Window: WindowConfig{Width: 640, ColorScheme: "bright", LevelSetSupersampling: 2, ShowImages: true},
	},
}

// GetPreset returns a copy of the named preset.
func GetPreset(name string) (*Scenario, error) {
	cfg, ok := Presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return cfg.Clone(), nil
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
