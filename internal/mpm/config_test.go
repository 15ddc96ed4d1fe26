package mpm

import (
	"errors"
	"testing"

	"github.com/san-kum/snowsim/internal/vmath"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"default", func(c *Config) {}, true},
		{"tiny grid", func(c *Config) { c.Res = vmath.Vec2i{X: 2, Y: 2} }, false},
		{"no time", func(c *Config) { c.SimulationTime = 0 }, false},
		{"frame below base", func(c *Config) { c.FrameDt = 1e-7 }, false},
		{"fractional ticks", func(c *Config) { c.FrameDt = 2.5e-6 }, false},
		{"negative debug", func(c *Config) { c.DebugInput[1] = -1 }, false},
		{"one tick frames", func(c *Config) { c.FrameDt = c.BaseDeltaT }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrConfig) {
				t.Fatalf("error = %v, want ErrConfig", err)
			}
		})
	}
}

func TestConfig_Derived(t *testing.T) {
	cfg := DefaultConfig()

	if got := cfg.Dx(); got != 1.0/180 {
		t.Errorf("Dx = %g", got)
	}
	if got := cfg.TicksPerFrame(); got != 20000 {
		t.Errorf("TicksPerFrame = %d, want 20000", got)
	}
	if got := cfg.TotalFrames(); got != 100 {
		t.Errorf("TotalFrames = %d, want 100", got)
	}
	// 2^14 <= 20000 < 2^15, so the frame length caps the default of 16.
	if got := cfg.MaxLevel(); got != 14 {
		t.Errorf("MaxLevel = %d, want 14", got)
	}

	cfg.DebugInput = [4]int{10, 25, 1, 1}
	if got := cfg.MaxLevel(); got != 10 {
		t.Errorf("MaxLevel = %d, want 10", got)
	}
	if got := cfg.EffectiveCFL(); got != 0.25 {
		t.Errorf("EffectiveCFL = %g, want 0.25", got)
	}
	if !cfg.Trace() || !cfg.ForceSync() {
		t.Error("debug flags not honored")
	}
}
