package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Geometry.Kind != "disk" {
		t.Errorf("expected disk default, got %s", cfg.Geometry.Kind)
	}
	if cfg.Scenario != "single-defect" {
		t.Errorf("expected single-defect default, got %s", cfg.Scenario)
	}
	if cfg.Flow.ScaleStep != DefaultScaleStep {
		t.Errorf("expected scale step %g, got %g", DefaultScaleStep, cfg.Flow.ScaleStep)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Geometry.Kind = "torus"
	cfg.Geometry.N = 32
	cfg.Scenario = "defect-pair"
	cfg.Params.Charge = 2
	cfg.Flow.MaxScale = 3.5

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loaded.Geometry.Kind != "torus" || loaded.Geometry.N != 32 {
		t.Errorf("geometry did not round trip: %+v", loaded.Geometry)
	}
	if loaded.Scenario != "defect-pair" {
		t.Errorf("scenario did not round trip: %s", loaded.Scenario)
	}
	if loaded.Params.Charge != 2 {
		t.Errorf("params did not round trip: %+v", loaded.Params)
	}
	if loaded.Flow.MaxScale != 3.5 {
		t.Errorf("flow did not round trip: %+v", loaded.Flow)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestBuildGeometry(t *testing.T) {
	tests := []struct {
		kind string
		dim  int
	}{
		{"disk", 2},
		{"torus", 2},
		{"sphere", 2},
		{"box", 3},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Geometry.Kind = tt.kind
			cfg.Geometry.N = 8
			geo, err := cfg.BuildGeometry()
			if err != nil {
				t.Fatalf("build failed: %v", err)
			}
			if geo.Dim != tt.dim {
				t.Errorf("expected dim %d, got %d", tt.dim, geo.Dim)
			}
		})
	}

	cfg := DefaultConfig()
	cfg.Geometry.Kind = "klein-bottle"
	if _, err := cfg.BuildGeometry(); err == nil {
		t.Error("expected error for unknown geometry")
	}
}

func TestPresets(t *testing.T) {
	cfg := GetPreset("disk", "defect")
	if cfg == nil {
		t.Fatal("expected disk/defect preset")
	}
	if cfg.Scenario != "single-defect" {
		t.Errorf("unexpected scenario: %s", cfg.Scenario)
	}
	if cfg.RicciBound == 0 {
		t.Error("preset should carry a ricci bound")
	}

	if GetPreset("disk", "nonexistent") != nil {
		t.Error("expected nil for unknown preset")
	}
	if GetPreset("moebius", "defect") != nil {
		t.Error("expected nil for unknown geometry")
	}

	if names := ListPresets("torus"); len(names) == 0 {
		t.Error("expected torus presets")
	}
}

func TestFlowConfigConversion(t *testing.T) {
	cfg := DefaultConfig()
	fc := cfg.FlowConfig()
	if fc.ScaleStep != cfg.Flow.ScaleStep || fc.MaxSteps != cfg.Flow.MaxSteps {
		t.Errorf("flow config mismatch: %+v", fc)
	}

	p := cfg.ScenarioParams()
	if p["s0"] != cfg.Params.S0 {
		t.Errorf("scenario params mismatch: %+v", p)
	}
}
