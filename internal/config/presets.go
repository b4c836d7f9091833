package config

var Presets = map[string]map[string]*Config{
	"disk": {
		"defect": {
			Geometry: GeometryConfig{Kind: "disk", N: 24},
			Scenario: "single-defect",
			Params:   ScenarioConfig{S0: 0.6, Charge: 1},
			Flow:     FlowConfig{ScaleStep: 0.02, MaxScale: 1.0, Tolerance: 1e-4, MaxSteps: 200, Window: 3},
		},
		"pair": {
			Geometry: GeometryConfig{Kind: "disk", N: 32},
			Scenario: "defect-pair",
			Params:   ScenarioConfig{S0: 0.6, Charge: 1, Separation: 0.6},
			Flow:     FlowConfig{ScaleStep: 0.02, MaxScale: 2.0, Tolerance: 1e-4, MaxSteps: 400, Window: 3},
		},
		"anchored": {
			Geometry: GeometryConfig{Kind: "disk", N: 24},
			Scenario: "anchoring",
			Params:   ScenarioConfig{S0: 0.6, Tilt: 0.785398},
			Flow:     FlowConfig{ScaleStep: 0.01, MaxScale: 0.5, Tolerance: 1e-4, MaxSteps: 200, Window: 3},
		},
	},
	"torus": {
		"pair": {
			Geometry: GeometryConfig{Kind: "torus", N: 24, Major: 2.0, Minor: 0.6},
			Scenario: "defect-pair",
			Params:   ScenarioConfig{S0: 0.6, Charge: 1, Separation: 1.0},
			Flow:     FlowConfig{ScaleStep: 0.01, MaxScale: 1.0, Tolerance: 1e-4, MaxSteps: 300, Window: 3},
		},
		"twisted": {
			Geometry: GeometryConfig{Kind: "torus", N: 24, Major: 2.0, Minor: 0.6},
			Scenario: "twisted",
			Params:   ScenarioConfig{S0: 0.6, Pitch: 2.0},
			Flow:     FlowConfig{ScaleStep: 0.01, MaxScale: 1.0, Tolerance: 1e-4, MaxSteps: 300, Window: 3},
		},
	},
	"sphere": {
		"uniform": {
			Geometry: GeometryConfig{Kind: "sphere", N: 20, Radius: 1.0},
			Scenario: "uniform",
			Params:   ScenarioConfig{S0: 0.6},
			Flow:     FlowConfig{ScaleStep: 0.005, MaxScale: 0.2, Tolerance: 1e-4, MaxSteps: 100, Window: 3},
		},
	},
	"box": {
		"twisted": {
			Geometry: GeometryConfig{Kind: "box", N: 12},
			Scenario: "twisted",
			Params:   ScenarioConfig{S0: 0.6, Pitch: 3.14159},
			Flow:     FlowConfig{ScaleStep: 0.02, MaxScale: 1.0, Tolerance: 1e-4, MaxSteps: 200, Window: 3},
		},
	},
}

func GetPreset(kind, preset string) *Config {
	kindPresets, ok := Presets[kind]
	if !ok {
		return nil
	}
	cfg, ok := kindPresets[preset]
	if !ok {
		return nil
	}
	out := *cfg
	if out.RicciBound == 0 {
		out.RicciBound = DefaultRicciBound
	}
	return &out
}

func ListPresets(kind string) []string {
	kindPresets, ok := Presets[kind]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(kindPresets))
	for name := range kindPresets {
		names = append(names, name)
	}
	return names
}
