package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmptyTuningConfigDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	// Every accessor must return the canonical default when the field is nil.
	if cfg.GetFPS() != 30.0 {
		t.Errorf("GetFPS() = %f, want 30.0", cfg.GetFPS())
	}
	if cfg.GetPixelsPerMeter() != 50.0 {
		t.Errorf("GetPixelsPerMeter() = %f, want 50.0", cfg.GetPixelsPerMeter())
	}
	if cfg.GetTrackHistoryLength() != 30 {
		t.Errorf("GetTrackHistoryLength() = %d, want 30", cfg.GetTrackHistoryLength())
	}
	if cfg.GetProximityIoUThreshold() != 0.05 {
		t.Errorf("GetProximityIoUThreshold() = %f, want 0.05", cfg.GetProximityIoUThreshold())
	}
	if cfg.GetCollisionIoUThreshold() != 0.15 {
		t.Errorf("GetCollisionIoUThreshold() = %f, want 0.15", cfg.GetCollisionIoUThreshold())
	}
	if cfg.GetPostCollisionWindow() != 90 {
		t.Errorf("GetPostCollisionWindow() = %d, want 90", cfg.GetPostCollisionWindow())
	}
	if cfg.GetMinStopDuration() != 30 {
		t.Errorf("GetMinStopDuration() = %d, want 30", cfg.GetMinStopDuration())
	}
	if cfg.GetMinIndicatorsForAccident() != 3 {
		t.Errorf("GetMinIndicatorsForAccident() = %d, want 3", cfg.GetMinIndicatorsForAccident())
	}
	if cfg.GetHighConfidenceIndicators() != 4 {
		t.Errorf("GetHighConfidenceIndicators() = %d, want 4", cfg.GetHighConfidenceIndicators())
	}
	if !cfg.GetEnableTrajectoryDetection() {
		t.Error("GetEnableTrajectoryDetection() = false, want true")
	}
	if !cfg.GetFilterParallelMovement() {
		t.Error("GetFilterParallelMovement() = false, want true")
	}
	// The eviction asymmetry between the track store (30) and the detector's
	// vehicle-state map (60) is intentional; keep both defaults distinct.
	if cfg.GetTrackEvictionFrames() != 30 {
		t.Errorf("GetTrackEvictionFrames() = %d, want 30", cfg.GetTrackEvictionFrames())
	}
	if cfg.GetVehicleStateEvictionFrames() != 60 {
		t.Errorf("GetVehicleStateEvictionFrames() = %d, want 60", cfg.GetVehicleStateEvictionFrames())
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()

	if cfg.FPS == nil || *cfg.FPS != 30.0 {
		t.Errorf("Expected fps 30.0 in defaults file, got %v", cfg.FPS)
	}
	if cfg.MinIndicatorsForAccident == nil || *cfg.MinIndicatorsForAccident != 3 {
		t.Errorf("Expected min_indicators_for_accident 3, got %v", cfg.MinIndicatorsForAccident)
	}
	if cfg.VehicleStateEvictionFrames == nil || *cfg.VehicleStateEvictionFrames != 60 {
		t.Errorf("Expected vehicle_state_eviction_frames 60, got %v", cfg.VehicleStateEvictionFrames)
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "fps": 25.0,
  "proximity_distance_threshold": 80.0,
  "min_indicators_for_accident": 4
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetFPS() != 25.0 {
		t.Errorf("GetFPS() = %f, want 25.0", cfg.GetFPS())
	}
	if cfg.GetProximityDistanceThreshold() != 80.0 {
		t.Errorf("GetProximityDistanceThreshold() = %f, want 80.0", cfg.GetProximityDistanceThreshold())
	}
	if cfg.GetMinIndicatorsForAccident() != 4 {
		t.Errorf("GetMinIndicatorsForAccident() = %d, want 4", cfg.GetMinIndicatorsForAccident())
	}
	// Omitted fields fall back to defaults.
	if cfg.GetPostCollisionWindow() != 90 {
		t.Errorf("GetPostCollisionWindow() = %d, want default 90", cfg.GetPostCollisionWindow())
	}
}

func TestLoadTuningConfigRejectsNonJSON(t *testing.T) {
	if _, err := LoadTuningConfig("tuning.yaml"); err == nil {
		t.Error("expected error for non-json extension")
	}
}

func TestValidate(t *testing.T) {
	bad := func(mutate func(c *TuningConfig)) *TuningConfig {
		c := EmptyTuningConfig()
		mutate(c)
		return c
	}
	negative := -1.0
	zero := 0.0
	tooMany := 6
	window := 10
	duration := 20

	cases := []struct {
		name string
		cfg  *TuningConfig
	}{
		{"negative fps", bad(func(c *TuningConfig) { c.FPS = &negative })},
		{"zero pixels per meter", bad(func(c *TuningConfig) { c.PixelsPerMeter = &zero })},
		{"indicator count above 5", bad(func(c *TuningConfig) { c.MinIndicatorsForAccident = &tooMany })},
		{"negative distance threshold", bad(func(c *TuningConfig) { c.ProximityDistanceThreshold = &negative })},
		{"velocity change ratio above 1", bad(func(c *TuningConfig) { v := 1.5; c.VelocityChangeThreshold = &v })},
		{"stop duration exceeds window", bad(func(c *TuningConfig) {
			c.PostCollisionWindow = &window
			c.MinStopDuration = &duration
		})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); err == nil {
				t.Errorf("Validate() accepted invalid config %+v", tc.cfg)
			}
		})
	}

	if err := EmptyTuningConfig().Validate(); err != nil {
		t.Errorf("Validate() rejected empty config: %v", err)
	}
}

func TestMerge(t *testing.T) {
	base := MustLoadDefaultConfig()

	fps := 24.0
	window := 120
	update := &TuningConfig{FPS: &fps, PostCollisionWindow: &window}

	merged, err := base.Merge(update)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if merged.GetFPS() != 24.0 {
		t.Errorf("merged GetFPS() = %f, want 24.0", merged.GetFPS())
	}
	if merged.GetPostCollisionWindow() != 120 {
		t.Errorf("merged GetPostCollisionWindow() = %d, want 120", merged.GetPostCollisionWindow())
	}
	// Untouched fields survive the merge.
	if merged.GetDivergenceThreshold() != 50.0 {
		t.Errorf("merged GetDivergenceThreshold() = %f, want 50.0", merged.GetDivergenceThreshold())
	}
	// Base is unchanged.
	if base.GetFPS() != 30.0 {
		t.Errorf("base GetFPS() mutated to %f", base.GetFPS())
	}

	t.Run("invalid update rejected", func(t *testing.T) {
		badFPS := -5.0
		if _, err := base.Merge(&TuningConfig{FPS: &badFPS}); err == nil {
			t.Error("expected error merging invalid fps")
		}
	})
}
