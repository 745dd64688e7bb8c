package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for tuning parameters.
// The schema matches the /api/params endpoint so the same JSON can be
// used for both startup configuration and runtime updates. All speeds
// and distances are in pixel units (px/frame, px) unless noted.
type TuningConfig struct {
	// Frame / calibration params
	FPS            *float64 `json:"fps,omitempty"`
	PixelsPerMeter *float64 `json:"pixels_per_meter,omitempty"`

	// Track store params
	TrackHistoryLength  *int `json:"track_history_length,omitempty"`
	TrackEvictionFrames *int `json:"track_eviction_frames,omitempty"`

	// Kinematics params
	MinHistory          *int     `json:"min_history,omitempty"`
	StationaryThreshold *float64 `json:"stationary_threshold,omitempty"`
	MotionHistoryLength *int     `json:"motion_history_length,omitempty"`
	AccelerationWindow  *int     `json:"acceleration_window,omitempty"`
	SmoothWindow        *int     `json:"smooth_window,omitempty"`

	// Stage 1: proximity params
	ProximityIoUThreshold      *float64 `json:"proximity_iou_threshold,omitempty"`
	ProximityDistanceThreshold *float64 `json:"proximity_distance_threshold,omitempty"`
	ProximityMinFrames         *int     `json:"proximity_min_frames,omitempty"`

	// Stage 2: collision candidate params
	CollisionIoUThreshold   *float64 `json:"collision_iou_threshold,omitempty"`
	MinSpeedForCollision    *float64 `json:"min_speed_for_collision,omitempty"`
	VelocityChangeThreshold *float64 `json:"velocity_change_threshold,omitempty"`
	HeadingChangeThreshold  *float64 `json:"heading_change_threshold,omitempty"`

	// Stage 3: post-collision analysis params
	PostCollisionWindow *int     `json:"post_collision_window,omitempty"`
	StopSpeedThreshold  *float64 `json:"stop_speed_threshold,omitempty"`
	SlowSpeedThreshold  *float64 `json:"slow_speed_threshold,omitempty"`
	MinStopDuration     *int     `json:"min_stop_duration,omitempty"`
	DivergenceThreshold *float64 `json:"divergence_threshold,omitempty"`

	// Stage 4: confirmation params
	MinIndicatorsForAccident *int `json:"min_indicators_for_accident,omitempty"`
	HighConfidenceIndicators *int `json:"high_confidence_indicators,omitempty"`

	// Trajectory anomaly (sideswipe) params
	EnableTrajectoryDetection  *bool    `json:"enable_trajectory_detection,omitempty"`
	TrajectoryHeadingThreshold *float64 `json:"trajectory_heading_threshold,omitempty"`
	TrajectoryMinSpeed         *float64 `json:"trajectory_min_speed,omitempty"`
	TrajectoryProximity        *float64 `json:"trajectory_proximity,omitempty"`
	SyncHeadingTolerance       *float64 `json:"sync_heading_tolerance,omitempty"`

	// False positive filter params
	FilterParallelMovement   *bool    `json:"filter_parallel_movement,omitempty"`
	ParallelHeadingTolerance *float64 `json:"parallel_heading_tolerance,omitempty"`
	ParallelSpeedTolerance   *float64 `json:"parallel_speed_tolerance,omitempty"`

	// Detector vehicle-state eviction. Intentionally longer than the track
	// store window so post-collision behaviour survives brief occlusion.
	VehicleStateEvictionFrames *int `json:"vehicle_state_eviction_frames,omitempty"`
	VehicleStateHistoryLength  *int `json:"vehicle_state_history_length,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/<pkg>/
		"../../../" + DefaultConfigPath, // from cmd/tools/<tool>/
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid. A nil field is
// always valid (the accessor default applies).
func (c *TuningConfig) Validate() error {
	if c.FPS != nil && *c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %f", *c.FPS)
	}
	if c.PixelsPerMeter != nil && *c.PixelsPerMeter <= 0 {
		return fmt.Errorf("pixels_per_meter must be positive, got %f", *c.PixelsPerMeter)
	}
	if c.TrackHistoryLength != nil && *c.TrackHistoryLength < 2 {
		return fmt.Errorf("track_history_length must be at least 2, got %d", *c.TrackHistoryLength)
	}
	if c.TrackEvictionFrames != nil && *c.TrackEvictionFrames < 1 {
		return fmt.Errorf("track_eviction_frames must be positive, got %d", *c.TrackEvictionFrames)
	}
	if c.MinHistory != nil && *c.MinHistory < 2 {
		return fmt.Errorf("min_history must be at least 2, got %d", *c.MinHistory)
	}
	if c.MotionHistoryLength != nil && *c.MotionHistoryLength < 2 {
		return fmt.Errorf("motion_history_length must be at least 2, got %d", *c.MotionHistoryLength)
	}
	if c.AccelerationWindow != nil && *c.AccelerationWindow < 1 {
		return fmt.Errorf("acceleration_window must be positive, got %d", *c.AccelerationWindow)
	}
	if c.SmoothWindow != nil && *c.SmoothWindow < 1 {
		return fmt.Errorf("smooth_window must be positive, got %d", *c.SmoothWindow)
	}
	if c.ProximityMinFrames != nil && *c.ProximityMinFrames < 1 {
		return fmt.Errorf("proximity_min_frames must be positive, got %d", *c.ProximityMinFrames)
	}
	if c.PostCollisionWindow != nil && *c.PostCollisionWindow < 1 {
		return fmt.Errorf("post_collision_window must be positive, got %d", *c.PostCollisionWindow)
	}
	if c.MinStopDuration != nil && *c.MinStopDuration < 0 {
		return fmt.Errorf("min_stop_duration must be non-negative, got %d", *c.MinStopDuration)
	}
	if c.MinStopDuration != nil && c.PostCollisionWindow != nil && *c.MinStopDuration > *c.PostCollisionWindow {
		return fmt.Errorf("min_stop_duration (%d) must not exceed post_collision_window (%d)",
			*c.MinStopDuration, *c.PostCollisionWindow)
	}
	if c.MinIndicatorsForAccident != nil {
		if *c.MinIndicatorsForAccident < 1 || *c.MinIndicatorsForAccident > 5 {
			return fmt.Errorf("min_indicators_for_accident must be in [1, 5], got %d", *c.MinIndicatorsForAccident)
		}
	}
	if c.HighConfidenceIndicators != nil {
		if *c.HighConfidenceIndicators < 1 || *c.HighConfidenceIndicators > 5 {
			return fmt.Errorf("high_confidence_indicators must be in [1, 5], got %d", *c.HighConfidenceIndicators)
		}
	}
	if c.ParallelSpeedTolerance != nil && (*c.ParallelSpeedTolerance < 0 || *c.ParallelSpeedTolerance > 1) {
		return fmt.Errorf("parallel_speed_tolerance must be between 0 and 1, got %f", *c.ParallelSpeedTolerance)
	}
	if c.VelocityChangeThreshold != nil && (*c.VelocityChangeThreshold < 0 || *c.VelocityChangeThreshold > 1) {
		return fmt.Errorf("velocity_change_threshold must be between 0 and 1, got %f", *c.VelocityChangeThreshold)
	}
	if c.VehicleStateEvictionFrames != nil && *c.VehicleStateEvictionFrames < 1 {
		return fmt.Errorf("vehicle_state_eviction_frames must be positive, got %d", *c.VehicleStateEvictionFrames)
	}
	if c.VehicleStateHistoryLength != nil && *c.VehicleStateHistoryLength < 2 {
		return fmt.Errorf("vehicle_state_history_length must be at least 2, got %d", *c.VehicleStateHistoryLength)
	}
	for name, v := range map[string]*float64{
		"proximity_iou_threshold":      c.ProximityIoUThreshold,
		"proximity_distance_threshold": c.ProximityDistanceThreshold,
		"collision_iou_threshold":      c.CollisionIoUThreshold,
		"min_speed_for_collision":      c.MinSpeedForCollision,
		"heading_change_threshold":     c.HeadingChangeThreshold,
		"stop_speed_threshold":         c.StopSpeedThreshold,
		"slow_speed_threshold":         c.SlowSpeedThreshold,
		"divergence_threshold":         c.DivergenceThreshold,
		"trajectory_heading_threshold": c.TrajectoryHeadingThreshold,
		"trajectory_min_speed":         c.TrajectoryMinSpeed,
		"trajectory_proximity":         c.TrajectoryProximity,
		"sync_heading_tolerance":       c.SyncHeadingTolerance,
		"parallel_heading_tolerance":   c.ParallelHeadingTolerance,
		"stationary_threshold":         c.StationaryThreshold,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative, got %f", name, *v)
		}
	}
	return nil
}

// GetFPS returns the fps value or the default.
func (c *TuningConfig) GetFPS() float64 {
	if c.FPS == nil {
		return 30.0
	}
	return *c.FPS
}

// GetPixelsPerMeter returns the pixels_per_meter value or the default.
func (c *TuningConfig) GetPixelsPerMeter() float64 {
	if c.PixelsPerMeter == nil {
		return 50.0
	}
	return *c.PixelsPerMeter
}

// GetTrackHistoryLength returns the track_history_length value or the default.
func (c *TuningConfig) GetTrackHistoryLength() int {
	if c.TrackHistoryLength == nil {
		return 30
	}
	return *c.TrackHistoryLength
}

// GetTrackEvictionFrames returns the track_eviction_frames value or the default.
func (c *TuningConfig) GetTrackEvictionFrames() int {
	if c.TrackEvictionFrames == nil {
		return 30
	}
	return *c.TrackEvictionFrames
}

// GetMinHistory returns the min_history value or the default.
func (c *TuningConfig) GetMinHistory() int {
	if c.MinHistory == nil {
		return 2
	}
	return *c.MinHistory
}

// GetStationaryThreshold returns the stationary_threshold value or the default.
func (c *TuningConfig) GetStationaryThreshold() float64 {
	if c.StationaryThreshold == nil {
		return 2.0
	}
	return *c.StationaryThreshold
}

// GetMotionHistoryLength returns the motion_history_length value or the default.
func (c *TuningConfig) GetMotionHistoryLength() int {
	if c.MotionHistoryLength == nil {
		return 20
	}
	return *c.MotionHistoryLength
}

// GetAccelerationWindow returns the acceleration_window value or the default.
func (c *TuningConfig) GetAccelerationWindow() int {
	if c.AccelerationWindow == nil {
		return 5
	}
	return *c.AccelerationWindow
}

// GetSmoothWindow returns the smooth_window value or the default.
func (c *TuningConfig) GetSmoothWindow() int {
	if c.SmoothWindow == nil {
		return 3
	}
	return *c.SmoothWindow
}

// GetProximityIoUThreshold returns the proximity_iou_threshold value or the default.
func (c *TuningConfig) GetProximityIoUThreshold() float64 {
	if c.ProximityIoUThreshold == nil {
		return 0.05
	}
	return *c.ProximityIoUThreshold
}

// GetProximityDistanceThreshold returns the proximity_distance_threshold value or the default.
func (c *TuningConfig) GetProximityDistanceThreshold() float64 {
	if c.ProximityDistanceThreshold == nil {
		return 100.0
	}
	return *c.ProximityDistanceThreshold
}

// GetProximityMinFrames returns the proximity_min_frames value or the default.
func (c *TuningConfig) GetProximityMinFrames() int {
	if c.ProximityMinFrames == nil {
		return 2
	}
	return *c.ProximityMinFrames
}

// GetCollisionIoUThreshold returns the collision_iou_threshold value or the default.
func (c *TuningConfig) GetCollisionIoUThreshold() float64 {
	if c.CollisionIoUThreshold == nil {
		return 0.15
	}
	return *c.CollisionIoUThreshold
}

// GetMinSpeedForCollision returns the min_speed_for_collision value or the default.
func (c *TuningConfig) GetMinSpeedForCollision() float64 {
	if c.MinSpeedForCollision == nil {
		return 5.0
	}
	return *c.MinSpeedForCollision
}

// GetVelocityChangeThreshold returns the velocity_change_threshold value or the default.
func (c *TuningConfig) GetVelocityChangeThreshold() float64 {
	if c.VelocityChangeThreshold == nil {
		return 0.4
	}
	return *c.VelocityChangeThreshold
}

// GetHeadingChangeThreshold returns the heading_change_threshold value or the default.
func (c *TuningConfig) GetHeadingChangeThreshold() float64 {
	if c.HeadingChangeThreshold == nil {
		return 20.0
	}
	return *c.HeadingChangeThreshold
}

// GetPostCollisionWindow returns the post_collision_window value or the default.
func (c *TuningConfig) GetPostCollisionWindow() int {
	if c.PostCollisionWindow == nil {
		return 90
	}
	return *c.PostCollisionWindow
}

// GetStopSpeedThreshold returns the stop_speed_threshold value or the default.
func (c *TuningConfig) GetStopSpeedThreshold() float64 {
	if c.StopSpeedThreshold == nil {
		return 2.0
	}
	return *c.StopSpeedThreshold
}

// GetSlowSpeedThreshold returns the slow_speed_threshold value or the default.
func (c *TuningConfig) GetSlowSpeedThreshold() float64 {
	if c.SlowSpeedThreshold == nil {
		return 5.0
	}
	return *c.SlowSpeedThreshold
}

// GetMinStopDuration returns the min_stop_duration value or the default.
func (c *TuningConfig) GetMinStopDuration() int {
	if c.MinStopDuration == nil {
		return 30
	}
	return *c.MinStopDuration
}

// GetDivergenceThreshold returns the divergence_threshold value or the default.
func (c *TuningConfig) GetDivergenceThreshold() float64 {
	if c.DivergenceThreshold == nil {
		return 50.0
	}
	return *c.DivergenceThreshold
}

// GetMinIndicatorsForAccident returns the min_indicators_for_accident value or the default.
func (c *TuningConfig) GetMinIndicatorsForAccident() int {
	if c.MinIndicatorsForAccident == nil {
		return 3
	}
	return *c.MinIndicatorsForAccident
}

// GetHighConfidenceIndicators returns the high_confidence_indicators value or the default.
func (c *TuningConfig) GetHighConfidenceIndicators() int {
	if c.HighConfidenceIndicators == nil {
		return 4
	}
	return *c.HighConfidenceIndicators
}

// GetEnableTrajectoryDetection returns the enable_trajectory_detection value or the default.
func (c *TuningConfig) GetEnableTrajectoryDetection() bool {
	if c.EnableTrajectoryDetection == nil {
		return true
	}
	return *c.EnableTrajectoryDetection
}

// GetTrajectoryHeadingThreshold returns the trajectory_heading_threshold value or the default.
func (c *TuningConfig) GetTrajectoryHeadingThreshold() float64 {
	if c.TrajectoryHeadingThreshold == nil {
		return 35.0
	}
	return *c.TrajectoryHeadingThreshold
}

// GetTrajectoryMinSpeed returns the trajectory_min_speed value or the default.
func (c *TuningConfig) GetTrajectoryMinSpeed() float64 {
	if c.TrajectoryMinSpeed == nil {
		return 8.0
	}
	return *c.TrajectoryMinSpeed
}

// GetTrajectoryProximity returns the trajectory_proximity value or the default.
func (c *TuningConfig) GetTrajectoryProximity() float64 {
	if c.TrajectoryProximity == nil {
		return 120.0
	}
	return *c.TrajectoryProximity
}

// GetSyncHeadingTolerance returns the sync_heading_tolerance value or the default.
func (c *TuningConfig) GetSyncHeadingTolerance() float64 {
	if c.SyncHeadingTolerance == nil {
		return 25.0
	}
	return *c.SyncHeadingTolerance
}

// GetFilterParallelMovement returns the filter_parallel_movement value or the default.
func (c *TuningConfig) GetFilterParallelMovement() bool {
	if c.FilterParallelMovement == nil {
		return true
	}
	return *c.FilterParallelMovement
}

// GetParallelHeadingTolerance returns the parallel_heading_tolerance value or the default.
func (c *TuningConfig) GetParallelHeadingTolerance() float64 {
	if c.ParallelHeadingTolerance == nil {
		return 15.0
	}
	return *c.ParallelHeadingTolerance
}

// GetParallelSpeedTolerance returns the parallel_speed_tolerance value or the default.
func (c *TuningConfig) GetParallelSpeedTolerance() float64 {
	if c.ParallelSpeedTolerance == nil {
		return 0.25
	}
	return *c.ParallelSpeedTolerance
}

// GetVehicleStateEvictionFrames returns the vehicle_state_eviction_frames value or the default.
func (c *TuningConfig) GetVehicleStateEvictionFrames() int {
	if c.VehicleStateEvictionFrames == nil {
		return 60
	}
	return *c.VehicleStateEvictionFrames
}

// GetVehicleStateHistoryLength returns the vehicle_state_history_length value or the default.
func (c *TuningConfig) GetVehicleStateHistoryLength() int {
	if c.VehicleStateHistoryLength == nil {
		return 60
	}
	return *c.VehicleStateHistoryLength
}

// Merge returns a copy of c with every non-nil field of other applied on
// top. Used by the runtime params endpoint to apply partial updates.
func (c *TuningConfig) Merge(other *TuningConfig) (*TuningConfig, error) {
	merged := *c
	if other == nil {
		return &merged, nil
	}
	data, err := json.Marshal(other)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal update: %w", err)
	}
	// Only fields present in other overwrite the copy.
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, fmt.Errorf("failed to apply update: %w", err)
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}
