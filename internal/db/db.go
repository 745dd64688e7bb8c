// Package db persists accident events and session telemetry to sqlite.
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/collision.report/internal/accident"
)

type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the sqlite database at path and applies any
// pending migrations.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// modernc sqlite serializes internally but a single writer keeps
	// busy-timeouts out of the picture entirely.
	sqlDB.SetMaxOpenConns(1)

	db := &DB{sqlDB}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// CreateSession opens a new session row and returns its id.
func (db *DB) CreateSession(source string) (int64, error) {
	res, err := db.Exec(`INSERT INTO sessions (source) VALUES (?)`, source)
	if err != nil {
		return 0, fmt.Errorf("failed to create session: %w", err)
	}
	return res.LastInsertId()
}

// CloseSession stamps the end time and final counters on a session.
func (db *DB) CloseSession(sessionID int64, frames, events int) error {
	_, err := db.Exec(
		`UPDATE sessions SET ended_at = ?, frames = ?, events = ? WHERE session_id = ?`,
		time.Now().UTC(), frames, events, sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to close session %d: %w", sessionID, err)
	}
	return nil
}

// RecordEvent persists one confirmed accident event.
func (db *DB) RecordEvent(sessionID int64, ev accident.Event) error {
	involved, err := json.Marshal(ev.InvolvedIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal involved ids: %w", err)
	}
	bboxes, err := json.Marshal(ev.BBoxes)
	if err != nil {
		return fmt.Errorf("failed to marshal bboxes: %w", err)
	}
	indicators, err := json.Marshal(ev.Indicators)
	if err != nil {
		return fmt.Errorf("failed to marshal indicators: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO accident_events (
			event_id, session_id, event_type, confidence, confidence_score,
			involved_ids, location_x, location_y, frame_index, event_time,
			description, bboxes, indicators
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, sessionID, string(ev.Type), string(ev.Confidence), ev.ConfidenceScore,
		string(involved), ev.Location.X, ev.Location.Y, ev.FrameIndex, ev.Timestamp,
		ev.Description, string(bboxes), string(indicators),
	)
	if err != nil {
		return fmt.Errorf("failed to record event %s: %w", ev.ID, err)
	}
	return nil
}

// RecordSpeedSample persists one per-vehicle speed observation.
func (db *DB) RecordSpeedSample(sessionID int64, frameIndex, vehicleID int, speedKMH float64) error {
	_, err := db.Exec(
		`INSERT INTO speed_samples (session_id, frame_index, vehicle_id, speed_kmh) VALUES (?, ?, ?, ?)`,
		sessionID, frameIndex, vehicleID, speedKMH,
	)
	if err != nil {
		return fmt.Errorf("failed to record speed sample: %w", err)
	}
	return nil
}

// Events returns the most recent events for a session, newest first.
func (db *DB) Events(sessionID int64, limit int) ([]accident.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`
		SELECT event_id, event_type, confidence, confidence_score, involved_ids,
		       location_x, location_y, frame_index, event_time, description,
		       bboxes, indicators
		FROM accident_events
		WHERE session_id = ?
		ORDER BY frame_index DESC
		LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// EventsByType returns a session's events of one type, newest first.
func (db *DB) EventsByType(sessionID int64, eventType accident.Type) ([]accident.Event, error) {
	rows, err := db.Query(`
		SELECT event_id, event_type, confidence, confidence_score, involved_ids,
		       location_x, location_y, frame_index, event_time, description,
		       bboxes, indicators
		FROM accident_events
		WHERE session_id = ? AND event_type = ?
		ORDER BY frame_index DESC`, sessionID, string(eventType))
	if err != nil {
		return nil, fmt.Errorf("failed to query events by type: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]accident.Event, error) {
	var events []accident.Event
	for rows.Next() {
		var ev accident.Event
		var evType, confidence, involved, bboxes, indicators string
		err := rows.Scan(
			&ev.ID, &evType, &confidence, &ev.ConfidenceScore, &involved,
			&ev.Location.X, &ev.Location.Y, &ev.FrameIndex, &ev.Timestamp,
			&ev.Description, &bboxes, &indicators,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Type = accident.Type(evType)
		ev.Confidence = accident.Confidence(confidence)
		if err := json.Unmarshal([]byte(involved), &ev.InvolvedIDs); err != nil {
			return nil, fmt.Errorf("failed to decode involved ids: %w", err)
		}
		if err := json.Unmarshal([]byte(bboxes), &ev.BBoxes); err != nil {
			return nil, fmt.Errorf("failed to decode bboxes: %w", err)
		}
		if err := json.Unmarshal([]byte(indicators), &ev.Indicators); err != nil {
			return nil, fmt.Errorf("failed to decode indicators: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// SessionStats aggregates one session: event counts by type and confidence
// plus speed percentiles over all recorded samples. The 85th percentile is
// the traffic-engineering standard for prevailing speed.
type SessionStats struct {
	SessionID        int64              `json:"session_id"`
	EventsByType     map[string]int     `json:"events_by_type"`
	EventsByTier     map[string]int     `json:"events_by_confidence"`
	SpeedSamples     int                `json:"speed_samples"`
	SpeedPercentiles map[string]float64 `json:"speed_percentiles_kmh,omitempty"`
}

// SessionStats computes aggregate statistics for a session.
func (db *DB) SessionStats(sessionID int64) (*SessionStats, error) {
	stats := &SessionStats{
		SessionID:    sessionID,
		EventsByType: make(map[string]int),
		EventsByTier: make(map[string]int),
	}

	rows, err := db.Query(`
		SELECT event_type, confidence, COUNT(*)
		FROM accident_events
		WHERE session_id = ?
		GROUP BY event_type, confidence`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate events: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var evType, confidence string
		var count int
		if err := rows.Scan(&evType, &confidence, &count); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate: %w", err)
		}
		stats.EventsByType[evType] += count
		stats.EventsByTier[confidence] += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	speeds, err := db.sessionSpeeds(sessionID)
	if err != nil {
		return nil, err
	}
	stats.SpeedSamples = len(speeds)
	if len(speeds) > 0 {
		sort.Float64s(speeds)
		stats.SpeedPercentiles = map[string]float64{
			"p50": stat.Quantile(0.50, stat.Empirical, speeds, nil),
			"p85": stat.Quantile(0.85, stat.Empirical, speeds, nil),
			"p95": stat.Quantile(0.95, stat.Empirical, speeds, nil),
			"max": speeds[len(speeds)-1],
		}
	}
	return stats, nil
}

// SpeedPoint is one speed observation in a per-vehicle series.
type SpeedPoint struct {
	FrameIndex int     `json:"frame_index"`
	SpeedKMH   float64 `json:"speed_kmh"`
}

// SpeedSeries returns a session's speed samples grouped by vehicle, each
// series ordered by frame index.
func (db *DB) SpeedSeries(sessionID int64) (map[int][]SpeedPoint, error) {
	rows, err := db.Query(`
		SELECT vehicle_id, frame_index, speed_kmh
		FROM speed_samples
		WHERE session_id = ?
		ORDER BY vehicle_id, frame_index`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query speed series: %w", err)
	}
	defer rows.Close()

	series := make(map[int][]SpeedPoint)
	for rows.Next() {
		var vehicleID int
		var pt SpeedPoint
		if err := rows.Scan(&vehicleID, &pt.FrameIndex, &pt.SpeedKMH); err != nil {
			return nil, fmt.Errorf("failed to scan speed series: %w", err)
		}
		series[vehicleID] = append(series[vehicleID], pt)
	}
	return series, rows.Err()
}

func (db *DB) sessionSpeeds(sessionID int64) ([]float64, error) {
	rows, err := db.Query(`SELECT speed_kmh FROM speed_samples WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query speed samples: %w", err)
	}
	defer rows.Close()

	var speeds []float64
	for rows.Next() {
		var s float64
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan speed sample: %w", err)
		}
		speeds = append(speeds, s)
	}
	return speeds, rows.Err()
}
