package accident

import (
	"fmt"

	"github.com/banshee-data/collision.report/internal/geometry"
)

// Type classifies a detected accident.
type Type string

const (
	TypeCollision Type = "collision"
	TypeSideswipe Type = "sideswipe" // Glancing contact with trajectory deflection
	TypeRearEnd   Type = "rear_end"  // Same-direction impact from behind
)

// Confidence is the reported confidence tier for an event.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low" // Below the reporting threshold, never emitted
)

// confidenceForCount maps an indicator count to a tier using the configured
// cut points, so the mapping stays tunable rather than hard-coded per site.
func confidenceForCount(count, high, min int) Confidence {
	if count >= high {
		return ConfidenceHigh
	}
	if count >= min {
		return ConfidenceMedium
	}
	return ConfidenceLow
}

// Event is an immutable record of one confirmed accident. Events are
// deduplicated by pair and type for the lifetime of a detector instance.
type Event struct {
	ID              string          `json:"id"`
	Type            Type            `json:"type"`
	Confidence      Confidence      `json:"confidence"`
	InvolvedIDs     []int           `json:"involved_ids"`
	Location        geometry.Point  `json:"location"`
	FrameIndex      int             `json:"frame_index"`
	Timestamp       float64         `json:"timestamp"` // Seconds since stream start, frame/fps
	ConfidenceScore float64         `json:"confidence_score"`
	Description     string          `json:"description"`
	BBoxes          []geometry.Rect `json:"bboxes,omitempty"`
	Indicators      map[string]bool `json:"indicators,omitempty"`
}

func (e Event) String() string {
	return fmt.Sprintf("[%s][%s] %s at frame %d", e.Type, e.Confidence, e.Description, e.FrameIndex)
}
