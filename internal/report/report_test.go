package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/collision.report/internal/accident"
	"github.com/banshee-data/collision.report/internal/db"
	"github.com/banshee-data/collision.report/internal/geometry"
)

func seedSession(t *testing.T) (*db.DB, int64) {
	t.Helper()

	database, err := db.NewDB(filepath.Join(t.TempDir(), "report.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	sessionID, err := database.CreateSession("report-test")
	require.NoError(t, err)

	for frame := 1; frame <= 20; frame++ {
		require.NoError(t, database.RecordSpeedSample(sessionID, frame, 1, 40.0+float64(frame)))
		if frame%2 == 0 {
			require.NoError(t, database.RecordSpeedSample(sessionID, frame, 2, 25.0))
		}
	}

	require.NoError(t, database.RecordEvent(sessionID, accident.Event{
		ID:              "evt-1",
		Type:            accident.TypeCollision,
		Confidence:      accident.ConfidenceMedium,
		InvolvedIDs:     []int{1, 2},
		Location:        geometry.Point{X: 500, Y: 100},
		FrameIndex:      15,
		ConfidenceScore: 0.6,
		Description:     "collision between vehicles 1 and 2",
		Indicators:      map[string]bool{"iou_contact": true},
	}))
	return database, sessionID
}

func TestRenderProducesBothCharts(t *testing.T) {
	t.Parallel()
	database, sessionID := seedSession(t)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, database, sessionID))

	html := buf.String()
	assert.Contains(t, html, "Vehicle Speeds")
	assert.Contains(t, html, "Confirmed Events")
	assert.Contains(t, html, "vehicle 1")
	assert.Contains(t, html, "vehicle 2")
	assert.Contains(t, html, "collision")
}

func TestRenderEmptySession(t *testing.T) {
	t.Parallel()
	database, err := db.NewDB(filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	sessionID, err := database.CreateSession("empty")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, database, sessionID))
	assert.Contains(t, buf.String(), "Vehicle Speeds")
}

func TestRenderToFile(t *testing.T) {
	t.Parallel()
	database, sessionID := seedSession(t)

	path := filepath.Join(t.TempDir(), "report.html")
	require.NoError(t, RenderToFile(path, database, sessionID))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Confirmed Events")
}

func TestFrameAxisMergesSeries(t *testing.T) {
	t.Parallel()

	series := map[int][]db.SpeedPoint{
		1: {{FrameIndex: 3, SpeedKMH: 10}, {FrameIndex: 5, SpeedKMH: 12}},
		2: {{FrameIndex: 1, SpeedKMH: 8}, {FrameIndex: 3, SpeedKMH: 9}},
	}
	assert.Equal(t, []int{1, 3, 5}, frameAxis(series))
	assert.Equal(t, []int{1, 2}, sortedVehicleIDs(series))
}
