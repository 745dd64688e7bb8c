// Package report renders a stored session as a standalone HTML page:
// per-vehicle speed traces plus the confirmed events overlaid by frame.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/collision.report/internal/accident"
	"github.com/banshee-data/collision.report/internal/db"
)

// maxEventsInReport bounds the events query; a session with more confirmed
// accidents than this is a tuning problem, not a reporting one.
const maxEventsInReport = 500

// Render writes the session report HTML to w.
func Render(w io.Writer, database *db.DB, sessionID int64) error {
	series, err := database.SpeedSeries(sessionID)
	if err != nil {
		return err
	}
	events, err := database.Events(sessionID, maxEventsInReport)
	if err != nil {
		return err
	}
	stats, err := database.SessionStats(sessionID)
	if err != nil {
		return err
	}

	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("Session %d report", sessionID)
	page.AddCharts(speedChart(sessionID, series, stats), eventChart(sessionID, events))

	return page.Render(w)
}

// RenderToFile writes the session report HTML to path.
func RenderToFile(path string, database *db.DB, sessionID int64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	if err := Render(f, database, sessionID); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// speedChart plots each vehicle's speed trace on a shared frame axis.
// Frames a vehicle was not observed in are left as gaps.
func speedChart(sessionID int64, series map[int][]db.SpeedPoint, stats *db.SessionStats) *charts.Line {
	frames := frameAxis(series)
	labels := make([]string, len(frames))
	index := make(map[int]int, len(frames))
	for i, f := range frames {
		labels[i] = strconv.Itoa(f)
		index[f] = i
	}

	subtitle := fmt.Sprintf("session=%d vehicles=%d samples=%d", sessionID, len(series), stats.SpeedSamples)
	if p85, ok := stats.SpeedPercentiles["p85"]; ok {
		subtitle += fmt.Sprintf(" p85=%.1f km/h", p85)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Vehicle Speeds", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "km/h"}),
	)
	line.SetXAxis(labels)

	for _, vehicleID := range sortedVehicleIDs(series) {
		values := make([]opts.LineData, len(frames))
		for i := range values {
			values[i] = opts.LineData{Value: nil}
		}
		for _, pt := range series[vehicleID] {
			values[index[pt.FrameIndex]] = opts.LineData{Value: pt.SpeedKMH}
		}
		line.AddSeries(fmt.Sprintf("vehicle %d", vehicleID), values)
	}
	return line
}

// eventChart scatters confirmed events by frame and confidence score, one
// series per event type.
func eventChart(sessionID int64, events []accident.Event) *charts.Scatter {
	byType := make(map[accident.Type][]opts.ScatterData)
	maxFrame := 1
	for _, ev := range events {
		if ev.FrameIndex > maxFrame {
			maxFrame = ev.FrameIndex
		}
		byType[ev.Type] = append(byType[ev.Type], opts.ScatterData{
			Value: []interface{}{ev.FrameIndex, ev.ConfidenceScore},
		})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Confirmed Events", Subtitle: fmt.Sprintf("session=%d events=%d", sessionID, len(events))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "frame", Min: 0, Max: maxFrame + 10}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "confidence", Min: 0, Max: 1}),
	)

	types := make([]accident.Type, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, t := range types {
		scatter.AddSeries(string(t), byType[t], charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}))
	}
	return scatter
}

func frameAxis(series map[int][]db.SpeedPoint) []int {
	seen := make(map[int]struct{})
	for _, pts := range series {
		for _, pt := range pts {
			seen[pt.FrameIndex] = struct{}{}
		}
	}
	frames := make([]int, 0, len(seen))
	for f := range seen {
		frames = append(frames, f)
	}
	sort.Ints(frames)
	return frames
}

func sortedVehicleIDs(series map[int][]db.SpeedPoint) []int {
	ids := make([]int, 0, len(series))
	for id := range series {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
