// Package replay reads and writes JSONL detection logs: one frame record
// per line, each carrying the frame index and the tracker detections for
// that frame. The log format stands in for a live detector/tracker feed.
package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/banshee-data/collision.report/internal/track"
)

// FrameRecord is one line of a detection log.
type FrameRecord struct {
	FrameIndex int               `json:"frame_index"`
	Detections []track.Detection `json:"detections"`
}

// Reader decodes frame records from a JSONL stream. Blank lines are
// skipped; a malformed line fails with its line number.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader wraps r in a frame-record reader.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	// Frames with many detections can exceed the default token size.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Reader{scanner: scanner}
}

// Next returns the next frame record, or io.EOF when the stream ends.
func (r *Reader) Next() (*FrameRecord, error) {
	for r.scanner.Scan() {
		r.line++
		text := strings.TrimSpace(r.scanner.Text())
		if text == "" {
			continue
		}
		var rec FrameRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("line %d: malformed frame record: %w", r.line, err)
		}
		return &rec, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// ReadAll consumes the whole stream.
func ReadAll(r io.Reader) ([]FrameRecord, error) {
	reader := NewReader(r)
	var records []FrameRecord
	for {
		rec, err := reader.Next()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
}

// Writer encodes frame records as JSONL.
type Writer struct {
	w   *bufio.Writer
	enc *json.Encoder
}

// NewWriter wraps w in a frame-record writer. Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	bw := bufio.NewWriter(w)
	return &Writer{w: bw, enc: json.NewEncoder(bw)}
}

// Write appends one frame record.
func (w *Writer) Write(rec FrameRecord) error {
	return w.enc.Encode(rec)
}

// Flush flushes buffered output.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// WriteAll writes every record and flushes.
func WriteAll(w io.Writer, records []FrameRecord) error {
	writer := NewWriter(w)
	for _, rec := range records {
		if err := writer.Write(rec); err != nil {
			return err
		}
	}
	return writer.Flush()
}
