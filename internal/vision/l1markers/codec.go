package l1markers

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/golang/geo/r2"
)

// frameRecord is the JSON Lines schema for one frame:
//
//	{"seq":1,"ts":"2026-01-02T15:04:05.123Z","markers":[{"id":18,"corners":[[x,y],[x,y],[x,y],[x,y]]}]}
//
// seq and ts are optional.
type frameRecord struct {
	Seq     uint64         `json:"seq,omitempty"`
	TS      *time.Time     `json:"ts,omitempty"`
	Markers []markerRecord `json:"markers"`
}

type markerRecord struct {
	ID      int          `json:"id"`
	Corners [][2]float64 `json:"corners"`
}

func (r markerRecord) observation() (MarkerObservation, error) {
	if len(r.Corners) != 4 {
		return MarkerObservation{}, fmt.Errorf("marker %d has %d corners, want 4", r.ID, len(r.Corners))
	}
	obs := MarkerObservation{ID: r.ID}
	for i, c := range r.Corners {
		if math.IsNaN(c[0]) || math.IsNaN(c[1]) {
			return MarkerObservation{}, fmt.Errorf("marker %d corner %d is NaN", r.ID, i)
		}
		obs.Corners[i] = r2.Point{X: c[0], Y: c[1]}
	}
	return obs, nil
}

// EncodeFrame returns the JSON Lines encoding of f without the trailing
// newline.
func EncodeFrame(f Frame) ([]byte, error) {
	rec := frameRecord{Seq: f.Seq, Markers: make([]markerRecord, 0, len(f.Markers))}
	if !f.Timestamp.IsZero() {
		ts := f.Timestamp.UTC()
		rec.TS = &ts
	}
	for _, m := range f.Markers {
		mr := markerRecord{ID: m.ID, Corners: make([][2]float64, 4)}
		for i, c := range m.Corners {
			mr.Corners[i] = [2]float64{c.X, c.Y}
		}
		rec.Markers = append(rec.Markers, mr)
	}
	return json.Marshal(rec)
}
