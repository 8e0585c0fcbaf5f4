// Package route loads race routes from GPX files and derives per-segment distance and grade.
package route

import (
	"errors"
	"fmt"
	"math"

	"github.com/tkrajina/gpxgo/gpx"
)

// EarthRadius is the mean Earth radius in meters used by Haversine.
const EarthRadius = 6371000.0

// Track indexes a track within the race GPX file.
type Track int

// Tracks of the ASC base route file.
const (
	NashvilleToPaducah Track = iota
)

// Point is a route sample in degrees and meters.
type Point struct {
	Lat, Lon, Ele float64
}

// Coord returns the latitude and longitude of the point.
func (p Point) Coord() (lat, lon float64) {
	return p.Lat, p.Lon
}

// ErrNoPoints is returned when the selected track has no usable points.
var ErrNoPoints = errors.New("route has no points")

// Load reads the points of the given track of a GPX file, over all of its segments.
// Points without an elevation get 0.
func Load(path string, track Track) ([]Point, error) {
	doc, err := gpx.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return fromGPX(doc, track)
}

// Parse is Load for an in-memory GPX document.
func Parse(data []byte, track Track) ([]Point, error) {
	doc, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parsing gpx: %w", err)
	}
	return fromGPX(doc, track)
}

func fromGPX(doc *gpx.GPX, track Track) ([]Point, error) {
	if int(track) < 0 || int(track) >= len(doc.Tracks) {
		return nil, fmt.Errorf("track %d out of range, file has %d tracks", track, len(doc.Tracks))
	}
	var pts []Point
	for _, seg := range doc.Tracks[track].Segments {
		for _, p := range seg.Points {
			pt := Point{Lat: p.Latitude, Lon: p.Longitude}
			if p.Elevation.NotNull() {
				pt.Ele = p.Elevation.Value()
			}
			pts = append(pts, pt)
		}
	}
	if len(pts) == 0 {
		return nil, ErrNoPoints
	}
	return pts, nil
}

// Downsample keeps every stride-th point, starting with the first, where stride is
// the smallest that leaves at most max points.
func Downsample(pts []Point, max int) []Point {
	if max <= 0 || len(pts) <= max {
		return pts
	}
	stride := (len(pts) + max - 1) / max
	out := make([]Point, 0, max)
	for i := 0; i < len(pts); i += stride {
		out = append(out, pts[i])
	}
	return out
}

// Haversine returns the great circle distance in meters between two points.
func Haversine(a, b Point) float64 {
	φ1, φ2 := a.Lat*math.Pi/180, b.Lat*math.Pi/180
	dφ := φ2 - φ1
	dλ := (b.Lon - a.Lon) * math.Pi / 180
	h := math.Sin(dφ/2)*math.Sin(dφ/2) + math.Cos(φ1)*math.Cos(φ2)*math.Sin(dλ/2)*math.Sin(dλ/2)
	return 2 * EarthRadius * math.Asin(math.Sqrt(h))
}

// Segments returns the length in meters and the grade in degrees of each of the
// len(pts)-1 segments. A zero length segment is treated as 1e-9 m for the grade.
func Segments(pts []Point) (dist, gradeDeg []float64) {
	if len(pts) < 2 {
		return []float64{}, []float64{}
	}
	dist = make([]float64, len(pts)-1)
	gradeDeg = make([]float64, len(pts)-1)
	for i := range dist {
		d := Haversine(pts[i], pts[i+1])
		dist[i] = d
		if d == 0 {
			d = 1e-9
		}
		gradeDeg[i] = math.Atan((pts[i+1].Ele-pts[i].Ele)/d) * 180 / math.Pi
	}
	return dist, gradeDeg
}

// PerPointGrade returns one grade per point: the grade of the segment leaving
// each point, so step i climbs from pts[i] to pts[i+1]. The last point is level.
func PerPointGrade(pts []Point) []float64 {
	_, g := Segments(pts)
	return append(g, 0)
}

// Length returns the total route length in meters.
func Length(pts []Point) float64 {
	dist, _ := Segments(pts)
	total := 0.0
	for _, d := range dist {
		total += d
	}
	return total
}
