package route

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

const sampleGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk>
    <name>Nashville to Paducah</name>
    <trkseg>
      <trkpt lat="36.1627" lon="-86.7816"><ele>150</ele></trkpt>
      <trkpt lat="36.1637" lon="-86.7816"><ele>160</ele></trkpt>
    </trkseg>
    <trkseg>
      <trkpt lat="36.1647" lon="-86.7816"><ele>155</ele></trkpt>
      <trkpt lat="36.1647" lon="-86.7816"><ele>155</ele></trkpt>
    </trkseg>
  </trk>
  <trk>
    <name>Second leg</name>
    <trkseg>
      <trkpt lat="37.0" lon="-88.6"></trkpt>
    </trkseg>
  </trk>
</gpx>`

func TestParseTracks(t *testing.T) {
	pts, err := Parse([]byte(sampleGPX), NashvilleToPaducah)
	if err != nil {
		t.Fatal(err)
	}
	if len(pts) != 4 {
		t.Fatalf("expected the points of every segment, got %d", len(pts))
	}
	if pts[0].Lat != 36.1627 || pts[0].Ele != 150 {
		t.Fatalf("first point %+v", pts[0])
	}

	second, err := Parse([]byte(sampleGPX), Track(1))
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 1 || second[0].Ele != 0 {
		t.Fatalf("second track %+v", second)
	}

	if _, err = Parse([]byte(sampleGPX), Track(5)); err == nil {
		t.Fatal("missing track should fail")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "route.gpx")
	if err := os.WriteFile(path, []byte(sampleGPX), 0o644); err != nil {
		t.Fatal(err)
	}
	pts, err := Load(path, NashvilleToPaducah)
	if err != nil {
		t.Fatal(err)
	}
	if len(pts) != 4 {
		t.Fatalf("loaded %d points", len(pts))
	}
	if _, err = Load(filepath.Join(t.TempDir(), "missing.gpx"), NashvilleToPaducah); err == nil {
		t.Fatal("missing file should fail")
	}
}

func TestHaversine(t *testing.T) {
	// 0.001 degree of latitude is about 111.2 m.
	if d := Haversine(Point{Lat: 36.1627, Lon: -86.7816}, Point{Lat: 36.1637, Lon: -86.7816}); !scalar.EqualWithinAbs(d, 111.19, 0.05) {
		t.Fatalf("short hop %f m", d)
	}
	if d := Haversine(Point{Lat: 10, Lon: 10}, Point{Lat: 10, Lon: 10}); d != 0 {
		t.Fatalf("same point %f m", d)
	}
	// Quarter meridian.
	if d := Haversine(Point{}, Point{Lat: 90}); !scalar.EqualWithinAbs(d, math.Pi/2*EarthRadius, 1e-6) {
		t.Fatalf("quarter meridian %f m", d)
	}
}

func TestSegments(t *testing.T) {
	pts, err := Parse([]byte(sampleGPX), NashvilleToPaducah)
	if err != nil {
		t.Fatal(err)
	}
	dist, grade := Segments(pts)
	if len(dist) != 3 || len(grade) != 3 {
		t.Fatalf("expected 3 segments, got %d/%d", len(dist), len(grade))
	}
	if exp := math.Atan(10/dist[0]) * 180 / math.Pi; !scalar.EqualWithinAbs(grade[0], exp, 1e-12) {
		t.Fatalf("grade[0]=%f expected %f", grade[0], exp)
	}
	if grade[1] >= 0 {
		t.Fatalf("descending segment has grade %f", grade[1])
	}
	if dist[2] != 0 || grade[2] != 0 {
		t.Fatalf("repeated point should be level, got %f m %f deg", dist[2], grade[2])
	}
	if l := Length(pts); !scalar.EqualWithinAbs(l, dist[0]+dist[1], 1e-9) {
		t.Fatalf("length %f", l)
	}
	if d, g := Segments(pts[:1]); len(d) != 0 || len(g) != 0 {
		t.Fatal("single point has no segments")
	}
}

func TestPerPointGradeLeavesEachPoint(t *testing.T) {
	pts, err := Parse([]byte(sampleGPX), NashvilleToPaducah)
	if err != nil {
		t.Fatal(err)
	}
	_, seg := Segments(pts)
	grade := PerPointGrade(pts)
	if len(grade) != len(pts) {
		t.Fatalf("expected %d grades, got %d", len(pts), len(grade))
	}
	for i := range seg {
		if grade[i] != seg[i] {
			t.Fatalf("step %d should climb the segment to point %d: %f != %f", i, i+1, grade[i], seg[i])
		}
	}
	if grade[0] <= 0 {
		t.Fatal("first step is the uphill segment")
	}
	if grade[len(grade)-1] != 0 {
		t.Fatal("last point should be level")
	}
}

func TestDownsample(t *testing.T) {
	const max = 1000
	for _, n := range []int{1001, 1500, 1999, 2000, 2500, 10000} {
		pts := make([]Point, n)
		for i := range pts {
			pts[i].Lat = float64(i)
		}
		out := Downsample(pts, max)
		if len(out) > max {
			t.Fatalf("%d points downsampled to %d > %d", n, len(out), max)
		}
		if len(out) < max/2 {
			t.Fatalf("%d points downsampled to only %d", n, len(out))
		}
		if out[0].Lat != 0 {
			t.Fatalf("%d points: first point dropped", n)
		}
		stride := out[1].Lat - out[0].Lat
		for i := 1; i < len(out); i++ {
			if out[i].Lat-out[i-1].Lat != stride {
				t.Fatalf("%d points: uneven stride at %d", n, i)
			}
		}
	}
	pts := make([]Point, 2500)
	for i := range pts {
		pts[i].Lat = float64(i)
	}
	if out := Downsample(pts, max); len(out) != 834 || out[1].Lat != 3 {
		t.Fatalf("2500 points: got %d with second %f, expected 834 at stride 3", len(out), out[1].Lat)
	}
	if out := Downsample(pts[:10], max); len(out) != 10 {
		t.Fatalf("short route changed: %d", len(out))
	}
}
