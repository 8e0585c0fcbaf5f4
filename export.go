package strategy

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/uw-midsun/fwxvi-strategy/route"
)

// ExportConfig selects the files written for a report.
type ExportConfig struct {
	Dir       string
	Filename  string
	AsCSV     bool // traces as CSV
	Grafana   bool // speed map JSON, needs a route
	Timestamp bool // stamp file names with the creation time
}

func (c ExportConfig) path(kind, ext string) string {
	name := c.Filename
	if c.Timestamp {
		t := time.Now()
		name = fmt.Sprintf("%s-%d-%02d-%02dT%02d.%02d.%02d", name, t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second())
	}
	return filepath.Join(c.Dir, fmt.Sprintf("%s-%s.%s", kind, name, ext))
}

// Export writes the requested files for r and returns their paths.
func Export(conf ExportConfig, r Report) ([]string, error) {
	if conf.Filename == "" {
		conf.Filename = r.Scenario.Name
	}
	if err := os.MkdirAll(conf.Dir, 0o755); err != nil {
		return nil, err
	}
	var written []string
	if conf.AsCSV {
		p := conf.path("traces", "csv")
		if err := writeFile(p, func(w io.Writer) error { return WriteTraces(w, r.Sim) }); err != nil {
			return written, err
		}
		written = append(written, p)
	}
	if conf.Grafana && len(r.Scenario.Route) > 1 {
		doc := GrafanaSegments(r.Scenario.Route, r.Best.Velocity, r.Scenario.GradeDeg, r.Scenario.GHI, r.Scenario.Config.VMin, r.Scenario.Config.VMax)
		p := conf.path("route-speeds", "json")
		if err := writeFile(p, doc.Write); err != nil {
			return written, err
		}
		written = append(written, p)
	}
	return written, nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// WriteTraces writes one CSV row per timestep with a column per trace, after a
// commented header.
func WriteTraces(w io.Writer, res SimResult) error {
	if _, err := fmt.Fprintf(w, "# Creation date (UTC): %s\n# Final distance %.3f m, final SOC %.3f J\n",
		time.Now().UTC().Format(time.RFC3339), res.FinalDistance, res.FinalSOC); err != nil {
		return err
	}
	names := TraceNames()
	cw := csv.NewWriter(w)
	if err := cw.Write(names); err != nil {
		return err
	}
	row := make([]string, len(names))
	for i := 0; i < res.Traces.Len(); i++ {
		for j, name := range names {
			row[j] = strconv.FormatFloat(res.Traces[name][i], 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SpeedColor maps v onto the blue, cyan, green, yellow, red ramp across [vmin, vmax]
// and returns it as #rrggbb. Speeds outside the range take the end colours.
func SpeedColor(v, vmin, vmax float64) string {
	stops := [5][3]float64{
		{0, 0, 255},
		{0, 255, 255},
		{0, 255, 0},
		{255, 255, 0},
		{255, 0, 0},
	}
	t := lo.Clamp((v-vmin)/math.Max(vmax-vmin, 1e-9), 0, 1)
	pos := t * 4
	i := int(math.Min(math.Floor(pos), 3))
	f := pos - float64(i)
	var c [3]int
	for k := range c {
		c[k] = int(stops[i][k] + f*(stops[i+1][k]-stops[i][k]))
	}
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}

// GrafanaSegment is one route segment of the map export.
type GrafanaSegment struct {
	Segment  int     `json:"segment"`
	LatStart float64 `json:"lat_start"`
	LonStart float64 `json:"lon_start"`
	LatEnd   float64 `json:"lat_end"`
	LonEnd   float64 `json:"lon_end"`
	GradeDeg float64 `json:"grade_deg"`
	GHI      float64 `json:"ghi_wm2"`
	Speed    float64 `json:"speed_mps"`
	Color    string  `json:"color"`
}

// GrafanaMeta carries the colour scale bounds.
type GrafanaMeta struct {
	VMin float64 `json:"vmin"`
	VMax float64 `json:"vmax"`
}

// GrafanaDoc is the route speed map consumed by the dashboard.
type GrafanaDoc struct {
	Segments []GrafanaSegment `json:"segments"`
	Meta     GrafanaMeta      `json:"meta"`
}

// Write encodes the document as indented JSON.
func (d GrafanaDoc) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// GrafanaSegments pairs segment i, from pts[i] to pts[i+1], with the i-th speed, grade
// and irradiance. The inputs are truncated to the shortest of them.
func GrafanaSegments(pts []route.Point, speed, gradeDeg, ghi []float64, vmin, vmax float64) GrafanaDoc {
	n := len(pts) - 1
	n = lo.Min([]int{n, len(speed), len(gradeDeg), len(ghi)})
	doc := GrafanaDoc{Segments: make([]GrafanaSegment, 0, lo.Max([]int{n, 0})), Meta: GrafanaMeta{VMin: vmin, VMax: vmax}}
	for i := 0; i < n; i++ {
		doc.Segments = append(doc.Segments, GrafanaSegment{
			Segment:  i,
			LatStart: pts[i].Lat,
			LonStart: pts[i].Lon,
			LatEnd:   pts[i+1].Lat,
			LonEnd:   pts[i+1].Lon,
			GradeDeg: gradeDeg[i],
			GHI:      ghi[i],
			Speed:    speed[i],
			Color:    SpeedColor(speed[i], vmin, vmax),
		})
	}
	return doc
}
