// Package telemetry streams simulation traces to InfluxDB so a strategy run
// can be overlaid on live car telemetry.
package telemetry

import (
	"context"
	"fmt"
	"math"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	strategy "github.com/uw-midsun/fwxvi-strategy"
)

// Measurement is the InfluxDB measurement written for every timestep.
const Measurement = "strategy_trace"

// Points converts a report into one point per timestep. Step i is stamped at
// start + i·dt; a zero start uses the scenario start, or the Unix epoch when
// that is unset too. Non-finite samples are dropped from the point.
func Points(rep strategy.Report, start time.Time) []*write.Point {
	if start.IsZero() {
		start = rep.Scenario.Start
	}
	if start.IsZero() {
		start = time.Unix(0, 0).UTC()
	}
	step := time.Duration(rep.Scenario.Dt * float64(time.Second))
	tags := map[string]string{"scenario": rep.Scenario.Name}

	n := rep.Sim.Traces.Len()
	pts := make([]*write.Point, 0, n)
	for i := 0; i < n; i++ {
		fields := make(map[string]interface{}, len(rep.Sim.Traces))
		for _, name := range strategy.TraceNames() {
			tr := rep.Sim.Traces[name]
			if i >= len(tr) || math.IsNaN(tr[i]) || math.IsInf(tr[i], 0) {
				continue
			}
			fields[name] = tr[i]
		}
		if len(fields) == 0 {
			continue
		}
		pts = append(pts, influxdb2.NewPoint(Measurement, tags, fields, start.Add(time.Duration(i)*step)))
	}
	return pts
}

// Writer sends reports to a single bucket.
type Writer struct {
	client influxdb2.Client
	org    string
	bucket string
}

// NewWriter connects to the InfluxDB server at url.
func NewWriter(url, token, org, bucket string) *Writer {
	return &Writer{
		client: influxdb2.NewClient(url, token),
		org:    org,
		bucket: bucket,
	}
}

// Write sends every timestep of rep in one blocking request.
func (w *Writer) Write(ctx context.Context, rep strategy.Report, start time.Time) error {
	pts := Points(rep, start)
	if len(pts) == 0 {
		return nil
	}
	api := w.client.WriteAPIBlocking(w.org, w.bucket)
	if err := api.WritePoint(ctx, pts...); err != nil {
		return fmt.Errorf("writing %d points for %s: %w", len(pts), rep.Scenario.Name, err)
	}
	return nil
}

// Close releases the client.
func (w *Writer) Close() {
	w.client.Close()
}
