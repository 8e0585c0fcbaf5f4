package strategy

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultSimConfig(t *testing.T) {
	c := DefaultSimConfig()
	if c.Dt != 1800 || c.VMin != 10 || c.VMax != 15 || c.Method != Powell || c.MaxIter != 2000 {
		t.Fatalf("unexpected defaults %+v", c)
	}
	if c.EnergyPenalty != 0 || c.UseSolcast || c.GPXFile != "0_FullBaseRoute.gpx" {
		t.Fatalf("unexpected defaults %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	for _, p := range Params() {
		if _, err := c.Get(p.Name); err != nil {
			t.Fatalf("%s: %s", p.Name, err)
		}
	}
}

func TestUpdateParam(t *testing.T) {
	c := DefaultSimConfig()
	for _, kv := range [][2]string{
		{"dt", "60"}, {"vmin", "12.5"}, {"VMAX", " 22 "}, {"method", "nelder-mead"},
		{"max_iter", "50"}, {"energy_penalty", "0.01"}, {"use_solcast", "Yes"},
		{"gpx_file", "1_Loop.gpx"}, {"vehicle.mass", "500"}, {"vehicle.drive_eff", "0.9"},
	} {
		if err := c.UpdateParam(kv[0], kv[1]); err != nil {
			t.Fatalf("%s=%s: %s", kv[0], kv[1], err)
		}
	}
	if c.Dt != 60 || c.VMin != 12.5 || c.VMax != 22 || c.Method != NelderMead || c.MaxIter != 50 {
		t.Fatalf("update failed %+v", c)
	}
	if c.EnergyPenalty != 0.01 || !c.UseSolcast || c.GPXFile != "1_Loop.gpx" || c.Vehicle.Mass != 500 || c.Vehicle.DriveEff != 0.9 {
		t.Fatalf("update failed %+v", c)
	}
}

func TestUpdateParamErrors(t *testing.T) {
	c := DefaultSimConfig()
	if err := c.UpdateParam("warp_factor", "9"); !errors.Is(err, ErrUnknownParam) {
		t.Fatalf("expected ErrUnknownParam, got %v", err)
	}
	for _, kv := range [][2]string{
		{"dt", "fast"}, {"dt", "-1"}, {"dt", "NaN"}, {"vmin", "-3"}, {"max_iter", "1.5"},
		{"max_iter", "0"}, {"method", "SLSQP"}, {"use_solcast", "maybe"}, {"gpx_file", " "},
		{"vehicle.panel_eff", "1.2"}, {"vehicle.drive_eff", "0"},
	} {
		var pe *ParamError
		if err := c.UpdateParam(kv[0], kv[1]); !errors.As(err, &pe) {
			t.Fatalf("%s=%s: expected ParamError, got %v", kv[0], kv[1], err)
		}
	}
	if c != DefaultSimConfig() {
		t.Fatal("failed updates changed the configuration")
	}

	c.VMin, c.VMax = 20, 10
	if err := c.Validate(); err == nil {
		t.Fatal("vmin > vmax accepted")
	}
}

func TestApplyOverrides(t *testing.T) {
	c := DefaultSimConfig()
	if err := c.ApplyOverrides([]string{"vmax=18", "method=CMA-ES"}); err != nil {
		t.Fatal(err)
	}
	if c.VMax != 18 || c.Method != CMAES {
		t.Fatalf("overrides not applied %+v", c)
	}
	if err := c.ApplyOverrides([]string{"vmax"}); err == nil {
		t.Fatal("assignment without a value accepted")
	}
}

func TestDisplay(t *testing.T) {
	c := DefaultSimConfig()
	c.SolcastAPIKey = "hunter2"
	var buf bytes.Buffer
	c.Display(&buf)
	out := buf.String()
	for _, want := range []string{"Current Configuration", " 1. Timestep", "= 1800 s", " 4. Optimization method", "= Powell", " 8. GPX filename"} {
		if !strings.Contains(out, want) {
			t.Fatalf("display is missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "hunter2") || strings.Contains(out, " 9.") {
		t.Fatalf("hidden parameters displayed:\n%s", out)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.toml")
	data := `dt = 600
vmax = 19.5
method = "Nelder-Mead"
use_solcast = true

[vehicle]
mass = 520.0
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STRATEGY_SOLCAST_API_KEY", "from-env")
	t.Setenv("STRATEGY_MAX_ITER", "75")
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Dt != 600 || c.VMax != 19.5 || c.Method != NelderMead || !c.UseSolcast {
		t.Fatalf("file values not loaded %+v", c)
	}
	if c.VMin != 10 || c.Vehicle.CRR != 0.004 {
		t.Fatalf("defaults lost %+v", c)
	}
	if c.Vehicle.Mass != 520 {
		t.Fatalf("vehicle section not loaded: %+v", c.Vehicle)
	}
	if c.SolcastAPIKey != "from-env" || c.MaxIter != 75 {
		t.Fatalf("environment not applied %+v", c)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("missing file accepted")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("dt: -5\nmethod: SLSQP\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadConfig(path)
	var pe *ParamError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParamError, got %v", err)
	}
	if !strings.Contains(err.Error(), "dt") || !strings.Contains(err.Error(), "method") {
		t.Fatalf("every bad key should be reported: %s", err)
	}
	c, err := LoadConfig("")
	if err != nil || c != DefaultSimConfig() {
		t.Fatalf("no file should give the defaults: %+v %v", c, err)
	}
}
