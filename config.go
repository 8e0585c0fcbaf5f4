package strategy

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// SimConfig is the scenario configuration. Every field has a default and is
// updated by name through the parameter table.
type SimConfig struct {
	Dt            float64 // s
	VMin, VMax    float64 // m/s
	Method        Method
	MaxIter       int
	EnergyPenalty float64
	UseSolcast    bool
	SolcastAPIKey string
	GPXFile       string
	Vehicle       VehicleParams
}

// DefaultSimConfig returns the configuration used when nothing is overridden.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		Dt:      1800,
		VMin:    10,
		VMax:    15,
		Method:  Powell,
		MaxIter: 2000,
		GPXFile: "0_FullBaseRoute.gpx",
		Vehicle: DefaultVehicleParams(),
	}
}

// Validate checks the constraints that span more than one field.
func (c SimConfig) Validate() error {
	if c.VMin > c.VMax {
		return &ParamError{Name: "vmin", Value: strconv.FormatFloat(c.VMin, 'g', -1, 64), Reason: fmt.Sprintf("must not exceed vmax (%g)", c.VMax)}
	}
	return c.Vehicle.Validate()
}

// OptimizeConfig returns the optimizer settings for n steps of dt seconds starting at d0.
func (c SimConfig) OptimizeConfig(n int, dt, d0 float64) OptimizeConfig {
	return OptimizeConfig{
		Dt:            dt,
		Horizon:       float64(n) * dt,
		D0:            d0,
		VMin:          c.VMin,
		VMax:          c.VMax,
		Method:        c.Method,
		MaxIter:       c.MaxIter,
		EnergyPenalty: c.EnergyPenalty,
		Seed:          1,
	}
}

// Param describes one configurable key.
type Param struct {
	Name        string
	Unit        string
	Description string
	Kind        string // float, int, bool, string or method
	Hidden      bool   // not shown by Display
	get         func(*SimConfig) string
	set         func(*SimConfig, string) error
}

func floatParam(name, unit, desc, want string, ok func(float64) bool, field func(*SimConfig) *float64) Param {
	return Param{
		Name: name, Unit: unit, Description: desc, Kind: "float",
		get: func(c *SimConfig) string { return strconv.FormatFloat(*field(c), 'g', -1, 64) },
		set: func(c *SimConfig, s string) error {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return &ParamError{Name: name, Value: s, Reason: "expected a number", Err: err}
			}
			if math.IsNaN(v) || math.IsInf(v, 0) || !ok(v) {
				return &ParamError{Name: name, Value: s, Reason: "must be " + want}
			}
			*field(c) = v
			return nil
		},
	}
}

func positive(v float64) bool    { return v > 0 }
func nonNegative(v float64) bool { return v >= 0 }
func fraction(v float64) bool    { return v >= 0 && v <= 1 }
func efficiency(v float64) bool  { return v > 0 && v <= 1 }

// ParseBool accepts true/false, yes/no, y/n, on/off and 1/0, ignoring case.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y", "on":
		return true, nil
	case "false", "0", "no", "n", "off":
		return false, nil
	}
	return false, fmt.Errorf("%q is not a boolean", s)
}

var paramTable = []Param{
	floatParam("dt", "s", "Timestep", "> 0", positive, func(c *SimConfig) *float64 { return &c.Dt }),
	floatParam("vmin", "m/s", "Minimum speed", ">= 0", nonNegative, func(c *SimConfig) *float64 { return &c.VMin }),
	floatParam("vmax", "m/s", "Maximum speed", "> 0", positive, func(c *SimConfig) *float64 { return &c.VMax }),
	{
		Name: "method", Description: "Optimization method", Kind: "method",
		get: func(c *SimConfig) string { return string(c.Method) },
		set: func(c *SimConfig, s string) error {
			m, err := ParseMethod(s)
			if err != nil {
				return &ParamError{Name: "method", Value: s, Reason: fmt.Sprintf("expected one of %v", Methods()), Err: err}
			}
			c.Method = m
			return nil
		},
	},
	{
		Name: "max_iter", Description: "Max iterations", Kind: "int",
		get: func(c *SimConfig) string { return strconv.Itoa(c.MaxIter) },
		set: func(c *SimConfig, s string) error {
			v, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return &ParamError{Name: "max_iter", Value: s, Reason: "expected an integer", Err: err}
			}
			if v < 1 {
				return &ParamError{Name: "max_iter", Value: s, Reason: "must be >= 1"}
			}
			c.MaxIter = v
			return nil
		},
	},
	floatParam("energy_penalty", "", "Energy penalty weight", ">= 0", nonNegative, func(c *SimConfig) *float64 { return &c.EnergyPenalty }),
	{
		Name: "use_solcast", Description: "Use Solcast API", Kind: "bool",
		get: func(c *SimConfig) string { return strconv.FormatBool(c.UseSolcast) },
		set: func(c *SimConfig, s string) error {
			v, err := ParseBool(s)
			if err != nil {
				return &ParamError{Name: "use_solcast", Value: s, Reason: "expected a boolean", Err: err}
			}
			c.UseSolcast = v
			return nil
		},
	},
	{
		Name: "gpx_file", Description: "GPX filename", Kind: "string",
		get: func(c *SimConfig) string { return c.GPXFile },
		set: func(c *SimConfig, s string) error {
			if strings.TrimSpace(s) == "" {
				return &ParamError{Name: "gpx_file", Value: s, Reason: "must not be empty"}
			}
			c.GPXFile = strings.TrimSpace(s)
			return nil
		},
	},
	{
		Name: "solcast_api_key", Description: "Solcast API key", Kind: "string", Hidden: true,
		get: func(c *SimConfig) string { return c.SolcastAPIKey },
		set: func(c *SimConfig, s string) error { c.SolcastAPIKey = strings.TrimSpace(s); return nil },
	},
	vehicleParam("mass", "kg", "Vehicle mass", "> 0", positive, func(p *VehicleParams) *float64 { return &p.Mass }),
	vehicleParam("drag_coeff", "", "Drag coefficient", ">= 0", nonNegative, func(p *VehicleParams) *float64 { return &p.DragCoeff }),
	vehicleParam("front_area", "m^2", "Frontal area", ">= 0", nonNegative, func(p *VehicleParams) *float64 { return &p.FrontArea }),
	vehicleParam("c_rr", "", "Rolling resistance coefficient", ">= 0", nonNegative, func(p *VehicleParams) *float64 { return &p.CRR }),
	vehicleParam("solar_area", "m^2", "Solar array area", ">= 0", nonNegative, func(p *VehicleParams) *float64 { return &p.SolarArea }),
	vehicleParam("panel_eff", "", "Panel efficiency", "in [0, 1]", fraction, func(p *VehicleParams) *float64 { return &p.PanelEff }),
	vehicleParam("bat_max_energy", "J", "Battery capacity", "> 0", positive, func(p *VehicleParams) *float64 { return &p.BatteryCapacity }),
	vehicleParam("air_density", "kg/m^3", "Air density", ">= 0", nonNegative, func(p *VehicleParams) *float64 { return &p.AirDensity }),
	vehicleParam("gravity", "m/s^2", "Gravity", ">= 0", nonNegative, func(p *VehicleParams) *float64 { return &p.Gravity }),
	vehicleParam("drive_eff", "", "Drivetrain efficiency", "in (0, 1]", efficiency, func(p *VehicleParams) *float64 { return &p.DriveEff }),
}

// vehicleParam exposes a VehicleParams field under "vehicle.<name>".
func vehicleParam(name, unit, desc, want string, ok func(float64) bool, field func(*VehicleParams) *float64) Param {
	p := floatParam("vehicle."+name, unit, desc, want, ok, func(c *SimConfig) *float64 { return field(&c.Vehicle) })
	p.Hidden = true
	return p
}

// Params returns the parameter table.
func Params() []Param {
	return append([]Param(nil), paramTable...)
}

func lookupParam(name string) (Param, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, p := range paramTable {
		if p.Name == key {
			return p, true
		}
	}
	return Param{}, false
}

// UpdateParam sets the named parameter from its text form. The configuration is
// unchanged when an error is returned.
func (c *SimConfig) UpdateParam(name, value string) error {
	p, ok := lookupParam(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	return p.set(c, value)
}

// Get returns the text form of the named parameter.
func (c *SimConfig) Get(name string) (string, error) {
	p, ok := lookupParam(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	return p.get(c), nil
}

// ApplyOverrides applies "key=value" assignments in order and stops at the first failure.
func (c *SimConfig) ApplyOverrides(assignments []string) error {
	for _, a := range assignments {
		key, value, found := strings.Cut(a, "=")
		if !found {
			return &ParamError{Name: a, Reason: "expected key=value"}
		}
		if err := c.UpdateParam(key, value); err != nil {
			return err
		}
	}
	return nil
}

// Display writes the indexed parameter table to w.
func (c *SimConfig) Display(w io.Writer) {
	rule := strings.Repeat("-", 50)
	fmt.Fprintf(w, "\n%s\nCurrent Configuration\n%s\n", rule, rule)
	idx := 0
	for _, p := range paramTable {
		if p.Hidden {
			continue
		}
		idx++
		unit := ""
		if p.Unit != "" {
			unit = " " + p.Unit
		}
		fmt.Fprintf(w, "%2d. %-25s = %s%s\n", idx, p.Description, p.get(c), unit)
	}
	fmt.Fprintf(w, "%s\n\n", rule)
}

// LoadConfig reads a TOML, YAML or JSON scenario file. Top level keys match the
// parameter names, vehicle constants live in a [vehicle] section, and STRATEGY_*
// environment variables (e.g. STRATEGY_SOLCAST_API_KEY) override the file.
func LoadConfig(path string) (SimConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("strategy")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := DefaultSimConfig()
	for _, p := range paramTable {
		v.SetDefault(p.Name, p.get(&cfg))
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	var errs []error
	for _, p := range paramTable {
		if err := p.set(&cfg, v.GetString(p.Name)); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}
