package strategy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// MockProfile is a synthetic route: per-step grade and irradiance plus the step and start distance.
type MockProfile struct {
	Name     string    `yaml:"name"`
	GHI      []float64 `yaml:"ghi"`
	GradeDeg []float64 `yaml:"theta_deg"`
	Dt       float64   `yaml:"dt"`
	D0       float64   `yaml:"d0"`
}

// Steps returns the number of timesteps in the profile.
func (m MockProfile) Steps() int {
	return len(m.GradeDeg)
}

// ReadMockProfile decodes a profile. dt defaults to 1800 s and d0 to 0.
func ReadMockProfile(r io.Reader) (MockProfile, error) {
	prof := MockProfile{Dt: 1800}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&prof); err != nil && !errors.Is(err, io.EOF) {
		return MockProfile{}, fmt.Errorf("decoding mock profile: %w", err)
	}
	if len(prof.GradeDeg) == 0 {
		return MockProfile{}, fmt.Errorf("mock profile: theta_deg: %w", ErrEmptyProfile)
	}
	if len(prof.GHI) != len(prof.GradeDeg) {
		return MockProfile{}, &ShapeError{Name: TraceGHI, Got: len(prof.GHI), Expected: len(prof.GradeDeg)}
	}
	if !(prof.Dt > 0) {
		return MockProfile{}, &ParamError{Name: "dt", Value: fmt.Sprintf("%g", prof.Dt), Reason: "must be > 0"}
	}
	return prof, nil
}

// LoadMockProfile reads a YAML profile from disk.
func LoadMockProfile(path string) (MockProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return MockProfile{}, err
	}
	prof, err := ReadMockProfile(bytes.NewReader(data))
	if err != nil {
		return MockProfile{}, fmt.Errorf("%s: %w", path, err)
	}
	return prof, nil
}
