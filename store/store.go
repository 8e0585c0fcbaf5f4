// Package store archives optimization runs in SQLite through gorm.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	strategy "github.com/uw-midsun/fwxvi-strategy"
)

// ErrNotFound is returned when no run has the requested ID.
var ErrNotFound = errors.New("run not found")

// Run is one archived scenario result.
type Run struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	CreatedAt     time.Time      `json:"createdAt"`
	Name          string         `gorm:"index" json:"name"`
	Method        string         `json:"method"`
	Status        string         `json:"status"`
	Converged     bool           `json:"converged"`
	Iterations    int            `json:"iterations"`
	Evaluations   int            `json:"evaluations"`
	RuntimeMS     int64          `json:"runtimeMs"`
	Dt            float64        `json:"dt"`
	D0            float64        `json:"d0"`
	Steps         int            `json:"steps"`
	Score         float64        `json:"score"`
	FinalDistance float64        `json:"finalDistance"`
	FinalSOC      float64        `json:"finalSoc"`
	Vehicle       datatypes.JSON `json:"vehicle"`
	Velocity      datatypes.JSON `json:"velocity"`
	Traces        datatypes.JSON `json:"traces"`
}

// Velocities decodes the archived velocity profile.
func (r Run) Velocities() ([]float64, error) {
	var v []float64
	if err := json.Unmarshal(r.Velocity, &v); err != nil {
		return nil, fmt.Errorf("run %d: velocity: %w", r.ID, err)
	}
	return v, nil
}

// TraceSet decodes the archived simulation traces.
func (r Run) TraceSet() (strategy.Traces, error) {
	t := strategy.Traces{}
	if err := json.Unmarshal(r.Traces, &t); err != nil {
		return nil, fmt.Errorf("run %d: traces: %w", r.ID, err)
	}
	return t, nil
}

// Store is a run archive.
type Store struct {
	db *gorm.DB
}

// Open opens or creates the SQLite database at dsn and migrates the schema.
// Use ":memory:" for a throwaway archive.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dsn, err)
	}
	if err := db.AutoMigrate(&Run{}); err != nil {
		return nil, fmt.Errorf("migrating %s: %w", dsn, err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save archives a report and returns the stored row.
func (s *Store) Save(ctx context.Context, rep strategy.Report) (Run, error) {
	vehicle, err := json.Marshal(rep.Scenario.Config.Vehicle)
	if err != nil {
		return Run{}, err
	}
	velocity, err := json.Marshal(rep.Best.Velocity)
	if err != nil {
		return Run{}, err
	}
	traces, err := json.Marshal(rep.Sim.Traces)
	if err != nil {
		return Run{}, err
	}
	run := Run{
		Name:          rep.Scenario.Name,
		Method:        string(rep.Best.Method),
		Status:        rep.Best.Status,
		Converged:     rep.Best.Converged,
		Iterations:    rep.Best.Iterations,
		Evaluations:   rep.Best.Evaluations,
		RuntimeMS:     rep.Best.Runtime.Milliseconds(),
		Dt:            rep.Scenario.Dt,
		D0:            rep.Scenario.D0,
		Steps:         rep.Scenario.Steps(),
		Score:         rep.Best.Score,
		FinalDistance: rep.Sim.FinalDistance,
		FinalSOC:      rep.Sim.FinalSOC,
		Vehicle:       datatypes.JSON(vehicle),
		Velocity:      datatypes.JSON(velocity),
		Traces:        datatypes.JSON(traces),
	}
	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		return Run{}, fmt.Errorf("saving run %s: %w", run.Name, err)
	}
	return run, nil
}

// Get returns the run with the given ID.
func (s *Store) Get(ctx context.Context, id uint) (Run, error) {
	var run Run
	err := s.db.WithContext(ctx).First(&run, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Run{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return run, err
}

// List returns the most recent runs first, at most limit of them when limit > 0.
// Traces are not loaded.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	var runs []Run
	q := s.db.WithContext(ctx).Omit("traces").Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// Best returns the run of the given scenario with the longest final distance.
func (s *Store) Best(ctx context.Context, name string) (Run, error) {
	var run Run
	err := s.db.WithContext(ctx).Where("name = ?", name).Order("final_distance desc").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return run, err
}
