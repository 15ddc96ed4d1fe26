package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/san-kum/snowsim/internal/config"
	"github.com/san-kum/snowsim/internal/mpm"
)

const (
	metadataFile = "metadata.json"
	scenarioFile = "scenario.yaml"
	framesFile   = "frames.csv"
	metricsFile  = "metrics.csv"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

type RunMetadata struct {
	ID              string             `json:"id"`
	Preset          string             `json:"preset"`
	Timestamp       time.Time          `json:"timestamp"`
	Seed            int64              `json:"seed"`
	Res             [2]int             `json:"res"`
	SimulationTime  float64            `json:"simulation_time"`
	FrameDt         float64            `json:"frame_dt"`
	BaseDeltaT      float64            `json:"base_delta_t"`
	Async           bool               `json:"async"`
	DebugInput      [4]int             `json:"debug_input"`
	Every           int                `json:"every"`
	Particles       int                `json:"particles"`
	Frames          int                `json:"frames"`
	Steps           int64              `json:"steps"`
	ParticleUpdates int64              `json:"particle_updates"`
	ElapsedSeconds  float64            `json:"elapsed_seconds"`
	Metrics         map[string]float64 `json:"metrics"`
}

// Begin creates the run directory and returns a recorder that writes
// frames as they complete. Every frame is written when every is below 2.
func (s *Store) Begin(sc *config.Scenario, every int) (*Recorder, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", sc.Name, now.Unix())
	dir := s.Dir(runID)
	for i := 1; ; i++ {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			break
		}
		runID = fmt.Sprintf("%s_%d_%d", sc.Name, now.Unix(), i)
		dir = s.Dir(runID)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	if err := config.Save(filepath.Join(dir, scenarioFile), sc); err != nil {
		return nil, err
	}

	meta := RunMetadata{
		ID:             runID,
		Preset:         sc.Name,
		Timestamp:      now,
		Seed:           sc.Seed,
		Res:            sc.Res,
		SimulationTime: sc.SimulationTime,
		FrameDt:        sc.FrameDt,
		BaseDeltaT:     sc.BaseDeltaT,
		Async:          sc.Async,
		DebugInput:     sc.DebugInput,
		Every:          max(every, 1),
	}
	return newRecorder(dir, meta)
}

func writeMetadata(dir string, meta RunMetadata) error {
	f, err := os.Create(filepath.Join(dir, metadataFile))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

// List returns the stored runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// Latest returns the ID of the most recent run.
func (s *Store) Latest() (string, error) {
	runs, err := s.List()
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", ErrRunNotFound
	}
	return runs[0].ID, nil
}

func (s *Store) LoadScenario(runID string) (*config.Scenario, error) {
	return config.Load(filepath.Join(s.Dir(runID), scenarioFile))
}

var _ mpm.Observer = (*Recorder)(nil)
