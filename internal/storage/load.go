package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/san-kum/snowsim/internal/mpm"
	"github.com/san-kum/snowsim/internal/vmath"
)

// MetricRow is one line of metrics.csv.
type MetricRow struct {
	Frame         int
	Time          float64
	KineticEnergy float64
	Momentum      vmath.Vec2
	MeanLevel     float64
	Steps         int64
	Updates       int64
	Particles     int
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}
	return records[1:], nil
}

func (s *Store) LoadMetrics(runID string) ([]MetricRow, error) {
	records, err := readCSV(filepath.Join(s.Dir(runID), metricsFile))
	if err != nil {
		return nil, err
	}

	rows := make([]MetricRow, 0, len(records))
	for _, rec := range records {
		if len(rec) < len(metricHeader) {
			continue
		}
		var row MetricRow
		var perr error
		parseF := func(s string) float64 {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil && perr == nil {
				perr = err
			}
			return v
		}
		parseI := func(s string) int64 {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil && perr == nil {
				perr = err
			}
			return v
		}
		row.Frame = int(parseI(rec[0]))
		row.Time = parseF(rec[1])
		row.KineticEnergy = parseF(rec[2])
		row.Momentum = vmath.V(parseF(rec[3]), parseF(rec[4]))
		row.MeanLevel = parseF(rec[5])
		row.Steps = parseI(rec[6])
		row.Updates = parseI(rec[7])
		row.Particles = int(parseI(rec[8]))
		if perr != nil {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Column extracts one named series from metric rows.
func Column(rows []MetricRow, name string) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, r := range rows {
		switch name {
		case "kinetic_energy":
			out[i] = r.KineticEnergy
		case "momentum":
			out[i] = r.Momentum.Len()
		case "mean_level":
			out[i] = r.MeanLevel
		case "steps":
			out[i] = float64(r.Steps)
		case "updates":
			out[i] = float64(r.Updates)
		case "particles":
			out[i] = float64(r.Particles)
		default:
			return nil, fmt.Errorf("unknown metric column %q", name)
		}
	}
	return out, nil
}

// LoadFrames rebuilds the stored frame snapshots in frame order.
func (s *Store) LoadFrames(runID string) ([]mpm.FrameSnapshot, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	records, err := readCSV(filepath.Join(s.Dir(runID), framesFile))
	if err != nil {
		return nil, err
	}

	res := vmath.Vec2i{X: meta.Res[0], Y: meta.Res[1]}
	byFrame := make(map[int]*mpm.FrameSnapshot)
	for _, rec := range records {
		if len(rec) < len(frameHeader) {
			continue
		}
		frame, err := strconv.Atoi(rec[0])
		if err != nil {
			continue
		}
		vals := make([]float64, 6)
		ok := true
		for k, col := range []int{1, 3, 4, 5, 6, 7} {
			if vals[k], err = strconv.ParseFloat(rec[col], 64); err != nil {
				ok = false
				break
			}
		}
		level, err := strconv.Atoi(rec[9])
		if !ok || err != nil {
			continue
		}

		snap, found := byFrame[frame]
		if !found {
			snap = &mpm.FrameSnapshot{Frame: frame, Time: vals[0], Res: res}
			if res.Y > 0 {
				snap.Dx = 1 / float64(res.Y)
			}
			byFrame[frame] = snap
		}
		snap.Positions = append(snap.Positions, vmath.V(vals[1], vals[2]))
		snap.Velocities = append(snap.Velocities, vmath.V(vals[3], vals[4]))
		snap.Jp = append(snap.Jp, vals[5])
		snap.Materials = append(snap.Materials, rec[8])
		snap.Levels = append(snap.Levels, level)
	}

	frames := make([]mpm.FrameSnapshot, 0, len(byFrame))
	for _, snap := range byFrame {
		frames = append(frames, *snap)
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i].Frame < frames[j].Frame })
	return frames, nil
}

// LoadFrame returns the stored frame closest to the requested one. A
// negative frame selects the last.
func (s *Store) LoadFrame(runID string, frame int) (mpm.FrameSnapshot, error) {
	frames, err := s.LoadFrames(runID)
	if err != nil {
		return mpm.FrameSnapshot{}, err
	}
	if len(frames) == 0 {
		return mpm.FrameSnapshot{}, fmt.Errorf("run %s has no stored frames", runID)
	}
	if frame < 0 {
		return frames[len(frames)-1], nil
	}
	best := frames[0]
	for _, f := range frames[1:] {
		if abs(f.Frame-frame) < abs(best.Frame-frame) {
			best = f
		}
	}
	return best, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ExportData bundles a run's metadata with its metric history.
type ExportData struct {
	Metadata *RunMetadata `json:"metadata"`
	Times    []float64    `json:"times"`
	Energy   []float64    `json:"kinetic_energy"`
	Levels   []float64    `json:"mean_level"`
	Updates  []float64    `json:"updates"`
}

func (s *Store) ExportJSON(runID string, w io.Writer) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	rows, err := s.LoadMetrics(runID)
	if err != nil {
		return err
	}

	data := ExportData{Metadata: meta}
	for _, r := range rows {
		data.Times = append(data.Times, r.Time)
		data.Energy = append(data.Energy, r.KineticEnergy)
		data.Levels = append(data.Levels, r.MeanLevel)
		data.Updates = append(data.Updates, float64(r.Updates))
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
