package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/san-kum/snowsim/internal/mpm"
)

var (
	frameHeader  = []string{"frame", "time", "particle", "x", "y", "vx", "vy", "jp", "material", "level"}
	metricHeader = []string{"frame", "time", "kinetic_energy", "momentum_x", "momentum_y", "mean_level", "steps", "updates", "particles"}
)

// Recorder is an mpm.Observer that streams frames of one run to disk. The
// first write error is kept and reported by Close.
type Recorder struct {
	ID   string
	Dir  string
	meta RunMetadata

	frames, metrics *os.File
	frameW, metricW *csv.Writer
	err             error
}

func newRecorder(dir string, meta RunMetadata) (*Recorder, error) {
	r := &Recorder{ID: meta.ID, Dir: dir, meta: meta}

	var err error
	if r.frames, err = os.Create(filepath.Join(dir, framesFile)); err != nil {
		return nil, err
	}
	if r.metrics, err = os.Create(filepath.Join(dir, metricsFile)); err != nil {
		r.frames.Close()
		return nil, err
	}
	r.frameW = csv.NewWriter(r.frames)
	r.metricW = csv.NewWriter(r.metrics)
	r.write(r.frameW, frameHeader)
	r.write(r.metricW, metricHeader)

	if err := writeMetadata(dir, meta); err != nil {
		r.Close()
		return nil, err
	}
	return r, r.err
}

func (r *Recorder) write(w *csv.Writer, row []string) {
	if r.err == nil {
		r.err = w.Write(row)
	}
}

func (r *Recorder) OnFrame(info mpm.FrameInfo) {
	frame := strconv.Itoa(info.Frame)
	t := fmtFloat(info.Time)

	r.write(r.metricW, []string{
		frame, t,
		fmtFloat(info.KineticEnergy),
		fmtFloat(info.Momentum.X), fmtFloat(info.Momentum.Y),
		fmtFloat(info.MeanLevel),
		strconv.FormatInt(info.Steps, 10),
		strconv.FormatInt(info.Updates, 10),
		strconv.Itoa(info.Particles),
	})
	r.meta.Particles = info.Particles

	if info.Frame%r.meta.Every != 0 {
		return
	}
	snap := info.Snapshot()
	for i := range snap.Positions {
		x, v := snap.Positions[i], snap.Velocities[i]
		r.write(r.frameW, []string{
			frame, t, strconv.Itoa(i),
			fmtFloat(x.X), fmtFloat(x.Y),
			fmtFloat(v.X), fmtFloat(v.Y),
			fmtFloat(snap.Jp[i]),
			snap.Materials[i],
			strconv.Itoa(snap.Levels[i]),
		})
	}
	r.frameW.Flush()
	r.metricW.Flush()
}

// Finish records the run summary in the metadata and closes the files.
func (r *Recorder) Finish(res *mpm.Result) error {
	if res != nil {
		r.meta.Frames = res.Frames
		r.meta.Steps = res.Steps
		r.meta.ParticleUpdates = res.ParticleUpdates
		r.meta.ElapsedSeconds = res.Elapsed.Seconds()
		r.meta.Metrics = res.Metrics
	}
	if r.meta.Timestamp.IsZero() {
		r.meta.Timestamp = time.Now()
	}
	if err := r.Close(); err != nil {
		return err
	}
	return writeMetadata(r.Dir, r.meta)
}

func (r *Recorder) Close() error {
	for _, w := range []*csv.Writer{r.frameW, r.metricW} {
		w.Flush()
		if r.err == nil {
			r.err = w.Error()
		}
	}
	for _, f := range []*os.File{r.frames, r.metrics} {
		if err := f.Close(); err != nil && r.err == nil {
			r.err = err
		}
	}
	return r.err
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 8, 64)
}
