package metrics

import "github.com/san-kum/snowsim/internal/mpm"

// Series records a per-frame history of the observed frames for plotting.
type Series struct {
	Times   []float64
	Energy  []float64
	Levels  []float64
	Updates []float64
	limit   int
}

// NewSeries keeps at most limit samples, dropping the oldest. Zero keeps
// everything.
func NewSeries(limit int) *Series {
	return &Series{limit: limit}
}

func (s *Series) OnFrame(info mpm.FrameInfo) {
	s.Times = append(s.Times, info.Time)
	s.Energy = append(s.Energy, info.KineticEnergy)
	s.Levels = append(s.Levels, info.MeanLevel)
	s.Updates = append(s.Updates, float64(info.Updates))

	if s.limit > 0 && len(s.Times) > s.limit {
		drop := len(s.Times) - s.limit
		s.Times = s.Times[drop:]
		s.Energy = s.Energy[drop:]
		s.Levels = s.Levels[drop:]
		s.Updates = s.Updates[drop:]
	}
}

func (s *Series) Len() int { return len(s.Times) }

// Default returns the metrics attached to every experiment.
func Default() []mpm.Metric {
	return []mpm.Metric{
		NewKineticEnergy(),
		NewMomentum(),
		NewMeanLevel(),
		NewUpdatesPerFrame(),
	}
}
