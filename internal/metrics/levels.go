package metrics

import "github.com/san-kum/snowsim/internal/mpm"

// MeanLevel averages the particle time level over all frames. Higher values
// mean larger steps.
type MeanLevel struct {
	name    string
	sum     float64
	samples int
}

func NewMeanLevel() *MeanLevel {
	return &MeanLevel{name: "mean_level"}
}

func (m *MeanLevel) Name() string { return m.name }

func (m *MeanLevel) Observe(info mpm.FrameInfo) {
	if info.Particles == 0 {
		return
	}
	m.sum += info.MeanLevel
	m.samples++
}

func (m *MeanLevel) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanLevel) Reset() {
	m.sum = 0
	m.samples = 0
}

// UpdatesPerFrame is the average number of particle updates per frame.
type UpdatesPerFrame struct {
	name    string
	sum     int64
	samples int
}

func NewUpdatesPerFrame() *UpdatesPerFrame {
	return &UpdatesPerFrame{name: "updates_per_frame"}
}

func (u *UpdatesPerFrame) Name() string { return u.name }

func (u *UpdatesPerFrame) Observe(info mpm.FrameInfo) {
	u.sum += info.Updates
	u.samples++
}

func (u *UpdatesPerFrame) Value() float64 {
	if u.samples == 0 {
		return 0
	}
	return float64(u.sum) / float64(u.samples)
}

func (u *UpdatesPerFrame) Reset() {
	u.sum = 0
	u.samples = 0
}
