package mpm

type event struct {
	t     float64
	fn    func(*Simulator) error
	fired bool
}

// AddEvent schedules fn to run once at the first frame boundary whose time
// is at least t. A negative t runs before the first step.
func (s *Simulator) AddEvent(t float64, fn func(*Simulator) error) {
	s.events = append(s.events, event{t: t, fn: fn})
}

// PendingEvents reports how many events have not fired yet.
func (s *Simulator) PendingEvents() int {
	n := 0
	for _, e := range s.events {
		if !e.fired {
			n++
		}
	}
	return n
}

func (s *Simulator) fireEvents() error {
	now := s.Time()
	// Callbacks may register further events, so the length is re-read.
	for i := 0; i < len(s.events); i++ {
		e := &s.events[i]
		if e.fired || (e.t >= 0 && e.t > now+0.5*s.cfg.BaseDeltaT) {
			continue
		}
		e.fired = true
		fn, t := e.fn, e.t
		if err := fn(s); err != nil {
			return &EventError{T: t, Index: i, Err: err}
		}
	}
	return nil
}
