package viz

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/snowsim/internal/mpm"
)

// FrameMsg carries one finished frame from the runner to the model.
type FrameMsg struct {
	Info mpm.FrameInfo
	Snap mpm.FrameSnapshot
}

// DoneMsg is sent once the simulation has finished or failed.
type DoneMsg struct {
	Err error
}

// Runner owns the simulator while the live view is open. Only its goroutine
// touches the simulator after Start.
type Runner struct {
	sim    *mpm.Simulator
	msgs   chan tea.Msg
	wake   chan struct{}
	paused atomic.Bool
	cancel context.CancelFunc
	once   sync.Once
	last   FrameMsg
}

func NewRunner(sim *mpm.Simulator) *Runner {
	r := &Runner{
		sim:  sim,
		msgs: make(chan tea.Msg, 1),
		wake: make(chan struct{}, 1),
	}
	sim.AddObserver(mpm.ObserverFunc(func(info mpm.FrameInfo) {
		r.last = FrameMsg{Info: info, Snap: info.Snapshot()}
	}))
	return r
}

// Start launches the stepping goroutine. Calling it twice is a no-op.
func (r *Runner) Start(ctx context.Context) {
	r.once.Do(func() {
		ctx, r.cancel = context.WithCancel(ctx)
		go r.loop(ctx)
	})
}

func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *Runner) SetPaused(p bool) {
	r.paused.Store(p)
	if !p {
		select {
		case r.wake <- struct{}{}:
		default:
		}
	}
}

func (r *Runner) Paused() bool { return r.paused.Load() }

func (r *Runner) loop(ctx context.Context) {
	defer close(r.msgs)

	for !r.sim.Finished() {
		if r.paused.Load() {
			select {
			case <-ctx.Done():
				return
			case <-r.wake:
			}
			continue
		}

		if err := r.sim.AdvanceFrame(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			if errors.Is(err, mpm.ErrFinished) {
				break
			}
			log.Printf("viz: simulation stopped: %v", err)
			r.send(ctx, DoneMsg{Err: err})
			return
		}
		if !r.send(ctx, r.last) {
			return
		}
	}
	r.send(ctx, DoneMsg{})
}

func (r *Runner) send(ctx context.Context, msg tea.Msg) bool {
	select {
	case r.msgs <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

// Next waits for the runner's next message.
func (r *Runner) Next() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-r.msgs
		if !ok {
			return nil
		}
		return msg
	}
}
