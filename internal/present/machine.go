// Package present drives swapchain setup, presentation, resize and
// recovery as an explicit state machine stepped once per frame.
//
//	        ok                      ok
//	Setup -----> Present <--------------- Resize
//	  |   \        |  ^  resize requested    ^
//	  |    \       |  +----------------------+
//	  |     \      | present failed
//	  | fail \     v
//	  +-----> Error ----> Setup (next frame)
//
// PresentLegacy replaces Present when the device only supports the
// downlevel present entry point.
package present

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/gpuframe/internal/fatal"
)

// State is a presentation state.
type State uint8

// Presentation states.
const (
	Setup State = iota
	Present
	Error
	Resize
	PresentLegacy
)

func (s State) String() string {
	switch s {
	case Setup:
		return "setup"
	case Present:
		return "present"
	case Error:
		return "error"
	case Resize:
		return "resize"
	case PresentLegacy:
		return "present-legacy"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Presenting reports whether frames are shown in this state.
func (s State) Presenting() bool { return s == Present || s == PresentLegacy }

// Host performs the actions the machine decides on.
type Host interface {
	// CreateSwapchain creates the swapchain at the current window size.
	CreateSwapchain() error

	// ReleaseSwapchain releases the back buffers and the swapchain.
	ReleaseSwapchain()

	// RebuildTargets recreates the frame render target and depth buffer.
	RebuildTargets(width, height int) error

	// ResizeSwapchain resizes the back buffers of the existing swapchain.
	ResizeSwapchain(width, height int) error

	Present() error
	PresentLegacy() error

	// LegacyOnly reports whether only the downlevel present is available.
	LegacyOnly() bool
}

// Stats counts transitions.
type Stats struct {
	Setups       int
	SetupFails   int
	Presents     int
	PresentFails int
	Resizes      int
	ResizeFails  int
	Errors       int
}

// Machine is the presentation state machine.
type Machine struct {
	host    Host
	state   State
	pending bool
	width   int
	height  int
	lastErr error
	stats   Stats
	log     *slog.Logger

	// OnTransition, if set, is called for every state change.
	OnTransition func(from, to State, err error)
}

// New returns a machine in the Setup state.
func New(host Host, log *slog.Logger) *Machine {
	return &Machine{host: host, state: Setup, log: fatal.Logger(log)}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Err returns the error that caused the last entry into Error.
func (m *Machine) Err() error { return m.lastErr }

// Stats returns a snapshot of the counters.
func (m *Machine) Stats() Stats { return m.stats }

// RequestResize asks for a resize to width x height. The resize happens
// after the next present. Only the latest request is kept.
func (m *Machine) RequestResize(width, height int) {
	m.pending = true
	m.width, m.height = width, height
}

// ResizePending reports whether a resize request is outstanding.
func (m *Machine) ResizePending() bool { return m.pending }

// Step performs the action of the current state and moves to the next.
func (m *Machine) Step() State {
	switch m.state {
	case Setup:
		m.stats.Setups++
		if err := m.host.CreateSwapchain(); err != nil {
			m.stats.SetupFails++
			m.fail(err)
			break
		}
		// A fresh swapchain is created at the current size.
		m.pending = false
		if m.host.LegacyOnly() {
			m.enter(PresentLegacy, nil)
		} else {
			m.enter(Present, nil)
		}

	case Present, PresentLegacy:
		var err error
		if m.state == Present {
			err = m.host.Present()
		} else {
			err = m.host.PresentLegacy()
		}
		if err != nil {
			m.stats.PresentFails++
			m.fail(err)
			break
		}
		m.stats.Presents++
		if m.pending {
			m.enter(Resize, nil)
		}

	case Resize:
		m.stats.Resizes++
		m.pending = false
		if err := m.host.RebuildTargets(m.width, m.height); err != nil {
			m.stats.ResizeFails++
			m.fail(err)
			break
		}
		if err := m.host.ResizeSwapchain(m.width, m.height); err != nil {
			m.stats.ResizeFails++
			m.fail(err)
			break
		}
		if m.host.LegacyOnly() {
			m.enter(PresentLegacy, nil)
		} else {
			m.enter(Present, nil)
		}

	case Error:
		m.stats.Errors++
		m.host.ReleaseSwapchain()
		m.enter(Setup, nil)
	}
	return m.state
}

func (m *Machine) fail(err error) {
	m.lastErr = err
	m.log.Warn("present: entering error state", "state", m.state.String(), "err", err)
	m.enter(Error, err)
}

func (m *Machine) enter(to State, err error) {
	from := m.state
	m.state = to
	m.log.Debug("present: transition", "from", from.String(), "state", to.String())
	if m.OnTransition != nil {
		m.OnTransition(from, to, err)
	}
}
