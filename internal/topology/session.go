package topology

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Observer receives build and gesture events. *metrics.Metrics satisfies it.
type Observer interface {
	ObserveGraphBuild(nodes, edges int, duration time.Duration)
	ObserveGesture(kind string, signal string)
}

// Session owns the graph and interaction state of one rendered view.
// Gestures are serialised: each completes before the next is applied.
type Session struct {
	mu         sync.Mutex
	log        zerolog.Logger
	obs        Observer
	mgr        Manager
	state      State
	attrs      Attributes
	search     string
	generation uint64
}

// View is a consistent copy of a session's state.
type View struct {
	Generation uint64     `json:"generation"`
	State      State      `json:"state"`
	Search     string     `json:"search"`
	Snapshot   Snapshot   `json:"snapshot"`
	Attributes Attributes `json:"attributes"`
}

// Outcome is the result of one gesture.
type Outcome struct {
	Generation uint64 `json:"generation"`
	State      State  `json:"state"`
	Delta      Delta  `json:"delta"`
}

func NewSession(log zerolog.Logger, obs Observer) *Session {
	s := &Session{log: log, obs: obs, state: Idle()}
	s.attrs = Baseline(s.mgr.Current())
	return s
}

// SetDevices rebuilds the graph from devices. The previous snapshot is discarded
// and the interaction state returns to Idle.
func (s *Session) SetDevices(devices []DeviceRecord) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	snap := s.mgr.Rebuild(devices)
	if s.obs != nil {
		s.obs.ObserveGraphBuild(snap.NodeCount(), snap.EdgeCount(), time.Since(start))
	}

	s.state = Idle()
	s.attrs = Baseline(snap)
	s.search = ""
	s.generation++

	s.log.Debug().
		Uint64("generation", s.generation).
		Int("nodes", snap.NodeCount()).
		Int("edges", snap.EdgeCount()).
		Msg("topology graph rebuilt")

	return s.viewLocked()
}

func (s *Session) Apply(g Gesture) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, delta := ApplyGesture(s.mgr.Current(), s.state, g)
	return s.commitLocked(g.Kind, next, delta)
}

// Reset restores the snapshot of the last build and clears search and hover state.
func (s *Session) Reset() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, _ := s.mgr.Reset()
	next, delta := Reset(snap)
	return s.commitLocked(GestureReset, next, delta)
}

// SetSearch records the search box text and returns the matching suggestions.
func (s *Session) SetSearch(text string, limit int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.search = text
	return Suggest(text, s.mgr.Current().nodes, limit)
}

func (s *Session) Suggestions(prefix string, limit int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Suggest(prefix, s.mgr.Current().nodes, limit)
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.viewLocked()
}

func (s *Session) commitLocked(kind GestureKind, next State, delta Delta) Outcome {
	signal := ""
	if delta.Signal != nil {
		signal = string(delta.Signal.Kind)
		s.log.Warn().
			Str("gesture", string(delta.Signal.Gesture)).
			Str("target", delta.Signal.Target).
			Str("signal", signal).
			Msg("gesture target not applicable")
	}
	if s.obs != nil {
		s.obs.ObserveGesture(string(kind), signal)
	}

	s.state = next
	s.attrs = s.attrs.Apply(delta)
	if delta.ClearSearch {
		s.search = ""
	}
	return Outcome{Generation: s.generation, State: next, Delta: delta}
}

func (s *Session) viewLocked() View {
	return View{
		Generation: s.generation,
		State:      s.state,
		Search:     s.search,
		Snapshot:   s.mgr.Current(),
		Attributes: s.attrs.clone(),
	}
}
