package viewer

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"topomap/internal/metrics"
	"topomap/internal/topology"
)

var ErrSessionNotFound = errors.New("viewer session not found")

type entry struct {
	session  *topology.Session
	lastSeen time.Time
}

// Registry holds one topology.Session per connected viewer, all built from the
// most recently published device list.
type Registry struct {
	log     zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	publishMu sync.Mutex

	mu       sync.RWMutex
	sessions map[string]*entry
	devices  []topology.DeviceRecord
	ready    bool
	latest   topology.Snapshot
}

func NewRegistry(log zerolog.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		log:      log,
		metrics:  m,
		now:      time.Now,
		sessions: map[string]*entry{},
		devices:  []topology.DeviceRecord{},
	}
}

// PublishDevices stores devices and rebuilds every open session from them.
// Each session returns to Idle.
func (r *Registry) PublishDevices(devices []topology.DeviceRecord) {
	r.publishMu.Lock()
	defer r.publishMu.Unlock()

	snap := topology.Build(devices)

	r.mu.Lock()
	r.devices = append([]topology.DeviceRecord(nil), devices...)
	r.latest = snap
	r.ready = true
	sessions := make([]*topology.Session, 0, len(r.sessions))
	for _, e := range r.sessions {
		sessions = append(sessions, e.session)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.SetDevices(devices)
	}
	r.log.Debug().Int("sessions", len(sessions)).Int("nodes", snap.NodeCount()).Msg("device list applied to viewer sessions")
}

// Ready reports whether a device list has been published.
func (r *Registry) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ready
}

// Latest returns the snapshot of the last published device list.
func (r *Registry) Latest() topology.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

// Create opens a session built from the latest device list.
func (r *Registry) Create() (string, topology.View) {
	id := uuid.NewString()
	s := topology.NewSession(r.log.With().Str("session_id", id).Logger(), r.metrics)

	r.mu.Lock()
	view := s.SetDevices(r.devices)
	r.sessions[id] = &entry{session: s, lastSeen: r.now()}
	n := len(r.sessions)
	r.mu.Unlock()

	r.metrics.SetViewerSessions(n)
	return id, view
}

// Get returns the session for id and marks it as seen.
func (r *Registry) Get(id string) (*topology.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrSessionNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.lastSeen = r.now()
	return e.session, nil
}

func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	r.metrics.SetViewerSessions(n)
	return nil
}

// Prune drops sessions not seen within maxIdle and returns their ids.
func (r *Registry) Prune(maxIdle time.Duration) []string {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	var pruned []string
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(r.sessions, id)
			pruned = append(pruned, id)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	sort.Strings(pruned)
	if len(pruned) > 0 {
		r.metrics.SetViewerSessions(n)
		r.log.Info().Int("pruned", len(pruned)).Int("remaining", n).Msg("idle viewer sessions pruned")
	}
	return pruned
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
