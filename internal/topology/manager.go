package topology

// Manager holds the snapshot of the last build so gestures can be undone
// without refetching devices.
type Manager struct {
	current Snapshot
}

// Rebuild replaces the held snapshot with one built from devices.
func (m *Manager) Rebuild(devices []DeviceRecord) Snapshot {
	m.current = Build(devices)
	return m.current
}

func (m *Manager) Current() Snapshot {
	return m.current
}

// Reset returns the held snapshot unchanged together with the Idle state.
func (m *Manager) Reset() (Snapshot, State) {
	return m.current, Idle()
}
