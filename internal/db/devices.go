package db

import (
	"context"
	"fmt"

	"topomap/internal/sqlcgen"
	"topomap/internal/topology"
)

// DeviceQueries is the subset of sqlcgen.Queries the device source reads.
type DeviceQueries interface {
	ListTopologyDevices(ctx context.Context) ([]sqlcgen.TopologyDevice, error)
	ListTopologyInterfaces(ctx context.Context) ([]sqlcgen.TopologyInterface, error)
}

// DeviceSource loads DeviceRecords from the topology tables.
type DeviceSource struct {
	q DeviceQueries
}

func NewDeviceSource(q DeviceQueries) *DeviceSource {
	return &DeviceSource{q: q}
}

func (s *DeviceSource) Name() string { return "postgres" }

// ListDevices returns devices ordered by idx_device, each with its interfaces
// ordered by if_index.
func (s *DeviceSource) ListDevices(ctx context.Context) ([]topology.DeviceRecord, error) {
	devices, err := s.q.ListTopologyDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list topology devices: %w", err)
	}
	ifaces, err := s.q.ListTopologyInterfaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("list topology interfaces: %w", err)
	}

	byDevice := make(map[int64][]topology.InterfaceRecord, len(devices))
	for _, i := range ifaces {
		byDevice[i.IdxDevice] = append(byDevice[i.IdxDevice], topology.InterfaceRecord{
			NeighborDeviceID: i.NeighborDeviceID,
			NeighborPort:     i.NeighborPort,
		})
	}

	out := make([]topology.DeviceRecord, 0, len(devices))
	for _, d := range devices {
		rec := topology.DeviceRecord{
			IdxDevice:  d.IdxDevice,
			Interfaces: byDevice[d.IdxDevice],
		}
		if d.SysName != nil {
			rec.SysName = *d.SysName
		}
		if d.Hostname != nil {
			rec.Hostname = *d.Hostname
		}
		if d.SysUptime != nil {
			rec.UptimeHundredths = *d.SysUptime
		}
		out = append(out, rec)
	}
	return out, nil
}
