package topology

import "strings"

// DeviceRecord is one monitored device as delivered by a device source.
type DeviceRecord struct {
	IdxDevice        int64             `json:"idxDevice" yaml:"idxDevice"`
	SysName          string            `json:"sysName" yaml:"sysName"`
	Hostname         string            `json:"hostname" yaml:"hostname"`
	UptimeHundredths int64             `json:"sysUptime" yaml:"sysUptime"`
	Interfaces       []InterfaceRecord `json:"interfaces" yaml:"interfaces"`
}

// InterfaceRecord carries the discovery-protocol neighbor fields of one interface.
type InterfaceRecord struct {
	NeighborDeviceID *string `json:"neighborDeviceId,omitempty" yaml:"neighborDeviceId,omitempty"`
	NeighborPort     *string `json:"neighborPort,omitempty" yaml:"neighborPort,omitempty"`
}

// NormalizeDevices returns a copy of devices holding only what the graph needs.
//
// Devices without a sysName are dropped, as are interfaces without a neighbor id.
// A missing neighbor port becomes the empty string.
func NormalizeDevices(devices []DeviceRecord) []DeviceRecord {
	out := make([]DeviceRecord, 0, len(devices))
	for _, d := range devices {
		sysName := strings.TrimSpace(d.SysName)
		if sysName == "" {
			continue
		}

		ifaces := make([]InterfaceRecord, 0, len(d.Interfaces))
		for _, iface := range d.Interfaces {
			neighbor, ok := neighborOf(iface)
			if !ok {
				continue
			}
			port := portOf(iface)
			ifaces = append(ifaces, InterfaceRecord{NeighborDeviceID: &neighbor, NeighborPort: &port})
		}

		out = append(out, DeviceRecord{
			IdxDevice:        d.IdxDevice,
			SysName:          sysName,
			Hostname:         strings.TrimSpace(d.Hostname),
			UptimeHundredths: d.UptimeHundredths,
			Interfaces:       ifaces,
		})
	}
	return out
}

func neighborOf(iface InterfaceRecord) (string, bool) {
	if iface.NeighborDeviceID == nil {
		return "", false
	}
	id := strings.TrimSpace(*iface.NeighborDeviceID)
	if id == "" {
		return "", false
	}
	return id, true
}

func portOf(iface InterfaceRecord) string {
	if iface.NeighborPort == nil {
		return ""
	}
	return strings.TrimSpace(*iface.NeighborPort)
}
