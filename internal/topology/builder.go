package topology

import (
	"fmt"
	"strings"
)

const inferredTooltip = "Not in current zone"

// Build converts a device list into a graph snapshot.
//
// Resolution runs in two full passes so a neighbor that is also a monitored device
// always ends up monitored, whatever order the devices arrive in. Edges are not
// deduplicated: two interfaces reporting the same neighbor yield two edges.
func Build(devices []DeviceRecord) Snapshot {
	devices = NormalizeDevices(devices)

	// Pass 1: every monitored id, first occurrence wins for the node's attributes.
	known := make(map[string]struct{}, len(devices))
	var monitored []DeviceRecord
	for _, d := range devices {
		if _, ok := known[d.SysName]; ok {
			continue
		}
		known[d.SysName] = struct{}{}
		monitored = append(monitored, d)
	}

	// Pass 2: edges plus the neighbors not seen in pass 1.
	pending := make(map[string]struct{})
	var pendingOrder []string
	var edges []GraphEdge
	for _, d := range devices {
		for _, iface := range d.Interfaces {
			neighbor, _ := neighborOf(iface)
			if _, ok := known[neighbor]; !ok {
				if _, seen := pending[neighbor]; !seen {
					pending[neighbor] = struct{}{}
					pendingOrder = append(pendingOrder, neighbor)
				}
			}
			edges = append(edges, GraphEdge{
				ID:    edgeID(d.SysName, neighbor, len(edges)),
				From:  d.SysName,
				To:    neighbor,
				Label: portOf(iface),
			})
		}
	}

	// Pass 3: node list.
	nodes := make([]GraphNode, 0, len(monitored)+len(pendingOrder))
	for _, d := range monitored {
		nodes = append(nodes, GraphNode{
			ID:        d.SysName,
			Label:     d.SysName,
			Kind:      NodeKindMonitored,
			Tooltip:   monitoredTooltip(d),
			idxDevice: d.IdxDevice,
		})
	}
	for _, id := range pendingOrder {
		if _, ok := known[id]; ok {
			continue
		}
		nodes = append(nodes, GraphNode{
			ID:      id,
			Label:   id,
			Kind:    NodeKindInferred,
			Tooltip: inferredTooltip,
		})
	}

	return newSnapshot(nodes, edges)
}

func edgeID(from, to string, ordinal int) string {
	return fmt.Sprintf("%s→%s#%d", from, to, ordinal)
}

func monitoredTooltip(d DeviceRecord) string {
	hostname := d.Hostname
	if hostname == "" {
		hostname = "unknown"
	}
	lines := []string{
		d.SysName,
		"Hostname: " + hostname,
		"Uptime: " + formatUptime(d.UptimeHundredths),
	}
	return strings.Join(lines, "\n")
}

// formatUptime renders sysUpTime (hundredths of a second) as "Dd Hh Mm".
func formatUptime(hundredths int64) string {
	if hundredths <= 0 {
		return "0d 0h 0m"
	}
	minutes := hundredths / 100 / 60
	days := minutes / (24 * 60)
	hours := (minutes / 60) % 24
	return fmt.Sprintf("%dd %dh %dm", days, hours, minutes%60)
}
