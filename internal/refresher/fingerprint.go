package refresher

import (
	"strconv"

	"github.com/cespare/xxhash/v2"

	"topomap/internal/topology"
)

// Fingerprint hashes devices in order. Uptime is left out: it advances on every
// poll and would otherwise republish an unchanged topology. A nil neighbor or port
// hashes differently from an empty one.
func Fingerprint(devices []topology.DeviceRecord) uint64 {
	d := xxhash.New()
	buf := make([]byte, 0, 64)

	field := func(s string) {
		buf = buf[:0]
		buf = strconv.AppendInt(buf, int64(len(s)), 10)
		buf = append(buf, ':')
		_, _ = d.Write(buf)
		_, _ = d.WriteString(s)
	}
	optional := func(s *string) {
		if s == nil {
			_, _ = d.WriteString("-")
			return
		}
		_, _ = d.WriteString("+")
		field(*s)
	}
	number := func(n int64) {
		buf = strconv.AppendInt(buf[:0], n, 10)
		buf = append(buf, ';')
		_, _ = d.Write(buf)
	}

	number(int64(len(devices)))
	for _, dev := range devices {
		number(dev.IdxDevice)
		field(dev.SysName)
		field(dev.Hostname)
		number(int64(len(dev.Interfaces)))
		for _, iface := range dev.Interfaces {
			optional(iface.NeighborDeviceID)
			optional(iface.NeighborPort)
		}
	}
	return d.Sum64()
}
