package snmp

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/gosnmp/gosnmp"
)

// Neighbor is one discovery-protocol adjacency reported by a device.
type Neighbor struct {
	LocalIfIndex     int
	RemoteDeviceName *string
	RemotePortName   *string
	Source           string // "lldp" | "cdp"
}

const (
	oidLLDPRemPortID   = "1.0.8802.1.1.2.1.4.1.1.7"
	oidLLDPRemPortDesc = "1.0.8802.1.1.2.1.4.1.1.8"
	oidLLDPRemSysName  = "1.0.8802.1.1.2.1.4.1.1.9"

	oidCDPCacheDeviceID   = "1.3.6.1.4.1.9.9.23.1.2.1.1.6"
	oidCDPCacheDevicePort = "1.3.6.1.4.1.9.9.23.1.2.1.1.7"
)

// neighborKey identifies a remote table row by (local port or ifIndex, remote index).
type neighborKey struct {
	Local  int
	Remote int
}

type neighborTable struct {
	source string
	rows   map[neighborKey]*Neighbor
}

func newNeighborTable(source string) *neighborTable {
	return &neighborTable{source: source, rows: map[neighborKey]*Neighbor{}}
}

func (t *neighborTable) ensure(k neighborKey) *Neighbor {
	if cur, ok := t.rows[k]; ok {
		return cur
	}
	n := &Neighbor{Source: t.source, LocalIfIndex: k.Local}
	t.rows[k] = n
	return n
}

// add routes one walked PDU into the table. LLDP rows are indexed by
// timeMark.localPort.remIndex and CDP rows by ifIndex.deviceIndex; both keep the
// two trailing components.
func (t *neighborTable) add(baseOID string, p gosnmp.SnmpPDU) {
	ints, ok := lastOIDInts(p.Name, 2)
	if !ok {
		return
	}
	k := neighborKey{Local: ints[0], Remote: ints[1]}
	s, ok := pduString(p)
	if !ok || s == nil {
		return
	}

	n := t.ensure(k)
	switch baseOID {
	case oidLLDPRemSysName, oidCDPCacheDeviceID:
		n.RemoteDeviceName = s
	case oidLLDPRemPortDesc, oidCDPCacheDevicePort:
		n.RemotePortName = s
	case oidLLDPRemPortID:
		if n.RemotePortName == nil {
			n.RemotePortName = s
		}
	}
}

// neighbors returns rows that name a remote device, ordered by local port.
func (t *neighborTable) neighbors() []Neighbor {
	keys := make([]neighborKey, 0, len(t.rows))
	for k, n := range t.rows {
		if n.RemoteDeviceName == nil {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Local != keys[j].Local {
			return keys[i].Local < keys[j].Local
		}
		return keys[i].Remote < keys[j].Remote
	})

	out := make([]Neighbor, 0, len(keys))
	for _, k := range keys {
		out = append(out, *t.rows[k])
	}
	return out
}

// WalkNeighbors walks the LLDP remote table and the CDP cache of target.
// LLDP neighbors come first; a missing MIB on the agent is not an error.
func (c *Client) WalkNeighbors(ctx context.Context, target Target) ([]Neighbor, error) {
	if c == nil {
		return nil, errors.New("snmp client is nil")
	}

	s, err := c.connect(ctx, target)
	if err != nil {
		return nil, err
	}
	defer s.Conn.Close()

	walk := func(t *neighborTable, baseOIDs ...string) {
		for _, oid := range baseOIDs {
			var pdus []gosnmp.SnmpPDU
			var err error
			if s.Version == gosnmp.Version1 {
				pdus, err = s.WalkAll(oid)
			} else {
				pdus, err = s.BulkWalkAll(oid)
			}
			if err != nil {
				continue
			}
			for _, p := range pdus {
				t.add(oid, p)
			}
		}
	}

	lldp := newNeighborTable("lldp")
	// PortDesc before PortID so the description wins.
	walk(lldp, oidLLDPRemSysName, oidLLDPRemPortDesc, oidLLDPRemPortID)

	cdp := newNeighborTable("cdp")
	walk(cdp, oidCDPCacheDeviceID, oidCDPCacheDevicePort)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append(lldp.neighbors(), cdp.neighbors()...), nil
}

// cleanCDPDeviceID strips the serial suffix some platforms append, e.g. "sw1(FOC1234)".
func cleanCDPDeviceID(id string) string {
	if i := strings.Index(id, "("); i > 0 {
		return strings.TrimSpace(id[:i])
	}
	return id
}
