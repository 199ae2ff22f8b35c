package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"topomap/internal/sqlcgen"
	"topomap/internal/topology"
)

// DeviceWriter is the subset of sqlcgen.Queries used to seed the topology tables.
type DeviceWriter interface {
	UpsertTopologyDevice(ctx context.Context, arg sqlcgen.UpsertTopologyDeviceParams) (int64, error)
	UpsertTopologyInterface(ctx context.Context, arg sqlcgen.UpsertTopologyInterfaceParams) error
	DeleteTopologyInterfacesFrom(ctx context.Context, arg sqlcgen.DeleteTopologyInterfacesFromParams) (int64, error)
	DisableTopologyDevicesExcept(ctx context.Context, sysNames []string) (int64, error)
}

// ImportDevices makes the topology tables mirror devices. Devices are keyed by
// trimmed sysName; records sharing a sysName are merged, the first supplying
// hostname and uptime. Interfaces are numbered by position starting at 1, and
// rows beyond the last one are removed. Devices missing from the list are
// disabled. Returns the number of devices written.
func ImportDevices(ctx context.Context, w DeviceWriter, devices []topology.DeviceRecord) (int, error) {
	merged := mergeBySysName(devices)

	names := make([]string, 0, len(merged))
	for i, d := range merged {
		arg := sqlcgen.UpsertTopologyDeviceParams{SysName: d.SysName}
		if h := strings.TrimSpace(d.Hostname); h != "" {
			arg.Hostname = &h
		}
		if d.UptimeHundredths > 0 {
			up := d.UptimeHundredths
			arg.SysUptime = &up
		}

		idx, err := w.UpsertTopologyDevice(ctx, arg)
		if err != nil {
			return i, fmt.Errorf("upsert device %q: %w", d.SysName, err)
		}
		for n, iface := range d.Interfaces {
			if err := w.UpsertTopologyInterface(ctx, sqlcgen.UpsertTopologyInterfaceParams{
				IdxDevice:        idx,
				IfIndex:          int32(n + 1),
				NeighborDeviceID: iface.NeighborDeviceID,
				NeighborPort:     iface.NeighborPort,
			}); err != nil {
				return i, fmt.Errorf("upsert interface %d of %q: %w", n+1, d.SysName, err)
			}
		}
		if _, err := w.DeleteTopologyInterfacesFrom(ctx, sqlcgen.DeleteTopologyInterfacesFromParams{
			IdxDevice: idx,
			IfIndex:   int32(len(d.Interfaces)),
		}); err != nil {
			return i, fmt.Errorf("trim interfaces of %q: %w", d.SysName, err)
		}
		names = append(names, d.SysName)
	}

	if _, err := w.DisableTopologyDevicesExcept(ctx, names); err != nil {
		return len(merged), fmt.Errorf("disable removed devices: %w", err)
	}
	return len(merged), nil
}

func mergeBySysName(devices []topology.DeviceRecord) []topology.DeviceRecord {
	pos := make(map[string]int, len(devices))
	out := make([]topology.DeviceRecord, 0, len(devices))
	for _, d := range devices {
		name := strings.TrimSpace(d.SysName)
		if name == "" {
			continue
		}
		if i, ok := pos[name]; ok {
			out[i].Interfaces = append(out[i].Interfaces, d.Interfaces...)
			continue
		}
		d.SysName = name
		d.Interfaces = append([]topology.InterfaceRecord(nil), d.Interfaces...)
		pos[name] = len(out)
		out = append(out, d)
	}
	return out
}

// ImportDevices runs ImportDevices in a single transaction, so a failure leaves
// the tables as they were.
func (p *Pool) ImportDevices(ctx context.Context, devices []topology.DeviceRecord) (int, error) {
	var n int
	err := p.InTx(ctx, func(q *sqlcgen.Queries) error {
		var err error
		n, err = ImportDevices(ctx, q, devices)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// InTx runs fn with queries bound to a new transaction, committing when fn
// returns nil and rolling back otherwise.
func (p *Pool) InTx(ctx context.Context, fn func(q *sqlcgen.Queries) error) error {
	if p == nil || p.pool == nil {
		return errors.New("database is not configured")
	}
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(sqlcgen.New(p.pool).WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
