package sqlcgen

import "context"

const listTopologyDevices = `-- name: ListTopologyDevices :many
SELECT d.idx_device,
       d.sys_name,
       d.hostname,
       d.sys_uptime
FROM topology_devices d
WHERE d.enabled
ORDER BY d.idx_device ASC
`

func (q *Queries) ListTopologyDevices(ctx context.Context) ([]TopologyDevice, error) {
	rows, err := q.db.Query(ctx, listTopologyDevices)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TopologyDevice
	for rows.Next() {
		var i TopologyDevice
		if err := rows.Scan(&i.IdxDevice, &i.SysName, &i.Hostname, &i.SysUptime); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listTopologyInterfaces = `-- name: ListTopologyInterfaces :many
SELECT i.idx_device,
       i.if_index,
       i.neighbor_device_id,
       i.neighbor_port
FROM topology_interfaces i
JOIN topology_devices d ON d.idx_device = i.idx_device
WHERE d.enabled
ORDER BY i.idx_device ASC, i.if_index ASC
`

func (q *Queries) ListTopologyInterfaces(ctx context.Context) ([]TopologyInterface, error) {
	rows, err := q.db.Query(ctx, listTopologyInterfaces)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TopologyInterface
	for rows.Next() {
		var i TopologyInterface
		if err := rows.Scan(&i.IdxDevice, &i.IfIndex, &i.NeighborDeviceID, &i.NeighborPort); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
