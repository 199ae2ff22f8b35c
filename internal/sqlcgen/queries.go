package sqlcgen

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX matches the minimal interface needed from pgxpool.Pool or pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const upsertTopologyDevice = `-- name: UpsertTopologyDevice :one
INSERT INTO topology_devices (sys_name, hostname, sys_uptime)
VALUES ($1, $2, $3)
ON CONFLICT (sys_name) DO UPDATE
SET hostname = EXCLUDED.hostname,
    sys_uptime = EXCLUDED.sys_uptime,
    enabled = true,
    updated_at = now()
RETURNING idx_device
`

type UpsertTopologyDeviceParams struct {
	SysName   string
	Hostname  *string
	SysUptime *int64
}

func (q *Queries) UpsertTopologyDevice(ctx context.Context, arg UpsertTopologyDeviceParams) (int64, error) {
	row := q.db.QueryRow(ctx, upsertTopologyDevice, arg.SysName, arg.Hostname, arg.SysUptime)
	var idx int64
	err := row.Scan(&idx)
	return idx, err
}

const upsertTopologyInterface = `-- name: UpsertTopologyInterface :exec
INSERT INTO topology_interfaces (idx_device, if_index, neighbor_device_id, neighbor_port)
VALUES ($1, $2, $3, $4)
ON CONFLICT (idx_device, if_index) DO UPDATE
SET neighbor_device_id = EXCLUDED.neighbor_device_id,
    neighbor_port = EXCLUDED.neighbor_port
`

type UpsertTopologyInterfaceParams struct {
	IdxDevice        int64
	IfIndex          int32
	NeighborDeviceID *string
	NeighborPort     *string
}

func (q *Queries) UpsertTopologyInterface(ctx context.Context, arg UpsertTopologyInterfaceParams) error {
	_, err := q.db.Exec(ctx, upsertTopologyInterface, arg.IdxDevice, arg.IfIndex, arg.NeighborDeviceID, arg.NeighborPort)
	return err
}

const deleteTopologyInterfacesFrom = `-- name: DeleteTopologyInterfacesFrom :execrows
DELETE FROM topology_interfaces
WHERE idx_device = $1
  AND if_index > $2
`

type DeleteTopologyInterfacesFromParams struct {
	IdxDevice int64
	IfIndex   int32
}

// DeleteTopologyInterfacesFrom removes the interfaces of a device numbered above IfIndex.
func (q *Queries) DeleteTopologyInterfacesFrom(ctx context.Context, arg DeleteTopologyInterfacesFromParams) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteTopologyInterfacesFrom, arg.IdxDevice, arg.IfIndex)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const disableTopologyDevicesExcept = `-- name: DisableTopologyDevicesExcept :execrows
UPDATE topology_devices
SET enabled = false,
    updated_at = now()
WHERE enabled
  AND (sys_name IS NULL OR NOT (sys_name = ANY($1::text[])))
`

func (q *Queries) DisableTopologyDevicesExcept(ctx context.Context, sysNames []string) (int64, error) {
	tag, err := q.db.Exec(ctx, disableTopologyDevicesExcept, sysNames)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
