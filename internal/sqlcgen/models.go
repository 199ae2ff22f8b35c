package sqlcgen

type TopologyDevice struct {
	IdxDevice int64
	SysName   *string
	Hostname  *string
	SysUptime *int64
}

type TopologyInterface struct {
	IdxDevice        int64
	IfIndex          int32
	NeighborDeviceID *string
	NeighborPort     *string
}
