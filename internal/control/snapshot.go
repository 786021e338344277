package control

import (
	"strconv"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// GpuSnapshot is the last published state of one controlled GPU.
// The loop writes it after every update, the REST api and the prometheus
// collectors read it concurrently.
type GpuSnapshot struct {
	Index          int      `json:"index"`
	Temperature    int      `json:"temperature"`
	AvgTemperature float64  `json:"avgTemperature"`
	FanSpeed       int      `json:"fanSpeed"`
	Controller     Snapshot `json:"controller"`
}

var (
	SnapshotMap = cmap.New[GpuSnapshot]()
)

// SnapshotKey maps a GPU index to its key in the SnapshotMap.
func SnapshotKey(index int) string {
	return strconv.Itoa(index)
}
