package app

import (
	"syscall"

	"github.com/ciaryc/melvin/internal/mapimage"
)

// mapBufferBytes is the size of the memory-mapped map.bin plane
// (internal/mapimage), the single largest file melvind keeps under
// cfg.Data.Root. Disk usage is reported relative to it so an operator can
// tell at a glance whether the data root still has room for it.
const mapBufferBytes = int64(mapimage.Width) * int64(mapimage.Height) * 3

// DiskUsage reports usage for MELVIN's data root, along with whether free
// space still covers a fresh map.bin.
type DiskUsage struct {
	TotalBytes     uint64 `json:"total_bytes"`
	UsedBytes      uint64 `json:"used_bytes"`
	AvailableBytes uint64 `json:"available_bytes"`
	MapBufferFits  bool   `json:"map_buffer_fits"`
}

// diskUsage returns disk usage stats for the data root at path, or nil on
// error.
func diskUsage(path string) *DiskUsage {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return nil
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bfree * uint64(stat.Bsize)
	return &DiskUsage{
		TotalBytes:     total,
		UsedBytes:      total - free,
		AvailableBytes: free,
		MapBufferFits:  free >= uint64(mapBufferBytes),
	}
}
