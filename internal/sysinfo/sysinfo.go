// Package sysinfo samples host resource usage for status reports.
package sysinfo

import (
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// diskWarnPercent is the fill level above which Stats flags the disk.
const diskWarnPercent = 90

// Stats is one resource usage sample.
type Stats struct {
	CPUPercent  float64
	MemPercent  float64
	DiskUsed    uint64
	DiskTotal   uint64
	DiskPercent float64
	DiskWarning bool
}

// Collect samples CPU, memory, and root disk usage. Partial failures
// zero the affected fields rather than aborting the sample.
func Collect() (*Stats, error) {
	s := &Stats{}

	if percents, err := cpu.Percent(500*time.Millisecond, false); err == nil && len(percents) > 0 {
		s.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.MemPercent = vm.UsedPercent
	}
	usage, err := disk.Usage("/")
	if err != nil {
		return s, fmt.Errorf("sysinfo: disk usage: %w", err)
	}
	s.DiskUsed = usage.Used
	s.DiskTotal = usage.Total
	s.DiskPercent = usage.UsedPercent
	s.DiskWarning = usage.UsedPercent > diskWarnPercent
	return s, nil
}

// FormatBytes renders a byte count in the largest sensible unit.
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
