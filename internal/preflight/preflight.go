package preflight

import (
	"fmt"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"

	"vpsdeploy/internal/logger"
)

const (
	minAvailableMemMB = 512
	minFreeDiskGB     = 2
)

var flog = logger.PackageLogger("🔍 PREFLIGHT")

// Report holds the host facts gathered before provisioning mutates
// anything.
type Report struct {
	TotalMemMB     uint64
	AvailableMemMB uint64
	FreeDiskGB     float64
}

// Check gathers memory and disk facts and warns on tight hosts. Low
// resources are a warning, not a failure: package managers surface
// their own errors when space actually runs out.
func Check() (*Report, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to read memory stats: %w", err)
	}
	du, err := disk.Usage("/")
	if err != nil {
		return nil, fmt.Errorf("failed to read disk stats: %w", err)
	}

	r := &Report{
		TotalMemMB:     vm.Total / 1024 / 1024,
		AvailableMemMB: vm.Available / 1024 / 1024,
		FreeDiskGB:     float64(du.Free) / 1024 / 1024 / 1024,
	}

	flog.Info("Memory: %d MB available of %d MB", r.AvailableMemMB, r.TotalMemMB)
	flog.Info("Disk: %.1f GB free on /", r.FreeDiskGB)

	if r.AvailableMemMB < minAvailableMemMB {
		flog.Warn("Less than %d MB memory available; builds may be slow or fail", minAvailableMemMB)
	}
	if r.FreeDiskGB < minFreeDiskGB {
		flog.Warn("Less than %d GB disk free; package installs may fail", minFreeDiskGB)
	}
	return r, nil
}
