package agent

import (
	"fmt"
	"net"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	gopsnet "github.com/shirou/gopsutil/v4/net"
)

// Sample is one instantaneous reading of the host counters.
type Sample struct {
	CPUPercent    float64
	MemoryPercent float64
	DiskPercent   float64
	BytesSent     uint64
	BytesRecv     uint64
	LoadAvg       [3]float64
	UptimeSec     uint64
}

// Sampler yields instantaneous host readings.
type Sampler interface {
	Sample() (*Sample, error)
}

// SystemSampler reads live host counters through gopsutil.
type SystemSampler struct{}

// Sample reads the current host counters. Individual subsystem failures
// (a missing mount, an unsupported platform call) zero that field rather
// than failing the whole reading.
func (SystemSampler) Sample() (*Sample, error) {
	s := &Sample{}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		s.CPUPercent = percents[0]
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		s.MemoryPercent = vm.UsedPercent
	}

	if du, err := disk.Usage("/"); err == nil {
		s.DiskPercent = du.UsedPercent
	}

	counters, err := gopsnet.IOCounters(false)
	if err != nil {
		return nil, fmt.Errorf("failed to read network counters: %w", err)
	}
	if len(counters) > 0 {
		s.BytesSent = counters[0].BytesSent
		s.BytesRecv = counters[0].BytesRecv
	}

	if avg, err := load.Avg(); err == nil {
		s.LoadAvg = [3]float64{avg.Load1, avg.Load5, avg.Load15}
	}

	if uptime, err := host.Uptime(); err == nil {
		s.UptimeSec = uptime
	}

	return s, nil
}

// CollectMeta builds the static meta block sent with every report.
func CollectMeta(flag string) map[string]any {
	meta := map[string]any{
		"os":        runtime.GOOS,
		"os_short":  runtime.GOOS,
		"os_full":   runtime.GOOS,
		"arch":      runtime.GOARCH,
		"cpu_model": "Unknown CPU",
		"cpu_cores": 0,
		"flag":      flag,
	}

	if info, err := host.Info(); err == nil {
		meta["os"] = info.OS
		meta["os_short"] = fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion)
		meta["os_full"] = fmt.Sprintf("%s %s (%s)", info.Platform, info.PlatformVersion, info.KernelVersion)
	}

	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		meta["cpu_model"] = infos[0].ModelName
	}

	if cores, err := cpu.Counts(false); err == nil && cores > 0 {
		meta["cpu_cores"] = cores
	} else if logical, err := cpu.Counts(true); err == nil {
		meta["cpu_cores"] = logical
	}

	return meta
}

// Hostname returns the local hostname, best effort.
func Hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return ""
	}
	return name
}

// DetectIP returns the host's outbound source address, best effort. The UDP
// dial never sends a packet; it only asks the kernel which interface would
// route to a public address.
func DetectIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err == nil {
		defer conn.Close()
		if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
			return addr.IP.String()
		}
	}

	addrs, err := net.LookupIP(Hostname())
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		if v4 := addr.To4(); v4 != nil {
			return v4.String()
		}
	}
	return ""
}
