// Package nerdstats captures a point-in-time view of the Go runtime
// (heap, GC, goroutines, build metadata) for the end-of-run report.
package nerdstats

import (
	"runtime"
	"runtime/debug"
	"time"

	"github.com/thushan/blaze/pkg/format"
)

// NerdStats is one snapshot of runtime counters. Field groups mirror
// runtime.MemStats; see https://pkg.go.dev/runtime#MemStats.
type NerdStats struct {
	HeapAlloc    uint64
	HeapSys      uint64
	HeapInuse    uint64
	HeapReleased uint64
	StackInuse   uint64
	StackSys     uint64
	TotalAlloc   uint64
	Mallocs      uint64
	Frees        uint64

	NumGC         uint32
	LastGC        time.Time
	TotalGCTime   time.Duration
	GCCPUFraction float64

	NumGoroutines int
	NumCgoCall    int64

	NumCPU     int
	GOMAXPROCS int
	GoVersion  string
	Uptime     time.Duration

	BuildInfo *debug.BuildInfo
}

// Snapshot reads the runtime counters once. startTime anchors Uptime.
func Snapshot(startTime time.Time) *NerdStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := &NerdStats{
		HeapAlloc:    m.HeapAlloc,
		HeapSys:      m.HeapSys,
		HeapInuse:    m.HeapInuse,
		HeapReleased: m.HeapReleased,
		StackInuse:   m.StackInuse,
		StackSys:     m.StackSys,
		TotalAlloc:   m.TotalAlloc,
		Mallocs:      m.Mallocs,
		Frees:        m.Frees,

		NumGC:         m.NumGC,
		GCCPUFraction: m.GCCPUFraction,

		NumGoroutines: runtime.NumGoroutine(),
		NumCgoCall:    runtime.NumCgoCall(),

		NumCPU:     runtime.NumCPU(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
		GoVersion:  runtime.Version(),
		Uptime:     time.Since(startTime),
	}

	if m.LastGC > 0 {
		stats.LastGC = time.Unix(0, int64(m.LastGC))
		stats.TotalGCTime = time.Duration(m.PauseTotalNs)
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		stats.BuildInfo = info
	}

	return stats
}

// GetMemoryPressure gives a coarse LOW/MEDIUM/HIGH reading from heap
// occupancy and the malloc/free ratio.
func (ps *NerdStats) GetMemoryPressure() string {
	occupancy := float64(ps.HeapInuse) / float64(ps.HeapSys)
	allocRatio := float64(ps.Mallocs) / float64(ps.Frees+1)

	switch {
	case occupancy > 0.9 && allocRatio > 1.5:
		return "HIGH"
	case occupancy > 0.7 || allocRatio > 1.2:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// GetGoroutineHealthStatus grades the goroutine count. The thresholds
// assume a batch process whose steady state is workers + writers + a
// progress loop, so counts past a thousand mean something is leaking.
func (ps *NerdStats) GetGoroutineHealthStatus() string {
	switch {
	case ps.NumGoroutines > 1000:
		return "CONCERNING"
	case ps.NumGoroutines > 500:
		return "ELEVATED"
	case ps.NumGoroutines > 100:
		return "NORMAL"
	default:
		return "HEALTHY"
	}
}

// GetBuildInfoSummary extracts the build settings worth logging.
func (ps *NerdStats) GetBuildInfoSummary() map[string]string {
	summary := make(map[string]string)
	if ps.BuildInfo == nil {
		return summary
	}

	summary["path"] = ps.BuildInfo.Path
	summary["main_version"] = ps.BuildInfo.Main.Version
	for _, setting := range ps.BuildInfo.Settings {
		switch setting.Key {
		case "CGO_ENABLED", "GOARCH", "GOOS", "vcs.revision", "vcs.time":
			summary[setting.Key] = setting.Value
		}
	}
	return summary
}

// CalculateAverageGCPause reports the mean GC pause over the process
// lifetime, or N/A before the first cycle.
func CalculateAverageGCPause(stats *NerdStats) string {
	if stats.NumGC == 0 {
		return "N/A"
	}
	return format.Duration(stats.TotalGCTime / time.Duration(stats.NumGC))
}
