// Package format holds the small display formatters shared by the
// progress view, the plain-log summary and the end-of-run report.
package format

import (
	"fmt"
	"time"
)

var byteUnits = []string{"KB", "MB", "GB", "TB", "PB"}

// Bytes renders a byte count with a binary-scaled unit suffix.
func Bytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	value := float64(n)
	exp := -1
	for value >= unit && exp < len(byteUnits)-1 {
		value /= unit
		exp++
	}
	return fmt.Sprintf("%.2f %s", value, byteUnits[exp])
}

// Duration renders an elapsed wall-clock duration compactly, switching
// to h/m/s components once it exceeds a second.
func Duration(d time.Duration) string {
	if d < time.Second {
		return d.String()
	}
	total := int(d.Seconds())
	h, m, s := total/3600, (total/60)%60, total%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm%ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// EndpointsUp renders the healthy-of-total endpoint fraction.
func EndpointsUp(healthy, total int) string {
	return fmt.Sprintf("%d/%d", healthy, total)
}

// Percentage renders a 0..100 value with one decimal, dropping the
// decimal at the exact ends of the range.
func Percentage(value float64) string {
	if value <= 0 {
		return "0%"
	}
	if value >= 100.0 {
		return "100%"
	}
	return fmt.Sprintf("%.1f%%", value)
}

// Latency renders a millisecond latency, switching to seconds past 1s.
func Latency(ms int64) string {
	if ms >= 1000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000.0)
	}
	return fmt.Sprintf("%dms", ms)
}

// TimeUntil renders how far away a future deadline is, e.g. the moment
// a cooling endpoint becomes routable again.
func TimeUntil(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	remaining := time.Until(t)
	if remaining <= 0 {
		return "now"
	}
	return "in " + TimeDuration(remaining)
}

// TimeDuration renders a duration at whole-unit precision, picking the
// largest unit that fits.
func TimeDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%.0fm", d.Minutes())
	case d < 24*time.Hour:
		return fmt.Sprintf("%.0fh", d.Hours())
	default:
		return fmt.Sprintf("%.0fd", d.Hours()/24)
	}
}
