// Package timeutil formats the durations and timestamps that appear in run
// summaries and run directory names.
package timeutil

import (
	"strconv"
	"strings"
	"time"

	"github.com/mensylisir/xmrecipe/common"
)

// RunIDLayout names batch run directories, e.g. 2024-03-09_14-05-00.
const RunIDLayout = "2006-01-02_15-04-05"

// RunID formats t as a run directory name in local time.
func RunID(t time.Time) string {
	return t.Local().Format(RunIDLayout)
}

// ShortDur shortens the string representation of a time.Duration from d.String().
func ShortDur(d time.Duration) string {
	s := d.String()
	if d == 0 {
		return "0s"
	}
	if strings.HasSuffix(s, "m0s") {
		s = s[:len(s)-2]
	}
	if strings.HasSuffix(s, "h0m") {
		s = s[:len(s)-2]
	}
	return s
}

// Millis returns d in whole milliseconds.
func Millis(d time.Duration) int64 {
	return d.Nanoseconds() / common.NanosPerMillisecond
}

// FormatMillis renders a millisecond count for summary tables: "850ms" below
// one second, "1.250s" below one minute, ShortDur above.
func FormatMillis(ms int64) string {
	if ms < 0 {
		return "-" + FormatMillis(-ms)
	}
	d := time.Duration(ms) * time.Millisecond
	switch {
	case ms < 1000:
		return strconv.FormatInt(ms, 10) + "ms"
	case d < time.Minute:
		return strconv.FormatFloat(d.Seconds(), 'f', 3, 64) + "s"
	default:
		return ShortDur(d.Round(time.Second))
	}
}

// Average returns total/count in milliseconds, or 0 for an empty set.
func Average(totalMs int64, count int) int64 {
	if count <= 0 {
		return 0
	}
	return totalMs / int64(count)
}
