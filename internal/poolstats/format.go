// Package poolstats renders slab.Stats as human-readable text for
// cmd/slabctl and the periodic log line cmd/pooladmin's cron job emits.
package poolstats

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/shmslab/shmslab/internal/slab"
)

// printer formats integers with thousands separators; pool sizes in
// bytes get large enough that the separators matter for readability.
var printer = message.NewPrinter(language.English)

// Format renders stats as a single line suitable for a log entry (here
// with a 4096-byte page size):
//
//	pages: 1,024 total, 812 free, 212 used (20.7%) | bytes_used: 848.0KiB | oom_count: 0
func Format(pageSize int, st slab.Stats) string {
	var pct float64
	if st.PagesTotal > 0 {
		pct = 100 * float64(st.PagesUsed) / float64(st.PagesTotal)
	}
	return printer.Sprintf(
		"pages: %d total, %d free, %d used (%.1f%%) | bytes_used: %s | oom_count: %d",
		st.PagesTotal, st.PagesFree, st.PagesUsed, pct,
		humanBytes(st.PagesUsed*pageSize), st.OOMCount,
	)
}

// Table renders a multi-line report, used by cmd/slabctl's "stats"
// subcommand where a single dense line is harder to read at a glance.
func Table(pageSize int, st slab.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pages total:  %s\n", printer.Sprintf("%d", st.PagesTotal))
	fmt.Fprintf(&b, "Pages free:   %s\n", printer.Sprintf("%d", st.PagesFree))
	fmt.Fprintf(&b, "Pages used:   %s (%s)\n", printer.Sprintf("%d", st.PagesUsed), humanBytes(st.PagesUsed*pageSize))
	fmt.Fprintf(&b, "OOM count:    %s\n", printer.Sprintf("%d", st.OOMCount))
	return b.String()
}

func humanBytes(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for v := int64(n) / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
