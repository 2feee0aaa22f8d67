package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cheggaaa/pb"
)

// Reporter wraps a terminal progress bar for a fixed number of units
// (objects, episodes). A disabled reporter is a no-op, so call sites don't
// need to branch on whether progress output was requested.
type Reporter struct {
	bar     *pb.ProgressBar
	enabled bool
}

// NewReporter creates a reporter for total units with a display prefix.
// Output goes to out (default os.Stderr, keeping stdout clean for data).
func NewReporter(total int, prefix string, out io.Writer, enabled bool) *Reporter {
	if !enabled {
		return &Reporter{}
	}
	if out == nil {
		out = os.Stderr
	}

	bar := pb.New(total).Prefix(prefix)
	bar.Output = out
	bar.ShowSpeed = false
	bar.ShowTimeLeft = true
	bar.SetRefreshRate(200 * time.Millisecond)

	return &Reporter{bar: bar, enabled: true}
}

// Start begins rendering the bar.
func (r *Reporter) Start() {
	if r.enabled {
		r.bar.Start()
	}
}

// Increment marks one unit complete.
func (r *Reporter) Increment() {
	if r.enabled {
		r.bar.Increment()
	}
}

// Finish completes and stops the bar.
func (r *Reporter) Finish() {
	if r.enabled {
		r.bar.Finish()
	}
}

// FormatBytes formats bytes as a human-readable string.
func FormatBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case b >= TB:
		return fmt.Sprintf("%.2f TB", float64(b)/float64(TB))
	case b >= GB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// ParseBytes parses a human-readable byte string (e.g., "256MB").
func ParseBytes(s string) (int64, error) {
	var multiplier int64 = 1
	s = trimSuffix(s, " ")

	switch {
	case hasSuffix(s, "TB"):
		multiplier = 1024 * 1024 * 1024 * 1024
		s = s[:len(s)-2]
	case hasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		s = s[:len(s)-2]
	case hasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		s = s[:len(s)-2]
	case hasSuffix(s, "KB"):
		multiplier = 1024
		s = s[:len(s)-2]
	case hasSuffix(s, "B"):
		s = s[:len(s)-1]
	}

	var value float64
	_, err := fmt.Sscanf(s, "%f", &value)
	if err != nil {
		return 0, fmt.Errorf("invalid byte string: %s", s)
	}

	return int64(value * float64(multiplier)), nil
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

func trimSuffix(s, suffix string) string {
	for hasSuffix(s, suffix) {
		s = s[:len(s)-len(suffix)]
	}
	return s
}
