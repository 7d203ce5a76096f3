package recording

import "fmt"

// FormatFileSize renders a byte count for humans, one decimal place.
func FormatFileSize(bytes int64) string {
	const k = 1024

	switch {
	case bytes <= 0:
		return "0 B"
	case bytes < k:
		return fmt.Sprintf("%d B", bytes)
	case bytes < k*k:
		return fmt.Sprintf("%.1f KB", float64(bytes)/k)
	case bytes < k*k*k:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(k*k))
	default:
		return fmt.Sprintf("%.1f GB", float64(bytes)/(k*k*k))
	}
}

// FormatDuration renders a millisecond duration as m:ss, or h:mm:ss for
// recordings over an hour. Zero (duration unknown) renders as 0:00.
func FormatDuration(millis int64) string {
	totalSeconds := millis / 1000
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}

	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
