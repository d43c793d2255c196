package utils

import "fmt"

// FormatMinutes formats whole minutes as a human readable duration,
// e.g. "45m" or "2h 05m".
func FormatMinutes(totalMinutes int64) string {
	if totalMinutes < 60 {
		return fmt.Sprintf("%dm", totalMinutes)
	}
	h := totalMinutes / 60
	m := totalMinutes % 60
	return fmt.Sprintf("%dh %02dm", h, m)
}
