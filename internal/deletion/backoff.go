package deletion

import "time"

// NextDelay returns how long to wait before the given attempt. Search-engine
// indexing typically takes minutes, so the schedule is front-loaded to that
// window: 2m, 3m, 5m, 10m, then doubling from 15m up to an 8h cap.
func NextDelay(attempt int) time.Duration {
	switch {
	case attempt <= 1:
		return 2 * time.Minute
	case attempt == 2:
		return 3 * time.Minute
	case attempt == 3:
		return 5 * time.Minute
	case attempt == 4:
		return 10 * time.Minute
	}
	d := 15 * time.Minute << (attempt - 5)
	if d > 8*time.Hour || d <= 0 {
		return 8 * time.Hour
	}
	return d
}
