package filter

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// QuietHours suppresses low-priority messages during a configured time-of-day
// window. The window is "HH-HH" in 24h form, start inclusive, end exclusive;
// start > end means the window wraps midnight.
type QuietHours struct {
	start       int
	end         int
	minPriority int
	enabled     bool
}

// ParseQuietHours parses the "HH-HH" spec. An empty spec disables quiet hours.
// Messages at or above minPriority always pass through the window.
func ParseQuietHours(spec string, minPriority int) (*QuietHours, error) {
	if spec == "" {
		return &QuietHours{}, nil
	}

	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("quiet hours %q: want \"HH-HH\"", spec)
	}

	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || start < 0 || start > 23 {
		return nil, fmt.Errorf("quiet hours start %q: want hour 0-23", parts[0])
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || end < 0 || end > 24 {
		return nil, fmt.Errorf("quiet hours end %q: want hour 0-24", parts[1])
	}

	return &QuietHours{start: start, end: end, minPriority: minPriority, enabled: true}, nil
}

// Suppressed reports whether a message with the given priority should be
// dropped at time t.
func (q *QuietHours) Suppressed(t time.Time, priority int) bool {
	if !q.enabled || priority >= q.minPriority {
		return false
	}

	hour := t.Hour()
	if q.start <= q.end {
		return hour >= q.start && hour < q.end
	}
	// overnight wrap, e.g. 22-6 covers 22:00-23:59 and 00:00-05:59
	return hour >= q.start || hour < q.end
}

// Enabled reports whether a quiet window is configured
func (q *QuietHours) Enabled() bool { return q.enabled }
