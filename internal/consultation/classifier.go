package consultation

import (
	"sort"
	"time"
)

// GraceWindow is how long after its scheduled instant a consultation still
// counts as upcoming while nobody has started it.
const GraceWindow = 30 * time.Minute

// Classify partitions a snapshot of consultations at one instant. It never
// mutates its input and is idempotent: the same list and the same now always
// produce the same buckets. Callers must rerun it from a fresh snapshot
// whenever now advances or a status changes, never patch a previous result.
func Classify(consultations []Consultation, now time.Time) Buckets {
	var b Buckets
	for _, c := range consultations {
		switch {
		case c.Status == StatusCancelled:
			// Cancellation wins over everything, including bad timestamps.
			b.Cancelled = append(b.Cancelled, c)
		case c.ScheduledAt.IsZero():
			b.Malformed = append(b.Malformed, c)
		case c.Status == StatusCompleted:
			b.Completed = append(b.Completed, c)
		case c.Status == StatusInProgress:
			// A live call stays visible as upcoming even past the grace
			// window; only a status change moves it out.
			b.Upcoming = append(b.Upcoming, c)
		case now.After(c.ScheduledAt.Add(GraceWindow)):
			b.PastMissed = append(b.PastMissed, c)
		default:
			b.Upcoming = append(b.Upcoming, c)
		}
	}
	return b
}

// History filters the snapshot down to the display list for the history tab:
// completed, missed, and cancelled consultations, most recent first. Records
// with equal timestamps keep their input order.
func History(consultations []Consultation, now time.Time) []Consultation {
	var out []Consultation
	for _, c := range consultations {
		switch c.Status {
		case StatusCancelled:
			out = append(out, c)
		case StatusCompleted:
			if !c.ScheduledAt.IsZero() {
				out = append(out, c)
			}
		case StatusScheduled:
			if !c.ScheduledAt.IsZero() && now.After(c.ScheduledAt.Add(GraceWindow)) {
				out = append(out, c)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScheduledAt.After(out[j].ScheduledAt)
	})
	return out
}
