package consultation

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SlotDuration is the fixed length of a bookable consultation slot.
const SlotDuration = 30 * time.Minute

const clockLayout = "15:04"

// DefaultSlotCatalog is the degraded-mode slot list used when an expert's
// availability cannot be derived: the typical afternoon consultation hours.
var DefaultSlotCatalog = []string{
	"13:00 - 13:30",
	"13:30 - 14:00",
	"14:00 - 14:30",
	"14:30 - 15:00",
	"15:00 - 15:30",
	"15:30 - 16:00",
	"16:00 - 16:30",
	"16:30 - 17:00",
	"17:00 - 17:30",
	"17:30 - 18:00",
}

// DeriveTimeSlots walks each available range in 30-minute steps and emits
// "HH:mm - HH:mm" slot strings, deduplicated across ranges and sorted.
// A trailing partial slot is dropped. When there is no usable available
// range at all (nil input, empty input, availability fetch failed upstream,
// or every range unavailable/unparseable) the default catalog is returned
// instead; an available range that simply yields no whole slot returns an
// empty list.
func DeriveTimeSlots(ranges []AvailabilityRange) []string {
	seen := make(map[string]struct{})
	var slots []string
	usable := false

	for _, r := range ranges {
		if !r.IsAvailable {
			continue
		}
		start, err := time.Parse(clockLayout, r.StartTime)
		if err != nil {
			continue
		}
		end, err := time.Parse(clockLayout, r.EndTime)
		if err != nil {
			continue
		}
		usable = true

		for cur := start; !cur.Add(SlotDuration).After(end); cur = cur.Add(SlotDuration) {
			s := fmt.Sprintf("%s - %s", cur.Format(clockLayout), cur.Add(SlotDuration).Format(clockLayout))
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			slots = append(slots, s)
		}
	}

	if !usable {
		out := make([]string, len(DefaultSlotCatalog))
		copy(out, DefaultSlotCatalog)
		return out
	}

	// Zero-padded HH:mm sorts chronologically.
	sort.Strings(slots)
	return slots
}

// SlotStartUTC resolves the starting instant of a slot string on a given day.
func SlotStartUTC(slot string, day time.Time) (time.Time, error) {
	startPart, _, ok := strings.Cut(slot, " - ")
	if !ok {
		return time.Time{}, fmt.Errorf("malformed slot %q", slot)
	}
	t, err := time.Parse(clockLayout, startPart)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed slot %q: %w", slot, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}
