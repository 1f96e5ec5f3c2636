// Package analytics aggregates leads, viewings and offers into the series and
// breakdowns shown on the back-office dashboard. Everything here works on
// rows that were already fetched; callers own the data access.
package analytics

import (
	"time"

	"github.com/stwalsh4118/estatedesk/internal/models"
)

// DateKeyLayout is the bucket key format (ISO calendar date).
const DateKeyLayout = "2006-01-02"

// timestampLayouts are tried in order when deriving a record's calendar date.
// Fractional seconds are accepted by all of them.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z07",
	"2006-01-02 15:04:05",
	DateKeyLayout,
}

// Offer statuses counted as won.
const (
	offerStatusAccepted = "accepted"
	offerStatusWon      = "won"
)

// WindowStart returns the first day of a rangeDays window ending before now:
// midnight of now's calendar date minus rangeDays days, in now's location.
func WindowStart(now time.Time, rangeDays int) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d-rangeDays, 0, 0, 0, 0, now.Location())
}

// WindowEnd returns midnight of now's calendar date, the exclusive upper
// bound of every dashboard window.
func WindowEnd(now time.Time) time.Time {
	return WindowStart(now, 0)
}

// BuildPipelineSeries buckets records by calendar day. It always returns
// exactly rangeDays buckets, oldest first, starting at start's calendar date.
// Records whose timestamp cannot be parsed or falls outside the window are
// skipped. Offers with status "accepted" or "won" also count towards Won.
func BuildPipelineSeries(start time.Time, rangeDays int, leads, viewings, offers []models.ActivityRecord) []models.TimeSeriesBucket {
	if rangeDays <= 0 {
		return []models.TimeSeriesBucket{}
	}

	buckets := make([]models.TimeSeriesBucket, rangeDays)
	index := make(map[string]int, rangeDays)

	// Iterate in UTC so DST transitions cannot skip or repeat a day
	y, m, d := start.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	for i := 0; i < rangeDays; i++ {
		key := day.AddDate(0, 0, i).Format(DateKeyLayout)
		buckets[i].Date = key
		index[key] = i
	}

	for _, r := range leads {
		if i, ok := lookup(index, r.CreatedAt); ok {
			buckets[i].Leads++
		}
	}
	for _, r := range viewings {
		if i, ok := lookup(index, r.CreatedAt); ok {
			buckets[i].Viewings++
		}
	}
	for _, r := range offers {
		i, ok := lookup(index, r.CreatedAt)
		if !ok {
			continue
		}
		buckets[i].Offers++
		if r.Status == offerStatusAccepted || r.Status == offerStatusWon {
			buckets[i].Won++
		}
	}

	return buckets
}

func lookup(index map[string]int, createdAt string) (int, bool) {
	key, ok := DateKey(createdAt)
	if !ok {
		return 0, false
	}
	i, ok := index[key]
	return i, ok
}

// DateKey returns the YYYY-MM-DD portion of an ISO-8601 timestamp, taken in
// the timestamp's own offset. ok is false when the value cannot be parsed.
func DateKey(createdAt string) (string, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, createdAt); err == nil {
			return t.Format(DateKeyLayout), true
		}
	}
	return "", false
}

// FormatTimestamp renders t the way the aggregator expects record timestamps.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
