// Package report decides what goes into an inspection report and in which order.
// Nothing here touches the network or the PDF library.
package report

import (
	"strings"

	"github.com/ternarybob/roomathon/internal/models"
)

var skipKeywords = []string{"skipped", "not inspected", "no data"}

// ComparisonText is the room's comparison result, or the joined event
// results when the summary field is empty
func ComparisonText(room models.RoomComparison) string {
	if text := strings.TrimSpace(room.ComparisonResult); text != "" {
		return text
	}
	parts := make([]string, 0, len(room.Events))
	for _, e := range room.Events {
		if r := strings.TrimSpace(e.Result); r != "" {
			parts = append(parts, r)
		}
	}
	return strings.Join(parts, "\n")
}

// IsSkipped reports whether the room's text says it was never actually inspected
func IsSkipped(room models.RoomComparison) bool {
	text := strings.ToLower(ComparisonText(room))
	for _, kw := range skipKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Classify assigns every room to exactly one bucket. summarized holds
// lower-cased names already covered by the narrative.
// Bucket order follows input order.
func Classify(rooms []models.RoomComparison, summarized map[string]bool) models.RoomBuckets {
	var buckets models.RoomBuckets

	for _, room := range rooms {
		name := strings.ToLower(strings.TrimSpace(room.RoomName))

		switch {
		case IsSkipped(room):
			buckets.Skipped = append(buckets.Skipped, room)
		case summarized[name]:
			buckets.Summarized = append(buckets.Summarized, room)
		case len(room.ImageURLs) > 0:
			buckets.ImageBearing = append(buckets.ImageBearing, room)
		default:
			buckets.Excluded = append(buckets.Excluded, room)
		}
	}

	return buckets
}
