package summary

import (
	"fmt"
	"strings"

	"github.com/ternarybob/roomathon/internal/models"
)

const systemPrompt = `You are an assistant generating a professional home inspection summary report.
Write plain text. Do not use markdown tables.`

const instructions = `Summarise the inspection below. Include key differences in each room using the descriptions provided.

Structure the report in exactly three sections, each starting with its heading on its own line:

EXECUTIVE SUMMARY:
A short overview of the property's condition and the most important findings.

ROOM-BY-ROOM FINDINGS:
One entry per room. Start each entry with a bullet and the room name in UPPERCASE followed by a colon, e.g. "- KITCHEN:".
List the findings as short bullet points under the room.
Mark rooms explicitly as "skipped" when they were not inspected, "unchanged" when nothing differs,
and "image analyzed" when the finding comes from photographs.

FINAL NOTES:
Recommendations and anything the owner should follow up.`

// BuildPrompt renders the user prompt for one inspection
func BuildPrompt(bundle *models.InspectionBundle) string {
	var b strings.Builder

	b.WriteString(instructions)
	b.WriteString("\n\n---\n\n")

	if name := strings.TrimSpace(bundle.Property.Name); name != "" {
		fmt.Fprintf(&b, "Property: %s\n", name)
	}
	if addr := strings.TrimSpace(bundle.Property.Address); addr != "" {
		fmt.Fprintf(&b, "Address: %s\n", addr)
	}
	if owner := strings.TrimSpace(bundle.Inspection.OwnerName); owner != "" {
		fmt.Fprintf(&b, "Client: %s\n", owner)
	}
	fmt.Fprintf(&b, "Rooms inspected: %d\n", len(bundle.Rooms))

	for _, room := range bundle.Rooms {
		fmt.Fprintf(&b, "\nRoom: %s\n\n%s\n", room.RoomName, roomText(room))
	}

	return b.String()
}

// roomText joins the room's event results in order, falling back to the
// comparison result when no events were recorded
func roomText(room models.RoomComparison) string {
	parts := make([]string, 0, len(room.Events))
	for _, e := range room.Events {
		if r := strings.TrimSpace(e.Result); r != "" {
			parts = append(parts, r)
		}
	}
	if len(parts) == 0 {
		if r := strings.TrimSpace(room.ComparisonResult); r != "" {
			return r
		}
		return "No comparison available."
	}
	return strings.Join(parts, "\n")
}
