package narrative

import (
	"regexp"
	"strings"

	"github.com/ternarybob/roomathon/internal/models"
)

// Section titles the summary prompt asks the model to produce
const (
	TitleExecutiveSummary = "EXECUTIVE SUMMARY"
	TitleRoomFindings     = "ROOM-BY-ROOM FINDINGS"
	TitleFinalNotes       = "FINAL NOTES"
)

var (
	// 4+ uppercase letters/spaces (hyphen, slash and ampersand allowed) then a colon
	headingLine = regexp.MustCompile(`^([A-Z][A-Z \-/&]{3,}):\s*(.*)$`)

	// optional bullet, then an all-caps phrase, then a colon
	roomLine = regexp.MustCompile(`^(?:[-*•]|\d+[.)])?\s*([A-Z][A-Z0-9 '&/\-()]*?)\s*:`)

	knownTitles = map[string]bool{
		TitleExecutiveSummary: true,
		TitleRoomFindings:     true,
		TitleFinalNotes:       true,
	}
)

// Narrative is the split form of a cleaned summary
type Narrative struct {
	Sections []models.NarrativeSection

	// SummarizedRooms holds lower-cased room names already narrated
	// in the room-by-room section
	SummarizedRooms map[string]bool
}

// Titles returns section titles in order, skipping the untitled preamble
func (n Narrative) Titles() []string {
	titles := make([]string, 0, len(n.Sections))
	for _, s := range n.Sections {
		if s.Title != "" {
			titles = append(titles, s.Title)
		}
	}
	return titles
}

// Split partitions cleaned narrative text into titled sections. Every
// heading line starts a new section, with one exception: inside
// ROOM-BY-ROOM FINDINGS a bare "KITCHEN:" line naming one of roomNames
// (case-insensitive) is a room line.
func Split(text string, roomNames []string) Narrative {
	result := Narrative{SummarizedRooms: make(map[string]bool)}

	rooms := make(map[string]bool, len(roomNames))
	for _, name := range roomNames {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			rooms[name] = true
		}
	}

	var (
		title string
		body  []string
	)
	flush := func() {
		b := strings.TrimSpace(strings.Join(body, "\n"))
		if title != "" || b != "" {
			result.Sections = append(result.Sections, models.NarrativeSection{Title: title, Body: b})
		}
		body = nil
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)

		if m := headingLine.FindStringSubmatch(line); m != nil {
			candidate := strings.ToUpper(strings.TrimSpace(m[1]))
			bareRoom := title == TitleRoomFindings && !knownTitles[candidate] && rooms[strings.ToLower(candidate)]
			if !bareRoom {
				flush()
				title = candidate
				if rest := strings.TrimSpace(m[2]); rest != "" {
					body = append(body, rest)
				}
				continue
			}
		}

		if title == TitleRoomFindings {
			if name := roomName(line); name != "" {
				result.SummarizedRooms[name] = true
			}
		}
		body = append(body, line)
	}
	flush()

	return result
}

func roomName(line string) string {
	m := roomLine.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	name := strings.TrimSpace(m[1])
	if !strings.ContainsFunc(name, func(r rune) bool { return r >= 'A' && r <= 'Z' }) {
		return ""
	}
	return strings.ToLower(name)
}
