package report

import (
	"strings"

	"github.com/ternarybob/roomathon/internal/models"
	"github.com/ternarybob/roomathon/internal/services/narrative"
)

// DefaultTitle is printed on page one when no title is configured
const DefaultTitle = "Inspection Report"

const (
	dateLayout    = "2 Jan 2006 15:04"
	noComparison  = "No comparison available."
	defaultClient = "Unknown client"
)

// ComposeInput is everything the layout depends on
type ComposeInput struct {
	Title      string
	Inspection models.Inspection
	Property   models.Property
	Sections   []models.NarrativeSection
	Buckets    models.RoomBuckets

	// RoomCount is the size of the fetched room collection, all buckets included
	RoomCount int
}

// Compose lays out the report:
// header, narrative sections, skipped block, one block per image-bearing room.
//
// Page breaks: one before the first room block when the inspection has rooms
// and such a block follows; one after the skipped block when an image room
// follows; one between image rooms. Never a trailing break.
func Compose(in ComposeInput) *models.ReportDocument {
	title := in.Title
	if title == "" {
		title = DefaultTitle
	}

	doc := &models.ReportDocument{Title: title}
	doc.Blocks = append(doc.Blocks, models.Block{
		Kind:   models.BlockHeader,
		Header: header(in),
	})

	for _, s := range in.Sections {
		section := s
		doc.Blocks = append(doc.Blocks, models.Block{
			Kind:    models.BlockSection,
			Section: &section,
		})
	}

	skipped := in.Buckets.Skipped
	images := in.Buckets.ImageBearing

	if in.RoomCount > 0 && (len(skipped) > 0 || len(images) > 0) {
		doc.Blocks = append(doc.Blocks, pageBreak())
	}

	if len(skipped) > 0 {
		lines := make([]models.SkippedRoom, 0, len(skipped))
		for _, room := range skipped {
			lines = append(lines, models.SkippedRoom{
				Name: room.RoomName,
				Text: narrative.Clean(ComparisonText(room)),
			})
		}
		doc.Blocks = append(doc.Blocks, models.Block{
			Kind:    models.BlockSkipped,
			Skipped: lines,
		})
		if len(images) > 0 {
			doc.Blocks = append(doc.Blocks, pageBreak())
		}
	}

	for i, room := range images {
		text := narrative.Clean(ComparisonText(room))
		if text == "" {
			text = noComparison
		}
		doc.Blocks = append(doc.Blocks, models.Block{
			Kind:      models.BlockRoom,
			RoomName:  room.RoomName,
			RoomText:  text,
			ImageURLs: append([]string(nil), room.ImageURLs...),
		})
		if i < len(images)-1 {
			doc.Blocks = append(doc.Blocks, pageBreak())
		}
	}

	return doc
}

func header(in ComposeInput) *models.ReportHeader {
	client := strings.TrimSpace(in.Inspection.OwnerName)
	if client == "" {
		client = defaultClient
	}

	date := ""
	if !in.Inspection.CreatedAt.IsZero() {
		date = in.Inspection.CreatedAt.Format(dateLayout)
	}

	return &models.ReportHeader{
		InspectionID:    in.Inspection.ID,
		ClientName:      client,
		ClientEmail:     in.Inspection.OwnerEmail,
		PropertyName:    in.Property.Name,
		PropertyAddress: in.Property.Address,
		Date:            date,
	}
}

func pageBreak() models.Block {
	return models.Block{Kind: models.BlockPageBreak}
}
