package models

// NarrativeSection is one titled part of the AI summary.
// Title is empty for text that precedes the first heading.
type NarrativeSection struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// RoomBuckets partitions an inspection's rooms for presentation.
// Every room lands in exactly one bucket.
type RoomBuckets struct {
	Skipped      []RoomComparison `json:"skipped"`
	Summarized   []RoomComparison `json:"summarized"`
	ImageBearing []RoomComparison `json:"image_bearing"`
	Excluded     []RoomComparison `json:"excluded"`
}

// BlockKind identifies a rendered element of a report document
type BlockKind string

const (
	BlockHeader    BlockKind = "header"
	BlockSection   BlockKind = "section"
	BlockSkipped   BlockKind = "skipped"
	BlockRoom      BlockKind = "room"
	BlockPageBreak BlockKind = "page_break"
)

// ReportHeader carries the identifying fields printed at the top of a report
type ReportHeader struct {
	InspectionID    string `json:"inspection_id"`
	ClientName      string `json:"client_name"`
	ClientEmail     string `json:"client_email"`
	PropertyName    string `json:"property_name"`
	PropertyAddress string `json:"property_address"`
	Date            string `json:"date"`
}

// SkippedRoom is one line of the skipped-rooms block
type SkippedRoom struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// Block is a single element of a ReportDocument.
// Only the fields relevant to Kind are populated.
type Block struct {
	Kind      BlockKind         `json:"kind"`
	Header    *ReportHeader     `json:"header,omitempty"`
	Section   *NarrativeSection `json:"section,omitempty"`
	Skipped   []SkippedRoom     `json:"skipped,omitempty"`
	RoomName  string            `json:"room_name,omitempty"`
	RoomText  string            `json:"room_text,omitempty"`
	ImageURLs []string          `json:"image_urls,omitempty"`
}

// ReportDocument is the ordered layout of a report, page breaks included
type ReportDocument struct {
	Title  string  `json:"title"`
	Blocks []Block `json:"blocks"`
}

// PageBreaks counts explicit page-break markers in the document
func (d *ReportDocument) PageBreaks() int {
	n := 0
	for _, b := range d.Blocks {
		if b.Kind == BlockPageBreak {
			n++
		}
	}
	return n
}

// ImageResult is the outcome of downloading one referenced image
type ImageResult struct {
	URL  string
	Data []byte
	Err  error
}

// OK reports whether the image was downloaded
func (r ImageResult) OK() bool {
	return r.Err == nil && len(r.Data) > 0
}

// RenderedReport is the serialized document plus rendering statistics
type RenderedReport struct {
	Bytes          []byte
	PageCount      int
	ImagesEmbedded int
	ImagesFailed   []string
}

// NotificationResult reports the outcome of emailing a finished report
type NotificationResult struct {
	Sent       bool     `json:"sent"`
	Recipients []string `json:"recipients"`
	Error      string   `json:"error,omitempty"`
	Queued     bool     `json:"queued,omitempty"` // failed send persisted for retry
}

// GenerationResult is returned by a successful report generation.
// Publishing succeeded; the notification may still have failed.
type GenerationResult struct {
	InspectionID    string             `json:"inspection_id"`
	ReportURL       string             `json:"report_url"`
	LocalPath       string             `json:"local_path"`
	PageCount       int                `json:"page_count"`
	SummaryDegraded bool               `json:"summary_degraded"`
	ImagesEmbedded  int                `json:"images_embedded"`
	ImagesFailed    []string           `json:"images_failed,omitempty"`
	Notification    NotificationResult `json:"notification"`
}
