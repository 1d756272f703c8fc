package pdf

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/roomathon/internal/interfaces"
	"github.com/ternarybob/roomathon/internal/models"
	"github.com/ternarybob/roomathon/internal/services/imagefetch"
)

const (
	fontFamily = "Arial"
	margin     = 15.0

	// Images are scaled to fit this box, aspect ratio kept
	maxImageWidth  = 160.0
	maxImageHeight = 120.0

	untitledSection = "AI Summary"
	skippedHeading  = "Skipped Rooms"
	imageFailedText = "Could not load image: "
)

// Service renders report documents with fpdf
type Service struct {
	logger arbor.ILogger
}

// Compile-time assertion
var _ interfaces.ReportRenderer = (*Service)(nil)

// NewService creates a new PDF service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
	}
}

// RenderReport serializes doc to PDF. Images are downloaded through images one
// at a time in block order; a failed or undecodable image becomes a placeholder
// line and never fails the render.
func (s *Service) RenderReport(ctx context.Context, doc *models.ReportDocument, images interfaces.ImageFetcher) (*models.RenderedReport, error) {
	if doc == nil {
		return nil, fmt.Errorf("report document is nil")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("Roomathon", true)
	pdf.AddPage()

	w := &reportWriter{
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		logger: s.logger,
		result: &models.RenderedReport{},
	}

	for i := range doc.Blocks {
		block := &doc.Blocks[i]
		switch block.Kind {
		case models.BlockHeader:
			w.header(doc.Title, block.Header)
		case models.BlockSection:
			w.section(block.Section)
		case models.BlockSkipped:
			w.skipped(block.Skipped)
		case models.BlockRoom:
			w.room(ctx, block, images)
		case models.BlockPageBreak:
			pdf.AddPage()
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("render cancelled: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate PDF output")
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}

	w.result.Bytes = buf.Bytes()
	w.result.PageCount = pdf.PageNo()

	s.logger.Debug().
		Int("pdf_size", buf.Len()).
		Int("pages", w.result.PageCount).
		Int("images_embedded", w.result.ImagesEmbedded).
		Int("images_failed", len(w.result.ImagesFailed)).
		Msg("Report PDF rendered")

	return w.result, nil
}

type reportWriter struct {
	pdf      *fpdf.Fpdf
	tr       func(string) string
	logger   arbor.ILogger
	result   *models.RenderedReport
	imageSeq int
}

func (w *reportWriter) heading(text string, size float64) {
	w.pdf.SetFont(fontFamily, "B", size)
	w.pdf.MultiCell(0, size*0.5, w.tr(text), "", "L", false)
	w.pdf.Ln(2)
}

func (w *reportWriter) paragraph(text string, size float64) {
	w.pdf.SetFont(fontFamily, "", size)
	w.pdf.MultiCell(0, size*0.5, w.tr(text), "", "L", false)
}

func (w *reportWriter) header(title string, h *models.ReportHeader) {
	w.pdf.SetFont(fontFamily, "B", 20)
	w.pdf.CellFormat(0, 12, w.tr(title), "", 1, "C", false, 0, "")
	w.pdf.Ln(4)

	if h == nil {
		return
	}

	lines := []struct{ label, value string }{
		{"Inspection ID", h.InspectionID},
		{"Client", h.ClientName},
		{"Email", h.ClientEmail},
		{"Property", h.PropertyName},
		{"Address", h.PropertyAddress},
		{"Date", h.Date},
	}
	w.pdf.SetFont(fontFamily, "", 12)
	for _, l := range lines {
		if l.value == "" {
			continue
		}
		w.pdf.CellFormat(0, 7, w.tr(l.label+": "+l.value), "", 1, "L", false, 0, "")
	}
	w.pdf.Ln(6)
}

func (w *reportWriter) section(s *models.NarrativeSection) {
	if s == nil {
		return
	}
	title := s.Title
	if title == "" {
		title = untitledSection
	}
	w.heading(title, 14)
	if s.Body != "" {
		w.paragraph(s.Body, 11)
	}
	w.pdf.Ln(4)
}

func (w *reportWriter) skipped(rooms []models.SkippedRoom) {
	w.heading(skippedHeading, 14)
	for _, r := range rooms {
		line := r.Name
		if r.Text != "" {
			line += ": " + r.Text
		}
		w.paragraph("- "+line, 11)
		w.pdf.Ln(1)
	}
}

func (w *reportWriter) room(ctx context.Context, b *models.Block, images interfaces.ImageFetcher) {
	w.pdf.SetFont(fontFamily, "BU", 14)
	w.pdf.MultiCell(0, 7, w.tr("Room: "+b.RoomName), "", "L", false)
	w.pdf.Ln(2)
	w.paragraph(b.RoomText, 11)

	if len(b.ImageURLs) == 0 {
		return
	}
	w.pdf.Ln(4)

	if images == nil {
		for _, url := range b.ImageURLs {
			w.imageFailed(url, fmt.Errorf("no image fetcher configured"))
		}
		return
	}

	for res := range imagefetch.Sequence(ctx, images, b.ImageURLs) {
		if !res.OK() {
			err := res.Err
			if err == nil {
				err = fmt.Errorf("empty image body")
			}
			w.imageFailed(res.URL, err)
			continue
		}
		if err := w.embedImage(res.Data); err != nil {
			w.imageFailed(res.URL, err)
			continue
		}
		w.result.ImagesEmbedded++
	}
}

func (w *reportWriter) imageFailed(url string, err error) {
	w.logger.Warn().Str("url", url).Err(err).Msg("Image not embedded, using placeholder")
	w.result.ImagesFailed = append(w.result.ImagesFailed, url)
	w.pdf.SetFont(fontFamily, "I", 10)
	w.pdf.MultiCell(0, 5, w.tr(imageFailedText+url), "", "L", false)
	w.pdf.Ln(2)
}

// embedImage draws data centred on the page, starting a new page when it does not fit
func (w *reportWriter) embedImage(data []byte) (err error) {
	imageType, err := detectImageType(data)
	if err != nil {
		return err
	}

	// fpdf decodes untrusted bytes; a malformed image must not take the report down
	defer func() {
		if r := recover(); r != nil {
			w.pdf.ClearError()
			err = fmt.Errorf("decode image: %v", r)
		}
	}()

	w.imageSeq++
	name := fmt.Sprintf("img%d", w.imageSeq)
	opts := fpdf.ImageOptions{ImageType: imageType, ReadDpi: false}

	info := w.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if w.pdf.Err() {
		err := w.pdf.Error()
		w.pdf.ClearError()
		return fmt.Errorf("decode image: %w", err)
	}
	if info == nil || info.Width() <= 0 || info.Height() <= 0 {
		return fmt.Errorf("image has no dimensions")
	}

	width, height := fitBox(info.Width(), info.Height(), maxImageWidth, maxImageHeight)

	pageWidth, pageHeight := w.pdf.GetPageSize()
	if w.pdf.GetY()+height > pageHeight-margin {
		w.pdf.AddPage()
	}

	x := (pageWidth - width) / 2
	w.pdf.ImageOptions(name, x, w.pdf.GetY(), width, height, false, opts, 0, "")
	w.pdf.SetY(w.pdf.GetY() + height + 4)
	return nil
}

func detectImageType(data []byte) (string, error) {
	contentType := http.DetectContentType(data)
	switch {
	case strings.HasPrefix(contentType, "image/jpeg"):
		return "JPG", nil
	case strings.HasPrefix(contentType, "image/png"):
		return "PNG", nil
	case strings.HasPrefix(contentType, "image/gif"):
		return "GIF", nil
	}
	return "", fmt.Errorf("unsupported image format %q", contentType)
}

// fitBox scales w x h down (never up) to fit inside maxW x maxH
func fitBox(w, h, maxW, maxH float64) (float64, float64) {
	scale := 1.0
	if w > maxW {
		scale = maxW / w
	}
	if h*scale > maxH {
		scale = maxH / h
	}
	return w * scale, h * scale
}
