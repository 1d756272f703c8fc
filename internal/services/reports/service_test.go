package reports

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/roomathon/internal/common"
	"github.com/ternarybob/roomathon/internal/interfaces"
	"github.com/ternarybob/roomathon/internal/models"
	"github.com/ternarybob/roomathon/internal/services/blob"
	"github.com/ternarybob/roomathon/internal/services/imagefetch"
	"github.com/ternarybob/roomathon/internal/services/inspections"
	"github.com/ternarybob/roomathon/internal/services/llm"
	"github.com/ternarybob/roomathon/internal/services/mailer"
	"github.com/ternarybob/roomathon/internal/services/notify"
	"github.com/ternarybob/roomathon/internal/services/pdf"
	"github.com/ternarybob/roomathon/internal/services/publisher"
	"github.com/ternarybob/roomathon/internal/services/summary"
	"github.com/ternarybob/roomathon/internal/storage/badger"
)

const narrativeX1 = `**EXECUTIVE SUMMARY:** The property is in good order.
ROOM-BY-ROOM FINDINGS:
- KITCHEN: skipped
FINAL NOTES: Keys returned.`

type stubProvider struct {
	text  string
	err   error
	calls int
}

func (p *stubProvider) GenerateContent(ctx context.Context, request *llm.ContentRequest) (*llm.ContentResponse, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &llm.ContentResponse{Text: p.text, Provider: llm.ProviderOpenAI, Model: "gpt-4o"}, nil
}

type recordingSender struct {
	err  error
	sent []*mailer.Message
}

func (s *recordingSender) Send(ctx context.Context, msg *mailer.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

// recordingRenderer keeps the composed documents handed to the PDF renderer
type recordingRenderer struct {
	inner interfaces.ReportRenderer
	docs  []*models.ReportDocument
}

func (r *recordingRenderer) RenderReport(ctx context.Context, doc *models.ReportDocument, images interfaces.ImageFetcher) (*models.RenderedReport, error) {
	r.docs = append(r.docs, doc)
	return r.inner.RenderReport(ctx, doc, images)
}

type failingBlob struct{}

func (failingBlob) Upload(ctx context.Context, key, contentType string, r io.Reader) error {
	return errors.New("bucket unavailable")
}
func (failingBlob) PublicURL(key string) string { return "" }
func (failingBlob) Close() error                { return nil }

type harness struct {
	service  *Service
	storage  interfaces.InspectionStorage
	outbox   interfaces.NotificationStorage
	provider *stubProvider
	sender   *recordingSender
	renderer *recordingRenderer
	images   *httptest.Server
	output   string
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	blobs   interfaces.BlobStorage
	timeout string
}

func withTimeout(d string) harnessOption {
	return func(c *harnessConfig) { c.timeout = d }
}

func withBlob(b interfaces.BlobStorage) harnessOption {
	return func(c *harnessConfig) { c.blobs = b }
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := 0; x < 40; x++ {
		for y := 0; y < 30; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(y * 8), B: 60, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	logger := arbor.NewLogger()
	ctx := context.Background()

	manager, err := badger.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	pngData := testPNG(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngData)
	})
	images := httptest.NewServer(mux)
	t.Cleanup(images.Close)

	cfg := harnessConfig{timeout: "1m"}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.blobs == nil {
		local, err := blob.NewLocalStore(t.TempDir(), "http://localhost:8085/files", logger)
		require.NoError(t, err)
		cfg.blobs = local
	}

	store := manager.InspectionStorage()
	require.NoError(t, store.SaveProperty(ctx, &models.Property{ID: "P1", Name: "Oak House", Address: "12 Oak St"}))
	require.NoError(t, store.SaveInspection(ctx, &models.Inspection{
		ID:         "X1",
		OwnerName:  "Ann",
		OwnerEmail: "ann@example.com",
		PropertyID: "P1",
		CreatedAt:  time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, store.SaveRoomComparison(ctx, &models.RoomComparison{
		ID: "R1", InspectionID: "X1", RoomName: "Kitchen", ComparisonResult: "skipped — no data",
	}))
	require.NoError(t, store.SaveRoomComparison(ctx, &models.RoomComparison{
		ID: "R2", InspectionID: "X1", RoomName: "Bedroom",
		ComparisonResult: "Minor scuffs on the wall.",
		ImageURLs:        []string{images.URL + "/img/1.png", images.URL + "/img/2.png"},
	}))

	provider := &stubProvider{text: narrativeX1}
	sender := &recordingSender{}
	output := t.TempDir()
	renderer := &recordingRenderer{inner: pdf.NewService(logger)}

	svc := NewService(&common.ReportsConfig{Timeout: cfg.timeout, SerializePerInspection: true}, Components{
		Storage:    store,
		Fetcher:    inspections.NewFetcher(store, logger),
		Summarizer: summary.NewService(provider, "gpt-4o", 2000, logger),
		Renderer:   renderer,
		Images:     imagefetch.NewFetcher(logger, imagefetch.WithRateLimit(0)),
		Publisher:  publisher.NewPublisher(output, cfg.blobs, store, logger),
		Notifier:   notify.NewNotifier(sender, manager.NotificationStorage(), logger),
	}, logger)

	return &harness{
		service:  svc,
		storage:  store,
		outbox:   manager.NotificationStorage(),
		provider: provider,
		sender:   sender,
		renderer: renderer,
		images:   images,
		output:   output,
	}
}

func TestGenerateReport_EndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	result, err := h.service.GenerateReport(ctx, "X1", "agent@example.com")
	require.NoError(t, err)

	assert.Equal(t, "X1", result.InspectionID)
	assert.Equal(t, "http://localhost:8085/files/reports/inspection-report-X1.pdf", result.ReportURL)
	assert.False(t, result.SummaryDegraded)
	assert.Empty(t, result.ImagesFailed)
	assert.Equal(t, 2, result.ImagesEmbedded)
	assert.GreaterOrEqual(t, result.PageCount, 3)
	assert.Equal(t, 1, h.provider.calls)

	require.Len(t, h.renderer.docs, 1)
	var skipped []models.SkippedRoom
	var rooms []models.Block
	for _, b := range h.renderer.docs[0].Blocks {
		switch b.Kind {
		case models.BlockSkipped:
			skipped = append(skipped, b.Skipped...)
		case models.BlockRoom:
			rooms = append(rooms, b)
		}
	}
	require.Len(t, skipped, 1)
	assert.Equal(t, "Kitchen", skipped[0].Name)
	assert.Equal(t, "skipped — no data", skipped[0].Text)
	require.Len(t, rooms, 1)
	assert.Equal(t, "Bedroom", rooms[0].RoomName)
	assert.Len(t, rooms[0].ImageURLs, 2)

	_, err = os.Stat(result.LocalPath)
	require.NoError(t, err)

	inspection, err := h.storage.GetInspection(ctx, "X1")
	require.NoError(t, err)
	assert.Equal(t, models.InspectionStatusCompleted, inspection.Status)
	assert.Equal(t, result.ReportURL, inspection.ReportURL)
	assert.NotNil(t, inspection.ReportGeneratedAt)
	assert.Equal(t, "Ann", inspection.OwnerName)

	assert.True(t, result.Notification.Sent)
	assert.Equal(t, []string{"ann@example.com", "agent@example.com"}, result.Notification.Recipients)
	require.Len(t, h.sender.sent, 1)
	assert.Equal(t, "Inspection Report for Ann", h.sender.sent[0].Subject)
}

func TestGenerateReport_NotFound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	result, err := h.service.GenerateReport(ctx, "missing", "")
	assert.Nil(t, result)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing", nf.InspectionID)

	assert.Equal(t, 0, h.provider.calls)
	assert.Empty(t, h.sender.sent)

	entries, err := os.ReadDir(h.output)
	require.NoError(t, err)
	assert.Empty(t, entries)

	inspection, err := h.storage.GetInspection(ctx, "X1")
	require.NoError(t, err)
	assert.Equal(t, models.InspectionStatusPending, inspection.Status)
}

func TestGenerateReport_PublishFailureSkipsNotification(t *testing.T) {
	h := newHarness(t, withBlob(failingBlob{}))
	ctx := context.Background()

	_, err := h.service.GenerateReport(ctx, "X1", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPublish)

	var pe *PublishError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "publish", pe.Stage)

	assert.Empty(t, h.sender.sent)
	inspection, err := h.storage.GetInspection(ctx, "X1")
	require.NoError(t, err)
	assert.Equal(t, models.InspectionStatusPending, inspection.Status)
	assert.Empty(t, inspection.ReportURL)
}

func TestGenerateReport_SummaryDegraded(t *testing.T) {
	h := newHarness(t)
	h.provider.err = errors.New("503 upstream")

	result, err := h.service.GenerateReport(context.Background(), "X1", "")
	require.NoError(t, err)
	assert.True(t, result.SummaryDegraded)
	assert.NotEmpty(t, result.ReportURL)
}

func TestGenerateReport_UnreachableImage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	broken := h.images.URL + "/missing.png"
	require.NoError(t, h.storage.SaveRoomComparison(ctx, &models.RoomComparison{
		ID: "R3", InspectionID: "X1", RoomName: "Lounge",
		ComparisonResult: "Unchanged.",
		ImageURLs:        []string{broken},
	}))

	result, err := h.service.GenerateReport(ctx, "X1", "")
	require.NoError(t, err)
	assert.Equal(t, []string{broken}, result.ImagesFailed)
}

func TestGenerateReport_NotificationFailureIsQueued(t *testing.T) {
	h := newHarness(t)
	h.sender.err = errors.New("smtp down")
	ctx := context.Background()

	result, err := h.service.GenerateReport(ctx, "X1", "")
	require.NoError(t, err)
	assert.False(t, result.Notification.Sent)
	assert.True(t, result.Notification.Queued)
	assert.Contains(t, result.Notification.Error, "smtp down")

	pending, err := h.outbox.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "X1", pending[0].InspectionID)

	inspection, err := h.storage.GetInspection(ctx, "X1")
	require.NoError(t, err)
	assert.Equal(t, models.InspectionStatusCompleted, inspection.Status)
}

func TestResendNotification(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.service.ResendNotification(ctx, "X1", "")
	assert.ErrorIs(t, err, ErrNotPublished)

	_, err = h.service.ResendNotification(ctx, "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = h.service.GenerateReport(ctx, "X1", "")
	require.NoError(t, err)

	result, err := h.service.ResendNotification(ctx, "X1", "agent@example.com")
	require.NoError(t, err)
	assert.True(t, result.Sent)
	assert.Len(t, h.sender.sent, 2)
}

func TestGenerateReport_LockWaitSharesDeadline(t *testing.T) {
	h := newHarness(t, withTimeout("50ms"))

	unlock, err := h.service.locks.Lock(context.Background(), "X1")
	require.NoError(t, err)
	defer unlock()

	start := time.Now()
	_, err = h.service.GenerateReport(context.Background(), "X1", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 0, h.provider.calls)
}

func TestKeyedLock(t *testing.T) {
	locks := newKeyedLock()
	ctx := context.Background()

	unlock, err := locks.Lock(ctx, "X1")
	require.NoError(t, err)

	other, err := locks.Lock(ctx, "X2")
	require.NoError(t, err)
	other()

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = locks.Lock(waitCtx, "X1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	acquired := make(chan struct{})
	go func() {
		release, err := locks.Lock(ctx, "X1")
		if err == nil {
			release()
		}
		close(acquired)
	}()

	unlock()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never acquired the lock")
	}

	locks.mu.Lock()
	defer locks.mu.Unlock()
	assert.Empty(t, locks.slots)
}
