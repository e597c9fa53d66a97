package printing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	apptrade "github.com/pharmanet/backend/internal/application/trade"
	"github.com/pharmanet/backend/internal/infrastructure/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/pharmanet/backend/internal/infrastructure/printing")

const (
	defaultRenderTimeout = 30 * time.Second
	// A4 in inches, which is what Chrome expects
	a4Width    = 8.27
	a4Height   = 11.69
	pageMargin = 0.4
)

// ErrEmptyDocument is returned when Chrome produced no bytes
var ErrEmptyDocument = errors.New("printing: generated PDF is empty")

// ChromeRenderer prints delivery notes to PDF with headless Chrome. One
// browser process is shared; each document gets its own tab.
type ChromeRenderer struct {
	template *NoteTemplate
	timeout  time.Duration
	logger   *zap.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc
	closeOnce   sync.Once
}

var _ apptrade.DocumentRenderer = (*ChromeRenderer)(nil)

// NewChromeRenderer starts a Chrome allocator configured from cfg. Chrome
// itself is launched lazily on the first render.
func NewChromeRenderer(cfg config.PrintingConfig, logger *zap.Logger) (*ChromeRenderer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tmpl, err := NewNoteTemplate(cfg.Locale, cfg.Currency)
	if err != nil {
		return nil, err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}

	timeout := cfg.RenderTimeout
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}

	r := &ChromeRenderer{template: tmpl, timeout: timeout, logger: logger}
	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	return r, nil
}

// RenderDeliveryNote renders note through the HTML template and prints it
func (r *ChromeRenderer) RenderDeliveryNote(ctx context.Context, note *apptrade.DeliveryNote) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "ChromeRenderer.RenderDeliveryNote")
	defer span.End()

	html, err := r.template.Render(note)
	if err != nil {
		return nil, err
	}
	pdf, err := r.RenderHTML(ctx, html)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("pdf.bytes", len(pdf)), attribute.Int("pdf.lines", len(note.Lines)))
	return pdf, nil
}

// RenderHTML prints a complete HTML document to an A4 PDF
func (r *ChromeRenderer) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	tabCtx, cancelTab := chromedp.NewContext(r.allocCtx,
		chromedp.WithLogf(r.logger.Sugar().Debugf),
	)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, r.timeout)
	defer cancelTimeout()

	// The caller's cancellation has to reach the tab, which lives under the
	// allocator context rather than ctx
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var pdf []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(a4Width).
				WithPaperHeight(a4Height).
				WithMarginTop(pageMargin).
				WithMarginBottom(pageMargin).
				WithMarginLeft(pageMargin).
				WithMarginRight(pageMargin).
				Do(ctx)
			pdf = data
			return err
		}),
	)
	if err != nil {
		if errors.Is(tabCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("printing: render timed out after %v: %w", r.timeout, err)
		}
		return nil, fmt.Errorf("printing: chrome failed: %w", err)
	}
	if len(pdf) == 0 {
		return nil, ErrEmptyDocument
	}

	r.logger.Debug("PDF rendered",
		zap.Int("bytes", len(pdf)),
		zap.Duration("duration", time.Since(start)),
	)
	return pdf, nil
}

// Close shuts the browser down
func (r *ChromeRenderer) Close() error {
	r.closeOnce.Do(r.allocCancel)
	return nil
}
