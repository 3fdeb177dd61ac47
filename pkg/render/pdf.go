package render

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/article-dl/pkg/utils"
)

// ErrRendererClosed is returned by Render after Close
var ErrRendererClosed = errors.New("renderer closed")

// PDFRenderer prints saved documents to PDF through a shared headless Chrome
type PDFRenderer struct {
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	timeout         time.Duration
	log             *logrus.Entry
}

// NewPDFRenderer starts a headless browser. It fails when no Chrome binary can be launched.
func NewPDFRenderer(timeout time.Duration, log *logrus.Entry) (*PDFRenderer, error) {
	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("allow-file-access-from-files", true),
	)
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("%w: start headless chrome: %w", utils.ErrRender, err)
	}
	log.Info("Headless Chrome started for PDF output")
	return &PDFRenderer{
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		timeout:         timeout,
		log:             log,
	}, nil
}

func (r *PDFRenderer) Name() string { return "pdf" }
func (r *PDFRenderer) Ext() string  { return ".pdf" }

// Render opens the saved .html file in a new tab and prints it with backgrounds enabled
func (r *PDFRenderer) Render(ctx context.Context, src Source, destPath string) error {
	if r == nil || r.browserCtx.Err() != nil {
		return ErrRendererClosed
	}
	absPath, err := filepath.Abs(src.Path)
	if err != nil {
		return fmt.Errorf("%w: resolve '%s': %w", utils.ErrFilesystem, src.Path, err)
	}
	fileURL := (&url.URL{Scheme: "file", Path: filepath.ToSlash(absPath)}).String()

	tabCtx, cancelTab := chromedp.NewContext(r.browserCtx)
	defer cancelTab()
	taskCtx, cancelTask := context.WithTimeout(tabCtx, r.timeout)
	defer cancelTask()

	// Caller cancellation also aborts the tab
	stop := context.AfterFunc(ctx, cancelTask)
	defer stop()

	var pdf []byte
	err = chromedp.Run(taskCtx,
		chromedp.Navigate(fileURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("%w: print '%s': %w", utils.ErrRender, src.Path, err)
	}
	if err := os.WriteFile(destPath, pdf, 0644); err != nil {
		return fmt.Errorf("%w: write pdf '%s': %w", utils.ErrFilesystem, destPath, err)
	}
	return nil
}

// Close shuts the browser down
func (r *PDFRenderer) Close() error {
	if r == nil {
		return nil
	}
	r.browserCancel()
	r.allocatorCancel()
	return nil
}
