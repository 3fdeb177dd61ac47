package render

import (
	"context"
	"fmt"
	"os"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/Sriram-PR/article-dl/pkg/utils"
)

// MarkdownRenderer converts the document body to Markdown
type MarkdownRenderer struct {
	converter *md.Converter
}

// NewMarkdownRenderer creates a MarkdownRenderer. Links are left as-is since documents keep absolute URLs.
func NewMarkdownRenderer() *MarkdownRenderer {
	converter := md.NewConverter("", true, nil)
	converter.Remove("style", "script", "head")
	return &MarkdownRenderer{converter: converter}
}

func (r *MarkdownRenderer) Name() string { return "markdown" }
func (r *MarkdownRenderer) Ext() string  { return ".md" }

// Convert returns the Markdown for a document's body
func (r *MarkdownRenderer) Convert(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("%w: %w: %w", utils.ErrRender, utils.ErrParsing, err)
	}
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	return strings.TrimSpace(r.converter.Convert(body)) + "\n", nil
}

// Render writes the Markdown form of src to destPath
func (r *MarkdownRenderer) Render(_ context.Context, src Source, destPath string) error {
	markdown, err := r.Convert(src.HTML)
	if err != nil {
		return err
	}
	if err := os.WriteFile(destPath, []byte(markdown), 0644); err != nil {
		return fmt.Errorf("%w: write markdown '%s': %w", utils.ErrFilesystem, destPath, err)
	}
	return nil
}
