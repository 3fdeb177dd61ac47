package process

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/article-dl/pkg/detect"
	"github.com/Sriram-PR/article-dl/pkg/models"
	"github.com/Sriram-PR/article-dl/pkg/utils"
)

const (
	// NoiseSelector matches elements removed from the article container
	NoiseSelector = "script, iframe, style, .hide-article-box, .btn-readmore, .recommend-box, .opt-box, .template-box"

	ImageStyle = "max-width: 95%; height: auto; display: block; margin: 15px auto; border-radius: 4px;"
	PreStyle   = "white-space: pre-wrap; word-break: break-all; background: #282c34; color: #abb2bf; padding: 10px; border-radius: 5px;"

	// PlaceholderFragment stands in for the body when no article container exists
	PlaceholderFragment = "<div style='color:red'>Unable to extract article content; it is likely paywalled or VIP-only.</div>"
)

// Lazy-loading attributes dropped from images once src is resolved
var lazyImageAttrs = []string{"data-src", "onerror", "loading", "data-lazy", "lazyload"}

// Extractor turns a fetched page into a self-contained, printable HTML document
type Extractor struct {
	template string
	log      *logrus.Entry
}

// NewExtractor creates an Extractor bound to an already resolved template
func NewExtractor(template string, log *logrus.Entry) *Extractor {
	if template == "" {
		template = DefaultTemplate
	}
	return &Extractor{template: template, log: log}
}

// Extract locates the article container, sanitizes it and renders it into the template.
// A page without a container still renders, with PlaceholderFragment as its body.
// Returns an error wrapping utils.ErrExtraction only when the body cannot be turned into a document.
func (e *Extractor) Extract(page *models.RawPage, sourceURL string) (string, error) {
	if page == nil || strings.TrimSpace(page.Body) == "" {
		return "", fmt.Errorf("%w: empty body for '%s'", utils.ErrExtraction, sourceURL)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.Body))
	if err != nil {
		return "", fmt.Errorf("%w: %w: parse HTML for '%s': %w", utils.ErrExtraction, utils.ErrParsing, sourceURL, err)
	}

	title := NormalizeTitle(page.FinalTitle)
	if title == "" {
		title = NormalizeTitle(doc.Find("title").First().Text())
	}

	content := locateContainer(doc)
	if content == nil {
		e.log.WithField("url", sourceURL).Warn("No article container found, rendering placeholder")
		return Render(e.template, title, sourceURL, PlaceholderFragment), nil
	}

	Sanitize(content)

	fragment, err := content.Html()
	if err != nil {
		return "", fmt.Errorf("%w: serialize content for '%s': %w", utils.ErrExtraction, sourceURL, err)
	}
	return Render(e.template, title, sourceURL, fragment), nil
}

// locateContainer returns the first article container, or nil
func locateContainer(doc *goquery.Document) *goquery.Selection {
	for _, selector := range []string{detect.PrimaryContainerSelector, detect.SecondaryContainerSelector} {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			return sel
		}
	}
	return nil
}

// Sanitize cleans an article container in place. Applying it twice yields the same markup.
func Sanitize(content *goquery.Selection) {
	content.Find(NoiseSelector).Remove()

	// Inline styles only survive where a fixed style is forced below
	content.Find("[style]").Not("img, pre").RemoveAttr("style")

	content.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		if dataSrc, ok := img.Attr("data-src"); ok && strings.TrimSpace(dataSrc) != "" {
			src = dataSrc
		}
		src = strings.TrimSpace(src)
		if strings.HasPrefix(src, "//") {
			src = "https:" + src
		}
		img.SetAttr("src", src)
		for _, attr := range lazyImageAttrs {
			img.RemoveAttr(attr)
		}
		img.SetAttr("style", ImageStyle)
	})

	content.Find("pre").SetAttr("style", PreStyle)
}
