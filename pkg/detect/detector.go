package detect

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Sriram-PR/article-dl/pkg/models"
)

// Kind is the top-level classification of a fetched page
type Kind string

const (
	VerdictNormal     Kind = "normal"
	VerdictRestricted Kind = "restricted"
)

// Reason explains a restricted verdict
type Reason string

const (
	ReasonNone    Reason = ""
	ReasonMissing Reason = "missing" // No article container; also covers deleted articles
	ReasonPaywall Reason = "paywall" // Read-more / VIP overlay present
	ReasonAntibot Reason = "antibot" // Access-control interstitial
)

// Markers the site uses for each restriction
const (
	PrimaryContainerSelector   = "#content_views"
	SecondaryContainerSelector = "article"
	PaywallMarker              = "hide-article-box"
	AntibotTitleMarker         = "Custom-Access-Control"
)

// Verdict is the outcome of Classify
type Verdict struct {
	Kind   Kind
	Reason Reason
}

// Restricted reports whether the verdict calls for a fallback attempt
func (v Verdict) Restricted() bool {
	return v.Kind == VerdictRestricted
}

func (v Verdict) String() string {
	if v.Kind == VerdictRestricted {
		return string(v.Kind) + "(" + string(v.Reason) + ")"
	}
	return string(v.Kind)
}

var normal = Verdict{Kind: VerdictNormal, Reason: ReasonNone}

// Classify decides whether a page is normal or restricted.
// Checks run in a fixed order and the first match wins: missing container, paywall marker, anti-bot title.
func Classify(page *models.RawPage) Verdict {
	if page == nil {
		return Verdict{Kind: VerdictRestricted, Reason: ReasonMissing}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.Body))
	if err != nil || !HasContainer(doc) {
		return Verdict{Kind: VerdictRestricted, Reason: ReasonMissing}
	}
	if strings.Contains(page.Body, PaywallMarker) {
		return Verdict{Kind: VerdictRestricted, Reason: ReasonPaywall}
	}
	if strings.Contains(page.FinalTitle, AntibotTitleMarker) {
		return Verdict{Kind: VerdictRestricted, Reason: ReasonAntibot}
	}
	return normal
}

// HasContainer reports whether the document has either article container
func HasContainer(doc *goquery.Document) bool {
	return doc.Find(PrimaryContainerSelector).Length() > 0 || doc.Find(SecondaryContainerSelector).Length() > 0
}
