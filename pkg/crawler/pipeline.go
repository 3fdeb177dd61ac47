package crawler

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/article-dl/pkg/detect"
	"github.com/Sriram-PR/article-dl/pkg/fetch"
	"github.com/Sriram-PR/article-dl/pkg/models"
	"github.com/Sriram-PR/article-dl/pkg/parse"
	"github.com/Sriram-PR/article-dl/pkg/process"
	"github.com/Sriram-PR/article-dl/pkg/utils"
)

// NotFoundMessage is the Result.Error of a task whose article does not exist
const NotFoundMessage = "article not found"

// PageFetcher performs one GET attempt under an identity
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string, id fetch.Identity) (*models.RawPage, error)
}

// ContentExtractor renders a fetched page into the output document
type ContentExtractor interface {
	Extract(page *models.RawPage, sourceURL string) (string, error)
}

// Pipeline turns one Task into exactly one Result.
// It fetches with the primary identity, retries once with the fallback identity when the page is restricted, then extracts.
type Pipeline struct {
	fetcher   PageFetcher
	extractor ContentExtractor
	log       *logrus.Entry
}

// NewPipeline creates a Pipeline from its collaborators
func NewPipeline(fetcher PageFetcher, extractor ContentExtractor, log *logrus.Entry) *Pipeline {
	return &Pipeline{fetcher: fetcher, extractor: extractor, log: log}
}

// Run processes a single task. It never returns an error and never panics; every outcome is a Result.
func (p *Pipeline) Run(ctx context.Context, task models.Task) (result models.Result) {
	startTime := time.Now()
	taskLog := p.log.WithFields(logrus.Fields{"url": task.URL, "seq": task.Seq})

	defer func() {
		if r := recover(); r != nil {
			taskLog.WithFields(logrus.Fields{
				"panic_info":  r,
				"duration":    time.Since(startTime).String(),
				"stage":       "PanicRecovery",
				"stack_trace": string(debug.Stack()),
			}).Error("PANIC recovered in pipeline")
			result = models.NewErrorResult(task, fmt.Sprintf("panic: %v", r), http.StatusInternalServerError)
		}

		result.Seq = task.Seq
		result.URL = task.URL
		result.ArticleID = parse.ArticleID(task.URL)
		result.ElapsedMillis = time.Since(startTime).Milliseconds()
		result.ProducedAt = time.Now()

		logFields := logrus.Fields{"duration": time.Since(startTime).String(), "status": result.Status().String()}
		if result.Success {
			logFields["page_title"] = result.Title
			logFields["identity"] = result.Identity
			taskLog.WithFields(logFields).Info("Task completed successfully")
		} else {
			logFields["http_status"] = result.HTTPStatus
			taskLog.WithFields(logFields).Warnf("Task failed: %s", result.Error)
		}
	}()

	// 1. Primary attempt
	page, err := p.fetcher.Fetch(ctx, task.URL, fetch.IdentityPrimary)
	if err != nil {
		return p.fail(task, err, taskLog)
	}
	if page.StatusCode == http.StatusNotFound {
		return models.NewErrorResult(task, NotFoundMessage, http.StatusNotFound)
	}

	// 2. Restriction check, at most one fallback attempt
	identity := fetch.IdentityPrimary
	verdict := detect.Classify(page)
	if verdict.Restricted() {
		taskLog.WithField("verdict", verdict.String()).Info("Restricted content detected, retrying with fallback identity")
		fallback, err := p.fetcher.Fetch(ctx, task.URL, fetch.IdentityFallback)
		if err != nil {
			r := p.fail(task, err, taskLog)
			r.Restriction = string(verdict.Reason)
			return r
		}
		if fallback.StatusCode == http.StatusNotFound {
			r := models.NewErrorResult(task, NotFoundMessage, http.StatusNotFound)
			r.Restriction = string(verdict.Reason)
			return r
		}
		page = fallback
		identity = fetch.IdentityFallback
	}

	// 3. An error status on the last attempt means the article exists but was not served
	if page.StatusCode >= http.StatusBadRequest {
		r := models.NewErrorResult(task, httpErrorMessage(page.StatusCode), page.StatusCode)
		r.Restriction = string(verdict.Reason)
		return r
	}

	// 4. Extraction, regardless of the fallback page's own verdict
	html, err := p.extractor.Extract(page, task.URL)
	if err != nil {
		r := p.fail(task, err, taskLog)
		r.Restriction = string(verdict.Reason)
		return r
	}

	return models.Result{
		Success:       true,
		Title:         process.NormalizeTitle(page.FinalTitle),
		SanitizedHTML: html,
		HTTPStatus:    page.StatusCode,
		ContentType:   page.ContentType,
		ContentLength: len(html),
		ItemExists:    true,
		Identity:      identity.String(),
		Restriction:   string(verdict.Reason),
	}
}

// httpErrorMessage describes a non-404 error status, e.g. "HTTP 503 Service Unavailable"
func httpErrorMessage(code int) string {
	if text := http.StatusText(code); text != "" {
		return fmt.Sprintf("HTTP %d %s", code, text)
	}
	return fmt.Sprintf("HTTP %d", code)
}

// fail maps a fetch or extraction error to a 500 failure Result
func (p *Pipeline) fail(task models.Task, err error, taskLog *logrus.Entry) models.Result {
	taskLog.WithField("category", utils.CategorizeError(err)).Debugf("Pipeline error: %v", err)
	return models.NewErrorResult(task, err.Error(), http.StatusInternalServerError)
}
