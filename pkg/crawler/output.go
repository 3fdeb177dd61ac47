package crawler

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/article-dl/pkg/config"
	"github.com/Sriram-PR/article-dl/pkg/models"
	"github.com/Sriram-PR/article-dl/pkg/render"
	"github.com/Sriram-PR/article-dl/pkg/utils"
)

// utf8BOM lets spreadsheet tools detect UTF-8 in the CSV record
const utf8BOM = "\uFEFF"

// CSVHeader is the column layout of the CSV record
var CSVHeader = []string{"index", "title", "status", "size", "elapsed", "path", "url", "http_status", "error"}

// OutputManager saves successful documents and collects one record per Result for the CSV and YAML summaries.
type OutputManager struct {
	log       *logrus.Entry
	appCfg    *config.AppConfig
	outputDir string
	renderers []render.Renderer

	records   []ItemRecord
	recordsMu sync.Mutex
	startTime time.Time
}

// ItemRecord pairs a Result with where (and whether) its document was saved
type ItemRecord struct {
	Result      models.Result
	Path        string
	ContentHash string
}

// NewOutputManager creates an OutputManager. Renderers run after each document is saved.
func NewOutputManager(log *logrus.Entry, appCfg *config.AppConfig, renderers ...render.Renderer) *OutputManager {
	return &OutputManager{
		log:       log,
		appCfg:    appCfg,
		outputDir: appCfg.OutputDir,
		renderers: renderers,
		records:   make([]ItemRecord, 0),
		startTime: time.Now(),
	}
}

// Prepare creates the output directory
func (om *OutputManager) Prepare() error {
	if err := os.MkdirAll(om.outputDir, 0755); err != nil {
		return fmt.Errorf("%w: create output dir '%s': %w", utils.ErrFilesystem, om.outputDir, err)
	}
	om.log.Infof("Output directory ready: %s", om.outputDir)
	return nil
}

// Handle saves a successful Result as <seq>_<title>.html, runs the renderers and records the outcome.
// Failed Results are only recorded. Renderer failures are logged and never change the Result.
func (om *OutputManager) Handle(ctx context.Context, result models.Result) ItemRecord {
	rec := ItemRecord{Result: result}
	if result.Success {
		path, err := om.saveDocument(result)
		if err != nil {
			om.log.WithFields(logrus.Fields{"url": result.URL, "category": utils.CategorizeError(err)}).Errorf("Failed to save document: %v", err)
		} else {
			rec.Path = path
			rec.ContentHash = utils.CalculateStringSHA256(result.SanitizedHTML)
			om.runRenderers(ctx, result, path)
		}
	}

	om.recordsMu.Lock()
	om.records = append(om.records, rec)
	om.recordsMu.Unlock()
	return rec
}

// saveDocument writes the sanitized document and returns its path
func (om *OutputManager) saveDocument(result models.Result) (string, error) {
	filename := utils.SequencedFilename(result.Seq+1, result.Title) + ".html"
	path := filepath.Join(om.outputDir, filename)
	if err := os.WriteFile(path, []byte(result.SanitizedHTML), 0644); err != nil {
		return "", fmt.Errorf("%w: write '%s': %w", utils.ErrFilesystem, path, err)
	}
	om.log.WithField("seq", result.Seq).Debugf("Saved document: %s", path)
	return path, nil
}

func (om *OutputManager) runRenderers(ctx context.Context, result models.Result, htmlPath string) {
	base := htmlPath[:len(htmlPath)-len(filepath.Ext(htmlPath))]
	src := render.Source{HTML: result.SanitizedHTML, Path: htmlPath}
	for _, r := range om.renderers {
		dest := base + r.Ext()
		if err := r.Render(ctx, src, dest); err != nil {
			err = utils.WrapErrorf(err, "%s output for seq %d", r.Name(), result.Seq+1)
			om.log.WithFields(logrus.Fields{"url": result.URL, "renderer": r.Name()}).Warnf("Render failed: %v", err)
			continue
		}
		om.log.WithField("renderer", r.Name()).Debugf("Rendered %s", dest)
	}
}

// Records returns the collected records ordered by task sequence
func (om *OutputManager) Records() []ItemRecord {
	om.recordsMu.Lock()
	out := make([]ItemRecord, len(om.records))
	copy(out, om.records)
	om.recordsMu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Result.Seq < out[j].Result.Seq })
	return out
}

// Saved returns how many documents were written
func (om *OutputManager) Saved() int {
	om.recordsMu.Lock()
	defer om.recordsMu.Unlock()
	n := 0
	for _, rec := range om.records {
		if rec.Path != "" {
			n++
		}
	}
	return n
}

// WriteRecordsCSV writes every record to path, UTF-8 BOM first
func (om *OutputManager) WriteRecordsCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create CSV '%s': %w", utils.ErrFilesystem, path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(utf8BOM); err != nil {
		return fmt.Errorf("%w: write CSV '%s': %w", utils.ErrFilesystem, path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(CSVHeader); err != nil {
		return fmt.Errorf("%w: write CSV header: %w", utils.ErrFilesystem, err)
	}
	records := om.Records()
	for _, rec := range records {
		r := rec.Result
		row := []string{
			strconv.Itoa(r.Seq + 1),
			r.Title,
			r.Status().String(),
			strconv.Itoa(r.ContentLength),
			strconv.FormatInt(r.ElapsedMillis, 10),
			rec.Path,
			r.URL,
			strconv.Itoa(r.HTTPStatus),
			r.Error,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("%w: write CSV row %d: %w", utils.ErrFilesystem, r.Seq+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: flush CSV '%s': %w", utils.ErrFilesystem, path, err)
	}
	om.log.Infof("Wrote %d records to %s", len(records), path)
	return nil
}

// WriteMetadataYAML writes the batch summary to the configured metadata file in the output directory
func (om *OutputManager) WriteMetadataYAML(batchID string, state models.BatchState, cancelled bool) error {
	if !om.appCfg.EnableMetadataYAML {
		om.log.Debug("YAML metadata output is disabled.")
		return nil
	}

	yamlFilePath := filepath.Join(om.outputDir, config.GetEffectiveMetadataYAMLFilename(*om.appCfg))

	records := om.Records()
	items := make([]models.ItemMetadata, 0, len(records))
	for _, rec := range records {
		r := rec.Result
		item := models.ItemMetadata{
			Seq:           r.Seq,
			URL:           r.URL,
			ArticleID:     r.ArticleID,
			Title:         r.Title,
			Status:        r.Status().String(),
			HTTPStatus:    r.HTTPStatus,
			ElapsedMillis: r.ElapsedMillis,
			ContentHash:   rec.ContentHash,
			Error:         r.Error,
		}
		if rec.Path != "" {
			if rel, err := filepath.Rel(om.outputDir, rec.Path); err == nil {
				item.LocalFilePath = filepath.ToSlash(rel)
			} else {
				item.LocalFilePath = rec.Path
			}
		}
		items = append(items, item)
	}

	metadata := models.BatchMetadata{
		BatchID:   batchID,
		StartTime: om.startTime,
		EndTime:   time.Now(),
		Cancelled: cancelled,
		Counters:  state,
		Items:     items,
	}

	yamlData, err := yaml.Marshal(&metadata)
	if err != nil {
		return fmt.Errorf("marshal batch metadata: %w", err)
	}
	if err := os.WriteFile(yamlFilePath, yamlData, 0644); err != nil {
		return fmt.Errorf("%w: write metadata YAML '%s': %w", utils.ErrFilesystem, yamlFilePath, err)
	}
	om.log.Infof("Wrote batch metadata (%d items) to %s", len(items), yamlFilePath)
	return nil
}
