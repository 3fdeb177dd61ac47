package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/article-dl/pkg/config"
	"github.com/Sriram-PR/article-dl/pkg/crawler"
	"github.com/Sriram-PR/article-dl/pkg/fetch"
	applog "github.com/Sriram-PR/article-dl/pkg/log"
	"github.com/Sriram-PR/article-dl/pkg/metrics"
	"github.com/Sriram-PR/article-dl/pkg/models"
	"github.com/Sriram-PR/article-dl/pkg/parse"
	"github.com/Sriram-PR/article-dl/pkg/process"
	"github.com/Sriram-PR/article-dl/pkg/render"
	"github.com/Sriram-PR/article-dl/pkg/storage"
	"github.com/Sriram-PR/article-dl/pkg/utils"
)

const version = "0.4.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "fetch":
		runFetch(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "version":
		fmt.Printf("article-dl %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `article-dl - Batch CSDN article downloader

Usage:
  article-dl <command> [options]

Commands:
  fetch      Download every article URL listed in a file
  validate   Check a URL file without downloading
  version    Show version info

Run 'article-dl <command> -h' for command-specific help.`)
}

// readURLFile returns the raw lines of a URL list file
func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open URL file '%s': %w", utils.ErrFilesystem, path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read URL file '%s': %w", utils.ErrFilesystem, path, err)
	}
	return lines, nil
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	urlsFile := fs.String("urls", "urls.txt", "File with one article URL per line")
	configFile := fs.String("config", "", "Optional config file to check as well")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: article-dl validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	os.Exit(doValidate(*urlsFile, *configFile, os.Stdout, os.Stderr))
}

// doValidate checks the URL file (and optionally the config) and writes a report.
// Returns exit code (0 = at least one acceptable URL, 1 = error or nothing to do).
func doValidate(urlsPath, configPath string, stdout, stderr io.Writer) int {
	if configPath != "" {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		_, warnings, err := config.Load(configPath, logrus.NewEntry(discard))
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		for _, w := range warnings {
			fmt.Fprintf(stdout, "WARN: %s\n", w)
		}
	}

	lines, err := readURLFile(urlsPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	report := parse.ValidateLines(lines)
	for _, line := range report.InvalidLines {
		fmt.Fprintf(stdout, "SKIP: %s\n", line)
	}
	fmt.Fprintf(stdout, "\n%d article URLs accepted, %d lines skipped.\n", report.Valid, report.Invalid)
	if report.Valid == 0 {
		fmt.Fprintln(stderr, "Error: no article URLs to download")
		return 1
	}
	return 0
}

// runFetch handles the fetch subcommand
func runFetch(args []string) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	urlsFile := fs.String("urls", "urls.txt", "File with one article URL per line")
	configFile := fs.String("config", "config.yaml", "Path to config file")
	cookiesFile := fs.String("cookies", "", "File holding a 'name=value; name2=value2' cookie string")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: article-dl fetch [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  article-dl fetch -urls urls.txt\n")
		fmt.Fprintf(os.Stderr, "  article-dl fetch -urls urls.txt -cookies cookies.txt -loglevel debug\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	log, err := applog.NewLogger(*logLevel, os.Stderr)
	if err != nil {
		log.Warn(err)
	}

	appCfg, warnings, err := config.Load(*configFile, applog.Component(log, "config"))
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	for _, w := range warnings {
		log.Warn(w)
	}
	logAppConfig(appCfg, log)

	lines, err := readURLFile(*urlsFile)
	if err != nil {
		log.Fatalf("Input error: %v", err)
	}
	creds := config.LoadCredentials(*cookiesFile, applog.Component(log, "credentials"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := fetch.NewClient(appCfg.HTTPClientSettings, applog.Component(log, "http_client"))
	summary, err := executeBatch(ctx, appCfg, client, creds, lines, log)
	if err != nil {
		log.WithField("category", utils.CategorizeError(err)).Errorf("Batch failed: %v", err)
		stop()
		os.Exit(1)
	}
	fmt.Println(summary)
}

// batchSummary is the final report of a fetch run
type batchSummary struct {
	BatchID   string
	State     models.BatchState
	Skipped   int // Already succeeded in an earlier batch
	Saved     int
	Cancelled bool
}

func (s batchSummary) String() string {
	if s.BatchID == "" {
		return fmt.Sprintf("Nothing to download: %d URLs already succeeded earlier.", s.Skipped)
	}
	status := "Done"
	if s.Cancelled {
		status = "Cancelled"
	}
	return fmt.Sprintf("%s: %d/%d processed, %d succeeded, %d failed, %d not found, %d saved (batch %s)",
		status, s.State.Completed, s.State.Total, s.State.Succeeded, s.State.Failed, s.State.NotFound, s.Saved, s.BatchID)
}

// executeBatch wires the components for one batch and blocks until every result is handled
func executeBatch(ctx context.Context, appCfg *config.AppConfig, client *http.Client, creds config.Credentials, lines []string, log *logrus.Logger) (batchSummary, error) {
	var summary batchSummary

	fetcher := fetch.NewFetcher(client, appCfg, creds, applog.Component(log, "fetcher"))
	template := process.TemplateFromConfig(appCfg, applog.Component(log, "template"))
	extractor := process.NewExtractor(template, applog.Component(log, "extractor"))
	pipeline := crawler.NewPipeline(fetcher, extractor, applog.Component(log, "pipeline"))

	recorder := metrics.NewRecorder()
	sinks := []crawler.ResultSink{recorder}
	if appCfg.MetricsAddr != "" {
		metricsCtx, stopMetrics := context.WithCancel(ctx)
		metricsDone := make(chan struct{})
		go func() {
			defer close(metricsDone)
			if err := recorder.Serve(metricsCtx, appCfg.MetricsAddr, applog.Component(log, "metrics")); err != nil {
				log.Errorf("Metrics server error: %v", err)
			}
		}()
		defer func() {
			stopMetrics()
			<-metricsDone
		}()
	}

	if appCfg.EnableLedger {
		ledger, err := storage.NewBadgerStore(appCfg.StateDir, applog.Component(log, "ledger"))
		if err != nil {
			return summary, err
		}
		defer ledger.Close()

		gcCtx, stopGC := context.WithCancel(ctx)
		defer stopGC()
		go ledger.RunGC(gcCtx, 10*time.Minute)

		if appCfg.SkipSucceeded {
			remaining, skipped, err := ledger.FilterSucceeded(lines)
			if err != nil {
				return summary, err
			}
			summary.Skipped = skipped
			if skipped > 0 {
				log.Infof("Skipping %d URLs already downloaded", skipped)
			}
			if skipped > 0 && len(parse.AcceptedLines(remaining)) == 0 {
				return summary, nil
			}
			lines = remaining
		}
		sinks = append(sinks, ledger)
	}

	renderers, closeRenderers := buildRenderers(appCfg, log)
	defer closeRenderers()

	om := crawler.NewOutputManager(applog.Component(log, "output"), appCfg, renderers...)
	if err := om.Prepare(); err != nil {
		return summary, err
	}

	sched := crawler.NewScheduler(pipeline, appCfg, applog.Component(log, "scheduler"), sinks...)
	results, err := sched.Run(ctx, lines)
	if err != nil {
		return summary, err
	}
	summary.BatchID = sched.ID

	// Results of in-flight tasks still get saved after a cancel
	handleCtx := context.WithoutCancel(ctx)
	for result := range results {
		rec := om.Handle(handleCtx, result)
		state := sched.State()
		entry := log.WithFields(logrus.Fields{"seq": result.Seq + 1, "url": result.URL})
		if result.Success {
			entry.Infof("[%d/%d] Saved '%s' -> %s", state.Completed, state.Total, result.Title, rec.Path)
		} else {
			entry.Warnf("[%d/%d] %s: %s", state.Completed, state.Total, result.Status(), result.Error)
		}
	}

	summary.State = sched.State()
	summary.Saved = om.Saved()
	// A cancel that arrives after the last result does not make the batch incomplete
	summary.Cancelled = ctx.Err() != nil && !summary.State.Done()

	if appCfg.ExportCSV {
		csvPath := filepath.Join(appCfg.OutputDir, config.GetEffectiveCSVFilename(*appCfg, time.Now()))
		if err := om.WriteRecordsCSV(csvPath); err != nil {
			log.Errorf("CSV export failed: %v", err)
		}
	}
	if err := om.WriteMetadataYAML(sched.ID, summary.State, summary.Cancelled); err != nil {
		log.Errorf("Metadata export failed: %v", err)
	}
	return summary, nil
}

// buildRenderers returns the enabled secondary renderers and a func releasing them.
// A PDF renderer that cannot start is logged and left out.
func buildRenderers(appCfg *config.AppConfig, log *logrus.Logger) ([]render.Renderer, func()) {
	var renderers []render.Renderer
	closeFn := func() {}

	if appCfg.RenderMarkdown {
		renderers = append(renderers, render.NewMarkdownRenderer())
	}
	if appCfg.RenderPDF {
		pdf, err := render.NewPDFRenderer(appCfg.PDFTimeout, applog.Component(log, "pdf"))
		if err != nil {
			log.Errorf("PDF output disabled: %v", err)
		} else {
			renderers = append(renderers, pdf)
			closeFn = func() {
				if err := pdf.Close(); err != nil {
					log.Warnf("Closing PDF renderer: %v", err)
				}
			}
		}
	}
	return renderers, closeFn
}

// logAppConfig logs the effective configuration at startup
func logAppConfig(appCfg *config.AppConfig, log *logrus.Logger) {
	log.WithFields(logrus.Fields{
		"concurrency":      appCfg.Concurrency,
		"timeout":          appCfg.Timeout,
		"per_worker_delay": appCfg.Delay(),
		"output_dir":       appCfg.OutputDir,
		"ledger":           appCfg.EnableLedger,
		"markdown":         appCfg.RenderMarkdown,
		"pdf":              appCfg.RenderPDF,
	}).Info("Effective configuration")
}
