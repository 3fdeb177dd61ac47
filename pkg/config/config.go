package config

import "time"

// Built-in identity defaults, matching what the site serves full article markup to
const (
	DefaultUserAgent         = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultFallbackUserAgent = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

// AppConfig holds the resolved application configuration
type AppConfig struct {
	Timeout              time.Duration    `yaml:"timeout"`                     // Per-request fetch timeout
	OutputDir            string           `yaml:"output_dir"`                  // Where the caller saves documents (unused by the batch engine)
	UserAgent            string           `yaml:"user_agent"`                  // Primary (browser-like) identity
	FallbackUserAgent    string           `yaml:"fallback_user_agent"`         // Fallback (crawler-like) identity
	Concurrency          int              `yaml:"concurrency"`                 // Number of batch workers
	PerWorkerDelay       *time.Duration   `yaml:"per_worker_delay,omitempty"`  // Sleep after each task, per worker (nil = default)
	TemplatePath         string           `yaml:"template_path,omitempty"`     // Optional HTML template file
	Template             string           `yaml:"template,omitempty"`          // Optional inline template (wins over template_path)
	MaxPageSizeBytes     int64            `yaml:"max_page_size_bytes,omitempty"`
	StateDir             string           `yaml:"state_dir,omitempty"`         // Result ledger location
	EnableLedger         bool             `yaml:"enable_ledger,omitempty"`     // Record outcomes in the result ledger
	SkipSucceeded        bool             `yaml:"skip_succeeded,omitempty"`    // Drop URLs the ledger already marks successful
	RenderPDF            bool             `yaml:"render_pdf,omitempty"`        // Also print each document to PDF
	RenderMarkdown       bool             `yaml:"render_markdown,omitempty"`   // Also convert each document to Markdown
	PDFTimeout           time.Duration    `yaml:"pdf_timeout,omitempty"`       // Per-document PDF rendering timeout
	ExportCSV            bool             `yaml:"export_csv,omitempty"`        // Write a CSV record of the batch
	CSVFilename          string           `yaml:"csv_filename,omitempty"`
	EnableMetadataYAML   bool             `yaml:"enable_metadata_yaml,omitempty"`
	MetadataYAMLFilename string           `yaml:"metadata_yaml_filename,omitempty"`
	MetricsAddr          string           `yaml:"metrics_addr,omitempty"` // e.g. localhost:9090; empty disables /metrics
	HTTPClientSettings   HTTPClientConfig `yaml:"http_client_settings,omitempty"`
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall client ceiling; per-request timeout comes from AppConfig.Timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"` // Timeout for 100-continue
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"`     // nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
}

// Delay returns the effective per-worker delay
func (c *AppConfig) Delay() time.Duration {
	if c.PerWorkerDelay == nil {
		return DefaultPerWorkerDelay
	}
	return *c.PerWorkerDelay
}

// GetEffectiveCSVFilename returns the CSV record filename, falling back to a timestamped default
func GetEffectiveCSVFilename(appCfg AppConfig, now time.Time) string {
	if appCfg.CSVFilename != "" {
		return appCfg.CSVFilename
	}
	return "download_records_" + now.Format("20060102_150405") + ".csv"
}

// GetEffectiveMetadataYAMLFilename determines the filename for the YAML metadata.
func GetEffectiveMetadataYAMLFilename(appCfg AppConfig) string {
	if appCfg.MetadataYAMLFilename != "" {
		return appCfg.MetadataYAMLFilename
	}
	return "metadata.yaml"
}
