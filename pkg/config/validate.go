package config

import (
	"fmt"
	"time"
)

const (
	DefaultTimeout          = 10 * time.Second
	DefaultConcurrency      = 6
	DefaultPerWorkerDelay   = 1500 * time.Millisecond
	DefaultOutputDir        = "./CSDN_Downloads"
	DefaultStateDir         = "./article_state"
	DefaultMaxPageSizeBytes = 20 * 1024 * 1024
	DefaultPDFTimeout       = 60 * time.Second
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings; a malformed or missing value is never fatal.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	// Timeout
	if c.Timeout < 0 {
		warnings = append(warnings, fmt.Sprintf("timeout cannot be negative, defaulting to %v", DefaultTimeout))
		c.Timeout = DefaultTimeout
	} else if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}

	// Concurrency
	if c.Concurrency < 0 {
		warnings = append(warnings, fmt.Sprintf("concurrency should be > 0, defaulting to %d", DefaultConcurrency))
		c.Concurrency = DefaultConcurrency
	} else if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}

	// PerWorkerDelay (nil = default, explicit 0 = no delay)
	if c.PerWorkerDelay == nil {
		d := DefaultPerWorkerDelay
		c.PerWorkerDelay = &d
	} else if *c.PerWorkerDelay < 0 {
		warnings = append(warnings, fmt.Sprintf("per_worker_delay cannot be negative, defaulting to %v", DefaultPerWorkerDelay))
		d := DefaultPerWorkerDelay
		c.PerWorkerDelay = &d
	}

	// Identities
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.FallbackUserAgent == "" {
		c.FallbackUserAgent = DefaultFallbackUserAgent
	}

	// OutputDir
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}

	// StateDir
	if c.StateDir == "" {
		if c.EnableLedger || c.SkipSucceeded {
			warnings = append(warnings, fmt.Sprintf("state_dir is empty, defaulting to '%s'", DefaultStateDir))
		}
		c.StateDir = DefaultStateDir
	}
	if c.SkipSucceeded && !c.EnableLedger {
		warnings = append(warnings, "skip_succeeded requires the result ledger, enabling enable_ledger")
		c.EnableLedger = true
	}

	// MaxPageSizeBytes
	if c.MaxPageSizeBytes < 0 {
		warnings = append(warnings, "max_page_size_bytes cannot be negative, using default")
		c.MaxPageSizeBytes = DefaultMaxPageSizeBytes
	} else if c.MaxPageSizeBytes == 0 {
		c.MaxPageSizeBytes = DefaultMaxPageSizeBytes
	}

	// PDFTimeout
	if c.PDFTimeout < 0 {
		warnings = append(warnings, fmt.Sprintf("pdf_timeout cannot be negative, defaulting to %v", DefaultPDFTimeout))
		c.PDFTimeout = DefaultPDFTimeout
	} else if c.PDFTimeout == 0 {
		c.PDFTimeout = DefaultPDFTimeout
	}

	// Template: inline wins over path
	if c.Template != "" && c.TemplatePath != "" {
		warnings = append(warnings, "both template and template_path set, using inline template")
	}

	// Metadata YAML filename
	if c.EnableMetadataYAML && c.MetadataYAMLFilename == "" {
		c.MetadataYAMLFilename = "metadata.yaml"
	}

	c.validateHTTPClientSettings()

	return warnings, nil // AppConfig validation never fails fatally
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.Timeout <= 0 {
		h.Timeout = 45 * time.Second
	}
	if h.Timeout < c.Timeout {
		h.Timeout = c.Timeout
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = c.Concurrency
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 15 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}
