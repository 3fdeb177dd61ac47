package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/article-dl/pkg/utils"
)

// Load reads a YAML config file and returns a validated AppConfig.
// Keys are decoded one at a time so a malformed value only costs that key; every recovery is returned as a warning.
// A missing file yields the defaults. Only an unreadable or structurally invalid file is an error.
func Load(path string, log *logrus.Entry) (*AppConfig, []string, error) {
	cfg := &AppConfig{}
	var warnings []string

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Infof("Config file '%s' not found, using built-in defaults", path)
	case err != nil:
		return nil, nil, fmt.Errorf("%w: read config '%s': %w", utils.ErrFilesystem, path, err)
	default:
		decodeWarnings, decodeErr := decodeFields(data, cfg)
		if decodeErr != nil {
			return nil, nil, decodeErr
		}
		warnings = append(warnings, decodeWarnings...)
	}

	validateWarnings, _ := cfg.Validate()
	warnings = append(warnings, validateWarnings...)
	return cfg, warnings, nil
}

// decodeFields decodes each top-level key into its AppConfig field.
func decodeFields(data []byte, cfg *AppConfig) ([]string, error) {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse config: %w", utils.ErrConfigValidation, err)
	}

	targets := map[string]any{
		"timeout":                &cfg.Timeout,
		"output_dir":             &cfg.OutputDir,
		"user_agent":             &cfg.UserAgent,
		"fallback_user_agent":    &cfg.FallbackUserAgent,
		"concurrency":            &cfg.Concurrency,
		"per_worker_delay":       &cfg.PerWorkerDelay,
		"template_path":          &cfg.TemplatePath,
		"template":               &cfg.Template,
		"max_page_size_bytes":    &cfg.MaxPageSizeBytes,
		"state_dir":              &cfg.StateDir,
		"enable_ledger":          &cfg.EnableLedger,
		"skip_succeeded":         &cfg.SkipSucceeded,
		"render_pdf":             &cfg.RenderPDF,
		"render_markdown":        &cfg.RenderMarkdown,
		"pdf_timeout":            &cfg.PDFTimeout,
		"export_csv":             &cfg.ExportCSV,
		"csv_filename":           &cfg.CSVFilename,
		"enable_metadata_yaml":   &cfg.EnableMetadataYAML,
		"metadata_yaml_filename": &cfg.MetadataYAMLFilename,
		"metrics_addr":           &cfg.MetricsAddr,
		"http_client_settings":   &cfg.HTTPClientSettings,
	}

	// Sorted for stable warning order
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var warnings []string
	for _, key := range keys {
		node := raw[key]
		target, known := targets[key]
		if !known {
			warnings = append(warnings, fmt.Sprintf("unknown config key '%s' ignored", key))
			continue
		}
		if err := node.Decode(target); err != nil {
			warnings = append(warnings, fmt.Sprintf("invalid value for '%s' (%v), using default", key, err))
		}
	}
	return warnings, nil
}
