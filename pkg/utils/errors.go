package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrNetwork          = errors.New("network error")                 // Transport-level failure (DNS, refused, timeout)
	ErrExtraction       = errors.New("content extraction failed")     // No parseable document to extract from
	ErrEmptyBatch       = errors.New("no acceptable URLs in batch")   // Whole-batch precondition
	ErrConfigValidation = errors.New("configuration validation error")
	ErrRequestCreation  = errors.New("failed to create HTTP request")
	ErrResponseBodyRead = errors.New("failed to read response body")
	ErrParsing          = errors.New("parsing error") // Wraps specific parsing error (HTML, URL)
	ErrFilesystem       = errors.New("filesystem error")
	ErrDatabase         = errors.New("database error") // Wraps badger errors
	ErrRender           = errors.New("render error")   // Downstream renderer failure (PDF, Markdown)
)

// WrapErrorf annotates err with a formatted context message. Returns nil if err is nil.
func WrapErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// CategorizeError maps an error to a predefined category string for logging/metrics.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	switch {
	case errors.Is(err, ErrNetwork):
		// Body read failures are wrapped by ErrNetwork too; keep them distinct
		if errors.Is(err, ErrResponseBodyRead) {
			return "Network_BodyRead"
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "Network_Timeout"
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "Network_Timeout"
		}
		return categorizeNetworkMessage(err.Error(), "Network_Other")
	case errors.Is(err, ErrExtraction):
		return "Content_Extraction"
	case errors.Is(err, ErrEmptyBatch):
		return "Batch_Empty"
	case errors.Is(err, ErrParsing):
		errMsg := err.Error()
		if strings.Contains(errMsg, "URL") {
			return "Content_ParsingURL"
		}
		if strings.Contains(errMsg, "HTML") {
			return "Content_ParsingHTML"
		}
		return "Content_ParsingOther"
	case errors.Is(err, ErrRender):
		return "Render_Failed"
	case errors.Is(err, ErrFilesystem):
		if errors.Is(err, os.ErrPermission) {
			return "Filesystem_Permission"
		}
		if errors.Is(err, os.ErrNotExist) {
			return "Filesystem_NotExist"
		}
		if errors.Is(err, os.ErrExist) {
			return "Filesystem_Exist"
		}
		return "Filesystem_Other"
	case errors.Is(err, ErrDatabase):
		return "Database_Other"
	case errors.Is(err, ErrRequestCreation):
		return "Internal_RequestCreation"
	case errors.Is(err, ErrResponseBodyRead):
		return "Network_BodyRead"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	}

	// --- Fallback checks for common underlying error types/strings ---
	if errors.Is(err, context.Canceled) {
		return "System_ContextCanceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "System_ContextDeadlineExceeded"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Network_Timeout"
	}
	return categorizeNetworkMessage(err.Error(), "Unknown")
}

// categorizeNetworkMessage classifies by well-known transport error substrings.
func categorizeNetworkMessage(errMsg, fallback string) string {
	lowerErrMsg := strings.ToLower(errMsg)
	switch {
	case strings.Contains(lowerErrMsg, "timeout"), strings.Contains(lowerErrMsg, "deadline exceeded"):
		return "Network_Timeout"
	case strings.Contains(lowerErrMsg, "connection refused"):
		return "Network_ConnectionRefused"
	case strings.Contains(lowerErrMsg, "no such host"):
		return "Network_DNSLookup"
	case strings.Contains(lowerErrMsg, "tls"), strings.Contains(lowerErrMsg, "certificate"):
		return "Network_TLS"
	case strings.Contains(lowerErrMsg, "reset by peer"):
		return "Network_ConnectionReset"
	case strings.Contains(lowerErrMsg, "broken pipe"):
		return "Network_BrokenPipe"
	}
	return fallback
}
