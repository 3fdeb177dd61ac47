package models

import "time"

// Task is one accepted URL scheduled for processing. Seq is its position among accepted URLs (0-based).
type Task struct {
	Seq int
	URL string
}

// RawPage is a fetched response, consumed by the detector and extractor and then discarded
type RawPage struct {
	StatusCode  int
	Body        string
	FinalTitle  string // Text of the <title> element as received
	ContentType string
}

// Result is the terminal per-task outcome produced by the item pipeline.
// Success implies SanitizedHTML is non-empty and Error is empty; failure implies SanitizedHTML is empty.
type Result struct {
	Seq           int       `json:"seq" yaml:"seq"`
	Success       bool      `json:"success" yaml:"success"`
	URL           string    `json:"url" yaml:"url"`
	ArticleID     string    `json:"article_id,omitempty" yaml:"article_id,omitempty"`
	Title         string    `json:"title,omitempty" yaml:"title,omitempty"`
	Error         string    `json:"error,omitempty" yaml:"error,omitempty"`
	SanitizedHTML string    `json:"-" yaml:"-"`
	HTTPStatus    int       `json:"http_status" yaml:"http_status"`
	ContentType   string    `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	ElapsedMillis int64     `json:"elapsed_ms" yaml:"elapsed_ms"`
	ContentLength int       `json:"content_length" yaml:"content_length"`
	ItemExists    bool      `json:"item_exists" yaml:"item_exists"`
	ProducedAt    time.Time `json:"produced_at" yaml:"produced_at"`
	Identity      string    `json:"identity,omitempty" yaml:"identity,omitempty"`       // Identity that produced the extracted page
	Restriction   string    `json:"restriction,omitempty" yaml:"restriction,omitempty"` // Reason seen on the primary attempt, if any
}

// Status reports the three-way outcome of a result
func (r Result) Status() ResultStatus {
	switch {
	case r.Success:
		return ResultStatusSuccess
	case !r.ItemExists:
		return ResultStatusNotFound
	default:
		return ResultStatusFailure
	}
}

// NewErrorResult builds a failed Result. A 404 status marks the item as nonexistent.
func NewErrorResult(task Task, errMsg string, httpStatus int) Result {
	return Result{
		Seq:        task.Seq,
		Success:    false,
		URL:        task.URL,
		Error:      errMsg,
		HTTPStatus: httpStatus,
		ItemExists: httpStatus != 404,
		ProducedAt: time.Now(),
	}
}

// BatchState is a snapshot of the scheduler's aggregate counters
type BatchState struct {
	Total     int64 `json:"total" yaml:"total"`
	Completed int64 `json:"completed" yaml:"completed"`
	Succeeded int64 `json:"succeeded" yaml:"succeeded"`
	Failed    int64 `json:"failed" yaml:"failed"`
	NotFound  int64 `json:"not_found" yaml:"not_found"`
}

// Done reports whether every accepted task has produced a result
func (s BatchState) Done() bool {
	return s.Total > 0 && s.Completed >= s.Total
}

// ResultDBEntry stores the outcome of a URL in the result ledger
type ResultDBEntry struct {
	Status        ResultStatus `json:"status"`
	Title         string       `json:"title,omitempty"`
	HTTPStatus    int          `json:"http_status"`
	ErrorType     string       `json:"error_type,omitempty"`
	ContentHash   string       `json:"content_hash,omitempty"`
	ElapsedMillis int64        `json:"elapsed_ms"`
	BatchID       string       `json:"batch_id,omitempty"`
	LastAttempt   time.Time    `json:"last_attempt"`
}

// BatchMetadata summarizes one batch for the YAML metadata file
type BatchMetadata struct {
	BatchID   string         `yaml:"batch_id"`
	StartTime time.Time      `yaml:"start_time"`
	EndTime   time.Time      `yaml:"end_time"`
	Cancelled bool           `yaml:"cancelled"`
	Counters  BatchState     `yaml:"counters"`
	Items     []ItemMetadata `yaml:"items"`
}

// ItemMetadata holds metadata for a single processed item.
type ItemMetadata struct {
	Seq           int    `yaml:"seq"`
	URL           string `yaml:"url"`
	ArticleID     string `yaml:"article_id,omitempty"`
	Title         string `yaml:"title,omitempty"`
	Status        string `yaml:"status"`
	HTTPStatus    int    `yaml:"http_status"`
	ElapsedMillis int64  `yaml:"elapsed_ms"`
	LocalFilePath string `yaml:"local_file_path,omitempty"`
	ContentHash   string `yaml:"content_hash,omitempty"`
	Error         string `yaml:"error,omitempty"`
}
