package models

// ResultStatus is the three-way outcome of a processed item
type ResultStatus string

const (
	ResultStatusUnset    ResultStatus = ""          // Zero value = unset/unknown
	ResultStatusSuccess  ResultStatus = "success"   // Retrieved and extracted
	ResultStatusFailure  ResultStatus = "failure"   // Exists but could not be retrieved
	ResultStatusNotFound ResultStatus = "not_found" // Definitively does not exist (404)
)

// String implements fmt.Stringer for logging
func (s ResultStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// IsValid returns true if the status is a known terminal value
func (s ResultStatus) IsValid() bool {
	switch s {
	case ResultStatusSuccess, ResultStatusFailure, ResultStatusNotFound:
		return true
	}
	return false
}

// LedgerStatus is the state of a URL in the result ledger lookup
type LedgerStatus string

const (
	LedgerStatusMissing LedgerStatus = "missing"  // URL never recorded
	LedgerStatusFound   LedgerStatus = "found"    // Entry present and decoded
	LedgerStatusDBError LedgerStatus = "db_error" // Database error occurred
)
