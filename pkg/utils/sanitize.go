package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// --- Filename Sanitization ---
var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`) // Characters invalid in Windows/Unix filenames
var consecutiveUnderscores = regexp.MustCompile(`_+`)                  // Pattern to replace multiple underscores with one
const maxFilenameLength = 100                                          // Max length in bytes for sanitized filenames

// SanitizeFilename cleans a string to be safe for use as a filename component.
// Article titles are frequently CJK, so truncation never splits a multi-byte rune.
func SanitizeFilename(name string) string {
	sanitized := invalidFilenameChars.ReplaceAllString(name, "_")
	sanitized = consecutiveUnderscores.ReplaceAllString(sanitized, "_")
	sanitized = strings.Trim(sanitized, "_ ")

	if len(sanitized) > maxFilenameLength {
		cut := maxFilenameLength
		for cut > 0 && !utf8.RuneStart(sanitized[cut]) {
			cut--
		}
		sanitized = strings.Trim(sanitized[:cut], "_ ")
	}

	if sanitized == "" {
		sanitized = "untitled"
	}
	return sanitized
}

// SequencedFilename builds the "%03d_<title>" base name used for saved articles.
func SequencedFilename(seq int, title string) string {
	return fmt.Sprintf("%03d_%s", seq, SanitizeFilename(title))
}
