// Package render converts saved article documents into secondary formats.
package render

import "context"

// Source is a rendered article document already written to disk
type Source struct {
	HTML string // Full document markup
	Path string // Absolute path of the saved .html file
}

// Renderer produces one secondary file from a Source.
// Failures are reported to the caller and never affect the batch result.
type Renderer interface {
	Name() string
	Ext() string // File extension including the dot
	Render(ctx context.Context, src Source, destPath string) error
}
