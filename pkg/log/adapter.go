package log

import "github.com/sirupsen/logrus"

// BadgerLogrusAdapter routes BadgerDB internal logs into the application logger
type BadgerLogrusAdapter struct {
	*logrus.Entry // Embed logrus Entry
}

// NewBadgerLogrusAdapter creates a new adapter
func NewBadgerLogrusAdapter(entry *logrus.Entry) *BadgerLogrusAdapter {
	return &BadgerLogrusAdapter{entry}
}

// Errorf logs an error message
func (l *BadgerLogrusAdapter) Errorf(f string, v ...any) { l.Entry.Errorf(f, v...) }

// Warningf logs a warning message
func (l *BadgerLogrusAdapter) Warningf(f string, v ...any) { l.Entry.Warningf(f, v...) }

// Infof logs an info message
func (l *BadgerLogrusAdapter) Infof(f string, v ...any) { l.Entry.Infof(f, v...) }

// Debugf logs a debug message
func (l *BadgerLogrusAdapter) Debugf(f string, v ...any) { l.Entry.Debugf(f, v...) }
