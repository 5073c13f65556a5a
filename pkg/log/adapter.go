package log

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// BadgerLogrusAdapter implements badger.Logger on top of a logrus entry.
// Badger reports routine compaction and replay progress at info level, so those lines are
// demoted to debug to keep navigation logs readable.
type BadgerLogrusAdapter struct {
	entry *logrus.Entry
}

// NewBadgerLogrusAdapter creates a new adapter tagged with component=badger
func NewBadgerLogrusAdapter(entry *logrus.Entry) *BadgerLogrusAdapter {
	return &BadgerLogrusAdapter{entry: entry.WithField("component", "badger")}
}

// Errorf logs an error message
func (l *BadgerLogrusAdapter) Errorf(f string, v ...interface{}) {
	l.entry.Errorf(trimNewline(f), v...)
}

// Warningf logs a warning message
func (l *BadgerLogrusAdapter) Warningf(f string, v ...interface{}) {
	l.entry.Warnf(trimNewline(f), v...)
}

// Infof logs badger's info output at debug level
func (l *BadgerLogrusAdapter) Infof(f string, v ...interface{}) {
	l.entry.Debugf(trimNewline(f), v...)
}

// Debugf logs at trace level
func (l *BadgerLogrusAdapter) Debugf(f string, v ...interface{}) {
	l.entry.Tracef(trimNewline(f), v...)
}

// badger terminates most format strings with a newline, logrus adds its own
func trimNewline(f string) string {
	return strings.TrimSuffix(f, "\n")
}
