package log

import (
	"bytes"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func bufferEntry(level logrus.Level) (*logrus.Entry, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})
	logger.SetLevel(level)
	return logrus.NewEntry(logger), &buf
}

func TestBadgerLogrusAdapter_Methods(t *testing.T) {
	adapter := NewBadgerLogrusAdapter(Discard())

	assert.NotPanics(t, func() { adapter.Errorf("error %s", "test") })
	assert.NotPanics(t, func() { adapter.Warningf("warning %d", 42) })
	assert.NotPanics(t, func() { adapter.Infof("info %v", true) })
	assert.NotPanics(t, func() { adapter.Debugf("debug") })
}

func TestBadgerLogrusAdapter_DemotesInfo(t *testing.T) {
	entry, buf := bufferEntry(logrus.InfoLevel)
	adapter := NewBadgerLogrusAdapter(entry)

	adapter.Infof("Replaying file id: %d\n", 3)
	assert.Empty(t, buf.String())

	adapter.Warningf("value log %s\n", "truncated")
	out := buf.String()
	assert.Contains(t, out, "level=warning")
	assert.Contains(t, out, "component=badger")
	assert.Contains(t, out, `msg="value log truncated"`)
}

func TestNew_Level(t *testing.T) {
	logger := New("debug", io.Discard)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	var buf bytes.Buffer
	logger = New("loud", &buf)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.Contains(t, buf.String(), "Invalid log level 'loud'")
}

func TestComponent(t *testing.T) {
	entry := Component(New("info", io.Discard), "navbar")
	assert.Equal(t, "navbar", entry.Data["component"])
}
