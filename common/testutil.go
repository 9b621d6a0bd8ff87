package common

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger captures log entries so tests can make assertions
// against them.
type TestLogger struct {
	*zap.Logger

	logs      *observer.ObservedLogs
	read      int
	oldLogger *zap.Logger
	t         testing.TB
}

// NewTestLogger installs a capturing logger as the common Logger. The
// previous logger is restored when the test finishes.
func NewTestLogger(t testing.TB) *TestLogger {
	core, logs := observer.New(zapcore.DebugLevel)
	tl := &TestLogger{
		Logger:    zap.New(core),
		logs:      logs,
		oldLogger: Logger,
		t:         t,
	}
	Logger = tl.Logger
	t.Cleanup(tl.TearDown)

	return tl
}

// TearDown sets the common logger back to its previous state.
func (tl *TestLogger) TearDown() {
	Logger = tl.oldLogger
}

// LogLineMatches reads the next unread entry and checks that its
// message matches the given regular expression.
func (tl *TestLogger) LogLineMatches(match string) observer.LoggedEntry {
	e := tl.next()
	require.Regexp(tl.t, match, e.Message)
	return e
}

// Entries returns every captured entry with the given message.
func (tl *TestLogger) Entries(msg string) []observer.LoggedEntry {
	return tl.logs.FilterMessage(msg).All()
}

func (tl *TestLogger) next() observer.LoggedEntry {
	entries := tl.logs.All()
	require.Greater(tl.t, len(entries), tl.read, "no more log entries")
	e := entries[tl.read]
	tl.read++
	return e
}
