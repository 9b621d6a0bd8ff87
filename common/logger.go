// The common package holds types and variables that are common to
// multiple parts of relay, and generically useful.
package common

import (
	"go.uber.org/zap"
)

// Logger is used by all relay packages for logging. By default it is a
// no-op logger, which will keep it blissfully quiet. Should you wish to
// see logging output, replace it before creating clients or give a
// client its own logger through its Config.
var Logger = zap.NewNop()

// LoggerOr returns l, or Logger when l is nil.
func LoggerOr(l *zap.Logger) *zap.Logger {
	if l != nil {
		return l
	}
	return Logger
}
