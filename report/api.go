package report

import (
	"fmt"
	"os"
)

// Fatal reports an unrecoverable backend condition and aborts the process.
// It is used for missing bindings and other "should never happen if the front
// end is well-formed" defensive checks.
func Fatal(msg string, args ...interface{}) {
	displayFatal(fmt.Sprintf(msg, args...))
	os.Exit(1)
}

// Unsupported reports a tree construct the backend does not implement and
// aborts the process.  The argument names the unhandled kind.
func Unsupported(what string, node interface{}) {
	displayFatal(fmt.Sprintf("unsupported %s: %T", what, node))
	os.Exit(1)
}

// Verification reports a structural verification failure for the named
// routine.  The failure is recorded but compilation continues: verification
// failures flag backend bugs without necessarily poisoning other routines.
// The module dump is displayed at verbose log level for debugging.
func Verification(routine string, err error, moduleDump string) {
	rep.m.Lock()
	defer rep.m.Unlock()

	rep.errorCount++

	if rep.logLevel >= LogLevelError {
		displayVerification(routine, err)
	}
	if rep.logLevel == LogLevelVerbose {
		displayModuleDump(moduleDump)
	}
}

// Warningf reports a non-fatal backend warning.
func Warningf(msg string, args ...interface{}) {
	rep.m.Lock()
	defer rep.m.Unlock()

	if rep.logLevel >= LogLevelWarn {
		displayWarning(fmt.Sprintf(msg, args...))
	}
}

// Logf reports verbose progress information.
func Logf(msg string, args ...interface{}) {
	rep.m.Lock()
	defer rep.m.Unlock()

	if rep.logLevel == LogLevelVerbose {
		displayInfo(fmt.Sprintf(msg, args...))
	}
}
