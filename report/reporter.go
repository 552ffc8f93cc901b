package report

import "sync"

// Reporter is responsible for reporting errors, warnings, and other kinds of
// messages to the user during compilation.  The reporter respects the set log
// level and is synchronized so that its methods remain safe should a driver
// ever report from multiple goroutines.
type Reporter struct {
	// The mutex used to synchronize reporting calls.
	m *sync.Mutex

	// The selected log level.  One of the enumerated log levels below.
	logLevel int

	// Number of non-fatal errors reported so far.
	errorCount int
}

// Enumeration of the different possible log levels.
const (
	LogLevelSilent  = iota // Displays no output.
	LogLevelError          // Displays only errors.
	LogLevelWarn           // Displays warnings and errors.
	LogLevelVerbose        // Displays all compilation messages (default).
)

// rep is the global reporter instance.
var rep = &Reporter{
	m:        &sync.Mutex{},
	logLevel: LogLevelVerbose,
}

// InitReporter initializes the global reporter to the given log level.
func InitReporter(logLevel int) {
	rep = &Reporter{
		m:        &sync.Mutex{},
		logLevel: logLevel,
	}
}

// ShouldProceed indicates whether any non-fatal errors have been reported
// that should stop compilation after the current phase.
func ShouldProceed() bool {
	rep.m.Lock()
	defer rep.m.Unlock()

	return rep.errorCount == 0
}
