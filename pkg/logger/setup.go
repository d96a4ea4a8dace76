package logger

import "io"

// SetupLogger builds the logger used by a command run. TUI runs pass a
// non-nil sink so log lines do not corrupt the alternate screen.
func SetupLogger(level string, logJSON, logSource bool, sink io.Writer) Logger {
	cfg := DefaultConfig()
	cfg.Level = ParseLevel(level)
	cfg.JSON = logJSON
	cfg.AddSource = logSource
	if sink != nil {
		cfg.Output = sink
	}
	return NewLogger(cfg)
}
