package logging

// LogEntry represents a structured log record emitted by the engine.
type LogEntry struct {
	// Standard fields
	Time     int64
	Severity Severity
	Message  string
	File     string
	Line     int
	Function string

	// General structured data (generation, phase, fitness, run_id, ...)
	Fields map[string]interface{}
}
