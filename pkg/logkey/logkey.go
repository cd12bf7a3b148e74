package logkey

// Common keys for structured log attributes so every handler logs them the
// same way.
const (
	TraceID = "TRACE ID"
	ERROR   = "ERROR"
)
