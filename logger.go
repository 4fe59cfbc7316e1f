package identity

import "log"

// Logger is the minimal logging surface this package needs. Install
// your own with the With*Logger builder methods, the default writes
// to the standard logger.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type defLogger struct{}

func (d defLogger) Debug(format string, args ...any) {
	log.Printf("[DBG] "+format, args...)
}

func (d defLogger) Info(format string, args ...any) {
	log.Printf("[INF] "+format, args...)
}

func (d defLogger) Warn(format string, args ...any) {
	log.Printf("[WRN] "+format, args...)
}

func (d defLogger) Error(format string, args ...any) {
	log.Printf("[ERR] "+format, args...)
}
