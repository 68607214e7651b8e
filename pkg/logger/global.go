package logger

import (
	"os"
	"sync"
)

var (
	globalLogger *Logger
	once         sync.Once
)

// GetLogger returns the process-wide logger, initializing it lazily from
// the LOG_LEVEL / DEBUG environment variables on first use.
func GetLogger() *Logger {
	once.Do(func() {
		if globalLogger == nil {
			level := "info"
			if os.Getenv("DEBUG") == "true" {
				level = "debug"
			} else if v := os.Getenv("LOG_LEVEL"); v != "" {
				level = v
			}

			globalLogger = New(Config{
				Level:  level,
				Format: "json",
				Output: "stdout",
			})
		}
	})
	return globalLogger
}

// SetLogger sets the global logger instance. Call before the first
// GetLogger to take effect everywhere.
func SetLogger(logger *Logger) {
	globalLogger = logger
}
