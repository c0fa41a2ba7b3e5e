package datastore

import (
	"log/slog"
	"sync"

	"github.com/mveikko/daybook-go/internal/logging"
)

var (
	serviceLogger *slog.Logger
	loggerOnce    sync.Once
)

// GetLogger returns the datastore service logger, falling back to the
// default slog logger when logging has not been initialized (tests).
func GetLogger() *slog.Logger {
	loggerOnce.Do(func() {
		serviceLogger = logging.ForService("datastore")
		if serviceLogger == nil {
			serviceLogger = slog.Default().With("service", "datastore")
		}
	})
	return serviceLogger
}
