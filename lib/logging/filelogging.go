package logging

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/ziflex/lecho/v3"
)

// Logger writes to stdout, or to a dated file when logFilePath is set.
func Logger(logFilePath string) *lecho.Logger {
	logger := lecho.New(
		os.Stdout, // default to STDOUT
		lecho.WithLevel(log.DEBUG),
		lecho.WithTimestamp(),
	)
	if logFilePath != "" {
		file, err := GetLoggingFile(logFilePath, time.Now())
		if err != nil {
			logger.Errorf("failed to create logging file: %v", err)
			return logger
		}
		logger.SetOutput(file)
	}

	return logger
}

// LoggingFilePath inserts the day into path, ledger.log becomes ledger-2024-03-05.log.
func LoggingFilePath(path string, day time.Time) string {
	stamp := day.Format("2006-01-02")
	extension := filepath.Ext(path)
	if extension != "" {
		return strings.TrimSuffix(path, extension) + "-" + stamp + extension
	}
	return path + "-" + stamp
}

func GetLoggingFile(path string, day time.Time) (*os.File, error) {
	return os.OpenFile(LoggingFilePath(path, day), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
