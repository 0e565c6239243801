package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoggingFilePath(t *testing.T) {
	day := time.Date(2024, 3, 5, 17, 4, 0, 0, time.UTC)
	assert.Equal(t, "/var/log/ledger-2024-03-05.log", LoggingFilePath("/var/log/ledger.log", day))
	assert.Equal(t, "/var/log/ledger-2024-03-05", LoggingFilePath("/var/log/ledger", day))
}

func TestLoggerWritesToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.log")

	logger := Logger(path)
	logger.Info("entry recorded")

	content, err := os.ReadFile(LoggingFilePath(path, time.Now()))
	assert.NoError(t, err)
	assert.Contains(t, string(content), "entry recorded")
}
