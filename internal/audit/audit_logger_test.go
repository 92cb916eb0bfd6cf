package audit

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureAudit(t *testing.T, emit func(logger *Logger)) Event {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	emit(NewLogger())

	line := buf.String()
	start := strings.Index(line, "{")
	assert.Contains(t, line, "AUDIT: ")
	assert.GreaterOrEqual(t, start, 0)

	var event Event
	assert.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(line[start:])), &event))
	return event
}

func TestLogger_LogSettlement(t *testing.T) {
	event := captureAudit(t, func(logger *Logger) {
		logger.LogSettlement("ref-1", 7, 3, 15000, "SUCCESS")
	})

	assert.Equal(t, "SETTLEMENT", event.EventType)
	assert.Equal(t, "ref-1", event.Reference)
	assert.Equal(t, int64(15000), event.Amount)
	assert.Equal(t, "SUCCESS", event.Status)
}

func TestLogger_LogOperation(t *testing.T) {
	event := captureAudit(t, func(logger *Logger) {
		logger.LogOperation("ref-2", 7, "deposit", "amount 5000")
	})

	assert.Equal(t, "deposit", event.EventType)
	assert.Equal(t, "ref-2", event.Reference)
	assert.Equal(t, int64(7), event.UserID)
	assert.Equal(t, "SUCCESS", event.Status)
}

func TestLogger_LogError(t *testing.T) {
	event := captureAudit(t, func(logger *Logger) {
		logger.LogError("ref-3", 7, assert.AnError)
	})

	assert.Equal(t, "ERROR", event.EventType)
	assert.Equal(t, "FAILED", event.Status)
}
