package lang

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestT(t *testing.T) {
	assert.Equal(t, "Successfully added syllabus", T(SuccessfulAdd))
	assert.Equal(t, "Download: syllabus.pdf", T(ClickToDownload, "syllabus.pdf"))
	assert.Equal(t, "no_such_message", T("no_such_message"))
	assert.Equal(t, "preview", T(Preview))
}

func TestAllMessagesRegistered(t *testing.T) {
	for key, text := range messages {
		if text == "" {
			continue
		}
		expected := strings.ReplaceAll(strings.ReplaceAll(text, "{0}", "x"), "{1}", "x")
		assert.Equal(t, expected, T(key, "x", "x"), "message %s is not registered", key)
	}
}

func TestFormatDateTime(t *testing.T) {
	formatted := FormatDateTime(time.Date(2024, time.September, 3, 14, 5, 0, 0, time.UTC))
	assert.Contains(t, formatted, "September 3, 2024")
}
