package website

import (
	"errors"
	"html/template"
	"net/http"
	"strings"
	"testing"

	"git.handmade.network/hmn/syllabus/src/logging"
	"git.handmade.network/hmn/syllabus/src/templates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoticesCookieRoundTrip(t *testing.T) {
	c := &RequestContext{Logger: logging.GlobalLogger()}

	serialized := encodeNotices(c, []templates.Notice{
		{Class: NoticeSuccess, Content: "Successfully added syllabus"},
		{Class: NoticeWarn, Content: "<b>careful</b> | now"},
	})
	assert.NotContains(t, serialized, "\t")
	assert.NotContains(t, serialized, " ")

	notices := decodeNotices(serialized)
	require.Len(t, notices, 2)
	assert.Equal(t, NoticeSuccess, notices[0].Class)
	assert.Equal(t, template.HTML("Successfully added syllabus"), notices[0].Content)
	assert.Equal(t, NoticeWarn, notices[1].Class)
	assert.Equal(t, template.HTML("&lt;b&gt;careful&lt;/b&gt; | now"), notices[1].Content)
}

func TestNoticesCookieTooBig(t *testing.T) {
	c := &RequestContext{Logger: logging.GlobalLogger()}

	serialized := encodeNotices(c, []templates.Notice{
		{Class: NoticeSuccess, Content: "short"},
		{Class: NoticeSuccess, Content: template.HTML(strings.Repeat("x", maxNoticesSize))},
	})
	notices := decodeNotices(serialized)
	require.Len(t, notices, 1)
	assert.Equal(t, template.HTML("short"), notices[0].Content)

	assert.Empty(t, encodeNotices(c, nil))
	assert.Empty(t, decodeNotices("%zz"))
}

func TestSafeMessage(t *testing.T) {
	hidden := errors.New("connection refused by db.internal:5432")

	assert.Equal(t, "No such course", safeMessage(http.StatusNotFound, hidden, NewSafeError(hidden, "No such course")))
	assert.Equal(t, "There was a problem handling your request. Please try again later.", safeMessage(http.StatusInternalServerError, hidden))
	assert.Equal(t, "Bad Request", safeMessage(http.StatusBadRequest))

	assert.ErrorIs(t, NewSafeError(hidden, "oops"), hidden)
}
