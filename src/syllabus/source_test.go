package syllabus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

func TestNormalizeUrl(t *testing.T) {
	t.Run("already absolute", func(t *testing.T) {
		u, err := NormalizeUrl("https://example.edu/syllabus.pdf")
		require.NoError(t, err)
		assert.Equal(t, "https://example.edu/syllabus.pdf", u)
	})
	t.Run("missing scheme", func(t *testing.T) {
		u, err := NormalizeUrl("  example.edu/syl.pdf ")
		require.NoError(t, err)
		assert.Equal(t, "http://example.edu/syl.pdf", u)
	})
	t.Run("not a url", func(t *testing.T) {
		_, err := NormalizeUrl("see the course reader")
		var srcErr *InvalidSourceError
		require.ErrorAs(t, err, &srcErr)
		assert.Equal(t, SourceBadUrl, srcErr.Problem)
		assert.ErrorIs(t, err, ErrInvalidSource)
	})
	t.Run("empty", func(t *testing.T) {
		_, err := NormalizeUrl("   ")
		var srcErr *InvalidSourceError
		require.ErrorAs(t, err, &srcErr)
		assert.Equal(t, SourceMissing, srcErr.Problem)
	})
}

func TestCheckUpload(t *testing.T) {
	t.Run("pdf", func(t *testing.T) {
		upload := &Upload{Filename: "syllabus.pdf", Content: samplePDF}
		require.NoError(t, CheckUpload(upload, 0))
		assert.Equal(t, PDFMimeType, upload.MimeType)
	})
	t.Run("not a pdf", func(t *testing.T) {
		err := CheckUpload(&Upload{Filename: "syllabus.pdf", Content: []byte("just some text")}, 0)
		var srcErr *InvalidSourceError
		require.ErrorAs(t, err, &srcErr)
		assert.Equal(t, SourceNotPDF, srcErr.Problem)
	})
	t.Run("too large", func(t *testing.T) {
		err := CheckUpload(&Upload{Filename: "syllabus.pdf", Content: samplePDF}, 10)
		var srcErr *InvalidSourceError
		require.ErrorAs(t, err, &srcErr)
		assert.Equal(t, SourceTooLarge, srcErr.Problem)
	})
	t.Run("empty", func(t *testing.T) {
		err := CheckUpload(&Upload{Filename: "syllabus.pdf"}, 0)
		assert.ErrorIs(t, err, ErrInvalidSource)
	})
}
