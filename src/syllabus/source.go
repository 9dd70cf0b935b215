package syllabus

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"mvdan.cc/xurls/v2"
)

const PDFMimeType = "application/pdf"

var reUrl = xurls.Relaxed()

/*
Cleans up a syllabus link typed by an instructor. Links without a scheme get
http:// so that "example.edu/syllabus.pdf" works. Anything that is not a single
http(s) URL is rejected.
*/
func NormalizeUrl(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &InvalidSourceError{Problem: SourceMissing}
	}

	if match := reUrl.FindString(raw); match != raw {
		return "", &InvalidSourceError{Problem: SourceBadUrl, Detail: fmt.Sprintf("%q is not a URL", raw)}
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", &InvalidSourceError{Problem: SourceBadUrl, Detail: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &InvalidSourceError{Problem: SourceBadUrl, Detail: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
	}
	if u.Host == "" {
		return "", &InvalidSourceError{Problem: SourceBadUrl, Detail: "missing host"}
	}

	return u.String(), nil
}

type Upload struct {
	Filename   string
	Content    []byte
	MimeType   string
	UploaderID *int
}

func (u *Upload) Empty() bool {
	return u == nil || len(u.Content) == 0
}

// Checks that an upload is a PDF no bigger than maxSize (0 means no limit), and
// fills in its mime type from the content.
func CheckUpload(upload *Upload, maxSize int) error {
	if upload.Empty() {
		return &InvalidSourceError{Problem: SourceMissing}
	}
	if maxSize > 0 && len(upload.Content) > maxSize {
		return &InvalidSourceError{
			Problem: SourceTooLarge,
			Detail:  fmt.Sprintf("file is %d bytes, limit is %d", len(upload.Content), maxSize),
		}
	}

	mime := mimetype.Detect(upload.Content)
	if !mime.Is(PDFMimeType) {
		return &InvalidSourceError{
			Problem: SourceNotPDF,
			Detail:  fmt.Sprintf("file looks like %s", mime.String()),
		}
	}
	upload.MimeType = PDFMimeType

	return nil
}
