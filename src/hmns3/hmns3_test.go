package hmns3

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, srv *httptest.Server, method, path, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	res, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, string(resBody)
}

func TestObjectLifecycle(t *testing.T) {
	srv := httptest.NewServer(Handler(t.TempDir(), nil))
	defer srv.Close()

	res, body := do(t, srv, http.MethodPut, "/syllabi/abc/syllabus.pdf", "%PDF-1.4")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Contains(t, body, "<Code>NoSuchBucket</Code>")

	res, _ = do(t, srv, http.MethodPut, "/syllabi", "")
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, _ = do(t, srv, http.MethodPut, "/syllabi/abc/syllabus.pdf", "%PDF-1.4")
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, body = do(t, srv, http.MethodGet, "/syllabi/abc/syllabus.pdf", "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "%PDF-1.4", body)

	res, _ = do(t, srv, http.MethodDelete, "/syllabi/abc/syllabus.pdf", "")
	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	res, body = do(t, srv, http.MethodGet, "/syllabi/abc/syllabus.pdf", "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Contains(t, body, "<Code>NoSuchKey</Code>")
}

func TestBucketKey(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/bucket/a/b/c.pdf", nil)
	bucket, key := bucketKey(r)
	assert.Equal(t, "bucket", bucket)
	assert.Equal(t, "a~b~c.pdf", key)

	r = httptest.NewRequest(http.MethodPut, "/bucket", nil)
	bucket, key = bucketKey(r)
	assert.Equal(t, "bucket", bucket)
	assert.Equal(t, "", key)
}
