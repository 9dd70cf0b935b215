package hmnurl

import (
	"net/url"
	"regexp"
	"testing"

	"git.handmade.network/hmn/syllabus/src/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUrl(t *testing.T) {
	defer func() {
		SetGlobalBaseUrl(config.Config.BaseUrl)
	}()
	SetGlobalBaseUrl("http://syllabus.test")

	t.Run("no query", func(t *testing.T) {
		result := Url("/test/foo", nil)
		assert.Equal(t, "http://syllabus.test/test/foo", result)
	})
	t.Run("yes query", func(t *testing.T) {
		result := Url("/test/foo", []Q{{"bar", "baz"}, {"zig??", "zig & zag!!"}})
		assert.Equal(t, "http://syllabus.test/test/foo?bar=baz&zig%3F%3F=zig+%26+zag%21%21", result)
	})
}

func TestHomepage(t *testing.T) {
	AssertRegexMatch(t, BuildHomepage(), RegexHomepage, nil)
}

func TestLogin(t *testing.T) {
	AssertRegexMatch(t, BuildLogin(), RegexLogin, nil)
	AssertRegexMatch(t, BuildLoginWithRedirect(BuildSyllabus(3)), RegexLogin, nil)
}

func TestLogout(t *testing.T) {
	AssertRegexMatch(t, BuildLogout(), RegexLogout, nil)
}

func TestSyllabus(t *testing.T) {
	AssertRegexMatch(t, BuildSyllabus(12), RegexSyllabus, nil)
	AssertQuery(t, BuildSyllabus(12), map[string]string{"id": "12"})

	AssertRegexMatch(t, BuildSyllabusView(12), RegexSyllabus, nil)
	AssertQuery(t, BuildSyllabusView(12), map[string]string{"id": "12", "action": "view"})

	AssertRegexMatch(t, BuildSyllabusEdit(12, ""), RegexSyllabus, nil)
	AssertQuery(t, BuildSyllabusEdit(12, ""), map[string]string{"id": "12", "action": "edit"})
	AssertQuery(t, BuildSyllabusEdit(12, "private"), map[string]string{"id": "12", "action": "edit", "type": "private"})
}

func TestSyllabusFile(t *testing.T) {
	AssertRegexMatch(t, BuildSyllabusFile(12, "public"), RegexSyllabusFile, nil)
	AssertQuery(t, BuildSyllabusFile(12, "public"), map[string]string{"id": "12", "type": "public"})
	assert.False(t, RegexSyllabus.MatchString("/syllabus/file"))
}

func TestPublic(t *testing.T) {
	AssertRegexMatch(t, BuildPublic("style.css"), RegexPublic, nil)
}

func AssertQuery(t *testing.T, fullUrl string, expected map[string]string) {
	t.Helper()
	parsed, err := url.Parse(fullUrl)
	require.NoError(t, err)

	query := parsed.Query()
	assert.Len(t, query, len(expected), "unexpected query params in %s", fullUrl)
	for name, value := range expected {
		assert.Equal(t, value, query.Get(name), "query param %s", name)
	}
}

func AssertRegexMatch(t *testing.T, fullUrl string, regex *regexp.Regexp, paramsToVerify map[string]string) {
	t.Helper()
	parsed, err := url.Parse(fullUrl)
	ok := assert.Nilf(t, err, "Full url could not be parsed: %s", fullUrl)
	if !ok {
		return
	}

	requestPath := parsed.Path
	if len(requestPath) == 0 {
		requestPath = "/"
	}
	match := regex.FindStringSubmatch(requestPath)
	assert.NotNilf(t, match, "Url did not match regex: [%s] vs [%s]", requestPath, regex.String())

	if paramsToVerify != nil {
		subexpNames := regex.SubexpNames()
		for i, matchedValue := range match {
			paramName := subexpNames[i]
			expectedValue, ok := paramsToVerify[paramName]
			if ok {
				assert.Equalf(t, expectedValue, matchedValue, "Param mismatch for [%s]", paramName)
				delete(paramsToVerify, paramName)
			}
		}
		if len(paramsToVerify) > 0 {
			unmatchedParams := make([]string, 0, len(paramsToVerify))
			for k := range paramsToVerify {
				unmatchedParams = append(unmatchedParams, k)
			}
			assert.Fail(t, "Expected match groups not found", unmatchedParams)
		}
	}
}
