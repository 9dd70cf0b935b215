package hmnurl

import (
	"net/url"
	"strings"

	"git.handmade.network/hmn/syllabus/src/config"
)

const StaticPath = "/public"

var baseUrl = config.Config.BaseUrl

// Only for tests and startup.
func SetGlobalBaseUrl(fullBaseUrl string) {
	baseUrl = strings.TrimSuffix(fullBaseUrl, "/")
}

type Q struct {
	Name  string
	Value string
}

func Url(path string, query []Q) string {
	result := baseUrl + "/" + trim(path)
	if q := encodeQuery(query); q != "" {
		result += "?" + q
	}
	return result
}

func StaticUrl(path string, query []Q) string {
	return Url(StaticPath+"/"+trim(path), query)
}

func trim(path string) string {
	if len(path) > 0 && path[0] == '/' {
		return path[1:]
	}
	return path
}

func encodeQuery(query []Q) string {
	result := url.Values{}
	for _, q := range query {
		result.Set(q.Name, q.Value)
	}
	return result.Encode()
}
