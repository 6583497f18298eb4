// Package httpcache implements the validators and freshness rules used for
// conditional GET requests.
package httpcache

import (
	"net/http"
	"strconv"
)

// Headers holds the caching headers of a single response
type Headers struct {
	ETag          string
	CacheControl  string
	ContentLength string
}

// For computes the headers of a public response carrying content, cacheable for maxAgeSeconds
func For(content []byte, maxAgeSeconds int64) Headers {
	return Headers{
		ETag:          ETag(content),
		CacheControl:  CacheControl(maxAgeSeconds),
		ContentLength: strconv.Itoa(len(content)),
	}
}

// CacheControl returns a public Cache-Control value
func CacheControl(maxAgeSeconds int64) string {
	return "public, max-age=" + strconv.FormatInt(maxAgeSeconds, 10)
}

// Apply sets every non-empty field on h
func (hs Headers) Apply(h http.Header) {
	if hs.ETag != "" {
		h.Set("ETag", hs.ETag)
	}
	if hs.CacheControl != "" {
		h.Set("Cache-Control", hs.CacheControl)
	}
	if hs.ContentLength != "" {
		h.Set("Content-Length", hs.ContentLength)
	}
}

// Header returns the fields as a new http.Header
func (hs Headers) Header() http.Header {
	h := make(http.Header, 3)
	hs.Apply(h)
	return h
}
