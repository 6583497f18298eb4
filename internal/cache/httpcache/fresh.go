package httpcache

import (
	"net/http"

	"github.com/go-http-utils/fresh"
)

// Fresh reports whether the client copy described by the request's
// conditional headers still matches the response about to be sent.
// A request carrying Cache-Control: no-cache is never fresh.
func Fresh(reqHeader, respHeader http.Header) bool {
	return fresh.IsFresh(reqHeader, respHeader)
}
