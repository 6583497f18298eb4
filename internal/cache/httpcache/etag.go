package httpcache

import (
	"crypto/sha256"
	"encoding/base64"
	"strconv"
)

// ETag returns a strong entity tag for the given content.
// The tag is quoted and only depends on the bytes: "<hex length>-<hash>".
func ETag(content []byte) string {
	hash := sha256.Sum256(content)
	digest := base64.RawStdEncoding.EncodeToString(hash[:])[:27]

	return `"` + strconv.FormatInt(int64(len(content)), 16) + "-" + digest + `"`
}
