package geminifetcher

import (
	"mime"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
)

// ParseMeta splits a 2x response meta field into a lowercase MIME type and
// its parameters. Malformed parameter lists are parsed leniently.
func ParseMeta(meta string) (string, map[string]string) {
	meta = strings.TrimSpace(meta)
	if meta == "" {
		return "", map[string]string{}
	}
	if mt, params, err := mime.ParseMediaType(meta); err == nil {
		return mt, params
	}

	parts := strings.Split(meta, ";")
	params := make(map[string]string, len(parts)-1)
	for _, p := range parts[1:] {
		key, value, found := strings.Cut(p, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if !found || key == "" {
			continue
		}
		params[key] = strings.Trim(strings.TrimSpace(value), `"`)
	}
	return strings.ToLower(strings.TrimSpace(parts[0])), params
}

// Decode converts body from charset to UTF-8. Unknown charsets and decoding
// errors fall back to treating the input as UTF-8. Invalid sequences are
// dropped so the result is always valid UTF-8.
func Decode(body []byte, charset string) string {
	charset = strings.ToLower(strings.TrimSpace(charset))
	if charset != "" && charset != "utf-8" && charset != "utf8" {
		if enc, err := htmlindex.Get(charset); err == nil {
			if out, err := enc.NewDecoder().Bytes(body); err == nil {
				return strings.ToValidUTF8(string(out), "")
			}
		}
	}
	if utf8.Valid(body) {
		return string(body)
	}
	return strings.ToValidUTF8(string(body), "")
}
