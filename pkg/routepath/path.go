// Package routepath holds the string-level helpers of desk routing:
// prefix stripping, segment splitting, lenient percent-decoding, the
// trailing query heuristic and segment encoding.
//
// Nothing in this package fails a navigation. Decoding errors are
// reported by Decode for callers that care, while DecodeSegment falls
// back to the raw segment.
package routepath

import (
	"errors"
	"net/url"
	"strings"
	"unicode/utf8"
)

// AppPrefix is the first path component of desk routes.
const AppPrefix = "app"

// Decoding errors.
var (
	ErrInvalidPercentEscape = errors.New("invalid percent escape sequence")
	ErrInvalidUTF8          = errors.New("percent escapes decode to invalid UTF-8")
)

// StripPrefix removes the desk prefixes from a path or hash:
// a leading "/", then "app/" (or a bare "app"), then "/", "#" and "!".
//
//	"/app/todo"  → "todo"
//	"/app"       → ""
//	"#!List/ToDo" → "List/ToDo"
func StripPrefix(route string) string {
	route = strings.TrimPrefix(route, "/")
	if strings.HasPrefix(route, AppPrefix+"/") {
		route = route[len(AppPrefix)+1:]
	} else if route == AppPrefix {
		route = ""
	}
	route = strings.TrimPrefix(route, "/")
	route = strings.TrimPrefix(route, "#")
	route = strings.TrimPrefix(route, "!")
	return route
}

// SplitSegments splits a stripped sub-path on "/".
// An empty sub-path yields no segments.
func SplitSegments(sub string) []string {
	if sub == "" {
		return nil
	}
	return strings.Split(sub, "/")
}

// Decode percent-decodes a segment the way browsers decode URI
// components: "+" stays literal and the result must be valid UTF-8.
func Decode(segment string) (string, error) {
	if !strings.Contains(segment, "%") {
		return segment, nil
	}
	if err := ValidatePercentEscapes(segment); err != nil {
		return "", err
	}
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return "", ErrInvalidPercentEscape
	}
	if !utf8.ValidString(decoded) {
		return "", ErrInvalidUTF8
	}
	return decoded, nil
}

// DecodeSegment decodes a segment, returning it unchanged when it is
// not valid percent-encoding.
func DecodeSegment(segment string) string {
	decoded, err := Decode(segment)
	if err != nil {
		return segment
	}
	return decoded
}

// DecodeSegments decodes every segment with DecodeSegment.
func DecodeSegments(segments []string) []string {
	out := make([]string, len(segments))
	for i, seg := range segments {
		out[i] = DecodeSegment(seg)
	}
	return out
}

// DecodePath decodes each "/"-separated segment of sub and rejoins them.
func DecodePath(sub string) string {
	return strings.Join(DecodeSegments(strings.Split(sub, "/")), "/")
}

// ValidatePercentEscapes checks that all percent-escapes are valid.
// Valid escapes are %XX where X is a hex digit (0-9, a-f, A-F).
func ValidatePercentEscapes(s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			continue
		}
		if i+2 >= len(s) || !isHexDigit(s[i+1]) || !isHexDigit(s[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 2
	}
	return nil
}

// isHexDigit returns true if c is a valid hex digit.
func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// EncodeSegment percent-encodes a segment with URI component rules:
// everything except ASCII letters, digits and -_.!~*'() is escaped.
func EncodeSegment(segment string) string {
	var b strings.Builder
	b.Grow(len(segment))
	for i := 0; i < len(segment); i++ {
		c := segment[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0f])
	}
	return b.String()
}

const upperHex = "0123456789ABCDEF"

func isUnreserved(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}

// EncodeSegments encodes each segment and joins them with "/".
func EncodeSegments(segments []string) string {
	encoded := make([]string, len(segments))
	for i, seg := range segments {
		encoded[i] = EncodeSegment(seg)
	}
	return strings.Join(encoded, "/")
}

// ExtractQuery applies the trailing-query heuristic to the last segment
// of a route. The segment qualifies when the first "?" comes before the
// first "=" (a missing "?" counts as position -1, so "a=b" qualifies with
// an empty query). On a match, rest is the text before the first "?" and
// query is the text between the first and second "?".
func ExtractQuery(last string) (rest, query string, ok bool) {
	if strings.Index(last, "?") >= strings.Index(last, "=") {
		return last, "", false
	}
	parts := strings.Split(last, "?")
	if len(parts) > 1 {
		query = parts[1]
	}
	return parts[0], query, true
}

// ParseQueryParams parses "k=v&k2=v2". Blank pairs and pairs with a blank
// key are skipped, "+" means space, a missing value is "", and values that
// fail to decode are kept as written. Repeated keys accumulate.
func ParseQueryParams(query string) url.Values {
	params := url.Values{}
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if key == "" {
			continue
		}
		params.Add(key, DecodeSegment(strings.ReplaceAll(value, "+", "%20")))
	}
	return params
}

// IsAppRoute reports whether path is a desk path, i.e. its first
// component is "app".
func IsAppRoute(path string) bool {
	path = strings.TrimPrefix(path, "/")
	first, _, _ := strings.Cut(path, "/")
	return first == AppPrefix
}

// SplitPathAndQuery splits a path into path and query components.
// The query is returned without the leading "?".
func SplitPathAndQuery(input string) (path, query string) {
	path, query, _ = strings.Cut(input, "?")
	return path, query
}
