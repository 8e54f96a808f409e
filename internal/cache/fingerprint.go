package cache

import (
	"strconv"
	"unicode/utf16"

	"github.com/caesium-cloud/jobassist/internal/job"
)

const (
	// KeyPrefix namespaces entry keys inside the shared store.
	KeyPrefix = "jobAnalysisCache_"

	// descriptionPrefix is the number of UTF-16 code units of the
	// description that take part in the fingerprint.
	descriptionPrefix = 200
)

const hexDigits = "0123456789abcdef"

// Fingerprint derives the cache key of a posting from its title,
// company, description prefix and URL. Postings that agree on all four
// share a key; the later write wins.
//
// The hash runs over the UTF-16 code units of the compact JSON object
// {"title","company","description","url"} encoded the way browsers
// serialize it: only quotes, backslashes and control characters are
// escaped, and unpaired surrogates become \uXXXX escapes.
func Fingerprint(j job.Job) string {
	units := make([]uint16, 0, 64+len(j.Title)+len(j.Company)+descriptionPrefix+len(j.URL))

	units = appendASCII(units, `{"title":`)
	units = appendJSONString(units, utf16.Encode([]rune(j.Title)))
	units = appendASCII(units, `,"company":`)
	units = appendJSONString(units, utf16.Encode([]rune(j.Company)))
	units = appendASCII(units, `,"description":`)
	units = appendJSONString(units, prefixUTF16(utf16.Encode([]rune(j.Description)), descriptionPrefix))
	units = appendASCII(units, `,"url":`)
	units = appendJSONString(units, utf16.Encode([]rune(j.URL)))
	units = append(units, '}')

	var h int32
	for _, unit := range units {
		h = h*31 + int32(unit)
	}

	n := int64(h)
	if n < 0 {
		n = -n
	}

	return KeyPrefix + strconv.FormatInt(n, 10)
}

// prefixUTF16 keeps the first n code units. A surrogate pair split at
// the boundary leaves its high half behind.
func prefixUTF16(units []uint16, n int) []uint16 {
	if len(units) <= n {
		return units
	}
	return units[:n]
}

func appendASCII(dst []uint16, s string) []uint16 {
	for i := 0; i < len(s); i++ {
		dst = append(dst, uint16(s[i]))
	}
	return dst
}

func appendJSONString(dst, s []uint16) []uint16 {
	dst = append(dst, '"')

	for i, u := range s {
		switch {
		case u == '"' || u == '\\':
			dst = append(dst, '\\', u)
		case u == '\b':
			dst = append(dst, '\\', 'b')
		case u == '\f':
			dst = append(dst, '\\', 'f')
		case u == '\n':
			dst = append(dst, '\\', 'n')
		case u == '\r':
			dst = append(dst, '\\', 'r')
		case u == '\t':
			dst = append(dst, '\\', 't')
		case u < 0x20, loneSurrogate(s, i):
			dst = append(dst, '\\', 'u',
				uint16(hexDigits[u>>12&0xf]),
				uint16(hexDigits[u>>8&0xf]),
				uint16(hexDigits[u>>4&0xf]),
				uint16(hexDigits[u&0xf]),
			)
		default:
			dst = append(dst, u)
		}
	}

	return append(dst, '"')
}

// loneSurrogate reports whether s[i] is a surrogate without its partner.
func loneSurrogate(s []uint16, i int) bool {
	switch u := s[i]; {
	case isHighSurrogate(u):
		return i+1 >= len(s) || !isLowSurrogate(s[i+1])
	case isLowSurrogate(u):
		return i == 0 || !isHighSurrogate(s[i-1])
	}
	return false
}

func isHighSurrogate(u uint16) bool { return u >= 0xd800 && u < 0xdc00 }
func isLowSurrogate(u uint16) bool  { return u >= 0xdc00 && u < 0xe000 }
