package naming

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// maxNameLength is the longest base name kept before truncation.
	maxNameLength = 200

	// truncatePrefix and truncateSuffix are the windows kept from a long name.
	truncatePrefix = 100
	truncateSuffix = 95

	// markdownExt is the extension of every page file.
	markdownExt = ".md"
)

// Sanitize returns the base Markdown file name for a page URL.
//
// The name is built from the host, the path with '/' replaced by '_' and a
// trailing slash removed, and the query with '&' replaced by '_' and '=' by
// '-'. A URL with neither path nor query gets an "_index" marker. Characters
// outside letters, digits, '_', '-' and '.' become '_', the result is folded
// to ASCII, shortened to a prefix and suffix window when longer than 200
// characters, and always ends in ".md".
func Sanitize(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(u.Host)

	path := strings.TrimRight(u.Path, "/")
	if path != "" {
		sb.WriteString(strings.ReplaceAll(path, "/", "_"))
	}
	if path == "" && u.RawQuery == "" {
		sb.WriteString("_index")
	}
	if u.RawQuery != "" {
		sb.WriteString("_")
		sb.WriteString(strings.NewReplacer("&", "_", "=", "-").Replace(u.RawQuery))
	}

	name := shorten(safeName(sb.String()))
	if !strings.HasSuffix(name, markdownExt) {
		name += markdownExt
	}
	return name, nil
}

// safeName replaces unsafe characters with '_' and folds the result to ASCII.
func safeName(s string) string {
	return replaceUnsafe(toASCII(replaceUnsafe(s, unicode.IsLetter, unicode.IsDigit)), isASCIILetter, isASCIIDigit)
}

func replaceUnsafe(s string, isLetter, isDigit func(rune) bool) string {
	return strings.Map(func(r rune) rune {
		switch {
		case isLetter(r), isDigit(r), r == '_', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}

func isASCIILetter(r rune) bool {
	return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
}

func isASCIIDigit(r rune) bool {
	return '0' <= r && r <= '9'
}

// toASCII decomposes s, drops combining marks and removes whatever is still
// outside ASCII.
func toASCII(s string) string {
	t := transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// shorten keeps the first 100 and last 95 bytes of names longer than 200.
// Input is ASCII, so byte offsets are character offsets.
func shorten(s string) string {
	if len(s) <= maxNameLength {
		return s
	}
	return s[:truncatePrefix] + "_" + s[len(s)-truncateSuffix:]
}
