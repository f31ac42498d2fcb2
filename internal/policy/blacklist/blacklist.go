// Package blacklist decides whether a URL is permanently excluded from
// crawling, independent of robots.txt.
package blacklist

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/JakeFAU/gemini-search/internal/gemurl"
	"github.com/JakeFAU/gemini-search/internal/robots"
)

// defaultSuffixes are host suffixes that never resolve on the public network.
var defaultSuffixes = []string{"local", "localhost", "localdomain", "onion"}

// Blacklist combines exact hosts, host suffixes, URL prefixes and structural
// heuristics. It is immutable after construction and safe for concurrent use.
type Blacklist struct {
	exact    map[string]struct{}
	suffixes []string
	prefixes *URLPrefixList
}

// New builds a Blacklist. Domain patterns of the form "*.example" or
// ".example" block the suffix; anything else blocks the exact host.
func New(domains, urlPrefixes []string) (*Blacklist, error) {
	b := &Blacklist{
		exact:    make(map[string]struct{}),
		prefixes: NewURLPrefixList(),
	}
	for _, s := range defaultSuffixes {
		b.addSuffix(s)
	}
	for _, raw := range domains {
		value := strings.TrimSpace(strings.ToLower(raw))
		switch {
		case value == "":
		case strings.HasPrefix(value, "*."):
			b.addSuffix(strings.TrimPrefix(value, "*."))
		case strings.HasPrefix(value, "."):
			b.addSuffix(strings.TrimPrefix(value, "."))
		default:
			b.exact[value] = struct{}{}
		}
	}
	for _, raw := range urlPrefixes {
		if err := b.prefixes.Add(raw); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Default returns a Blacklist seeded with the built-in lists plus extras.
func Default(extraDomains, extraPrefixes []string) (*Blacklist, error) {
	domains := append(append([]string(nil), DefaultDomains...), extraDomains...)
	prefixes := append(append([]string(nil), DefaultURLPrefixes...), extraPrefixes...)
	return New(domains, prefixes)
}

func (b *Blacklist) addSuffix(suffix string) {
	if suffix == "" {
		return
	}
	for _, existing := range b.suffixes {
		if existing == suffix {
			return
		}
	}
	b.suffixes = append(b.suffixes, suffix)
}

// IsBlocked reports whether u must never be crawled.
func (b *Blacklist) IsBlocked(u gemurl.URL) bool {
	if b == nil {
		return false
	}
	host := u.Host()
	if _, ok := b.exact[host]; ok {
		return true
	}
	for _, suffix := range b.suffixes {
		if strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	if b.prefixes.IsBlocked(u) {
		return true
	}
	str := u.String()
	return IsHousekeepingPath(u.Path()) ||
		IsLoopback(host) ||
		IsGitRepository(u, str) ||
		IsOrbitLink(u.Path()) ||
		strings.Contains(str, "gopher:/:/") ||
		strings.Contains(str, "rfc-mirror") ||
		HasControlChars(str) ||
		HasRepeatedComponent(u.Path()) ||
		LooksLikeCommit(str)
}

// IsBlockedString parses raw and checks it. Unparsable input is not blocked;
// callers reject it separately.
func (b *Blacklist) IsBlockedString(raw string) bool {
	u := gemurl.Parse(raw)
	if !u.Valid() {
		return false
	}
	return b.IsBlocked(u)
}

// IsHousekeepingPath matches files that exist for clients, not readers.
func IsHousekeepingPath(p string) bool {
	return p == "/robots.txt" || p == "/favicon.txt"
}

// IsLoopback matches localhost and loopback addresses written as a host.
func IsLoopback(host string) bool {
	return host == "localhost" || host == "[::1]" || strings.HasPrefix(host, "127.0.0.")
}

// IsGitRepository matches paths that look like browsable git repositories.
func IsGitRepository(u gemurl.URL, str string) bool {
	return strings.HasPrefix(u.Path(), "/git/") ||
		strings.HasPrefix(u.Host(), "git.") ||
		strings.Contains(str, ".git/tree/") ||
		strings.Contains(str, ".git/blob/")
}

var orbitSuffixes = []string{"/next.cgi", "/prev.cgi", "/rand.cgi", "/next", "/prev", "/rand"}

// IsOrbitLink matches webring navigation endpoints. They redirect to a
// different capsule on every request and distort the link graph.
func IsOrbitLink(p string) bool {
	for _, s := range orbitSuffixes {
		if strings.HasSuffix(p, s) {
			return true
		}
	}
	return false
}

// HasControlChars reports ASCII control characters anywhere in s.
func HasControlChars(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 32 {
			return true
		}
	}
	return false
}

// HasRepeatedComponent flags paths where one segment appears three or more
// times, the usual shape of a misconfigured relative redirect loop such as
// /cgi/cgi/cgi/. Two repeats are allowed.
func HasRepeatedComponent(p string) bool {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) < 2 {
		return false
	}
	counts := make(map[string]int, len(parts))
	for _, part := range parts {
		counts[part]++
		if counts[part] >= 3 {
			return true
		}
	}
	return false
}

var commitPattern = regexp.MustCompile(`^commits/[0-9A-Za-z]+`)

// LooksLikeCommit matches "commits/<id>" anywhere in the URL. It is a rough
// heuristic and will also catch some ordinary pages under a commits/ folder.
func LooksLikeCommit(str string) bool {
	n := strings.Index(str, "commits/")
	if n < 0 {
		return false
	}
	return commitPattern.MatchString(str[n:])
}

// URLPrefixList blocks URL prefixes. Entries are bucketed by the URL with its
// path, query and fragment removed so a lookup only scans rules for one
// origin; within a bucket paths are matched with robots.txt semantics.
type URLPrefixList struct {
	rules map[string][]string
}

// NewURLPrefixList returns an empty list.
func NewURLPrefixList() *URLPrefixList {
	return &URLPrefixList{rules: make(map[string][]string)}
}

// Add registers a prefix such as "gemini://example.net/cgi-bin".
func (l *URLPrefixList) Add(raw string) error {
	u := gemurl.Parse(raw)
	if !u.Valid() {
		return fmt.Errorf("invalid blacklist url %q", raw)
	}
	key := originKey(u)
	l.rules[key] = append(l.rules[key], u.Path())
	return nil
}

// IsBlocked reports whether u falls under a registered prefix.
func (l *URLPrefixList) IsBlocked(u gemurl.URL) bool {
	if l == nil || !u.Valid() {
		return false
	}
	paths, ok := l.rules[originKey(u)]
	if !ok {
		return false
	}
	return robots.IsPathBlocked(u.Path(), paths)
}

// Len returns the number of registered prefixes.
func (l *URLPrefixList) Len() int {
	n := 0
	for _, paths := range l.rules {
		n += len(paths)
	}
	return n
}

func originKey(u gemurl.URL) string {
	return u.WithPath("/").WithParam("").WithFragment("").String()
}
