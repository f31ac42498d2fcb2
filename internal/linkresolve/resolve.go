// Package linkresolve turns link targets found in a page into absolute,
// normalized URLs and sorts them into internal and cross-site sets.
package linkresolve

import (
	"path"
	"regexp"
	"strings"

	"github.com/JakeFAU/gemini-search/internal/gemurl"
)

var (
	nonURIAction = regexp.MustCompile(`^[A-Za-z]+:`)
	absoluteURL  = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://`)
)

// IsNonURIAction reports targets such as "mailto:x@y" or "javascript:void(0)"
// that name an action rather than a location.
func IsNonURIAction(s string) bool {
	if !nonURIAction.MatchString(s) {
		return false
	}
	colon := strings.IndexByte(s, ':')
	return !strings.HasPrefix(s[colon+1:], "//")
}

// Resolve resolves raw against base. Absolute URLs are used as-is, with an
// empty protocol inherited from base. Paths starting with "/" replace the
// path of base; other paths are joined with the directory of base. The query
// and fragment of raw always replace those of base.
func Resolve(base gemurl.URL, raw string) (gemurl.URL, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || IsNonURIAction(raw) {
		return gemurl.URL{}, false
	}
	if absoluteURL.MatchString(raw) || strings.HasPrefix(raw, "//") {
		u := gemurl.Parse(raw)
		if !u.Valid() {
			return gemurl.URL{}, false
		}
		if u.Protocol() == "" {
			u = u.WithProtocol(base.Protocol())
		}
		return u, true
	}
	if !base.Valid() {
		return gemurl.URL{}, false
	}

	p, param, fragment := splitReference(raw)
	switch {
	case p == "":
		p = base.Path()
	case strings.HasPrefix(p, "/"):
	default:
		p = directoryOf(base.Path()) + p
	}
	return base.WithPath(p).WithParam(param).WithFragment(fragment), true
}

func splitReference(raw string) (string, string, string) {
	var param, fragment string
	if idx := strings.IndexByte(raw, '#'); idx >= 0 {
		fragment = raw[idx+1:]
		raw = raw[:idx]
	}
	if idx := strings.IndexByte(raw, '?'); idx >= 0 {
		param = raw[idx+1:]
		raw = raw[:idx]
	}
	return raw, param, fragment
}

func directoryOf(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	dir := path.Dir(p)
	if dir == "/" || dir == "." {
		return "/"
	}
	return dir + "/"
}

// IsCrossSite reports whether to lives on a different host or port than from.
func IsCrossSite(from, to gemurl.URL) bool {
	return from.Host() != to.Host() || from.Port() != to.Port()
}

var contentExtensions = []string{".gmi", ".gemini"}

// StripMistypedParam drops the query of links like
// "gemini://h/page.gmi?gemini://h/page.gmi", where an author pasted the URL
// twice. Such links otherwise create an endless family of duplicates.
func StripMistypedParam(u gemurl.URL) gemurl.URL {
	if u.Param() == "" || !strings.HasPrefix(u.String(), u.Param()) {
		return u
	}
	for _, ext := range contentExtensions {
		if strings.HasSuffix(u.Path(), ext) {
			return u.WithParam("")
		}
	}
	return u
}

// Links holds the crawlable targets of one page.
type Links struct {
	Internal  []gemurl.URL
	CrossSite []gemurl.URL
}

// Strings returns both lists in canonical string form.
func (l Links) Strings() (internal, crossSite []string) {
	internal = make([]string, 0, len(l.Internal))
	for _, u := range l.Internal {
		internal = append(internal, u.String())
	}
	crossSite = make([]string, 0, len(l.CrossSite))
	for _, u := range l.CrossSite {
		crossSite = append(crossSite, u.String())
	}
	return internal, crossSite
}

// Collect resolves every raw link of a page at base and keeps the ones using
// protocol. Fragments are removed and duplicates collapsed, preserving the
// order of first appearance.
func Collect(base gemurl.URL, raws []string, protocol string) Links {
	var out Links
	seen := make(map[string]struct{}, len(raws))
	for _, raw := range raws {
		u, ok := Resolve(base, raw)
		if !ok || u.Protocol() != protocol {
			continue
		}
		u = StripMistypedParam(u.WithFragment(""))
		key := u.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if IsCrossSite(base, u) {
			out.CrossSite = append(out.CrossSite, u)
		} else {
			out.Internal = append(out.Internal, u)
		}
	}
	return out
}
