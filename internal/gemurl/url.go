// Package gemurl implements the normalized URL value used as the identity of
// crawled pages, graph nodes and robots cache keys.
package gemurl

import (
	"errors"
	"fmt"
	"net"
	"path"
	"strconv"
	"strings"
)

// ErrInvalid is returned by Validate for URLs that failed to parse.
var ErrInvalid = errors.New("invalid url")

var defaultPorts = map[string]int{
	"http":   80,
	"https":  443,
	"gemini": 1965,
	"gopher": 70,
	"ftp":    21,
}

// DefaultPort returns the well-known port for protocol or 0 when none exists.
func DefaultPort(protocol string) int {
	return defaultPorts[strings.ToLower(protocol)]
}

// URL is an immutable parsed URL. The zero value is not valid. All fields are
// readable on an invalid URL and hold whatever was parsed before the failure.
type URL struct {
	protocol string
	host     string
	port     int
	path     string
	param    string
	fragment string
	good     bool
}

// Parse parses and normalizes raw. It never fails loudly; check Valid.
// A reference starting with "//" is accepted with an empty protocol.
func Parse(raw string) URL {
	u := parse(raw)
	if u.good {
		u = u.normalized()
	}
	return u
}

// MustParse is Parse for trusted constants. It panics on invalid input.
func MustParse(raw string) URL {
	u := Parse(raw)
	if !u.good {
		panic(fmt.Sprintf("gemurl: invalid url %q", raw))
	}
	return u
}

// ParseRaw parses raw without normalizing protocol, host or path.
func ParseRaw(raw string) URL {
	return parse(raw)
}

func parse(raw string) URL {
	var u URL
	if raw == "" {
		return u
	}
	rest := raw
	if idx := strings.Index(raw, "://"); idx >= 0 {
		u.protocol = raw[:idx]
		if u.protocol == "" || !isAlnum(u.protocol) {
			return u
		}
		rest = raw[idx+3:]
	} else if strings.HasPrefix(raw, "//") {
		rest = raw[2:]
	} else {
		return u
	}

	host, rest, ok := splitHost(rest)
	u.host = host
	if !ok || !validHost(u.host) {
		return u
	}
	if rest == "" {
		u.path = "/"
		u.good = true
		return u
	}

	if rest[0] == ':' {
		rest = rest[1:]
		pend := strings.IndexAny(rest, "/?#")
		portStr := rest
		if pend >= 0 {
			portStr = rest[:pend]
			rest = rest[pend:]
		} else {
			rest = ""
		}
		port, ok := parsePort(portStr)
		if !ok {
			return u
		}
		u.port = port
	}

	rest = strings.TrimPrefix(rest, "/")
	qend := strings.IndexAny(rest, "?#")
	if qend < 0 {
		u.path = "/" + rest
		u.good = true
		return u
	}
	u.path = "/" + rest[:qend]
	rest = rest[qend:]
	if rest[0] == '?' {
		rest = rest[1:]
		if h := strings.IndexByte(rest, '#'); h >= 0 {
			u.param = rest[:h]
			u.fragment = rest[h+1:]
		} else {
			u.param = rest
		}
	} else {
		u.fragment = rest[1:]
	}
	u.good = true
	return u
}

// splitHost cuts the host off the front of rest. IPv6 literals keep their
// brackets so the canonical form and "host:port" keys stay unambiguous.
func splitHost(rest string) (string, string, bool) {
	if !strings.HasPrefix(rest, "[") {
		end := strings.IndexAny(rest, ":/?#")
		if end < 0 {
			return rest, "", true
		}
		return rest[:end], rest[end:], true
	}
	end := strings.IndexAny(rest, "/?#")
	if end < 0 {
		end = len(rest)
	}
	hostport := rest[:end]
	closing := strings.IndexByte(hostport, ']')
	if closing < 0 {
		return "", rest, false
	}
	host := hostport[:closing+1]
	if closing+1 < len(hostport) {
		h, port, err := net.SplitHostPort(hostport)
		if err != nil {
			return "", rest, false
		}
		host = "[" + h + "]"
		rest = ":" + port + rest[end:]
	} else {
		rest = rest[end:]
	}
	if net.ParseIP(host[1:len(host)-1]) == nil {
		return "", rest, false
	}
	return host, rest, true
}

func parsePort(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	port, err := strconv.Atoi(s)
	if err != nil || port <= 0 || port > 65535 {
		return 0, false
	}
	return port, true
}

func validHost(host string) bool {
	return host != "" && !strings.HasPrefix(host, ".")
}

func isAlnum(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

func (u URL) normalized() URL {
	u.protocol = strings.ToLower(u.protocol)
	u.host = strings.ToLower(u.host)
	u.path = normalizePath(u.path)
	if u.port != 0 && u.port == DefaultPort(u.protocol) {
		u.port = 0
	}
	return u
}

// normalizePath collapses "." and ".." segments and duplicate slashes while
// keeping a trailing slash that names a directory.
func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	dir := strings.HasSuffix(p, "/") || strings.HasSuffix(p, "/.") || strings.HasSuffix(p, "/..")
	cleaned := path.Clean(p)
	if dir && cleaned != "/" {
		cleaned += "/"
	}
	return cleaned
}

// Valid reports whether parsing succeeded.
func (u URL) Valid() bool { return u.good }

// Validate returns ErrInvalid for unparsable or incomplete URLs.
func (u URL) Validate() error {
	if !u.good || u.host == "" || u.path == "" {
		return ErrInvalid
	}
	if u.protocol != "" && !isAlnum(u.protocol) {
		return ErrInvalid
	}
	return nil
}

// Protocol returns the scheme. Empty means "inherit from the referring page".
func (u URL) Protocol() string { return u.protocol }

// Host returns the lowercased host.
func (u URL) Host() string { return u.host }

// Path returns the normalized path, always starting with "/" on valid URLs.
func (u URL) Path() string { return u.path }

// Param returns the query string without the leading "?".
func (u URL) Param() string { return u.param }

// Fragment returns the fragment without the leading "#".
func (u URL) Fragment() string { return u.fragment }

// RawPort returns the explicit non-default port, or 0.
func (u URL) RawPort() int { return u.port }

// Port returns the explicit port or the protocol default.
func (u URL) Port() int {
	if u.port != 0 {
		return u.port
	}
	return DefaultPort(u.protocol)
}

// HostWithPort returns "host:port", substituting def when no explicit port
// was given. The result distinguishes otherwise identical hosts on different
// ports and is used as a cache key.
func (u URL) HostWithPort(def int) string {
	port := u.port
	if port == 0 {
		port = def
	}
	return u.host + ":" + strconv.Itoa(port)
}

// String returns the canonical form. The port is omitted when it is the
// protocol's default.
func (u URL) String() string {
	var b strings.Builder
	if u.protocol != "" {
		b.WriteString(u.protocol)
		b.WriteString("://")
	} else {
		b.WriteString("//")
	}
	b.WriteString(u.host)
	if u.port != 0 && u.port != DefaultPort(u.protocol) {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(u.port))
	}
	b.WriteString(u.path)
	if u.param != "" {
		b.WriteByte('?')
		b.WriteString(u.param)
	}
	if u.fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.fragment)
	}
	return b.String()
}

// WithProtocol returns a copy with the protocol replaced.
func (u URL) WithProtocol(protocol string) URL {
	u.protocol = strings.ToLower(protocol)
	if u.port != 0 && u.port == DefaultPort(u.protocol) {
		u.port = 0
	}
	return u
}

// WithHost returns a copy with the host replaced.
func (u URL) WithHost(host string) URL {
	u.host = strings.ToLower(host)
	return u
}

// WithPort returns a copy with the port replaced. 0 selects the default.
func (u URL) WithPort(port int) URL {
	if port == DefaultPort(u.protocol) {
		port = 0
	}
	u.port = port
	return u
}

// WithPath returns a copy with a normalized path.
func (u URL) WithPath(p string) URL {
	u.path = normalizePath(p)
	return u
}

// WithParam returns a copy with the query replaced.
func (u URL) WithParam(param string) URL {
	u.param = param
	return u
}

// WithFragment returns a copy with the fragment replaced.
func (u URL) WithFragment(fragment string) URL {
	u.fragment = fragment
	return u
}

// Equal compares the full tuple.
func (u URL) Equal(o URL) bool {
	return u.protocol == o.protocol &&
		u.host == o.host &&
		u.port == o.port &&
		u.path == o.path &&
		u.param == o.param &&
		u.fragment == o.fragment
}

// Less orders by protocol, host, path, param, fragment, then port.
func (u URL) Less(o URL) bool {
	if u.protocol != o.protocol {
		return u.protocol < o.protocol
	}
	if u.host != o.host {
		return u.host < o.host
	}
	if u.path != o.path {
		return u.path < o.path
	}
	if u.param != o.param {
		return u.param < o.param
	}
	if u.fragment != o.fragment {
		return u.fragment < o.fragment
	}
	return u.port < o.port
}
