// Package robots parses robots.txt files served by Gemini capsules and matches
// their disallow rules against request paths.
package robots

import (
	"regexp"
	"sort"
	"strings"
)

// DefaultAgents is the set of user-agent tokens the crawler honors.
var DefaultAgents = []string{"*", "gemini-search", "indexer"}

// Parse returns the sorted, de-duplicated disallow rules that apply to any of
// agents. Consecutive User-agent lines form one group. An empty Disallow value
// clears every rule collected so far. Rules that appear before the first
// User-agent line apply to everyone.
func Parse(text string, agents []string) []string {
	want := make(map[string]struct{}, len(agents))
	for _, a := range agents {
		want[a] = struct{}{}
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	disallowed := make(map[string]struct{})
	care := true
	lastWasAgent := false
	for _, line := range strings.Split(text, "\n") {
		key, value, ok := splitDirective(line)
		if !ok {
			continue
		}
		if key == "user-agent" {
			_, match := want[value]
			if lastWasAgent {
				care = care || match
			} else {
				care = match
			}
			lastWasAgent = true
			continue
		}
		lastWasAgent = false
		if key != "disallow" || !care {
			continue
		}
		if value == "" {
			disallowed = make(map[string]struct{})
			continue
		}
		disallowed[value] = struct{}{}
	}

	out := make([]string, 0, len(disallowed))
	for p := range disallowed {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func splitDirective(line string) (string, string, bool) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return "", "", false
	}
	key := strings.ToLower(strings.TrimSpace(line[:idx]))
	value := strings.TrimSpace(line[idx+1:])
	return key, value, true
}

// IsPathBlocked reports whether any of the rules matches path.
func IsPathBlocked(path string, rules []string) bool {
	for _, rule := range rules {
		if WildcardPathMatch(rule, path) {
			return true
		}
	}
	return false
}

// WildcardPathMatch matches a robots.txt path pattern against path.
//
// Without '*', the pattern matches the path itself, the path as a directory,
// or anything beneath it (so "/foo" matches "/foo/bar" but not "/foobar").
// With wildcards, common shapes are handled directly and anything else is
// translated to an anchored regular expression.
func WildcardPathMatch(pattern, path string) bool {
	if pattern == "" {
		return false
	}
	stars := strings.Count(pattern, "*")
	if stars == 0 {
		if path == pattern || path == pattern+"/" {
			return true
		}
		return len(path) > len(pattern)+1 &&
			strings.HasPrefix(path, pattern) &&
			(path[len(pattern)] == '/' || strings.HasSuffix(pattern, "/"))
	}

	if strings.HasSuffix(pattern, "$") && (strings.HasPrefix(pattern, "*") || strings.HasPrefix(pattern, "/*")) {
		pattern = pattern[:len(pattern)-1]
	}
	last := pattern[len(pattern)-1]

	switch {
	case stars == 2 && pattern[0] == '*' && last == '*' && len(pattern) >= 2:
		return strings.Contains(path, pattern[1:len(pattern)-1])
	case stars == 2 && strings.HasPrefix(pattern, "/*") && last == '*' && len(pattern) >= 3:
		return strings.Contains(path, pattern[2:len(pattern)-1])
	case stars == 1 && pattern[0] == '*':
		return strings.HasSuffix(path, pattern[1:])
	case stars == 1 && strings.HasPrefix(pattern, "/*"):
		return strings.HasSuffix(path, pattern[2:])
	case stars == 1 && last == '*':
		return strings.HasPrefix(path, pattern[:len(pattern)-1])
	case stars == 1:
		n := strings.IndexByte(pattern, '*')
		prefix, suffix := pattern[:n], pattern[n+1:]
		if !strings.HasPrefix(path, prefix) {
			return false
		}
		return strings.LastIndex(path, suffix) >= n
	}
	return regexMatch(pattern, path)
}

func regexMatch(pattern, path string) bool {
	pattern = strings.TrimSuffix(pattern, "$")
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	re, err := regexp.Compile("^" + strings.Join(parts, ".*") + "$")
	if err != nil {
		return false
	}
	return re.MatchString(path)
}
