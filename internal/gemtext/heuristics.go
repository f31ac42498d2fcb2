package gemtext

import (
	"regexp"
	"strings"

	"github.com/JakeFAU/gemini-search/internal/gemurl"
)

// FeedTypeGemsub marks pages that publish a dated list of entries.
const FeedTypeGemsub = "gemsub"

var artGlyphs = []string{"☆", "★", "░", "█", "⣿", "⡇", "⢀", "┼", "╭", "(_-<"}

// IsASCIIArt guesses whether a preformatted block is a drawing. Four or more
// identical non-blank characters in a row, or glyphs that rarely appear in
// code, are treated as art.
func IsASCIIArt(s string) bool {
	var last rune
	count := 0
	for _, r := range s {
		if r == last {
			count++
		} else {
			last, count = r, 1
		}
		if count >= 4 && r != ' ' && r != '\t' {
			return true
		}
	}
	for _, g := range artGlyphs {
		if strings.Contains(s, g) {
			return true
		}
	}
	return false
}

// IsSeparator matches lines used to divide paragraphs: one repeated
// character, or a label framed by at least three identical characters on each
// side such as "----- next up -----".
func IsSeparator(line string) bool {
	if line == "" {
		return false
	}
	runes := []rune(line)
	first, last := runes[0], runes[len(runes)-1]
	if strings.Trim(line, string(first)) == "" {
		return true
	}
	if len(runes) <= 6 || first == ' ' || first == '\t' || last == ' ' || last == '\t' {
		return false
	}
	return strings.Trim(string(runes[:3]), string(first)) == "" &&
		strings.Trim(string(runes[len(runes)-3:]), string(last)) == ""
}

// IsTreeOutput matches lines pasted from the `tree` command.
func IsTreeOutput(line string) bool {
	for _, g := range []string{"│", "├", "└"} {
		if idx := strings.Index(line, g); idx >= 0 && idx < 3 {
			return true
		}
	}
	return false
}

var datedEntry = regexp.MustCompile(`^[0-9]{4}-[0-9]{1,2}-[0-9]{1,2}`)

// IsGemsub reports whether nodes contain a run of at least three consecutive
// links whose label starts with a YYYY-MM-DD date and whose target stays on
// the page's own host and protocol. Non-matching links reset the run; other
// node types do not.
func IsGemsub(nodes []Node, page gemurl.URL) bool {
	streak, best := 0, 0
	for _, n := range nodes {
		if n.Type != NodeLink {
			continue
		}
		if !datedEntry.MatchString(n.Text) || n.Meta == "" || !sameOrigin(n.Meta, page) {
			streak = 0
			continue
		}
		streak++
		if streak > best {
			best = streak
		}
	}
	return best >= 3
}

func sameOrigin(target string, page gemurl.URL) bool {
	protocol, host := page.Protocol(), page.Host()
	if strings.Contains(target, "://") || strings.HasPrefix(target, "//") {
		link := gemurl.Parse(target)
		if link.Valid() {
			if link.Protocol() != "" {
				protocol = link.Protocol()
			}
			host = link.Host()
		}
	}
	return (page.Protocol() == "" || protocol == page.Protocol()) && host == page.Host()
}
