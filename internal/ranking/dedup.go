package ranking

import (
	"cmp"
	"slices"
	"strings"

	"github.com/JakeFAU/gemini-search/internal/gemurl"
)

// userDirToken replaces the spellings of a per-user directory so that
// "/~alice" and "/users/alice" compare equal.
const userDirToken = "/\x00u"

var userDirs = strings.NewReplacer("/~", userDirToken, "/users", userDirToken, "/user", userDirToken)

// Dedup merges results sharing a content hash when they are plausibly the
// same document: same host, same path, the same user directory spelled
// differently, or one is a mirror of the other. The higher score survives a
// merge, except that a mirror never replaces the page it mirrors. Empty
// pages are never merged. The result is sorted by descending score.
func Dedup(results []Ranked) []Ranked {
	groups := make(map[string][]int)
	kept := make([]*Ranked, 0, len(results))
	for i := range results {
		r := &results[i]
		slots := groups[r.ContentHash]
		if r.Size == 0 || len(slots) == 0 {
			groups[r.ContentHash] = append(slots, len(kept))
			kept = append(kept, r)
			continue
		}
		if !mergeInto(kept, slots, r) {
			groups[r.ContentHash] = append(slots, len(kept))
			kept = append(kept, r)
		}
	}

	out := make([]Ranked, 0, len(kept))
	for _, r := range kept {
		out = append(out, *r)
	}
	slices.SortStableFunc(out, func(a, b Ranked) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return strings.Compare(a.URL, b.URL)
	})
	return out
}

// mergeInto folds r into the first matching kept entry and reports whether
// it matched.
func mergeInto(kept []*Ranked, slots []int, r *Ranked) bool {
	u := gemurl.Parse(r.URL)
	for _, slot := range slots {
		stored := kept[slot]
		s := gemurl.Parse(stored.URL)
		switch {
		case IsMirrorOf(u, s):
			return true
		case IsMirrorOf(s, u):
			kept[slot] = r
			return true
		case u.Host() == s.Host() || u.Path() == s.Path() || sameUserDir(r.URL, stored.URL):
			if stored.Score < r.Score {
				kept[slot] = r
			}
			return true
		}
	}
	return false
}

// IsMirrorOf reports whether mirror republishes original under a path of the
// form /<original host><original path>, as archives do.
func IsMirrorOf(mirror, original gemurl.URL) bool {
	if original.Host() == "" || mirror.Host() == original.Host() {
		return false
	}
	return strings.HasSuffix(mirror.Path(), "/"+original.Host()+original.Path())
}

func sameUserDir(a, b string) bool {
	return userDirs.Replace(a) == userDirs.Replace(b)
}
