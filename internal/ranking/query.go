package ranking

import (
	"regexp"
	"strconv"
	"strings"
)

// Constraint matches a filter value, optionally negated.
type Constraint struct {
	Value  string
	Negate bool
}

// SizeConstraint bounds the page size in bytes, exclusive.
type SizeConstraint struct {
	Bytes   int64
	Greater bool
}

// Filter narrows ranked results. Within one kind the constraints are ORed;
// kinds are ANDed.
type Filter struct {
	ContentType []Constraint
	Domain      []Constraint
	Size        []SizeConstraint
}

// Empty reports whether f filters nothing.
func (f Filter) Empty() bool {
	return len(f.ContentType) == 0 && len(f.Domain) == 0 && len(f.Size) == 0
}

// Match reports whether a page passes f. Pages of unknown (zero) size fail
// every size filter.
func (f Filter) Match(host, contentType string, size int64) bool {
	if len(f.Size) > 0 {
		if size == 0 {
			return false
		}
		if !anyOf(f.Size, func(c SizeConstraint) bool {
			if c.Greater {
				return size > c.Bytes
			}
			return size < c.Bytes
		}) {
			return false
		}
	}
	if len(f.Domain) > 0 && !anyOf(f.Domain, func(c Constraint) bool {
		return c.Negate != (host == c.Value)
	}) {
		return false
	}
	if len(f.ContentType) > 0 && !anyOf(f.ContentType, func(c Constraint) bool {
		return c.Negate != (contentType != "" && strings.HasPrefix(contentType, c.Value))
	}) {
		return false
	}
	return true
}

func anyOf[T any](items []T, pred func(T) bool) bool {
	for _, it := range items {
		if pred(it) {
			return true
		}
	}
	return false
}

var sizeFilter = regexp.MustCompile(`(?i)^([><])([.0-9]+)([gbkmibyte]+)?$`)

type tokenKind int

const (
	tokenText tokenKind = iota
	tokenFilter
	tokenNot
)

// ParseQuery splits user input into the lowercased text query and its
// filters. Filters are content_type:, domain: and size:>N or size:<N with
// an optional unit. A NOT directly before a filter negates it; anywhere else
// it is ordinary text. Malformed size filters are dropped.
func ParseQuery(input string) (string, Filter) {
	words := strings.Fields(input)
	kinds := make([]tokenKind, len(words))
	for i, w := range words {
		switch {
		case isFilterToken(w):
			kinds[i] = tokenFilter
		case w == "NOT" || w == "not":
			kinds[i] = tokenNot
		}
	}

	var (
		text   []string
		filter Filter
		negate bool
	)
	for i, w := range words {
		switch kinds[i] {
		case tokenText:
			text = append(text, w)
		case tokenNot:
			if i+1 < len(words) && kinds[i+1] == tokenFilter {
				negate = true
			} else {
				text = append(text, w)
			}
		case tokenFilter:
			key, value, _ := strings.Cut(w, ":")
			switch key {
			case "content_type":
				filter.ContentType = append(filter.ContentType, Constraint{Value: value, Negate: negate})
			case "domain":
				filter.Domain = append(filter.Domain, Constraint{Value: value, Negate: negate})
			case "size":
				if c, ok := parseSize(value); ok {
					c.Greater = c.Greater != negate
					filter.Size = append(filter.Size, c)
				}
			}
			negate = false
		}
	}
	return strings.ToLower(strings.Join(text, " ")), filter
}

func isFilterToken(w string) bool {
	sep := strings.IndexByte(w, ':')
	if sep <= 0 || sep == len(w)-1 {
		return false
	}
	switch w[:sep] {
	case "content_type", "domain", "size":
		return true
	}
	return false
}

func parseSize(value string) (SizeConstraint, bool) {
	m := sizeFilter.FindStringSubmatch(value)
	if m == nil {
		return SizeConstraint{}, false
	}
	n, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return SizeConstraint{}, false
	}
	unit, ok := SizeUnit(m[3])
	if !ok {
		return SizeConstraint{}, false
	}
	return SizeConstraint{Bytes: int64(n * float64(unit)), Greater: m[1] == ">"}, true
}

// SizeUnit returns the multiplier of a size suffix. k, m and g are decimal;
// ki, mi and gi binary. A trailing "b" is optional.
func SizeUnit(unit string) (int64, bool) {
	unit = strings.ToLower(unit)
	if len(unit) > 1 && strings.HasSuffix(unit, "b") {
		unit = unit[:len(unit)-1]
	}
	switch unit {
	case "", "b", "byte":
		return 1, true
	case "k":
		return 1000, true
	case "ki":
		return 1024, true
	case "m":
		return 1000 * 1000, true
	case "mi":
		return 1024 * 1024, true
	case "g":
		return 1000 * 1000 * 1000, true
	case "gi":
		return 1024 * 1024 * 1024, true
	}
	return 0, false
}

// Paginate returns page (zero based) of items. Out of range pages are empty.
func Paginate[T any](items []T, page, size int) []T {
	if page < 0 || size <= 0 || page > len(items)/size {
		return nil
	}
	begin := page * size
	end := min(begin+size, len(items))
	return items[begin:end]
}
