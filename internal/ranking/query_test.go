package ranking

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		query  string
		filter Filter
	}{
		{input: "Gemini  Protocol", query: "gemini protocol"},
		{input: "gemini domain:a.example", query: "gemini", filter: Filter{Domain: []Constraint{{Value: "a.example"}}}},
		{input: "gemini NOT domain:a.example", query: "gemini", filter: Filter{Domain: []Constraint{{Value: "a.example", Negate: true}}}},
		{input: "cats NOT dogs", query: "cats not dogs"},
		{input: "NOT", query: "not"},
		{
			input:  "news content_type:text/gemini content_type:text/plain",
			query:  "news",
			filter: Filter{ContentType: []Constraint{{Value: "text/gemini"}, {Value: "text/plain"}}},
		},
		{input: "x size:>10kb", query: "x", filter: Filter{Size: []SizeConstraint{{Bytes: 10000, Greater: true}}}},
		{input: "x NOT size:>1KiB", query: "x", filter: Filter{Size: []SizeConstraint{{Bytes: 1024}}}},
		{input: "x size:<1.5mb", query: "x", filter: Filter{Size: []SizeConstraint{{Bytes: 1500000}}}},
		{input: "x size:1.5m", query: "x"},
		{input: "x size:>3parsecs", query: "x"},
		{input: "content_type:text/gemini"},
		{input: "x domain:", query: "x domain:"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			query, filter := ParseQuery(tt.input)
			assert.Equal(t, tt.query, query)
			assert.Equal(t, tt.filter, filter)
		})
	}
}

func TestFilterMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		filter Filter
		host   string
		ct     string
		size   int64
		want   bool
	}{
		{name: "empty filter", host: "a.example", want: true},
		{name: "domain match", filter: Filter{Domain: []Constraint{{Value: "a.example"}}}, host: "a.example", size: 1, want: true},
		{name: "domain miss", filter: Filter{Domain: []Constraint{{Value: "a.example"}}}, host: "b.example", size: 1},
		{name: "negated domain", filter: Filter{Domain: []Constraint{{Value: "a.example", Negate: true}}}, host: "a.example"},
		{
			name:   "domains are ored",
			filter: Filter{Domain: []Constraint{{Value: "a.example"}, {Value: "b.example"}}},
			host:   "b.example",
			want:   true,
		},
		{name: "content type prefix", filter: Filter{ContentType: []Constraint{{Value: "text/"}}}, ct: "text/gemini", want: true},
		{name: "unknown content type", filter: Filter{ContentType: []Constraint{{Value: "text/"}}}},
		{name: "negated unknown content type", filter: Filter{ContentType: []Constraint{{Value: "text/", Negate: true}}}, want: true},
		{name: "size greater", filter: Filter{Size: []SizeConstraint{{Bytes: 100, Greater: true}}}, size: 101, want: true},
		{name: "size smaller", filter: Filter{Size: []SizeConstraint{{Bytes: 100}}}, size: 100},
		{name: "zero size fails", filter: Filter{Size: []SizeConstraint{{Bytes: 100}}}},
		{
			name:   "kinds are anded",
			filter: Filter{Domain: []Constraint{{Value: "a.example"}}, Size: []SizeConstraint{{Bytes: 10}}},
			host:   "a.example",
			size:   50,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.filter.Match(tt.host, tt.ct, tt.size))
		})
	}
}

func TestSizeUnit(t *testing.T) {
	t.Parallel()

	tests := map[string]int64{
		"": 1, "b": 1, "byte": 1, "K": 1000, "kb": 1000, "KiB": 1024,
		"m": 1000000, "mib": 1048576, "g": 1000000000, "GiB": 1073741824,
	}
	for unit, want := range tests {
		got, ok := SizeUnit(unit)
		assert.True(t, ok, unit)
		assert.Equal(t, want, got, unit)
	}
	_, ok := SizeUnit("tb")
	assert.False(t, ok)
}

func TestPaginate(t *testing.T) {
	t.Parallel()

	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{1, 2}, Paginate(items, 0, 2))
	assert.Equal(t, []int{5}, Paginate(items, 2, 2))
	assert.Empty(t, Paginate(items, 3, 2))
	assert.Nil(t, Paginate(items, -1, 2))
	assert.Nil(t, Paginate(items, 0, 0))
	assert.Empty(t, Paginate([]int{1, 2, 3, 4}, 2, 2))
	assert.Nil(t, Paginate(items, 922337203685477581, 10))
	assert.Nil(t, Paginate(items, math.MaxInt, math.MaxInt/2))
}
