package gemurl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw      string
		protocol string
		host     string
		port     int
		path     string
		param    string
		fragment string
		str      string
	}{
		{"http://example.com", "http", "example.com", 80, "/", "", "", "http://example.com/"},
		{"gemini://localhost/index.gmi?15", "gemini", "localhost", 1965, "/index.gmi", "15", "", "gemini://localhost/index.gmi?15"},
		{"gemini://localhost:1965/index.gmi?15", "gemini", "localhost", 1965, "/index.gmi", "15", "", "gemini://localhost/index.gmi?15"},
		{"gemini://localhost:1966", "gemini", "localhost", 1966, "/", "", "", "gemini://localhost:1966/"},
		{"GEMINI://LocalHost", "gemini", "localhost", 1965, "/", "", "", "gemini://localhost/"},
		{"gemini://localhost/a/../b", "gemini", "localhost", 1965, "/b", "", "", "gemini://localhost/b"},
		{"gemini://localhost/aaa#123", "gemini", "localhost", 1965, "/aaa", "", "123", "gemini://localhost/aaa#123"},
		{"gemini://localhost/aaa?456#123", "gemini", "localhost", 1965, "/aaa", "456", "123", "gemini://localhost/aaa?456#123"},
		{"gemini://localhost/dir/", "gemini", "localhost", 1965, "/dir/", "", "", "gemini://localhost/dir/"},
		{"//smol.pub/", "", "smol.pub", 0, "/", "", "", "//smol.pub/"},
		{"//smol.pub/123456", "", "smol.pub", 0, "/123456", "", "", "//smol.pub/123456"},
		{"foo://host:7000/x", "foo", "host", 7000, "/x", "", "", "foo://host:7000/x"},
		{"gemini://[::1]:1966/x", "gemini", "[::1]", 1966, "/x", "", "", "gemini://[::1]:1966/x"},
		{"gemini://[::1]:1965", "gemini", "[::1]", 1965, "/", "", "", "gemini://[::1]/"},
		{"gemini://[2001:DB8::1]/a?b", "gemini", "[2001:db8::1]", 1965, "/a", "b", "", "gemini://[2001:db8::1]/a?b"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.raw, func(t *testing.T) {
			t.Parallel()
			u := Parse(tc.raw)
			require.True(t, u.Valid())
			require.NoError(t, u.Validate())
			assert.Equal(t, tc.protocol, u.Protocol())
			assert.Equal(t, tc.host, u.Host())
			assert.Equal(t, tc.port, u.Port())
			assert.Equal(t, tc.path, u.Path())
			assert.Equal(t, tc.param, u.Param())
			assert.Equal(t, tc.fragment, u.Fragment())
			assert.Equal(t, tc.str, u.String())
		})
	}
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"",
		"http:/example.com",
		"$!@://example.com",
		"./example.com",
		"http://example.com:ababababa",
		"http://example.com:/",
		"://example.com",
		"://",
		"gemini://.smol.pub/",
		"gemini://example.com:65536/",
		"gemini://example.com:-1/",
		"gemini://example.com:0/",
		"gemini://[::1",
		"gemini://[not-an-ip]/",
		"gemini://[::1]x/",
		"gemini://[::1]:99999/",
	} {
		raw := raw
		t.Run(raw, func(t *testing.T) {
			t.Parallel()
			u := Parse(raw)
			require.False(t, u.Valid())
			require.ErrorIs(t, u.Validate(), ErrInvalid)
			_ = u.String()
			_ = u.HostWithPort(1965)
		})
	}
}

func TestCanonicalRoundTrip(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"gemini://Example.com:1965/a/./b/../c?q=1#frag",
		"gemini://example.com:1966/",
		"http://example.com:80/x/",
		"//host/path",
		"gopher://host:70/1/x",
		"gemini://[FE80::1]:1965/x",
	} {
		first := Parse(raw)
		require.True(t, first.Valid(), raw)
		second := Parse(first.String())
		require.True(t, second.Valid(), raw)
		assert.True(t, first.Equal(second), "%s: %s != %s", raw, first, second)
		assert.Equal(t, first.String(), second.String())
	}
}

func TestHostWithPort(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "example.com:1965", Parse("gemini://example.com/").HostWithPort(1965))
	assert.Equal(t, "example.com:1966", Parse("gemini://example.com:1966/").HostWithPort(1965))
	assert.Equal(t, "example.com:0", Parse("gemini://example.com/").HostWithPort(0))
	assert.Equal(t, "[::1]:1965", Parse("gemini://[::1]/").HostWithPort(1965))
}

func TestBuilders(t *testing.T) {
	t.Parallel()

	base := Parse("gemini://example.com/a/b?x#y")
	moved := base.WithPath("c/../d/")
	assert.Equal(t, "/d/", moved.Path())
	assert.Equal(t, "/a/b", base.Path(), "original must not change")

	assert.Equal(t, "gemini://example.com/a/b#y", base.WithParam("").String())
	assert.Equal(t, "gemini://example.com/a/b?x", base.WithFragment("").String())
	assert.Equal(t, "gemini://example.com/a/b?x#y", base.WithPort(1965).String())
	assert.Equal(t, "gemini://example.com:1970/a/b?x#y", base.WithPort(1970).String())
	assert.Equal(t, "gemini://other.org/a/b?x#y", base.WithHost("Other.org").String())
	assert.Equal(t, "https://example.com/a/b?x#y", base.WithProtocol("HTTPS").String())
}

func TestEqualAndLess(t *testing.T) {
	t.Parallel()

	a := Parse("gemini://a.com/x")
	b := Parse("gemini://b.com/x")
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.True(t, a.Equal(Parse("GEMINI://A.COM:1965/x")))
	assert.False(t, a.Equal(Parse("gemini://a.com:1966/x")))
	assert.True(t, Parse("gemini://a.com/x").Less(Parse("gemini://a.com:1966/x")))
}

func TestDefaultPort(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 80, DefaultPort("http"))
	assert.Equal(t, 443, DefaultPort("https"))
	assert.Equal(t, 1965, DefaultPort("gemini"))
	assert.Equal(t, 70, DefaultPort("gopher"))
	assert.Equal(t, 21, DefaultPort("ftp"))
	assert.Equal(t, 0, DefaultPort("spartan"))
}

func TestMustParse(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "gemini://example.com/", MustParse("gemini://Example.com").String())
	assert.Panics(t, func() { MustParse("gemini://:1965/") })
}
