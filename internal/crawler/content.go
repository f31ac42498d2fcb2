package crawler

import (
	"strings"

	geminifetcher "github.com/JakeFAU/gemini-search/internal/fetcher/gemini"
	"github.com/JakeFAU/gemini-search/internal/gemtext"
	"github.com/JakeFAU/gemini-search/internal/gemurl"
	"github.com/JakeFAU/gemini-search/internal/linkresolve"
)

// binaryRatio is how much smaller than the raw body the decoded text may be
// before the body is treated as binary.
const binaryRatio = 10

// content is the indexable form of a successful response.
type content struct {
	mime     string
	charset  string
	lang     string
	title    string
	body     string
	size     int64
	feedType string
	links    linkresolve.Links
}

// extract turns a 2x response into indexable content. Links are resolved
// against the final URL after redirects.
func extract(resp geminifetcher.Response, protocol string) (content, error) {
	mime, params := geminifetcher.ParseMeta(resp.Meta)
	c := content{
		mime:    mime,
		charset: params["charset"],
		lang:    params["lang"],
		title:   fallbackTitle(resp.URL),
	}
	if resp.BodySkipped || !indexable(mime) {
		return c, nil
	}

	text := geminifetcher.Decode(resp.Body, c.charset)
	if len(text) < len(resp.Body)/binaryRatio {
		return content{}, ErrBinaryContent
	}
	c.size = int64(len(resp.Body))

	if mime != "text/gemini" {
		c.body = text
		return c, nil
	}
	nodes := gemtext.Parse(text)
	doc := gemtext.ExtractConcise(nodes)
	if t := strings.TrimSpace(doc.Title); t != "" {
		c.title = t
	}
	c.body = doc.Text
	c.links = linkresolve.Collect(resp.URL, doc.Links, protocol)
	if gemtext.IsGemsub(nodes, resp.URL) {
		c.feedType = gemsubFeed
	}
	return c, nil
}

// requestInfo is the content recorded for a 1x (input) response: the prompt
// doubles as title and body.
func requestInfo(meta string) content {
	return content{mime: requestInfoType, title: meta, body: meta, size: int64(len(meta))}
}

func indexable(mime string) bool {
	if mime == "text/gemini" {
		return true
	}
	_, ok := plainTypes[mime]
	return ok
}

// fallbackTitle is the canonical URL, which already omits the default port.
func fallbackTitle(u gemurl.URL) string {
	return u.WithFragment("").String()
}
