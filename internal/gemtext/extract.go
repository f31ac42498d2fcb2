package gemtext

import "strings"

// Document is the indexable content of a page.
type Document struct {
	Title string
	Text  string
	Links []string
}

// bannerHints are alt-text fragments that usually label decorative blocks.
var bannerHints = []string{
	"ascii", "art", "banner", "logo", "title", "news", "capsule",
	"user", "image", "the", "graphics", "world",
}

// Extract returns the full text, every link target and the first level-1
// heading.
func Extract(nodes []Node) Document {
	var doc Document
	var b strings.Builder
	for _, n := range nodes {
		b.WriteString(n.Text)
		b.WriteByte('\n')
		collect(&doc, n)
	}
	doc.Text = b.String()
	return doc
}

// ExtractConcise is Extract minus decoration: preformatted blocks that open
// the page, carry banner-like alt text or look like ASCII art, separator
// lines, and unformatted `tree` output.
func ExtractConcise(nodes []Node) Document {
	var doc Document
	var b strings.Builder
	firstContent := true
	for _, n := range nodes {
		switch {
		case n.Type == NodePreformatted:
			if firstContent || hasBannerHint(n.Meta) || IsASCIIArt(n.Text) {
				continue
			}
		case n.Type == NodeText && n.Text != "":
			firstContent = false
			if IsSeparator(n.Text) || IsTreeOutput(n.Text) {
				continue
			}
		}
		b.WriteString(n.Text)
		b.WriteByte('\n')
		collect(&doc, n)
	}
	doc.Text = b.String()
	return doc
}

func collect(doc *Document, n Node) {
	switch {
	case n.Type == NodeLink:
		doc.Links = append(doc.Links, n.Meta)
	case n.Type == NodeHeading1 && doc.Title == "":
		doc.Title = n.Text
	}
}

func hasBannerHint(meta string) bool {
	meta = strings.ToLower(meta)
	for _, hint := range bannerHints {
		if strings.Contains(meta, hint) {
			return true
		}
	}
	return false
}
