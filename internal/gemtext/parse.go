// Package gemtext tokenizes text/gemini documents and extracts the title,
// links and indexable text from them.
package gemtext

import "strings"

// NodeType is the kind of a gemtext line.
type NodeType string

// Line types defined by the gemtext format.
const (
	NodeText         NodeType = "text"
	NodeLink         NodeType = "link"
	NodeHeading1     NodeType = "heading1"
	NodeHeading2     NodeType = "heading2"
	NodeHeading3     NodeType = "heading3"
	NodeList         NodeType = "list"
	NodeQuote        NodeType = "quote"
	NodePreformatted NodeType = "preformatted_text"
)

// Node is one logical element of a document. A preformatted block is a single
// node whose Text holds every enclosed line, each terminated by "\n", and whose
// Meta holds the alt text of the opening fence. For links Meta is the target.
type Node struct {
	Type     NodeType
	Text     string
	Meta     string
	OrigText string
}

// Parse splits a document into nodes.
func Parse(doc string) []Node {
	lines := strings.Split(doc, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	nodes := make([]Node, 0, len(lines))
	var pre *Node
	var preOrig strings.Builder
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if strings.HasPrefix(line, "```") {
			if pre == nil {
				pre = &Node{Type: NodePreformatted, Meta: strings.TrimSpace(line[3:])}
				preOrig.Reset()
				preOrig.WriteString(line)
				preOrig.WriteByte('\n')
				continue
			}
			preOrig.WriteString(line)
			pre.OrigText = preOrig.String()
			nodes = append(nodes, *pre)
			pre = nil
			continue
		}
		if pre != nil {
			pre.Text += line + "\n"
			preOrig.WriteString(line)
			preOrig.WriteByte('\n')
			continue
		}
		nodes = append(nodes, parseLine(line))
	}
	if pre != nil {
		pre.OrigText = preOrig.String()
		nodes = append(nodes, *pre)
	}
	return nodes
}

func parseLine(line string) Node {
	n := Node{Type: NodeText, Text: line, OrigText: line}
	switch {
	case strings.HasPrefix(line, "=>"):
		rest := strings.TrimLeft(line[2:], " \t")
		n.Type = NodeLink
		n.Text = ""
		if idx := strings.IndexAny(rest, " \t"); idx >= 0 {
			n.Meta = rest[:idx]
			n.Text = strings.TrimSpace(rest[idx:])
		} else {
			n.Meta = rest
		}
	case strings.HasPrefix(line, "###"):
		n.Type, n.Text = NodeHeading3, strings.TrimSpace(line[3:])
	case strings.HasPrefix(line, "##"):
		n.Type, n.Text = NodeHeading2, strings.TrimSpace(line[2:])
	case strings.HasPrefix(line, "#"):
		n.Type, n.Text = NodeHeading1, strings.TrimSpace(line[1:])
	case strings.HasPrefix(line, "* "):
		n.Type, n.Text = NodeList, strings.TrimSpace(line[2:])
	case strings.HasPrefix(line, ">"):
		n.Type, n.Text = NodeQuote, strings.TrimSpace(line[1:])
	}
	return n
}
