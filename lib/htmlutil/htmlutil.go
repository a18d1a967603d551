package htmlutil

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// Normalize removes non-printable characters, trims the string and
// collapses runs of unicode whitespace (including non-breaking spaces)
// into a single space.
func Normalize(s string) string {
	return strings.Join(strings.Fields(removeNonPrintable(s)), " ")
}

// Text returns the normalized text of all nodes in the selection.
func Text(sel *goquery.Selection) string {
	var buffer bytes.Buffer
	for _, n := range sel.Nodes {
		getTextRecursive(n, &buffer)
	}
	return Normalize(buffer.String())
}

type Anchor struct {
	Name string
	Href string
}

// GetAnchors collects the href and normalized text of every node in sel,
// nodes without an href are skipped.
func GetAnchors(sel *goquery.Selection) []Anchor {
	anchors := []Anchor{}
	for _, n := range sel.Nodes {
		href := ""
		found := false
		for _, a := range n.Attr {
			if a.Key == "href" {
				href = a.Val
				found = true
				break
			}
		}
		if !found {
			continue
		}

		anchors = append(anchors, Anchor{
			Name: Normalize(GetText(n)),
			Href: strings.TrimSpace(href),
		})
	}
	return anchors
}

// ScriptTexts returns the contents of every inline <script> element
// below sel, scripts with a src attribute are skipped.
func ScriptTexts(sel *goquery.Selection) []string {
	var scripts []string
	sel.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, external := s.Attr("src"); external {
			return
		}
		text := GetText(s.Get(0))
		if strings.TrimSpace(text) == "" {
			return
		}
		scripts = append(scripts, text)
	})
	return scripts
}
