package fetch

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// linkAttrs maps each element that can carry a crawlable URL to the
// attribute holding it.
var linkAttrs = map[string]string{
	"a":      "href",
	"link":   "href",
	"script": "src",
	"iframe": "src",
	"frame":  "src",
}

// document is what a single parse pass extracts from an HTML page.
type document struct {
	// links are the raw attribute values in document order.
	links []string

	// base is the href of the first <base> element, if any.
	base string
}

// parseDocument walks the DOM of r once and collects link values.
//
// golang.org/x/net/html recovers from malformed markup the way browsers
// do, so an error here means the reader itself failed.
func parseDocument(r io.Reader) (*document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	doc := &document{links: make([]string, 0)}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.Data == "base" && doc.base == "" {
				doc.base = strings.TrimSpace(getAttr(n, "href"))
			}
			if attr, ok := linkAttrs[n.Data]; ok {
				if v := strings.TrimSpace(getAttr(n, attr)); v != "" {
					doc.links = append(doc.links, v)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return doc, nil
}

// ExtractLinks returns the raw URL values of a[href], link[href],
// script[src], iframe[src] and frame[src] in document order.
// Values are neither resolved nor deduplicated.
func ExtractLinks(r io.Reader) ([]string, error) {
	doc, err := parseDocument(r)
	if err != nil {
		return nil, err
	}
	return doc.links, nil
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if strings.EqualFold(attr.Key, key) {
			return attr.Val
		}
	}
	return ""
}
