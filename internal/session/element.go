package session

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Element is a detached snapshot of one DOM element. Snapshots carry enough
// structure (outer HTML) that adapters can scope follow-up queries to a single
// element without another page round-trip.
type Element struct {
	Text  string            `json:"text"`
	Attrs map[string]string `json:"attrs"`
	HTML  string            `json:"html"`
}

// Attr returns the named attribute, or "" when absent.
func (e Element) Attr(name string) string {
	return e.Attrs[name]
}

// HasAttr reports whether the attribute exists, regardless of value. Needed
// for valueless markers such as disabled.
func (e Element) HasAttr(name string) bool {
	_, ok := e.Attrs[name]
	return ok
}

// HasClass reports whether the element's class list contains name.
func (e Element) HasClass(name string) bool {
	for _, c := range strings.Fields(e.Attrs["class"]) {
		if c == name {
			return true
		}
	}
	return false
}

// Find runs selector against this element's subtree.
func (e Element) Find(selector string) ([]Element, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(e.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse element fragment: %w", err)
	}
	return FromSelection(doc.Find(selector))
}

// First returns the first match of selector, or false when none exists.
func (e Element) First(selector string) (Element, bool) {
	matches, err := e.Find(selector)
	if err != nil || len(matches) == 0 {
		return Element{}, false
	}
	return matches[0], true
}

// FromSelection converts a goquery selection into element snapshots.
func FromSelection(sel *goquery.Selection) ([]Element, error) {
	out := make([]Element, 0, sel.Length())
	var convErr error
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		html, err := goquery.OuterHtml(s)
		if err != nil {
			convErr = fmt.Errorf("render element html: %w", err)
			return false
		}
		attrs := make(map[string]string)
		if len(s.Nodes) > 0 {
			for _, a := range s.Nodes[0].Attr {
				attrs[a.Key] = a.Val
			}
		}
		out = append(out, Element{
			Text:  strings.TrimSpace(s.Text()),
			Attrs: attrs,
			HTML:  html,
		})
		return true
	})
	if convErr != nil {
		return nil, convErr
	}
	return out, nil
}
