package dsp

import (
	"fmt"
	"iter"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Selector is the element-matching capability of the element tree. Policy
// rules hold a compiled selector; matching is done by cascadia.
type Selector interface {
	Match(*html.Node) bool
}

// compileSelector compiles a selector list, e.g. "a[href], img".
func compileSelector(text string) (Selector, error) {
	group, err := cascadia.ParseGroup(text)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", text, err)
	}
	return group, nil
}

// MatchingRules returns the rules of a document whose selectors match an
// element, in document order. The sequence is lazy: selectors of rules
// after the last one consumed are never evaluated.
func (doc *Document) MatchingRules(el *html.Node) iter.Seq[*Rule] {
	return func(yield func(*Rule) bool) {
		if doc == nil {
			return
		}
		for _, rule := range doc.rules {
			if !rule.Matches(el) {
				continue
			}
			if !yield(rule) {
				return
			}
		}
	}
}
