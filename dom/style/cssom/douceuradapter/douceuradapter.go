/*
Package douceuradapter is a concrete implementation of interface cssom.StyleSheet.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package douceuradapter

import (
	"fmt"
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"github.com/gorilla/css/scanner"
	"github.com/npillmayer/dsp/dom/style"
	"github.com/npillmayer/dsp/dom/style/cssom"
	"github.com/npillmayer/schuko/tracing"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// tracer traces with key 'dsp.cssom'.
func tracer() tracing.Trace {
	return tracing.Select("dsp.cssom")
}

// PolicyHTTPEquiv is the http-equiv value of <meta> elements carrying a
// DOM security policy.
const PolicyHTTPEquiv = "DOM-Security-Policy"

// CSSStyles is an adapter for interface cssom.StyleSheet.
// For an explanation of the motivation behind this design, please refer
// to documentation for interface cssom.StyleSheet.
type CSSStyles struct {
	css css.Stylesheet
}

// Wrap a douceur.css.Stylesheet into CssStyles.
// The stylesheet is now managed by the wrapper.
func Wrap(css *css.Stylesheet) *CSSStyles {
	sheet := &CSSStyles{*css}
	return sheet
}

// Parse parses a policy text in stylesheet syntax. Parsing is tolerant
// as far as douceur is; an error is returned only if douceur cannot produce
// a stylesheet at all.
func Parse(text string) (*CSSStyles, error) {
	if err := checkPreludes(text); err != nil {
		return nil, fmt.Errorf("cannot parse policy stylesheet: %w", err)
	}
	sheet, err := parser.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("cannot parse policy stylesheet: %w", err)
	}
	tracer().Debugf("parsed policy stylesheet with %d top-level rules", len(sheet.Rules))
	return Wrap(sheet), nil
}

// Empty checks if this stylesheet contains any rules.
//
// Interface cssom.StyleSheet
func (sheet *CSSStyles) Empty() bool {
	return len(sheet.css.Rules) == 0
}

// Rules returns all the style rules of a stylesheet, in document order.
// At-rules (@media, @import, …) carry no directives and are skipped.
//
// Interface cssom.StyleSheet
func (sheet *CSSStyles) Rules() []cssom.Rule {
	rules := make([]cssom.Rule, 0, len(sheet.css.Rules))
	for _, r := range sheet.css.Rules {
		if r.Kind != css.QualifiedRule {
			tracer().P("at-rule", r.Name).Debugf("skipping at-rule in policy")
			continue
		}
		rules = append(rules, Rule(*r))
	}
	return rules
}

var _ cssom.StyleSheet = &CSSStyles{}

// Rule is an adapter for interface cssom.Rule.
type Rule css.Rule

// Selector returns the prelude / selectors of the rule.
func (r Rule) Selector() string {
	return r.Prelude
}

// Properties returns the property keys of a rule in document order,
// e.g. "--protected". Keys declared more than once are listed more than once.
func (r Rule) Properties() []string {
	decl := r.Declarations
	props := make([]string, 0, len(decl))
	for _, d := range decl {
		props = append(props, d.Property)
	}
	return props
}

// Value returns the property value for given key with this rule, e.g. "true".
// If a key is declared more than once, the last declaration wins.
func (r Rule) Value(key string) style.Property {
	decl := r.Declarations
	for i := len(decl) - 1; i >= 0; i-- {
		if decl[i].Property == key {
			return style.Property(decl[i].Value)
		}
	}
	return style.NullStyle
}

var _ cssom.Rule = &Rule{}

// ExtractPolicyElements visits the <head> element of an HTML parse tree
// and searches for <meta http-equiv="DOM-Security-Policy"> elements.
// It returns the content attributes of these elements in document order.
func ExtractPolicyElements(htmldoc *html.Node) []string {
	head := findElement(atom.Head, htmldoc)
	if head == nil {
		return nil
	}
	var policies []string
	for ch := head.FirstChild; ch != nil; ch = ch.NextSibling {
		if ch.Type != html.ElementNode || ch.DataAtom != atom.Meta {
			continue
		}
		equiv, content := "", ""
		for _, a := range ch.Attr {
			switch a.Key {
			case "http-equiv":
				equiv = a.Val
			case "content":
				content = a.Val
			}
		}
		if strings.EqualFold(equiv, PolicyHTTPEquiv) && content != "" {
			policies = append(policies, content)
		}
	}
	return policies
}

func findElement(a atom.Atom, h *html.Node) *html.Node {
	if h == nil {
		return nil
	}
	if h.DataAtom == a {
		return h
	}
	ch := h.FirstChild
	for ch != nil {
		r := findElement(a, ch)
		if r != nil && r.DataAtom == a {
			return r
		}
		ch = ch.NextSibling
	}
	return nil
}

// --- Pre-scanning ----------------------------------------------------------

// scanContext is the kind of block a pre-scan is in.
type scanContext int8

const (
	ruleList scanContext = iota
	declarationList
)

// checkPreludes tokenizes a text the way douceur does and rejects
// rule preludes douceur cannot get past: a ';' where a rule or its
// selector is expected, and a '{' without a selector. douceur loops
// forever on the former and silently treats a leading '{' as a block of
// rules.
//
// Tokenizer errors are left to douceur to report.
func checkPreludes(text string) error {
	s := scanner.New(text)
	stack := []scanContext{ruleList}
	var (
		inPrelude bool   // scanning the prelude of a rule
		atRule    string // name of the at-rule whose prelude is scanned
	)
	for {
		tok := s.Next()
		switch tok.Type {
		case scanner.TokenEOF, scanner.TokenError:
			return nil
		case scanner.TokenS, scanner.TokenComment, scanner.TokenCDO,
			scanner.TokenCDC, scanner.TokenBOM:
			continue
		}
		top := stack[len(stack)-1]
		if top == declarationList {
			if isChar(tok, "}") {
				stack = stack[:len(stack)-1]
			}
			continue
		}
		switch {
		case !inPrelude && tok.Type == scanner.TokenAtKeyword:
			inPrelude, atRule = true, tok.Value
		case !inPrelude && isChar(tok, "}"):
			if len(stack) == 1 {
				return nil // unbalanced, douceur reports this
			}
			stack = stack[:len(stack)-1]
		case isChar(tok, ";"):
			if atRule == "" {
				return unexpected(tok)
			}
			inPrelude, atRule = false, ""
		case isChar(tok, "{"):
			if !inPrelude {
				return unexpected(tok)
			}
			next := declarationList
			if atRule != "" && (&css.Rule{Kind: css.AtRule, Name: atRule}).EmbedsRules() {
				next = ruleList
			}
			stack = append(stack, next)
			inPrelude, atRule = false, ""
		case !inPrelude:
			inPrelude = true
		}
	}
}

func isChar(tok *scanner.Token, c string) bool {
	return tok.Type == scanner.TokenChar && tok.Value == c
}

func unexpected(tok *scanner.Token) error {
	return fmt.Errorf("unexpected %q at line %d, column %d", tok.Value, tok.Line, tok.Column)
}
