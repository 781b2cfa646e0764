package dsp

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/npillmayer/dsp/dom/style/cssom"
	"github.com/npillmayer/dsp/dom/style/cssom/douceuradapter"
)

// Document is a parsed policy: an ordered list of rules. Rule order is
// document order and is significant for evaluation.
//
// A Document is immutable once loaded. A nil *Document is legal and
// behaves like a policy without rules.
type Document struct {
	id     uuid.UUID
	text   string
	rules  []*Rule
	loaded time.Time
}

// ParseError is returned if a policy text cannot be turned into a document
// at all. Malformed individual rules are not an error; they are dropped.
type ParseError struct {
	Text string // the policy text
	Err  error  // underlying parser error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse DOM security policy: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// LoadPolicy parses a policy text and creates a new document from it.
// The only error returned is of type *ParseError.
func LoadPolicy(text string) (*Document, error) {
	tracer().Infof("received DOM security policy %q", text)
	sheet, err := douceuradapter.Parse(text)
	if err != nil {
		return nil, &ParseError{Text: text, Err: err}
	}
	return NewDocument(text, sheet), nil
}

// NewDocument creates a document from the rules of an already parsed
// stylesheet. Rules with selectors which cannot be compiled are skipped.
func NewDocument(text string, sheet cssom.StyleSheet) *Document {
	doc := &Document{
		id:     uuid.New(),
		text:   text,
		loaded: time.Now(),
	}
	if sheet == nil || sheet.Empty() {
		tracer().P("policy", doc.id).Debugf("policy document has no rules")
		return doc
	}
	for _, r := range sheet.Rules() {
		rule, err := newRule(len(doc.rules), r)
		if err != nil {
			tracer().P("policy", doc.id).Debugf("skipping rule: %v", err)
			continue
		}
		doc.rules = append(doc.rules, rule)
	}
	tracer().P("policy", doc.id).Debugf("policy document has %d rules", len(doc.rules))
	return doc
}

// ID returns a unique identifier for a loaded document.
func (doc *Document) ID() uuid.UUID {
	if doc == nil {
		return uuid.Nil
	}
	return doc.id
}

// Text returns the policy text a document has been created from.
func (doc *Document) Text() string {
	if doc == nil {
		return ""
	}
	return doc.text
}

// Loaded returns the time a document has been created.
func (doc *Document) Loaded() time.Time {
	if doc == nil {
		return time.Time{}
	}
	return doc.loaded
}

// Len returns the number of rules of a document.
func (doc *Document) Len() int {
	if doc == nil {
		return 0
	}
	return len(doc.rules)
}

// Rule returns rule number i in document order.
func (doc *Document) Rule(i int) *Rule {
	if i < 0 || i >= doc.Len() {
		return nil
	}
	return doc.rules[i]
}
