package cssom

import "github.com/npillmayer/dsp/dom/style"

// StyleSheet is an interface to abstract away a stylesheet-implementation.
// Policy documents are written in stylesheet syntax, but the policy engine
// does not parse them itself. Clients will have to provide a concrete
// implementation of this interface (e.g., see package douceuradapter).
//
// See interface Rule.
type StyleSheet interface {
	Empty() bool   // does this stylesheet contain any rules?
	Rules() []Rule // all the style rules of a stylesheet, in document order
}

// Rule is the type stylesheets consists of.
//
// See interface StyleSheet.
type Rule interface {
	Selector() string            // the prelude / selectors of the rule
	Properties() []string        // property keys in document order, e.g. "--protected"
	Value(string) style.Property // value of the last declaration for key, e.g. "true"
}
