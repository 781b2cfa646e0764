package style

/*
License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/

import (
	"strings"
	"unicode"

	"github.com/npillmayer/schuko/tracing"
)

// tracer will return a tracer. We are tracing to 'dsp.style'
func tracer() tracing.Trace {
	return tracing.Select("dsp.style")
}

// Property is a raw value for a policy declaration. For example, with
//
//     --attribute-whitelist: title, alt;
//
// a property value of "title, alt" is set. The main purpose of wrapping
// the raw string value into type Property is to provide a set of
// convenient type conversion functions and other helpers.
type Property string

// NullStyle is an empty property value.
const NullStyle Property = ""

func (p Property) String() string {
	return string(p)
}

// IsEmpty checks wether a property is empty, i.e. the null-string.
func (p Property) IsEmpty() bool {
	return p == ""
}

// Keyword returns the property with all white space removed. Case is
// preserved: a value of " tr ue " will result in "true", " TRUE " in "TRUE".
func (p Property) Keyword() string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, string(p))
}

// Bool interprets a property as a boolean keyword. The second return value
// is false if the property is neither "true" nor "false". Keywords are
// case-sensitive.
func (p Property) Bool() (value bool, ok bool) {
	switch p.Keyword() {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	if !p.IsEmpty() {
		tracer().Debugf("property value %q is not a boolean keyword", p)
	}
	return false, false
}

// Items splits a property into a list of items. Items are separated by
// white space or commas; surrounding quotes are stripped from each item and
// empty items are dropped. Example:
//
//     "evil.com", 'ads.com'  bad.org
//
// will result in [evil.com ads.com bad.org].
func (p Property) Items() []string {
	fields := strings.FieldsFunc(string(p), func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	items := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, `"'`)
		if f != "" {
			items = append(items, f)
		}
	}
	return items
}
