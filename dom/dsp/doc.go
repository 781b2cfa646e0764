/*
Package dsp implements a DOM security policy: a declarative policy deciding
whether runtime mutations of a DOM are permitted.

Overview

A policy is written in stylesheet syntax. Selectors scope directives to
elements, declarations are directives:

   div.widget { --protected: true; }
   a[href]    { --domain-whitelist: "example.com", "cdn.example.com"; }
   *          { --allow-shadow-attachment: false; }

Two kinds of mutations are subject to a policy: modifying an attribute of an
element and attaching a shadow root to an element. For every mutation the
engine walks the rules matching the target element in document order and
checks their directives in a fixed order. The first directive producing an
explicit decision wins; a rule without a decisive directive passes control
to the next matching rule.

Defaults differ by operation: attribute modification is allowed if no rule
decides, shadow attachment is denied.

Directives

   --allow-attribute-modification   true | false
   --attribute-whitelist            list of attribute names
   --attribute-blacklist            list of attribute names
   --allow-style-modification       true | false  (style and class attributes)
   --allow-event-modification       true | false  (on… attributes)
   --event-whitelist                list of event names, e.g. click
   --event-blacklist                list of event names
   --domain-whitelist               list of hosts (resource URLs)
   --domain-blacklist               list of hosts
   --allow-shadow-attachment        true | false
   --protected                      true | false

Unknown declarations are ignored. Boolean directives with values other than
true or false are treated as if they were not declared.

Concurrency

Documents are immutable. Type Policy binds a document to an enforcing
context and replaces it atomically on reload, so decisions may be queried
from any number of goroutines.

___________________________________________________________________________

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package dsp

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'dsp'.
func tracer() tracing.Trace {
	return tracing.Select("dsp")
}
