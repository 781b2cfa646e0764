/*
Package dom provides the guarded mutation path for HTML parse trees.

Status

Early draft—API may change frequently. Please stay patient.

Overview

Mutations of a DOM which are subject to a DOM security policy (see package
dsp) have to ask the policy before they are committed. Functions of this
package do exactly that: SetAttribute and AttachShadow consult a Gate and
either commit the mutation to the *html.Node or return ErrBlocked, leaving
the node untouched.

HTML parse trees of golang.org/x/net/html do not know about shadow roots.
We represent an attached shadow root the way declarative shadow DOM
serializes it: as a <template shadowrootmode="open"> first child of the host
element.

___________________________________________________________________________

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package dom

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer will return a tracer. We are tracing to 'dsp.dom'
func tracer() tracing.Trace {
	return tracing.Select("dsp.dom")
}
