/*
Package cssom provides the stylesheet object model consumed by the policy engine.

Status

This is a very first draft. It is unstable and the API will change without
notice. Please be patient.

Overview

A DOM security policy is delivered as text in stylesheet syntax. Every rule
block selects a set of elements and every declaration inside the block is a
policy directive:

   a[href] { --domain-blacklist: "evil.com"; }
   div.widget { --protected: true; }

CSSOM is the "CSS Object Model", similar to the DOM for HTML. The policy
engine does not care about the syntax of stylesheets, it just needs an
ordered list of rules, each with a selector and a list of declarations.
Parsing is de-coupled by introducing the interfaces StyleSheet and Rule.
Concrete implementations may be found in sub-packages (see package
douceuradapter).

Selector matching is done with the great work of
https://godoc.org/github.com/andybalholm/cascadia, see package dsp.

___________________________________________________________________________

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package cssom
