/*
Package w3cdom defines W3C-style names for elements and attributes of an
HTML parse tree.

See also https://www.w3schools.com/XML/dom_intro.asp

Status

Early draft—API may change frequently. Please stay patient.

___________________________________________________________________________

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package w3cdom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// QualifiedName represents a W3C-type qualified attribute name, e.g.
// "xlink:href" with prefix "xlink" and local name "href".
type QualifiedName struct {
	Prefix string
	Local  string
}

// ParseQualifiedName splits an attribute name at the first colon.
// HTML attribute names are case-insensitive and will be converted to
// lower case.
func ParseQualifiedName(name string) QualifiedName {
	name = strings.ToLower(strings.TrimSpace(name))
	if prefix, local, found := strings.Cut(name, ":"); found {
		return QualifiedName{Prefix: prefix, Local: local}
	}
	return QualifiedName{Local: name}
}

func (q QualifiedName) String() string {
	if q.Prefix == "" {
		return q.Local
	}
	return q.Prefix + ":" + q.Local
}

// Atom returns the atom of an un-prefixed name, or 0 for prefixed or
// unknown names.
func (q QualifiedName) Atom() atom.Atom {
	if q.Prefix != "" {
		return 0
	}
	return atom.Lookup([]byte(q.Local))
}

// IsElement is a predicate for element nodes.
func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// TagAtom returns the atom for the tag of an element node. Nodes constructed
// without a DataAtom are looked up by their tag name.
func TagAtom(n *html.Node) atom.Atom {
	if !IsElement(n) {
		return 0
	}
	if n.DataAtom != 0 {
		return n.DataAtom
	}
	return atom.Lookup([]byte(strings.ToLower(n.Data)))
}

// Attribute returns the value of an element's attribute, if present.
func Attribute(n *html.Node, q QualifiedName) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == q.Prefix && strings.EqualFold(a.Key, q.Local) {
			return a.Val, true
		}
	}
	return "", false
}
