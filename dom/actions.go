package dom

import (
	"errors"

	"github.com/npillmayer/dsp/dom/w3cdom"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrBlocked is returned if a policy denies a mutation.
var ErrBlocked = errors.New("mutation blocked by DOM security policy")

// ErrNotAnElement is returned for mutations of nodes which are not elements.
var ErrNotAnElement = errors.New("node is not an element")

// ErrShadowRootExists is returned if an element already hosts a shadow root.
var ErrShadowRootExists = errors.New("element already hosts a shadow root")

// Gate decides about DOM mutations. *dsp.Policy is a Gate.
type Gate interface {
	AllowAttributeModification(el *html.Node, name string, value string) bool
	AllowShadowAttachment(el *html.Node) bool
}

// ShadowRootMode is the attribute marking a template as a shadow root.
const ShadowRootMode = "shadowrootmode"

// SetAttribute sets attribute name of element el to value, if gate permits.
// name may be a qualified name, e.g. "xlink:href".
func SetAttribute(gate Gate, el *html.Node, name string, value string) error {
	if !w3cdom.IsElement(el) {
		return ErrNotAnElement
	}
	if !gate.AllowAttributeModification(el, name, value) {
		tracer().P("attr", name).Debugf("setting attribute of <%s> blocked", el.Data)
		return ErrBlocked
	}
	q := w3cdom.ParseQualifiedName(name)
	for i, a := range el.Attr {
		if a.Namespace == q.Prefix && a.Key == q.Local {
			el.Attr[i].Val = value
			return nil
		}
	}
	el.Attr = append(el.Attr, html.Attribute{Namespace: q.Prefix, Key: q.Local, Val: value})
	return nil
}

// AttachShadow attaches an open shadow root to element el, if gate permits.
// It returns the <template> element representing the shadow root.
func AttachShadow(gate Gate, el *html.Node) (*html.Node, error) {
	if !w3cdom.IsElement(el) {
		return nil, ErrNotAnElement
	}
	if ShadowRoot(el) != nil {
		return nil, ErrShadowRootExists
	}
	if !gate.AllowShadowAttachment(el) {
		tracer().Debugf("attaching shadow root to <%s> blocked", el.Data)
		return nil, ErrBlocked
	}
	root := &html.Node{
		Type:     html.ElementNode,
		Data:     "template",
		DataAtom: atom.Template,
		Attr:     []html.Attribute{{Key: ShadowRootMode, Val: "open"}},
	}
	el.InsertBefore(root, el.FirstChild)
	return root, nil
}

// ShadowRoot returns the shadow root of an element, or nil.
func ShadowRoot(el *html.Node) *html.Node {
	if el == nil {
		return nil
	}
	ch := el.FirstChild
	if ch != nil && w3cdom.TagAtom(ch) == atom.Template {
		if _, ok := w3cdom.Attribute(ch, w3cdom.QualifiedName{Local: ShadowRootMode}); ok {
			return ch
		}
	}
	return nil
}
