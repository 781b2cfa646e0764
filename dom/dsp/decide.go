package dsp

import (
	"strings"

	"github.com/npillmayer/dsp/dom/w3cdom"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Operation is a kind of DOM mutation subject to a policy.
type Operation int8

// Operations checked by a policy.
const (
	OpAttributeModification Operation = iota
	OpShadowAttachment
)

func (op Operation) String() string {
	if op == OpShadowAttachment {
		return "shadow-attachment"
	}
	return "attribute-modification"
}

// Diagnostic messages for denied mutations.
const (
	AttributeBlockedMessage = "The attribute modification request is blocked by DOM Security Policy!"
	EventBlockedMessage     = "The event modification request is blocked by DOM Security Policy!"
	ShadowBlockedMessage    = "The shadow attachment request is blocked by DOM Security Policy!"
)

// Decision is the outcome of checking a mutation against a policy.
// Directive and Rule are set if a directive decided; they are empty if
// the default for the operation applied.
type Decision struct {
	Allowed   bool
	Directive Directive
	Rule      *Rule
	Message   string // diagnostic for denials
}

// IsDefault is true if no directive has decided.
func (d Decision) IsDefault() bool {
	return d.Directive == NoDirective
}

type verdict int8

const (
	undecided verdict = iota
	allow
	deny
)

// --- Attribute modification ------------------------------------------------

type attributeRequest struct {
	element *html.Node
	name    w3cdom.QualifiedName
	value   string
}

// attributeCheck checks a group of directives of a matching rule. It
// returns the decisive directive, if any.
type attributeCheck func(*Rule, *attributeRequest) (verdict, Directive)

// attributeChecks is the fixed order in which directives are checked for
// attribute modifications.
var attributeChecks = []attributeCheck{
	checkEvents,
	checkProtected,
	checkAttributeModification,
	checkAttributeBlacklist,
	checkAttributeWhitelist,
	checkStyleModification,
	checkDomains,
}

// EvaluateAttributeModification decides if attribute name of element el may
// be set to value. name is a qualified attribute name, e.g. "href" or
// "xlink:href"; value is the proposed new value as text.
//
// If no matching rule decides, the modification is allowed.
func (doc *Document) EvaluateAttributeModification(el *html.Node, name string, value string) Decision {
	req := &attributeRequest{
		element: el,
		name:    w3cdom.ParseQualifiedName(name),
		value:   value,
	}
	for rule := range doc.MatchingRules(el) {
		for _, check := range attributeChecks {
			v, d := check(rule, req)
			switch v {
			case allow:
				return Decision{Allowed: true, Directive: d, Rule: rule}
			case deny:
				msg := AttributeBlockedMessage
				if isEventDirective(d) {
					msg = EventBlockedMessage
				}
				return Decision{Directive: d, Rule: rule, Message: msg}
			}
		}
	}
	return Decision{Allowed: true}
}

// AllowAttributeModification is a predicate version of
// EvaluateAttributeModification.
func (doc *Document) AllowAttributeModification(el *html.Node, name string, value string) bool {
	return doc.EvaluateAttributeModification(el, name, value).Allowed
}

func isEventDirective(d Directive) bool {
	return d == EventModification || d == EventBlacklist || d == EventWhitelist
}

// checkEvents applies to event handler attributes (onclick, …) only.
func checkEvents(r *Rule, req *attributeRequest) (verdict, Directive) {
	event, ok := strings.CutPrefix(req.name.Local, "on")
	if !ok {
		return undecided, NoDirective
	}
	if b, ok := r.Bool(EventModification); ok && !b {
		return deny, EventModification
	}
	if set, ok := r.Set(EventBlacklist); ok && set.Contains(event) {
		return deny, EventBlacklist
	}
	if set, ok := r.Set(EventWhitelist); ok {
		return membership(set.Contains(event)), EventWhitelist
	}
	return undecided, NoDirective
}

func checkProtected(r *Rule, _ *attributeRequest) (verdict, Directive) {
	if b, ok := r.Bool(Protected); ok && b {
		return deny, Protected
	}
	return undecided, NoDirective
}

func checkAttributeModification(r *Rule, _ *attributeRequest) (verdict, Directive) {
	if b, ok := r.Bool(AttributeModification); ok && !b {
		return deny, AttributeModification
	}
	return undecided, NoDirective
}

func checkAttributeBlacklist(r *Rule, req *attributeRequest) (verdict, Directive) {
	if set, ok := r.Set(AttributeBlacklist); ok && set.Contains(req.name.Local) {
		return deny, AttributeBlacklist
	}
	return undecided, NoDirective
}

func checkAttributeWhitelist(r *Rule, req *attributeRequest) (verdict, Directive) {
	if set, ok := r.Set(AttributeWhitelist); ok {
		return membership(set.Contains(req.name.Local)), AttributeWhitelist
	}
	return undecided, NoDirective
}

// checkStyleModification applies to the un-prefixed style and class
// attributes only.
func checkStyleModification(r *Rule, req *attributeRequest) (verdict, Directive) {
	if b, ok := r.Bool(StyleModification); ok && !b {
		if a := req.name.Atom(); a == atom.Style || a == atom.Class {
			return deny, StyleModification
		}
	}
	return undecided, NoDirective
}

// resourceAttributes lists the (tag, attribute) pairs referencing resources
// by URL. Domain directives apply to these pairs only.
var resourceAttributes = map[atom.Atom][]atom.Atom{
	atom.Img:    {atom.Src},
	atom.Iframe: {atom.Src},
	atom.Object: {atom.Data},
	atom.A:      {atom.Href},
	atom.Source: {atom.Src, atom.Srcset},
	atom.Track:  {atom.Src},
	atom.Video:  {atom.Src},
	atom.Audio:  {atom.Src},
	atom.Script: {atom.Src},
}

func isResourceAttribute(el *html.Node, name w3cdom.QualifiedName) bool {
	attr := name.Atom()
	if attr == 0 {
		return false
	}
	for _, a := range resourceAttributes[w3cdom.TagAtom(el)] {
		if a == attr {
			return true
		}
	}
	return false
}

// checkDomains checks the host of a resource URL. For srcset attributes
// every image candidate is checked: a single blacklisted host denies, and a
// whitelist has to contain all of the hosts.
func checkDomains(r *Rule, req *attributeRequest) (verdict, Directive) {
	if !isResourceAttribute(req.element, req.name) {
		return undecided, NoDirective
	}
	var hosts []string
	if req.name.Atom() == atom.Srcset {
		hosts = srcsetHosts(req.value)
	} else {
		hosts = []string{resourceHost(req.value)}
	}
	if set, ok := r.Set(DomainBlacklist); ok {
		for _, host := range hosts {
			if set.Contains(host) {
				return deny, DomainBlacklist
			}
		}
	}
	if set, ok := r.Set(DomainWhitelist); ok {
		if len(hosts) == 0 {
			return deny, DomainWhitelist
		}
		for _, host := range hosts {
			if !set.Contains(host) {
				return deny, DomainWhitelist
			}
		}
		return allow, DomainWhitelist
	}
	return undecided, NoDirective
}

// membership turns whitelist membership into a verdict. Whitelists always
// decide.
func membership(member bool) verdict {
	if member {
		return allow
	}
	return deny
}

// --- Shadow attachment -----------------------------------------------------

// EvaluateShadowAttachment decides if a shadow root may be attached to
// element el.
//
// If no matching rule decides, the attachment is denied.
func (doc *Document) EvaluateShadowAttachment(el *html.Node) Decision {
	for rule := range doc.MatchingRules(el) {
		if b, ok := rule.Bool(Protected); ok && b {
			return Decision{Directive: Protected, Rule: rule, Message: ShadowBlockedMessage}
		}
		if b, ok := rule.Bool(ShadowAttachment); ok {
			if b {
				return Decision{Allowed: true, Directive: ShadowAttachment, Rule: rule}
			}
			return Decision{Directive: ShadowAttachment, Rule: rule, Message: ShadowBlockedMessage}
		}
	}
	return Decision{Message: ShadowBlockedMessage}
}

// AllowShadowAttachment is a predicate version of EvaluateShadowAttachment.
func (doc *Document) AllowShadowAttachment(el *html.Node) bool {
	return doc.EvaluateShadowAttachment(el).Allowed
}
