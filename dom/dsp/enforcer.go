package dsp

import (
	"sync/atomic"

	"golang.org/x/net/html"
)

// Observer is notified about policy loads and decisions (see package
// metrics). Observers must be safe for concurrent use.
type Observer interface {
	PolicyLoaded(doc *Document, err error)
	Decided(op Operation, d Decision)
}

type observerRef struct {
	o Observer
}

// Policy is the DOM security policy bound to an enforcing context. It holds
// at most one document at a time; loading a new policy text replaces the
// document as a whole.
//
// A Policy is safe for concurrent use. Decisions observe either the previous
// or the new document, never a partially loaded one.
type Policy struct {
	doc      atomic.Pointer[Document]
	context  atomic.Pointer[contextRef]
	observer atomic.Pointer[observerRef]
}

// NewPolicy creates a policy without a document. Until a policy text is
// loaded, it behaves like a policy without rules.
func NewPolicy() *Policy {
	return &Policy{}
}

// BindToExecutionContext associates a policy with the host it reports
// diagnostics to. Binding is done once; later calls are ignored.
func (p *Policy) BindToExecutionContext(ctx ExecutionContext) {
	if ctx == nil {
		return
	}
	if !p.context.CompareAndSwap(nil, &contextRef{ctx: ctx}) {
		tracer().Errorf("policy is already bound to an execution context")
	}
}

// Observe sets an observer for policy loads and decisions.
func (p *Policy) Observe(o Observer) {
	if o == nil {
		p.observer.Store(nil)
		return
	}
	p.observer.Store(&observerRef{o: o})
}

// LogToConsole forwards a message to the bound execution context. It is a
// no-op if the policy is not bound.
func (p *Policy) LogToConsole(text string, level MessageLevel) {
	ref := p.context.Load()
	if ref == nil {
		return
	}
	ref.ctx.AddConsoleMessage(ConsoleMessage{
		Source: SecuritySource,
		Level:  level,
		Text:   text,
	})
}

// AddPolicyFromHeaderValue loads a policy text and replaces the current
// document. If the text cannot be parsed, the failure is reported to the
// console and the current document stays in place.
func (p *Policy) AddPolicyFromHeaderValue(text string) {
	if err := p.Load(text); err != nil {
		p.LogToConsole(err.Error(), LevelError)
	}
}

// Load loads a policy text and replaces the current document. On error, the
// current document stays in place.
func (p *Policy) Load(text string) error {
	doc, err := LoadPolicy(text)
	if o := p.observer.Load(); o != nil {
		o.o.PolicyLoaded(doc, err)
	}
	if err != nil {
		tracer().Errorf("keeping previous policy: %v", err)
		return err
	}
	p.doc.Store(doc)
	return nil
}

// Document returns the current document, or nil if no policy has been loaded.
func (p *Policy) Document() *Document {
	return p.doc.Load()
}

// EvaluateAttributeModification decides if attribute name of element el may
// be set to value, reporting a denial to the console.
func (p *Policy) EvaluateAttributeModification(el *html.Node, name string, value string) Decision {
	d := p.Document().EvaluateAttributeModification(el, name, value)
	p.report(OpAttributeModification, d)
	return d
}

// AllowAttributeModification is a predicate version of
// EvaluateAttributeModification.
func (p *Policy) AllowAttributeModification(el *html.Node, name string, value string) bool {
	return p.EvaluateAttributeModification(el, name, value).Allowed
}

// EvaluateShadowAttachment decides if a shadow root may be attached to
// element el, reporting a denial to the console.
func (p *Policy) EvaluateShadowAttachment(el *html.Node) Decision {
	d := p.Document().EvaluateShadowAttachment(el)
	p.report(OpShadowAttachment, d)
	return d
}

// AllowShadowAttachment is a predicate version of EvaluateShadowAttachment.
func (p *Policy) AllowShadowAttachment(el *html.Node) bool {
	return p.EvaluateShadowAttachment(el).Allowed
}

func (p *Policy) report(op Operation, d Decision) {
	if !d.Allowed {
		p.LogToConsole(d.Message, LevelError)
	}
	if o := p.observer.Load(); o != nil {
		o.o.Decided(op, d)
	}
}
