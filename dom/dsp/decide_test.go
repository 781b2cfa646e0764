package dsp_test

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/npillmayer/dsp/dom/dsp"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"golang.org/x/net/html"
)

const page = `<html><head></head><body>
<div id="plain" class="x"></div>
<div id="widget" class="widget"></div>
<span id="s"></span>
<a id="link" href="http://good.com/">link</a>
<img id="pic" src="a.png">
<video id="v"><source id="src" src="v.mp4"></video>
<iframe id="frame"></iframe>
<script id="js"></script>
</body></html>`

func element(t *testing.T, sel string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		t.Fatal(err)
	}
	el := cascadia.MustCompile(sel).MatchFirst(doc)
	if el == nil {
		t.Fatalf("test page has no element %s", sel)
	}
	return el
}

func load(t *testing.T, text string) *dsp.Document {
	t.Helper()
	doc, err := dsp.LoadPolicy(text)
	if err != nil {
		t.Fatalf("cannot load policy %q: %v", text, err)
	}
	return doc
}

type recorder struct {
	sync.Mutex
	messages []dsp.ConsoleMessage
}

func (r *recorder) AddConsoleMessage(msg dsp.ConsoleMessage) {
	r.Lock()
	defer r.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *recorder) count() int {
	r.Lock()
	defer r.Unlock()
	return len(r.messages)
}

// ---------------------------------------------------------------------------

func TestDefaults(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "dsp")
	defer teardown()
	//
	doc := load(t, `span { --protected: true; }`)
	div := element(t, "#plain")
	if !doc.AllowAttributeModification(div, "title", "x") {
		t.Error("expected attribute modification of unmatched element to be allowed")
	}
	d := doc.EvaluateShadowAttachment(div)
	if d.Allowed || !d.IsDefault() {
		t.Errorf("expected shadow attachment of unmatched element to be denied by default, is %+v", d)
	}
	if d.Message != dsp.ShadowBlockedMessage {
		t.Errorf("expected shadow denial to carry a message, is %q", d.Message)
	}
}

func TestEmptyPolicy(t *testing.T) {
	doc := load(t, ``)
	if doc.Len() != 0 {
		t.Fatalf("expected empty policy to have no rules, has %d", doc.Len())
	}
	for _, sel := range []string{"#plain", "#link", "#pic", "#js"} {
		el := element(t, sel)
		if !doc.AllowAttributeModification(el, "src", "http://evil.com/") {
			t.Errorf("expected empty policy to allow attribute modification of %s", sel)
		}
		if doc.AllowShadowAttachment(el) {
			t.Errorf("expected empty policy to deny shadow attachment of %s", sel)
		}
	}
	var none *dsp.Document
	if !none.AllowAttributeModification(element(t, "#plain"), "id", "y") || none.AllowShadowAttachment(element(t, "#plain")) {
		t.Error("expected nil document to behave like an empty policy")
	}
}

func TestProtected(t *testing.T) {
	doc := load(t, `div { --allow-attribute-modification: true; --allow-shadow-attachment: true; --protected: true; }`)
	div := element(t, "#plain")
	d := doc.EvaluateAttributeModification(div, "title", "x")
	if d.Allowed || d.Directive != dsp.Protected {
		t.Errorf("expected --protected to deny attribute modification, have %+v", d)
	}
	d = doc.EvaluateShadowAttachment(div)
	if d.Allowed || d.Directive != dsp.Protected {
		t.Errorf("expected --protected to deny shadow attachment, have %+v", d)
	}
}

func TestEventDirectivesPrecedeProtected(t *testing.T) {
	doc := load(t, `div { --event-whitelist: click; --protected: true; }`)
	div := element(t, "#plain")
	if !doc.AllowAttributeModification(div, "onclick", "f()") {
		t.Error("expected whitelisted event to be decided before --protected")
	}
	d := doc.EvaluateAttributeModification(div, "onload", "f()")
	if d.Allowed || d.Directive != dsp.EventWhitelist || d.Message != dsp.EventBlockedMessage {
		t.Errorf("expected event not on whitelist to be denied by event whitelist, have %+v", d)
	}
	if d := doc.EvaluateAttributeModification(div, "title", "x"); d.Allowed || d.Directive != dsp.Protected {
		t.Errorf("expected non-event attribute to be denied by --protected, have %+v", d)
	}
}

func TestEventDirectives(t *testing.T) {
	div := element(t, "#plain")
	doc := load(t, `div { --allow-event-modification: false; }`)
	if doc.AllowAttributeModification(div, "onClick", "f()") {
		t.Error("expected event modification to be denied")
	}
	if !doc.AllowAttributeModification(div, "title", "x") {
		t.Error("expected --allow-event-modification not to apply to non-event attributes")
	}
	doc = load(t, `div { --event-blacklist: mouseover, click; }`)
	if doc.AllowAttributeModification(div, "onclick", "f()") {
		t.Error("expected blacklisted event to be denied")
	}
	if !doc.AllowAttributeModification(div, "onload", "f()") {
		t.Error("expected event not on blacklist to fall through to default allow")
	}
}

func TestAttributeWhitelistIsExclusive(t *testing.T) {
	doc := load(t, `div { --attribute-whitelist: title, alt; --allow-style-modification: false; }`)
	div := element(t, "#plain")
	d := doc.EvaluateAttributeModification(div, "title", "x")
	if !d.Allowed || d.Directive != dsp.AttributeWhitelist {
		t.Errorf("expected whitelisted attribute to be allowed by whitelist, have %+v", d)
	}
	d = doc.EvaluateAttributeModification(div, "class", "y")
	if d.Allowed || d.Directive != dsp.AttributeWhitelist {
		t.Errorf("expected non-whitelisted attribute to be denied by whitelist, have %+v", d)
	}
	if d.Message != dsp.AttributeBlockedMessage {
		t.Errorf("unexpected denial message %q", d.Message)
	}
}

func TestAttributeBlacklist(t *testing.T) {
	doc := load(t, `div { --attribute-blacklist: "id" "title"; }`)
	div := element(t, "#plain")
	if doc.AllowAttributeModification(div, "TITLE", "x") {
		t.Error("expected blacklisted attribute to be denied")
	}
	if !doc.AllowAttributeModification(div, "alt", "x") {
		t.Error("expected attribute not on blacklist to be allowed")
	}
}

func TestStyleModification(t *testing.T) {
	doc := load(t, `div { --allow-style-modification: false; }`)
	div := element(t, "#plain")
	for _, attr := range []string{"style", "class"} {
		if doc.AllowAttributeModification(div, attr, "x") {
			t.Errorf("expected modification of %s to be denied", attr)
		}
	}
	if !doc.AllowAttributeModification(div, "title", "x") {
		t.Error("expected --allow-style-modification not to apply to title")
	}
}

func TestRuleOrderFallthrough(t *testing.T) {
	doc := load(t, `
div { --allow-shadow-attachment: true; }
div { --allow-attribute-modification: false; }
div { --allow-attribute-modification: true; }
`)
	div := element(t, "#plain")
	d := doc.EvaluateAttributeModification(div, "title", "x")
	if d.Allowed || d.Rule == nil || d.Rule.Index() != 1 {
		t.Errorf("expected second rule to deny, have %+v", d)
	}
	if !doc.AllowShadowAttachment(div) {
		t.Error("expected first rule to allow shadow attachment")
	}
}

func TestShadowAttachment(t *testing.T) {
	doc := load(t, `* { --allow-shadow-attachment: false; }`)
	for _, sel := range []string{"#plain", "#s", "#link"} {
		d := doc.EvaluateShadowAttachment(element(t, sel))
		if d.Allowed || d.Directive != dsp.ShadowAttachment {
			t.Errorf("expected shadow attachment of %s to be denied by directive, have %+v", sel, d)
		}
	}
	doc = load(t, `.widget { --allow-shadow-attachment: maybe; } div { --allow-shadow-attachment: true; }`)
	d := doc.EvaluateShadowAttachment(element(t, "#widget"))
	if !d.Allowed || d.Rule.Index() != 1 {
		t.Errorf("expected malformed value to be ignored and second rule to allow, have %+v", d)
	}
}

func TestDomainBlacklist(t *testing.T) {
	doc := load(t, `a[href] { --domain-blacklist: "evil.com"; }`)
	a := element(t, "#link")
	if doc.AllowAttributeModification(a, "href", "http://evil.com/x") {
		t.Error("expected link to blacklisted domain to be denied")
	}
	if doc.AllowAttributeModification(a, "href", "http://EVIL.com:8080/x") {
		t.Error("expected host comparison to ignore case and port")
	}
	if !doc.AllowAttributeModification(a, "href", "http://good.com/x") {
		t.Error("expected link to other domain to be allowed")
	}
}

func TestDomainWhitelist(t *testing.T) {
	doc := load(t, `img, source, script { --domain-whitelist: cdn.org; }`)
	img := element(t, "#pic")
	if !doc.AllowAttributeModification(img, "src", "https://cdn.org/a.png") {
		t.Error("expected whitelisted domain to be allowed")
	}
	if doc.AllowAttributeModification(img, "src", "https://other.org/a.png") {
		t.Error("expected domain not on whitelist to be denied")
	}
	if doc.AllowAttributeModification(img, "src", "a.png") {
		t.Error("expected relative URL to be denied by whitelist")
	}
	if !doc.AllowAttributeModification(img, "alt", "https://other.org/") {
		t.Error("expected domain directives not to apply to img/alt")
	}
	src := element(t, "#src")
	if !doc.AllowAttributeModification(src, "srcset", "https://cdn.org/a.png 1x, https://cdn.org/b.png 2x") {
		t.Error("expected srcset with whitelisted hosts only to be allowed")
	}
	if doc.AllowAttributeModification(src, "srcset", "https://cdn.org/a.png 1x, https://other.org/b.png 2x") {
		t.Error("expected srcset with a non-whitelisted host to be denied")
	}
}

func TestDomainDirectivesOnlyForResourceAttributes(t *testing.T) {
	doc := load(t, `div { --domain-blacklist: evil.com; --domain-whitelist: good.com; }`)
	div := element(t, "#plain")
	if !doc.AllowAttributeModification(div, "data-x", "http://evil.com/") {
		t.Error("expected domain directives not to apply to div/data-x")
	}
	doc = load(t, `iframe { --domain-blacklist: evil.com; }`)
	if doc.AllowAttributeModification(element(t, "#frame"), "src", "https://evil.com/") {
		t.Error("expected domain blacklist to apply to iframe/src")
	}
}

func TestUnknownAndMalformedDirectives(t *testing.T) {
	doc := load(t, `div { --allow-attribute-modification: nope; --frobnicate: false; color: red; }`)
	div := element(t, "#plain")
	if !doc.AllowAttributeModification(div, "title", "x") {
		t.Error("expected malformed and unknown directives to be ignored")
	}
	if r := doc.Rule(0); r == nil || len(r.Directives()) != 0 {
		t.Errorf("expected rule without effective directives, have %v", r)
	}
}

func TestInvalidSelectorIsSkipped(t *testing.T) {
	doc := load(t, `div[[ { --protected: true; } span { --protected: true; }`)
	for i := 0; i < doc.Len(); i++ {
		if strings.Contains(doc.Rule(i).Selector(), "[[") {
			t.Errorf("expected rule with invalid selector to be skipped, have %s", doc.Rule(i))
		}
	}
	if !doc.AllowAttributeModification(element(t, "#plain"), "title", "x") {
		t.Error("expected div to be unaffected by skipped rule")
	}
}

func TestRoundTripWithDiagnostic(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "dsp")
	defer teardown()
	//
	rec := &recorder{}
	policy := dsp.NewPolicy()
	policy.BindToExecutionContext(rec)
	policy.AddPolicyFromHeaderValue(`div { --protected: true; }`)
	if policy.AllowAttributeModification(element(t, "#plain"), "title", "x") {
		t.Error("expected protected div to deny attribute modification")
	}
	if rec.count() != 1 {
		t.Fatalf("expected exactly one diagnostic, have %d", rec.count())
	}
	msg := rec.messages[0]
	if msg.Text != dsp.AttributeBlockedMessage || msg.Level != dsp.LevelError || msg.Source != dsp.SecuritySource {
		t.Errorf("unexpected diagnostic %+v", msg)
	}
}

func TestUnboundPolicyDoesNotFail(t *testing.T) {
	policy := dsp.NewPolicy()
	if policy.AllowShadowAttachment(element(t, "#plain")) {
		t.Error("expected policy without document to deny shadow attachment")
	}
	if !policy.AllowAttributeModification(element(t, "#plain"), "title", "x") {
		t.Error("expected policy without document to allow attribute modification")
	}
}

func TestParseFailureKeepsDocument(t *testing.T) {
	rec := &recorder{}
	policy := dsp.NewPolicy()
	policy.BindToExecutionContext(rec)
	policy.AddPolicyFromHeaderValue(`div { --protected: true; }`)
	before := policy.Document()
	err := policy.Load(`{ --protected: true; }`)
	var perr *dsp.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected a parse error, have %v", err)
	}
	if policy.Document() != before {
		t.Error("expected previous document to stay in place after parse failure")
	}
	policy.AddPolicyFromHeaderValue(`{ --protected: true; }`)
	if rec.count() != 1 || rec.messages[0].Level != dsp.LevelError {
		t.Errorf("expected parse failure to be reported to console, have %+v", rec.messages)
	}
}

func TestSelectorlessRulesFailToLoad(t *testing.T) {
	policy := dsp.NewPolicy()
	if err := policy.Load(`div { --protected: true; }`); err != nil {
		t.Fatal(err)
	}
	before := policy.Document()
	for _, text := range []string{
		`{ --protected: true; }`,
		`;{a:b}`,
		`div { a: b; } ; { x:y }`,
	} {
		done := make(chan error, 1)
		go func() { done <- policy.Load(text) }()
		select {
		case err := <-done:
			var perr *dsp.ParseError
			if !errors.As(err, &perr) {
				t.Errorf("expected %q to fail with a parse error, have %v", text, err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("loading %q did not return", text)
		}
		if policy.Document() != before {
			t.Errorf("expected previous document to stay in place after loading %q", text)
		}
	}
}

func TestBooleanKeywordsAreCaseSensitive(t *testing.T) {
	doc := load(t, `span { --allow-shadow-attachment: TRUE; } div { --protected: True; }`)
	d := doc.EvaluateShadowAttachment(element(t, "#s"))
	if d.Allowed || !d.IsDefault() {
		t.Errorf("expected TRUE to be malformed and shadow attachment denied by default, have %+v", d)
	}
	if doc.Rule(0).Has(dsp.ShadowAttachment) {
		t.Error("expected malformed boolean to leave directive absent")
	}
	if !doc.AllowAttributeModification(element(t, "#plain"), "title", "x") {
		t.Error("expected malformed --protected to be ignored")
	}
}

func TestPolicyReplacement(t *testing.T) {
	policy := dsp.NewPolicy()
	policy.AddPolicyFromHeaderValue(`div { --protected: true; }`)
	first := policy.Document()
	policy.AddPolicyFromHeaderValue(`span { --protected: true; }`)
	if policy.Document() == first || policy.Document().ID() == first.ID() {
		t.Fatal("expected new document after reload")
	}
	if !policy.AllowAttributeModification(element(t, "#plain"), "title", "x") {
		t.Error("expected rules of previous policy not to apply after reload")
	}
}

func TestConcurrentDecisions(t *testing.T) {
	policy := dsp.NewPolicy()
	policy.AddPolicyFromHeaderValue(`div { --protected: true; }`)
	div := element(t, "#plain")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if policy.AllowAttributeModification(div, "title", "x") {
					t.Error("expected protected div to deny")
					return
				}
			}
		}()
		go func() {
			defer wg.Done()
			policy.AddPolicyFromHeaderValue(`div { --protected: true; } span { --protected: false; }`)
		}()
	}
	wg.Wait()
}

func TestMatchingRulesIsLazy(t *testing.T) {
	doc := load(t, `div { --protected: true; } .x { --protected: false; } span { }`)
	div := element(t, "#plain")
	var seen []int
	for r := range doc.MatchingRules(div) {
		seen = append(seen, r.Index())
		break
	}
	if len(seen) != 1 || seen[0] != 0 {
		t.Errorf("expected to stop after first matching rule, saw %v", seen)
	}
	n := 0
	for range doc.MatchingRules(div) {
		n++
	}
	if n != 2 {
		t.Errorf("expected 2 matching rules for div.x, have %d", n)
	}
}
