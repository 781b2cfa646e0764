package dsp

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/npillmayer/dsp/dom/style"
	"github.com/npillmayer/dsp/dom/style/cssom"
	"golang.org/x/net/html"
	"golang.org/x/net/idna"
)

// StringSet is the value of a list-valued directive.
type StringSet map[string]struct{}

// Contains is a predicate for set membership.
func (s StringSet) Contains(item string) bool {
	_, ok := s[item]
	return ok
}

// Items returns the members of a set in sorted order.
func (s StringSet) Items() []string {
	items := make([]string, 0, len(s))
	for item := range s {
		items = append(items, item)
	}
	sort.Strings(items)
	return items
}

// directiveValue is the typed value of a directive for a rule.
type directiveValue struct {
	declared bool
	flag     bool
	set      StringSet
}

// Rule is a selector together with the directives it scopes. Rules are
// created when a policy is loaded and are immutable afterwards.
type Rule struct {
	index    int                            // position in document order
	selector string                         // selector text
	matcher  Selector                       // compiled selector
	values   [directiveCount]directiveValue // indexed by directive
}

// newRule translates a stylesheet rule into a policy rule. Raw declaration
// values are interpreted once, here. Declarations with unknown names or
// with malformed boolean values do not contribute a directive.
func newRule(index int, r cssom.Rule) (*Rule, error) {
	sel, err := compileSelector(r.Selector())
	if err != nil {
		return nil, err
	}
	rule := &Rule{index: index, selector: r.Selector(), matcher: sel}
	for _, key := range r.Properties() {
		d, ok := LookupDirective(strings.TrimSpace(key))
		if !ok {
			continue
		}
		value := r.Value(key) // last declaration wins
		switch d.Kind() {
		case KindBool:
			b, ok := value.Bool()
			if !ok {
				tracer().P("rule", index).Infof("ignoring %s with non-boolean value %q", d, value)
				rule.values[d] = directiveValue{}
				continue
			}
			rule.values[d] = directiveValue{declared: true, flag: b}
		case KindStringSet:
			rule.values[d] = directiveValue{declared: true, set: newStringSet(d, value)}
		}
	}
	return rule, nil
}

func newStringSet(d Directive, p style.Property) StringSet {
	items := p.Items()
	set := make(StringSet, len(items))
	for _, item := range items {
		switch d {
		case DomainWhitelist, DomainBlacklist:
			item = normalizeHost(item)
		default:
			item = strings.ToLower(item)
		}
		if item != "" {
			set[item] = struct{}{}
		}
	}
	return set
}

// Index returns the position of a rule in document order.
func (r *Rule) Index() int {
	return r.index
}

// Selector returns the selector text of a rule.
func (r *Rule) Selector() string {
	return r.selector
}

// Matches is a predicate: does the rule's selector match an element?
func (r *Rule) Matches(el *html.Node) bool {
	if r.matcher == nil || el == nil || el.Type != html.ElementNode {
		return false
	}
	return r.matcher.Match(el)
}

// Has is a predicate: does the rule declare directive d?
func (r *Rule) Has(d Directive) bool {
	return d.valid() && r.values[d].declared
}

// Bool returns the value of a boolean directive. If the directive is not
// declared (or not a boolean directive), ok is false.
func (r *Rule) Bool(d Directive) (value bool, ok bool) {
	if !r.Has(d) || d.Kind() != KindBool {
		return false, false
	}
	return r.values[d].flag, true
}

// Set returns the value of a list-valued directive. If the directive is not
// declared (or not list-valued), ok is false.
func (r *Rule) Set(d Directive) (set StringSet, ok bool) {
	if !r.Has(d) || d.Kind() != KindStringSet {
		return nil, false
	}
	return r.values[d].set, true
}

// Directives returns the directives declared by a rule, in catalog order.
func (r *Rule) Directives() []Directive {
	var ds []Directive
	for d := NoDirective + 1; d < directiveCount; d++ {
		if r.values[d].declared {
			ds = append(ds, d)
		}
	}
	return ds
}

// ValueString returns a printable form of a directive's value.
func (r *Rule) ValueString(d Directive) string {
	if b, ok := r.Bool(d); ok {
		return fmt.Sprintf("%v", b)
	}
	if set, ok := r.Set(d); ok {
		return strings.Join(set.Items(), " ")
	}
	return ""
}

func (r *Rule) String() string {
	return fmt.Sprintf("rule #%d %q", r.index, r.selector)
}

// --- Hosts -----------------------------------------------------------------

// normalizeHost converts a host to its lower-case ASCII form. Internationalized
// host names are converted to punycode.
func normalizeHost(host string) string {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	if host == "" {
		return ""
	}
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		return ascii
	}
	return host
}

// resourceHost returns the normalized host of a resource URL. Relative and
// unparsable URLs have an empty host.
func resourceHost(value string) string {
	u, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return ""
	}
	return normalizeHost(u.Hostname())
}

// srcsetHosts returns the hosts of all image candidates of a srcset value,
// e.g. "a.png 1x, https://cdn.org/b.png 2x".
func srcsetHosts(value string) []string {
	var hosts []string
	for _, candidate := range strings.Split(value, ",") {
		fields := strings.Fields(candidate)
		if len(fields) == 0 {
			continue
		}
		hosts = append(hosts, resourceHost(fields[0]))
	}
	return hosts
}
