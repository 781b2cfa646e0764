package dsp

// Directive is a policy setting with a fixed name. The set of directives is
// closed; declarations with other names are ignored when a policy is loaded.
type Directive int8

// Directives known to the policy engine.
const (
	NoDirective Directive = iota
	AttributeModification
	AttributeWhitelist
	AttributeBlacklist
	ShadowAttachment
	DomainWhitelist
	DomainBlacklist
	Protected
	StyleModification
	EventModification
	EventWhitelist
	EventBlacklist
	directiveCount
)

// Kind is the kind of value a directive expects.
type Kind int8

// Directive value kinds.
const (
	KindNone      Kind = iota
	KindBool           // true | false
	KindStringSet      // list of names, separated by white space or commas
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindStringSet:
		return "string-set"
	}
	return "none"
}

type directiveSpec struct {
	name string
	kind Kind
}

var catalog = [directiveCount]directiveSpec{
	NoDirective:           {"", KindNone},
	AttributeModification: {"--allow-attribute-modification", KindBool},
	AttributeWhitelist:    {"--attribute-whitelist", KindStringSet},
	AttributeBlacklist:    {"--attribute-blacklist", KindStringSet},
	ShadowAttachment:      {"--allow-shadow-attachment", KindBool},
	DomainWhitelist:       {"--domain-whitelist", KindStringSet},
	DomainBlacklist:       {"--domain-blacklist", KindStringSet},
	Protected:             {"--protected", KindBool},
	StyleModification:     {"--allow-style-modification", KindBool},
	EventModification:     {"--allow-event-modification", KindBool},
	EventWhitelist:        {"--event-whitelist", KindStringSet},
	EventBlacklist:        {"--event-blacklist", KindStringSet},
}

var directiveByName = func() map[string]Directive {
	m := make(map[string]Directive, directiveCount)
	for d := NoDirective + 1; d < directiveCount; d++ {
		m[catalog[d].name] = d
	}
	return m
}()

// LookupDirective finds a directive by its name in policy text, e.g.
// "--protected".
func LookupDirective(name string) (Directive, bool) {
	d, ok := directiveByName[name]
	return d, ok
}

// Directives returns all known directives in catalog order.
func Directives() []Directive {
	all := make([]Directive, 0, directiveCount-1)
	for d := NoDirective + 1; d < directiveCount; d++ {
		all = append(all, d)
	}
	return all
}

// String returns the name of a directive as used in policy text.
func (d Directive) String() string {
	if !d.valid() {
		return "none"
	}
	return catalog[d].name
}

// Kind returns the kind of value a directive expects.
func (d Directive) Kind() Kind {
	if !d.valid() {
		return KindNone
	}
	return catalog[d].kind
}

func (d Directive) valid() bool {
	return d > NoDirective && d < directiveCount
}
