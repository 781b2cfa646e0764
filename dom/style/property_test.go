package style

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestPropertyKeyword(t *testing.T) {
	p := Property(" tr ue\t")
	if p.Keyword() != "true" {
		t.Errorf("expected keyword of %q to be 'true', is %q", p, p.Keyword())
	}
	if p = Property(" TRUE "); p.Keyword() != "TRUE" {
		t.Errorf("expected keyword of %q to keep its case, is %q", p, p.Keyword())
	}
}

func TestPropertyBool(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "dsp.style")
	defer teardown()
	//
	for _, x := range []struct {
		p      Property
		value  bool
		isBool bool
	}{
		{"true", true, true},
		{" false ", false, true},
		{"t rue", true, true},
		{"FALSE", false, false},
		{"TRUE", false, false},
		{"True", false, false},
		{"yes", false, false},
		{`"true"`, false, false},
		{NullStyle, false, false},
	} {
		v, ok := x.p.Bool()
		if v != x.value || ok != x.isBool {
			t.Errorf("expected %q to be (%v,%v), is (%v,%v)", x.p, x.value, x.isBool, v, ok)
		}
	}
}

func TestPropertyItems(t *testing.T) {
	p := Property(`"evil.com", 'ads.com'  bad.org,,`)
	items := p.Items()
	if len(items) != 3 {
		t.Logf("items = %v", items)
		t.Fatalf("expected 3 items, have %d", len(items))
	}
	if items[0] != "evil.com" || items[1] != "ads.com" || items[2] != "bad.org" {
		t.Errorf("expected items [evil.com ads.com bad.org], have %v", items)
	}
	if len(NullStyle.Items()) != 0 {
		t.Errorf("expected empty property to have no items")
	}
}
