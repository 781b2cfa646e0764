package metrics

import (
	"strings"
	"testing"

	"github.com/npillmayer/dsp/dom/dsp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestDecisionMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("", reg)
	policy := dsp.NewPolicy()
	policy.Observe(m)
	policy.AddPolicyFromHeaderValue(`a { --domain-blacklist: evil.com; } div { --allow-shadow-attachment: true; }`)

	doc, err := html.Parse(strings.NewReader(`<a href="/">x</a>`))
	require.NoError(t, err)
	a := doc.FirstChild.LastChild.FirstChild // html > body > a
	require.Equal(t, "a", a.Data)

	assert.False(t, policy.AllowAttributeModification(a, "href", "https://evil.com/"))
	assert.True(t, policy.AllowAttributeModification(a, "href", "https://good.com/"))
	assert.False(t, policy.AllowShadowAttachment(a))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("attribute-modification", "deny", "--domain-blacklist")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("attribute-modification", "allow", "default")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("shadow-attachment", "deny", "default")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loads.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rules))
}

func TestLoadFailureMetrics(t *testing.T) {
	m := New("test", nil)
	policy := dsp.NewPolicy()
	policy.Observe(m)
	policy.AddPolicyFromHeaderValue(`{ --protected: true; }`)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loads.WithLabelValues("error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.rules))
}
