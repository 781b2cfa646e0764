package main

import (
	"fmt"
	"io"
	"os"

	"github.com/andybalholm/cascadia"
	"github.com/npillmayer/dsp/dom"
	"github.com/npillmayer/dsp/dom/dsp"
	"github.com/npillmayer/dsp/dom/style/cssom/douceuradapter"
	"github.com/spf13/cobra"
	"golang.org/x/net/html"
)

var checkFlags struct {
	policy   string
	html     string
	selector string
	attr     string
	value    string
	apply    bool
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the rules of a policy",
	Long: `Parse a policy file and print its rules and directives as a tree.

Examples:
  dspcheck dump --policy site.dsp`,
	RunE: dumpPolicy,
}

var attrCmd = &cobra.Command{
	Use:   "attr",
	Short: "Decide an attribute modification",
	Long: `Decide if an attribute of an element may be set to a value.

The element is the first element of the HTML document matching the selector.
If the HTML document contains <meta http-equiv="DOM-Security-Policy"> elements,
their policies are loaded as well, the last one taking precedence.

Examples:
  dspcheck attr --policy site.dsp --html page.html --selector "#login" \
      --attr action --value https://evil.org/`,
	RunE: checkAttribute,
}

var shadowCmd = &cobra.Command{
	Use:   "shadow",
	Short: "Decide a shadow root attachment",
	Long: `Decide if a shadow root may be attached to an element.

Examples:
  dspcheck shadow --policy site.dsp --html page.html --selector my-widget`,
	RunE: checkShadow,
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(attrCmd)
	rootCmd.AddCommand(shadowCmd)

	dumpCmd.Flags().StringVarP(&checkFlags.policy, "policy", "p", "", "policy file")
	for _, cmd := range []*cobra.Command{attrCmd, shadowCmd} {
		cmd.Flags().StringVarP(&checkFlags.policy, "policy", "p", "", "policy file")
		cmd.Flags().StringVar(&checkFlags.html, "html", "", "HTML document")
		cmd.Flags().StringVarP(&checkFlags.selector, "selector", "s", "", "CSS selector of the element")
		cmd.Flags().BoolVar(&checkFlags.apply, "apply", false, "apply the mutation and print the element")
	}
	attrCmd.Flags().StringVarP(&checkFlags.attr, "attr", "a", "", "attribute name")
	attrCmd.Flags().StringVar(&checkFlags.value, "value", "", "attribute value")
}

func dumpPolicy(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(checkFlags.policy)
	if err != nil {
		return err
	}
	text, err := os.ReadFile(cfg.Policy.File)
	if err != nil {
		return fmt.Errorf("failed to read policy file %q: %w", cfg.Policy.File, err)
	}
	doc, err := dsp.LoadPolicy(string(text))
	if err != nil {
		return err
	}
	return dsp.Dump(doc, output(cmd))
}

func checkAttribute(cmd *cobra.Command, args []string) error {
	if checkFlags.attr == "" {
		return fmt.Errorf("--attr must be specified")
	}
	policy, el, err := prepare()
	if err != nil {
		return err
	}
	out := output(cmd)
	if checkFlags.apply {
		err = dom.SetAttribute(policy, el, checkFlags.attr, checkFlags.value)
		return reportMutation(out, el, err)
	}
	d := policy.EvaluateAttributeModification(el, checkFlags.attr, checkFlags.value)
	return reportDecision(out, d)
}

func checkShadow(cmd *cobra.Command, args []string) error {
	policy, el, err := prepare()
	if err != nil {
		return err
	}
	out := output(cmd)
	if checkFlags.apply {
		_, err = dom.AttachShadow(policy, el)
		return reportMutation(out, el, err)
	}
	return reportDecision(out, policy.EvaluateShadowAttachment(el))
}

// prepare loads the policy file and the HTML document, and selects the
// element to decide about.
func prepare() (*dsp.Policy, *html.Node, error) {
	if checkFlags.html == "" || checkFlags.selector == "" {
		return nil, nil, fmt.Errorf("--html and --selector must be specified")
	}
	cfg, err := loadConfig(checkFlags.policy)
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}
	policy := dsp.NewPolicy()
	policy.BindToExecutionContext(consoleFor(cfg, logger))
	text, err := os.ReadFile(cfg.Policy.File)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read policy file %q: %w", cfg.Policy.File, err)
	}
	if err := policy.Load(string(text)); err != nil {
		return nil, nil, err
	}
	f, err := os.Open(checkFlags.html)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open HTML document %q: %w", checkFlags.html, err)
	}
	defer f.Close()
	htmldoc, err := html.Parse(f)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse HTML document %q: %w", checkFlags.html, err)
	}
	for _, meta := range douceuradapter.ExtractPolicyElements(htmldoc) {
		policy.AddPolicyFromHeaderValue(meta)
	}
	sel, err := cascadia.Compile(checkFlags.selector)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid selector %q: %w", checkFlags.selector, err)
	}
	el := sel.MatchFirst(htmldoc)
	if el == nil {
		return nil, nil, fmt.Errorf("no element matches %q", checkFlags.selector)
	}
	return policy, el, nil
}

func reportDecision(w io.Writer, d dsp.Decision) error {
	verdict := "deny"
	if d.Allowed {
		verdict = "allow"
	}
	if d.IsDefault() {
		_, err := fmt.Fprintf(w, "%s (default)\n", verdict)
		return err
	}
	_, err := fmt.Fprintf(w, "%s by %s of rule %d (%s)\n", verdict, d.Directive,
		d.Rule.Index(), d.Rule.Selector())
	return err
}

func reportMutation(w io.Writer, el *html.Node, err error) error {
	if err != nil {
		return err
	}
	return html.Render(w, el)
}

func output(cmd *cobra.Command) io.Writer {
	if cmd == nil {
		return os.Stdout
	}
	return cmd.OutOrStdout()
}
