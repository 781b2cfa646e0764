package dsp

import (
	"fmt"
	"io"

	"github.com/xlab/treeprint"
)

// Dump prints the rules of a document, together with their directives, as
// a tree. It is intended for debugging and for command-line tools.
func Dump(doc *Document, w io.Writer) error {
	tree := treeprint.New()
	branch := tree.AddBranch(fmt.Sprintf("policy %s (%d rules)", doc.ID(), doc.Len()))
	for i := 0; i < doc.Len(); i++ {
		rule := doc.Rule(i)
		rb := branch.AddBranch(fmt.Sprintf("rule %d: %s", rule.Index(), rule.Selector()))
		for _, d := range rule.Directives() {
			rb.AddNode(fmt.Sprintf("%s: %s", d, rule.ValueString(d)))
		}
	}
	_, err := io.WriteString(w, tree.String())
	return err
}
