// Dspcheck inspects and exercises DOM security policies.
//
// Usage:
//
//	# Print the rules of a policy file as a tree
//	dspcheck dump --policy site.dsp
//
//	# Ask if an attribute of an element may be set
//	dspcheck attr --policy site.dsp --html page.html --selector "#login" --attr action --value https://evil.org/
//
//	# Ask if a shadow root may be attached to an element
//	dspcheck shadow --policy site.dsp --html page.html --selector "my-widget"
//
//	# Keep a policy loaded, re-load it on changes and serve metrics
//	dspcheck watch --config dspcheck.yaml
package main

func main() {
	Execute()
}
