package sanitize

import (
	_ "embed"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// lockdownScript swallows link clicks, form submits and location writes.
//
//go:embed lockdown.js
var lockdownScript string

// neutralizeStyle makes every anchor inert without removing it.
const neutralizeStyle = `
a, a:link, a:visited, a:hover, a:active {
    pointer-events: none !important;
    cursor: default !important;
    text-decoration: none !important;
    color: inherit !important;
}
`

func elementWithText(a atom.Atom, text string) *html.Node {
	node := &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
	}
	node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return node
}

func newLockdownNode() *html.Node {
	return elementWithText(atom.Script, lockdownScript)
}

func newNeutralizeNode() *html.Node {
	return elementWithText(atom.Style, neutralizeStyle)
}
