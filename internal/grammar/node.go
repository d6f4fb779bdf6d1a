// Package grammar holds the intermediate representation of a parsed PEG:
// an arena of rules, the operator trees hanging off them and the list of
// distinct semantic actions.
package grammar

import "fmt"

// Kind identifies the operator a Node represents.
type Kind uint8

const (
	KindRule Kind = iota + 1
	KindName
	KindDot
	KindCharacter
	KindString
	KindClass
	KindAction
	KindPredicate
	KindError
	KindAlternate
	KindSequence
	KindPeekFor
	KindPeekNot
	KindQuery
	KindStar
	KindPlus
)

var kindNames = [...]string{
	KindRule:      "Rule",
	KindName:      "Name",
	KindDot:       "Dot",
	KindCharacter: "Character",
	KindString:    "String",
	KindClass:     "Class",
	KindAction:    "Action",
	KindPredicate: "Predicate",
	KindError:     "Error",
	KindAlternate: "Alternate",
	KindSequence:  "Sequence",
	KindPeekFor:   "PeekFor",
	KindPeekNot:   "PeekNot",
	KindQuery:     "Query",
	KindStar:      "Star",
	KindPlus:      "Plus",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Valid reports whether k is one of the operator kinds above.
func (k Kind) Valid() bool {
	return k >= KindRule && k <= KindPlus
}

// Node is one operator of a rule's expression tree.
//
// Which fields are meaningful depends on Kind:
//
//	Name                   Rule (arena index of the referenced rule)
//	Character, String      Text
//	Class                  Text (raw, unparsed class specification)
//	Predicate              Text (host boolean expression)
//	Action                 Name, Text (action body)
//	Error                  Element, Text (recovery body)
//	Alternate, Sequence    Children
//	PeekFor ... Plus       Element
type Node struct {
	Kind     Kind
	ID       int
	Name     string
	Text     string
	Rule     int
	Element  *Node
	Children []*Node
}

// Dot matches any single input byte.
func Dot() *Node { return &Node{Kind: KindDot} }

// Char matches a literal character sequence written with single quotes.
func Char(text string) *Node { return &Node{Kind: KindCharacter, Text: text} }

// Str matches a literal string.
func Str(text string) *Node { return &Node{Kind: KindString, Text: text} }

// Class matches one byte selected by the class specification spec.
func Class(spec string) *Node { return &Node{Kind: KindClass, Text: spec} }

// Predicate succeeds without consuming input when the host expression holds.
func Predicate(text string) *Node { return &Node{Kind: KindPredicate, Text: text} }

// Error runs the recovery text when element fails.
func Error(element *Node, text string) *Node {
	return &Node{Kind: KindError, Element: element, Text: text}
}

// Alt is ordered choice.
func Alt(children ...*Node) *Node { return &Node{Kind: KindAlternate, Children: children} }

// Seq is a sequence.
func Seq(children ...*Node) *Node { return &Node{Kind: KindSequence, Children: children} }

func PeekFor(element *Node) *Node { return &Node{Kind: KindPeekFor, Element: element} }
func PeekNot(element *Node) *Node { return &Node{Kind: KindPeekNot, Element: element} }
func Query(element *Node) *Node   { return &Node{Kind: KindQuery, Element: element} }
func Star(element *Node) *Node    { return &Node{Kind: KindStar, Element: element} }
func Plus(element *Node) *Node    { return &Node{Kind: KindPlus, Element: element} }

// Walk calls fn for n and every node below it in written order. Name nodes
// are visited but not followed into the rule they reference.
func Walk(n *Node, fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	Walk(n.Element, fn)
	for _, child := range n.Children {
		Walk(child, fn)
	}
}
