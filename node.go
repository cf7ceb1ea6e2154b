package refx

import "strings"

// Kind identifies the variant held by a Node.
type Kind int8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// Entry is a single key/value pair inside an object Node. Object entries keep
// their insertion order, which is load-bearing: the case-insensitive key
// fallback is defined as "first match in insertion order".
type Entry struct {
	Key   string
	Value *Node
}

// Node is one unit of the parsed interchange tree: null, bool, number, string,
// array, or object. Numbers keep their original lexeme so integer values
// round-trip without float precision loss.
type Node struct {
	Kind Kind

	Bool    bool
	Num     string
	Str     string
	Items   []*Node
	Entries []Entry
}

// NullNode returns the tree's null node.
func NullNode() *Node {
	return &Node{Kind: KindNull}
}

// BoolNode builds a boolean node.
func BoolNode(b bool) *Node {
	return &Node{Kind: KindBool, Bool: b}
}

// NumberNode builds a number node from its decimal lexeme.
func NumberNode(lexeme string) *Node {
	return &Node{Kind: KindNumber, Num: lexeme}
}

// StringNode builds a string node.
func StringNode(s string) *Node {
	return &Node{Kind: KindString, Str: s}
}

// ArrayNode builds an array node from the given items.
func ArrayNode(items ...*Node) *Node {
	return &Node{Kind: KindArray, Items: items}
}

// ObjectNode builds an empty object node.
func ObjectNode() *Node {
	return &Node{Kind: KindObject}
}

// IsNull reports whether the node is the null node (or nil).
func (n *Node) IsNull() bool {
	return n == nil || n.Kind == KindNull
}

// Set appends a key/value entry to an object node. It does not deduplicate
// keys; callers own key uniqueness.
func (n *Node) Set(key string, value *Node) {
	n.Entries = append(n.Entries, Entry{Key: key, Value: value})
}

// Get returns the value for an exact key match in an object node, or nil if
// the key is absent or the node is not an object.
func (n *Node) Get(key string) *Node {
	if n == nil || n.Kind != KindObject {
		return nil
	}
	for _, e := range n.Entries {
		if e.Key == key {
			return e.Value
		}
	}
	return nil
}

// Lookup resolves key against an object node using the two-phase rule: exact
// match first, then the first case-insensitive match in insertion order. The
// returned name is the key actually matched, so callers can mark it consumed.
func (n *Node) Lookup(key string) (*Node, string, bool) {
	if n == nil || n.Kind != KindObject {
		return nil, "", false
	}
	for _, e := range n.Entries {
		if e.Key == key {
			return e.Value, e.Key, true
		}
	}
	for _, e := range n.Entries {
		if strings.EqualFold(e.Key, key) {
			return e.Value, e.Key, true
		}
	}
	return nil, "", false
}

// GetString returns the string value for key if present and of string kind.
func (n *Node) GetString(key string) (string, bool) {
	v := n.Get(key)
	if v == nil || v.Kind != KindString {
		return "", false
	}
	return v.Str, true
}
