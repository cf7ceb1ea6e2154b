package refx

import (
	"encoding/base64"
	"fmt"
	"reflect"
	"time"
)

// Converter handles the conversion of one family of types to and from Value
// Tree Nodes. The engine consults its converter list in order and the first
// converter claiming a type wins; the generic graph algorithm is the fallback
// for everything no specialized converter claims.
//
// Converters recurse through the *Session they are handed, so nested
// conversions share the enclosing call's reference table and configuration.
type Converter interface {
	// CanConvert reports whether this converter claims the given type.
	CanConvert(t reflect.Type) bool

	// Write produces the node representation of v. v is of a type for which
	// CanConvert returned true.
	Write(s *Session, v reflect.Value) (*Node, error)

	// Read produces a value of type t from the node. A null node should
	// yield t's zero value.
	Read(s *Session, n *Node, t reflect.Type) (reflect.Value, error)
}

// GraphHook extends the generic graph algorithm for a family of struct types
// without replacing it. Hooks can suppress members on the write path, append
// extra entries after the standard member set, and consume reserved keys on
// the read path that match no member descriptor.
type GraphHook interface {
	// Applies reports whether this hook participates for the struct type t.
	Applies(t reflect.Type) bool

	// SuppressMember reports whether the named member should be skipped when
	// writing an instance of t.
	SuppressMember(t reflect.Type, member string) bool

	// ExtraEntries returns entries appended after the standard members of v.
	ExtraEntries(s *Session, v any) ([]Entry, error)

	// ConsumeKey offers the hook an object key that matched no member
	// descriptor. Returning true marks the key as handled; returning false
	// defers to the engine's unknown-key policy.
	ConsumeKey(s *Session, v any, key string, node *Node) (bool, error)
}

var (
	timeType  = reflect.TypeFor[time.Time]()
	bytesType = reflect.TypeFor[[]byte]()
	anyType   = reflect.TypeFor[any]()
)

// timeConverter stores time.Time as an RFC 3339 string node.
type timeConverter struct{}

func (timeConverter) CanConvert(t reflect.Type) bool {
	return t == timeType
}

func (timeConverter) Write(_ *Session, v reflect.Value) (*Node, error) {
	ts := v.Interface().(time.Time)
	if ts.IsZero() {
		return NullNode(), nil
	}
	return StringNode(ts.Format(time.RFC3339Nano)), nil
}

func (timeConverter) Read(_ *Session, n *Node, t reflect.Type) (reflect.Value, error) {
	if n.IsNull() {
		return reflect.Zero(t), nil
	}
	if n.Kind != KindString {
		return reflect.Value{}, NewTypeConversionError("time", "string", n.Kind.String())
	}
	ts, err := time.Parse(time.RFC3339Nano, n.Str)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("%w: invalid timestamp '%s': %v", ErrTypeConversion, n.Str, err)
	}
	return reflect.ValueOf(ts), nil
}

// binaryConverter stores []byte as a base64 string node, matching the usual
// JSON convention instead of emitting a numeric array.
type binaryConverter struct{}

func (binaryConverter) CanConvert(t reflect.Type) bool {
	return t == bytesType
}

func (binaryConverter) Write(_ *Session, v reflect.Value) (*Node, error) {
	if v.IsNil() {
		return NullNode(), nil
	}
	return StringNode(base64.StdEncoding.EncodeToString(v.Bytes())), nil
}

func (binaryConverter) Read(_ *Session, n *Node, t reflect.Type) (reflect.Value, error) {
	if n.IsNull() {
		return reflect.Zero(t), nil
	}
	if n.Kind != KindString {
		return reflect.Value{}, NewTypeConversionError("bytes", "string", n.Kind.String())
	}
	decoded, err := base64.StdEncoding.DecodeString(n.Str)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("%w: invalid base64 payload: %v", ErrTypeConversion, err)
	}
	return reflect.ValueOf(decoded), nil
}

// defaultConverters returns the built-in specialized converters, consulted
// after any user-registered ones.
func defaultConverters() []Converter {
	return []Converter{timeConverter{}, binaryConverter{}}
}
