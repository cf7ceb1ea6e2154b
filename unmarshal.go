package refx

import (
	"fmt"
	"reflect"
)

// Unmarshal deserializes interchange text into the value pointed to by
// target. target must be a non-nil pointer; its element type is the declared
// type of the root.
//
// Any failure aborts the entire call: the target is written only after the
// whole graph converted successfully, so a malformed or disallowed input
// never leaves a half-populated instance behind.
func (e *Engine) Unmarshal(data []byte, target any) error {
	rv := reflect.ValueOf(target)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return NewNilTargetError(target)
	}

	node, err := ParseNode(data)
	if err != nil {
		return fmt.Errorf("refx: unmarshal: %w", err)
	}

	s := e.newSession("unmarshal")
	out, err := s.readValue(node, rv.Type().Elem())
	if err != nil {
		return fmt.Errorf("refx: unmarshal into %T: %w", target, err)
	}
	rv.Elem().Set(out)
	s.log.Debug("session finished")
	return nil
}

// UnmarshalDynamic deserializes interchange text whose root type is
// determined from its embedded type tag rather than from a declared target
// type. Resolution stays gated by the allow-list; a tag outside it fails with
// ErrDisallowedDynamicType.
//
// Scalar and array roots decode to untyped Go values (bool, float64, string,
// []any). An object root must carry a type tag.
func (e *Engine) UnmarshalDynamic(data []byte) (any, error) {
	node, err := ParseNode(data)
	if err != nil {
		return nil, fmt.Errorf("refx: unmarshal dynamic: %w", err)
	}

	s := e.newSession("unmarshal-dynamic")
	// Only for the duration of this call: the root object itself may carry a
	// type tag even though the expected type (any) would not normally allow
	// one.
	s.dynamicRoot = true

	if node.Kind == KindObject {
		if _, ok := node.GetString(KeyType); !ok {
			return nil, fmt.Errorf("refx: unmarshal dynamic: %w: root object carries no type tag", ErrMalformedInput)
		}
	}

	out, err := s.readValue(node, anyType)
	if err != nil {
		return nil, fmt.Errorf("refx: unmarshal dynamic: %w", err)
	}
	s.log.Debug("session finished")
	return out.Interface(), nil
}
