package refx

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// Marshal serializes a value to interchange text.
//
// The value's object graph may contain shared references and cycles among
// reference-tracked types: each tracked instance is written once under a
// fresh identifier and every later occurrence becomes a reference marker.
// The call owns an isolated session; concurrent Marshal calls never share
// state.
func (e *Engine) Marshal(v any) ([]byte, error) {
	s := e.newSession("marshal")

	node := NullNode()
	if v != nil {
		rv := reflect.ValueOf(v)
		var err error
		node, err = s.writeValue(rv, rv.Type())
		if err != nil {
			return nil, fmt.Errorf("refx: marshal %T: %w", v, err)
		}
	}

	out, err := EmitNode(node)
	if err != nil {
		return nil, fmt.Errorf("refx: marshal %T: %w", v, err)
	}
	s.log.Debug("session finished", zap.Int("bytes", len(out)))
	return out, nil
}
