package refx

import (
	"errors"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

// The JSON bridge converts between wire text and the Node tree. json-iterator
// is used instead of encoding/json because its iterator API surfaces object
// keys in document order, which the Node model has to preserve.

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// ParseNode parses UTF-8 JSON text into a Node tree.
//
// Any tokenizer failure is reported as ErrMalformedInput; the engine does not
// attempt recovery on partially valid documents.
func ParseNode(data []byte) (*Node, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformedInput)
	}
	iter := jsonAPI.BorrowIterator(data)
	defer jsonAPI.ReturnIterator(iter)

	node := parseValue(iter)
	if iter.Error != nil && !errors.Is(iter.Error, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, iter.Error)
	}
	if node == nil {
		return nil, fmt.Errorf("%w: no value found", ErrMalformedInput)
	}
	return node, nil
}

func parseValue(iter *jsoniter.Iterator) *Node {
	switch iter.WhatIsNext() {
	case jsoniter.NilValue:
		iter.ReadNil()
		return NullNode()
	case jsoniter.BoolValue:
		return BoolNode(iter.ReadBool())
	case jsoniter.NumberValue:
		return NumberNode(string(iter.ReadNumber()))
	case jsoniter.StringValue:
		return StringNode(iter.ReadString())
	case jsoniter.ArrayValue:
		node := &Node{Kind: KindArray}
		iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			item := parseValue(it)
			if item == nil {
				return false
			}
			node.Items = append(node.Items, item)
			return true
		})
		if iter.Error != nil && !errors.Is(iter.Error, io.EOF) {
			return nil
		}
		return node
	case jsoniter.ObjectValue:
		node := ObjectNode()
		iter.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
			value := parseValue(it)
			if value == nil {
				return false
			}
			node.Set(key, value)
			return true
		})
		if iter.Error != nil && !errors.Is(iter.Error, io.EOF) {
			return nil
		}
		return node
	default:
		iter.ReportError("parseValue", "invalid value")
		return nil
	}
}

// EmitNode renders a Node tree as compact JSON text.
func EmitNode(node *Node) ([]byte, error) {
	stream := jsonAPI.BorrowStream(nil)
	defer jsonAPI.ReturnStream(stream)

	if err := emitValue(stream, node); err != nil {
		return nil, err
	}
	if stream.Error != nil {
		return nil, fmt.Errorf("emit node: %w", stream.Error)
	}
	out := make([]byte, len(stream.Buffer()))
	copy(out, stream.Buffer())
	return out, nil
}

func emitValue(stream *jsoniter.Stream, node *Node) error {
	if node == nil {
		stream.WriteNil()
		return nil
	}
	switch node.Kind {
	case KindNull:
		stream.WriteNil()
	case KindBool:
		stream.WriteBool(node.Bool)
	case KindNumber:
		if node.Num == "" {
			return fmt.Errorf("number node has empty lexeme")
		}
		stream.WriteRaw(node.Num)
	case KindString:
		stream.WriteString(node.Str)
	case KindArray:
		stream.WriteArrayStart()
		for i, item := range node.Items {
			if i > 0 {
				stream.WriteMore()
			}
			if err := emitValue(stream, item); err != nil {
				return err
			}
		}
		stream.WriteArrayEnd()
	case KindObject:
		stream.WriteObjectStart()
		for i, e := range node.Entries {
			if i > 0 {
				stream.WriteMore()
			}
			stream.WriteObjectField(e.Key)
			if err := emitValue(stream, e.Value); err != nil {
				return err
			}
		}
		stream.WriteObjectEnd()
	default:
		return fmt.Errorf("invalid node kind %d", node.Kind)
	}
	return nil
}
