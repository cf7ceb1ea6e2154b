package refx

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/hengadev/refx/internal/schema"
)

// writeValue converts v to its node representation. declared is the static
// type of the slot being filled (member, element, or root), which drives the
// type-tag emission decision at every level independently of the runtime
// value's concrete type.
func (s *Session) writeValue(v reflect.Value, declared reflect.Type) (*Node, error) {
	if !v.IsValid() {
		return NullNode(), nil
	}

	// Unwrap interface values; the declared type keeps carrying the
	// interface for the tag decision below.
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return NullNode(), nil
		}
		v = v.Elem()
	}

	if c := s.engine.converterFor(v.Type()); c != nil {
		return c.Write(s, v)
	}

	switch v.Kind() {
	case reflect.Bool:
		return BoolNode(v.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return NumberNode(strconv.FormatInt(v.Int(), 10)), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return NumberNode(strconv.FormatUint(v.Uint(), 10)), nil
	case reflect.Float32:
		return NumberNode(strconv.FormatFloat(v.Float(), 'g', -1, 32)), nil
	case reflect.Float64:
		return NumberNode(strconv.FormatFloat(v.Float(), 'g', -1, 64)), nil
	case reflect.String:
		return StringNode(v.String()), nil
	case reflect.Slice:
		if v.IsNil() {
			return NullNode(), nil
		}
		return s.writeSequence(v)
	case reflect.Array:
		return s.writeSequence(v)
	case reflect.Map:
		return s.writeMap(v)
	case reflect.Pointer:
		if v.IsNil() {
			return NullNode(), nil
		}
		if elem := v.Type().Elem(); elem.Kind() == reflect.Struct {
			// Specialized converters claim the pointed-to type before the
			// generic struct algorithm sees it.
			if c := s.engine.converterFor(elem); c != nil {
				return c.Write(s, v.Elem())
			}
			return s.writeStruct(v, declared)
		}
		return s.writeValue(v.Elem(), v.Type().Elem())
	case reflect.Struct:
		return s.writeStruct(v, declared)
	default:
		return nil, fmt.Errorf("%w: cannot serialize values of type %s", ErrUnsupportedType, v.Type())
	}
}

func (s *Session) writeSequence(v reflect.Value) (*Node, error) {
	elemType := v.Type().Elem()
	node := &Node{Kind: KindArray, Items: make([]*Node, 0, v.Len())}
	for i := range v.Len() {
		item, err := s.writeValue(v.Index(i), elemType)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		node.Items = append(node.Items, item)
	}
	return node, nil
}

func (s *Session) writeMap(v reflect.Value) (*Node, error) {
	if v.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("%w: map keys must be strings, got %s", ErrUnsupportedType, v.Type())
	}
	if v.IsNil() {
		return NullNode(), nil
	}

	keys := make([]string, 0, v.Len())
	for _, k := range v.MapKeys() {
		keys = append(keys, k.String())
	}
	// Go map iteration order is randomized; sort for deterministic output.
	sort.Strings(keys)

	elemType := v.Type().Elem()
	node := ObjectNode()
	for _, k := range keys {
		value, err := s.writeValue(v.MapIndex(reflect.ValueOf(k).Convert(v.Type().Key())), elemType)
		if err != nil {
			return nil, fmt.Errorf("key '%s': %w", k, err)
		}
		node.Set(k, value)
	}
	return node, nil
}

// writeStruct is the write path of the generic graph algorithm. v is either a
// pointer to a struct or an addressable/plain struct value; only pointers
// participate in reference tracking since value copies have no stable
// identity.
func (s *Session) writeStruct(v reflect.Value, declared reflect.Type) (*Node, error) {
	structVal := v
	if v.Kind() == reflect.Pointer {
		structVal = v.Elem()
	}
	structType := structVal.Type()

	node := ObjectNode()

	if v.Kind() == reflect.Pointer && s.engine.registry.reg.TrackingFor(structType, !s.cfg.DisableReferenceTracking) {
		key := v.Interface()
		if id, seen := s.writeRefs[key]; seen {
			ref := ObjectNode()
			ref.Set(KeyRef, StringNode(id))
			return ref, nil
		}
		node.Set(KeyID, StringNode(s.allocateID(key)))
	}

	if !s.cfg.DisableDynamicTyping && s.engine.registry.reg.IsDynamicBase(declared) {
		tag, ok := s.engine.registry.reg.TagFor(structType)
		if !ok {
			return nil, fmt.Errorf("%w: %s fills a dynamic slot but has no registered type tag", ErrTypeNotRegistered, structType)
		}
		node.Set(KeyType, StringNode(tag.String()))
	}

	sch, err := schema.For(structType)
	if err != nil {
		return nil, wrapSchemaError(structType, err)
	}

	hook := s.engine.hookFor(structType)
	for _, m := range sch.Eligible() {
		if hook != nil && hook.SuppressMember(structType, m.Name) {
			continue
		}
		child, err := s.writeValue(structVal.Field(m.Index), m.Type)
		if err != nil {
			return nil, fmt.Errorf("member '%s' of %s: %w", m.Name, structType, err)
		}
		node.Set(m.Name, child)
	}

	if hook != nil {
		extra, err := hook.ExtraEntries(s, v.Interface())
		if err != nil {
			return nil, fmt.Errorf("graph hook entries for %s: %w", structType, err)
		}
		for _, e := range extra {
			node.Set(e.Key, e.Value)
		}
	}

	s.log.Debug("wrote object", zap.Stringer("type", structType), zap.Int("members", len(node.Entries)))
	return node, nil
}
