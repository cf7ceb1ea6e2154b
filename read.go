package refx

import (
	"fmt"
	"reflect"
	"strconv"

	"go.uber.org/zap"

	"github.com/hengadev/refx/internal/schema"
	"github.com/hengadev/refx/internal/typereg"
)

// readValue converts a node into a value assignable to the declared type.
// Absence (a null node, or a non-object node where an object is expected)
// yields the declared type's zero value rather than an error; genuine
// mismatches on scalar targets are fatal.
func (s *Session) readValue(n *Node, declared reflect.Type) (reflect.Value, error) {
	if c := s.engine.converterFor(declared); c != nil {
		return c.Read(s, n, declared)
	}

	if n.IsNull() {
		return reflect.Zero(declared), nil
	}

	switch declared.Kind() {
	case reflect.Bool:
		if n.Kind != KindBool {
			return reflect.Value{}, NewTypeConversionError(declared.String(), "bool", n.Kind.String())
		}
		out := reflect.New(declared).Elem()
		out.SetBool(n.Bool)
		return out, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n.Kind != KindNumber {
			return reflect.Value{}, NewTypeConversionError(declared.String(), "number", n.Kind.String())
		}
		i, err := strconv.ParseInt(n.Num, 10, declared.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: '%s' does not fit %s", ErrTypeConversion, n.Num, declared)
		}
		out := reflect.New(declared).Elem()
		out.SetInt(i)
		return out, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n.Kind != KindNumber {
			return reflect.Value{}, NewTypeConversionError(declared.String(), "number", n.Kind.String())
		}
		u, err := strconv.ParseUint(n.Num, 10, declared.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: '%s' does not fit %s", ErrTypeConversion, n.Num, declared)
		}
		out := reflect.New(declared).Elem()
		out.SetUint(u)
		return out, nil

	case reflect.Float32, reflect.Float64:
		if n.Kind != KindNumber {
			return reflect.Value{}, NewTypeConversionError(declared.String(), "number", n.Kind.String())
		}
		f, err := strconv.ParseFloat(n.Num, declared.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: '%s' does not fit %s", ErrTypeConversion, n.Num, declared)
		}
		out := reflect.New(declared).Elem()
		out.SetFloat(f)
		return out, nil

	case reflect.String:
		if n.Kind != KindString {
			return reflect.Value{}, NewTypeConversionError(declared.String(), "string", n.Kind.String())
		}
		out := reflect.New(declared).Elem()
		out.SetString(n.Str)
		return out, nil

	case reflect.Slice:
		if n.Kind != KindArray {
			return reflect.Zero(declared), nil
		}
		out := reflect.MakeSlice(declared, 0, len(n.Items))
		for i, item := range n.Items {
			elem, err := s.readValue(item, declared.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			out = reflect.Append(out, elem)
		}
		return out, nil

	case reflect.Array:
		if n.Kind != KindArray {
			return reflect.Zero(declared), nil
		}
		out := reflect.New(declared).Elem()
		for i, item := range n.Items {
			if i >= declared.Len() {
				break
			}
			elem, err := s.readValue(item, declared.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			out.Index(i).Set(elem)
		}
		return out, nil

	case reflect.Map:
		if declared.Key().Kind() != reflect.String {
			return reflect.Value{}, fmt.Errorf("%w: map keys must be strings, got %s", ErrUnsupportedType, declared)
		}
		if n.Kind != KindObject {
			return reflect.Zero(declared), nil
		}
		out := reflect.MakeMapWithSize(declared, len(n.Entries))
		for _, e := range n.Entries {
			value, err := s.readValue(e.Value, declared.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("key '%s': %w", e.Key, err)
			}
			out.SetMapIndex(reflect.ValueOf(e.Key).Convert(declared.Key()), value)
		}
		return out, nil

	case reflect.Interface:
		return s.readInterface(n, declared)

	case reflect.Pointer:
		if declared.Elem().Kind() == reflect.Struct {
			if c := s.engine.converterFor(declared.Elem()); c != nil {
				elem, err := c.Read(s, n, declared.Elem())
				if err != nil {
					return reflect.Value{}, err
				}
				out := reflect.New(declared.Elem())
				out.Elem().Set(elem)
				return out, nil
			}
			if n.Kind != KindObject {
				// Non-object input for an object-typed slot is absence,
				// not an error.
				return reflect.Zero(declared), nil
			}
			return s.readStructNode(n, declared.Elem())
		}
		elem, err := s.readValue(n, declared.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(declared.Elem())
		out.Elem().Set(elem)
		return out, nil

	case reflect.Struct:
		if n.Kind != KindObject {
			return reflect.Zero(declared), nil
		}
		ptr, err := s.readStructNode(n, declared)
		if err != nil {
			return reflect.Value{}, err
		}
		return ptr.Elem(), nil

	default:
		return reflect.Value{}, fmt.Errorf("%w: cannot deserialize into %s", ErrUnsupportedType, declared)
	}
}

// readInterface fills an interface-typed slot. A type tag is honored only
// when dynamic typing is enabled and the declared interface is a registered
// dynamic base; otherwise the tag is silently ignored and, with no concrete
// type to build, the slot stays empty.
func (s *Session) readInterface(n *Node, declared reflect.Type) (reflect.Value, error) {
	if n.Kind == KindObject {
		if ref, ok := n.GetString(KeyRef); ok {
			resolved, err := s.resolveReference(ref, declared)
			if err != nil {
				return reflect.Value{}, err
			}
			return resolved, nil
		}

		tag, hasTag := n.GetString(KeyType)
		allowed := !s.cfg.DisableDynamicTyping && s.engine.registry.reg.IsDynamicBase(declared)
		if hasTag && (allowed || (s.dynamicRoot && declared == anyType)) {
			// The dynamic-root escape hatch applies to the root node only,
			// not to nested untyped slots.
			s.dynamicRoot = false
			concrete, err := s.gateTypeTag(tag)
			if err != nil {
				return reflect.Value{}, err
			}
			if declared.Kind() == reflect.Interface && !reflect.PointerTo(concrete).Implements(declared) {
				return reflect.Value{}, fmt.Errorf("%w: %s does not implement %s", ErrTypeConversion, concrete, declared)
			}
			ptr, err := s.readStructNode(n, concrete)
			if err != nil {
				return reflect.Value{}, err
			}
			out := reflect.New(declared).Elem()
			out.Set(ptr)
			return out, nil
		}
	}

	if declared == anyType {
		generic, err := s.genericValue(n)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(declared).Elem()
		if generic != nil {
			out.Set(reflect.ValueOf(generic))
		}
		return out, nil
	}

	// No tag to act on: the statically declared interface gives nothing to
	// construct, so the slot deserializes to absence.
	return reflect.Zero(declared), nil
}

// genericValue decodes a node into untyped Go values: bool, float64, string,
// []any, and map[string]any, mirroring encoding/json's generic decoding.
// Reserved keys inside generic objects are kept literally.
func (s *Session) genericValue(n *Node) (any, error) {
	switch n.Kind {
	case KindNull:
		return nil, nil
	case KindBool:
		return n.Bool, nil
	case KindNumber:
		f, err := strconv.ParseFloat(n.Num, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid number '%s'", ErrTypeConversion, n.Num)
		}
		return f, nil
	case KindString:
		return n.Str, nil
	case KindArray:
		out := make([]any, 0, len(n.Items))
		for _, item := range n.Items {
			v, err := s.genericValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case KindObject:
		out := make(map[string]any, len(n.Entries))
		for _, e := range n.Entries {
			v, err := s.genericValue(e.Value)
			if err != nil {
				return nil, err
			}
			out[e.Key] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: invalid node", ErrMalformedInput)
	}
}

// gateTypeTag runs a raw type tag through the allow-list gate: parse, check
// registry membership, then the configuration-level filter. Rejections are
// fatal and never silently downgraded.
func (s *Session) gateTypeTag(raw string) (reflect.Type, error) {
	tag, err := typereg.ParseTag(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDisallowedDynamicType, err)
	}
	concrete, ok := s.engine.registry.reg.Resolve(tag)
	if !ok || !s.cfg.allowsTag(tag) {
		s.log.Warn("rejected dynamic type tag", zap.String("tag", raw))
		return nil, NewDisallowedDynamicTypeError(raw)
	}
	return concrete, nil
}

// resolveReference resolves a reference marker against the active reference
// table.
func (s *Session) resolveReference(id string, declared reflect.Type) (reflect.Value, error) {
	resolved, ok := s.readRefs[id]
	if !ok {
		return reflect.Value{}, NewDanglingReferenceError(id)
	}
	if !resolved.Type().AssignableTo(declared) {
		return reflect.Value{}, fmt.Errorf("%w: reference '%s' holds %s, want %s", ErrTypeConversion, id, resolved.Type(), declared)
	}
	out := reflect.New(declared).Elem()
	out.Set(resolved)
	return out, nil
}

// readStructNode is the read path of the generic graph algorithm. It returns
// a pointer to a freshly constructed structType instance.
func (s *Session) readStructNode(n *Node, structType reflect.Type) (reflect.Value, error) {
	if ref, ok := n.GetString(KeyRef); ok {
		return s.resolveReference(ref, reflect.PointerTo(structType))
	}

	sch, err := schema.For(structType)
	if err != nil {
		return reflect.Value{}, wrapSchemaError(structType, err)
	}

	// Keys already consumed by reserved markers or constructor arguments are
	// excluded from the member fill below.
	consumed := map[string]struct{}{KeyID: {}, KeyRef: {}, KeyType: {}}

	ptr, err := s.construct(n, structType, consumed)
	if err != nil {
		return reflect.Value{}, err
	}

	// Register the instance before filling members so cyclic references
	// among them resolve to this same instance instead of re-entering
	// construction.
	if id, ok := n.GetString(KeyID); ok {
		s.readRefs[id] = ptr
	}

	structVal := ptr.Elem()
	for _, m := range sch.Eligible() {
		valueNode, matchedKey, found := n.Lookup(m.Name)
		if !found {
			continue
		}
		if _, done := consumed[matchedKey]; done {
			continue
		}
		consumed[matchedKey] = struct{}{}

		value, err := s.readValue(valueNode, m.Type)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("member '%s' of %s: %w", m.Name, structType, err)
		}
		structVal.Field(m.Index).Set(value)
	}

	hook := s.engine.hookFor(structType)
	for _, e := range n.Entries {
		if _, done := consumed[e.Key]; done {
			continue
		}
		if _, isMember := sch.Lookup(e.Key); isMember {
			// Matched a member case-insensitively under another casing and
			// was consumed through it, or shadowed by an earlier duplicate.
			continue
		}
		if hook != nil {
			handled, err := hook.ConsumeKey(s, ptr.Interface(), e.Key, e.Value)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("graph hook key '%s' of %s: %w", e.Key, structType, err)
			}
			if handled {
				continue
			}
		}
		if s.cfg.DisallowUnknownKeys {
			return reflect.Value{}, NewUnknownKeyError(structType.String(), e.Key)
		}
	}

	return ptr, nil
}

// construct selects and invokes a constructor for structType per the
// two-phase key matching rule: among registered constructors whose every
// parameter resolves to a present key, the one with the most parameters wins,
// ties broken by registration order. Zero-value construction backs all of
// this unless the type requires a constructor.
func (s *Session) construct(n *Node, structType reflect.Type, consumed map[string]struct{}) (reflect.Value, error) {
	ctors, zeroAllowed := s.engine.registry.reg.ConstructorsFor(structType)

	var best *typereg.Constructor
	var bestKeys []string
	var bestNodes []*Node
	for _, ctor := range ctors {
		keys := make([]string, 0, len(ctor.Params))
		nodes := make([]*Node, 0, len(ctor.Params))
		matched := true
		for _, param := range ctor.Params {
			valueNode, matchedKey, found := n.Lookup(param)
			if !found {
				matched = false
				break
			}
			keys = append(keys, matchedKey)
			nodes = append(nodes, valueNode)
		}
		if matched && (best == nil || len(ctor.Params) > len(best.Params)) {
			best = ctor
			bestKeys = keys
			bestNodes = nodes
		}
	}

	if best == nil {
		if !zeroAllowed {
			return reflect.Value{}, NewNoSuitableConstructorError(structType.String())
		}
		return reflect.New(structType), nil
	}

	args := make([]reflect.Value, len(best.Params))
	for i, valueNode := range bestNodes {
		arg, err := s.readValue(valueNode, best.ParamType(i))
		if err != nil {
			return reflect.Value{}, fmt.Errorf("constructor argument '%s' of %s: %w", best.Params[i], structType, err)
		}
		args[i] = arg
	}

	ptr, err := best.Invoke(args)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("constructor of %s: %w", structType, err)
	}
	for _, key := range bestKeys {
		consumed[key] = struct{}{}
	}
	return ptr, nil
}
