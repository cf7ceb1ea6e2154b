// Package typereg holds the typed registry behind dynamic (polymorphic) type
// resolution: the allow-list of type tags, the prototypes they instantiate,
// the interface types opened for dynamic resolution, registered constructors,
// and per-type reference-tracking overrides.
//
// The registry is the sole defense against constructing attacker-chosen types
// from untrusted interchange data. A type tag found in input resolves only if
// a prototype was registered for it ahead of time; nothing is ever looked up
// from the tag text itself.
package typereg

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

var (
	ErrAlreadyRegistered = errors.New("type tag already registered")
	ErrInvalidPrototype  = errors.New("invalid prototype")
	ErrInvalidTag        = errors.New("invalid type tag")
	ErrInvalidFunc       = errors.New("invalid constructor function")
)

// Tag is a parsed type tag: a type name plus the module it belongs to.
// The wire form is "Name, module"; the module part may be empty.
type Tag struct {
	Name   string
	Module string
}

// ParseTag parses the wire form of a type tag. Whitespace around the comma is
// ignored; the name part is required.
func ParseTag(s string) (Tag, error) {
	name, module, _ := strings.Cut(s, ",")
	name = strings.TrimSpace(name)
	module = strings.TrimSpace(module)
	if name == "" {
		return Tag{}, fmt.Errorf("%w: '%s' has no type name", ErrInvalidTag, s)
	}
	return Tag{Name: name, Module: module}, nil
}

// String renders the tag in its canonical wire form.
func (t Tag) String() string {
	if t.Module == "" {
		return t.Name
	}
	return t.Name + ", " + t.Module
}

// Constructor is a registered construction function for a concrete type,
// selectable by the set of interchange keys present on an object node.
type Constructor struct {
	// Params holds the interchange key each positional argument is bound to.
	Params []string

	fn         reflect.Value
	paramTypes []reflect.Type
	returnsErr bool
}

// ParamType returns the declared type of the i-th parameter.
func (c *Constructor) ParamType(i int) reflect.Type {
	return c.paramTypes[i]
}

// Invoke calls the constructor with already-converted arguments and returns
// the new instance as a pointer-to-struct value.
func (c *Constructor) Invoke(args []reflect.Value) (reflect.Value, error) {
	out := c.fn.Call(args)
	if c.returnsErr && !out[1].IsNil() {
		return reflect.Value{}, out[1].Interface().(error)
	}
	return out[0], nil
}

// Registry is the process-wide type registry. Safe for concurrent use; reads
// take a shared lock so the allow-list is consulted live on every resolution,
// never cached past its own definition.
type Registry struct {
	mu           sync.RWMutex
	types        map[Tag]reflect.Type
	tags         map[reflect.Type]Tag
	dynamicBases map[reflect.Type]struct{}
	constructors map[reflect.Type][]*Constructor
	requireCtor  map[reflect.Type]struct{}
	tracking     map[reflect.Type]bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		types:        make(map[Tag]reflect.Type),
		tags:         make(map[reflect.Type]Tag),
		dynamicBases: make(map[reflect.Type]struct{}),
		constructors: make(map[reflect.Type][]*Constructor),
		requireCtor:  make(map[reflect.Type]struct{}),
		tracking:     make(map[reflect.Type]bool),
	}
}

// RegisterType places a concrete type on the allow-list under the given tag.
// The prototype must be a pointer to a struct; instances are produced from the
// pointed-to type. Registering the same tag twice is an error.
func (r *Registry) RegisterType(prototype any, tag string) error {
	t, err := structType(prototype)
	if err != nil {
		return err
	}
	parsed, err := ParseTag(tag)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[parsed]; exists {
		return fmt.Errorf("%w: '%s'", ErrAlreadyRegistered, parsed)
	}
	r.types[parsed] = t
	if _, exists := r.tags[t]; !exists {
		r.tags[t] = parsed
	}
	return nil
}

// MustRegisterType is RegisterType panicking on error, for startup wiring.
func (r *Registry) MustRegisterType(prototype any, tag string) {
	if err := r.RegisterType(prototype, tag); err != nil {
		panic(err)
	}
}

// Resolve looks a parsed tag up on the allow-list. The boolean is false for
// anything not explicitly registered.
func (r *Registry) Resolve(tag Tag) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[tag]
	return t, ok
}

// TagFor returns the registered tag for a concrete struct type, used when
// embedding type tags on the write path.
func (r *Registry) TagFor(t reflect.Type) (Tag, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tag, ok := r.tags[t]
	return tag, ok
}

// RegisterDynamicBase marks an interface type as permitting dynamic subtypes.
// The argument is a nil interface pointer, e.g. (*Shape)(nil). Only members
// whose declared type is a registered dynamic base ever honor a type tag.
func (r *Registry) RegisterDynamicBase(ifacePtr any) error {
	t := reflect.TypeOf(ifacePtr)
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Interface {
		return fmt.Errorf("%w: expected a nil interface pointer such as (*Shape)(nil), got %T", ErrInvalidPrototype, ifacePtr)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.dynamicBases[t.Elem()] = struct{}{}
	return nil
}

// IsDynamicBase reports whether declared is an interface type registered as
// permitting dynamic subtypes.
func (r *Registry) IsDynamicBase(declared reflect.Type) bool {
	if declared == nil || declared.Kind() != reflect.Interface {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.dynamicBases[declared]
	return ok
}

// RegisterConstructor registers a construction function selectable during
// deserialization. fn must be a non-variadic func returning a pointer to a
// struct, optionally with a trailing error result. paramNames binds each
// positional argument to the interchange key it is filled from; the count
// must match fn's arity. Constructors are kept in registration order, which
// breaks ties between candidates with the same parameter count.
func (r *Registry) RegisterConstructor(fn any, paramNames ...string) error {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return fmt.Errorf("%w: expected a func, got %T", ErrInvalidFunc, fn)
	}
	t := v.Type()
	if t.IsVariadic() {
		return fmt.Errorf("%w: variadic constructors are not supported", ErrInvalidFunc)
	}
	if t.NumIn() != len(paramNames) {
		return fmt.Errorf("%w: func takes %d arguments but %d parameter names given", ErrInvalidFunc, t.NumIn(), len(paramNames))
	}
	switch t.NumOut() {
	case 1:
	case 2:
		if t.Out(1) != reflect.TypeFor[error]() {
			return fmt.Errorf("%w: second result must be error, got %s", ErrInvalidFunc, t.Out(1))
		}
	default:
		return fmt.Errorf("%w: func must return the instance and an optional error", ErrInvalidFunc)
	}
	out := t.Out(0)
	if out.Kind() != reflect.Pointer || out.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: first result must be a pointer to a struct, got %s", ErrInvalidFunc, out)
	}
	for i, name := range paramNames {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: parameter %d has an empty name", ErrInvalidFunc, i)
		}
	}

	ctor := &Constructor{
		Params:     append([]string(nil), paramNames...),
		fn:         v,
		returnsErr: t.NumOut() == 2,
	}
	ctor.paramTypes = make([]reflect.Type, t.NumIn())
	for i := range t.NumIn() {
		ctor.paramTypes[i] = t.In(i)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[out.Elem()] = append(r.constructors[out.Elem()], ctor)
	return nil
}

// MustRegisterConstructor is RegisterConstructor panicking on error.
func (r *Registry) MustRegisterConstructor(fn any, paramNames ...string) {
	if err := r.RegisterConstructor(fn, paramNames...); err != nil {
		panic(err)
	}
}

// RequireConstructor declares that zero-value construction is not valid for
// the prototype's type: deserialization must match one of its registered
// constructors or fail.
func (r *Registry) RequireConstructor(prototype any) error {
	t, err := structType(prototype)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requireCtor[t] = struct{}{}
	return nil
}

// ConstructorsFor returns the registered constructors for a struct type in
// registration order, plus whether zero-value construction is permitted.
func (r *Registry) ConstructorsFor(t reflect.Type) (ctors []*Constructor, zeroAllowed bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, required := r.requireCtor[t]
	return r.constructors[t], !required
}

// SetReferenceTracking overrides the engine-wide reference tracking default
// for the prototype's type.
func (r *Registry) SetReferenceTracking(prototype any, enabled bool) error {
	t, err := structType(prototype)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracking[t] = enabled
	return nil
}

// TrackingFor returns the effective reference tracking policy for a struct
// type given the engine-wide default.
func (r *Registry) TrackingFor(t reflect.Type, fallback bool) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if enabled, ok := r.tracking[t]; ok {
		return enabled
	}
	return fallback
}

func structType(prototype any) (reflect.Type, error) {
	t := reflect.TypeOf(prototype)
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: expected a pointer to a struct, got %T", ErrInvalidPrototype, prototype)
	}
	return t.Elem(), nil
}
