package refx

import (
	"fmt"

	"github.com/hengadev/refx/internal/typereg"
)

// Registry is the public face of the type registry: the allow-list of type
// tags, the prototypes they instantiate, the interface types opened for
// dynamic resolution, registered constructors, and per-type reference
// tracking overrides.
//
// A Registry is safe for concurrent use and may be shared between engines via
// WithRegistry. Registration normally happens once at startup.
type Registry struct {
	reg *typereg.Registry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{reg: typereg.New()}
}

// RegisterType places a concrete type on the allow-list under the given tag.
//
// The prototype must be a pointer to a struct; the tag is the wire form
// written to and matched from the interchange data, e.g. "Player, game".
// Only registered tags ever resolve during dynamic deserialization: this
// registration is the system's sole defense against constructing
// attacker-chosen types from untrusted input.
func (r *Registry) RegisterType(prototype any, tag string) error {
	if err := r.reg.RegisterType(prototype, tag); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	return nil
}

// MustRegisterType is RegisterType panicking on error, for startup wiring.
func (r *Registry) MustRegisterType(prototype any, tag string) {
	if err := r.RegisterType(prototype, tag); err != nil {
		panic(err)
	}
}

// RegisterDynamicBase marks an interface type as permitting dynamic subtypes.
// The argument is a nil interface pointer, e.g. (*Shape)(nil). Type tags on
// members whose declared type is not a registered dynamic base are silently
// ignored.
func (r *Registry) RegisterDynamicBase(ifacePtr any) error {
	if err := r.reg.RegisterDynamicBase(ifacePtr); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	return nil
}

// MustRegisterDynamicBase is RegisterDynamicBase panicking on error.
func (r *Registry) MustRegisterDynamicBase(ifacePtr any) {
	if err := r.RegisterDynamicBase(ifacePtr); err != nil {
		panic(err)
	}
}

// RegisterConstructor registers a construction function considered during
// deserialization of the type it returns.
//
// fn must be a non-variadic func returning a pointer to a struct, optionally
// with a trailing error result. paramNames binds each positional argument to
// the interchange key it is filled from:
//
//	r.RegisterConstructor(NewPlayer, "name", "level")
//
// During deserialization the constructor whose parameters all resolve to
// present keys and which has the most parameters wins; ties are broken by
// registration order. Parameter keys match exactly first, then fall back to
// the first case-insensitive match in insertion order.
func (r *Registry) RegisterConstructor(fn any, paramNames ...string) error {
	if err := r.reg.RegisterConstructor(fn, paramNames...); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	return nil
}

// MustRegisterConstructor is RegisterConstructor panicking on error.
func (r *Registry) MustRegisterConstructor(fn any, paramNames ...string) {
	if err := r.RegisterConstructor(fn, paramNames...); err != nil {
		panic(err)
	}
}

// RequireConstructor declares that zero-value construction is not valid for
// the prototype's type. Deserialization then fails with
// ErrNoSuitableConstructor unless one of the registered constructors matches.
func (r *Registry) RequireConstructor(prototype any) error {
	if err := r.reg.RequireConstructor(prototype); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	return nil
}

// SetReferenceTracking overrides the engine-wide reference tracking default
// for the prototype's type. Disabling tracking for a type that sits on a
// cycle makes recursion unbounded; that trade-off belongs to the caller.
func (r *Registry) SetReferenceTracking(prototype any, enabled bool) error {
	if err := r.reg.SetReferenceTracking(prototype, enabled); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	return nil
}
