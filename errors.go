package refx

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/hengadev/refx/internal/schema"
)

var (
	// Input errors
	ErrMalformedInput    = errors.New("malformed input")
	ErrDanglingReference = errors.New("dangling reference")
	ErrUnknownKey        = errors.New("unknown object key")

	// Security errors
	ErrDisallowedDynamicType = errors.New("disallowed dynamic type")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingSetter        = errors.New("missing setter for tagged member")
	ErrTypeNotRegistered    = errors.New("type not registered")

	// Conversion errors
	ErrNoSuitableConstructor = errors.New("no suitable constructor")
	ErrTypeConversion        = errors.New("type conversion failed")
	ErrUnsupportedType       = errors.New("unsupported type")
	ErrNilTarget             = errors.New("nil target")
)

func NewNilTargetError(target any) error {
	return fmt.Errorf("%w: unmarshal target must be a non-nil pointer, got %T", ErrNilTarget, target)
}

func NewDanglingReferenceError(id string) error {
	return fmt.Errorf("%w: identifier '%s' is not declared in the current call", ErrDanglingReference, id)
}

func NewDisallowedDynamicTypeError(tag string) error {
	return fmt.Errorf("%w: type tag '%s' is not on the allow-list", ErrDisallowedDynamicType, tag)
}

func NewNoSuitableConstructorError(typeName string) error {
	return fmt.Errorf("%w: no registered constructor of %s matches the available keys", ErrNoSuitableConstructor, typeName)
}

func NewTypeConversionError(memberName string, expected, got string) error {
	return fmt.Errorf("%w: member '%s' expects %s, got %s node", ErrTypeConversion, memberName, expected, got)
}

func NewUnknownKeyError(typeName, key string) error {
	return fmt.Errorf("%w: '%s' matches no member of %s", ErrUnknownKey, key, typeName)
}

// wrapSchemaError translates descriptor build failures into the public error
// taxonomy. Every schema defect is a configuration problem, not a data one.
func wrapSchemaError(t reflect.Type, err error) error {
	if errors.Is(err, schema.ErrMissingSetter) {
		return fmt.Errorf("%w: %v", ErrMissingSetter, err)
	}
	return fmt.Errorf("%w: invalid schema for %s: %v", ErrInvalidConfiguration, t, err)
}

// IsSecurityError returns true if the error represents a rejected dynamic type
// resolution. Security rejections are always fatal and never downgraded.
func IsSecurityError(err error) bool {
	return errors.Is(err, ErrDisallowedDynamicType)
}

// IsConfigurationError returns true if the error represents a defect in the
// schema or registry rather than in the input data.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrMissingSetter) ||
		errors.Is(err, ErrTypeNotRegistered) ||
		errors.Is(err, ErrUnsupportedType)
}

// IsDataError returns true if the error represents a problem with the input
// document itself.
func IsDataError(err error) bool {
	return errors.Is(err, ErrMalformedInput) ||
		errors.Is(err, ErrDanglingReference) ||
		errors.Is(err, ErrUnknownKey) ||
		errors.Is(err, ErrNoSuitableConstructor) ||
		errors.Is(err, ErrTypeConversion)
}
