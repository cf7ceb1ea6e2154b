package refx

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{"Malformed Input", ErrMalformedInput, ErrMalformedInput},
		{"Dangling Reference", NewDanglingReferenceError("7"), ErrDanglingReference},
		{"Disallowed Dynamic Type", NewDisallowedDynamicTypeError("Evil, hacks"), ErrDisallowedDynamicType},
		{"No Suitable Constructor", NewNoSuitableConstructorError("Account"), ErrNoSuitableConstructor},
		{"Type Conversion", NewTypeConversionError("level", "number", "string"), ErrTypeConversion},
		{"Unknown Key", NewUnknownKeyError("Player", "extra"), ErrUnknownKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("context: %w", tt.err)
			if !errors.Is(wrapped, tt.expected) {
				t.Errorf("Expected errors.Is(wrapped, %v) to be true", tt.expected)
			}
		})
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		isSecurity bool
		isConfig   bool
		isData     bool
	}{
		{
			name:       "Disallowed Dynamic Type",
			err:        fmt.Errorf("test: %w", ErrDisallowedDynamicType),
			isSecurity: true,
		},
		{
			name:     "Invalid Configuration",
			err:      fmt.Errorf("test: %w", ErrInvalidConfiguration),
			isConfig: true,
		},
		{
			name:     "Missing Setter",
			err:      fmt.Errorf("test: %w", ErrMissingSetter),
			isConfig: true,
		},
		{
			name:   "Malformed Input",
			err:    fmt.Errorf("test: %w", ErrMalformedInput),
			isData: true,
		},
		{
			name:   "Dangling Reference",
			err:    fmt.Errorf("test: %w", ErrDanglingReference),
			isData: true,
		},
		{
			name:   "No Suitable Constructor",
			err:    fmt.Errorf("test: %w", ErrNoSuitableConstructor),
			isData: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSecurityError(tt.err); got != tt.isSecurity {
				t.Errorf("IsSecurityError() = %v, want %v", got, tt.isSecurity)
			}
			if got := IsConfigurationError(tt.err); got != tt.isConfig {
				t.Errorf("IsConfigurationError() = %v, want %v", got, tt.isConfig)
			}
			if got := IsDataError(tt.err); got != tt.isData {
				t.Errorf("IsDataError() = %v, want %v", got, tt.isData)
			}
		})
	}
}
