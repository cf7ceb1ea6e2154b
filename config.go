package refx

import (
	"fmt"

	"github.com/hengadev/errsx"

	"github.com/hengadev/refx/internal/typereg"
)

// Config holds the per-engine configuration.
//
// This struct contains only data, no behavior. Configuration can be loaded
// from any source (environment variables, YAML files, code) and passed
// explicitly to New. The zero value is a valid default: dynamic typing and
// reference tracking enabled, unknown keys ignored, every registered type
// permitted.
type Config struct {
	// DisableDynamicTyping turns off polymorphic type resolution. With
	// dynamic typing disabled, type tags present in input are silently
	// ignored and the statically declared type is always used.
	DisableDynamicTyping bool `yaml:"disable_dynamic_typing"`

	// DisableReferenceTracking turns off identity-preserving reference
	// tracking for all types. Individual types can still be opted in or out
	// through the registry. With tracking disabled, cyclic object graphs
	// recurse without bound; keeping graphs acyclic becomes the caller's
	// responsibility.
	DisableReferenceTracking bool `yaml:"disable_reference_tracking"`

	// DisallowUnknownKeys makes object keys that match no member descriptor
	// an error instead of being silently ignored.
	DisallowUnknownKeys bool `yaml:"disallow_unknown_keys"`

	// AllowedTypes restricts dynamic resolution to the listed type tags
	// (wire form, e.g. "Player, game"). Empty means every registered type
	// is permitted.
	AllowedTypes []string `yaml:"allowed_types"`

	// AllowedModules restricts dynamic resolution to types whose tag names
	// one of the listed modules. Empty means every registered module is
	// permitted. A tag passes the allow-list if it matches AllowedTypes or
	// AllowedModules; both lists empty admits all registered types.
	AllowedModules []string `yaml:"allowed_modules"`
}

// Validate checks the configuration for well-formedness. Each entry of
// AllowedTypes must parse as a type tag.
func (c Config) Validate() error {
	var errs errsx.Map
	for _, raw := range c.AllowedTypes {
		if _, err := typereg.ParseTag(raw); err != nil {
			errs.Set(fmt.Sprintf("allowed type '%s'", raw), err)
		}
	}
	for _, module := range c.AllowedModules {
		if module == "" {
			errs.Set("allowed modules", fmt.Errorf("empty module name"))
		}
	}
	if err := errs.AsError(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	return nil
}

// allowsTag applies the configuration-level allow-list on top of registry
// membership. Registry membership is checked separately; this filter only
// narrows it further.
func (c Config) allowsTag(tag typereg.Tag) bool {
	if len(c.AllowedTypes) == 0 && len(c.AllowedModules) == 0 {
		return true
	}
	canonical := tag.String()
	for _, raw := range c.AllowedTypes {
		if parsed, err := typereg.ParseTag(raw); err == nil && parsed.String() == canonical {
			return true
		}
	}
	for _, module := range c.AllowedModules {
		if module == tag.Module {
			return true
		}
	}
	return false
}
