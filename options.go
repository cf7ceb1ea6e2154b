package refx

import (
	"fmt"

	"go.uber.org/zap"
)

// Option configures an Engine during construction.
type Option func(e *Engine) error

// WithLogger attaches a structured logger. The engine logs session lifecycle
// at debug level and security rejections at warn level. The default is a
// no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) error {
		if log == nil {
			return fmt.Errorf("%w: logger is nil", ErrInvalidConfiguration)
		}
		e.log = log
		return nil
	}
}

// WithConverter prepends a specialized converter to the engine's converter
// list. Converters registered first win; the generic graph algorithm remains
// the fallback for anything left unclaimed.
func WithConverter(c Converter) Option {
	return func(e *Engine) error {
		if c == nil {
			return fmt.Errorf("%w: converter is nil", ErrInvalidConfiguration)
		}
		e.userConverters = append(e.userConverters, c)
		return nil
	}
}

// WithGraphHook registers a hook extending the generic graph algorithm for
// the struct types it applies to. The first applicable hook wins.
func WithGraphHook(h GraphHook) Option {
	return func(e *Engine) error {
		if h == nil {
			return fmt.Errorf("%w: graph hook is nil", ErrInvalidConfiguration)
		}
		e.hooks = append(e.hooks, h)
		return nil
	}
}

// WithRegistry shares a pre-populated type registry instead of starting from
// an empty one. Useful when several engines with different configurations
// serve the same set of registered types.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) error {
		if r == nil {
			return fmt.Errorf("%w: registry is nil", ErrInvalidConfiguration)
		}
		e.registry = r
		return nil
	}
}
