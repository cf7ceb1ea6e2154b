package refx

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// Engine is the public entry point: it owns the configuration, the type
// registry, and the ordered converter list, and hands out isolated sessions
// to top-level calls.
//
// An Engine is immutable after New returns (apart from registrations on its
// Registry) and safe for concurrent use from multiple goroutines. Every
// top-level Marshal/Unmarshal call gets its own session and reference table;
// nothing mutable is shared between concurrent calls except the process-wide
// member descriptor cache, which is race-safe.
type Engine struct {
	cfg      Config
	log      *zap.Logger
	registry *Registry

	userConverters []Converter
	converters     []Converter
	hooks          []GraphHook
}

// New creates an Engine from the given configuration.
//
// Example:
//
//	engine, err := refx.New(refx.Config{}, refx.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	engine.Registry().MustRegisterType(&Player{}, "Player, game")
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		log:      zap.NewNop(),
		registry: NewRegistry(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("failed to apply engine option: %w", err)
		}
	}

	// User converters first, built-ins after: first claim wins.
	e.converters = append(e.converters, e.userConverters...)
	e.converters = append(e.converters, defaultConverters()...)
	return e, nil
}

// Registry returns the engine's type registry for registration calls.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Config returns a copy of the engine's configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// converterFor returns the first converter claiming t, or nil.
func (e *Engine) converterFor(t reflect.Type) Converter {
	for _, c := range e.converters {
		if c.CanConvert(t) {
			return c
		}
	}
	return nil
}

// hookFor returns the first graph hook applying to t, or nil.
func (e *Engine) hookFor(t reflect.Type) GraphHook {
	for _, h := range e.hooks {
		if h.Applies(t) {
			return h
		}
	}
	return nil
}
