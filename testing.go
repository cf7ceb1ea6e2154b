package refx

// This file provides test utilities for use in examples and external test
// suites.

// TestingT is the subset of *testing.T used by the test helpers.
type TestingT interface {
	Helper()
	Fatalf(format string, args ...any)
}

// NewTestEngine creates an Engine wired for tests: default configuration and
// a fresh registry. Options are applied as in New, so tests can attach a
// logger or converters.
func NewTestEngine(t TestingT, opts ...Option) *Engine {
	t.Helper()

	engine, err := New(Config{}, opts...)
	if err != nil {
		t.Fatalf("failed to create test engine: %v", err)
	}
	return engine
}

// NewTestEngineWithConfig is NewTestEngine with an explicit configuration,
// for tests exercising strict modes or restricted allow-lists.
func NewTestEngineWithConfig(t TestingT, cfg Config, opts ...Option) *Engine {
	t.Helper()

	engine, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("failed to create test engine: %v", err)
	}
	return engine
}
