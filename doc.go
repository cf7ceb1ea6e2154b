// Package refx provides reference-preserving object-graph serialization for Go applications.
//
// REFX converts arbitrary object graphs to and from a JSON-compatible
// interchange format while keeping object identity intact: shared instances
// are written once and referenced afterwards, so self- and mutually-
// referential structures round-trip without infinite recursion and without
// silently turning one instance into many copies. Polymorphic fields are
// reconstructed through an explicit type registry that doubles as a security
// allow-list, and struct tags decide which fields participate.
//
// # Key Features
//
//   - Identity-preserving serialization with $id/$ref markers for cyclic and shared structures
//   - Polymorphic deserialization via $type tags, gated by an explicit allow-list registry
//   - Constructor selection by parameter-name matching for types with construction invariants
//   - Tag-driven member inclusion rules with a cached, race-safe per-type schema
//   - Pluggable specialized converters and graph hooks layered over the generic algorithm
//   - Structured logging via zap and configuration from environment, .env, or YAML
//
// # Quick Start
//
// Define your structs with refx tags:
//
//	type Player struct {
//	    Name   string  `refx:"name"`
//	    Friend *Player `refx:"friend"`
//	    secret string  // unexported: never serialized
//	}
//
// Create an engine and round-trip a cyclic graph:
//
//	engine, err := refx.New(refx.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	a := &Player{Name: "ada"}
//	b := &Player{Name: "grace", Friend: a}
//	a.Friend = b
//
//	data, err := engine.Marshal(a)
//	// {"$id":"1","name":"ada","friend":{"$id":"2","name":"grace","friend":{"$ref":"1"}}}
//
//	var out *Player
//	err = engine.Unmarshal(data, &out)
//	// out.Friend.Friend == out
//
// # Polymorphic Fields
//
// Open an interface for dynamic resolution and register concrete types on
// the allow-list:
//
//	reg := engine.Registry()
//	reg.MustRegisterDynamicBase((*Shape)(nil))
//	reg.MustRegisterType(&Circle{}, "Circle, geometry")
//	reg.MustRegisterType(&Square{}, "Square, geometry")
//
// A $type tag naming anything not registered fails with
// ErrDisallowedDynamicType; that check is the system's defense against
// constructing attacker-chosen types from untrusted input, and it is never
// skipped or cached.
//
// # Struct Tags
//
//   - refx:"name" - rename the member's interchange key
//   - refx:"-" - exclude the member entirely
//   - refx:",include" - mark the member explicitly for inclusion; such
//     members must be writable or the type's first use fails with
//     ErrMissingSetter
//
// # Constructors
//
// Types whose invariants live in a constructor can register it:
//
//	reg.MustRegisterConstructor(NewAccount, "owner", "balance")
//	reg.RequireConstructor(&Account{})
//
// During deserialization the constructor whose parameters all resolve to
// present keys and which has the most parameters wins.
package refx
