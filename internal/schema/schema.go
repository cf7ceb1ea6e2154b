// Package schema computes member descriptors for concrete struct types.
//
// A descriptor set is built from `refx` struct tags exactly once per type and
// cached for the process lifetime. The type system the schema describes is
// assumed immutable for the process's duration, so entries are never
// invalidated. The cache is safe under concurrent first-use from multiple
// goroutines: builds are idempotent and published through a sync.Map.
package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/hengadev/errsx"
)

const tagName = "refx"

// Reserved interchange keys; member names must not collide with these.
var reservedKeys = map[string]struct{}{
	"$id":   {},
	"$ref":  {},
	"$type": {},
}

var (
	// ErrMissingSetter reports a member explicitly marked for inclusion that
	// has no usable write accessor (an unexported field). This is a
	// configuration defect, not a data defect.
	ErrMissingSetter = errors.New("missing setter for tagged member")

	// ErrInvalidTag reports a malformed or contradictory refx tag.
	ErrInvalidTag = errors.New("invalid refx tag")

	// ErrReservedKey reports a member whose interchange name collides with a
	// reserved key.
	ErrReservedKey = errors.New("member name collides with reserved key")

	// ErrNotStruct reports a schema request for a non-struct type.
	ErrNotStruct = errors.New("schema target is not a struct")
)

// Policy controls whether a member participates in serialization.
type Policy int8

const (
	// PolicyAlways includes the member in both directions. The default for
	// exported, untagged fields.
	PolicyAlways Policy = iota

	// PolicyNever excludes the member entirely (tag "-").
	PolicyNever

	// PolicyExplicit includes the member and records that inclusion was
	// explicitly requested via the "include" tag option. Explicit members
	// must have a usable write accessor.
	PolicyExplicit
)

// Member describes one field of a struct type: its interchange name, declared
// type, position, and inclusion policy.
type Member struct {
	// Name is the interchange key the member is written under and matched
	// against on read.
	Name string

	// FieldName is the Go field name.
	FieldName string

	// Index is the field's position within the struct.
	Index int

	// Type is the member's declared type, used for all nested conversion
	// decisions regardless of the runtime value's concrete type.
	Type reflect.Type

	// Policy is the member's inclusion policy.
	Policy Policy
}

// Included reports whether the member participates in serialization.
func (m Member) Included() bool {
	return m.Policy != PolicyNever
}

// StructSchema is the cached descriptor set for one concrete struct type.
type StructSchema struct {
	Type reflect.Type

	// Members holds one descriptor per field in declaration order, including
	// excluded ones so callers can distinguish "excluded" from "unknown".
	Members []Member
}

// Eligible returns the members that participate in serialization, in
// declaration order.
func (s *StructSchema) Eligible() []Member {
	out := make([]Member, 0, len(s.Members))
	for _, m := range s.Members {
		if m.Included() {
			out = append(out, m)
		}
	}
	return out
}

// Lookup resolves an interchange key against the eligible members using the
// two-phase rule: exact match first, then the first case-insensitive match in
// declaration order.
func (s *StructSchema) Lookup(key string) (Member, bool) {
	for _, m := range s.Members {
		if m.Included() && m.Name == key {
			return m, true
		}
	}
	for _, m := range s.Members {
		if m.Included() && strings.EqualFold(m.Name, key) {
			return m, true
		}
	}
	return Member{}, false
}

// cache maps reflect.Type to *cacheEntry. Failed builds are cached too:
// a defective schema stays defective for the process lifetime.
var cache sync.Map

type cacheEntry struct {
	schema *StructSchema
	err    error
}

// For returns the member descriptors for t, building and caching them on
// first use. t must be a struct type (not a pointer to one).
func For(t reflect.Type) (*StructSchema, error) {
	if entry, ok := cache.Load(t); ok {
		e := entry.(*cacheEntry)
		return e.schema, e.err
	}

	s, err := build(t)
	entry, _ := cache.LoadOrStore(t, &cacheEntry{schema: s, err: err})
	e := entry.(*cacheEntry)
	return e.schema, e.err
}

func build(t reflect.Type) (*StructSchema, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", ErrNotStruct, t)
	}

	var errs errsx.Map
	var primary error
	s := &StructSchema{Type: t}
	seen := make(map[string]string, t.NumField())

	for i := range t.NumField() {
		field := t.Field(i)
		member, err := buildMember(t, field, i)
		if err != nil {
			if primary == nil {
				primary = err
			}
			errs.Set(fmt.Sprintf("field '%s'", field.Name), err)
			continue
		}

		if member.Included() {
			if prev, dup := seen[member.Name]; dup {
				err := fmt.Errorf("%w: interchange name '%s' already used by field '%s'", ErrInvalidTag, member.Name, prev)
				if primary == nil {
					primary = err
				}
				errs.Set(fmt.Sprintf("field '%s'", field.Name), err)
				continue
			}
			seen[member.Name] = field.Name
		}
		s.Members = append(s.Members, member)
	}

	// The first defect stays on the unwrap chain so callers can classify it;
	// the aggregate carries the full per-field report.
	if primary != nil {
		if len(errs) > 1 {
			return nil, fmt.Errorf("%w; all defects: %s", primary, errs.AsError())
		}
		return nil, primary
	}
	return s, nil
}

func buildMember(t reflect.Type, field reflect.StructField, index int) (Member, error) {
	tag, hasTag := field.Tag.Lookup(tagName)

	member := Member{
		Name:      field.Name,
		FieldName: field.Name,
		Index:     index,
		Type:      field.Type,
		Policy:    PolicyAlways,
	}

	if !field.IsExported() {
		if hasTag && tag != "-" {
			// A refx tag on an unexported field declares intent the engine
			// cannot honor: there is no write accessor.
			return Member{}, fmt.Errorf("%w: field '%s' of %s is unexported", ErrMissingSetter, field.Name, t)
		}
		member.Policy = PolicyNever
		return member, nil
	}

	if !hasTag {
		return member, nil
	}

	if tag == "-" {
		member.Policy = PolicyNever
		return member, nil
	}

	name, opts, _ := strings.Cut(tag, ",")
	if name != "" {
		member.Name = name
	}
	for _, opt := range strings.Split(opts, ",") {
		switch strings.TrimSpace(opt) {
		case "":
		case "include":
			member.Policy = PolicyExplicit
		default:
			return Member{}, fmt.Errorf("%w: unsupported option '%s'", ErrInvalidTag, opt)
		}
	}

	if _, reserved := reservedKeys[member.Name]; reserved {
		return Member{}, fmt.Errorf("%w: '%s'", ErrReservedKey, member.Name)
	}
	return member, nil
}
