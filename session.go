package refx

import (
	"reflect"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is the state of one outermost call: the active configuration and
// the reference table shared by the call and everything it recursively
// triggers. Sessions are created by the facade, threaded explicitly through
// every conversion, and discarded when the outermost call returns. A Session
// must never be shared across goroutines.
//
// Custom converters and graph hooks receive the active *Session and recurse
// through it, so a nested conversion started from a hook reuses the enclosing
// call's reference table and configuration rather than getting an isolated
// one.
type Session struct {
	engine *Engine
	cfg    Config
	log    *zap.Logger

	// dynamicRoot permits the root object itself to carry a type tag even
	// when the expected type would not normally allow it. Enabled only for
	// the duration of an UnmarshalDynamic call; resolution stays gated by
	// the allow-list.
	dynamicRoot bool

	// Write side: instance identity -> allocated identifier.
	writeRefs map[any]string
	nextID    int

	// Read side: declared identifier -> constructed instance.
	readRefs map[string]reflect.Value
}

func (e *Engine) newSession(op string) *Session {
	s := &Session{
		engine:    e,
		cfg:       e.cfg,
		log:       e.log,
		writeRefs: make(map[any]string),
		nextID:    1,
		readRefs:  make(map[string]reflect.Value),
	}
	s.log = s.log.With(zap.String("session_id", uuid.NewString()), zap.String("op", op))
	s.log.Debug("session started")
	return s
}

// allocateID allocates the next reference identifier and registers the
// instance behind ptr under it.
func (s *Session) allocateID(ptr any) string {
	id := strconv.Itoa(s.nextID)
	s.nextID++
	s.writeRefs[ptr] = id
	return id
}

// MarshalNode converts a value to its node representation inside the current
// session. Custom converters use this to recurse while sharing the enclosing
// call's reference table.
func (s *Session) MarshalNode(v any) (*Node, error) {
	if v == nil {
		return NullNode(), nil
	}
	rv := reflect.ValueOf(v)
	return s.writeValue(rv, rv.Type())
}

// UnmarshalNode converts a node into the value pointed to by target inside
// the current session. target must be a non-nil pointer.
func (s *Session) UnmarshalNode(n *Node, target any) error {
	rv := reflect.ValueOf(target)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return NewNilTargetError(target)
	}
	out, err := s.readValue(n, rv.Type().Elem())
	if err != nil {
		return err
	}
	rv.Elem().Set(out)
	return nil
}
