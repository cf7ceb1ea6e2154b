package refx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalScalars(t *testing.T) {
	engine := newEngine(t, Config{})

	var b bool
	require.NoError(t, engine.Unmarshal([]byte(`true`), &b))
	assert.True(t, b)

	var i int
	require.NoError(t, engine.Unmarshal([]byte(`42`), &i))
	assert.Equal(t, 42, i)

	var f float64
	require.NoError(t, engine.Unmarshal([]byte(`2.5`), &f))
	assert.Equal(t, 2.5, f)

	var s string
	require.NoError(t, engine.Unmarshal([]byte(`"ada"`), &s))
	assert.Equal(t, "ada", s)

	var ints []int
	require.NoError(t, engine.Unmarshal([]byte(`[1,2,3]`), &ints))
	assert.Equal(t, []int{1, 2, 3}, ints)

	var m map[string]int
	require.NoError(t, engine.Unmarshal([]byte(`{"a":1,"b":2}`), &m))
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, m)
}

func TestUnmarshalNullYieldsZero(t *testing.T) {
	engine := newEngine(t, Config{})

	i := 42
	require.NoError(t, engine.Unmarshal([]byte(`null`), &i))
	assert.Zero(t, i)

	p := &profile{Name: "ada"}
	require.NoError(t, engine.Unmarshal([]byte(`null`), &p))
	assert.Nil(t, p)
}

func TestUnmarshalNilTarget(t *testing.T) {
	engine := newEngine(t, Config{})

	assert.ErrorIs(t, engine.Unmarshal([]byte(`1`), nil), ErrNilTarget)

	var p *profile
	assert.ErrorIs(t, engine.Unmarshal([]byte(`1`), p), ErrNilTarget)

	var i int
	assert.ErrorIs(t, engine.Unmarshal([]byte(`1`), i), ErrNilTarget)
}

func TestUnmarshalMalformedInput(t *testing.T) {
	engine := newEngine(t, Config{})

	var p profile
	err := engine.Unmarshal([]byte(`{"name":`), &p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestUnmarshalScalarKindMismatch(t *testing.T) {
	engine := newEngine(t, Config{})

	var i int
	err := engine.Unmarshal([]byte(`"ada"`), &i)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTypeConversion)

	var s string
	err = engine.Unmarshal([]byte(`42`), &s)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTypeConversion)
}

func TestUnmarshalIntOverflow(t *testing.T) {
	engine := newEngine(t, Config{})

	var small int8
	err := engine.Unmarshal([]byte(`4096`), &small)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTypeConversion)
}

func TestUnmarshalStruct(t *testing.T) {
	engine := newEngine(t, Config{})

	var p profile
	require.NoError(t, engine.Unmarshal([]byte(`{"name":"ada","level":3}`), &p))
	assert.Equal(t, "ada", p.Name)
	assert.Equal(t, 3, p.Level)
}

func TestUnmarshalCaseInsensitiveFallback(t *testing.T) {
	engine := newEngine(t, Config{})

	var p profile
	require.NoError(t, engine.Unmarshal([]byte(`{"NAME":"ada","Level":3}`), &p))
	assert.Equal(t, "ada", p.Name)
	assert.Equal(t, 3, p.Level)
}

func TestUnmarshalUnknownKeysIgnoredByDefault(t *testing.T) {
	engine := newEngine(t, Config{})

	var p profile
	require.NoError(t, engine.Unmarshal([]byte(`{"name":"ada","unknown":true,"other":[1,2]}`), &p))
	assert.Equal(t, "ada", p.Name)
}

func TestUnmarshalDisallowUnknownKeys(t *testing.T) {
	engine := newEngine(t, Config{DisallowUnknownKeys: true})

	var p profile
	err := engine.Unmarshal([]byte(`{"name":"ada","unknown":true}`), &p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownKey)
	assert.Contains(t, err.Error(), "unknown")
}

func TestUnmarshalExcludedMemberIsUnknown(t *testing.T) {
	engine := newEngine(t, Config{DisallowUnknownKeys: true})

	var p profile
	err := engine.Unmarshal([]byte(`{"name":"ada","Email":"x"}`), &p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestUnmarshalFailureLeavesTargetUntouched(t *testing.T) {
	engine := newEngine(t, Config{})

	p := profile{Name: "before", Level: 1}
	err := engine.Unmarshal([]byte(`{"name":"after","level":"not a number"}`), &p)
	require.Error(t, err)
	assert.Equal(t, "before", p.Name, "target is written only after full success")
	assert.Equal(t, 1, p.Level)
}

func TestUnmarshalSharedReference(t *testing.T) {
	engine := newEngine(t, Config{})

	var h holder
	data := `{"left":{"$id":"1","name":"ada","level":2},"right":{"$ref":"1"}}`
	require.NoError(t, engine.Unmarshal([]byte(data), &h))
	require.NotNil(t, h.Left)
	assert.Same(t, h.Left, h.Right, "both slots resolve to one instance")
	assert.Equal(t, "ada", h.Left.Name)
}

func TestUnmarshalCycleIdentity(t *testing.T) {
	engine := newEngine(t, Config{})

	var a *linked
	data := `{"$id":"1","name":"ada","next":{"$id":"2","name":"grace","next":{"$ref":"1"}}}`
	require.NoError(t, engine.Unmarshal([]byte(data), &a))
	require.NotNil(t, a)
	require.NotNil(t, a.Next)
	assert.Equal(t, "ada", a.Name)
	assert.Equal(t, "grace", a.Next.Name)
	assert.Same(t, a, a.Next.Next, "the cycle closes on the original instance")
}

func TestUnmarshalSelfCycle(t *testing.T) {
	engine := newEngine(t, Config{})

	var a *linked
	require.NoError(t, engine.Unmarshal([]byte(`{"$id":"1","name":"ada","next":{"$ref":"1"}}`), &a))
	require.NotNil(t, a)
	assert.Same(t, a, a.Next)
}

func TestUnmarshalDanglingReference(t *testing.T) {
	engine := newEngine(t, Config{})

	var h holder
	err := engine.Unmarshal([]byte(`{"left":{"$ref":"99"}}`), &h)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDanglingReference)
	assert.Contains(t, err.Error(), "99")
}

func TestUnmarshalReferencesAreCallScoped(t *testing.T) {
	engine := newEngine(t, Config{})

	var h holder
	require.NoError(t, engine.Unmarshal([]byte(`{"left":{"$id":"1","name":"ada"}}`), &h))

	// The identifier from the previous call must not leak into this one.
	var h2 holder
	err := engine.Unmarshal([]byte(`{"right":{"$ref":"1"}}`), &h2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDanglingReference)
}

func TestUnmarshalConstructor(t *testing.T) {
	engine := newEngine(t, Config{})
	engine.Registry().MustRegisterConstructor(func(name string) *profile {
		return &profile{Name: strings.ToUpper(name), Level: 10}
	}, "name")

	var p *profile
	require.NoError(t, engine.Unmarshal([]byte(`{"name":"ada"}`), &p))
	assert.Equal(t, "ADA", p.Name, "constructor output survives; the key it consumed is not re-filled")
	assert.Equal(t, 10, p.Level)
}

func TestUnmarshalConstructorLeavesOtherMembersToFill(t *testing.T) {
	engine := newEngine(t, Config{})
	engine.Registry().MustRegisterConstructor(func(name string) *profile {
		return &profile{Name: name}
	}, "name")

	var p *profile
	require.NoError(t, engine.Unmarshal([]byte(`{"name":"ada","level":5}`), &p))
	assert.Equal(t, "ada", p.Name)
	assert.Equal(t, 5, p.Level, "keys not consumed by the constructor fill members normally")
}

func TestUnmarshalConstructorMostParametersWins(t *testing.T) {
	// Registration order must not matter when one candidate strictly
	// dominates: the matching constructor with the most parameters wins.
	for _, reversed := range []bool{false, true} {
		engine := newEngine(t, Config{})
		one := func(name string) *profile { return &profile{Name: name, Level: 1} }
		two := func(name string, level int) *profile { return &profile{Name: name, Level: level + 100} }
		if reversed {
			engine.Registry().MustRegisterConstructor(two, "name", "level")
			engine.Registry().MustRegisterConstructor(one, "name")
		} else {
			engine.Registry().MustRegisterConstructor(one, "name")
			engine.Registry().MustRegisterConstructor(two, "name", "level")
		}

		var p *profile
		require.NoError(t, engine.Unmarshal([]byte(`{"name":"ada","level":3}`), &p))
		assert.Equal(t, 103, p.Level)
	}
}

func TestUnmarshalConstructorTieBreaksByRegistrationOrder(t *testing.T) {
	engine := newEngine(t, Config{})
	engine.Registry().MustRegisterConstructor(func(name string) *profile {
		return &profile{Name: name, Level: 1}
	}, "name")
	engine.Registry().MustRegisterConstructor(func(level int) *profile {
		return &profile{Level: level + 100}
	}, "level")

	var p *profile
	require.NoError(t, engine.Unmarshal([]byte(`{"name":"ada","level":3}`), &p))
	assert.Equal(t, 1, p.Level, "equal parameter counts fall back to the first registered")
}

func TestUnmarshalConstructorPartialMatchSkipped(t *testing.T) {
	engine := newEngine(t, Config{})
	engine.Registry().MustRegisterConstructor(func(name, nick string) *profile {
		return &profile{Name: name + "/" + nick}
	}, "name", "nick")

	// "nick" is absent, so the constructor does not match and zero-value
	// construction backs the fill.
	var p *profile
	require.NoError(t, engine.Unmarshal([]byte(`{"name":"ada"}`), &p))
	assert.Equal(t, "ada", p.Name)
}

func TestUnmarshalRequireConstructor(t *testing.T) {
	engine := newEngine(t, Config{})
	engine.Registry().MustRegisterConstructor(func(name string) *profile {
		return &profile{Name: name}
	}, "name")
	require.NoError(t, engine.Registry().RequireConstructor(&profile{}))

	var p *profile
	require.NoError(t, engine.Unmarshal([]byte(`{"name":"ada"}`), &p))
	assert.Equal(t, "ada", p.Name)

	err := engine.Unmarshal([]byte(`{"level":3}`), &p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSuitableConstructor)
}

func TestUnmarshalDynamicSlot(t *testing.T) {
	engine := newEngine(t, Config{})
	engine.Registry().MustRegisterType(&circle{}, "Circle, shapes")
	engine.Registry().MustRegisterDynamicBase((*shape)(nil))

	var c canvas
	require.NoError(t, engine.Unmarshal([]byte(`{"main":{"$type":"Circle, shapes","radius":2}}`), &c))
	got, ok := c.Main.(*circle)
	require.True(t, ok)
	assert.Equal(t, 2.0, got.Radius)
}

func TestUnmarshalDisallowedTypeTag(t *testing.T) {
	engine := newEngine(t, Config{})
	engine.Registry().MustRegisterDynamicBase((*shape)(nil))

	var c canvas
	err := engine.Unmarshal([]byte(`{"main":{"$type":"Circle, shapes","radius":2}}`), &c)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDisallowedDynamicType)
	assert.True(t, IsSecurityError(err))
}

func TestUnmarshalTypeTagOutsideConfiguredAllowList(t *testing.T) {
	engine := newEngine(t, Config{AllowedModules: []string{"other"}})
	engine.Registry().MustRegisterType(&circle{}, "Circle, shapes")
	engine.Registry().MustRegisterDynamicBase((*shape)(nil))

	// Registered, but the configuration narrows the allow-list further.
	var c canvas
	err := engine.Unmarshal([]byte(`{"main":{"$type":"Circle, shapes","radius":2}}`), &c)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDisallowedDynamicType)
}

func TestUnmarshalTypeTagNotImplementingBase(t *testing.T) {
	engine := newEngine(t, Config{})
	engine.Registry().MustRegisterType(&profile{}, "Profile, app")
	engine.Registry().MustRegisterDynamicBase((*shape)(nil))

	var c canvas
	err := engine.Unmarshal([]byte(`{"main":{"$type":"Profile, app","name":"ada"}}`), &c)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTypeConversion)
}

func TestUnmarshalTagIgnoredWithoutDynamicBase(t *testing.T) {
	engine := newEngine(t, Config{})
	engine.Registry().MustRegisterType(&circle{}, "Circle, shapes")

	// shape was never opened for dynamic resolution, so the tag is ignored
	// and the slot deserializes to absence.
	var c canvas
	require.NoError(t, engine.Unmarshal([]byte(`{"main":{"$type":"Circle, shapes","radius":2}}`), &c))
	assert.Nil(t, c.Main)
}

func TestUnmarshalTagIgnoredWhenDynamicTypingDisabled(t *testing.T) {
	engine := newEngine(t, Config{DisableDynamicTyping: true})
	engine.Registry().MustRegisterType(&circle{}, "Circle, shapes")
	engine.Registry().MustRegisterDynamicBase((*shape)(nil))

	var c canvas
	require.NoError(t, engine.Unmarshal([]byte(`{"main":{"$type":"Circle, shapes","radius":2}}`), &c))
	assert.Nil(t, c.Main)
}

func TestUnmarshalIntoAny(t *testing.T) {
	engine := newEngine(t, Config{})

	var v any
	require.NoError(t, engine.Unmarshal([]byte(`{"name":"ada","scores":[1,2.5],"ok":true}`), &v))
	assert.Equal(t, map[string]any{
		"name":   "ada",
		"scores": []any{1.0, 2.5},
		"ok":     true,
	}, v)
}

func TestUnmarshalDynamicRoot(t *testing.T) {
	engine := newEngine(t, Config{})
	engine.Registry().MustRegisterType(&circle{}, "Circle, shapes")

	out, err := engine.UnmarshalDynamic([]byte(`{"$type":"Circle, shapes","radius":2}`))
	require.NoError(t, err)
	got, ok := out.(*circle)
	require.True(t, ok)
	assert.Equal(t, 2.0, got.Radius)
}

func TestUnmarshalDynamicRootEscapeHatchIsRootOnly(t *testing.T) {
	engine := newEngine(t, Config{})
	engine.Registry().MustRegisterType(&circle{}, "Circle, shapes")

	// A nested untyped slot does not get the root's tag-honoring privilege:
	// the nested tag stays a literal key in the generic decoding.
	out, err := engine.UnmarshalDynamic([]byte(`[{"$type":"Circle, shapes","radius":2}]`))
	require.NoError(t, err)
	items, ok := out.([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	nested, ok := items[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Circle, shapes", nested[KeyType])
}

func TestUnmarshalDynamicScalarRoots(t *testing.T) {
	engine := newEngine(t, Config{})

	out, err := engine.UnmarshalDynamic([]byte(`42`))
	require.NoError(t, err)
	assert.Equal(t, 42.0, out)

	out, err = engine.UnmarshalDynamic([]byte(`"ada"`))
	require.NoError(t, err)
	assert.Equal(t, "ada", out)

	out, err = engine.UnmarshalDynamic([]byte(`null`))
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestUnmarshalDynamicObjectRootRequiresTag(t *testing.T) {
	engine := newEngine(t, Config{})

	_, err := engine.UnmarshalDynamic([]byte(`{"name":"ada"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestUnmarshalDynamicDisallowedTag(t *testing.T) {
	engine := newEngine(t, Config{})

	_, err := engine.UnmarshalDynamic([]byte(`{"$type":"Circle, shapes","radius":2}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDisallowedDynamicType)
}
