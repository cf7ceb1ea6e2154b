package refx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type team struct {
	Name    string         `refx:"name"`
	Lead    *profile       `refx:"lead"`
	Members []*profile     `refx:"members"`
	Scores  map[string]int `refx:"scores"`
	Founded time.Time      `refx:"founded"`
	Logo    []byte         `refx:"logo"`
}

func TestRoundTripAcyclicGraph(t *testing.T) {
	engine := newEngine(t, Config{})

	in := &team{
		Name: "core",
		Lead: &profile{Name: "ada", Level: 9},
		Members: []*profile{
			{Name: "grace", Level: 7},
			{Name: "edsger", Level: 8},
		},
		Scores:  map[string]int{"q1": 10, "q2": 20},
		Founded: time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC),
		Logo:    []byte{0xDE, 0xAD},
	}

	data, err := engine.Marshal(in)
	require.NoError(t, err)

	var out *team
	require.NoError(t, engine.Unmarshal(data, &out))
	require.NotNil(t, out)
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.Lead.Name, out.Lead.Name)
	assert.Equal(t, in.Lead.Level, out.Lead.Level)
	require.Len(t, out.Members, 2)
	assert.Equal(t, "grace", out.Members[0].Name)
	assert.Equal(t, "edsger", out.Members[1].Name)
	assert.Equal(t, in.Scores, out.Scores)
	assert.True(t, in.Founded.Equal(out.Founded))
	assert.Equal(t, in.Logo, out.Logo)
}

func TestRoundTripSharedInstance(t *testing.T) {
	engine := newEngine(t, Config{})

	shared := &profile{Name: "ada", Level: 3}
	in := &team{Name: "core", Lead: shared, Members: []*profile{shared}}

	data, err := engine.Marshal(in)
	require.NoError(t, err)

	var out *team
	require.NoError(t, engine.Unmarshal(data, &out))
	require.Len(t, out.Members, 1)
	assert.Same(t, out.Lead, out.Members[0], "shared identity survives the round trip")
}

func TestRoundTripCycle(t *testing.T) {
	engine := newEngine(t, Config{})

	a := &linked{Name: "ada"}
	b := &linked{Name: "grace"}
	a.Next = b
	b.Next = a

	data, err := engine.Marshal(a)
	require.NoError(t, err)

	var out *linked
	require.NoError(t, engine.Unmarshal(data, &out))
	require.NotNil(t, out)
	require.NotNil(t, out.Next)
	assert.Equal(t, "ada", out.Name)
	assert.Equal(t, "grace", out.Next.Name)
	assert.Same(t, out, out.Next.Next)
}

func TestRoundTripDynamicSlot(t *testing.T) {
	engine := newEngine(t, Config{})
	engine.Registry().MustRegisterType(&circle{}, "Circle, shapes")
	engine.Registry().MustRegisterType(&square{}, "Square, shapes")
	engine.Registry().MustRegisterDynamicBase((*shape)(nil))

	for _, in := range []shape{&circle{Radius: 2}, &square{Side: 3}} {
		data, err := engine.Marshal(&canvas{Main: in})
		require.NoError(t, err)

		var out canvas
		require.NoError(t, engine.Unmarshal(data, &out))
		require.NotNil(t, out.Main)
		assert.IsType(t, in, out.Main)
		assert.InDelta(t, in.Area(), out.Main.Area(), 1e-9)
	}
}

func TestRoundTripOutputIsStable(t *testing.T) {
	engine := newEngine(t, Config{})

	in := &team{
		Name:   "core",
		Lead:   &profile{Name: "esther", Level: 9},
		Scores: map[string]int{"z": 1, "a": 2, "m": 3},
	}

	first, err := engine.Marshal(in)
	require.NoError(t, err)
	second, err := engine.Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second), "repeated marshals of one graph are byte-identical")
}

func TestRoundTripConcurrentSessions(t *testing.T) {
	engine := newEngine(t, Config{})

	a := &linked{Name: "ada"}
	a.Next = a

	done := make(chan error, 16)
	for range 16 {
		go func() {
			data, err := engine.Marshal(a)
			if err != nil {
				done <- err
				return
			}
			var out *linked
			if err := engine.Unmarshal(data, &out); err != nil {
				done <- err
				return
			}
			if out.Next != out {
				done <- assert.AnError
				return
			}
			done <- nil
		}()
	}
	for range 16 {
		require.NoError(t, <-done, "sessions are isolated per call")
	}
}
