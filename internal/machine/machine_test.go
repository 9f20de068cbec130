package machine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type counter struct {
	Fired int
	Armed bool
}

type tick struct{}

func (tick) Kind() Kind { return "TICK" }

type arm struct{ On bool }

func (arm) Kind() Kind { return "ARM" }

type reset struct{}

func (reset) Kind() Kind { return "RESET" }

func newTestMachine() *Machine[counter] {
	table := Table[counter]{
		"off": {
			"ARM": {
				Target: "on",
				Action: func(c *counter, ev Event) { c.Armed = ev.(arm).On },
			},
		},
		"on": {
			"TICK": {
				Guard:  func(c *counter, _ Event) bool { return c.Armed },
				Action: func(c *counter, _ Event) { c.Fired++ },
			},
		},
	}
	m := New("off", table)
	m.Global("RESET", Transition[counter]{
		Target: "off",
		Action: func(c *counter, _ Event) { *c = counter{} },
	})
	return m
}

func TestSend_UnknownEventIgnored(t *testing.T) {
	m := newTestMachine()

	assert.False(t, m.Send(tick{}))
	assert.Equal(t, State("off"), m.State())
	assert.Equal(t, 0, m.Context().Fired)
}

func TestSend_GuardBlocks(t *testing.T) {
	m := newTestMachine()

	assert.True(t, m.Send(arm{On: false}))
	assert.Equal(t, State("on"), m.State())

	// Guard is false: event ignored, state and context unchanged.
	assert.False(t, m.Send(tick{}))
	assert.Equal(t, State("on"), m.State())
	assert.Equal(t, 0, m.Context().Fired)
}

func TestSend_SelfTransitionKeepsState(t *testing.T) {
	m := newTestMachine()
	m.Send(arm{On: true})

	assert.True(t, m.Send(tick{}))
	assert.True(t, m.Send(tick{}))
	assert.Equal(t, State("on"), m.State())
	assert.Equal(t, 2, m.Context().Fired)
}

func TestGlobal_FiresFromEveryState(t *testing.T) {
	m := newTestMachine()
	m.Send(arm{On: true})
	m.Send(tick{})

	assert.True(t, m.Send(reset{}))
	assert.Equal(t, State("off"), m.State())
	assert.Equal(t, counter{}, m.Context())

	// RESET is idempotent from the initial state too.
	assert.True(t, m.Send(reset{}))
	assert.Equal(t, State("off"), m.State())
}

func TestRestore_ResumesStateAndContext(t *testing.T) {
	table := Table[counter]{
		"on": {
			"TICK": {
				Guard:  func(c *counter, _ Event) bool { return c.Armed },
				Action: func(c *counter, _ Event) { c.Fired++ },
			},
		},
	}
	m := Restore("on", counter{Fired: 3, Armed: true}, table)

	assert.Equal(t, State("on"), m.State())
	assert.Equal(t, 3, m.Context().Fired)

	assert.True(t, m.Send(tick{}))
	assert.Equal(t, 4, m.Context().Fired)
}

func TestPick_OverridesTarget(t *testing.T) {
	table := Table[counter]{
		"off": {
			"ARM": {
				Target: "never",
				Pick: func(c *counter, _ Event) State {
					if c.Fired > 0 {
						return "on"
					}
					return "off"
				},
			},
		},
	}
	m := New("off", table)

	assert.True(t, m.Send(arm{}))
	assert.Equal(t, State("off"), m.State())
}
