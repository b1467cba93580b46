package compiler

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
)

type message struct {
	Type    string                `json:"type"`
	RunID   int64                 `json:"runId"`
	Results []types.GradingResult `json:"results"`
}

// realm loads program into a fresh runtime with a recording channel
func realm(t *testing.T, program string) (*goja.Runtime, *[]string) {
	t.Helper()
	vm := goja.New()
	posted := []string{}
	channel := vm.NewObject()
	require.NoError(t, channel.Set("postMessage", func(data string) {
		posted = append(posted, data)
	}))
	require.NoError(t, vm.Set(ChannelBinding, channel))

	_, err := vm.RunString(program)
	require.NoError(t, err)
	return vm, &posted
}

func trigger(t *testing.T, vm *goja.Runtime, runID int64) {
	t.Helper()
	run, ok := goja.AssertFunction(vm.Get(TriggerBinding))
	require.True(t, ok, "trigger binding missing")
	_, err := run(goja.Undefined(), vm.ToValue(runID))
	require.NoError(t, err)
}

func decode(t *testing.T, data string) message {
	t.Helper()
	var msg message
	require.NoError(t, sonic.UnmarshalString(data, &msg))
	return msg
}

func assertions(sources ...string) []types.Assertion {
	out := make([]types.Assertion, len(sources))
	for i, src := range sources {
		out[i] = types.Assertion{Index: i, Name: "assertion " + string(rune('a'+i)), PredicateSource: src}
	}
	return out
}

func TestCompileDeterministic(t *testing.T) {
	list := assertions("true", "false")
	assert.Equal(t, Compile(list), Compile(list))

	reordered := []types.Assertion{list[1], list[0]}
	assert.NotEqual(t, Compile(list), Compile(reordered))
}

func TestThrowingPredicateFailsAlone(t *testing.T) {
	vm, posted := realm(t, Compile(assertions(
		`(() => { throw new Error("boom") })()`,
		`true`,
	)))
	trigger(t, vm, 42)

	require.Len(t, *posted, 1)
	msg := decode(t, (*posted)[0])
	assert.Equal(t, MessageType, msg.Type)
	assert.EqualValues(t, 42, msg.RunID)
	require.Len(t, msg.Results, 2)

	assert.Equal(t, 0, msg.Results[0].AssertionIndex)
	assert.False(t, msg.Results[0].Pass)
	assert.Equal(t, "boom", msg.Results[0].Error)

	assert.Equal(t, 1, msg.Results[1].AssertionIndex)
	assert.True(t, msg.Results[1].Pass)
	assert.Empty(t, msg.Results[1].Error)
}

func TestEveryEntryYieldsOneResult(t *testing.T) {
	vm, posted := realm(t, Compile(assertions(
		`true`,
		`1`,
		`undefined.x`,
		`this is not javascript (`,
		`() => true`,
		`typeof document === "undefined" // trailing comment`,
		`false`,
	)))
	trigger(t, vm, 1)

	msg := decode(t, (*posted)[0])
	require.Len(t, msg.Results, 7)
	for i, r := range msg.Results {
		assert.Equal(t, i, r.AssertionIndex)
	}

	assert.True(t, msg.Results[0].Pass)
	assert.False(t, msg.Results[1].Pass, "only a boolean true passes")
	assert.Empty(t, msg.Results[1].Error)
	assert.NotEmpty(t, msg.Results[2].Error)
	assert.NotEmpty(t, msg.Results[3].Error, "syntax error is isolated to its entry")
	assert.False(t, msg.Results[4].Pass, "a function value is not true")
	assert.True(t, msg.Results[5].Pass, msg.Results[5].Error)
	assert.False(t, msg.Results[6].Pass)
}

func TestPredicatesSeeLiveState(t *testing.T) {
	vm, posted := realm(t, Compile(assertions(`globalThis.ready === true`)))

	trigger(t, vm, 1)
	_, err := vm.RunString(`globalThis.ready = true`)
	require.NoError(t, err)
	trigger(t, vm, 2)

	require.Len(t, *posted, 2)
	assert.False(t, decode(t, (*posted)[0]).Results[0].Pass)
	assert.True(t, decode(t, (*posted)[1]).Results[0].Pass)
}

func TestPromiseResultsAreNotAwaited(t *testing.T) {
	vm, posted := realm(t, Compile(assertions(
		`new Promise(function () {})`,
		`Promise.resolve(true)`,
		`true`,
	)))
	trigger(t, vm, 3)

	require.Len(t, *posted, 1, "report is posted without waiting on promises")
	msg := decode(t, (*posted)[0])
	require.Len(t, msg.Results, 3)
	for _, r := range msg.Results[:2] {
		assert.False(t, r.Pass)
		assert.Equal(t, "predicate returned a promise", r.Error)
	}
	assert.True(t, msg.Results[2].Pass)
}

func TestEmptyAssertionList(t *testing.T) {
	vm, posted := realm(t, Compile(nil))
	trigger(t, vm, 5)

	msg := decode(t, (*posted)[0])
	assert.EqualValues(t, 5, msg.RunID)
	assert.Empty(t, msg.Results)
}

func TestBindingsAreLocked(t *testing.T) {
	vm, _ := realm(t, Compile(assertions(`true`)))

	v, err := vm.RunString(`
		__assessmentRegistry__ = [];
		__runAssessment__ = null;
		Object.isFrozen(__assessmentRegistry__) &&
			Object.isFrozen(__assessmentRegistry__[0]) &&
			typeof __runAssessment__ === "function" &&
			__assessmentRegistry__.length === 1
	`)
	require.NoError(t, err)
	assert.True(t, v.ToBoolean())

	_, err = vm.RunString(`"use strict"; __runAssessment__ = null;`)
	assert.Error(t, err)
}

func TestOnlyTwoGlobalsInstalled(t *testing.T) {
	vm := goja.New()
	channel := vm.NewObject()
	require.NoError(t, channel.Set("postMessage", func(string) {}))
	require.NoError(t, vm.Set(ChannelBinding, channel))

	before, err := vm.RunString(`Object.getOwnPropertyNames(this).length`)
	require.NoError(t, err)
	_, err = vm.RunString(Compile(assertions(`true`)))
	require.NoError(t, err)
	after, err := vm.RunString(`Object.getOwnPropertyNames(this).length`)
	require.NoError(t, err)

	// two bindings installed, the channel removed
	assert.Equal(t, before.ToInteger()+1, after.ToInteger())

	v, err := vm.RunString(`typeof ` + ChannelBinding)
	require.NoError(t, err)
	assert.Equal(t, "undefined", v.String())
}

func TestPredicateSourceEmbeddedVerbatim(t *testing.T) {
	src := "\"quote\" + 'single' + `tick` + '</script>' + ' ' === \"quote\" + \"single\" + \"tick\" + \"</script>\" + \" \""
	vm, posted := realm(t, Compile(assertions(src)))
	trigger(t, vm, 9)

	msg := decode(t, (*posted)[0])
	require.Len(t, msg.Results, 1)
	assert.True(t, msg.Results[0].Pass, msg.Results[0].Error)

	v, err := vm.RunString(`__assessmentRegistry__[0].name`)
	require.NoError(t, err)
	assert.Equal(t, "assertion a", v.String())
}

func TestMissingChannelFailsLoad(t *testing.T) {
	vm := goja.New()
	_, err := vm.RunString(Compile(assertions(`true`)))
	assert.Error(t, err)
}

func TestCache(t *testing.T) {
	c := NewCache(4)
	list := assertions("true")

	p1, k1 := c.Program(list)
	p2, k2 := c.Program(list)
	assert.Equal(t, p1, p2)
	assert.Equal(t, k1, k2)
	assert.Equal(t, Compile(list), p1)

	stats := c.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)

	for i := 0; i < 10; i++ {
		c.Program(assertions("true", "1 === "+string(rune('0'+i))))
	}
	assert.LessOrEqual(t, c.Len(), 4)
}
