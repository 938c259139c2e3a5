package segment_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagkit/pkg/segment"
)

func mustParse(t *testing.T, expr string) *segment.Node {
	t.Helper()
	node, err := segment.Parse(json.RawMessage(expr))
	require.NoError(t, err)
	return node
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("EmptyMatchesEveryone", func(t *testing.T) {
		t.Parallel()
		for _, raw := range []string{"", "null", "{}"} {
			node, err := segment.Parse(json.RawMessage(raw))
			require.NoError(t, err)
			assert.Nil(t, node)
		}
	})

	t.Run("Combinators", func(t *testing.T) {
		t.Parallel()
		node := mustParse(t, `{"and":[{"custom_variable":{"plan":"pro"}},{"not":{"country":"DE"}}]}`)
		require.NotNil(t, node)
		assert.Equal(t, segment.OpAnd, node.Op)
		require.Len(t, node.Children, 2)
		assert.Equal(t, segment.OpNot, node.Children[1].Op)
	})

	t.Run("NumericOperandValue", func(t *testing.T) {
		t.Parallel()
		node := mustParse(t, `{"custom_variable":{"age":25}}`)
		require.NotNil(t, node.Leaf)
		assert.Equal(t, "25", node.Leaf.Value)
		assert.Equal(t, "age", node.Leaf.Target)
	})

	t.Run("Malformed", func(t *testing.T) {
		t.Parallel()
		cases := []string{
			`[1,2]`,
			`{"and":[],"or":[]}`,
			`{"and":"not-a-list"}`,
			`{"and":[]}`,
			`{"custom_variable":"not-an-object"}`,
			`{"custom_variable":{"a":"1","b":"2"}}`,
			`{"custom_variable":{"a":["nested"]}}`,
			`{"frobnicate":"x"}`,
		}
		for _, raw := range cases {
			_, err := segment.Parse(json.RawMessage(raw))
			assert.ErrorIs(t, err, segment.ErrMalformedExpression, "input: %s", raw)
		}
	})
}

func TestEvaluate(t *testing.T) {
	t.Parallel()
	eval := segment.NewEvaluator(nil)

	t.Run("NilTreeMatchesEveryone", func(t *testing.T) {
		t.Parallel()
		assert.True(t, eval.Evaluate(nil, nil))
		assert.True(t, eval.Evaluate(nil, &segment.Attributes{UserID: "u"}))
	})

	t.Run("CustomVariable", func(t *testing.T) {
		t.Parallel()
		node := mustParse(t, `{"custom_variable":{"plan":"pro"}}`)
		assert.True(t, eval.Evaluate(node, &segment.Attributes{Custom: map[string]any{"plan": "PRO"}}))
		assert.False(t, eval.Evaluate(node, &segment.Attributes{Custom: map[string]any{"plan": "free"}}))
		// Missing attribute never matches.
		assert.False(t, eval.Evaluate(node, &segment.Attributes{Custom: map[string]any{}}))
		assert.False(t, eval.Evaluate(node, &segment.Attributes{}))
	})

	t.Run("NumericCustomVariable", func(t *testing.T) {
		t.Parallel()
		node := mustParse(t, `{"custom_variable":{"age":"gte(21)"}}`)
		assert.True(t, eval.Evaluate(node, &segment.Attributes{Custom: map[string]any{"age": 25}}))
		assert.True(t, eval.Evaluate(node, &segment.Attributes{Custom: map[string]any{"age": "21"}}))
		assert.False(t, eval.Evaluate(node, &segment.Attributes{Custom: map[string]any{"age": 18.5}}))
	})

	t.Run("UserList", func(t *testing.T) {
		t.Parallel()
		node := mustParse(t, `{"user":"alice, bob ,carol"}`)
		assert.True(t, eval.Evaluate(node, &segment.Attributes{UserID: "bob"}))
		assert.False(t, eval.Evaluate(node, &segment.Attributes{UserID: "dave"}))
		assert.False(t, eval.Evaluate(node, &segment.Attributes{}))
	})

	t.Run("AndShortCircuit", func(t *testing.T) {
		t.Parallel()
		node := mustParse(t, `{"and":[{"custom_variable":{"plan":"pro"}},{"custom_variable":{"beta":"true"}}]}`)
		attrs := &segment.Attributes{Custom: map[string]any{"plan": "pro", "beta": true}}
		assert.True(t, eval.Evaluate(node, attrs))
		attrs.Custom["beta"] = false
		assert.False(t, eval.Evaluate(node, attrs))
	})

	t.Run("Or", func(t *testing.T) {
		t.Parallel()
		node := mustParse(t, `{"or":[{"country":"US"},{"country":"CA"}]}`)
		assert.True(t, eval.Evaluate(node, &segment.Attributes{Location: &segment.Location{Country: "CA"}}))
		assert.False(t, eval.Evaluate(node, &segment.Attributes{Location: &segment.Location{Country: "DE"}}))
		// No resolved location means no geo leaf can match.
		assert.False(t, eval.Evaluate(node, &segment.Attributes{}))
	})

	t.Run("Not", func(t *testing.T) {
		t.Parallel()
		node := mustParse(t, `{"not":{"device_type":"mobile"}}`)
		assert.True(t, eval.Evaluate(node, &segment.Attributes{Device: &segment.Device{Type: "desktop"}}))
		assert.False(t, eval.Evaluate(node, &segment.Attributes{Device: &segment.Device{Type: "mobile"}}))
		// Unresolved device: leaf is false, negation is true.
		assert.True(t, eval.Evaluate(node, &segment.Attributes{}))
	})

	t.Run("UserAgentWildcard", func(t *testing.T) {
		t.Parallel()
		node := mustParse(t, `{"ua":"wildcard(*Mobile Safari*)"}`)
		attrs := &segment.Attributes{Device: &segment.Device{
			UserAgent: "Mozilla/5.0 (iPhone) AppleWebKit/605 Mobile Safari/604.1",
		}}
		assert.True(t, eval.Evaluate(node, attrs))
	})

	t.Run("NestedTree", func(t *testing.T) {
		t.Parallel()
		node := mustParse(t, `{"and":[
			{"or":[{"country":"US"},{"country":"CA"}]},
			{"custom_variable":{"app_version":"gte(2.1)"}},
			{"not":{"user":"blocked-1,blocked-2"}}
		]}`)
		attrs := &segment.Attributes{
			UserID:   "user-9",
			Custom:   map[string]any{"app_version": "2.10.0"},
			Location: &segment.Location{Country: "US"},
		}
		assert.True(t, eval.Evaluate(node, attrs))

		attrs.UserID = "blocked-2"
		assert.False(t, eval.Evaluate(node, attrs))
	})
}

func TestRequires(t *testing.T) {
	t.Parallel()

	var nilNode *segment.Node
	assert.Equal(t, segment.Requirements{}, nilNode.Requires())

	node := mustParse(t, `{"and":[{"custom_variable":{"plan":"pro"}},{"city":"Berlin"}]}`)
	assert.Equal(t, segment.Requirements{Location: true}, node.Requires())

	node = mustParse(t, `{"or":[{"device_type":"mobile"},{"not":{"country":"US"}}]}`)
	assert.Equal(t, segment.Requirements{Location: true, Device: true}, node.Requires())

	node = mustParse(t, `{"custom_variable":{"plan":"pro"}}`)
	assert.Equal(t, segment.Requirements{}, node.Requires())
}
