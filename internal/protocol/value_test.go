package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalValue_AllShapes(t *testing.T) {
	tests := []struct {
		name string
		json string
		want Value
	}{
		{"string", `"hello"`, String("hello")},
		{"integer", `42`, Number(42)},
		{"fraction", `4.2`, Number(4.2)},
		{"negative", `-3.5`, Number(-3.5)},
		{"true", `true`, Bool(true)},
		{"false", `false`, Bool(false)},
		{"null", `null`, Null{}},
		{"array", `[1,"a"]`, Array{Number(1), String("a")}},
		{"object", `{"a":{"b":1}}`, Object{"a": Object{"b": Number(1)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnmarshalValue([]byte(tt.json))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnmarshalValue_Empty(t *testing.T) {
	_, err := UnmarshalValue([]byte("  "))
	require.Error(t, err)
}

func TestObject_SortedKeys(t *testing.T) {
	obj := Object{"volume": Number(1), "module": String("m"), "engageHeight": Number(2)}
	assert.Equal(t, []string{"engageHeight", "module", "volume"}, obj.SortedKeys())
}

func TestObject_SortedKeysUTF16Order(t *testing.T) {
	// U+FF61 sorts before U+1F600 in UTF-8 but after it in UTF-16.
	obj := Object{"\U0001F600": Number(1), "\uFF61": Number(2)}
	assert.Equal(t, []string{"\U0001F600", "\uFF61"}, obj.SortedKeys())
}

func TestObject_MarshalJSONSortsKeys(t *testing.T) {
	obj := Object{"b": Number(2), "a": String("x"), "c": Array{Bool(true), Null{}}}
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":2,"c":[true,null]}`, string(data))
}

func TestFromAny_YAMLShapes(t *testing.T) {
	in := map[string]any{
		"int":   7,
		"float": 1.5,
		"list":  []any{"x", true},
		"nil":   nil,
	}
	got, err := FromAny(in)
	require.NoError(t, err)
	assert.Equal(t, Object{
		"int":   Number(7),
		"float": Number(1.5),
		"list":  Array{String("x"), Bool(true)},
		"nil":   Null{},
	}, got)
}

func TestFromAny_Unsupported(t *testing.T) {
	_, err := FromAny(struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")
}

func TestToAny_RoundTrip(t *testing.T) {
	obj := Object{"profile": Array{Object{"temperature": Number(95), "holdTime": Number(30)}}}
	back, err := FromAny(ToAny(obj))
	require.NoError(t, err)
	assert.Equal(t, obj, back)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, "null", KindOf(nil))
	assert.Equal(t, "string", KindOf(String("")))
	assert.Equal(t, "number", KindOf(Number(0)))
	assert.Equal(t, "boolean", KindOf(Bool(false)))
	assert.Equal(t, "array", KindOf(Array{}))
	assert.Equal(t, "object", KindOf(Object{}))
}
