package scandata_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/scandata"
)

func mustParse(t *testing.T, s string) scandata.Object {
	t.Helper()
	obj, err := scandata.Parse([]byte(s))
	require.NoError(t, err)
	return obj
}

func encode(t *testing.T, o scandata.Object) string {
	t.Helper()
	b, err := json.Marshal(o)
	require.NoError(t, err)
	return string(b)
}

func TestMergeObjects(t *testing.T) {
	tests := []struct {
		name string
		dst  string
		src  string
		want string
	}{
		{
			name: "scalar in src wins",
			dst:  `{"mode":"a","keep":1}`,
			src:  `{"mode":"b"}`,
			want: `{"keep":1,"mode":"b"}`,
		},
		{
			name: "nested objects merge recursively",
			dst:  `{"door":{"led":"green","buzz":false}}`,
			src:  `{"door":{"buzz":true}}`,
			want: `{"door":{"buzz":true,"led":"green"}}`,
		},
		{
			name: "arrays append and dedupe",
			dst:  `{"tags":["a","b"]}`,
			src:  `{"tags":["b","c"]}`,
			want: `{"tags":["a","b","c"]}`,
		},
		{
			name: "arrays of objects dedupe structurally",
			dst:  `{"items":[{"id":1,"x":"y"}]}`,
			src:  `{"items":[{"x":"y","id":1},{"id":2}]}`,
			want: `{"items":[{"id":1,"x":"y"},{"id":2}]}`,
		},
		{
			name: "type mismatch takes src",
			dst:  `{"v":["a"]}`,
			src:  `{"v":"scalar"}`,
			want: `{"v":"scalar"}`,
		},
		{
			name: "null in src overrides",
			dst:  `{"v":"x"}`,
			src:  `{"v":null}`,
			want: `{"v":null}`,
		},
		{
			name: "empty dst",
			dst:  `{}`,
			src:  `{"a":[1]}`,
			want: `{"a":[1]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scandata.MergeObjects(mustParse(t, tt.dst), mustParse(t, tt.src))
			assert.JSONEq(t, tt.want, encode(t, got))
		})
	}
}

func TestMerge_Idempotent(t *testing.T) {
	payloads := []string{
		`{"mode":"a","tags":["x","y"],"nested":{"list":[1,2],"flag":true}}`,
		`{"tags":["x","x","y"]}`,
		`{}`,
	}

	for _, p := range payloads {
		obj := mustParse(t, p)
		once := scandata.MergeObjects(obj, obj)
		twice := scandata.MergeObjects(once, once)
		assert.True(t, scandata.Equal(once, twice), "payload %s", p)
	}

	// A payload with no duplicate array entries is a fixed point.
	obj := mustParse(t, payloads[0])
	assert.True(t, scandata.Equal(obj, scandata.MergeObjects(obj, obj)))
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	dst := mustParse(t, `{"tags":["a"],"n":{"k":"v"}}`)
	src := mustParse(t, `{"tags":["b"],"n":{"k":"w"}}`)

	_ = scandata.MergeObjects(dst, src)

	assert.JSONEq(t, `{"tags":["a"],"n":{"k":"v"}}`, encode(t, dst))
	assert.JSONEq(t, `{"tags":["b"],"n":{"k":"w"}}`, encode(t, src))
}

func TestMergeAll_LaterWins(t *testing.T) {
	got := scandata.MergeAll(
		mustParse(t, `{"mode":"a","list":[1]}`),
		nil,
		mustParse(t, `{"mode":"b","list":[2]}`),
	)
	assert.JSONEq(t, `{"mode":"b","list":[1,2]}`, encode(t, got))
}

func TestParse(t *testing.T) {
	obj, err := scandata.Parse([]byte("null"))
	require.NoError(t, err)
	assert.Empty(t, obj)

	obj, err = scandata.Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, obj)

	_, err = scandata.Parse([]byte(`[1,2]`))
	assert.Error(t, err)

	_, err = scandata.Parse([]byte(`{bad`))
	assert.Error(t, err)
}

func TestObject_NilMarshalsAsEmptyObject(t *testing.T) {
	var o scandata.Object
	b, err := json.Marshal(o)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(b))
}

func TestFromAny_NormalisesNumbers(t *testing.T) {
	fromYAML := scandata.FromAny(map[string]any{"n": 3, "f": 1.5})
	fromJSON := mustParse(t, `{"n":3,"f":1.5}`)
	assert.True(t, scandata.Equal(fromYAML, fromJSON))
}

func TestToAny(t *testing.T) {
	obj := mustParse(t, `{"i":7,"f":2.5,"s":"x","b":true,"z":null,"a":[1,"two"],"o":{"k":"v"}}`)
	got := obj.ToAny()

	assert.Equal(t, int64(7), got["i"])
	assert.Equal(t, 2.5, got["f"])
	assert.Equal(t, "x", got["s"])
	assert.Equal(t, true, got["b"])
	assert.Nil(t, got["z"])
	assert.Equal(t, []any{int64(1), "two"}, got["a"])
	assert.Equal(t, map[string]any{"k": "v"}, got["o"])
}
