package invocation

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLooksLikeError はエラー判定を検証する。
func TestLooksLikeError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		payload string
		want    bool
	}{
		{payload: "Error: bad input", want: true},
		{payload: "  'fail'  ", want: true},
		{payload: `"ERROR: farm not found"`, want: true},
		{payload: `"'Failed to update'"`, want: true},
		{payload: "FAILOVER_OK", want: true},
		{payload: "Success: ok", want: false},
		{payload: `{"error":"x"}`, want: false},
		{payload: `"{\"state\":\"ERROR\"}"`, want: false},
		{payload: "", want: false},
		{payload: "  e r r o r", want: false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LooksLikeError(tt.payload), "payload=%q", tt.payload)
	}
}

// TestNewResult はResultの生成を検証する。
func TestNewResult(t *testing.T) {
	t.Parallel()

	r := NewResult([]byte(`"ERROR: farm not found"`))
	assert.True(t, r.IsError)
	assert.Equal(t, `"ERROR: farm not found"`, r.PayloadString)
	assert.Equal(t, []byte(`"ERROR: farm not found"`), r.Raw)

	assert.False(t, NewResult([]byte(`{"a":1}`)).IsError)
}

// TestUnwrap は二重エンコードされたJSONの取り出しを検証する。
func TestUnwrap(t *testing.T) {
	t.Parallel()

	t.Run("文字列としてエンコードされたJSONが取り出せること", func(t *testing.T) {
		t.Parallel()

		v, err := Unwrap(`"{\"a\":1}"`)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": json.Number("1")}, v)
	})

	t.Run("前後の空白が削られること", func(t *testing.T) {
		t.Parallel()

		v, err := Unwrap("  \"{\\\"farm\\\":\\\"blue\\\"}\"\n")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"farm": "blue"}, v)
	})

	t.Run("片側だけの引用符もその片側だけ取り除かれること", func(t *testing.T) {
		t.Parallel()

		v, err := Unwrap(`{"a":[1,2]}"`)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": []any{json.Number("1"), json.Number("2")}}, v)

		v, err = Unwrap(`"[true]`)
		require.NoError(t, err)
		assert.Equal(t, []any{true}, v)
	})

	t.Run("エンコードされていないJSONもそのまま解析されること", func(t *testing.T) {
		t.Parallel()

		v, err := Unwrap(`{"a":1}`)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": json.Number("1")}, v)
	})

	t.Run("解析できない場合は入力を保持したDecodeErrorになること", func(t *testing.T) {
		t.Parallel()

		_, err := Unwrap(`"not json at all"`)
		var de *DecodeError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "not json at all", de.Input)
	})
}

// TestParseJSON はそのままのJSON解析を検証する。
func TestParseJSON(t *testing.T) {
	t.Parallel()

	v, err := ParseJSON(`{"farms":{"blue":"RUNNING"}}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"farms": map[string]any{"blue": "RUNNING"}}, v)

	_, err = ParseJSON(`"{\"a\":1}" trailing`)
	assert.Error(t, err)

	_, err = ParseJSON(``)
	assert.Error(t, err)

	// 余分な閉じ括弧も後続データとして扱う
	for _, in := range []string{`{"a":1}}`, `[1]]`, `{"a":1} x`} {
		_, err = ParseJSON(in)
		assert.Error(t, err, in)
	}

	v, err = ParseJSON("{\"a\":1} \n")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": json.Number("1")}, v)

	v, err = ParseJSON(`12345678901234567890`)
	require.NoError(t, err)
	assert.Equal(t, json.Number("12345678901234567890"), v)
}

// TestStripQuotes は引用符の除去を検証する。
func TestStripQuotes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "20240101-14-1b178b52-master", StripQuotes(`"20240101-14-1b178b52-master"`))
	assert.Equal(t, "v1", StripQuotes(`v1"`))
	assert.Equal(t, "v1", StripQuotes(`"v1`))
	assert.Equal(t, ` "v1" `, StripQuotes(` "v1" `))
	assert.Equal(t, "", StripQuotes(`"`))
}

// TestRemapDesiredState は希望状態の変換を検証する。
func TestRemapDesiredState(t *testing.T) {
	t.Parallel()

	t.Run("stateMapがstateに移りserviceJsonが取り除かれること", func(t *testing.T) {
		t.Parallel()

		got, err := RemapDesiredState(map[string]any{
			"service":     "worldview",
			"state":       "old",
			"stateMap":    map[string]any{"us-east-1a": "RUNNING"},
			"serviceJson": "eyJhIjoxfQ==",
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"service": "worldview",
			"state":   map[string]any{"us-east-1a": "RUNNING"},
		}, got)
	})

	t.Run("stateMapが無い場合はstateが維持されること", func(t *testing.T) {
		t.Parallel()

		got, err := RemapDesiredState(map[string]any{"state": "RUNNING"})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"state": "RUNNING"}, got)
	})

	t.Run("オブジェクトでない場合はエラーになること", func(t *testing.T) {
		t.Parallel()

		_, err := RemapDesiredState([]any{"a"})
		var de *DecodeError
		assert.True(t, errors.As(err, &de))
	})
}
