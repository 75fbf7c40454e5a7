package record

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("TrimsWhitespace", func(t *testing.T) {
		rec, err := Parse([]byte(" \t{\"a\":1}\r\n"))
		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, rec.String())
	})

	t.Run("Scalars", func(t *testing.T) {
		for _, in := range []string{`1`, `"x"`, `true`, `null`, `[1,2]`} {
			rec, err := Parse([]byte(in))
			require.NoError(t, err, in)
			assert.Equal(t, in, rec.String())
		}
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := Parse([]byte(" \n\t"))
		assert.ErrorIs(t, err, ErrEmpty)
	})

	t.Run("Malformed", func(t *testing.T) {
		for _, in := range []string{`{"a":`, `{"a":1} {"b":2}`, `hello`} {
			_, err := Parse([]byte(in))
			var syn *SyntaxError
			require.True(t, errors.As(err, &syn), in)
		}
	})

	t.Run("DoesNotAlias", func(t *testing.T) {
		buf := []byte(`{"a":1}`)
		rec, err := Parse(buf)
		require.NoError(t, err)
		buf[5] = '9'
		assert.Equal(t, `{"a":1}`, rec.String())
	})
}

func TestEncode(t *testing.T) {
	rec, err := Encode(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, rec.String())

	rec, err = Encode(json.RawMessage(" [1, 2] "))
	require.NoError(t, err)
	assert.Equal(t, `[1, 2]`, rec.String())

	_, err = Encode(make(chan int))
	assert.Error(t, err)
}

func TestFrame(t *testing.T) {
	line, err := Frame([]byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n", string(line))

	line, err = Frame([]byte("  {\"a\":1}\n\n"))
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n", string(line))

	line, err = Frame([]byte("{\n  \"a\": 1,\r\n  \"b\": [1, 2]\n}"))
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1,\"b\":[1,2]}\n", string(line))

	_, err = Frame([]byte("\n"))
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestRecordJSON(t *testing.T) {
	recs := []Record{Record(`{"a":1}`), Record(`2`), nil}
	out, err := json.Marshal(recs)
	require.NoError(t, err)
	assert.Equal(t, `[{"a":1},2,null]`, string(out))

	var back []Record
	require.NoError(t, json.Unmarshal([]byte(`[{"a": 1}, "x"]`), &back))
	require.Len(t, back, 2)
	assert.Equal(t, `{"a": 1}`, back[0].String())

	var v struct{ A int }
	require.NoError(t, back[0].Decode(&v))
	assert.Equal(t, 1, v.A)
}
