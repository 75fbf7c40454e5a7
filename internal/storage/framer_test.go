package storage

import (
	"testing"

	"mini-eventlog/internal/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordStrings(recs []record.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.String()
	}
	return out
}

func TestFrame(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []string
		lines   []int
		missing bool
	}{
		{name: "Empty", in: "", want: []string{}},
		{name: "OnlySeparators", in: "\n\r\n\r", want: []string{}},
		{name: "OnlyWhitespace", in: " \t \n  \r\n\t", want: []string{}},
		{name: "Terminated", in: "{\"a\":1}\n{\"a\":2}\n", want: []string{`{"a":1}`, `{"a":2}`}},
		{name: "Unterminated", in: "{\"a\":1}\n{\"a\":2}", want: []string{`{"a":1}`, `{"a":2}`}, missing: true},
		{name: "SingleUnterminated", in: `{"a":1}`, want: []string{`{"a":1}`}, missing: true},
		{name: "CarriageReturns", in: "1\r2\r\n3\r", want: []string{"1", "2", "3"}},
		{name: "SurroundingWhitespace", in: "  {\"a\":1}\t \n\t[2] \n", want: []string{`{"a":1}`, `[2]`}},
		{name: "TrailingWhitespaceAfterSeparator", in: "1\n  \t", want: []string{"1"}},
		{name: "UnterminatedWithTrailingSpace", in: "1\n2  ", want: []string{"1", "2"}, missing: true},
		{name: "Malformed", in: "1\n{oops\n3\n", want: []string{"1", "3"}, lines: []int{2}},
		{name: "MalformedTailStillUnterminated", in: "1\n{oops", want: []string{"1"}, lines: []int{2}, missing: true},
		{name: "CRLFLineNumbers", in: "1\r\n2\r\nbad\r\n", want: []string{"1", "2"}, lines: []int{3}},
		{name: "BlankLinesCount", in: "\n\nbad\n", want: []string{}, lines: []int{3}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Frame([]byte(tc.in))
			assert.Equal(t, tc.want, recordStrings(res.Records))
			assert.Equal(t, tc.missing, res.MissingTrailingSeparator)

			lines := []int{}
			for _, le := range res.Errors {
				require.Error(t, le.Err)
				lines = append(lines, le.Line)
			}
			if tc.lines == nil {
				tc.lines = []int{}
			}
			assert.Equal(t, tc.lines, lines)
		})
	}
}

func TestFrameOneBadLineAmongMany(t *testing.T) {
	valid := []string{`{"n":1}`, `{"n":2}`, `{"n":3}`, `{"n":4}`}
	for bad := 0; bad <= len(valid); bad++ {
		var buf []byte
		for i := 0; i <= len(valid); i++ {
			if i == bad {
				buf = append(buf, "not json\n"...)
				continue
			}
			j := i
			if i > bad {
				j = i - 1
			}
			buf = append(buf, valid[j]...)
			buf = append(buf, '\n')
		}

		res := Frame(buf)
		assert.Equal(t, valid, recordStrings(res.Records), "bad line at %d", bad)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, bad+1, res.Errors[0].Line)
	}
}
