package transform

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransform(t *testing.T) {
	table := []struct {
		pattern  string
		format   string
		input    string
		expected string
		matched  bool
	}{
		{pattern: `^(\d+)_(.*)$`, format: "$2_$1", input: "42_report.pdf", expected: "report.pdf_42", matched: true},
		{pattern: `^(\d+)_(.*)$`, format: "$2_$1", input: "report.pdf", expected: "report.pdf", matched: false},
		{pattern: `^blatt(\d+)\.pdf$`, format: "uebung${1}_mustermann.pdf", input: "blatt3.pdf", expected: "uebung3_mustermann.pdf", matched: true},
		{pattern: `(?P<sheet>\d+)`, format: "0${sheet}", input: "sheet7.pdf", expected: "sheet07.pdf", matched: true},
		{pattern: `\.PDF$`, format: ".pdf", input: "Report.PDF", expected: "Report.pdf", matched: true},
		{pattern: `^(.*)$`, format: "$$1", input: "a.txt", expected: "$1", matched: true},
		{pattern: `-`, format: "_", input: "a-b-c.pdf", expected: "a_b_c.pdf", matched: true},
		{pattern: `(\d+)`, format: "<$1>", input: "sheet3_task12.pdf", expected: "sheet<3>_task<12>.pdf", matched: true},
		{pattern: ` +`, format: "_", input: "my  final report.pdf", expected: "my_final_report.pdf", matched: true},
	}

	for _, row := range table {
		transformer, err := New(row.pattern, row.format)
		require.NoError(t, err)

		result, matched := transformer.Transform(row.input)
		require.Equal(t, row.expected, result, row.pattern)
		require.Equal(t, row.matched, matched, row.pattern)
		require.Equal(t, row.expected, Apply(transformer, row.input))
	}
}

func TestNew(t *testing.T) {
	transformer, err := New("", "")
	require.NoError(t, err)
	require.Nil(t, transformer)
	require.Equal(t, "a.txt", Apply(transformer, "a.txt"))

	_, err = New(`^(\d+)$`, "")
	require.ErrorIs(t, err, ErrIncomplete)

	_, err = New("", "$1")
	require.ErrorIs(t, err, ErrIncomplete)

	_, err = New(`^(\d+$`, "$1")
	require.Error(t, err)
}
