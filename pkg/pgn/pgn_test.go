package pgn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const foolsMate = `[Event "Test"]
[Site "?"]
[Date "2024.01.01"]
[Round "1"]
[White "A"]
[Black "B"]
[Result "0-1"]

1. f3 e5 2. g4 Qh4# 0-1
`

func TestParseFENsReplaysEveryMove(t *testing.T) {
	fens, err := ParseFENs(foolsMate)
	require.NoError(t, err)
	require.Len(t, fens, 4)
	// Every position after white's first move has black to play.
	assert.Contains(t, fens[0], " b ")
	assert.Contains(t, fens[3], " w ")
}

func TestParseFENsEmptyDocument(t *testing.T) {
	fens, err := ParseFENs("")
	require.NoError(t, err)
	assert.Empty(t, fens)
}
