package pgn

import (
	"strings"

	"gopkg.in/freeeve/pgn.v1"
)

// ParseFENs replays every game in a PGN document and returns the FEN after
// each move, in order. Used by review boards to step through a game.
func ParseFENs(pgnText string) ([]string, error) {
	ps := pgn.NewPGNScanner(strings.NewReader(pgnText))

	var fenList []string
	for ps.Next() {
		game, err := ps.Scan()
		if err != nil {
			return nil, err
		}
		b := pgn.NewBoard()
		for _, move := range game.Moves {
			b.MakeMove(move)
			fenList = append(fenList, b.String())
		}
	}
	return fenList, nil
}
