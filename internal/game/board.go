package game

import (
	"github.com/notnil/chess"
)

// board wraps the rules engine. All legality, terminal-state detection and
// FEN serialization is delegated to notnil/chess; the session never tracks a
// second copy of the turn indicator.
type board struct {
	game *chess.Game
}

func newBoard() *board {
	return &board{
		game: chess.NewGame(
			chess.UseNotation(chess.UCINotation{}),
		),
	}
}

func restoreBoard(fen string) (*board, error) {
	withFen, err := chess.FEN(fen)
	if err != nil {
		return nil, err
	}
	return &board{
		game: chess.NewGame(
			withFen,
			chess.UseNotation(chess.UCINotation{}),
		),
	}, nil
}

func (b *board) turn() Color {
	if b.game.Position().Turn() == chess.White {
		return White
	}
	return Black
}

func (b *board) fen() string {
	return b.game.FEN()
}

// apply validates and plays the move described by from/to/promotion. On an
// illegal move it returns ErrIllegalMove and leaves the position untouched.
func (b *board) apply(from, to, promotion string) (MoveRecord, error) {
	uci := from + to + promotion
	pos := b.game.Position()
	mv, err := chess.UCINotation{}.Decode(pos, uci)
	if err != nil {
		return MoveRecord{}, ErrIllegalMove
	}
	record := MoveRecord{
		From:  mv.S1().String(),
		To:    mv.S2().String(),
		Piece: pieceLetter(pos.Board().Piece(mv.S1()).Type()),
		San:   chess.AlgebraicNotation{}.Encode(pos, mv),
	}
	if mv.HasTag(chess.Capture) || mv.HasTag(chess.EnPassant) {
		if target := pos.Board().Piece(mv.S2()); target != chess.NoPiece {
			record.Captured = pieceLetter(target.Type())
		} else {
			// En passant: the captured pawn is not on the destination square.
			record.Captured = pieceLetter(chess.Pawn)
		}
	}
	if mv.Promo() != chess.NoPieceType {
		record.Promotion = pieceLetter(mv.Promo())
	}
	if err := b.game.Move(mv); err != nil {
		return MoveRecord{}, ErrIllegalMove
	}
	record.Fen = b.game.FEN()
	return record, nil
}

// legalDestinations lists every square the piece on the given square may move
// to in the current position.
func (b *board) legalDestinations(square string) []string {
	var dests []string
	for _, mv := range b.game.ValidMoves() {
		if mv.S1().String() != square {
			continue
		}
		dests = append(dests, mv.S2().String())
	}
	return dests
}

func (b *board) inCheck() bool {
	moves := b.game.Moves()
	if len(moves) == 0 {
		return false
	}
	return moves[len(moves)-1].HasTag(chess.Check)
}

// terminal reports whether the position ended the game, and if so with which
// outcome and reason. Threefold repetition and the fifty-move rule are
// claimable draws in the rules engine; here they end the game automatically.
func (b *board) terminal() (Outcome, string, bool) {
	if b.game.Outcome() == chess.NoOutcome {
		for _, method := range b.game.EligibleDraws() {
			switch method {
			case chess.ThreefoldRepetition:
				b.game.Draw(chess.ThreefoldRepetition)
			case chess.FiftyMoveRule:
				b.game.Draw(chess.FiftyMoveRule)
			}
		}
	}
	if b.game.Outcome() == chess.NoOutcome {
		return NoOutcome, "", false
	}

	var outcome Outcome
	switch b.game.Outcome() {
	case chess.WhiteWon:
		outcome = WhiteWon
	case chess.BlackWon:
		outcome = BlackWon
	default:
		outcome = Drawn
	}
	return outcome, reasonForMethod(b.game.Method()), true
}

func reasonForMethod(method chess.Method) string {
	switch method {
	case chess.Checkmate:
		return "checkmate"
	case chess.Stalemate:
		return "stalemate"
	case chess.InsufficientMaterial:
		return "insufficient material"
	case chess.ThreefoldRepetition, chess.FivefoldRepetition:
		return "threefold repetition"
	case chess.FiftyMoveRule, chess.SeventyFiveMoveRule:
		return "fifty move rule"
	default:
		return "draw"
	}
}

func pieceLetter(t chess.PieceType) string {
	switch t {
	case chess.King:
		return "k"
	case chess.Queen:
		return "q"
	case chess.Rook:
		return "r"
	case chess.Bishop:
		return "b"
	case chess.Knight:
		return "n"
	case chess.Pawn:
		return "p"
	}
	return ""
}

// LegalDestinations lists the squares reachable by the piece standing on the
// given square of an arbitrary FEN position.
func LegalDestinations(fen, square string) ([]string, error) {
	b, err := restoreBoard(fen)
	if err != nil {
		return nil, err
	}
	return b.legalDestinations(square), nil
}

func (b *board) checkmate() bool {
	return b.game.Method() == chess.Checkmate
}

func (b *board) stalemate() bool {
	return b.game.Method() == chess.Stalemate
}
