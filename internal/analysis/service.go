package analysis

import (
	"strings"
	"sync"

	"github.com/freeeve/uci"
	"github.com/notnil/chess"
	"go.uber.org/zap"

	"github.com/chess-vn/livechess/pkg/logging"
	"github.com/chess-vn/livechess/pkg/pgn"
)

// Pv is one principal variation reported by the engine.
type Pv struct {
	Cp    int    `json:"cp"`
	Moves string `json:"moves"`
}

// Evaluation is the result of analyzing one position. Stub is set when no
// engine is configured and the evaluation carries no real data.
type Evaluation struct {
	Fen      string `json:"fen"`
	Depth    int    `json:"depth"`
	BestMove string `json:"bestMove,omitempty"`
	Pvs      []Pv   `json:"pvs"`
	Stub     bool   `json:"stub,omitempty"`
}

// Service analyzes positions with a UCI engine when one is configured and
// otherwise returns stub evaluations. The engine process is single-threaded,
// so calls are serialized.
type Service struct {
	mu     sync.Mutex
	engine *uci.Engine
}

// New starts the UCI engine at enginePath. An empty path, or an engine that
// fails to start, leaves the service in stub mode.
func New(enginePath string) *Service {
	s := &Service{}
	if enginePath == "" {
		logging.Info("no analysis engine configured, using stub evaluations")
		return s
	}
	engine, err := uci.NewEngine(enginePath)
	if err != nil {
		logging.Error("analysis engine failed to start, using stub evaluations",
			zap.String("path", enginePath),
			zap.Error(err),
		)
		return s
	}
	engine.SetOptions(uci.Options{
		MultiPV: 3,
		Hash:    128,
		Ponder:  false,
		OwnBook: true,
	})
	s.engine = engine
	logging.Info("analysis engine started", zap.String("path", enginePath))
	return s
}

// Analyze evaluates a FEN position to the given depth.
func (s *Service) Analyze(fen string, depth int) (Evaluation, error) {
	if _, err := chess.FEN(fen); err != nil {
		return Evaluation{}, err
	}
	if depth <= 0 {
		depth = 15
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		return Evaluation{Fen: fen, Depth: depth, Pvs: []Pv{}, Stub: true}, nil
	}

	if err := s.engine.SetFEN(fen); err != nil {
		return Evaluation{}, err
	}
	results, err := s.engine.GoDepth(depth, uci.HighestDepthOnly)
	if err != nil {
		return Evaluation{}, err
	}
	eval := Evaluation{
		Fen:      fen,
		Depth:    depth,
		BestMove: results.BestMove,
		Pvs:      make([]Pv, 0, len(results.Results)),
	}
	for _, r := range results.Results {
		eval.Pvs = append(eval.Pvs, Pv{
			Cp:    r.Score,
			Moves: strings.Join(r.BestMoves, " "),
		})
	}
	return eval, nil
}

// ReplayPGN returns the FEN after every move of a PGN document.
func (s *Service) ReplayPGN(pgnText string) ([]string, error) {
	return pgn.ParseFENs(pgnText)
}
