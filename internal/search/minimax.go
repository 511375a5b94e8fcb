// Package search picks the computer's move by exhaustive minimax over the
// 3x3 game tree.
package search

import (
	"github.com/rs/zerolog"

	"github.com/jaminalder/minimax-tic-tac-toe/internal/domain"
)

// Node is one ply of hypothetical play. Children is indexed by cell; a nil
// slot means the cell was not a legal move at this node.
type Node struct {
	Maximizing bool
	Children   [9]*Node
	Score      domain.Outcome
	Resolved   bool
	Best       int
}

func newNode(maximizing bool) *Node {
	return &Node{Maximizing: maximizing, Best: -1}
}

// Result describes a finished search from the root's point of view.
type Result struct {
	Move   int
	Score  domain.Outcome
	Scores [9]domain.Outcome
	Legal  [9]bool
	Nodes  int
}

// Engine searches on behalf of one mark. It keeps no state between calls.
type Engine struct {
	computer domain.Cell
	yield    func()
	log      zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithYield installs a hook that runs between tree expansion and scoring.
func WithYield(fn func()) Option {
	return func(e *Engine) { e.yield = fn }
}

// WithLogger sets the logger used for per-search debug output.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New returns an engine that maximizes outcomes for computer.
func New(computer domain.Cell, opts ...Option) *Engine {
	if computer != domain.O {
		computer = domain.X
	}
	e := &Engine{computer: computer, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Computer returns the mark scores are oriented to.
func (e *Engine) Computer() domain.Cell { return e.computer }

// ComputeBestMove returns the computer's move on a board where it is to play.
func (e *Engine) ComputeBestMove(b domain.Board) int {
	return e.BestMove(b, true)
}

// BestMove returns the optimal move for the side to move. maximizing tells
// whether that side is the computer; otherwise the move returned is the one
// that keeps the computer's score lowest. It returns -1 on a full board.
func (e *Engine) BestMove(b domain.Board, maximizing bool) int {
	return e.Analyze(b, maximizing).Move
}

// Analyze runs a full search and reports the score of every root move.
func (e *Engine) Analyze(b domain.Board, maximizing bool) Result {
	res := Result{Move: -1}
	root := newNode(maximizing)

	// b is a copy of the caller's board; expand restores every cell it touches.
	res.Nodes = e.expand(&b, root)
	if res.Nodes == 0 {
		e.log.Warn().Str("board", b.String()).Msg("search called without a legal move")
		return res
	}
	if e.yield != nil {
		e.yield()
	}
	resolve(root)

	res.Move = root.Best
	res.Score = root.Score
	for i, c := range root.Children {
		if c != nil {
			res.Legal[i] = true
			res.Scores[i] = c.Score
		}
	}
	e.log.Debug().
		Int("move", res.Move).
		Stringer("score", res.Score).
		Int("nodes", res.Nodes).
		Bool("maximizing", maximizing).
		Msg("search complete")
	return res
}

func (e *Engine) markFor(maximizing bool) domain.Cell {
	if maximizing {
		return e.computer
	}
	return e.computer.Opponent()
}

// expand builds the subtree under n on the virtual board vb and returns the
// number of nodes created. Terminal children are scored on the spot.
func (e *Engine) expand(vb *domain.Board, n *Node) int {
	mark := e.markFor(n.Maximizing)
	count := 0
	for i := range vb {
		if vb[i] != domain.Empty {
			continue
		}
		child := newNode(!n.Maximizing)
		n.Children[i] = child
		count++

		vb[i] = mark
		if score, ok := domain.Evaluate(*vb, e.computer); ok {
			child.Score = score
			child.Resolved = true
		} else {
			count += e.expand(vb, child)
		}
		vb[i] = domain.Empty
	}
	return count
}

// resolve scores n from its children in post-order. The first child in cell
// order that reaches the node's score becomes the chosen move.
func resolve(n *Node) {
	first := true
	for _, c := range n.Children {
		if c == nil {
			continue
		}
		if !c.Resolved {
			resolve(c)
		}
		if first || (n.Maximizing && c.Score > n.Score) || (!n.Maximizing && c.Score < n.Score) {
			n.Score = c.Score
			first = false
		}
	}
	if first {
		return
	}
	for i, c := range n.Children {
		if c != nil && c.Score == n.Score {
			n.Best = i
			break
		}
	}
	n.Resolved = true
}
