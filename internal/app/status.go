package app

import "github.com/jaminalder/minimax-tic-tac-toe/internal/domain"

// Status lines shown to the human.
const (
	StatusWon      = "You won!"
	StatusTie      = "It's a Tie"
	StatusLost     = "You Lost!"
	StatusTurn     = "Your Turn"
	StatusThinking = "Thinking..."
	StatusAgain    = "Play Again?"
)

// StatusText maps a game to the line shown above the board.
func StatusText(g domain.Game) string {
	if o, done := g.Outcome(); done {
		switch o {
		case domain.Loss:
			return StatusWon
		case domain.Win:
			return StatusLost
		default:
			return StatusTie
		}
	}
	switch g.Phase {
	case domain.WaitingForPlayer, domain.Setup:
		return StatusTurn
	default:
		return StatusThinking
	}
}
