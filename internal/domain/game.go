package domain

import "errors"

// Phase is the turn state of a game against the computer.
type Phase uint8

const (
	Setup Phase = iota
	WaitingForPlayer
	PlayerMoved
	ComputerThinking
	GameOver
)

func (p Phase) String() string {
	switch p {
	case Setup:
		return "setup"
	case WaitingForPlayer:
		return "waiting_for_player"
	case PlayerMoved:
		return "player_moved"
	case ComputerThinking:
		return "computer_thinking"
	case GameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// Game holds the current state of a match between a human and the computer.
type Game struct {
	Board    Board
	Human    Cell
	Computer Cell
	Phase    Phase
	Winner   Cell
	Over     bool
	Moves    int
}

// Errors returned by domain operations.
var (
	ErrOutOfBounds = errors.New("out of bounds")
	ErrOccupied    = errors.New("cell occupied")
	ErrGameOver    = errors.New("game over")
	ErrWrongPhase  = errors.New("move not allowed in this phase")
	ErrInvalidMark = errors.New("invalid mark")
)

// New returns a game in Setup with the human playing mark human.
// Anything other than O gives the human X.
func New(human Cell) Game {
	if human != O {
		human = X
	}
	return Game{Human: human, Computer: human.Opponent(), Phase: Setup}
}

// Start leaves Setup, handing the first move to the human or the computer.
func (g *Game) Start(humanFirst bool) error {
	if g.Phase != Setup {
		return ErrWrongPhase
	}
	if humanFirst {
		g.Phase = WaitingForPlayer
	} else {
		g.Phase = ComputerThinking
	}
	return nil
}

// PlayHuman places the human's mark at idx (0..8).
func (g *Game) PlayHuman(idx int) error {
	if g.Over {
		return ErrGameOver
	}
	if g.Phase != WaitingForPlayer {
		return ErrWrongPhase
	}
	if err := g.place(idx, g.Human); err != nil {
		return err
	}
	g.Phase = PlayerMoved
	g.settle()
	return nil
}

// PlayHumanAt is PlayHuman addressed by row r and column c (0..2).
func (g *Game) PlayHumanAt(r, c int) error {
	if r < 0 || r > 2 || c < 0 || c > 2 {
		return ErrOutOfBounds
	}
	return g.PlayHuman(r*3 + c)
}

// BeginComputerTurn hands the move to the computer after the human played.
func (g *Game) BeginComputerTurn() error {
	if g.Over {
		return ErrGameOver
	}
	if g.Phase != PlayerMoved {
		return ErrWrongPhase
	}
	g.Phase = ComputerThinking
	return nil
}

// PlayComputer places the computer's mark at idx.
func (g *Game) PlayComputer(idx int) error {
	if g.Over {
		return ErrGameOver
	}
	if g.Phase != ComputerThinking {
		return ErrWrongPhase
	}
	if err := g.place(idx, g.Computer); err != nil {
		return err
	}
	g.Phase = WaitingForPlayer
	g.settle()
	return nil
}

// Reset clears the board and returns to Setup keeping the marks.
func (g *Game) Reset() {
	*g = Game{Human: g.Human, Computer: g.Computer, Phase: Setup}
}

// Outcome evaluates the board for the computer.
func (g *Game) Outcome() (Outcome, bool) {
	return Evaluate(g.Board, g.Computer)
}

func (g *Game) place(idx int, mark Cell) error {
	if idx < 0 || idx >= len(g.Board) {
		return ErrOutOfBounds
	}
	if g.Board[idx] != Empty {
		return ErrOccupied
	}
	g.Board[idx] = mark
	g.Moves++
	return nil
}

// settle moves a finished game to GameOver.
func (g *Game) settle() {
	if w, ok := Winner(g.Board); ok {
		g.Winner = w
		g.Over = true
		g.Phase = GameOver
		return
	}
	if g.Board.Full() {
		g.Winner = Empty
		g.Over = true
		g.Phase = GameOver
	}
}
