// Package termui plays against the engine on a terminal.
package termui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/muesli/termenv"
	"github.com/rs/zerolog"

	"github.com/jaminalder/minimax-tic-tac-toe/internal/app"
	"github.com/jaminalder/minimax-tic-tac-toe/internal/domain"
	"github.com/jaminalder/minimax-tic-tac-toe/internal/search"
)

// UI renders boards and drives one human against the computer.
type UI struct {
	out     *termenv.Output
	profile *termenv.Profile
	engine  *search.Engine
	human   domain.Cell
	coin    func() bool
	log     zerolog.Logger
}

// Option configures a UI.
type Option func(*UI)

// WithCoin decides who opens each round; true means the human.
func WithCoin(fn func() bool) Option {
	return func(u *UI) { u.coin = fn }
}

// WithLogger sets the logger for game events.
func WithLogger(l zerolog.Logger) Option {
	return func(u *UI) { u.log = l }
}

// WithProfile forces a colour profile, e.g. termenv.Ascii for plain output.
func WithProfile(p termenv.Profile) Option {
	return func(u *UI) { u.profile = &p }
}

// New returns a UI writing to w. The computer plays the engine's mark.
func New(w io.Writer, engine *search.Engine, opts ...Option) *UI {
	u := &UI{
		engine: engine,
		human:  engine.Computer().Opponent(),
		coin:   func() bool { return true },
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.profile != nil {
		u.out = termenv.NewOutput(w, termenv.WithProfile(*u.profile))
	} else {
		u.out = termenv.NewOutput(w)
	}
	return u
}

// Render draws b with cell numbers 1-9 on free squares and coloured marks.
func (u *UI) Render(b domain.Board, hint int) string {
	var sb strings.Builder
	for r := 0; r < 3; r++ {
		if r > 0 {
			sb.WriteString("---+---+---\n")
		}
		for c := 0; c < 3; c++ {
			if c > 0 {
				sb.WriteString("|")
			}
			i := r*3 + c
			sb.WriteString(" " + u.cell(b[i], i, i == hint) + " ")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (u *UI) cell(c domain.Cell, idx int, hint bool) string {
	switch c {
	case domain.X:
		return u.out.String("X").Foreground(u.out.Color("9")).Bold().String()
	case domain.O:
		return u.out.String("O").Foreground(u.out.Color("12")).Bold().String()
	}
	s := u.out.String(strconv.Itoa(idx + 1))
	if hint {
		return s.Reverse().String()
	}
	return s.Faint().String()
}

// Run plays rounds until the input ends, q is entered or ctx is done.
// Commands: 1-9 place a mark, h shows a hint, r restarts the round.
func (u *UI) Run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	g := domain.New(u.human)
	hint := -1
	if err := u.startRound(&g); err != nil {
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		u.show(g, hint)
		hint = -1
		if !sc.Scan() {
			return sc.Err()
		}
		cmd := strings.ToLower(strings.TrimSpace(sc.Text()))
		switch cmd {
		case "":
			continue
		case "q", "quit":
			return nil
		case "r", "reset":
			g.Reset()
			if err := u.startRound(&g); err != nil {
				return err
			}
			continue
		case "h", "hint":
			if g.Phase == domain.WaitingForPlayer {
				hint = u.engine.BestMove(g.Board, false)
			}
			continue
		}
		if g.Over {
			fmt.Fprintln(u.out, "Game over. Enter r to play again or q to quit.")
			continue
		}
		n, err := strconv.Atoi(cmd)
		if err != nil || n < 1 || n > 9 {
			fmt.Fprintln(u.out, "Enter a cell 1-9, h, r or q.")
			continue
		}
		if err := g.PlayHuman(n - 1); err != nil {
			fmt.Fprintf(u.out, "%v\n", err)
			continue
		}
		if !g.Over {
			if err := g.BeginComputerTurn(); err != nil {
				return err
			}
			if err := u.computerMove(&g); err != nil {
				return err
			}
		}
		if g.Over {
			o, _ := g.Outcome()
			u.log.Info().Stringer("outcome", o).Int("moves", g.Moves).Msg("round finished")
		}
	}
}

func (u *UI) startRound(g *domain.Game) error {
	if err := g.Start(u.coin()); err != nil {
		return err
	}
	if g.Phase == domain.ComputerThinking {
		return u.computerMove(g)
	}
	return nil
}

func (u *UI) computerMove(g *domain.Game) error {
	fmt.Fprintln(u.out, app.StatusThinking)
	return g.PlayComputer(u.engine.ComputeBestMove(g.Board))
}

func (u *UI) show(g domain.Game, hint int) {
	fmt.Fprint(u.out, "\n"+u.Render(g.Board, hint))
	status := app.StatusText(g)
	if g.Over {
		status += " (r: " + app.StatusAgain + ")"
	}
	fmt.Fprintln(u.out, u.out.String(status).Bold().String())
}
