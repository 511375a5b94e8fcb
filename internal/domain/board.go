package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Cell represents a board cell state.
type Cell uint8

const (
	Empty Cell = iota
	X
	O
)

func (c Cell) String() string {
	switch c {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return " "
	}
}

// Opponent returns the other mark. Empty has no opponent.
func (c Cell) Opponent() Cell {
	switch c {
	case X:
		return O
	case O:
		return X
	default:
		return Empty
	}
}

// ParseCell accepts "x", "o" (any case) and returns the mark.
func ParseCell(s string) (Cell, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return X, nil
	case "o":
		return O, nil
	}
	return Empty, fmt.Errorf("%w: %q", ErrInvalidMark, s)
}

// Board is a fixed 3x3 board stored row-major.
type Board [9]Cell

// Lines are the eight winning triples in scan order: rows, columns, diagonals.
var Lines = [8][3]int{
	// rows
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	// cols
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	// diags
	{0, 4, 8}, {2, 4, 6},
}

var errBoardLength = errors.New("board needs exactly 9 cells")

// ParseBoard reads nine cells from s. 'x' and 'o' are marks, '.', '-' and '_'
// are empty; whitespace and '|' separators are ignored.
func ParseBoard(s string) (Board, error) {
	var b Board
	i := 0
	for _, r := range s {
		var c Cell
		switch r {
		case ' ', '\t', '\n', '|':
			continue
		case 'x', 'X':
			c = X
		case 'o', 'O':
			c = O
		case '.', '-', '_':
			c = Empty
		default:
			return Board{}, fmt.Errorf("%w: unexpected %q", ErrInvalidMark, r)
		}
		if i == len(b) {
			return Board{}, errBoardLength
		}
		b[i] = c
		i++
	}
	if i != len(b) {
		return Board{}, errBoardLength
	}
	return b, nil
}

// EmptyCells lists the free cell indexes in ascending order.
func (b Board) EmptyCells() []int {
	out := make([]int, 0, len(b))
	for i, c := range b {
		if c == Empty {
			out = append(out, i)
		}
	}
	return out
}

// Full reports whether no empty cell remains.
func (b Board) Full() bool {
	for _, c := range b {
		if c == Empty {
			return false
		}
	}
	return true
}

// Count returns how many cells hold mark c.
func (b Board) Count(c Cell) int {
	n := 0
	for _, v := range b {
		if v == c {
			n++
		}
	}
	return n
}

func (b Board) String() string {
	var sb strings.Builder
	for r := 0; r < 3; r++ {
		if r > 0 {
			sb.WriteString("\n-+-+-\n")
		}
		fmt.Fprintf(&sb, "%v|%v|%v", b[r*3], b[r*3+1], b[r*3+2])
	}
	return sb.String()
}

// Outcome is a finished game's score seen from a target mark.
type Outcome int

const (
	Loss Outcome = -1
	Draw Outcome = 0
	Win  Outcome = 1
)

func (o Outcome) String() string {
	switch o {
	case Loss:
		return "loss"
	case Draw:
		return "draw"
	case Win:
		return "win"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Winner returns the mark owning the first completed line.
func Winner(b Board) (Cell, bool) {
	for _, ln := range Lines {
		c := b[ln[0]]
		if c != Empty && c == b[ln[1]] && c == b[ln[2]] {
			return c, true
		}
	}
	return Empty, false
}

// Evaluate scores b for target. ok is false while the game is still open;
// the returned Outcome carries no meaning then (Draw is a real score).
func Evaluate(b Board, target Cell) (o Outcome, ok bool) {
	if w, won := Winner(b); won {
		if w == target {
			return Win, true
		}
		return Loss, true
	}
	if b.Full() {
		return Draw, true
	}
	return Draw, false
}
