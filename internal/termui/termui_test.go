package termui

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"

	"github.com/jaminalder/minimax-tic-tac-toe/internal/app"
	"github.com/jaminalder/minimax-tic-tac-toe/internal/domain"
	"github.com/jaminalder/minimax-tic-tac-toe/internal/search"
)

func newPlainUI(buf *bytes.Buffer, opts ...Option) *UI {
	opts = append([]Option{WithProfile(termenv.Ascii)}, opts...)
	return New(buf, search.New(domain.X), opts...)
}

func TestRenderPlain(t *testing.T) {
	var buf bytes.Buffer
	u := newPlainUI(&buf)
	b, err := domain.ParseBoard("x.. .o. ...")
	require.NoError(t, err)
	want := " X | 2 | 3 \n---+---+---\n 4 | O | 6 \n---+---+---\n 7 | 8 | 9 \n"
	require.Equal(t, want, u.Render(b, -1))
	require.Equal(t, want, u.Render(b, 1), "hint styling is invisible without colour")
}

func TestRunHumanFirst(t *testing.T) {
	var buf bytes.Buffer
	u := newPlainUI(&buf)
	require.NoError(t, u.Run(context.Background(), strings.NewReader("5\nabc\nh\nq\n")))
	out := buf.String()
	require.Contains(t, out, app.StatusTurn)
	require.Contains(t, out, app.StatusThinking)
	require.Contains(t, out, " X | 2 | 3 \n---+---+---\n 4 | O | 6 ")
	require.Contains(t, out, "Enter a cell 1-9")
}

func TestRunComputerFirst(t *testing.T) {
	var buf bytes.Buffer
	u := newPlainUI(&buf, WithCoin(func() bool { return false }))
	require.NoError(t, u.Run(context.Background(), strings.NewReader("q\n")))
	require.Contains(t, buf.String(), " X | 2 | 3 ")
}

func TestRunFullGameNeverLost(t *testing.T) {
	var buf bytes.Buffer
	u := newPlainUI(&buf)
	input := "1\n2\n3\n4\n5\n6\n7\n8\n9\n1\n"
	require.NoError(t, u.Run(context.Background(), strings.NewReader(input)))
	out := buf.String()
	require.NotContains(t, out, app.StatusWon)
	require.True(t, strings.Contains(out, app.StatusLost) || strings.Contains(out, app.StatusTie))
	require.Contains(t, out, "cell occupied")
	require.Contains(t, out, app.StatusAgain)
}

func TestRunResetStartsOver(t *testing.T) {
	var buf bytes.Buffer
	u := newPlainUI(&buf)
	require.NoError(t, u.Run(context.Background(), strings.NewReader("5\nr\nq\n")))
	out := buf.String()
	last := out[strings.LastIndex(out, " 1 |"):]
	require.True(t, strings.HasPrefix(last, " 1 | 2 | 3 \n---+---+---\n 4 | 5 | 6 "), "board after reset:\n%s", last)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	var buf bytes.Buffer
	u := newPlainUI(&buf)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, u.Run(ctx, strings.NewReader("5\n")), context.Canceled)
}
