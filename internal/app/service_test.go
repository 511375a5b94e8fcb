package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jaminalder/minimax-tic-tac-toe/internal/domain"
	"github.com/jaminalder/minimax-tic-tac-toe/internal/search"
)

// minimal renderer for tests: encode moves count as bytes
func testRenderer(gs GameState) []byte { return []byte(fmt.Sprintf("moves=%d", gs.Game.Moves)) }

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	base := []Option{WithRenderer(testRenderer), WithFirstPlayer(FirstHuman)}
	return NewService(append(base, opts...)...)
}

func seatedGame(t *testing.T, s *Service, player string) *GameState {
	t.Helper()
	gs, err := s.CreateGame()
	require.NoError(t, err)
	_, gs, err = s.Join(gs.ID, player)
	require.NoError(t, err)
	return gs
}

func firstEmpty(b domain.Board) int {
	for i, c := range b {
		if c == domain.Empty {
			return i
		}
	}
	return -1
}

func TestCreateAndGet(t *testing.T) {
	s := newTestService(t)
	gs, err := s.CreateGame()
	if err != nil {
		t.Fatalf("CreateGame error: %v", err)
	}
	if gs.ID == "" {
		t.Fatalf("expected non-empty game ID")
	}
	if gs.Game.Phase != domain.WaitingForPlayer {
		t.Fatalf("expected human to open, got %v", gs.Game.Phase)
	}
	if gs.Game.Human != domain.O || gs.Game.Computer != domain.X {
		t.Fatalf("expected human O and computer X by default")
	}
	if gs.Created.IsZero() || gs.Updated.IsZero() {
		t.Fatalf("expected timestamps to be set")
	}
	got, ok := s.Get(gs.ID)
	if !ok || got.ID != gs.ID {
		t.Fatalf("Get should find created game")
	}
	if _, ok := s.Get("missing"); ok {
		t.Fatalf("Get should not find unknown game")
	}
}

func TestComputerOpens(t *testing.T) {
	s := newTestService(t, WithFirstPlayer(FirstComputer))
	gs, err := s.CreateGame()
	require.NoError(t, err)
	require.Equal(t, domain.WaitingForPlayer, gs.Game.Phase)
	require.Equal(t, 1, gs.Game.Moves)
	require.Equal(t, 0, gs.LastMove)
	require.Equal(t, domain.X, gs.Game.Board[0])
}

func TestRandomOpeningUsesCoin(t *testing.T) {
	s := newTestService(t, WithFirstPlayer(FirstRandom), WithCoin(func() bool { return false }))
	gs, err := s.CreateGame()
	require.NoError(t, err)
	require.Equal(t, 1, gs.Game.Moves, "coin tails lets the computer open")

	s = newTestService(t, WithFirstPlayer(FirstRandom), WithCoin(func() bool { return true }))
	gs, err = s.CreateGame()
	require.NoError(t, err)
	require.Zero(t, gs.Game.Moves)
}

func TestHumanMarkOption(t *testing.T) {
	s := newTestService(t, WithHumanMark(domain.X), WithFirstPlayer(FirstComputer))
	gs, err := s.CreateGame()
	require.NoError(t, err)
	require.Equal(t, domain.X, gs.Game.Human)
	require.Equal(t, domain.O, gs.Game.Board[gs.LastMove])

	s = newTestService(t, WithEngine(search.New(domain.O)))
	gs, err = s.CreateGame()
	require.NoError(t, err)
	require.Equal(t, domain.X, gs.Game.Human)
}

func TestJoinSeatsAndRejoin(t *testing.T) {
	s := newTestService(t)
	gs, _ := s.CreateGame()
	p1, p2 := "p1", "p2"

	side, _, err := s.Join(gs.ID, p1)
	if err != nil || side != domain.O {
		t.Fatalf("p1 should take the human seat, got %v, err=%v", side, err)
	}
	side, _, err = s.Join(gs.ID, p1)
	if err != nil || side != domain.O {
		t.Fatalf("p1 rejoin should keep the seat, got %v, err=%v", side, err)
	}
	side, _, err = s.Join(gs.ID, p2)
	if err != nil || side != domain.Empty {
		t.Fatalf("p2 should spectate (Empty), got %v, err=%v", side, err)
	}
	if _, _, err := s.Join("missing", p1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPlayAppliesHumanAndComputerMoves(t *testing.T) {
	s := newTestService(t)
	gs := seatedGame(t, s, "p1")

	st, err := s.Play(gs.ID, "p1", 4)
	require.NoError(t, err)
	require.Equal(t, domain.O, st.Game.Board[4])
	require.Equal(t, 2, st.Game.Moves)
	require.Equal(t, domain.WaitingForPlayer, st.Game.Phase)
	require.Equal(t, domain.X, st.Game.Board[st.LastMove])
	require.Equal(t, StatusTurn, StatusText(st.Game))

	_, err = s.Play(gs.ID, "p1", 4)
	require.ErrorIs(t, err, domain.ErrOccupied)
	_, err = s.Play(gs.ID, "p1", 9)
	require.ErrorIs(t, err, domain.ErrOutOfBounds)
}

func TestPlayRejectsStrangers(t *testing.T) {
	s := newTestService(t)
	gs := seatedGame(t, s, "p1")

	_, err := s.Play(gs.ID, "p2", 0)
	require.ErrorIs(t, err, ErrNotAPlayer)
	_, err = s.Play("missing", "p1", 0)
	require.ErrorIs(t, err, ErrNotFound)

	fresh, _ := s.CreateGame()
	_, err = s.Play(fresh.ID, "p1", 0)
	require.ErrorIs(t, err, ErrNotAPlayer, "nobody is seated yet")
}

func TestComputerNeverLosesThroughService(t *testing.T) {
	for _, first := range []FirstPlayer{FirstHuman, FirstComputer} {
		s := newTestService(t, WithFirstPlayer(first))
		gs := seatedGame(t, s, "p1")
		for !gs.Game.Over {
			var err error
			gs, err = s.Play(gs.ID, "p1", firstEmpty(gs.Game.Board))
			require.NoError(t, err)
		}
		require.Equal(t, domain.GameOver, gs.Game.Phase)
		require.NotEqual(t, StatusWon, StatusText(gs.Game))

		_, err := s.Play(gs.ID, "p1", firstEmpty(gs.Game.Board))
		require.ErrorIs(t, err, domain.ErrGameOver)
	}
}

func TestResetStartsNewRound(t *testing.T) {
	s := newTestService(t)
	gs := seatedGame(t, s, "p1")
	_, err := s.Play(gs.ID, "p1", 0)
	require.NoError(t, err)

	_, err = s.Reset(gs.ID, "p2")
	require.ErrorIs(t, err, ErrNotAPlayer)
	_, err = s.Reset("missing", "p1")
	require.ErrorIs(t, err, ErrNotFound)

	st, err := s.Reset(gs.ID, "p1")
	require.NoError(t, err)
	require.Equal(t, 1, st.Round)
	require.Equal(t, domain.Board{}, st.Game.Board)
	require.Equal(t, domain.WaitingForPlayer, st.Game.Phase)
	require.Equal(t, -1, st.LastMove)
	require.Equal(t, "p1", st.Player)
}

func TestHint(t *testing.T) {
	s := newTestService(t)
	gs := seatedGame(t, s, "p1")

	move, err := s.Hint(gs.ID, "p1")
	require.NoError(t, err)
	require.Equal(t, 0, move)
	st, _ := s.Get(gs.ID)
	require.Equal(t, 0, st.Hint)

	st, err = s.Play(gs.ID, "p1", 8)
	require.NoError(t, err)
	require.Equal(t, -1, st.Hint, "a move clears the hint")

	move, err = s.Hint(gs.ID, "p1")
	require.NoError(t, err)
	require.Equal(t, domain.Empty, st.Game.Board[move])

	_, err = s.Hint(gs.ID, "p2")
	require.ErrorIs(t, err, ErrNotAPlayer)
}

func TestSubscribeAndBroadcast(t *testing.T) {
	s := newTestService(t)
	gs := seatedGame(t, s, "p1")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*2)
	defer cancel()
	ch, unsub, err := s.Subscribe(ctx, gs.ID)
	require.NoError(t, err)
	defer unsub()

	if _, err := s.Play(gs.ID, "p1", 0); err != nil {
		t.Fatalf("play failed: %v", err)
	}

	for _, want := range []string{"moves=1", "moves=2"} {
		select {
		case b, ok := <-ch:
			if !ok {
				t.Fatalf("channel closed unexpectedly")
			}
			if string(b) != want {
				t.Fatalf("unexpected broadcast payload: %q, want %q", string(b), want)
			}
		case <-ctx.Done():
			t.Fatalf("timed out waiting for broadcast")
		}
	}

	_, _, err = s.Subscribe(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDropSlowSubscriber(t *testing.T) {
	s := newTestService(t, WithSubscriberBuffer(1))
	gs := seatedGame(t, s, "p1")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*2)
	defer cancel()
	slowCh, _, err := s.Subscribe(ctx, gs.ID)
	require.NoError(t, err)

	// The human move fills the buffer, the computer reply overflows it.
	_, err = s.Play(gs.ID, "p1", 0)
	require.NoError(t, err)

	b, ok := <-slowCh
	require.True(t, ok)
	require.Equal(t, "moves=1", string(b))
	_, ok = <-slowCh
	require.False(t, ok, "slow subscriber should be closed")

	s.mu.Lock()
	n := len(s.subs[gs.ID])
	s.mu.Unlock()
	require.Zero(t, n)
}

func TestUnsubscribeOnContextCancel(t *testing.T) {
	s := newTestService(t)
	gs := seatedGame(t, s, "p1")
	ctx, cancel := context.WithCancel(context.Background())
	ch, _, err := s.Subscribe(ctx, gs.ID)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatalf("channel not closed after cancel")
	}
}

func TestStatusText(t *testing.T) {
	mk := func(board string, phase domain.Phase) domain.Game {
		b, err := domain.ParseBoard(board)
		require.NoError(t, err)
		g := domain.New(domain.O)
		g.Board = b
		g.Phase = phase
		return g
	}
	tests := []struct {
		name string
		game domain.Game
		want string
	}{
		{"human won", mk("ooo xx. x..", domain.GameOver), StatusWon},
		{"computer won", mk("xxx oo. o..", domain.GameOver), StatusLost},
		{"tie", mk("xox xoo oxx", domain.GameOver), StatusTie},
		{"human to move", mk("x.. ... ...", domain.WaitingForPlayer), StatusTurn},
		{"computer to move", mk("x.. .o. ...", domain.ComputerThinking), StatusThinking},
		{"after human move", mk("x.. .o. ...", domain.PlayerMoved), StatusThinking},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, StatusText(tt.game))
		})
	}
}
