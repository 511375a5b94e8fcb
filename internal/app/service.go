package app

import (
	"context"
	"errors"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jaminalder/minimax-tic-tac-toe/internal/domain"
	"github.com/jaminalder/minimax-tic-tac-toe/internal/search"
)

// Errors exposed by the service layer.
var (
	ErrNotFound    = errors.New("game not found")
	ErrNotYourTurn = errors.New("not your turn")
	ErrNotAPlayer  = errors.New("not a player")
)

// FirstPlayer decides who opens each round.
type FirstPlayer string

const (
	FirstRandom   FirstPlayer = "random"
	FirstHuman    FirstPlayer = "human"
	FirstComputer FirstPlayer = "computer"
)

// GameState is the in-memory state tracked per game.
type GameState struct {
	ID       string
	Game     domain.Game
	Player   string
	Round    int
	LastMove int
	Hint     int
	Created  time.Time
	Updated  time.Time
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan []byte
	closed bool
}

// send reports false when the subscriber's buffer is full.
func (s *subscriber) send(b []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- b:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Service manages games against the computer and their subscribers.
type Service struct {
	mu     sync.Mutex
	games  map[string]*GameState
	subs   map[string]map[*subscriber]struct{}
	render func(GameState) []byte

	engine *search.Engine
	human  domain.Cell
	first  FirstPlayer
	coin   func() bool
	delay  time.Duration
	buffer int
	log    zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRenderer sets the broadcast payload renderer.
func WithRenderer(renderer func(GameState) []byte) Option {
	return func(s *Service) { s.render = renderer }
}

// WithEngine replaces the default engine. The human takes the other mark.
func WithEngine(e *search.Engine) Option {
	return func(s *Service) { s.engine = e }
}

// WithHumanMark chooses the human's mark when no engine is supplied.
func WithHumanMark(c domain.Cell) Option {
	return func(s *Service) { s.human = c }
}

// WithFirstPlayer sets the opening policy.
func WithFirstPlayer(p FirstPlayer) Option {
	return func(s *Service) { s.first = p }
}

// WithCoin replaces the coin toss used by FirstRandom. true means the human opens.
func WithCoin(fn func() bool) Option {
	return func(s *Service) { s.coin = fn }
}

// WithThinkDelay pauses before each computer move.
func WithThinkDelay(d time.Duration) Option {
	return func(s *Service) { s.delay = d }
}

// WithSubscriberBuffer sets the per-subscriber channel size.
func WithSubscriberBuffer(n int) Option {
	return func(s *Service) { s.buffer = n }
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService creates a service with a default renderer (encodes nothing useful).
func NewService(opts ...Option) *Service {
	s := &Service{
		games:  make(map[string]*GameState),
		subs:   make(map[string]map[*subscriber]struct{}),
		human:  domain.O,
		first:  FirstRandom,
		coin:   func() bool { return rand.Intn(2) == 0 },
		buffer: 4,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.render == nil {
		s.render = func(gs GameState) []byte { return nil }
	}
	if s.engine == nil {
		s.engine = search.New(s.human.Opponent(),
			search.WithYield(runtime.Gosched),
			search.WithLogger(s.log))
	}
	s.human = s.engine.Computer().Opponent()
	if s.buffer < 1 {
		s.buffer = 1
	}
	return s
}

// SetRenderer replaces the broadcast renderer function.
func (s *Service) SetRenderer(renderer func(GameState) []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if renderer == nil {
		s.render = func(gs GameState) []byte { return nil }
		return
	}
	s.render = renderer
}

// CreateGame creates and registers a new game. When the computer opens, its
// first move is already on the board.
func (s *Service) CreateGame() (*GameState, error) {
	s.mu.Lock()
	id := newGameID()
	now := time.Now()
	gs := &GameState{ID: id, Game: domain.New(s.human), LastMove: -1, Hint: -1, Created: now, Updated: now}
	if err := s.startLocked(gs); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.games[id] = gs
	cp := *gs
	s.mu.Unlock()

	s.log.Info().Str("game", id).Stringer("phase", cp.Game.Phase).Msg("game created")
	if cp.Game.Phase == domain.ComputerThinking {
		return s.computerTurn(id, cp.Round, cp.Game.Board)
	}
	return &cp, nil
}

// Get returns a copy of the game state if present.
func (s *Service) Get(id string) (*GameState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.games[id]
	if !ok {
		return nil, false
	}
	cp := *gs
	return &cp, true
}

// Join seats the first visitor as the human; returns Empty for spectators.
func (s *Service) Join(id, playerID string) (domain.Cell, *GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.games[id]
	if !ok {
		return domain.Empty, nil, ErrNotFound
	}
	side := domain.Empty
	if gs.Player == "" || gs.Player == playerID {
		gs.Player = playerID
		side = gs.Game.Human
	}
	gs.Updated = time.Now()
	cp := *gs
	return side, &cp, nil
}

// Play validates seat and turn, applies the human move at idx and answers
// with the computer's move unless the game ended. Both states are broadcast.
func (s *Service) Play(id, playerID string, idx int) (*GameState, error) {
	s.mu.Lock()
	gs, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if err := s.checkTurnLocked(gs, playerID); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if err := gs.Game.PlayHuman(idx); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	gs.LastMove = idx
	gs.Hint = -1
	if !gs.Game.Over {
		if err := gs.Game.BeginComputerTurn(); err != nil {
			s.mu.Unlock()
			return nil, err
		}
	}
	gs.Updated = time.Now()
	cp := *gs
	subs, payload := s.snapshotLocked(id, cp)
	s.mu.Unlock()

	s.fanout(id, subs, payload)
	s.logMove(cp, "human", idx)
	if cp.Game.Phase != domain.ComputerThinking {
		return &cp, nil
	}
	return s.computerTurn(id, cp.Round, cp.Game.Board)
}

// Reset starts a new round for the seated player.
func (s *Service) Reset(id, playerID string) (*GameState, error) {
	s.mu.Lock()
	gs, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if gs.Player != playerID {
		s.mu.Unlock()
		return nil, ErrNotAPlayer
	}
	gs.Game.Reset()
	gs.Round++
	gs.LastMove = -1
	gs.Hint = -1
	if err := s.startLocked(gs); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	gs.Updated = time.Now()
	cp := *gs
	subs, payload := s.snapshotLocked(id, cp)
	s.mu.Unlock()

	s.fanout(id, subs, payload)
	s.log.Info().Str("game", id).Int("round", cp.Round).Stringer("phase", cp.Game.Phase).Msg("game reset")
	if cp.Game.Phase == domain.ComputerThinking {
		return s.computerTurn(id, cp.Round, cp.Game.Board)
	}
	return &cp, nil
}

// Hint returns the human's optimal move and records it on the game.
func (s *Service) Hint(id, playerID string) (int, error) {
	s.mu.Lock()
	gs, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return -1, ErrNotFound
	}
	if err := s.checkTurnLocked(gs, playerID); err != nil {
		s.mu.Unlock()
		return -1, err
	}
	round, b := gs.Round, gs.Game.Board
	s.mu.Unlock()

	move := s.engine.BestMove(b, false)

	s.mu.Lock()
	gs, ok = s.games[id]
	if !ok || gs.Round != round || gs.Game.Board != b {
		s.mu.Unlock()
		return move, nil
	}
	gs.Hint = move
	gs.Updated = time.Now()
	subs, payload := s.snapshotLocked(id, *gs)
	s.mu.Unlock()

	s.fanout(id, subs, payload)
	return move, nil
}

// Subscribe registers a subscriber for a game. Returns a channel and an unsubscribe func.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan []byte, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[id]; !ok {
		return nil, nil, ErrNotFound
	}
	set := s.subs[id]
	if set == nil {
		set = make(map[*subscriber]struct{})
		s.subs[id] = set
	}
	sub := &subscriber{ch: make(chan []byte, s.buffer)}
	set[sub] = struct{}{}

	unsubOnce := &sync.Once{}
	unsub := func() {
		unsubOnce.Do(func() {
			s.mu.Lock()
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
			s.mu.Unlock()
			sub.close()
		})
	}
	go func() {
		<-ctx.Done()
		unsub()
	}()
	return sub.ch, unsub, nil
}

// computerTurn searches outside the lock and applies the move if the round
// is still the one the search started from.
func (s *Service) computerTurn(id string, round int, b domain.Board) (*GameState, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	move := s.engine.ComputeBestMove(b)

	s.mu.Lock()
	gs, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if gs.Round != round || gs.Game.Phase != domain.ComputerThinking || gs.Game.Board != b {
		cp := *gs
		s.mu.Unlock()
		s.log.Debug().Str("game", id).Int("round", round).Msg("discarding stale computer move")
		return &cp, nil
	}
	if err := gs.Game.PlayComputer(move); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	gs.LastMove = move
	gs.Updated = time.Now()
	cp := *gs
	subs, payload := s.snapshotLocked(id, cp)
	s.mu.Unlock()

	s.fanout(id, subs, payload)
	s.logMove(cp, "computer", move)
	return &cp, nil
}

func (s *Service) checkTurnLocked(gs *GameState, playerID string) error {
	if gs.Player == "" || gs.Player != playerID {
		return ErrNotAPlayer
	}
	if gs.Game.Over {
		return domain.ErrGameOver
	}
	if gs.Game.Phase != domain.WaitingForPlayer {
		return ErrNotYourTurn
	}
	return nil
}

func (s *Service) startLocked(gs *GameState) error {
	humanFirst := true
	switch s.first {
	case FirstComputer:
		humanFirst = false
	case FirstRandom:
		humanFirst = s.coin()
	}
	return gs.Game.Start(humanFirst)
}

func (s *Service) snapshotLocked(id string, cp GameState) (map[*subscriber]struct{}, []byte) {
	return s.copySubsLocked(id), s.render(cp)
}

// fanout delivers payload; slow subscribers are closed and dropped.
func (s *Service) fanout(id string, subs map[*subscriber]struct{}, payload []byte) {
	var toDrop []*subscriber
	for sub := range subs {
		if !sub.send(payload) {
			sub.close()
			toDrop = append(toDrop, sub)
		}
	}
	if len(toDrop) > 0 {
		s.mu.Lock()
		for _, sub := range toDrop {
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
		}
		s.mu.Unlock()
		s.log.Warn().Str("game", id).Int("dropped", len(toDrop)).Msg("dropped slow subscribers")
	}
}

func (s *Service) copySubsLocked(id string) map[*subscriber]struct{} {
	out := make(map[*subscriber]struct{})
	if set, ok := s.subs[id]; ok {
		for k := range set {
			out[k] = struct{}{}
		}
	}
	return out
}

func (s *Service) logMove(gs GameState, who string, idx int) {
	ev := s.log.Debug()
	if gs.Game.Over {
		ev = s.log.Info()
	}
	ev.Str("game", gs.ID).
		Str("by", who).
		Int("cell", idx).
		Stringer("phase", gs.Game.Phase).
		Str("status", StatusText(gs.Game)).
		Msg("move applied")
}
