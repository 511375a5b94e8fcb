package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/jaminalder/minimax-tic-tac-toe/internal/app"
	"github.com/jaminalder/minimax-tic-tac-toe/internal/domain"
)

type handlers struct {
	svc       *app.Service
	tpl       *templates
	heartbeat time.Duration
	log       zerolog.Logger
}

func (h *handlers) renderBoard(gs app.GameState, errMsg string) []byte {
	return renderTemplate(h.tpl.board, "", newBoardData(gs, errMsg))
}

func (h *handlers) writeBoard(w http.ResponseWriter, gs app.GameState, errMsg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(h.renderBoard(gs, errMsg))
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(renderTemplate(h.tpl.index, "", nil))
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	gs, err := h.svc.CreateGame()
	if err != nil {
		h.log.Error().Err(err).Msg("create game")
		http.Error(w, "failed to create", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/game/"+gs.ID, http.StatusSeeOther)
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	// ensure cookie and auto-claim seat
	pid := ensurePlayerCookie(w, r)
	_, gs, err := h.svc.Join(id, pid)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	data := pageData{ID: gs.ID, Board: newBoardData(*gs, "")}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(renderTemplate(h.tpl.game, "", data))
}

func (h *handlers) join(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	_, gs, err := h.svc.Join(id, pid)
	if err != nil || gs == nil {
		http.NotFound(w, r)
		return
	}
	h.writeBoard(w, *gs, "")
}

// cellFromForm reads "cell" (0..8) or the "r"/"c" pair.
func cellFromForm(r *http.Request) (int, error) {
	_ = r.ParseForm()
	if v := r.Form.Get("cell"); v != "" {
		return strconv.Atoi(v)
	}
	ri, err := strconv.Atoi(r.Form.Get("r"))
	if err != nil {
		return -1, err
	}
	ci, err := strconv.Atoi(r.Form.Get("c"))
	if err != nil {
		return -1, err
	}
	if ri < 0 || ri > 2 || ci < 0 || ci > 2 {
		return -1, domain.ErrOutOfBounds
	}
	return ri*3 + ci, nil
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, app.ErrNotYourTurn):
		return "Not your turn"
	case errors.Is(err, app.ErrNotAPlayer):
		return "You are a spectator"
	case errors.Is(err, domain.ErrOccupied):
		return "Cell is occupied"
	case errors.Is(err, domain.ErrOutOfBounds):
		return "Out of bounds"
	case errors.Is(err, domain.ErrGameOver):
		return "Game is over"
	default:
		return "Invalid move"
	}
}

// respond writes the board after an action, falling back to the stored
// state with an error line when the action failed.
func (h *handlers) respond(w http.ResponseWriter, r *http.Request, id string, gs *app.GameState, err error) {
	var errMsg string
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		errMsg = errorMessage(err)
		if g, ok := h.svc.Get(id); ok {
			gs = g
		}
	}
	if gs == nil {
		http.NotFound(w, r)
		return
	}
	h.writeBoard(w, *gs, errMsg)
}

func (h *handlers) play(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	idx, err := cellFromForm(r)
	if err != nil {
		h.respond(w, r, id, nil, domain.ErrOutOfBounds)
		return
	}
	gs, err := h.svc.Play(id, pid, idx)
	h.respond(w, r, id, gs, err)
}

func (h *handlers) reset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	gs, err := h.svc.Reset(id, pid)
	h.respond(w, r, id, gs, err)
}

func (h *handlers) hint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	_, err := h.svc.Hint(id, pid)
	gs, _ := h.svc.Get(id)
	h.respond(w, r, id, gs, err)
}

// stateDTO is the JSON view of a game for the API and WebSocket clients.
type stateDTO struct {
	ID       string    `json:"id"`
	Board    [9]string `json:"board"`
	Human    string    `json:"human"`
	Computer string    `json:"computer"`
	Phase    string    `json:"phase"`
	Status   string    `json:"status"`
	Over     bool      `json:"over"`
	Winner   string    `json:"winner,omitempty"`
	Moves    int       `json:"moves"`
	Round    int       `json:"round"`
	LastMove int       `json:"last_move"`
	Hint     int       `json:"hint"`
}

func newStateDTO(gs app.GameState) stateDTO {
	dto := stateDTO{
		ID:       gs.ID,
		Human:    gs.Game.Human.String(),
		Computer: gs.Game.Computer.String(),
		Phase:    gs.Game.Phase.String(),
		Status:   app.StatusText(gs.Game),
		Over:     gs.Game.Over,
		Moves:    gs.Game.Moves,
		Round:    gs.Round,
		LastMove: gs.LastMove,
		Hint:     gs.Hint,
	}
	for i, c := range gs.Game.Board {
		if c != domain.Empty {
			dto.Board[i] = c.String()
		}
	}
	if gs.Game.Winner != domain.Empty {
		dto.Winner = gs.Game.Winner.String()
	}
	return dto
}

func (h *handlers) state(w http.ResponseWriter, r *http.Request) {
	gs, ok := h.svc.Get(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(newStateDTO(*gs))
}

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	// In tests or non-EventSource requests, just acknowledge headers and return
	if r.Header.Get("Accept") != "text/event-stream" {
		w.WriteHeader(http.StatusOK)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	ctx := r.Context()
	ch, unsub, err := h.svc.Subscribe(ctx, id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer unsub()
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	// Initial flush of headers
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			flusher.Flush()
		case b, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(w, "board", b)
			flusher.Flush()
		}
	}
}

// writeSSE frames a possibly multi-line payload as one event.
func writeSSE(w io.Writer, event string, b []byte) {
	_, _ = fmt.Fprintf(w, "event: %s\n", event)
	for _, line := range strings.Split(strings.TrimRight(string(b), "\n"), "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = io.WriteString(w, "\n")
}
